// Package security guards filesystem paths derived from request input
// before the server writes through them.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidatePathWithinDirectory reports whether filePath stays inside
// safeDir once both are fully resolved. Symlinks on either side are
// followed, so a link pointing out of safeDir is rejected even when
// the textual path looks contained. safeDir must exist.
func ValidatePathWithinDirectory(filePath, safeDir string) error {
	target, err := canonicalize(filePath)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	absRoot, err := filepath.Abs(safeDir)
	if err != nil {
		return fmt.Errorf("resolve safe directory: %w", err)
	}
	root, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return fmt.Errorf("resolve safe directory symlinks: %w", err)
	}

	rel, err := filepath.Rel(root, target)
	if err != nil {
		return fmt.Errorf("path is outside safe directory: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path traversal detected: %s attempts to escape %s", filePath, safeDir)
	}
	return nil
}

// canonicalize returns the absolute, symlink-free form of path. When
// the path does not exist yet, the deepest existing ancestor is
// resolved and the remaining components rejoined, so a symlinked
// parent cannot smuggle the target elsewhere.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", err
	}

	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}

	for dir := filepath.Dir(abs); ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			rel, err := filepath.Rel(dir, abs)
			if err != nil {
				return "", err
			}
			return filepath.Join(resolved, rel), nil
		}
		if dir == filepath.Dir(dir) {
			// Nothing on disk all the way up to the root.
			return abs, nil
		}
	}
}

// SanitizeFilename reduces an arbitrary identifier to something safe
// to embed in a file name. Anything outside [A-Za-z0-9._-] maps to an
// underscore, runs of replacements collapse to one, the result is
// capped at 128 characters, and leading or trailing dots and
// underscores are trimmed. Input that strips to nothing comes back as
// "unknown".
func SanitizeFilename(s string) string {
	const maxLen = 128

	var b strings.Builder
	pendingRun := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
			pendingRun = false
		default:
			if !pendingRun {
				b.WriteByte('_')
			}
			pendingRun = true
		}
	}

	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
