package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	root := t.TempDir()
	safeDir := filepath.Join(root, "exports")
	outsideDir := filepath.Join(root, "outside")
	for _, dir := range []string{safeDir, outsideDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"file directly inside", filepath.Join(safeDir, "cs137.dat"), false},
		{"nested file not yet created", filepath.Join(safeDir, "run10500", "cs137.dat"), false},
		{"safe dir itself", safeDir, false},
		{"dotdot escape", filepath.Join(safeDir, "..", "escape.dat"), true},
		{"deep dotdot escape", filepath.Join(safeDir, "a", "..", "..", "escape.dat"), true},
		{"sibling directory", filepath.Join(outsideDir, "file.dat"), true},
		{"absolute path outside", "/etc/passwd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.path, safeDir)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePathWithinDirectory(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePathWithinDirectory_SymlinkEscape(t *testing.T) {
	root := t.TempDir()
	safeDir := filepath.Join(root, "exports")
	secretDir := filepath.Join(root, "secret")
	for _, dir := range []string{safeDir, secretDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(secretDir, "creds.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	// A link inside the safe directory that points out of it.
	link := filepath.Join(safeDir, "sneaky")
	if err := os.Symlink(secretDir, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	if err := ValidatePathWithinDirectory(link, safeDir); err == nil {
		t.Error("symlink to an outside directory should be rejected")
	}
	if err := ValidatePathWithinDirectory(filepath.Join(link, "creds.txt"), safeDir); err == nil {
		t.Error("existing file behind an escaping symlink should be rejected")
	}
	if err := ValidatePathWithinDirectory(filepath.Join(link, "new.txt"), safeDir); err == nil {
		t.Error("unborn file behind an escaping symlink should be rejected")
	}
}

func TestValidatePathWithinDirectory_MissingSafeDir(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "never-created")
	if err := ValidatePathWithinDirectory(filepath.Join(missing, "f.dat"), missing); err == nil {
		t.Error("a safe directory that does not exist should be rejected")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"cs137.dat", "cs137.dat"},
		{"run 10500 subrun 3", "run_10500_subrun_3"},
		{"../escape.txt", "escape.txt"},
		{"../../etc/passwd", "etc_passwd"},
		{"a/b\\c:d", "a_b_c_d"},
		{"name???with???runs", "name_with_runs"},
		{"__wrapped__", "wrapped"},
		{"...", "unknown"},
		{"", "unknown"},
		{"///", "unknown"},
		{"héllo wörld", "h_llo_w_rld"},
	}

	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFilename_CapsLength(t *testing.T) {
	long := strings.Repeat("a", 500)
	got := SanitizeFilename(long)
	if len(got) != 128 {
		t.Errorf("len = %d, want 128", len(got))
	}
}
