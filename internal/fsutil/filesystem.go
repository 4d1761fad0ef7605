// Package fsutil narrows filesystem access behind a small interface so
// spectrum exports and rendered plots can be tested against an
// in-memory implementation.
package fsutil

import (
	"io"
	"os"
)

// FileSystem covers the operations the export and plotting paths use.
// OSFileSystem is the production implementation; MemoryFileSystem
// backs tests.
type FileSystem interface {
	// Create creates or truncates the named file for writing.
	Create(name string) (io.WriteCloser, error)

	// ReadFile returns the contents of the named file.
	ReadFile(name string) ([]byte, error)

	// WriteFile writes data to the named file, creating it if needed.
	WriteFile(name string, data []byte, perm os.FileMode) error

	// MkdirAll creates the named directory along with missing parents.
	MkdirAll(path string, perm os.FileMode) error

	// Exists reports whether a file or directory exists at name.
	Exists(name string) bool
}

// OSFileSystem implements FileSystem on the os package.
type OSFileSystem struct{}

func (OSFileSystem) Create(name string) (io.WriteCloser, error) {
	return os.Create(name)
}

func (OSFileSystem) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

func (OSFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

func (OSFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (OSFileSystem) Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}
