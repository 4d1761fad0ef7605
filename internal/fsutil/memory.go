package fsutil

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// MemoryFileSystem keeps files in a map for tests. Paths are cleaned
// but otherwise uninterpreted, and permissions are ignored.
type MemoryFileSystem struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]bool
}

// NewMemoryFileSystem returns an empty in-memory filesystem.
func NewMemoryFileSystem() *MemoryFileSystem {
	return &MemoryFileSystem{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
	}
}

// Create returns a writer whose contents become the file on Close.
func (m *MemoryFileSystem) Create(name string) (io.WriteCloser, error) {
	return &memWriter{fs: m, name: filepath.Clean(name)}, nil
}

func (m *MemoryFileSystem) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.files[filepath.Clean(name)]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemoryFileSystem) WriteFile(name string, data []byte, _ os.FileMode) error {
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	m.files[filepath.Clean(name)] = buf
	m.mu.Unlock()
	return nil
}

// MkdirAll records the directory and every ancestor as existing.
func (m *MemoryFileSystem) MkdirAll(path string, _ os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for p := filepath.Clean(path); p != "." && p != string(filepath.Separator); p = filepath.Dir(p) {
		m.dirs[p] = true
	}
	return nil
}

func (m *MemoryFileSystem) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name = filepath.Clean(name)
	if _, ok := m.files[name]; ok {
		return true
	}
	return m.dirs[name]
}

// memWriter buffers writes and commits them as the file on Close.
type memWriter struct {
	fs   *MemoryFileSystem
	name string
	buf  bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *memWriter) Close() error {
	w.fs.mu.Lock()
	w.fs.files[w.name] = w.buf.Bytes()
	w.fs.mu.Unlock()
	return nil
}
