package filesystem

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// Exported variables.
var (
	ErrIsDirectory = errors.New("is a directory")
)

// MockFileSystem is an in-memory, slash-separated filesystem used as a deploy target in tests.
type MockFileSystem struct {
	mu    sync.RWMutex
	files map[string]*mockFile

	// FailCreate makes Create fail for any path it returns true for.
	FailCreate func(path string) bool
}

// mockFile represents a file in the mock filesystem.
type mockFile struct {
	data    []byte
	modTime time.Time
	isDir   bool
	perm    os.FileMode
}

// mockFileInfo implements os.FileInfo for mock files.
type mockFileInfo struct {
	name    string
	size    int64
	modTime time.Time
	isDir   bool
	perm    os.FileMode
}

func (fi *mockFileInfo) Name() string       { return fi.name }
func (fi *mockFileInfo) Size() int64        { return fi.size }
func (fi *mockFileInfo) Mode() os.FileMode  { return fi.perm }
func (fi *mockFileInfo) ModTime() time.Time { return fi.modTime }
func (fi *mockFileInfo) IsDir() bool        { return fi.isDir }
func (fi *mockFileInfo) Sys() interface{}   { return nil }

// mockFileHandle implements the File interface for reading/writing.
type mockFileHandle struct {
	fs     *MockFileSystem
	path   string
	reader *bytes.Reader
	writer *bytes.Buffer
	closed bool
}

func (f *mockFileHandle) Read(p []byte) (int, error) {
	if f.closed {
		return 0, os.ErrClosed
	}

	if f.reader == nil {
		return 0, io.EOF
	}

	return f.reader.Read(p)
}

func (f *mockFileHandle) Write(p []byte) (int, error) {
	if f.closed {
		return 0, os.ErrClosed
	}

	if f.writer == nil {
		f.writer = &bytes.Buffer{}
	}

	return f.writer.Write(p)
}

func (f *mockFileHandle) Close() error {
	if f.closed {
		return os.ErrClosed
	}

	f.closed = true

	if f.writer != nil {
		f.fs.mu.Lock()
		defer f.fs.mu.Unlock()

		if file, exists := f.fs.files[f.path]; exists {
			file.data = f.writer.Bytes()
		} else {
			f.fs.files[f.path] = &mockFile{
				data:    f.writer.Bytes(),
				modTime: time.Now(),
				perm:    0o644,
			}
		}
	}

	return nil
}

func (f *mockFileHandle) Stat() (os.FileInfo, error) {
	if f.closed {
		return nil, os.ErrClosed
	}

	return f.fs.Stat(f.path)
}

// NewMockFileSystem creates a new in-memory filesystem.
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		files: make(map[string]*mockFile),
	}
}

// Chtimes changes the access and modification times of a file.
func (fs *MockFileSystem) Chtimes(name string, _, mtime time.Time) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	file, exists := fs.files[clean(name)]
	if !exists {
		return notExist("chtimes", name)
	}

	file.modTime = mtime

	return nil
}

// Create creates or truncates a file, creating parent directories as needed.
func (fs *MockFileSystem) Create(name string) (File, error) {
	if fs.FailCreate != nil && fs.FailCreate(name) {
		return nil, &os.PathError{Op: "create", Path: name, Err: os.ErrPermission}
	}

	name = clean(name)

	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.mkdirAllLocked(path.Dir(name), 0o755) //nolint:mnd // default dir mode

	fs.files[name] = &mockFile{
		data:    []byte{},
		modTime: time.Now(),
		perm:    0o644, //nolint:mnd // default file mode
	}

	return &mockFileHandle{
		fs:     fs,
		path:   name,
		writer: &bytes.Buffer{},
	}, nil
}

// Join joins elements with forward slashes.
func (fs *MockFileSystem) Join(elem ...string) string {
	return path.Join(elem...)
}

// MkdirAll creates a directory and all necessary parents.
func (fs *MockFileSystem) MkdirAll(name string, perm os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.mkdirAllLocked(clean(name), perm)

	return nil
}

// Open opens a file for reading.
func (fs *MockFileSystem) Open(name string) (File, error) {
	name = clean(name)

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	file, exists := fs.files[name]
	if !exists {
		return nil, notExist("open", name)
	}

	if file.isDir {
		return nil, &os.PathError{Op: "open", Path: name, Err: ErrIsDirectory}
	}

	return &mockFileHandle{
		fs:     fs,
		path:   name,
		reader: bytes.NewReader(file.data),
	}, nil
}

// Remove removes a file or empty directory.
func (fs *MockFileSystem) Remove(name string) error {
	name = clean(name)

	fs.mu.Lock()
	defer fs.mu.Unlock()

	file, exists := fs.files[name]
	if !exists {
		return notExist("remove", name)
	}

	if file.isDir {
		for p := range fs.files {
			if strings.HasPrefix(p, name+"/") {
				return fmt.Errorf("remove %s: directory not empty", name) //nolint:err113 // mirrors the OS message
			}
		}
	}

	delete(fs.files, name)

	return nil
}

// RemoveAll removes name and every entry below it.
func (fs *MockFileSystem) RemoveAll(name string) error {
	name = clean(name)

	fs.mu.Lock()
	defer fs.mu.Unlock()

	for p := range fs.files {
		if p == name || strings.HasPrefix(p, name+"/") {
			delete(fs.files, p)
		}
	}

	return nil
}

// Scan returns an iterator over all files in a directory tree.
func (fs *MockFileSystem) Scan(root string) FileScanner {
	return newMockFileScanner(fs, clean(root))
}

// Stat returns file information.
func (fs *MockFileSystem) Stat(name string) (os.FileInfo, error) {
	name = clean(name)

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	file, exists := fs.files[name]
	if !exists {
		return nil, notExist("stat", name)
	}

	return &mockFileInfo{
		name:    path.Base(name),
		size:    int64(len(file.data)),
		modTime: file.modTime,
		isDir:   file.isDir,
		perm:    file.perm,
	}, nil
}

// mkdirAllLocked creates name and its parents; the lock must be held.
func (fs *MockFileSystem) mkdirAllLocked(name string, perm os.FileMode) {
	if name == "." || name == "/" || name == "" {
		return
	}

	fs.mkdirAllLocked(path.Dir(name), perm)

	if _, exists := fs.files[name]; !exists {
		fs.files[name] = &mockFile{
			modTime: time.Now(),
			isDir:   true,
			perm:    perm | os.ModeDir,
		}
	}
}

// Helper methods for testing

// AddFile adds a file to the mock filesystem with the given content.
func (fs *MockFileSystem) AddFile(name string, content []byte) {
	name = clean(name)

	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.mkdirAllLocked(path.Dir(name), 0o755) //nolint:mnd // default dir mode

	fs.files[name] = &mockFile{
		data:    append([]byte(nil), content...),
		modTime: time.Now(),
		perm:    0o644, //nolint:mnd // default file mode
	}
}

// Exists checks if a path exists in the mock filesystem.
func (fs *MockFileSystem) Exists(name string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	_, exists := fs.files[clean(name)]

	return exists
}

// GetFile retrieves a file's content from the mock filesystem.
func (fs *MockFileSystem) GetFile(name string) ([]byte, error) {
	name = clean(name)

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	file, exists := fs.files[name]
	if !exists {
		return nil, notExist("read", name)
	}

	if file.isDir {
		return nil, &os.PathError{Op: "read", Path: name, Err: ErrIsDirectory}
	}

	return append([]byte(nil), file.data...), nil
}

// ListFiles returns all regular file paths in the mock filesystem, sorted.
func (fs *MockFileSystem) ListFiles() []string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	paths := make([]string, 0, len(fs.files))
	for p, f := range fs.files {
		if !f.isDir {
			paths = append(paths, p)
		}
	}

	sort.Strings(paths)

	return paths
}

func clean(name string) string {
	return path.Clean(strings.ReplaceAll(name, "\\", "/"))
}

func notExist(op, name string) error {
	return &os.PathError{Op: op, Path: name, Err: os.ErrNotExist}
}
