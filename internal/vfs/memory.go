package vfs

import (
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Standard error values for MemFS operations.
// These align with POSIX errors for consistency with OSFS.
var (
	errIsDir    = syscall.EISDIR
	errNotDir   = syscall.ENOTDIR
	errNotEmpty = syscall.ENOTEMPTY
)

// MemFS implements VFS using an in-memory file system.
// It honors the owner write bit on existing files so read-only
// documents behave as they do on disk.
//
// MemFS is safe for concurrent use.
type MemFS struct {
	mu    sync.RWMutex
	files map[string]*memFile
	dirs  map[string]bool

	// writeFault, when set, is returned by every WriteFile call.
	writeFault error
}

type memFile struct {
	content []byte
	mode    fs.FileMode
	modTime time.Time
}

// NewMemFS creates a new in-memory file system.
func NewMemFS() *MemFS {
	return &MemFS{
		files: make(map[string]*memFile),
		dirs:  map[string]bool{"/": true},
	}
}

// Ensure MemFS implements VFS.
var _ VFS = (*MemFS)(nil)

// ReadFile reads the entire file content.
func (m *MemFS) ReadFile(filePath string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filePath = m.cleanPath(filePath)
	f, ok := m.files[filePath]
	if !ok {
		if m.dirs[filePath] {
			return nil, &fs.PathError{Op: "read", Path: filePath, Err: errIsDir}
		}
		return nil, &fs.PathError{Op: "read", Path: filePath, Err: fs.ErrNotExist}
	}

	// Return a copy to prevent modification
	content := make([]byte, len(f.content))
	copy(content, f.content)
	return content, nil
}

// WriteFile writes data to a file, creating it if necessary.
// Writing to an existing file without the owner write bit fails with
// fs.ErrPermission.
func (m *MemFS) WriteFile(filePath string, data []byte, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	filePath = m.cleanPath(filePath)

	if m.writeFault != nil {
		return &fs.PathError{Op: "write", Path: filePath, Err: m.writeFault}
	}

	if m.dirs[filePath] {
		return &fs.PathError{Op: "write", Path: filePath, Err: errIsDir}
	}

	dir := path.Dir(filePath)
	if dir != "/" && !m.dirs[dir] {
		return &fs.PathError{Op: "write", Path: filePath, Err: fs.ErrNotExist}
	}

	mode := perm
	if existing, ok := m.files[filePath]; ok {
		if existing.mode.Perm()&0o200 == 0 {
			return &fs.PathError{Op: "write", Path: filePath, Err: fs.ErrPermission}
		}
		mode = existing.mode
	}

	content := make([]byte, len(data))
	copy(content, data)

	m.files[filePath] = &memFile{
		content: content,
		mode:    mode,
		modTime: time.Now(),
	}
	return nil
}

// Stat returns file information.
func (m *MemFS) Stat(filePath string) (FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filePath = m.cleanPath(filePath)

	if f, ok := m.files[filePath]; ok {
		return NewFileInfo(
			filePath,
			path.Base(filePath),
			int64(len(f.content)),
			f.mode,
			f.modTime,
			false,
		), nil
	}

	if m.dirs[filePath] {
		return NewFileInfo(
			filePath,
			path.Base(filePath),
			0,
			fs.ModeDir|0o755,
			time.Now(),
			true,
		), nil
	}

	return FileInfo{}, &fs.PathError{Op: "stat", Path: filePath, Err: fs.ErrNotExist}
}

// MkdirAll creates a directory and all parent directories.
func (m *MemFS) MkdirAll(dirPath string, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dirPath = m.cleanPath(dirPath)

	if _, ok := m.files[dirPath]; ok {
		return &fs.PathError{Op: "mkdir", Path: dirPath, Err: errNotDir}
	}

	parts := strings.Split(strings.Trim(dirPath, "/"), "/")
	current := ""
	for _, part := range parts {
		if part == "" {
			continue
		}
		current += "/" + part
		if _, ok := m.files[current]; ok {
			return &fs.PathError{Op: "mkdir", Path: current, Err: errNotDir}
		}
		m.dirs[current] = true
	}

	return nil
}

// Remove removes a file or empty directory.
func (m *MemFS) Remove(filePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	filePath = m.cleanPath(filePath)

	if _, ok := m.files[filePath]; ok {
		delete(m.files, filePath)
		return nil
	}

	if !m.dirs[filePath] {
		return &fs.PathError{Op: "remove", Path: filePath, Err: fs.ErrNotExist}
	}

	prefix := filePath
	if prefix != "/" {
		prefix += "/"
	}
	for f := range m.files {
		if strings.HasPrefix(f, prefix) {
			return &fs.PathError{Op: "remove", Path: filePath, Err: errNotEmpty}
		}
	}
	for d := range m.dirs {
		if d != filePath && strings.HasPrefix(d, prefix) {
			return &fs.PathError{Op: "remove", Path: filePath, Err: errNotEmpty}
		}
	}

	delete(m.dirs, filePath)
	return nil
}

// Abs returns the absolute path (already absolute in MemFS).
func (m *MemFS) Abs(filePath string) (string, error) {
	return m.cleanPath(filePath), nil
}

// Exists returns true if the path exists.
func (m *MemFS) Exists(filePath string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filePath = m.cleanPath(filePath)
	_, isFile := m.files[filePath]
	return isFile || m.dirs[filePath]
}

// Chmod changes the mode of an existing file.
func (m *MemFS) Chmod(filePath string, mode fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	filePath = m.cleanPath(filePath)
	f, ok := m.files[filePath]
	if !ok {
		return &fs.PathError{Op: "chmod", Path: filePath, Err: fs.ErrNotExist}
	}
	f.mode = mode
	return nil
}

// FailWrites makes every subsequent WriteFile fail with err.
// Passing nil restores normal behavior.
func (m *MemFS) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeFault = err
}

// cleanPath normalizes a path.
func (m *MemFS) cleanPath(p string) string {
	p = path.Clean(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// AddFile is a convenience method for adding files during setup.
func (m *MemFS) AddFile(filePath string, content []byte, mode fs.FileMode) error {
	dir := path.Dir(m.cleanPath(filePath))
	if dir != "/" {
		if err := m.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	data := make([]byte, len(content))
	copy(data, content)
	m.files[m.cleanPath(filePath)] = &memFile{
		content: data,
		mode:    mode,
		modTime: time.Now(),
	}
	return nil
}

// Files returns all file paths in the file system.
// Useful for testing and debugging.
func (m *MemFS) Files() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make([]string, 0, len(m.files))
	for f := range m.files {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}
