// Package recent keeps the list of recently opened definition files.
//
// The list is owned by the application and persisted as YAML. It does not
// read operating system shell history; a platform-specific collaborator can
// satisfy Source instead.
package recent

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/sharedparams/internal/vfs"
)

// DefaultLimit is the number of files remembered when no limit is set.
const DefaultLimit = 10

// Source provides recently used definition file paths, newest first.
type Source interface {
	Paths() ([]string, error)
}

// Entry is one remembered file.
type Entry struct {
	Path   string    `yaml:"path"`
	Opened time.Time `yaml:"opened"`
}

type state struct {
	Files []Entry `yaml:"files"`
}

// List is a YAML-backed recent files list.
type List struct {
	fs           vfs.VFS
	path         string
	limit        int
	filterShared bool
	now          func() time.Time
}

// Option configures a List.
type Option func(*List)

// WithLimit sets how many files are remembered.
func WithLimit(n int) Option {
	return func(l *List) {
		if n > 0 {
			l.limit = n
		}
	}
}

// WithSharedFilter limits listed files to those whose base name contains
// "shared", ignoring case.
func WithSharedFilter(on bool) Option {
	return func(l *List) {
		l.filterShared = on
	}
}

// WithClock sets the time source used to stamp entries.
func WithClock(now func() time.Time) Option {
	return func(l *List) {
		if now != nil {
			l.now = now
		}
	}
}

// New returns a list stored at path.
func New(fsys vfs.VFS, path string, opts ...Option) *List {
	l := &List{
		fs:    fsys,
		path:  path,
		limit: DefaultLimit,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Add records file as the most recently opened. An existing entry for the
// same file moves to the front. The oldest entries beyond the limit are
// dropped.
func (l *List) Add(file string) error {
	abs, err := l.fs.Abs(file)
	if err != nil {
		return fmt.Errorf("recent add %s: %w", file, err)
	}

	st, err := l.load()
	if err != nil {
		return err
	}

	files := make([]Entry, 0, len(st.Files)+1)
	files = append(files, Entry{Path: abs, Opened: l.now()})
	for _, e := range st.Files {
		if e.Path != abs {
			files = append(files, e)
		}
	}
	if len(files) > l.limit {
		files = files[:l.limit]
	}

	st.Files = files
	return l.save(st)
}

// Remove forgets file. Forgetting an unknown file is not an error.
func (l *List) Remove(file string) error {
	abs, err := l.fs.Abs(file)
	if err != nil {
		return fmt.Errorf("recent remove %s: %w", file, err)
	}

	st, err := l.load()
	if err != nil {
		return err
	}

	kept := st.Files[:0]
	for _, e := range st.Files {
		if e.Path != abs {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(st.Files) {
		return nil
	}
	st.Files = kept
	return l.save(st)
}

// Clear forgets every file.
func (l *List) Clear() error {
	return l.save(state{})
}

// Entries returns the remembered files, newest first, filtered when the
// shared filter is on.
func (l *List) Entries() ([]Entry, error) {
	st, err := l.load()
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(st.Files))
	for _, e := range st.Files {
		if l.filterShared && !IsSharedName(e.Path) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Paths implements Source.
func (l *List) Paths() ([]string, error) {
	entries, err := l.Entries()
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}
	return paths, nil
}

// IsSharedName reports whether the base name of path contains "shared",
// ignoring case.
func IsSharedName(path string) bool {
	return strings.Contains(strings.ToLower(filepath.Base(path)), "shared")
}

func (l *List) load() (state, error) {
	var st state
	data, err := l.fs.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return st, nil
		}
		return st, fmt.Errorf("reading recent list %s: %w", l.path, err)
	}
	if err := yaml.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("parsing recent list %s: %w", l.path, err)
	}
	return st, nil
}

func (l *List) save(st state) error {
	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding recent list: %w", err)
	}
	if err := l.fs.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("creating recent list directory: %w", err)
	}
	if err := l.fs.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("writing recent list %s: %w", l.path, err)
	}
	return nil
}

var _ Source = (*List)(nil)
