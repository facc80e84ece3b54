// Package session is one editing session over a definition file: open,
// edit, merge and save, with read-only tracking and recent file
// bookkeeping. It is the layer a user interface or the command line drives.
package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dshills/sharedparams/internal/codec"
	"github.com/dshills/sharedparams/internal/definition"
	"github.com/dshills/sharedparams/internal/logging"
	"github.com/dshills/sharedparams/internal/merge"
	"github.com/dshills/sharedparams/internal/vfs"
	"github.com/dshills/sharedparams/internal/watcher"
)

var (
	// ErrReadOnly indicates the session was opened read-only.
	ErrReadOnly = errors.New("file is read-only")

	// ErrNoPath indicates the session has no file to save to.
	ErrNoPath = errors.New("no file name; use save as")

	// ErrDirty indicates unsaved changes would be discarded.
	ErrDirty = errors.New("document has unsaved changes")
)

// Recorder remembers opened files.
type Recorder interface {
	Add(path string) error
}

// Session owns a document and the file it came from.
type Session struct {
	fs   vfs.VFS
	path string
	doc  *definition.Document

	readOnly  bool
	forceRO   bool
	recorder  Recorder
	log       *zap.Logger
	mergeOpts []merge.Option
	textInfo  *vfs.TextInfo
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger that receives command records.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		s.log = logging.OrNop(logger)
	}
}

// WithRecorder records opened and saved files, typically in a recent.List.
func WithRecorder(r Recorder) Option {
	return func(s *Session) {
		s.recorder = r
	}
}

// WithReadOnly opens the file read-only even when it is writable.
func WithReadOnly(readOnly bool) Option {
	return func(s *Session) {
		s.forceRO = readOnly
	}
}

// WithMergeGroupName sets the name of groups created by Merge.
func WithMergeGroupName(name string) Option {
	return func(s *Session) {
		s.mergeOpts = append(s.mergeOpts, merge.WithGroupName(name))
	}
}

// WithTextInfo sets the encoding and line ending of a new document.
func WithTextInfo(info vfs.TextInfo) Option {
	return func(s *Session) {
		s.textInfo = &info
	}
}

func newSession(fsys vfs.VFS, path string, opts []Option) *Session {
	s := &Session{fs: fsys, path: path, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.mergeOpts = append(s.mergeOpts, merge.WithLogger(s.log))
	return s
}

// Open loads the definition file at path. The session is read-only when
// the file is not writable or WithReadOnly is set.
func Open(fsys vfs.VFS, path string, opts ...Option) (*Session, error) {
	if abs, err := fsys.Abs(path); err == nil {
		path = abs
	}
	s := newSession(fsys, path, opts)
	logging.Command(s.log, "open", zap.String("path", path))

	doc, err := codec.Load(fsys, path)
	if err != nil {
		s.log.Warn("open failed", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	s.doc = doc
	s.refreshReadOnly()
	s.record()

	s.log.Debug("opened",
		zap.String("path", path),
		zap.Int("groups", doc.NumGroups()),
		zap.Int("parameters", doc.NumParameters()),
		zap.Bool("read_only", s.readOnly),
	)
	return s, nil
}

// New starts a session over an empty document that will be saved to path.
// Nothing is written until Save. An empty path requires SaveAs.
func New(fsys vfs.VFS, path string, opts ...Option) *Session {
	if path != "" {
		if abs, err := fsys.Abs(path); err == nil {
			path = abs
		}
	}
	s := newSession(fsys, path, opts)
	logging.Command(s.log, "new", zap.String("path", path))

	var docOpts []definition.Option
	if s.textInfo != nil {
		docOpts = append(docOpts, definition.WithTextInfo(*s.textInfo))
	}
	s.doc = definition.New(docOpts...)
	s.readOnly = s.forceRO
	return s
}

// Document returns the session's document for editing.
func (s *Session) Document() *definition.Document {
	return s.doc
}

// Path returns the file the session saves to.
func (s *Session) Path() string {
	return s.path
}

// ReadOnly reports whether Save is refused.
func (s *Session) ReadOnly() bool {
	return s.readOnly
}

// Dirty reports whether the document has unsaved changes.
func (s *Session) Dirty() bool {
	return s.doc.Dirty()
}

// CanSave reports whether Save would write anything.
func (s *Session) CanSave() bool {
	return !s.readOnly && s.path != "" && s.doc.Dirty()
}

// Save writes the document back to its file.
func (s *Session) Save() error {
	logging.Command(s.log, "save", zap.String("path", s.path))

	if s.path == "" {
		return &codec.IoError{Op: "save", Err: ErrNoPath}
	}
	if s.readOnly {
		return &codec.PermissionError{Op: "save", Path: s.path, Err: ErrReadOnly}
	}
	if err := codec.Save(s.fs, s.doc, s.path, "", false); err != nil {
		s.log.Warn("save failed", zap.String("path", s.path), zap.Error(err))
		return err
	}
	return nil
}

// SaveAs writes the document to target. An existing target is only
// replaced when overwrite is set. On success the session switches to
// target and becomes writable; the original file is left untouched.
// A read-only session cannot save as its own file.
func (s *Session) SaveAs(target string, overwrite bool) error {
	if abs, err := s.fs.Abs(target); err == nil {
		target = abs
	}
	logging.Command(s.log, "save_as",
		zap.String("path", s.path),
		zap.String("target", target),
		zap.Bool("overwrite", overwrite),
	)

	if s.readOnly && s.path != "" && target == s.path {
		return &codec.PermissionError{Op: "save_as", Path: target, Err: ErrReadOnly}
	}

	if err := codec.Save(s.fs, s.doc, s.path, target, overwrite); err != nil {
		s.log.Warn("save as failed", zap.String("target", target), zap.Error(err))
		return err
	}

	s.path = target
	s.forceRO = false
	s.refreshReadOnly()
	s.record()
	return nil
}

// Merge folds bundle into the document under a new group.
func (s *Session) Merge(bundle merge.Bundle) (merge.Result, error) {
	logging.Command(s.log, "merge", zap.Int("parameters", bundle.Len()))
	return merge.Merge(s.doc, bundle, s.mergeOpts...)
}

// MergeFile merges every parameter of another definition file.
func (s *Session) MergeFile(path string) (merge.Result, error) {
	logging.Command(s.log, "merge_file", zap.String("source", path))

	src, err := codec.Load(s.fs, path)
	if err != nil {
		return merge.Result{}, err
	}
	return merge.Merge(s.doc, merge.FromDocument(src), s.mergeOpts...)
}

// MergeFrom waits for a bundle on h and merges it.
func (s *Session) MergeFrom(ctx context.Context, h *merge.Handoff) (merge.Result, error) {
	bundle, err := h.Receive(ctx)
	if err != nil {
		return merge.Result{}, err
	}
	return s.Merge(bundle)
}

// Reload replaces the document with the file's current content. Unsaved
// changes are kept and ErrDirty returned unless force is set. Subscribers
// of the old document keep receiving changes from the new one.
func (s *Session) Reload(force bool) error {
	logging.Command(s.log, "reload", zap.String("path", s.path), zap.Bool("force", force))

	if s.path == "" {
		return &codec.IoError{Op: "reload", Err: ErrNoPath}
	}
	if !force && s.doc.Dirty() {
		return fmt.Errorf("reload %s: %w", s.path, ErrDirty)
	}

	doc, err := codec.Load(s.fs, s.path, definition.WithNotifier(s.doc.Notifier()))
	if err != nil {
		return err
	}
	s.doc = doc
	s.refreshReadOnly()
	return nil
}

// Watch reports external changes to the session's file until ctx ends.
// onChange runs on the watching goroutine; it should hand work back to the
// goroutine that owns the session rather than touch the document.
func (s *Session) Watch(ctx context.Context, w *watcher.Watcher, onChange func(watcher.Event)) error {
	if s.path == "" {
		return ErrNoPath
	}
	if err := w.Add(s.path); err != nil {
		return fmt.Errorf("watch %s: %w", s.path, err)
	}
	defer func() { _ = w.Remove(s.path) }()

	logging.Command(s.log, "watch", zap.String("path", s.path))
	return watcher.Run(ctx, w, onChange, func(err error) {
		s.log.Warn("watch error", zap.String("path", s.path), zap.Error(err))
	})
}

func (s *Session) refreshReadOnly() {
	s.readOnly = s.forceRO
	if s.readOnly {
		return
	}
	info, err := s.fs.Stat(s.path)
	if err == nil && info.IsReadOnly() {
		s.readOnly = true
	}
}

func (s *Session) record() {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Add(s.path); err != nil {
		s.log.Warn("could not update recent files", zap.String("path", s.path), zap.Error(err))
	}
}
