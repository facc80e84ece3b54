package watcher

import (
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Config holds watcher configuration options.
type Config struct {
	// Debounce is how long a file must be quiet before its event is
	// delivered. Default: 200ms
	Debounce time.Duration

	// BufferSize is the size of the event and error channels.
	// Default: 16
	BufferSize int

	// Logger receives dropped-event and error reports.
	Logger *zap.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Debounce:   200 * time.Millisecond,
		BufferSize: 16,
		Logger:     zap.NewNop(),
	}
}

// Option configures a watcher.
type Option func(*Config)

// WithDebounce sets the debounce window.
func WithDebounce(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Debounce = d
		}
	}
}

// WithBufferSize sets the channel buffer size.
func WithBufferSize(size int) Option {
	return func(c *Config) {
		if size > 0 {
			c.BufferSize = size
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// Watcher watches individual files through fsnotify.
type Watcher struct {
	mu sync.Mutex

	fsw    *fsnotify.Watcher
	config Config
	log    *zap.Logger

	// files maps a watched file to its directory; dirs counts watched files
	// per directory.
	files map[string]string
	dirs  map[string]int

	pending map[string]*pendingEvent

	events chan Event
	errors chan error

	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

type pendingEvent struct {
	event Event
	timer *time.Timer
}

// New creates a watcher and starts its event loop. Close must be called to
// release it.
func New(opts ...Option) (*Watcher, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:     fsw,
		config:  config,
		log:     config.Logger,
		files:   make(map[string]string),
		dirs:    make(map[string]int),
		pending: make(map[string]*pendingEvent),
		events:  make(chan Event, config.BufferSize),
		errors:  make(chan error, config.BufferSize),
		closeCh: make(chan struct{}),
	}

	w.wg.Add(1)
	go w.processLoop()

	return w, nil
}

// Add starts watching the file at path. The file's directory must exist;
// the file itself may not exist yet.
func (w *Watcher) Add(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if _, ok := w.files[absPath]; ok {
		return ErrAlreadyWatching
	}

	dir := filepath.Dir(absPath)
	if w.dirs[dir] == 0 {
		if err := w.fsw.Add(dir); err != nil {
			return err
		}
	}
	w.dirs[dir]++
	w.files[absPath] = dir

	w.log.Debug("watching file", zap.String("path", absPath))
	return nil
}

// Remove stops watching the file at path.
func (w *Watcher) Remove(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	dir, ok := w.files[absPath]
	if !ok {
		return ErrNotWatching
	}

	delete(w.files, absPath)
	if p, ok := w.pending[absPath]; ok {
		p.timer.Stop()
		delete(w.pending, absPath)
	}

	w.dirs[dir]--
	if w.dirs[dir] == 0 {
		delete(w.dirs, dir)
		if err := w.fsw.Remove(dir); err != nil {
			return err
		}
	}
	return nil
}

// Files returns the watched files in sorted order.
func (w *Watcher) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	files := make([]string, 0, len(w.files))
	for f := range w.files {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// Events returns the channel of debounced events. It is closed by Close.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel of watcher errors. It is closed by Close.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Close stops the watcher. Pending events are discarded.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)

	for path, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	// Close fsnotify first so the loop is not left blocked on it.
	err := w.fsw.Close()
	w.wg.Wait()

	w.mu.Lock()
	close(w.events)
	close(w.errors)
	w.mu.Unlock()

	return err
}

// Flush delivers all pending events immediately.
func (w *Watcher) Flush() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path, p := range w.pending {
		p.timer.Stop()
		paths = append(paths, path)
	}
	w.mu.Unlock()

	for _, path := range paths {
		w.fire(path)
	}
}

func (w *Watcher) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case fsEvent, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(fsEvent)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
			w.sendError(err)
		}
	}
}

// handle queues an fsnotify event for a watched file, extending the
// debounce window if one is already pending.
func (w *Watcher) handle(fsEvent fsnotify.Event) {
	op := convertOp(fsEvent.Op)
	if op == 0 {
		return
	}

	path := filepath.Clean(fsEvent.Name)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if _, ok := w.files[path]; !ok {
		return
	}

	if p, ok := w.pending[path]; ok {
		p.event.Op |= op
		p.event.Timestamp = time.Now()
		p.timer.Reset(w.config.Debounce)
		return
	}

	p := &pendingEvent{event: Event{Path: path, Op: op, Timestamp: time.Now()}}
	p.timer = time.AfterFunc(w.config.Debounce, func() {
		w.fire(path)
	})
	w.pending[path] = p
}

func (w *Watcher) fire(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.pending[path]
	if !ok || w.closed {
		return
	}
	delete(w.pending, path)

	select {
	case w.events <- p.event:
	default:
		w.log.Warn("event channel full, dropping event",
			zap.String("path", path),
			zap.Stringer("op", p.event.Op),
		)
	}
}

func (w *Watcher) sendError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	select {
	case w.errors <- err:
	default:
	}
}

func convertOp(fsOp fsnotify.Op) Op {
	var op Op
	if fsOp.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if fsOp.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if fsOp.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if fsOp.Has(fsnotify.Rename) {
		op |= OpRename
	}
	if fsOp.Has(fsnotify.Chmod) {
		op |= OpChmod
	}
	return op
}
