// Package watcher reports external changes to open definition files.
//
// Editors and sync tools often replace a file by writing a temporary file
// and renaming it over the original, which drops a watch placed on the file
// itself. The watcher therefore watches each file's directory and filters
// events down to the files it was asked about. Rapid bursts of events for
// one file are coalesced into a single Event.
package watcher

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Common errors returned by watcher operations.
var (
	ErrWatcherClosed   = errors.New("watcher is closed")
	ErrAlreadyWatching = errors.New("file is already being watched")
	ErrNotWatching     = errors.New("file is not being watched")
)

// Op is a set of file system operations.
type Op uint32

const (
	// OpCreate indicates the file was created.
	OpCreate Op = 1 << iota
	// OpWrite indicates the file was written to.
	OpWrite
	// OpRemove indicates the file was removed.
	OpRemove
	// OpRename indicates the file was renamed away.
	OpRename
	// OpChmod indicates the file mode changed, which may toggle read-only.
	OpChmod
)

var opNames = []struct {
	op   Op
	name string
}{
	{OpCreate, "CREATE"},
	{OpWrite, "WRITE"},
	{OpRemove, "REMOVE"},
	{OpRename, "RENAME"},
	{OpChmod, "CHMOD"},
}

// String returns the operations joined with "|".
func (op Op) String() string {
	var parts []string
	for _, n := range opNames {
		if op.Has(n.op) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "UNKNOWN"
	}
	return strings.Join(parts, "|")
}

// Has returns true if the operation includes the given op.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// Gone reports whether the file no longer exists at its path.
func (op Op) Gone() bool {
	return op&(OpRemove|OpRename) != 0 && !op.Has(OpCreate)
}

// Event is a coalesced change to one watched file.
type Event struct {
	// Path is the absolute path of the watched file.
	Path string

	// Op is every operation seen during the debounce window.
	Op Op

	// Timestamp is when the last operation was seen.
	Timestamp time.Time
}

// Run delivers events from w to handle until ctx ends or w is closed.
// Errors are passed to onError when it is not nil.
func Run(ctx context.Context, w *Watcher, handle func(Event), onError func(error)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.Events():
			if !ok {
				return ErrWatcherClosed
			}
			handle(event)
		case err, ok := <-w.Errors():
			if !ok {
				return ErrWatcherClosed
			}
			if onError != nil {
				onError(err)
			}
		}
	}
}
