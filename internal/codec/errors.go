package codec

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrTargetExists indicates a save-as target already exists and
	// overwriting was not requested.
	ErrTargetExists = errors.New("target file already exists")

	// ErrInvalidField indicates a value that cannot be stored in a
	// tab-separated record.
	ErrInvalidField = errors.New("field contains tab or line break")
)

// FormatError reports malformed definition file content.
type FormatError struct {
	Path string // File path, empty for streams
	Line int    // 1-based line number, 0 when not tied to a line
	Msg  string // What was wrong
	Err  error  // Underlying error, may be nil
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	where := e.Path
	if where == "" {
		where = "<input>"
	}
	if e.Line > 0 {
		where = fmt.Sprintf("%s:%d", where, e.Line)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", where, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", where, e.Msg)
}

// Unwrap returns the underlying error.
func (e *FormatError) Unwrap() error {
	return e.Err
}

// IoError reports a read or write failure other than a permission denial.
type IoError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *IoError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *IoError) Unwrap() error {
	return e.Err
}

// PermissionError reports a write to a read-only file or a denied write.
type PermissionError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *PermissionError) Error() string {
	return fmt.Sprintf("%s %s: permission denied: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *PermissionError) Unwrap() error {
	return e.Err
}

// IsFormat reports whether err is or wraps a *FormatError.
func IsFormat(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// IsPermission reports whether err is or wraps a *PermissionError.
func IsPermission(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsIO reports whether err is or wraps an *IoError.
func IsIO(err error) bool {
	var ie *IoError
	return errors.As(err, &ie)
}

// ioFailure classifies a file system error as a permission or I/O failure.
func ioFailure(op, path string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return &PermissionError{Op: op, Path: path, Err: err}
	}
	return &IoError{Op: op, Path: path, Err: err}
}
