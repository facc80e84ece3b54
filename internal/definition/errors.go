package definition

import (
	"errors"
	"fmt"
)

// Standard errors returned by the definition package.
var (
	// ErrGroupNotFound indicates no group has the requested id.
	ErrGroupNotFound = errors.New("group not found")

	// ErrGroupInUse indicates a group still has parameters referencing it.
	ErrGroupInUse = errors.New("group has parameters")

	// ErrDuplicateGroup indicates two groups share an id.
	ErrDuplicateGroup = errors.New("duplicate group id")

	// ErrUnknownGroup indicates a parameter references an absent group.
	ErrUnknownGroup = errors.New("parameter references unknown group")

	// ErrInvalidGroupID indicates a group id that is not positive.
	ErrInvalidGroupID = errors.New("group id must be positive")

	// ErrParameterNotFound indicates a parameter index out of range.
	ErrParameterNotFound = errors.New("parameter not found")
)

// GroupError associates an error with a group id.
type GroupError struct {
	ID  int   // Group id
	Err error // Underlying error
}

// Error implements the error interface.
func (e *GroupError) Error() string {
	return fmt.Sprintf("group %d: %v", e.ID, e.Err)
}

// Unwrap returns the underlying error.
func (e *GroupError) Unwrap() error {
	return e.Err
}

// ParameterError associates an error with a parameter.
type ParameterError struct {
	Index int    // Position in the parameter sequence
	Name  string // Parameter name, when known
	Err   error  // Underlying error
}

// Error implements the error interface.
func (e *ParameterError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("parameter %d (%s): %v", e.Index, e.Name, e.Err)
	}
	return fmt.Sprintf("parameter %d: %v", e.Index, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParameterError) Unwrap() error {
	return e.Err
}

// InvariantError is the panic value raised when a mutation would leave the
// document with duplicate group ids, a dangling parameter reference, or a
// reused id. It signals a bug in the caller, not a runtime condition.
type InvariantError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("definition invariant violated in %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *InvariantError) Unwrap() error {
	return e.Err
}
