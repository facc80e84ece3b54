// Package definition is the in-memory model of a shared parameter
// definition file.
//
// A Document owns an ordered sequence of Groups and an ordered sequence of
// Parameters. Every Parameter references exactly one Group by id. The
// Document is the only place these sequences change, and each mutation
// method enforces the document invariants inline:
//
//   - group ids are unique
//   - every parameter's group id resolves to a live group
//   - a new group gets an id one above every id the document has seen
//
// A mutation that would break an invariant is a programming error and
// panics with an *InvariantError. Untrusted input (a file being decoded)
// goes through FromParts, which reports the same conditions as errors.
//
// Documents are not safe for concurrent use. Observers registered with
// Subscribe run synchronously inside the mutation and must not mutate the
// document themselves.
package definition

import "github.com/google/uuid"

// Group is a named bucket that parameters belong to.
type Group struct {
	ID   int
	Name string
}

// Parameter is a named, typed shared parameter definition.
type Parameter struct {
	GUID            uuid.UUID
	Name            string
	Type            ParameterType
	DataCategory    string
	Group           int
	Visible         bool
	Description     string
	UserModifiable  bool
	HideWhenNoValue bool
}

// UnassignedGroup is the highest group reference that means "no group
// chosen yet". AddParameter repairs such references.
const UnassignedGroup = 1

// Meta is the file format version recorded in the META section.
type Meta struct {
	Version    int
	MinVersion int
}

// DefaultMeta returns the format version written for new files.
func DefaultMeta() Meta {
	return Meta{Version: 2, MinVersion: 1}
}

// NewParameter returns a visible, user-modifiable parameter with a fresh
// GUID and an unassigned group.
func NewParameter(name string, typ ParameterType) Parameter {
	return Parameter{
		GUID:           uuid.New(),
		Name:           name,
		Type:           typ,
		Visible:        true,
		UserModifiable: true,
	}
}
