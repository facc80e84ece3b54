// Package merge folds a bundle of parameters from another source into a
// definition document.
//
// Every merge creates exactly one new group and moves each incoming
// parameter into it, so merged parameters never collide with the group
// layout of the target document. Merging the same bundle twice creates two
// groups.
package merge

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/dshills/sharedparams/internal/definition"
)

// DefaultGroupName is the name of the group a merge creates.
const DefaultGroupName = "Merged Parameters"

// Bundle is a read-only set of parameters to merge. Group references in
// the bundle are ignored.
type Bundle struct {
	Parameters []definition.Parameter
}

// Len returns the number of parameters in the bundle.
func (b Bundle) Len() int {
	return len(b.Parameters)
}

// Clone returns a bundle that shares no storage with b.
func (b Bundle) Clone() Bundle {
	if b.Parameters == nil {
		return Bundle{}
	}
	return Bundle{Parameters: append([]definition.Parameter(nil), b.Parameters...)}
}

// Result describes what a merge added.
type Result struct {
	Group definition.Group
	Added int
}

type options struct {
	groupName string
	logger    *zap.Logger
}

// Option configures a merge.
type Option func(*options)

// WithGroupName overrides the name of the created group. An empty name
// keeps the default.
func WithGroupName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.groupName = name
		}
	}
}

// WithLogger sets the logger used to report the merge.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Merge adds every parameter in bundle to doc under one newly created
// group. An empty bundle is a no-op and returns a zero Result. The bundle
// is not modified.
func Merge(doc *definition.Document, bundle Bundle, opts ...Option) (Result, error) {
	o := options{groupName: DefaultGroupName, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	if bundle.Len() == 0 {
		o.logger.Debug("merge skipped, empty bundle")
		return Result{}, nil
	}

	// Reject the whole bundle before touching the document.
	for i, p := range bundle.Parameters {
		if !p.Type.Valid() {
			return Result{}, &definition.ParameterError{
				Index: i,
				Name:  p.Name,
				Err:   fmt.Errorf("invalid parameter type %d", int(p.Type)),
			}
		}
	}

	group := doc.AddGroup(o.groupName)
	for _, p := range bundle.Parameters {
		p.Group = group.ID
		doc.AddParameter(p)
	}

	o.logger.Info("merged parameters",
		zap.Int("group", group.ID),
		zap.String("group_name", group.Name),
		zap.Int("count", bundle.Len()),
	)
	return Result{Group: group, Added: bundle.Len()}, nil
}
