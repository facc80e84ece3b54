package definition

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dshills/sharedparams/internal/definition/notify"
	"github.com/dshills/sharedparams/internal/vfs"
)

var (
	errReentrant = errors.New("mutation started while another is in progress")
	errNoGroups  = errors.New("document has no groups to attach the parameter to")
	errIDReused  = errors.New("group id not above high-water mark")
)

// Document is a shared parameter definition document.
type Document struct {
	meta Meta
	text vfs.TextInfo

	groups []Group
	params []Parameter

	// highWater is the largest group id the document has ever held.
	highWater int

	dirty    bool
	busy     bool
	notifier *notify.Notifier
}

// Option configures a Document.
type Option func(*Document)

// WithMeta sets the format version.
func WithMeta(meta Meta) Option {
	return func(d *Document) {
		d.meta = meta
	}
}

// WithTextInfo sets the on-disk text encoding and line ending.
func WithTextInfo(info vfs.TextInfo) Option {
	return func(d *Document) {
		d.text = info
	}
}

// WithNotifier shares an existing notifier instead of creating one.
func WithNotifier(n *notify.Notifier) Option {
	return func(d *Document) {
		if n != nil {
			d.notifier = n
		}
	}
}

// New creates an empty, clean document. New files are UTF-16LE with CRLF
// line endings unless configured otherwise.
func New(opts ...Option) *Document {
	d := &Document{
		meta:     DefaultMeta(),
		text:     vfs.TextInfo{Encoding: vfs.EncodingUTF16LE, LineEnding: vfs.LineEndingCRLF},
		notifier: notify.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// FromParts builds a clean document from decoded groups and parameters,
// keeping their order and ids. It reports duplicate or non-positive group
// ids and parameters referencing absent groups as errors.
func FromParts(groups []Group, params []Parameter, opts ...Option) (*Document, error) {
	d := New(opts...)

	seen := make(map[int]bool, len(groups))
	for _, g := range groups {
		if g.ID <= 0 {
			return nil, &GroupError{ID: g.ID, Err: ErrInvalidGroupID}
		}
		if seen[g.ID] {
			return nil, &GroupError{ID: g.ID, Err: ErrDuplicateGroup}
		}
		seen[g.ID] = true
		if g.ID > d.highWater {
			d.highWater = g.ID
		}
	}
	for i, p := range params {
		if !seen[p.Group] {
			return nil, &ParameterError{Index: i, Name: p.Name, Err: &GroupError{ID: p.Group, Err: ErrUnknownGroup}}
		}
	}

	d.groups = append([]Group(nil), groups...)
	d.params = append([]Parameter(nil), params...)
	return d, nil
}

// Meta returns the format version.
func (d *Document) Meta() Meta {
	return d.meta
}

// TextInfo returns the encoding and line ending used when saving.
func (d *Document) TextInfo() vfs.TextInfo {
	return d.text
}

// SetTextInfo changes the encoding and line ending used when saving.
func (d *Document) SetTextInfo(info vfs.TextInfo) {
	d.text = info
}

// Groups returns a copy of the groups in document order.
func (d *Document) Groups() []Group {
	return append([]Group(nil), d.groups...)
}

// Parameters returns a copy of the parameters in document order.
func (d *Document) Parameters() []Parameter {
	return append([]Parameter(nil), d.params...)
}

// NumGroups returns the number of groups.
func (d *Document) NumGroups() int {
	return len(d.groups)
}

// NumParameters returns the number of parameters.
func (d *Document) NumParameters() int {
	return len(d.params)
}

// Group returns the group with the given id.
func (d *Document) Group(id int) (Group, bool) {
	if i := d.groupIndex(id); i >= 0 {
		return d.groups[i], true
	}
	return Group{}, false
}

// HasGroup reports whether a group with the given id exists.
func (d *Document) HasGroup(id int) bool {
	return d.groupIndex(id) >= 0
}

// Parameter returns the parameter at index i.
func (d *Document) Parameter(i int) (Parameter, bool) {
	if i < 0 || i >= len(d.params) {
		return Parameter{}, false
	}
	return d.params[i], true
}

// ParametersInGroup returns the parameters that belong to group id, in
// document order.
func (d *Document) ParametersInGroup(id int) []Parameter {
	var out []Parameter
	for _, p := range d.params {
		if p.Group == id {
			out = append(out, p)
		}
	}
	return out
}

// FindParameters returns the indexes of parameters with the given name.
func (d *Document) FindParameters(name string) []int {
	var out []int
	for i, p := range d.params {
		if p.Name == name {
			out = append(out, i)
		}
	}
	return out
}

// MinGroupID returns the numerically smallest group id.
func (d *Document) MinGroupID() (int, bool) {
	if len(d.groups) == 0 {
		return 0, false
	}
	lowest := d.groups[0].ID
	for _, g := range d.groups[1:] {
		if g.ID < lowest {
			lowest = g.ID
		}
	}
	return lowest, true
}

// Dirty reports whether the document has changed since it was loaded or
// last saved.
func (d *Document) Dirty() bool {
	return d.dirty
}

// MarkClean clears the dirty flag. The codec calls it after a successful
// save.
func (d *Document) MarkClean() {
	d.setDirty(false)
}

// Subscribe registers an observer for every document change.
func (d *Document) Subscribe(observer notify.Observer) *notify.Subscription {
	return d.notifier.Subscribe(observer)
}

// Notifier returns the document's change notifier.
func (d *Document) Notifier() *notify.Notifier {
	return d.notifier
}

// AddGroup appends a group named name with an id one above every id the
// document has held, and marks the document dirty. It never fails.
func (d *Document) AddGroup(name string) Group {
	defer d.begin("AddGroup")()

	g := Group{ID: d.highWater + 1, Name: name}
	if d.groupIndex(g.ID) >= 0 {
		panic(&InvariantError{Op: "AddGroup", Err: &GroupError{ID: g.ID, Err: errIDReused}})
	}

	d.groups = append(d.groups, g)
	d.highWater = g.ID
	d.mustValidate("AddGroup")

	d.notifier.Notify(notify.Change{Kind: notify.GroupAdded, Index: len(d.groups) - 1, Value: g, Dirty: true})
	d.setDirty(true)
	return g
}

// AddParameter appends p and marks the document dirty. A group reference
// of UnassignedGroup or less is repaired to the smallest group id present.
// A zero GUID is replaced with a new random one. It returns the parameter
// as stored.
//
// Adding a parameter when the document has no groups, or one that
// references a group id that does not exist, panics with *InvariantError.
func (d *Document) AddParameter(p Parameter) Parameter {
	defer d.begin("AddParameter")()

	if p.Group <= UnassignedGroup {
		lowest, ok := d.MinGroupID()
		if !ok {
			panic(&InvariantError{Op: "AddParameter", Err: &ParameterError{Index: len(d.params), Name: p.Name, Err: errNoGroups}})
		}
		p.Group = lowest
	}
	if d.groupIndex(p.Group) < 0 {
		panic(&InvariantError{Op: "AddParameter", Err: &ParameterError{
			Index: len(d.params),
			Name:  p.Name,
			Err:   &GroupError{ID: p.Group, Err: ErrUnknownGroup},
		}})
	}
	if p.GUID == uuid.Nil {
		p.GUID = uuid.New()
	}

	d.params = append(d.params, p)
	d.mustValidate("AddParameter")

	d.notifier.Notify(notify.Change{Kind: notify.ParameterAdded, Index: len(d.params) - 1, Value: p, Dirty: true})
	d.setDirty(true)
	return p
}

// RemoveParameter removes the parameter at index i.
func (d *Document) RemoveParameter(i int) (Parameter, error) {
	defer d.begin("RemoveParameter")()

	if i < 0 || i >= len(d.params) {
		return Parameter{}, &ParameterError{Index: i, Err: ErrParameterNotFound}
	}

	p := d.params[i]
	d.params = append(d.params[:i], d.params[i+1:]...)
	d.mustValidate("RemoveParameter")

	d.notifier.Notify(notify.Change{Kind: notify.ParameterRemoved, Index: i, Value: p, Dirty: true})
	d.setDirty(true)
	return p, nil
}

// RemoveGroup removes the group with the given id. Removal is rejected with
// ErrGroupInUse while any parameter still references the group; callers
// move or remove those parameters first (see ReassignGroup). The removed
// id is never handed out again.
func (d *Document) RemoveGroup(id int) error {
	defer d.begin("RemoveGroup")()

	i := d.groupIndex(id)
	if i < 0 {
		return &GroupError{ID: id, Err: ErrGroupNotFound}
	}
	for _, p := range d.params {
		if p.Group == id {
			return &GroupError{ID: id, Err: ErrGroupInUse}
		}
	}

	g := d.groups[i]
	d.groups = append(d.groups[:i], d.groups[i+1:]...)
	d.mustValidate("RemoveGroup")

	d.notifier.Notify(notify.Change{Kind: notify.GroupRemoved, Index: i, Value: g, Dirty: true})
	d.setDirty(true)
	return nil
}

// RenameGroup changes the name of the group with the given id. Names are
// not required to be unique.
func (d *Document) RenameGroup(id int, name string) error {
	defer d.begin("RenameGroup")()

	i := d.groupIndex(id)
	if i < 0 {
		return &GroupError{ID: id, Err: ErrGroupNotFound}
	}
	if d.groups[i].Name == name {
		return nil
	}

	d.groups[i].Name = name

	d.notifier.Notify(notify.Change{Kind: notify.GroupRenamed, Index: i, Value: d.groups[i], Dirty: true})
	d.setDirty(true)
	return nil
}

// ReassignGroup moves every parameter in group from to group to and
// returns how many moved.
func (d *Document) ReassignGroup(from, to int) (int, error) {
	defer d.begin("ReassignGroup")()

	if d.groupIndex(from) < 0 {
		return 0, &GroupError{ID: from, Err: ErrGroupNotFound}
	}
	if d.groupIndex(to) < 0 {
		return 0, &GroupError{ID: to, Err: ErrGroupNotFound}
	}
	if from == to {
		return 0, nil
	}

	var moved []int
	for i := range d.params {
		if d.params[i].Group == from {
			d.params[i].Group = to
			moved = append(moved, i)
		}
	}
	if len(moved) == 0 {
		return 0, nil
	}
	d.mustValidate("ReassignGroup")

	for _, i := range moved {
		d.notifier.Notify(notify.Change{Kind: notify.ParameterMoved, Index: i, Value: d.params[i], Dirty: true})
	}
	d.setDirty(true)
	return len(moved), nil
}

// Validate checks the document invariants and returns the first violation.
func (d *Document) Validate() error {
	seen := make(map[int]bool, len(d.groups))
	for _, g := range d.groups {
		if g.ID <= 0 {
			return &GroupError{ID: g.ID, Err: ErrInvalidGroupID}
		}
		if seen[g.ID] {
			return &GroupError{ID: g.ID, Err: ErrDuplicateGroup}
		}
		if g.ID > d.highWater {
			return &GroupError{ID: g.ID, Err: errIDReused}
		}
		seen[g.ID] = true
	}
	for i, p := range d.params {
		if !seen[p.Group] {
			return &ParameterError{Index: i, Name: p.Name, Err: &GroupError{ID: p.Group, Err: ErrUnknownGroup}}
		}
	}
	return nil
}

func (d *Document) mustValidate(op string) {
	if err := d.Validate(); err != nil {
		panic(&InvariantError{Op: op, Err: err})
	}
}

// begin marks the start of a mutation and returns the function that ends
// it. Observers run before the mutation ends, so a mutation triggered from
// an observer panics instead of interleaving with the one in progress.
func (d *Document) begin(op string) func() {
	if d.busy {
		panic(&InvariantError{Op: op, Err: errReentrant})
	}
	d.busy = true
	return func() { d.busy = false }
}

func (d *Document) setDirty(dirty bool) {
	if d.dirty == dirty {
		return
	}
	d.dirty = dirty
	d.notifier.Notify(notify.Change{Kind: notify.DirtyChanged, Index: -1, Dirty: dirty})
}

func (d *Document) groupIndex(id int) int {
	for i, g := range d.groups {
		if g.ID == id {
			return i
		}
	}
	return -1
}

// String returns a short summary for logs.
func (d *Document) String() string {
	return fmt.Sprintf("definition.Document{groups=%d parameters=%d dirty=%t}", len(d.groups), len(d.params), d.dirty)
}
