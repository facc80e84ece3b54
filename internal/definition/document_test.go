package definition

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/dshills/sharedparams/internal/definition/notify"
)

func newTestDocument(t *testing.T, groups ...string) *Document {
	t.Helper()
	doc := New()
	for _, name := range groups {
		doc.AddGroup(name)
	}
	doc.MarkClean()
	return doc
}

func expectInvariantPanic(t *testing.T, fn func()) *InvariantError {
	t.Helper()
	var got *InvariantError
	func() {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			ie, ok := r.(*InvariantError)
			if !ok {
				t.Fatalf("panic value = %T (%v), want *InvariantError", r, r)
			}
			got = ie
		}()
		fn()
	}()
	if got == nil {
		t.Fatal("expected panic with *InvariantError")
	}
	return got
}

func TestNew(t *testing.T) {
	doc := New()

	if doc.Dirty() {
		t.Error("new document should not be dirty")
	}
	if doc.NumGroups() != 0 || doc.NumParameters() != 0 {
		t.Errorf("new document has %d groups and %d parameters", doc.NumGroups(), doc.NumParameters())
	}
	if doc.Meta() != DefaultMeta() {
		t.Errorf("Meta() = %+v, want %+v", doc.Meta(), DefaultMeta())
	}
}

func TestDocument_AddGroup(t *testing.T) {
	doc := New()

	a := doc.AddGroup("Walls")
	b := doc.AddGroup("Doors")

	if a.ID != 1 || b.ID != 2 {
		t.Errorf("ids = %d, %d; want 1, 2", a.ID, b.ID)
	}
	if !doc.Dirty() {
		t.Error("document should be dirty after AddGroup")
	}

	want := []Group{{ID: 1, Name: "Walls"}, {ID: 2, Name: "Doors"}}
	if diff := cmp.Diff(want, doc.Groups()); diff != "" {
		t.Errorf("Groups() mismatch (-want +got):\n%s", diff)
	}
}

func TestDocument_AddGroup_IDsStrictlyIncrease(t *testing.T) {
	doc, err := FromParts([]Group{{ID: 9, Name: "a"}, {ID: 3, Name: "b"}}, nil)
	if err != nil {
		t.Fatalf("FromParts failed: %v", err)
	}

	g := doc.AddGroup("c")
	if g.ID != 10 {
		t.Errorf("new id = %d, want 10", g.ID)
	}

	// Removing the highest group must not let its id come back.
	if err := doc.RemoveGroup(10); err != nil {
		t.Fatalf("RemoveGroup failed: %v", err)
	}
	if err := doc.RemoveGroup(9); err != nil {
		t.Fatalf("RemoveGroup failed: %v", err)
	}
	g = doc.AddGroup("d")
	if g.ID != 11 {
		t.Errorf("id after removals = %d, want 11", g.ID)
	}
}

func TestDocument_AddGroup_DuplicateNames(t *testing.T) {
	doc := New()
	a := doc.AddGroup("Same")
	b := doc.AddGroup("Same")

	if a.ID == b.ID {
		t.Errorf("groups with the same name got the same id %d", a.ID)
	}
}

func TestDocument_AddParameter(t *testing.T) {
	doc := newTestDocument(t, "General")

	p := NewParameter("Width", TypeLength)
	p.Group = 1
	got := doc.AddParameter(p)

	if got != p {
		t.Errorf("AddParameter() = %+v, want %+v", got, p)
	}
	if doc.NumParameters() != 1 {
		t.Errorf("NumParameters() = %d, want 1", doc.NumParameters())
	}
	if !doc.Dirty() {
		t.Error("document should be dirty after AddParameter")
	}
}

func TestDocument_AddParameter_RepairsUnassignedGroup(t *testing.T) {
	doc, err := FromParts([]Group{{ID: 5, Name: "b"}, {ID: 2, Name: "a"}, {ID: 9, Name: "c"}}, nil)
	if err != nil {
		t.Fatalf("FromParts failed: %v", err)
	}

	for _, ref := range []int{1, 0, -4} {
		p := NewParameter("P", TypeText)
		p.Group = ref
		got := doc.AddParameter(p)
		if got.Group != 2 {
			t.Errorf("group ref %d repaired to %d, want 2", ref, got.Group)
		}
	}
}

func TestDocument_AddParameter_KeepsGroupOneWhenItIsTheMinimum(t *testing.T) {
	doc := newTestDocument(t, "first", "second")

	p := NewParameter("P", TypeText)
	p.Group = 1
	if got := doc.AddParameter(p); got.Group != 1 {
		t.Errorf("Group = %d, want 1", got.Group)
	}
}

func TestDocument_AddParameter_AssignsGUID(t *testing.T) {
	doc := newTestDocument(t, "g")

	got := doc.AddParameter(Parameter{Name: "NoGUID", Group: 1})
	if got.GUID == uuid.Nil {
		t.Error("zero GUID should be replaced")
	}
}

func TestDocument_AddParameter_UnknownGroupPanics(t *testing.T) {
	doc := newTestDocument(t, "g")

	ie := expectInvariantPanic(t, func() {
		doc.AddParameter(Parameter{Name: "Bad", Group: 42})
	})

	if !errors.Is(ie, ErrUnknownGroup) {
		t.Errorf("panic error = %v, want ErrUnknownGroup", ie)
	}
	if doc.NumParameters() != 0 {
		t.Error("failed add should not change the document")
	}
	if doc.Dirty() {
		t.Error("failed add should not mark the document dirty")
	}
}

func TestDocument_AddParameter_NoGroupsPanics(t *testing.T) {
	doc := New()

	ie := expectInvariantPanic(t, func() {
		doc.AddParameter(NewParameter("Orphan", TypeText))
	})
	if ie.Op != "AddParameter" {
		t.Errorf("Op = %q, want AddParameter", ie.Op)
	}
}

func TestDocument_RemoveParameter(t *testing.T) {
	doc := newTestDocument(t, "g")
	a := doc.AddParameter(Parameter{Name: "A", Group: 1})
	b := doc.AddParameter(Parameter{Name: "B", Group: 1})
	doc.MarkClean()

	removed, err := doc.RemoveParameter(0)
	if err != nil {
		t.Fatalf("RemoveParameter failed: %v", err)
	}
	if removed != a {
		t.Errorf("removed = %+v, want %+v", removed, a)
	}
	if diff := cmp.Diff([]Parameter{b}, doc.Parameters()); diff != "" {
		t.Errorf("Parameters() mismatch (-want +got):\n%s", diff)
	}
	if !doc.Dirty() {
		t.Error("document should be dirty after RemoveParameter")
	}

	if _, err := doc.RemoveParameter(5); !errors.Is(err, ErrParameterNotFound) {
		t.Errorf("RemoveParameter(5) error = %v, want ErrParameterNotFound", err)
	}
}

func TestDocument_RemoveGroup(t *testing.T) {
	doc := newTestDocument(t, "used", "empty")
	doc.AddParameter(Parameter{Name: "A", Group: 1})

	err := doc.RemoveGroup(1)
	if !errors.Is(err, ErrGroupInUse) {
		t.Errorf("RemoveGroup(used) error = %v, want ErrGroupInUse", err)
	}
	if !doc.HasGroup(1) {
		t.Error("rejected removal should keep the group")
	}

	if err := doc.RemoveGroup(2); err != nil {
		t.Errorf("RemoveGroup(empty) failed: %v", err)
	}
	if doc.HasGroup(2) {
		t.Error("group 2 should be gone")
	}

	if err := doc.RemoveGroup(7); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("RemoveGroup(7) error = %v, want ErrGroupNotFound", err)
	}
}

func TestDocument_ReassignGroup(t *testing.T) {
	doc := newTestDocument(t, "from", "to")
	doc.AddParameter(Parameter{Name: "A", Group: 1})
	doc.AddParameter(Parameter{Name: "B", Group: 2})
	doc.AddParameter(Parameter{Name: "C", Group: 1})

	n, err := doc.ReassignGroup(1, 2)
	if err != nil {
		t.Fatalf("ReassignGroup failed: %v", err)
	}
	if n != 2 {
		t.Errorf("moved %d, want 2", n)
	}
	if len(doc.ParametersInGroup(2)) != 3 {
		t.Errorf("group 2 has %d parameters, want 3", len(doc.ParametersInGroup(2)))
	}
	if err := doc.RemoveGroup(1); err != nil {
		t.Errorf("RemoveGroup after reassign failed: %v", err)
	}

	if _, err := doc.ReassignGroup(2, 99); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("ReassignGroup to missing group error = %v, want ErrGroupNotFound", err)
	}
}

func TestDocument_RenameGroup(t *testing.T) {
	doc := newTestDocument(t, "old")

	if err := doc.RenameGroup(1, "new"); err != nil {
		t.Fatalf("RenameGroup failed: %v", err)
	}
	g, _ := doc.Group(1)
	if g.Name != "new" {
		t.Errorf("Name = %q, want %q", g.Name, "new")
	}
	if !doc.Dirty() {
		t.Error("document should be dirty after RenameGroup")
	}
	if err := doc.RenameGroup(3, "x"); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("RenameGroup(3) error = %v, want ErrGroupNotFound", err)
	}
}

func TestDocument_FindParameters(t *testing.T) {
	doc := newTestDocument(t, "g")
	doc.AddParameter(Parameter{Name: "Width", Group: 1})
	doc.AddParameter(Parameter{Name: "Height", Group: 1})
	doc.AddParameter(Parameter{Name: "Width", Group: 1})

	if diff := cmp.Diff([]int{0, 2}, doc.FindParameters("Width")); diff != "" {
		t.Errorf("FindParameters mismatch (-want +got):\n%s", diff)
	}
	if got := doc.FindParameters("Depth"); len(got) != 0 {
		t.Errorf("FindParameters(Depth) = %v, want none", got)
	}
}

func TestDocument_AccessorsReturnCopies(t *testing.T) {
	doc := newTestDocument(t, "g")
	doc.AddParameter(Parameter{Name: "A", Group: 1})

	groups := doc.Groups()
	groups[0].Name = "changed"
	params := doc.Parameters()
	params[0].Group = 99

	if g, _ := doc.Group(1); g.Name != "g" {
		t.Error("mutating Groups() result changed the document")
	}
	if err := doc.Validate(); err != nil {
		t.Errorf("mutating Parameters() result changed the document: %v", err)
	}
}

func TestFromParts(t *testing.T) {
	groups := []Group{{ID: 4, Name: "x"}, {ID: 2, Name: "y"}}
	params := []Parameter{{Name: "A", Group: 2}, {Name: "B", Group: 4}}

	doc, err := FromParts(groups, params, WithMeta(Meta{Version: 3, MinVersion: 1}))
	if err != nil {
		t.Fatalf("FromParts failed: %v", err)
	}
	if doc.Dirty() {
		t.Error("FromParts document should be clean")
	}
	if diff := cmp.Diff(groups, doc.Groups()); diff != "" {
		t.Errorf("Groups() mismatch (-want +got):\n%s", diff)
	}
	if doc.Meta().Version != 3 {
		t.Errorf("Meta().Version = %d, want 3", doc.Meta().Version)
	}
}

func TestFromParts_Errors(t *testing.T) {
	tests := []struct {
		name   string
		groups []Group
		params []Parameter
		want   error
	}{
		{"duplicate group", []Group{{ID: 1}, {ID: 1}}, nil, ErrDuplicateGroup},
		{"zero id", []Group{{ID: 0}}, nil, ErrInvalidGroupID},
		{"dangling parameter", []Group{{ID: 1}}, []Parameter{{Name: "A", Group: 2}}, ErrUnknownGroup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromParts(tt.groups, tt.params)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDocument_Notifications(t *testing.T) {
	doc := New()

	var kinds []notify.Kind
	doc.Subscribe(func(c notify.Change) {
		kinds = append(kinds, c.Kind)
	})

	doc.AddGroup("g")
	doc.AddParameter(Parameter{Name: "A", Group: 1})
	doc.MarkClean()
	if _, err := doc.RemoveParameter(0); err != nil {
		t.Fatalf("RemoveParameter failed: %v", err)
	}

	want := []notify.Kind{
		notify.GroupAdded,
		notify.DirtyChanged,
		notify.ParameterAdded,
		notify.DirtyChanged,
		notify.ParameterRemoved,
		notify.DirtyChanged,
	}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("notification kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestDocument_ReentrantMutationPanics(t *testing.T) {
	doc := New()
	doc.Subscribe(func(c notify.Change) {
		if c.Kind == notify.GroupAdded {
			doc.AddGroup("nested")
		}
	})

	ie := expectInvariantPanic(t, func() {
		doc.AddGroup("outer")
	})
	if ie.Op != "AddGroup" {
		t.Errorf("Op = %q, want AddGroup", ie.Op)
	}

	if doc.NumGroups() != 1 {
		t.Errorf("NumGroups() = %d, want 1", doc.NumGroups())
	}

	// The guard is released after the panic.
	doc.Notifier().Len()
	if err := doc.RenameGroup(1, "renamed"); err != nil {
		t.Errorf("RenameGroup after panic failed: %v", err)
	}
}

func TestDocument_ObserverMayRead(t *testing.T) {
	doc := New()

	var seen int
	doc.Subscribe(func(c notify.Change) {
		if c.Kind == notify.GroupAdded {
			seen = doc.NumGroups()
		}
	})
	doc.AddGroup("g")

	if seen != 1 {
		t.Errorf("observer saw %d groups, want 1", seen)
	}
}
