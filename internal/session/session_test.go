package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dshills/sharedparams/internal/codec"
	"github.com/dshills/sharedparams/internal/definition"
	"github.com/dshills/sharedparams/internal/definition/notify"
	"github.com/dshills/sharedparams/internal/merge"
	"github.com/dshills/sharedparams/internal/recent"
	"github.com/dshills/sharedparams/internal/vfs"
	"github.com/dshills/sharedparams/internal/watcher"
)

// setupTestFS writes a definition file with one group and one parameter.
func setupTestFS(t *testing.T, path string, mode os.FileMode) *vfs.MemFS {
	t.Helper()
	fsys := vfs.NewMemFS()

	doc := definition.New()
	doc.AddGroup("Default")
	doc.AddParameter(definition.NewParameter("Length", definition.TypeLength))
	data, err := codec.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if err := fsys.AddFile(path, data, mode); err != nil {
		t.Fatalf("AddFile failed: %v", err)
	}
	return fsys
}

type fakeRecorder struct {
	paths []string
	err   error
}

func (r *fakeRecorder) Add(path string) error {
	r.paths = append(r.paths, path)
	return r.err
}

func TestOpen(t *testing.T) {
	fsys := setupTestFS(t, "/defs/shared.txt", 0o644)
	rec := &fakeRecorder{}

	s, err := Open(fsys, "/defs/shared.txt", WithRecorder(rec))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if s.ReadOnly() {
		t.Error("writable file opened read-only")
	}
	if s.Dirty() || s.CanSave() {
		t.Error("fresh session should have nothing to save")
	}
	if s.Document().NumParameters() != 1 {
		t.Errorf("NumParameters() = %d, want 1", s.Document().NumParameters())
	}
	if len(rec.paths) != 1 || rec.paths[0] != "/defs/shared.txt" {
		t.Errorf("recorded %v", rec.paths)
	}
}

func TestOpen_FormatError(t *testing.T) {
	fsys := vfs.NewMemFS()
	_ = fsys.AddFile("/bad.txt", []byte("GROUP\t1\tX\n"), 0o644)
	rec := &fakeRecorder{}

	if _, err := Open(fsys, "/bad.txt", WithRecorder(rec)); !codec.IsFormat(err) {
		t.Errorf("Open error = %v, want *FormatError", err)
	}
	if len(rec.paths) != 0 {
		t.Error("failed open should not be recorded")
	}
}

func TestSession_Save(t *testing.T) {
	fsys := setupTestFS(t, "/shared.txt", 0o644)
	s, err := Open(fsys, "/shared.txt")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	s.Document().AddGroup("Extra")
	if !s.CanSave() {
		t.Fatal("dirty writable session should be savable")
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if s.Dirty() {
		t.Error("Save should clear dirty")
	}

	reloaded, err := codec.Load(fsys, "/shared.txt")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if reloaded.NumGroups() != 2 {
		t.Errorf("saved file has %d groups, want 2", reloaded.NumGroups())
	}
}

func TestSession_ReadOnlyThenSaveAs(t *testing.T) {
	fsys := setupTestFS(t, "/shared.txt", 0o444)
	rec := &fakeRecorder{}

	s, err := Open(fsys, "/shared.txt", WithRecorder(rec))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !s.ReadOnly() {
		t.Fatal("0444 file should open read-only")
	}

	s.Document().AddGroup("Extra")
	if s.CanSave() {
		t.Error("read-only session should not be savable")
	}
	if err := s.Save(); !codec.IsPermission(err) {
		t.Fatalf("Save error = %v, want *PermissionError", err)
	}
	if !s.Dirty() {
		t.Error("failed save should keep the document dirty")
	}

	if err := s.SaveAs("/copy_shared.txt", false); err != nil {
		t.Fatalf("SaveAs failed: %v", err)
	}
	if s.Dirty() || s.ReadOnly() {
		t.Errorf("after SaveAs dirty=%v readOnly=%v, want both false", s.Dirty(), s.ReadOnly())
	}
	if s.Path() != "/copy_shared.txt" {
		t.Errorf("Path() = %q", s.Path())
	}
	if len(rec.paths) != 2 || rec.paths[1] != "/copy_shared.txt" {
		t.Errorf("recorded %v", rec.paths)
	}
}

func TestSession_ForcedReadOnly(t *testing.T) {
	fsys := setupTestFS(t, "/shared.txt", 0o644)
	s, err := Open(fsys, "/shared.txt", WithReadOnly(true))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	s.Document().AddGroup("x")

	err = s.Save()
	if !codec.IsPermission(err) || !errors.Is(err, ErrReadOnly) {
		t.Errorf("Save error = %v, want permission error wrapping ErrReadOnly", err)
	}
}

func TestSession_ForcedReadOnlySaveAsSelf(t *testing.T) {
	fsys := setupTestFS(t, "/shared.txt", 0o644)
	before, _ := fsys.ReadFile("/shared.txt")

	s, err := Open(fsys, "/shared.txt", WithReadOnly(true))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	s.Document().AddGroup("x")

	err = s.SaveAs("/shared.txt", false)
	if !codec.IsPermission(err) || !errors.Is(err, ErrReadOnly) {
		t.Errorf("SaveAs error = %v, want permission error wrapping ErrReadOnly", err)
	}
	if err := s.SaveAs("/./shared.txt", true); !codec.IsPermission(err) {
		t.Errorf("SaveAs with overwrite error = %v, want permission error", err)
	}

	after, _ := fsys.ReadFile("/shared.txt")
	if string(before) != string(after) {
		t.Error("read-only file was overwritten")
	}
	if !s.ReadOnly() || !s.Dirty() {
		t.Errorf("ReadOnly = %v, Dirty = %v; want both true", s.ReadOnly(), s.Dirty())
	}
}

func TestSession_SaveAsExistingTarget(t *testing.T) {
	fsys := setupTestFS(t, "/shared.txt", 0o644)
	_ = fsys.AddFile("/taken.txt", []byte("x"), 0o644)

	s, err := Open(fsys, "/shared.txt")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.SaveAs("/taken.txt", false); !errors.Is(err, codec.ErrTargetExists) {
		t.Errorf("SaveAs error = %v, want ErrTargetExists", err)
	}
	if s.Path() != "/shared.txt" {
		t.Error("failed SaveAs should keep the original path")
	}
}

func TestNew(t *testing.T) {
	fsys := vfs.NewMemFS()
	info := vfs.TextInfo{Encoding: vfs.EncodingUTF8, LineEnding: vfs.LineEndingLF}

	s := New(fsys, "/new_shared.txt", WithTextInfo(info))
	if s.Document().TextInfo() != info {
		t.Errorf("TextInfo() = %+v", s.Document().TextInfo())
	}
	s.Document().AddGroup("Default")
	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !fsys.Exists("/new_shared.txt") {
		t.Error("file not written")
	}

	unnamed := New(fsys, "")
	if err := unnamed.Save(); !errors.Is(err, ErrNoPath) {
		t.Errorf("Save without path error = %v, want ErrNoPath", err)
	}
}

func TestSession_Merge(t *testing.T) {
	fsys := setupTestFS(t, "/shared.txt", 0o644)
	s, err := Open(fsys, "/shared.txt", WithMergeGroupName("Imported"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	res, err := s.Merge(merge.Bundle{Parameters: []definition.Parameter{
		definition.NewParameter("Width", definition.TypeLength),
	}})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if res.Group.Name != "Imported" || res.Added != 1 {
		t.Errorf("Result = %+v", res)
	}
	if !s.CanSave() {
		t.Error("merge should make the session savable")
	}
}

func TestSession_MergeFile(t *testing.T) {
	fsys := setupTestFS(t, "/shared.txt", 0o644)
	other := setupTestFS(t, "/other.txt", 0o644)
	data, _ := other.ReadFile("/other.txt")
	_ = fsys.AddFile("/other.txt", data, 0o644)

	s, err := Open(fsys, "/shared.txt")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	res, err := s.MergeFile("/other.txt")
	if err != nil {
		t.Fatalf("MergeFile failed: %v", err)
	}
	if res.Added != 1 || res.Group.ID != 2 {
		t.Errorf("Result = %+v", res)
	}
}

func TestSession_MergeFrom(t *testing.T) {
	defer goleak.VerifyNone(t)

	fsys := setupTestFS(t, "/shared.txt", 0o644)
	s, err := Open(fsys, "/shared.txt")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	h := merge.NewHandoff()
	go func() {
		_ = h.Send(merge.Bundle{Parameters: []definition.Parameter{definition.NewParameter("W", definition.TypeText)}})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	res, err := s.MergeFrom(ctx, h)
	if err != nil {
		t.Fatalf("MergeFrom failed: %v", err)
	}
	if res.Added != 1 {
		t.Errorf("Added = %d, want 1", res.Added)
	}
}

func TestSession_Reload(t *testing.T) {
	fsys := setupTestFS(t, "/shared.txt", 0o644)
	s, err := Open(fsys, "/shared.txt")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	s.Document().AddGroup("unsaved")
	if err := s.Reload(false); !errors.Is(err, ErrDirty) {
		t.Fatalf("Reload error = %v, want ErrDirty", err)
	}
	if err := s.Reload(true); err != nil {
		t.Fatalf("forced Reload failed: %v", err)
	}
	if s.Dirty() || s.Document().NumGroups() != 1 {
		t.Error("forced reload should discard changes")
	}
}

func TestSession_ReloadKeepsSubscribers(t *testing.T) {
	fsys := setupTestFS(t, "/shared.txt", 0o644)
	s, err := Open(fsys, "/shared.txt")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	var added []string
	s.Document().Subscribe(func(c notify.Change) {
		if g, ok := c.Value.(definition.Group); ok && c.Kind == notify.GroupAdded {
			added = append(added, g.Name)
		}
	})

	s.Document().AddGroup("before")
	if err := s.Reload(true); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	s.Document().AddGroup("after")

	if diff := cmp.Diff([]string{"before", "after"}, added); diff != "" {
		t.Errorf("added groups mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_LogsCommands(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	fsys := setupTestFS(t, "/shared.txt", 0o644)

	s, err := Open(fsys, "/shared.txt", WithLogger(zap.New(core)))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	s.Document().AddGroup("x")
	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	var commands []string
	for _, e := range logs.FilterMessage("command").All() {
		commands = append(commands, e.ContextMap()["command"].(string))
	}
	if len(commands) != 2 || commands[0] != "open" || commands[1] != "save" {
		t.Errorf("logged commands = %v, want [open save]", commands)
	}
}

func TestSession_WithRecentList(t *testing.T) {
	fsys := setupTestFS(t, "/defs/shared.txt", 0o644)
	list := recent.New(fsys, "/state/recent.yaml", recent.WithSharedFilter(true))

	if _, err := Open(fsys, "/defs/shared.txt", WithRecorder(list)); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	paths, err := list.Paths()
	if err != nil {
		t.Fatalf("Paths failed: %v", err)
	}
	if len(paths) != 1 || paths[0] != "/defs/shared.txt" {
		t.Errorf("Paths() = %v", paths)
	}
}

func TestSession_Watch(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "shared.txt")
	osfs := vfs.NewOSFS()

	doc := definition.New()
	doc.AddGroup("Default")
	if err := codec.Save(osfs, doc, "", path, false); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	s, err := Open(osfs, path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	w, err := watcher.New(watcher.WithDebounce(10 * time.Millisecond))
	if err != nil {
		t.Fatalf("watcher.New failed: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	changed := make(chan watcher.Event, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, w, func(ev watcher.Event) {
			select {
			case changed <- ev:
			default:
			}
			cancel()
		})
	}()

	// Give the watch time to register before writing.
	deadline := time.Now().Add(time.Second)
	for len(w.Files()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := os.WriteFile(path, []byte("changed"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Watch error = %v, want context.Canceled", err)
	}
	select {
	case ev := <-changed:
		if ev.Path != s.Path() {
			t.Errorf("event path = %q, want %q", ev.Path, s.Path())
		}
	default:
		t.Error("no change reported")
	}
}
