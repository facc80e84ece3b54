package codec

import (
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/dshills/sharedparams/internal/definition"
	"github.com/dshills/sharedparams/internal/vfs"
)

// Load reads and parses the definition file at path. On any error no
// document is returned. opts are applied after the parsed meta and text
// info, so they may override either.
func Load(fsys vfs.VFS, path string, opts ...definition.Option) (*definition.Document, error) {
	content, err := fsys.ReadFile(path)
	if err != nil {
		return nil, ioFailure("load", path, err)
	}
	return decode(path, content, opts...)
}

// Save writes doc to target, or to origin when target is empty.
//
// Writing over origin fails with *PermissionError when origin is read-only.
// Writing to a different target that already exists fails with *IoError
// wrapping ErrTargetExists unless overwrite is set; origin is never
// touched in that case. The document is marked clean only when the write
// succeeds. When the document's encoding cannot hold its text, the file is
// written as UTF-16LE and the document adopts that encoding.
func Save(fsys vfs.VFS, doc *definition.Document, origin, target string, overwrite bool) error {
	if target == "" {
		target = origin
	}
	if target == "" {
		return &IoError{Op: "save", Err: errors.New("no file name")}
	}

	toOrigin := origin != "" && samePath(fsys, origin, target)
	if toOrigin {
		info, err := fsys.Stat(target)
		switch {
		case err == nil && info.IsReadOnly():
			return &PermissionError{Op: "save", Path: target, Err: fs.ErrPermission}
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return ioFailure("save", target, err)
		}
	} else if !overwrite && fsys.Exists(target) {
		return &IoError{Op: "save", Path: target, Err: ErrTargetExists}
	}

	data, info, err := marshal(doc)
	if err != nil {
		return &FormatError{Path: target, Msg: "cannot encode document", Err: err}
	}

	if err := fsys.WriteFile(target, data, 0o644); err != nil {
		return ioFailure("save", target, err)
	}

	doc.SetTextInfo(info)
	doc.MarkClean()
	return nil
}

func samePath(fsys vfs.VFS, a, b string) bool {
	absA, errA := fsys.Abs(a)
	absB, errB := fsys.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
