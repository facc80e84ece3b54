package codec

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/dshills/sharedparams/internal/definition"
	"github.com/dshills/sharedparams/internal/vfs"
)

// Decode reads a definition document from r. The returned document is
// clean and remembers the encoding and line ending of the input.
func Decode(r io.Reader) (*definition.Document, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, &IoError{Op: "read", Path: "<input>", Err: err}
	}
	return Unmarshal(content)
}

// Unmarshal parses raw definition file content.
func Unmarshal(content []byte) (*definition.Document, error) {
	return decode("", content)
}

func decode(path string, content []byte, opts ...definition.Option) (*definition.Document, error) {
	text, info, err := vfs.DecodeText(content)
	if err != nil {
		return nil, &FormatError{Path: path, Msg: "cannot decode text", Err: err}
	}

	d := &decoder{
		path:       path,
		headers:    make(map[string]map[string]int),
		groupLines: make(map[int]int),
	}
	for i, line := range strings.Split(string(text), "\n") {
		if err := d.line(i+1, line); err != nil {
			return nil, err
		}
	}
	return d.document(info, opts)
}

type decoder struct {
	path    string
	headers map[string]map[string]int

	meta       *definition.Meta
	groups     []definition.Group
	groupLines map[int]int
	params     []definition.Parameter
	paramLines []int
}

// record is one data line with the column layout of its section.
type record struct {
	line   int
	values []string
	cols   map[string]int
}

func (r record) get(col string) (string, bool) {
	i, ok := r.cols[col]
	if !ok || i >= len(r.values) {
		return "", false
	}
	return r.values[i], true
}

func (d *decoder) errorf(line int, format string, args ...any) error {
	return &FormatError{Path: d.path, Line: line, Msg: fmt.Sprintf(format, args...)}
}

func (d *decoder) line(n int, line string) error {
	if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	fields := strings.Split(line, "\t")
	tag := strings.TrimSpace(fields[0])

	if strings.HasPrefix(tag, "*") {
		return d.header(n, strings.TrimPrefix(tag, "*"), fields[1:])
	}

	if _, known := sections[tag]; !known {
		return d.errorf(n, "unknown record type %q", tag)
	}
	cols, ok := d.headers[tag]
	if !ok {
		return d.errorf(n, "%s record before its header", tag)
	}
	if len(fields)-1 > len(cols) {
		return d.errorf(n, "%s record has %d fields, header declares %d", tag, len(fields)-1, len(cols))
	}

	rec := record{line: n, values: fields[1:], cols: cols}
	switch tag {
	case tagMeta:
		return d.metaRecord(rec)
	case tagGroup:
		return d.groupRecord(rec)
	default:
		return d.paramRecord(rec)
	}
}

func (d *decoder) header(n int, tag string, columns []string) error {
	sec, ok := sections[tag]
	if !ok {
		return d.errorf(n, "unknown section %q", tag)
	}
	if _, dup := d.headers[tag]; dup {
		return d.errorf(n, "duplicate %s header", tag)
	}

	cols := make(map[string]int, len(columns))
	for i, c := range columns {
		c = strings.ToUpper(strings.TrimSpace(c))
		if !sec.knows(c) {
			return d.errorf(n, "unknown %s column %q", tag, c)
		}
		if _, dup := cols[c]; dup {
			return d.errorf(n, "duplicate %s column %q", tag, c)
		}
		cols[c] = i
	}
	for _, c := range sec.required {
		if _, ok := cols[c]; !ok {
			return d.errorf(n, "%s header is missing column %s", tag, c)
		}
	}

	d.headers[tag] = cols
	return nil
}

func (d *decoder) metaRecord(rec record) error {
	if d.meta != nil {
		return d.errorf(rec.line, "duplicate META record")
	}
	version, err := d.intField(rec, colVersion, 0)
	if err != nil {
		return err
	}
	minVersion, err := d.intField(rec, colMinVersion, 0)
	if err != nil {
		return err
	}
	d.meta = &definition.Meta{Version: version, MinVersion: minVersion}
	return nil
}

func (d *decoder) groupRecord(rec record) error {
	id, err := d.intField(rec, colID, 0)
	if err != nil {
		return err
	}
	if id <= 0 {
		return &FormatError{Path: d.path, Line: rec.line, Msg: fmt.Sprintf("group id %d", id), Err: definition.ErrInvalidGroupID}
	}
	if first, dup := d.groupLines[id]; dup {
		return &FormatError{
			Path: d.path,
			Line: rec.line,
			Msg:  fmt.Sprintf("group id %d already declared on line %d", id, first),
			Err:  definition.ErrDuplicateGroup,
		}
	}

	name, _ := rec.get(colName)
	d.groups = append(d.groups, definition.Group{ID: id, Name: name})
	d.groupLines[id] = rec.line
	return nil
}

func (d *decoder) paramRecord(rec record) error {
	raw, _ := rec.get(colGUID)
	guid, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return &FormatError{Path: d.path, Line: rec.line, Msg: fmt.Sprintf("invalid GUID %q", raw), Err: err}
	}

	raw, _ = rec.get(colDataType)
	typ, err := definition.ParseType(raw)
	if err != nil {
		return &FormatError{Path: d.path, Line: rec.line, Msg: "invalid DATATYPE", Err: err}
	}

	group, err := d.intField(rec, colGroup, 0)
	if err != nil {
		return err
	}
	visible, err := d.boolField(rec, colVisible, true)
	if err != nil {
		return err
	}
	modifiable, err := d.boolField(rec, colUserModifiable, true)
	if err != nil {
		return err
	}
	hide, err := d.boolField(rec, colHideWhenNoValue, false)
	if err != nil {
		return err
	}

	name, _ := rec.get(colName)
	category, _ := rec.get(colDataCategory)
	description, _ := rec.get(colDescription)

	d.params = append(d.params, definition.Parameter{
		GUID:            guid,
		Name:            name,
		Type:            typ,
		DataCategory:    category,
		Group:           group,
		Visible:         visible,
		Description:     description,
		UserModifiable:  modifiable,
		HideWhenNoValue: hide,
	})
	d.paramLines = append(d.paramLines, rec.line)
	return nil
}

func (d *decoder) intField(rec record, col string, def int) (int, error) {
	raw, ok := rec.get(col)
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &FormatError{Path: d.path, Line: rec.line, Msg: fmt.Sprintf("invalid %s %q", col, raw), Err: err}
	}
	return v, nil
}

func (d *decoder) boolField(rec record, col string, def bool) (bool, error) {
	raw, ok := rec.get(col)
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return def, nil
	}
	switch raw {
	case "1":
		return true, nil
	case "0":
		return false, nil
	}
	return false, d.errorf(rec.line, "invalid %s %q, want 0 or 1", col, raw)
}

func (d *decoder) document(info vfs.TextInfo, opts []definition.Option) (*definition.Document, error) {
	for i, p := range d.params {
		if _, ok := d.groupLines[p.Group]; !ok {
			return nil, &FormatError{
				Path: d.path,
				Line: d.paramLines[i],
				Msg:  fmt.Sprintf("parameter %q references group %d", p.Name, p.Group),
				Err:  definition.ErrUnknownGroup,
			}
		}
	}

	meta := definition.DefaultMeta()
	if d.meta != nil {
		meta = *d.meta
	}

	opts = append([]definition.Option{
		definition.WithMeta(meta),
		definition.WithTextInfo(info),
	}, opts...)
	doc, err := definition.FromParts(d.groups, d.params, opts...)
	if err != nil {
		return nil, &FormatError{Path: d.path, Msg: "inconsistent document", Err: err}
	}
	return doc, nil
}
