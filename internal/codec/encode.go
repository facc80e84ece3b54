package codec

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dshills/sharedparams/internal/definition"
	"github.com/dshills/sharedparams/internal/vfs"
)

// Encode writes doc to w in the document's text encoding and line ending.
func Encode(w io.Writer, doc *definition.Document) error {
	data, err := Marshal(doc)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return &IoError{Op: "write", Path: "<output>", Err: err}
	}
	return nil
}

// Marshal renders doc as stored file content. Sections are written in the
// order META, GROUP, PARAM with the full column layout. Text the document's
// encoding cannot hold is written as UTF-16LE instead.
func Marshal(doc *definition.Document) ([]byte, error) {
	data, _, err := marshal(doc)
	return data, err
}

// marshal is Marshal that also returns the text info actually used.
func marshal(doc *definition.Document) ([]byte, vfs.TextInfo, error) {
	var b strings.Builder

	for _, line := range fileBanner {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	meta := doc.Meta()
	writeHeader(&b, tagMeta)
	writeRecord(&b, tagMeta, strconv.Itoa(meta.Version), strconv.Itoa(meta.MinVersion))

	writeHeader(&b, tagGroup)
	for _, g := range doc.Groups() {
		if err := checkField(g.Name); err != nil {
			return nil, vfs.TextInfo{}, fmt.Errorf("group %d name: %w", g.ID, err)
		}
		writeRecord(&b, tagGroup, strconv.Itoa(g.ID), g.Name)
	}

	writeHeader(&b, tagParam)
	for i, p := range doc.Parameters() {
		for _, v := range []string{p.Name, p.DataCategory, p.Description} {
			if err := checkField(v); err != nil {
				return nil, vfs.TextInfo{}, &definition.ParameterError{Index: i, Name: p.Name, Err: err}
			}
		}
		if !p.Type.Valid() {
			return nil, vfs.TextInfo{}, &definition.ParameterError{Index: i, Name: p.Name, Err: fmt.Errorf("invalid type %d", int(p.Type))}
		}
		writeRecord(&b, tagParam,
			p.GUID.String(),
			p.Name,
			p.Type.String(),
			p.DataCategory,
			strconv.Itoa(p.Group),
			formatBool(p.Visible),
			p.Description,
			formatBool(p.UserModifiable),
			formatBool(p.HideWhenNoValue),
		)
	}

	text := []byte(b.String())
	info := doc.TextInfo().Fit(text)
	out, err := vfs.EncodeText(text, info)
	if err != nil {
		return nil, info, fmt.Errorf("encode definition file: %w", err)
	}
	return out, info, nil
}

func writeHeader(b *strings.Builder, tag string) {
	b.WriteByte('*')
	b.WriteString(tag)
	for _, c := range sections[tag].columns {
		b.WriteByte('\t')
		b.WriteString(c)
	}
	b.WriteByte('\n')
}

func writeRecord(b *strings.Builder, tag string, values ...string) {
	b.WriteString(tag)
	for _, v := range values {
		b.WriteByte('\t')
		b.WriteString(v)
	}
	b.WriteByte('\n')
}

func formatBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func checkField(v string) error {
	if strings.ContainsAny(v, "\t\r\n") {
		return ErrInvalidField
	}
	return nil
}
