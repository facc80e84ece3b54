package vfs

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding is the character encoding of a stored text file.
type Encoding string

// Supported encodings.
const (
	EncodingUTF8    Encoding = "utf-8"
	EncodingUTF8BOM Encoding = "utf-8-bom"
	EncodingUTF16LE Encoding = "utf-16le" // with BOM; the format's native form
	EncodingUTF16BE Encoding = "utf-16be" // with BOM
	EncodingLatin1  Encoding = "iso-8859-1"
)

// LineEnding is the line break sequence of a stored text file.
type LineEnding string

// Supported line endings.
const (
	LineEndingLF   LineEnding = "lf"
	LineEndingCRLF LineEnding = "crlf"
	LineEndingCR   LineEnding = "cr"
)

var boms = []struct {
	enc Encoding
	bom []byte
}{
	{EncodingUTF8BOM, []byte{0xEF, 0xBB, 0xBF}},
	{EncodingUTF16LE, []byte{0xFF, 0xFE}},
	{EncodingUTF16BE, []byte{0xFE, 0xFF}},
}

// ParseEncoding parses an encoding name as used in configuration.
func ParseEncoding(s string) (Encoding, error) {
	switch e := Encoding(strings.ToLower(strings.TrimSpace(s))); e {
	case EncodingUTF8, EncodingUTF8BOM, EncodingUTF16LE, EncodingUTF16BE, EncodingLatin1:
		return e, nil
	case "utf8", "ascii":
		return EncodingUTF8, nil
	case "utf-16", "utf16", "unicode":
		return EncodingUTF16LE, nil
	case "latin1", "latin-1":
		return EncodingLatin1, nil
	default:
		return "", fmt.Errorf("unsupported encoding %q", s)
	}
}

// ParseLineEnding parses a line ending name as used in configuration.
func ParseLineEnding(s string) (LineEnding, error) {
	switch le := LineEnding(strings.ToLower(strings.TrimSpace(s))); le {
	case LineEndingLF, LineEndingCRLF, LineEndingCR:
		return le, nil
	default:
		return "", fmt.Errorf("unsupported line ending %q", s)
	}
}

// DetectEncoding guesses the encoding of raw content from its byte order
// mark. Content without one is UTF-8 when valid and Latin-1 otherwise,
// since Latin-1 accepts any byte.
func DetectEncoding(content []byte) Encoding {
	for _, b := range boms {
		if bytes.HasPrefix(content, b.bom) {
			return b.enc
		}
	}
	if utf8.Valid(content) {
		return EncodingUTF8
	}
	return EncodingLatin1
}

// DetectLineEnding returns the most frequent line ending in decoded text.
// Ties go to CRLF, then LF. Text without line breaks is LF.
func DetectLineEnding(text []byte) LineEnding {
	crlf := bytes.Count(text, []byte("\r\n"))
	cr := bytes.Count(text, []byte("\r")) - crlf
	lf := bytes.Count(text, []byte("\n")) - crlf

	switch {
	case crlf > 0 && crlf >= lf && crlf >= cr:
		return LineEndingCRLF
	case cr > lf:
		return LineEndingCR
	default:
		return LineEndingLF
	}
}

// toLF rewrites every CRLF and lone CR as LF.
func toLF(text []byte) []byte {
	text = bytes.ReplaceAll(text, []byte("\r\n"), []byte("\n"))
	return bytes.ReplaceAll(text, []byte("\r"), []byte("\n"))
}

// fromLF rewrites LF-only text to use ending.
func fromLF(text []byte, ending LineEnding) []byte {
	switch ending {
	case LineEndingCRLF:
		return bytes.ReplaceAll(text, []byte("\n"), []byte("\r\n"))
	case LineEndingCR:
		return bytes.ReplaceAll(text, []byte("\n"), []byte("\r"))
	default:
		return text
	}
}

// TextInfo describes how a text file was stored on disk.
type TextInfo struct {
	Encoding   Encoding
	LineEnding LineEnding
}

// Fit returns info unchanged when its encoding can hold every character
// of text, and otherwise info switched to UTF-16LE, which holds them all.
func (info TextInfo) Fit(text []byte) TextInfo {
	if info.Encoding != EncodingLatin1 {
		return info
	}
	for _, r := range string(text) {
		if _, ok := charmap.ISO8859_1.EncodeRune(r); !ok {
			info.Encoding = EncodingUTF16LE
			return info
		}
	}
	return info
}

// DecodeText converts raw file content to UTF-8 text with LF line endings.
// The returned TextInfo records what is needed to write it back unchanged.
func DecodeText(content []byte) ([]byte, TextInfo, error) {
	info := TextInfo{Encoding: DetectEncoding(content)}

	text, err := codecFor(info.Encoding).NewDecoder().Bytes(content)
	if err != nil {
		return nil, info, fmt.Errorf("decode %s: %w", info.Encoding, err)
	}

	info.LineEnding = DetectLineEnding(text)
	return toLF(text), info, nil
}

// EncodeText converts UTF-8 text with LF line endings to the stored form
// described by info. Empty fields mean UTF-8 and CRLF. Use Fit first when
// the text may hold characters the encoding cannot.
func EncodeText(text []byte, info TextInfo) ([]byte, error) {
	ending := info.LineEnding
	if ending == "" {
		ending = LineEndingCRLF
	}
	enc := info.Encoding
	if enc == "" {
		enc = EncodingUTF8
	}

	out, err := codecFor(enc).NewEncoder().Bytes(fromLF(toLF(text), ending))
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", enc, err)
	}
	return out, nil
}

// codecFor maps an Encoding to its x/text implementation. The UTF-16 and
// UTF-8-BOM codecs strip the BOM on decode and write it on encode.
func codecFor(e Encoding) encoding.Encoding {
	switch e {
	case EncodingUTF8BOM:
		return unicode.UTF8BOM
	case EncodingUTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)
	case EncodingUTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)
	case EncodingLatin1:
		return charmap.ISO8859_1
	default:
		return unicode.UTF8
	}
}
