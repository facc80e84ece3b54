// Package codec reads and writes shared parameter definition files.
//
// A definition file is tab-separated text, one record per line. Lines
// starting with '#' are comments. A header line "*TAG\tCOL\tCOL..." declares
// the column order for the "TAG" records that follow it, which lets files
// written by older tools with fewer columns load. Three sections exist:
//
//	*META	VERSION	MINVERSION
//	META	2	1
//	*GROUP	ID	NAME
//	GROUP	1	Default
//	*PARAM	GUID	NAME	DATATYPE	DATACATEGORY	GROUP	VISIBLE	DESCRIPTION	USERMODIFIABLE	HIDEWHENNOEXISTINGVALUE
//	PARAM	5b9c...	Length	LENGTH		1	1		1	0
//
// Files are usually UTF-16LE with a byte order mark. The codec preserves
// the encoding and line ending of a loaded file when it is saved again.
package codec

// Section tags.
const (
	tagMeta  = "META"
	tagGroup = "GROUP"
	tagParam = "PARAM"
)

// Column names.
const (
	colVersion         = "VERSION"
	colMinVersion      = "MINVERSION"
	colID              = "ID"
	colName            = "NAME"
	colGUID            = "GUID"
	colDataType        = "DATATYPE"
	colDataCategory    = "DATACATEGORY"
	colGroup           = "GROUP"
	colVisible         = "VISIBLE"
	colDescription     = "DESCRIPTION"
	colUserModifiable  = "USERMODIFIABLE"
	colHideWhenNoValue = "HIDEWHENNOEXISTINGVALUE"
)

// section describes the columns a section may declare. Encode writes every
// column in this order.
type section struct {
	columns  []string
	required []string
}

var sections = map[string]section{
	tagMeta: {
		columns:  []string{colVersion, colMinVersion},
		required: []string{colVersion},
	},
	tagGroup: {
		columns:  []string{colID, colName},
		required: []string{colID, colName},
	},
	tagParam: {
		columns: []string{
			colGUID, colName, colDataType, colDataCategory, colGroup,
			colVisible, colDescription, colUserModifiable, colHideWhenNoValue,
		},
		required: []string{colGUID, colName, colDataType, colGroup},
	},
}

var fileBanner = []string{
	"# This is a Revit shared parameter file.",
	"# Do not edit manually.",
}

func (s section) knows(col string) bool {
	for _, c := range s.columns {
		if c == col {
			return true
		}
	}
	return false
}
