package sheetimport

import (
	"bytes"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/notaria/backoffice/internal/domain/bulk"
)

// Format is the container format of an export
type Format string

const (
	FormatXLSX    Format = "xlsx"
	FormatXLS     Format = "xls"
	FormatXML     Format = "xml"
	FormatCSV     Format = "csv"
	FormatUnknown Format = ""
)

var (
	zipMagic  = []byte("PK\x03\x04")
	ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	utf8BOM   = []byte{0xEF, 0xBB, 0xBF}
)

// DetectFileType infers the export profile from keywords in the file name.
func DetectFileType(filename string) bulk.FileType {
	name := strings.ToUpper(filepath.Base(filename))
	name = strings.NewReplacer("-", " ", "_", " ", ".", " ").Replace(name)
	compact := strings.ReplaceAll(name, " ", "")

	switch {
	case strings.Contains(compact, "PORCOBRAR"):
		return bulk.FileTypePorCobrar
	case strings.Contains(compact, "CXC"):
		return bulk.FileTypeCXC
	}
	return bulk.FileTypeUnknown
}

// DetectFormat sniffs the content; the extension only breaks ties between text
// formats.
func DetectFormat(data []byte, filename string) Format {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return FormatXLSX
	case bytes.HasPrefix(data, ole2Magic):
		return FormatXLS
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	head = bytes.TrimPrefix(head, utf8BOM)
	trimmed := bytes.TrimLeft(head, " \t\r\n")
	if bytes.HasPrefix(trimmed, []byte("<")) {
		return FormatXML
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt", ".tsv":
		return FormatCSV
	case ".xml":
		return FormatXML
	}
	if len(trimmed) > 0 && looksLikeText(head) {
		return FormatCSV
	}
	return FormatUnknown
}

func looksLikeText(b []byte) bool {
	if bytes.IndexByte(b, 0) >= 0 {
		return false
	}
	// Latin-1 exports are not valid UTF-8 but are still text.
	return utf8.Valid(b) || bytes.ContainsAny(b, ",;\t")
}
