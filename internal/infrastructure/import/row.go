package sheetimport

import (
	"strings"
	"unicode/utf8"
)

// headerScanLimit is how many leading rows are searched for the header row
const headerScanLimit = 20

// Row represents a parsed row with its data and line number.
// Data keys are lower-cased, trimmed header names.
type Row struct {
	LineNumber int
	Data       map[string]string
	RawFields  []string
}

// Get returns the value for a column by header name
func (r *Row) Get(header string) string {
	return r.Data[NormalizeHeader(header)]
}

// GetOrDefault returns the value for a column, or default if not present
func (r *Row) GetOrDefault(header, defaultVal string) string {
	if val, ok := r.Data[NormalizeHeader(header)]; ok && val != "" {
		return val
	}
	return defaultVal
}

// IsEmpty returns true if the row has no non-empty values
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// Table is the first sheet (or record list) of an export
type Table struct {
	Format  Format
	Headers []string
	Rows    []*Row
}

// HasColumn checks if a header exists
func (t *Table) HasColumn(name string) bool {
	name = NormalizeHeader(name)
	for _, h := range t.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// MissingColumns returns the required headers absent from the table
func (t *Table) MissingColumns(required ...string) []string {
	var missing []string
	for _, h := range required {
		if !t.HasColumn(h) {
			missing = append(missing, NormalizeHeader(h))
		}
	}
	return missing
}

// NormalizeHeader lower-cases and trims a header name
func NormalizeHeader(h string) string {
	return strings.ToLower(trimSpaces(strings.TrimPrefix(h, "\ufeff")))
}

// NormalizeCell trims a cell and drops a spreadsheet ".0" suffix from integral
// numbers, so 124370.0 reads as 124370.
func NormalizeCell(v string) string {
	v = trimSpaces(v)
	if i := strings.IndexByte(v, '.'); i > 0 && isIntegral(v[:i]) && strings.Trim(v[i+1:], "0") == "" && len(v) > i+1 {
		return v[:i]
	}
	return v
}

func isIntegral(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// buildTable locates the header row and maps the following records onto it.
// Records are 0-indexed; line numbers are 1-indexed.
func buildTable(format Format, records [][]string, required []string) (*Table, error) {
	headerIdx := findHeaderRow(records, required)
	if headerIdx < 0 {
		return nil, NewStructuralError(ErrCodeImportMissingHeader, "no header row found", ErrMissingHeader)
	}

	headers := make([]string, len(records[headerIdx]))
	for i, h := range records[headerIdx] {
		headers[i] = NormalizeHeader(h)
	}

	table := &Table{Format: format, Headers: headers}
	for i := headerIdx + 1; i < len(records); i++ {
		record := records[i]
		row := &Row{
			LineNumber: i + 1,
			Data:       make(map[string]string, len(headers)),
			RawFields:  record,
		}
		for j, header := range headers {
			if header == "" {
				continue
			}
			if j < len(record) {
				row.Data[header] = NormalizeCell(record[j])
			} else {
				row.Data[header] = ""
			}
		}
		if row.IsEmpty() {
			continue
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// findHeaderRow returns the first row, among the leading ones, that contains the
// first required column; otherwise the first non-empty row.
func findHeaderRow(records [][]string, required []string) int {
	firstNonEmpty := -1
	for i := 0; i < len(records) && i < headerScanLimit; i++ {
		nonEmpty := false
		for _, cell := range records[i] {
			h := NormalizeHeader(cell)
			if h == "" {
				continue
			}
			nonEmpty = true
			if len(required) > 0 && h == NormalizeHeader(required[0]) {
				return i
			}
		}
		if nonEmpty && firstNonEmpty < 0 {
			firstNonEmpty = i
		}
	}
	return firstNonEmpty
}

// trimSpaces trims whitespace from a string
func trimSpaces(s string) string {
	start := 0
	end := len(s)

	for start < end {
		r, size := utf8.DecodeRuneInString(s[start:])
		if !isWhitespace(r) {
			break
		}
		start += size
	}

	for end > start {
		r, size := utf8.DecodeLastRuneInString(s[:end])
		if !isWhitespace(r) {
			break
		}
		end -= size
	}

	return s[start:end]
}

// isWhitespace checks if a rune is whitespace
func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f', '\u00a0':
		return true
	}
	return false
}
