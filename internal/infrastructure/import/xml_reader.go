package sheetimport

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

// xmlRecordElements are the element names (lower-case) that hold one export row
var xmlRecordElements = map[string]bool{
	"row":      true,
	"registro": true,
	"record":   true,
	"fila":     true,
}

// readXMLRecords flattens an XML export into a header record followed by data
// records. Each record element's attributes and child elements are its columns.
func readXMLRecords(data []byte) ([][]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = xmlCharsetReader
	dec.Strict = false

	var (
		headers []string
		index   = map[string]int{}
		rows    []map[string]string
	)
	column := func(name string) {
		if _, ok := index[name]; !ok {
			index[name] = len(headers)
			headers = append(headers, name)
		}
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse xml: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || !xmlRecordElements[strings.ToLower(start.Name.Local)] {
			continue
		}

		row := map[string]string{}
		for _, attr := range start.Attr {
			name := NormalizeHeader(attr.Name.Local)
			column(name)
			row[name] = attr.Value
		}
		if err := readXMLFields(dec, row, column); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, ErrMissingHeader
	}

	records := make([][]string, 0, len(rows)+1)
	records = append(records, headers)
	for _, row := range rows {
		record := make([]string, len(headers))
		for name, v := range row {
			record[index[name]] = v
		}
		records = append(records, record)
	}
	return records, nil
}

// readXMLFields consumes the children of a record element up to its end tag
func readXMLFields(dec *xml.Decoder, row map[string]string, column func(string)) error {
	depth := 0
	var field string
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to parse xml record: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				field = NormalizeHeader(t.Name.Local)
				text.Reset()
			}
		case xml.CharData:
			if depth == 1 {
				text.Write(t)
			}
		case xml.EndElement:
			if depth == 0 {
				return nil
			}
			if depth == 1 {
				column(field)
				row[field] = text.String()
			}
			depth--
		}
	}
}

// xmlCharsetReader decodes the legacy encodings Koinor declares
func xmlCharsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "iso-8859-1", "iso8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEncoding, label)
	}
	return enc.NewDecoder().Reader(input), nil
}
