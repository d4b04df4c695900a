package sheetimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// CSVParser reads delimited text exports into records
type CSVParser struct {
	delimiter  rune
	lazyQuotes bool
	trimSpace  bool
	reader     *csv.Reader
}

// ParserOption is a functional option for CSVParser configuration
type ParserOption func(*CSVParser)

// WithDelimiter sets the field delimiter. Without it the delimiter is sniffed
// from the first line.
func WithDelimiter(d rune) ParserOption {
	return func(p *CSVParser) {
		p.delimiter = d
	}
}

// WithLazyQuotes enables lazy quote handling
func WithLazyQuotes(lazy bool) ParserOption {
	return func(p *CSVParser) {
		p.lazyQuotes = lazy
	}
}

// WithTrimSpace enables trimming of leading spaces from fields
func WithTrimSpace(trim bool) ParserOption {
	return func(p *CSVParser) {
		p.trimSpace = trim
	}
}

// NewCSVParser creates a new CSV parser from a reader. Content that is not
// valid UTF-8 is decoded as Windows-1252.
func NewCSVParser(r io.Reader, opts ...ParserOption) (*CSVParser, error) {
	parser := &CSVParser{
		lazyQuotes: true,
		trimSpace:  true,
	}

	for _, opt := range opts {
		opt(parser)
	}

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	content = bytes.TrimPrefix(content, utf8BOM)
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, ErrEmptyFile
	}

	if !utf8.Valid(content) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(content)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
		}
		content = decoded
	}

	if parser.delimiter == 0 {
		parser.delimiter = sniffDelimiter(content)
	}

	parser.reader = csv.NewReader(bufio.NewReader(bytes.NewReader(content)))
	parser.reader.Comma = parser.delimiter
	parser.reader.LazyQuotes = parser.lazyQuotes
	parser.reader.TrimLeadingSpace = parser.trimSpace
	parser.reader.FieldsPerRecord = -1 // Allow variable number of fields

	return parser, nil
}

// Delimiter returns the field delimiter in use
func (p *CSVParser) Delimiter() rune {
	return p.delimiter
}

// ReadAll reads every record
func (p *CSVParser) ReadAll() ([][]string, error) {
	var records [][]string
	for {
		record, err := p.reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return records, fmt.Errorf("error reading line %d: %w", len(records)+1, err)
		}
		records = append(records, record)
	}
	return records, nil
}

// sniffDelimiter picks the most frequent of , ; and tab in the first line
func sniffDelimiter(content []byte) rune {
	line := content
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	best, bestCount := ',', 0
	for _, d := range []rune{',', ';', '\t', '|'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// ParseFromBytes creates a parser from a byte slice
func ParseFromBytes(data []byte, opts ...ParserOption) (*CSVParser, error) {
	return NewCSVParser(bytes.NewReader(data), opts...)
}
