package sheetimport

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Default limits
const (
	DefaultMaxFileSize = 20 << 20 // 20 MiB
	DefaultMaxRows     = 100000
)

// RequiredColumns are the columns every billing export must carry
var RequiredColumns = []string{"tipdoc", "numtra", "valcob"}

// Reader turns raw export bytes into a Table.
type Reader struct {
	maxFileSize int64
	maxRows     int
	required    []string
	logger      *zap.Logger
}

// ReaderOption is a functional option for Reader configuration
type ReaderOption func(*Reader)

// WithMaxFileSize sets the maximum accepted file size in bytes
func WithMaxFileSize(size int64) ReaderOption {
	return func(r *Reader) {
		if size > 0 {
			r.maxFileSize = size
		}
	}
}

// WithMaxRows sets the maximum number of data rows
func WithMaxRows(rows int) ReaderOption {
	return func(r *Reader) {
		if rows > 0 {
			r.maxRows = rows
		}
	}
}

// WithRequiredColumns replaces RequiredColumns
func WithRequiredColumns(columns ...string) ReaderOption {
	return func(r *Reader) {
		r.required = columns
	}
}

// WithReaderLogger sets the logger
func WithReaderLogger(logger *zap.Logger) ReaderOption {
	return func(r *Reader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewReader creates a Reader with default limits
func NewReader(opts ...ReaderOption) *Reader {
	r := &Reader{
		maxFileSize: DefaultMaxFileSize,
		maxRows:     DefaultMaxRows,
		required:    RequiredColumns,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Read detects the format, reads the first sheet and checks the required
// columns. Every failure is a *StructuralError.
func (r *Reader) Read(ctx context.Context, data []byte, filename string) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, NewStructuralError(ErrCodeImportEmptyFile, "file is empty", ErrEmptyFile)
	}
	if int64(len(data)) > r.maxFileSize {
		return nil, NewStructuralError(ErrCodeImportFileTooLarge,
			fmt.Sprintf("file size %d exceeds limit %d", len(data), r.maxFileSize), ErrFileTooLarge)
	}

	format := DetectFormat(data, filename)
	r.logger.Debug("Detected export format",
		zap.String("file", filename),
		zap.String("format", string(format)),
		zap.Int("size", len(data)),
	)

	var (
		records [][]string
		err     error
	)
	switch format {
	case FormatXLSX:
		records, err = readXLSXRecords(data)
	case FormatXLS:
		records, err = readXLSRecords(data)
	case FormatXML:
		records, err = readXMLRecords(data)
	case FormatCSV:
		var parser *CSVParser
		if parser, err = ParseFromBytes(data); err == nil {
			records, err = parser.ReadAll()
		}
	default:
		return nil, NewStructuralError(ErrCodeImportUnsupportedFormat,
			"file is not an xlsx, xls, xml or csv export", ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, classifyReadError(format, err)
	}

	table, err := buildTable(format, records, r.required)
	if err != nil {
		return nil, err
	}
	if missing := table.MissingColumns(r.required...); len(missing) > 0 {
		return nil, MissingColumnsError(missing)
	}
	if len(table.Rows) > r.maxRows {
		return nil, NewStructuralError(ErrCodeImportFileTooLarge,
			fmt.Sprintf("file has %d rows, limit is %d", len(table.Rows), r.maxRows), ErrFileTooLarge)
	}
	return table, nil
}

func classifyReadError(format Format, err error) error {
	var se *StructuralError
	switch {
	case errors.As(err, &se):
		return se
	case errors.Is(err, ErrEmptyFile):
		return NewStructuralError(ErrCodeImportEmptyFile, "file is empty", err)
	case errors.Is(err, ErrInvalidEncoding):
		return NewStructuralError(ErrCodeImportInvalidEncoding, "unsupported text encoding", err)
	case errors.Is(err, ErrMissingHeader):
		return NewStructuralError(ErrCodeImportMissingHeader, "no header row found", err)
	}
	return NewStructuralError(ErrCodeImportInvalidFile, fmt.Sprintf("cannot read %s export", format), err)
}
