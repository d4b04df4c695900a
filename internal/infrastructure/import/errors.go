package sheetimport

import (
	"errors"
	"fmt"
	"strings"
)

// Import error codes
const (
	// Structural errors
	ErrCodeImportInvalidFile       = "ERR_IMPORT_INVALID_FILE"
	ErrCodeImportEmptyFile         = "ERR_IMPORT_EMPTY_FILE"
	ErrCodeImportFileTooLarge      = "ERR_IMPORT_FILE_TOO_LARGE"
	ErrCodeImportUnsupportedFormat = "ERR_IMPORT_UNSUPPORTED_FORMAT"
	ErrCodeImportInvalidEncoding   = "ERR_IMPORT_INVALID_ENCODING"
	ErrCodeImportMissingHeader     = "ERR_IMPORT_MISSING_HEADER"
	ErrCodeImportMissingColumns    = "ERR_IMPORT_MISSING_COLUMNS"

	// Row errors
	ErrCodeImportInvalidAmount          = "ERR_IMPORT_INVALID_AMOUNT"
	ErrCodeImportInvalidDate            = "ERR_IMPORT_INVALID_DATE"
	ErrCodeImportMalformedInvoiceNumber = "ERR_IMPORT_MALFORMED_INVOICE_NUMBER"
	ErrCodeImportMissingReceiptNumber   = "ERR_IMPORT_MISSING_RECEIPT_NUMBER"
	ErrCodeImportUnrecognizedRow        = "ERR_IMPORT_UNRECOGNIZED_ROW"
	ErrCodeImportRequiredField          = "ERR_IMPORT_REQUIRED_FIELD"

	// Warnings
	WarnCodeAllocationOverflow = "WARN_ALLOCATION_OVERFLOW"
)

var (
	// ErrStructuralImportFailure is wrapped by every StructuralError
	ErrStructuralImportFailure = errors.New("structural import failure")

	// ErrEmptyFile is returned when the export has no content
	ErrEmptyFile = errors.New("file is empty")

	// ErrInvalidEncoding is returned when text content is not valid in its declared encoding
	ErrInvalidEncoding = errors.New("invalid file encoding")

	// ErrMissingHeader is returned when no header row can be found
	ErrMissingHeader = errors.New("file missing header row")

	// ErrFileTooLarge is returned when the file exceeds maximum size
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")

	// ErrUnsupportedFormat is returned when the content is none of xlsx, xls, xml or csv
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrInvalidAmount is matched by value errors from ParseMoneyAmount
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidDate is matched by value errors from the date parsers
	ErrInvalidDate = errors.New("invalid date")
)

// StructuralError means the file as a whole cannot be imported. No rows are
// processed when one is returned.
type StructuralError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *StructuralError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes both the cause and ErrStructuralImportFailure
func (e *StructuralError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrStructuralImportFailure, e.Err}
	}
	return []error{ErrStructuralImportFailure}
}

// NewStructuralError creates a StructuralError
func NewStructuralError(code, message string, cause error) *StructuralError {
	return &StructuralError{Code: code, Message: message, Err: cause}
}

// MissingColumnsError reports required columns absent from the header
func MissingColumnsError(missing []string) *StructuralError {
	return NewStructuralError(ErrCodeImportMissingColumns,
		"missing required columns: "+strings.Join(missing, ", "), nil)
}

// ValueError is returned by the cell value parsers
type ValueError struct {
	Code    string
	Message string
	Value   string
}

// Error implements the error interface
func (e *ValueError) Error() string {
	return fmt.Sprintf("%s: %q", e.Message, e.Value)
}

// Unwrap maps the code onto its sentinel
func (e *ValueError) Unwrap() error {
	switch e.Code {
	case ErrCodeImportInvalidAmount:
		return ErrInvalidAmount
	case ErrCodeImportInvalidDate:
		return ErrInvalidDate
	}
	return nil
}

func invalidAmount(value, message string) *ValueError {
	return &ValueError{Code: ErrCodeImportInvalidAmount, Message: message, Value: value}
}

func invalidDate(value, message string) *ValueError {
	return &ValueError{Code: ErrCodeImportInvalidDate, Message: message, Value: value}
}

// RowError represents an error in a specific row
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface
func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// NewRowError creates a new RowError
func NewRowError(row int, column, code, message string) RowError {
	return RowError{
		Row:     row,
		Column:  column,
		Code:    code,
		Message: message,
	}
}

// NewRowErrorWithValue creates a new RowError with the invalid value
func NewRowErrorWithValue(row int, column, code, message, value string) RowError {
	return RowError{
		Row:     row,
		Column:  column,
		Code:    code,
		Message: message,
		Value:   value,
	}
}

// RowErrorFromValue converts a ValueError into a RowError for the given cell
func RowErrorFromValue(row int, column string, err *ValueError) RowError {
	return NewRowErrorWithValue(row, column, err.Code, err.Message, err.Value)
}

// ErrorCollection manages a collection of import errors
type ErrorCollection struct {
	errors     []RowError
	maxErrors  int
	totalCount int
}

// NewErrorCollection creates a new ErrorCollection with a maximum error limit
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 100 // Default limit
	}
	return &ErrorCollection{
		errors:    make([]RowError, 0, min(maxErrors, 16)),
		maxErrors: maxErrors,
	}
}

// Add adds an error to the collection
func (ec *ErrorCollection) Add(err RowError) {
	ec.totalCount++
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

// AddRequiredError adds a required field error
func (ec *ErrorCollection) AddRequiredError(row int, column string) {
	ec.Add(NewRowError(row, column, ErrCodeImportRequiredField, fmt.Sprintf("field '%s' is required", column)))
}

// AddUnrecognizedRow adds an error for an unknown row discriminator
func (ec *ErrorCollection) AddUnrecognizedRow(row int, column, value string) {
	ec.Add(NewRowErrorWithValue(row, column, ErrCodeImportUnrecognizedRow,
		fmt.Sprintf("unrecognized document type '%s'", value), value))
}

// Errors returns the collected errors
func (ec *ErrorCollection) Errors() []RowError {
	return ec.errors
}

// Count returns the number of collected errors (up to maxErrors)
func (ec *ErrorCollection) Count() int {
	return len(ec.errors)
}

// TotalCount returns the total number of errors including those not collected
func (ec *ErrorCollection) TotalCount() int {
	return ec.totalCount
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollection) HasErrors() bool {
	return ec.totalCount > 0
}

// IsTruncated returns true if some errors were not collected due to the limit
func (ec *ErrorCollection) IsTruncated() bool {
	return ec.totalCount > ec.maxErrors
}

// ErrorSummary returns a summary of errors by code
func (ec *ErrorCollection) ErrorSummary() map[string]int {
	summary := make(map[string]int)
	for _, err := range ec.errors {
		summary[err.Code]++
	}
	return summary
}

// String returns a string representation of all errors
func (ec *ErrorCollection) String() string {
	if !ec.HasErrors() {
		return "no errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d error(s) found", ec.totalCount))
	if ec.IsTruncated() {
		sb.WriteString(fmt.Sprintf(" (showing first %d)", ec.maxErrors))
	}
	sb.WriteString(":\n")

	for _, err := range ec.errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}

	return sb.String()
}
