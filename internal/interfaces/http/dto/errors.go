package dto

import (
	"net/http"
	"strings"
)

// Error code constants, format ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Request error codes
const (
	ErrCodeValidation      = "ERR_VALIDATION"
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput    = "ERR_INVALID_INPUT"
	ErrCodeInvalidID       = "ERR_INVALID_ID"
	ErrCodeInvalidActor    = "ERR_INVALID_ACTOR"
	ErrCodeMissingUpload   = "ERR_MISSING_UPLOAD"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeLockTimeout         = "ERR_LOCK_TIMEOUT"
	ErrCodeNothingToExport     = "ERR_NOTHING_TO_EXPORT"
)

// Billing error codes
const (
	ErrCodeInvalidState           = "ERR_INVALID_STATE"
	ErrCodeInvalidStatus          = "ERR_INVALID_STATUS"
	ErrCodeMalformedInvoiceNumber = "ERR_MALFORMED_INVOICE_NUMBER"
	ErrCodeMissingReceiptNumber   = "ERR_MISSING_RECEIPT_NUMBER"
	ErrCodeInvalidAmount          = "ERR_INVALID_AMOUNT"
	ErrCodeAlreadyAllocated       = "ERR_ALREADY_ALLOCATED"
	ErrCodeInvoiceMismatch        = "ERR_INVOICE_MISMATCH"
	ErrCodeCreditNoteResolved     = "ERR_CREDIT_NOTE_RESOLVED"
	ErrCodeInvalidResolution      = "ERR_INVALID_RESOLUTION"
	ErrCodeDocumentAlreadyLinked  = "ERR_DOCUMENT_ALREADY_LINKED"
	ErrCodeInvalidFileName        = "ERR_INVALID_FILE_NAME"
)

// Scheduler error codes
const (
	ErrCodeSweepInProgress  = "ERR_SWEEP_IN_PROGRESS"
	ErrCodeSchedulerStopped = "ERR_SCHEDULER_STOPPED"
)

// importCodePrefix marks structural import failures raised by the sheet reader
const importCodePrefix = "ERR_IMPORT_"

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidID:       http.StatusBadRequest,
	ErrCodeInvalidActor:    http.StatusBadRequest,
	ErrCodeMissingUpload:   http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeLockTimeout:         http.StatusServiceUnavailable,
	ErrCodeNothingToExport:     http.StatusNotFound,

	ErrCodeInvalidState:           http.StatusUnprocessableEntity,
	ErrCodeInvalidStatus:          http.StatusBadRequest,
	ErrCodeMalformedInvoiceNumber: http.StatusBadRequest,
	ErrCodeMissingReceiptNumber:   http.StatusBadRequest,
	ErrCodeInvalidAmount:          http.StatusBadRequest,
	ErrCodeAlreadyAllocated:       http.StatusConflict,
	ErrCodeInvoiceMismatch:        http.StatusUnprocessableEntity,
	ErrCodeCreditNoteResolved:     http.StatusConflict,
	ErrCodeInvalidResolution:      http.StatusBadRequest,
	ErrCodeDocumentAlreadyLinked:  http.StatusConflict,
	ErrCodeInvalidFileName:        http.StatusBadRequest,

	ErrCodeSweepInProgress:  http.StatusConflict,
	ErrCodeSchedulerStopped: http.StatusServiceUnavailable,

	"ERR_IMPORT_FILE_TOO_LARGE": http.StatusRequestEntityTooLarge,
}

// GetHTTPStatus returns the HTTP status code for an error code. Structural
// import codes map to 422 and anything unknown to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, importCodePrefix) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// domainCodeMapping maps domain error codes to API error codes
var domainCodeMapping = map[string]string{
	"NOT_FOUND":                ErrCodeNotFound,
	"ALREADY_EXISTS":           ErrCodeAlreadyExists,
	"INVALID_INPUT":            ErrCodeInvalidInput,
	"CONCURRENCY_CONFLICT":     ErrCodeConcurrencyConflict,
	"INVALID_STATE":            ErrCodeInvalidState,
	"LOCK_TIMEOUT":             ErrCodeLockTimeout,
	"NOTHING_TO_EXPORT":        ErrCodeNothingToExport,
	"INVALID_STATUS":           ErrCodeInvalidStatus,
	"MALFORMED_INVOICE_NUMBER": ErrCodeMalformedInvoiceNumber,
	"MISSING_RECEIPT_NUMBER":   ErrCodeMissingReceiptNumber,
	"INVALID_AMOUNT":           ErrCodeInvalidAmount,
	"ALREADY_ALLOCATED":        ErrCodeAlreadyAllocated,
	"INVOICE_MISMATCH":         ErrCodeInvoiceMismatch,
	"CREDIT_NOTE_RESOLVED":     ErrCodeCreditNoteResolved,
	"INVALID_RESOLUTION":       ErrCodeInvalidResolution,
	"DOCUMENT_ALREADY_LINKED":  ErrCodeDocumentAlreadyLinked,
	"INVALID_FILE_NAME":        ErrCodeInvalidFileName,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes already in API format, or unknown codes, are returned unchanged.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := domainCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
