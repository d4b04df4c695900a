package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeLockTimeout, http.StatusServiceUnavailable},
		{ErrCodeCreditNoteResolved, http.StatusConflict},
		{ErrCodeInvalidResolution, http.StatusBadRequest},
		{ErrCodeSweepInProgress, http.StatusConflict},
		{"ERR_IMPORT_FILE_TOO_LARGE", http.StatusRequestEntityTooLarge},
		{"ERR_IMPORT_MISSING_COLUMNS", http.StatusUnprocessableEntity},
		{"ERR_IMPORT_UNSUPPORTED_FORMAT", http.StatusUnprocessableEntity},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
		{"", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode("NOT_FOUND"))
	assert.Equal(t, ErrCodeLockTimeout, NormalizeErrorCode("LOCK_TIMEOUT"))
	assert.Equal(t, ErrCodeMalformedInvoiceNumber, NormalizeErrorCode("MALFORMED_INVOICE_NUMBER"))
	assert.Equal(t, ErrCodeNothingToExport, NormalizeErrorCode("NOTHING_TO_EXPORT"))

	// API codes and unknown codes pass through
	assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode(ErrCodeNotFound))
	assert.Equal(t, "CUSTOM", NormalizeErrorCode("CUSTOM"))
}

func TestDomainCodesHaveStatus(t *testing.T) {
	for domainCode, apiCode := range domainCodeMapping {
		_, ok := ErrorCodeHTTPStatus[apiCode]
		assert.True(t, ok, "no HTTP status for %s (from %s)", apiCode, domainCode)
	}
}
