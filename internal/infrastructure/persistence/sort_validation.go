package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// InvoiceSortFields contains allowed sort fields for invoices
var InvoiceSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"invoice_number": true,
	"client_name":    true,
	"total_amount":   true,
	"paid_amount":    true,
	"issue_date":     true,
	"status":         true,
}

// CreditNoteSortFields contains allowed sort fields for credit notes
var CreditNoteSortFields = map[string]bool{
	"id":                 true,
	"created_at":         true,
	"updated_at":         true,
	"credit_note_number": true,
	"invoice_number":     true,
	"amount":             true,
	"issue_date":         true,
	"status":             true,
}

// ImportLogSortFields contains allowed sort fields for import logs
var ImportLogSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"file_name":   true,
	"file_type":   true,
	"file_size":   true,
	"total_rows":  true,
	"error_count": true,
	"status":      true,
	"started_at":  true,
	"finished_at": true,
}
