package billing

import (
	"fmt"

	"github.com/notaria/backoffice/internal/domain/shared"
)

// Billing error codes
const (
	CodeMalformedInvoiceNumber = "MALFORMED_INVOICE_NUMBER"
	CodeMissingReceiptNumber   = "MISSING_RECEIPT_NUMBER"
	CodeInvalidAmount          = "INVALID_AMOUNT"
	CodeAlreadyAllocated       = "ALREADY_ALLOCATED"
	CodeInvoiceMismatch        = "INVOICE_MISMATCH"
	CodeCreditNoteResolved     = "CREDIT_NOTE_RESOLVED"
	CodeInvalidResolution      = "INVALID_RESOLUTION"
	CodeDocumentAlreadyLinked  = "DOCUMENT_ALREADY_LINKED"
)

// Sentinel errors. Errors built with the same code match these with errors.Is.
var (
	ErrMalformedInvoiceNumber = shared.NewDomainError(CodeMalformedInvoiceNumber, "Malformed invoice number")
	ErrMissingReceiptNumber   = shared.NewDomainError(CodeMissingReceiptNumber, "Payment has no receipt number")
	ErrInvalidAmount          = shared.NewDomainError(CodeInvalidAmount, "Invalid amount")
	ErrAlreadyAllocated       = shared.NewDomainError(CodeAlreadyAllocated, "Payment is already allocated")
	ErrCreditNoteResolved     = shared.NewDomainError(CodeCreditNoteResolved, "Credit note is already resolved")
)

func malformedInvoiceNumber(raw, reason string) error {
	return shared.NewDomainError(CodeMalformedInvoiceNumber,
		fmt.Sprintf("Malformed invoice number %q: %s", raw, reason))
}

func invalidAmount(format string, args ...any) error {
	return shared.NewDomainError(CodeInvalidAmount, fmt.Sprintf(format, args...))
}
