package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/notaria/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// moneyPlaces is the number of fractional digits kept for money
const moneyPlaces = 2

// RoundMoney rounds to two fractional digits (half away from zero)
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyPlaces)
}

// InvoiceStatus represents the payment status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "PENDING" // Nothing allocated yet
	InvoiceStatusPartial InvoiceStatus = "PARTIAL" // Partially paid
	InvoiceStatusPaid    InvoiceStatus = "PAID"    // Fully paid or overpaid
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPartial, InvoiceStatusPaid:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// DeriveStatus computes the status from the invoice total and the allocated sum.
func DeriveStatus(total, paid decimal.Decimal) InvoiceStatus {
	switch {
	case paid.IsZero() || paid.IsNegative():
		return InvoiceStatusPending
	case paid.LessThan(total):
		return InvoiceStatusPartial
	default:
		return InvoiceStatusPaid
	}
}

// InvoiceDetails are the mutable fields taken from an FC row
type InvoiceDetails struct {
	RawInvoiceNumber string
	ClientName       string
	ClientTaxID      string
	TotalAmount      decimal.Decimal
	IssueDate        time.Time
	SourceFile       string
}

// Invoice is one billable document issued by the notary office.
// Its canonical invoice number is unique across the ledger.
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber    string
	RawInvoiceNumber string
	ClientName       string
	ClientTaxID      string
	TotalAmount      decimal.Decimal
	PaidAmount       decimal.Decimal
	IssueDate        time.Time
	Status           InvoiceStatus
	DocumentID       *uuid.UUID
	SourceFile       string
}

// NewInvoice creates an invoice identified by a canonical number
func NewInvoice(invoiceNumber string, details InvoiceDetails) (*Invoice, error) {
	if !IsCanonicalInvoiceNumber(invoiceNumber) {
		return nil, malformedInvoiceNumber(invoiceNumber, "invoice must be created with a canonical number")
	}
	if details.TotalAmount.IsNegative() {
		return nil, invalidAmount("Invoice total cannot be negative: %s", details.TotalAmount.String())
	}

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceNumber:     invoiceNumber,
		PaidAmount:        decimal.Zero,
		Status:            InvoiceStatusPending,
	}
	inv.assign(details)
	return inv, nil
}

// UpdateDetails overwrites the mutable fields from a newer export row and
// recomputes the status. It reports whether anything changed.
func (i *Invoice) UpdateDetails(details InvoiceDetails) (bool, error) {
	if details.TotalAmount.IsNegative() {
		return false, invalidAmount("Invoice total cannot be negative: %s", details.TotalAmount.String())
	}
	before := *i
	i.assign(details)
	i.Status = DeriveStatus(i.TotalAmount, i.PaidAmount)

	changed := before.RawInvoiceNumber != i.RawInvoiceNumber ||
		before.ClientName != i.ClientName ||
		before.ClientTaxID != i.ClientTaxID ||
		!before.TotalAmount.Equal(i.TotalAmount) ||
		!before.IssueDate.Equal(i.IssueDate) ||
		before.Status != i.Status
	if changed {
		i.IncrementVersion()
	}
	return changed, nil
}

func (i *Invoice) assign(details InvoiceDetails) {
	i.RawInvoiceNumber = strings.TrimSpace(details.RawInvoiceNumber)
	i.ClientName = strings.TrimSpace(details.ClientName)
	i.ClientTaxID = strings.TrimSpace(details.ClientTaxID)
	i.TotalAmount = RoundMoney(details.TotalAmount)
	if !details.IssueDate.IsZero() {
		i.IssueDate = details.IssueDate
	}
	if details.SourceFile != "" {
		i.SourceFile = details.SourceFile
	}
}

// ApplyAllocation adds an allocated amount to the paid sum. A zero amount is a
// no-op, so the status never moves on zero-amount operations.
func (i *Invoice) ApplyAllocation(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return invalidAmount("Allocation amount cannot be negative: %s", amount.String())
	}
	if amount.IsZero() {
		return nil
	}
	i.PaidAmount = RoundMoney(i.PaidAmount.Add(amount))
	i.Status = DeriveStatus(i.TotalAmount, i.PaidAmount)
	i.IncrementVersion()
	return nil
}

// OutstandingAmount returns what is still owed, never below zero
func (i *Invoice) OutstandingAmount() decimal.Decimal {
	out := i.TotalAmount.Sub(i.PaidAmount)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// OverpaidAmount returns how much the allocations exceed the total
func (i *Invoice) OverpaidAmount() decimal.Decimal {
	over := i.PaidAmount.Sub(i.TotalAmount)
	if over.IsNegative() {
		return decimal.Zero
	}
	return over
}

// IsPaid returns true if the invoice is fully paid
func (i *Invoice) IsPaid() bool {
	return i.Status == InvoiceStatusPaid
}

// PaidPercentage returns the paid share of the total (0-100, may exceed 100)
func (i *Invoice) PaidPercentage() decimal.Decimal {
	if i.TotalAmount.IsZero() {
		return decimal.Zero
	}
	return i.PaidAmount.Div(i.TotalAmount).Mul(decimal.NewFromInt(100)).Round(2)
}

// IsLinked reports whether the invoice references a Document record
func (i *Invoice) IsLinked() bool {
	return i.DocumentID != nil
}

// LinkDocument records the foreign key of the matching Document record.
// Linking to the same document twice is a no-op.
func (i *Invoice) LinkDocument(documentID uuid.UUID) error {
	if documentID == uuid.Nil {
		return shared.NewDomainError("INVALID_DOCUMENT", "Document id cannot be empty")
	}
	if i.DocumentID != nil {
		if *i.DocumentID == documentID {
			return nil
		}
		return shared.NewDomainError(CodeDocumentAlreadyLinked,
			fmt.Sprintf("Invoice %s is already linked to document %s", i.InvoiceNumber, i.DocumentID))
	}
	id := documentID
	i.DocumentID = &id
	i.IncrementVersion()
	return nil
}
