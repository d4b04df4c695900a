package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/notaria/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CreditNoteReceiptPrefix prefixes the adjustment payment created when a credit
// note is applied.
const CreditNoteReceiptPrefix = "NC-"

// CreditNoteStatus tracks the manual review of a credit note
type CreditNoteStatus string

const (
	CreditNoteStatusPendingReview CreditNoteStatus = "PENDING_REVIEW"
	CreditNoteStatusApplied       CreditNoteStatus = "APPLIED"
	CreditNoteStatusDismissed     CreditNoteStatus = "DISMISSED"
)

// IsValid checks if the status is valid
func (s CreditNoteStatus) IsValid() bool {
	switch s {
	case CreditNoteStatusPendingReview, CreditNoteStatusApplied, CreditNoteStatusDismissed:
		return true
	}
	return false
}

// CreditNoteResolution is the reviewer's decision
type CreditNoteResolution string

const (
	CreditNoteResolutionApply   CreditNoteResolution = "APPLY"
	CreditNoteResolutionDismiss CreditNoteResolution = "DISMISS"
)

// ParseCreditNoteResolution parses a resolution, case-insensitively
func ParseCreditNoteResolution(s string) (CreditNoteResolution, error) {
	switch r := CreditNoteResolution(strings.ToUpper(strings.TrimSpace(s))); r {
	case CreditNoteResolutionApply, CreditNoteResolutionDismiss:
		return r, nil
	}
	return "", shared.NewDomainError(CodeInvalidResolution, "Resolution must be APPLY or DISMISS, got "+s)
}

// NewCreditNoteInput groups the fields of an NC row
type NewCreditNoteInput struct {
	CreditNoteNumber string
	InvoiceNumber    string
	Amount           decimal.Decimal
	IssueDate        time.Time
	Concept          string
	SourceFile       string
}

// CreditNote is recorded from NC rows and never applied automatically.
type CreditNote struct {
	shared.BaseEntity
	CreditNoteNumber string
	InvoiceNumber    string
	Amount           decimal.Decimal
	IssueDate        time.Time
	Concept          string
	Status           CreditNoteStatus
	SourceFile       string
	ResolvedBy       *uuid.UUID
	ResolvedAt       *time.Time
}

// NewCreditNote creates a credit note awaiting review
func NewCreditNote(input NewCreditNoteInput) (*CreditNote, error) {
	number := strings.TrimSpace(input.CreditNoteNumber)
	if number == "" {
		return nil, shared.NewDomainError("INVALID_CREDIT_NOTE", "Credit note number cannot be empty")
	}
	if !IsCanonicalInvoiceNumber(input.InvoiceNumber) {
		return nil, malformedInvoiceNumber(input.InvoiceNumber, "credit note reference must be canonical")
	}
	if input.Amount.IsNegative() {
		return nil, invalidAmount("Credit note amount cannot be negative: %s", input.Amount.String())
	}
	return &CreditNote{
		BaseEntity:       shared.NewBaseEntity(),
		CreditNoteNumber: number,
		InvoiceNumber:    input.InvoiceNumber,
		Amount:           RoundMoney(input.Amount),
		IssueDate:        input.IssueDate,
		Concept:          strings.TrimSpace(input.Concept),
		Status:           CreditNoteStatusPendingReview,
		SourceFile:       input.SourceFile,
	}, nil
}

// IsPendingReview returns true until the note is applied or dismissed
func (c *CreditNote) IsPendingReview() bool {
	return c.Status == CreditNoteStatusPendingReview
}

// Resolve records the reviewer's decision. A note can be resolved once.
func (c *CreditNote) Resolve(resolution CreditNoteResolution, actorID uuid.UUID) error {
	if !c.IsPendingReview() {
		return ErrCreditNoteResolved
	}
	switch resolution {
	case CreditNoteResolutionApply:
		c.Status = CreditNoteStatusApplied
	case CreditNoteResolutionDismiss:
		c.Status = CreditNoteStatusDismissed
	default:
		return shared.NewDomainError(CodeInvalidResolution, "Invalid resolution: "+string(resolution))
	}
	now := time.Now()
	actor := actorID
	c.ResolvedBy = &actor
	c.ResolvedAt = &now
	c.Touch()
	return nil
}

// AdjustmentReceiptNumber is the receipt number of the payment that applies this note
func (c *CreditNote) AdjustmentReceiptNumber() string {
	return CreditNoteReceiptPrefix + c.CreditNoteNumber
}

// AdjustmentPayment builds the ADJUSTMENT payment that applies this note to its invoice
func (c *CreditNote) AdjustmentPayment(actorID uuid.UUID) (*Payment, error) {
	date := c.IssueDate
	if date.IsZero() {
		date = time.Now()
	}
	return NewPayment(NewPaymentInput{
		ReceiptNumber:  c.AdjustmentReceiptNumber(),
		Amount:         c.Amount,
		PaymentDate:    date,
		Type:           PaymentTypeAdjustment,
		Concept:        c.Concept,
		TransactionRef: c.InvoiceNumber,
		InvoiceRefs:    []string{c.InvoiceNumber},
		SourceFile:     c.SourceFile,
		ImportedBy:     actorID,
	})
}
