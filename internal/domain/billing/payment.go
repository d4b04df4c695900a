package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/notaria/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentType classifies how the money reached the office
type PaymentType string

const (
	PaymentTypeTransfer   PaymentType = "TRANSFER"
	PaymentTypeCash       PaymentType = "CASH"
	PaymentTypeAdjustment PaymentType = "ADJUSTMENT" // Discounts, adjustments, applied credit notes
)

// IsValid checks if the payment type is valid
func (t PaymentType) IsValid() bool {
	switch t {
	case PaymentTypeTransfer, PaymentTypeCash, PaymentTypeAdjustment:
		return true
	}
	return false
}

// String returns the string representation of PaymentType
func (t PaymentType) String() string {
	return string(t)
}

var cashKeywords = []string{"EFECTIVO", "CASH", "CAJA"}

// InferPaymentType picks the payment type from the concept text
func InferPaymentType(concept string, isAdjustment bool) PaymentType {
	if isAdjustment {
		return PaymentTypeAdjustment
	}
	folded := FoldText(concept)
	for _, k := range cashKeywords {
		if strings.Contains(folded, k) {
			return PaymentTypeCash
		}
	}
	return PaymentTypeTransfer
}

// AllocationState tracks whether a payment has been applied to its invoices
type AllocationState string

const (
	AllocationStatePending   AllocationState = "PENDING"   // Waiting for its invoice(s)
	AllocationStateAllocated AllocationState = "ALLOCATED" // Allocations recorded
)

// NewPaymentInput groups the fields a payment is created from
type NewPaymentInput struct {
	ReceiptNumber  string
	IsSynthetic    bool
	Amount         decimal.Decimal
	PaymentDate    time.Time
	Type           PaymentType
	Concept        string
	TransactionRef string
	InvoiceRefs    []string
	SourceFile     string
	ImportedBy     uuid.UUID
}

// Payment is one cash/transfer/adjustment event. It is immutable once created,
// apart from moving from PENDING to ALLOCATED.
type Payment struct {
	shared.BaseEntity
	ReceiptNumber   string
	IsSynthetic     bool
	Amount          decimal.Decimal
	PaymentDate     time.Time
	Type            PaymentType
	Concept         string
	TransactionRef  string
	InvoiceRefs     []string
	AllocationState AllocationState
	SourceFile      string
	ImportedAt      time.Time
	ImportedBy      uuid.UUID
}

// NewPayment creates a pending payment
func NewPayment(input NewPaymentInput) (*Payment, error) {
	receipt := strings.TrimSpace(input.ReceiptNumber)
	if receipt == "" {
		return nil, ErrMissingReceiptNumber
	}
	if input.Amount.IsNegative() {
		return nil, invalidAmount("Payment amount cannot be negative: %s", input.Amount.String())
	}
	if !input.Type.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_TYPE", "Invalid payment type: "+string(input.Type))
	}
	if len(input.InvoiceRefs) == 0 {
		return nil, shared.NewDomainError("INVALID_INVOICE_REFERENCE", "Payment must reference at least one invoice")
	}
	for _, ref := range input.InvoiceRefs {
		if !IsCanonicalInvoiceNumber(ref) {
			return nil, malformedInvoiceNumber(ref, "payment references must be canonical")
		}
	}

	now := time.Now()
	paid := input.PaymentDate
	if paid.IsZero() {
		// exports without fecemi are dated on the day they were imported
		paid = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	return &Payment{
		BaseEntity:      shared.NewBaseEntity(),
		ReceiptNumber:   receipt,
		IsSynthetic:     input.IsSynthetic,
		Amount:          RoundMoney(input.Amount),
		PaymentDate:     paid,
		Type:            input.Type,
		Concept:         strings.TrimSpace(input.Concept),
		TransactionRef:  strings.TrimSpace(input.TransactionRef),
		InvoiceRefs:     dedupe(input.InvoiceRefs),
		AllocationState: AllocationStatePending,
		SourceFile:      input.SourceFile,
		ImportedAt:      now,
		ImportedBy:      input.ImportedBy,
	}, nil
}

// IsPending returns true while the payment waits for its invoice(s)
func (p *Payment) IsPending() bool {
	return p.AllocationState == AllocationStatePending
}

// MarkAllocated moves the payment to ALLOCATED
func (p *Payment) MarkAllocated() error {
	if !p.IsPending() {
		return ErrAlreadyAllocated
	}
	p.AllocationState = AllocationStateAllocated
	p.Touch()
	return nil
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
