package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Allocation records that a payment contributed an amount to an invoice balance.
// There is at most one allocation per (payment, invoice) pair and it is never edited.
type Allocation struct {
	ID            uuid.UUID
	PaymentID     uuid.UUID
	InvoiceID     uuid.UUID
	InvoiceNumber string
	ReceiptNumber string
	Amount        decimal.Decimal
	AllocatedAt   time.Time
}

// NewAllocation creates an allocation of a positive amount
func NewAllocation(payment *Payment, invoice *Invoice, amount decimal.Decimal) (*Allocation, error) {
	if !amount.IsPositive() {
		return nil, invalidAmount("Allocation amount must be positive: %s", amount.String())
	}
	return &Allocation{
		ID:            uuid.New(),
		PaymentID:     payment.ID,
		InvoiceID:     invoice.ID,
		InvoiceNumber: invoice.InvoiceNumber,
		ReceiptNumber: payment.ReceiptNumber,
		Amount:        RoundMoney(amount),
		AllocatedAt:   time.Now(),
	}, nil
}
