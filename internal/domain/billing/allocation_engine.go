package billing

import (
	"fmt"
	"slices"
	"sort"

	"github.com/notaria/backoffice/internal/domain/shared"
	"github.com/notaria/backoffice/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

// DefaultOverflowTolerance is the rounding slack allowed before an invoice is
// reported as over-allocated.
var DefaultOverflowTolerance = decimal.NewFromFloat(0.01)

// AllocationLine is one planned (invoice, amount) pair
type AllocationLine struct {
	Invoice *Invoice
	Amount  decimal.Decimal
}

// AllocationStrategy plans how a payment amount is spread over its invoices.
// The returned lines must sum to amount and name each invoice at most once.
type AllocationStrategy interface {
	strategy.Strategy
	Plan(amount decimal.Decimal, invoices []*Invoice) []AllocationLine
}

// FIFOAllocationStrategy pays the oldest invoices first by issue date, then by
// invoice number, capping each at its outstanding balance. Whatever is left goes
// to the last invoice.
type FIFOAllocationStrategy struct {
	strategy.BaseStrategy
}

// NewFIFOAllocationStrategy creates a new FIFO allocation strategy
func NewFIFOAllocationStrategy() *FIFOAllocationStrategy {
	return &FIFOAllocationStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"fifo_allocation",
			strategy.StrategyTypeAllocation,
			"Allocates to the oldest outstanding invoices first; the remainder goes to the newest",
		),
	}
}

// Plan implements AllocationStrategy
func (s *FIFOAllocationStrategy) Plan(amount decimal.Decimal, invoices []*Invoice) []AllocationLine {
	if len(invoices) == 0 || !amount.IsPositive() {
		return nil
	}

	sorted := slices.Clone(invoices)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].IssueDate.Equal(sorted[j].IssueDate) {
			return sorted[i].IssueDate.Before(sorted[j].IssueDate)
		}
		return sorted[i].InvoiceNumber < sorted[j].InvoiceNumber
	})

	lines := make([]AllocationLine, 0, len(sorted))
	remaining := amount
	for _, inv := range sorted {
		if !remaining.IsPositive() {
			break
		}
		outstanding := inv.OutstandingAmount()
		if !outstanding.IsPositive() {
			continue
		}
		part := decimal.Min(remaining, outstanding)
		lines = append(lines, AllocationLine{Invoice: inv, Amount: part})
		remaining = remaining.Sub(part)
	}

	if remaining.IsPositive() {
		last := sorted[len(sorted)-1]
		if n := len(lines); n > 0 && lines[n-1].Invoice == last {
			lines[n-1].Amount = lines[n-1].Amount.Add(remaining)
		} else {
			lines = append(lines, AllocationLine{Invoice: last, Amount: remaining})
		}
	}
	return lines
}

// OverflowWarning flags an invoice whose allocations exceed its total beyond
// the tolerance. The invoice is still PAID; the warning is for manual review.
type OverflowWarning struct {
	InvoiceNumber string          `json:"invoice_number"`
	ReceiptNumber string          `json:"receipt_number"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	Excess        decimal.Decimal `json:"excess"`
}

// String returns a one-line description of the warning
func (w OverflowWarning) String() string {
	return fmt.Sprintf("invoice %s over-allocated by %s (total %s, allocated %s, receipt %s)",
		w.InvoiceNumber, w.Excess.StringFixed(2), w.TotalAmount.StringFixed(2),
		w.PaidAmount.StringFixed(2), w.ReceiptNumber)
}

// AllocationOutcome is the result of allocating one payment
type AllocationOutcome struct {
	Allocations []*Allocation
	Warnings    []OverflowWarning
}

// TotalAllocated sums the allocation amounts
func (o *AllocationOutcome) TotalAllocated() decimal.Decimal {
	total := decimal.Zero
	for _, a := range o.Allocations {
		total = total.Add(a.Amount)
	}
	return total
}

// AllocationEngine applies payments to invoices and keeps their status current.
type AllocationEngine struct {
	tolerance decimal.Decimal
	strategy  AllocationStrategy
}

// EngineOption configures an AllocationEngine
type EngineOption func(*AllocationEngine)

// WithTolerance sets the over-allocation tolerance
func WithTolerance(tolerance decimal.Decimal) EngineOption {
	return func(e *AllocationEngine) {
		if !tolerance.IsNegative() {
			e.tolerance = tolerance
		}
	}
}

// WithAllocationStrategy replaces the default FIFO strategy
func WithAllocationStrategy(s AllocationStrategy) EngineOption {
	return func(e *AllocationEngine) {
		if s != nil {
			e.strategy = s
		}
	}
}

// NewAllocationEngine creates an engine with FIFO allocation and the default tolerance
func NewAllocationEngine(opts ...EngineOption) *AllocationEngine {
	e := &AllocationEngine{
		tolerance: DefaultOverflowTolerance,
		strategy:  NewFIFOAllocationStrategy(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tolerance returns the configured over-allocation tolerance
func (e *AllocationEngine) Tolerance() decimal.Decimal {
	return e.tolerance
}

// Allocate applies a pending payment to the invoices it references. Every
// referenced invoice must be supplied; the invoices are mutated in place and the
// payment is marked ALLOCATED. A zero-amount payment produces no allocations.
func (e *AllocationEngine) Allocate(payment *Payment, invoices []*Invoice) (*AllocationOutcome, error) {
	if payment == nil {
		return nil, shared.NewDomainError("INVALID_PAYMENT", "Payment cannot be nil")
	}
	if !payment.IsPending() {
		return nil, ErrAlreadyAllocated
	}
	if err := e.checkTargets(payment, invoices); err != nil {
		return nil, err
	}

	outcome := &AllocationOutcome{}
	for _, line := range e.strategy.Plan(payment.Amount, invoices) {
		alloc, err := NewAllocation(payment, line.Invoice, line.Amount)
		if err != nil {
			return nil, err
		}
		if err := line.Invoice.ApplyAllocation(alloc.Amount); err != nil {
			return nil, err
		}
		outcome.Allocations = append(outcome.Allocations, alloc)
		if w, ok := e.CheckOverflow(line.Invoice, payment.ReceiptNumber); ok {
			outcome.Warnings = append(outcome.Warnings, w)
		}
	}

	if err := payment.MarkAllocated(); err != nil {
		return nil, err
	}
	return outcome, nil
}

// CheckOverflow reports an OverflowWarning when the invoice's paid amount is
// above its total by more than the tolerance.
func (e *AllocationEngine) CheckOverflow(inv *Invoice, receiptNumber string) (OverflowWarning, bool) {
	excess := inv.PaidAmount.Sub(inv.TotalAmount)
	if excess.LessThanOrEqual(e.tolerance) {
		return OverflowWarning{}, false
	}
	return OverflowWarning{
		InvoiceNumber: inv.InvoiceNumber,
		ReceiptNumber: receiptNumber,
		TotalAmount:   inv.TotalAmount,
		PaidAmount:    inv.PaidAmount,
		Excess:        excess,
	}, true
}

func (e *AllocationEngine) checkTargets(payment *Payment, invoices []*Invoice) error {
	if len(invoices) == 0 {
		return shared.NewDomainError(CodeInvoiceMismatch, "No invoices supplied for allocation")
	}
	byNumber := make(map[string]bool, len(invoices))
	for _, inv := range invoices {
		if inv == nil {
			return shared.NewDomainError(CodeInvoiceMismatch, "Invoice cannot be nil")
		}
		if !slices.Contains(payment.InvoiceRefs, inv.InvoiceNumber) {
			return shared.NewDomainError(CodeInvoiceMismatch,
				fmt.Sprintf("Payment %s does not reference invoice %s", payment.ReceiptNumber, inv.InvoiceNumber))
		}
		if byNumber[inv.InvoiceNumber] {
			return shared.NewDomainError(CodeInvoiceMismatch,
				fmt.Sprintf("Invoice %s supplied twice", inv.InvoiceNumber))
		}
		byNumber[inv.InvoiceNumber] = true
	}
	for _, ref := range payment.InvoiceRefs {
		if !byNumber[ref] {
			return shared.NewDomainError(CodeInvoiceMismatch,
				fmt.Sprintf("Invoice %s referenced by payment %s was not supplied", ref, payment.ReceiptNumber))
		}
	}
	return nil
}
