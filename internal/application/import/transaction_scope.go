package importapp

import (
	"context"

	"github.com/notaria/backoffice/internal/domain/billing"
)

// TransactionScope provides transactional access to the billing repositories.
// Every repository returned inside Execute shares one database transaction,
// committed when fn returns nil and rolled back otherwise.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the billing repositories within a transaction.
//
// Aggregate notes:
//   - Invoices: the Invoice aggregate root. Paid amount and status change only
//     together with the allocations that explain them.
//   - Payments: created once per receipt number, then only moved to ALLOCATED.
//   - Allocations: append-only, one per (payment, invoice) pair.
//   - CreditNotes: recorded on import, changed only by an explicit resolution.
type TransactionalRepositories interface {
	Invoices() billing.InvoiceRepository
	Payments() billing.PaymentRepository
	Allocations() billing.AllocationRepository
	CreditNotes() billing.CreditNoteRepository
}

// NoOpTransactionScope runs the function directly against the given
// repositories. Used by tests and by in-memory wiring.
type NoOpTransactionScope struct {
	invoices    billing.InvoiceRepository
	payments    billing.PaymentRepository
	allocations billing.AllocationRepository
	creditNotes billing.CreditNoteRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	invoices billing.InvoiceRepository,
	payments billing.PaymentRepository,
	allocations billing.AllocationRepository,
	creditNotes billing.CreditNoteRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		invoices:    invoices,
		payments:    payments,
		allocations: allocations,
		creditNotes: creditNotes,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Invoices returns the invoice repository.
func (s *NoOpTransactionScope) Invoices() billing.InvoiceRepository {
	return s.invoices
}

// Payments returns the payment repository.
func (s *NoOpTransactionScope) Payments() billing.PaymentRepository {
	return s.payments
}

// Allocations returns the allocation repository.
func (s *NoOpTransactionScope) Allocations() billing.AllocationRepository {
	return s.allocations
}

// CreditNotes returns the credit note repository.
func (s *NoOpTransactionScope) CreditNotes() billing.CreditNoteRepository {
	return s.creditNotes
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
