package persistence

import (
	"context"

	importapp "github.com/notaria/backoffice/internal/application/import"
	"github.com/notaria/backoffice/internal/domain/billing"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos importapp.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// Invoices returns the invoice repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Invoices() billing.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

// Payments returns the payment repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Payments() billing.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

// Allocations returns the allocation repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Allocations() billing.AllocationRepository {
	return NewGormAllocationRepository(r.tx)
}

// CreditNotes returns the credit note repository scoped to the current transaction.
func (r *gormTransactionalRepositories) CreditNotes() billing.CreditNoteRepository {
	return NewGormCreditNoteRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ importapp.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ importapp.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
