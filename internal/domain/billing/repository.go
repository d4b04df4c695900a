package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/notaria/backoffice/internal/domain/shared"
)

// InvoiceFilter defines filtering options for invoice queries
type InvoiceFilter struct {
	shared.Filter
	Status     *InvoiceStatus // Filter by status
	ClientName string         // Filter by client name substring
	Unlinked   *bool          // Filter by missing document link
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByID finds an invoice by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByNumber finds an invoice by canonical invoice number
	FindByNumber(ctx context.Context, invoiceNumber string) (*Invoice, error)

	// FindByNumbers returns the invoices that exist among the given canonical numbers
	FindByNumbers(ctx context.Context, invoiceNumbers []string) ([]*Invoice, error)

	// FindUnlinked finds invoices without a document reference whose ID sorts
	// after the given one, in ID order. uuid.Nil starts from the beginning.
	FindUnlinked(ctx context.Context, after uuid.UUID, limit int) ([]*Invoice, error)

	// FindAll finds invoices with filtering
	FindAll(ctx context.Context, filter InvoiceFilter) ([]*Invoice, int64, error)

	// Save creates or updates an invoice
	Save(ctx context.Context, invoice *Invoice) error
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	// ExistsByReceiptNumber checks if a payment with the receipt number exists
	ExistsByReceiptNumber(ctx context.Context, receiptNumber string) (bool, error)

	// FindByReceiptNumber finds a payment by receipt number
	FindByReceiptNumber(ctx context.Context, receiptNumber string) (*Payment, error)

	// FindPending finds payments still waiting for their invoices whose ID sorts
	// after the given one, in ID order. uuid.Nil starts from the beginning.
	FindPending(ctx context.Context, after uuid.UUID, limit int) ([]*Payment, error)

	// CountPending counts payments waiting for their invoices
	CountPending(ctx context.Context) (int64, error)

	// Save creates or updates a payment
	Save(ctx context.Context, payment *Payment) error
}

// AllocationRepository defines the interface for allocation persistence.
// Allocations are insert-only.
type AllocationRepository interface {
	// Create inserts allocations; duplicates of (payment, invoice) fail with ErrAlreadyExists
	Create(ctx context.Context, allocations ...*Allocation) error

	// ExistsForPair checks if an allocation exists for the payment and invoice
	ExistsForPair(ctx context.Context, paymentID, invoiceID uuid.UUID) (bool, error)

	// FindByInvoiceID lists the allocations of an invoice, oldest first
	FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]*Allocation, error)
}

// CreditNoteFilter defines filtering options for credit note queries
type CreditNoteFilter struct {
	shared.Filter
	Status *CreditNoteStatus
}

// CreditNoteRepository defines the interface for credit note persistence
type CreditNoteRepository interface {
	// FindByID finds a credit note by ID
	FindByID(ctx context.Context, id uuid.UUID) (*CreditNote, error)

	// ExistsByNumber checks if a credit note with the number exists
	ExistsByNumber(ctx context.Context, creditNoteNumber string) (bool, error)

	// FindAll finds credit notes with filtering
	FindAll(ctx context.Context, filter CreditNoteFilter) ([]*CreditNote, int64, error)

	// Save creates or updates a credit note
	Save(ctx context.Context, note *CreditNote) error
}

// DocumentRepository reads the externally owned documents table
type DocumentRepository interface {
	// FindIDsByInvoiceNumbers maps each matched invoice number (as stored on the
	// document) to the document ID
	FindIDsByInvoiceNumbers(ctx context.Context, invoiceNumbers []string) (map[string]uuid.UUID, error)
}

// InvoiceLocker serializes work on invoices by canonical number.
// Keys are de-duplicated and acquired in sorted order.
type InvoiceLocker interface {
	Lock(ctx context.Context, keys ...string) (release func(), err error)
}
