package billingapp

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/notaria/backoffice/internal/domain/billing"
	"github.com/notaria/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByNumber(ctx context.Context, invoiceNumber string) (*billing.Invoice, error) {
	args := m.Called(ctx, invoiceNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByNumbers(ctx context.Context, invoiceNumbers []string) ([]*billing.Invoice, error) {
	args := m.Called(ctx, invoiceNumbers)
	return args.Get(0).([]*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindUnlinked(ctx context.Context, after uuid.UUID, limit int) ([]*billing.Invoice, error) {
	args := m.Called(ctx, after, limit)
	return args.Get(0).([]*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindAll(ctx context.Context, filter billing.InvoiceFilter) ([]*billing.Invoice, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*billing.Invoice), args.Get(1).(int64), args.Error(2)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	return m.Called(ctx, invoice).Error(0)
}

type MockAllocationRepository struct {
	mock.Mock
}

func (m *MockAllocationRepository) Create(ctx context.Context, allocations ...*billing.Allocation) error {
	return m.Called(ctx, allocations).Error(0)
}

func (m *MockAllocationRepository) ExistsForPair(ctx context.Context, paymentID, invoiceID uuid.UUID) (bool, error) {
	args := m.Called(ctx, paymentID, invoiceID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAllocationRepository) FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]*billing.Allocation, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).([]*billing.Allocation), args.Error(1)
}

type MockCreditNoteRepository struct {
	mock.Mock
}

func (m *MockCreditNoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.CreditNote, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CreditNote), args.Error(1)
}

func (m *MockCreditNoteRepository) ExistsByNumber(ctx context.Context, creditNoteNumber string) (bool, error) {
	args := m.Called(ctx, creditNoteNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockCreditNoteRepository) FindAll(ctx context.Context, filter billing.CreditNoteFilter) ([]*billing.CreditNote, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*billing.CreditNote), args.Get(1).(int64), args.Error(2)
}

func (m *MockCreditNoteRepository) Save(ctx context.Context, note *billing.CreditNote) error {
	return m.Called(ctx, note).Error(0)
}

func setupLedger() (*LedgerService, *MockInvoiceRepository, *MockAllocationRepository, *MockCreditNoteRepository) {
	invoices := new(MockInvoiceRepository)
	allocations := new(MockAllocationRepository)
	notes := new(MockCreditNoteRepository)
	return NewLedgerService(invoices, allocations, notes, nil), invoices, allocations, notes
}

func TestLedgerService_GetInvoice(t *testing.T) {
	ctx := context.Background()

	t.Run("accepts the compact spelling", func(t *testing.T) {
		svc, invoices, allocations, _ := setupLedger()
		inv, err := billing.NewInvoice("001-002-000123341", billing.InvoiceDetails{
			TotalAmount: decimal.NewFromInt(100),
			IssueDate:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		require.NoError(t, inv.ApplyAllocation(decimal.NewFromInt(40)))

		alloc := &billing.Allocation{ID: uuid.New(), InvoiceID: inv.ID, ReceiptNumber: "R-1", Amount: decimal.NewFromInt(40)}
		invoices.On("FindByNumber", ctx, "001-002-000123341").Return(inv, nil)
		allocations.On("FindByInvoiceID", ctx, inv.ID).Return([]*billing.Allocation{alloc}, nil)

		resp, err := svc.GetInvoice(ctx, "001002-00123341")
		require.NoError(t, err)

		assert.Equal(t, "001-002-000123341", resp.InvoiceNumber)
		assert.Equal(t, "PARTIAL", resp.Status)
		assert.True(t, resp.OutstandingAmount.Equal(decimal.NewFromInt(60)))
		assert.True(t, resp.PaidPercentage.Equal(decimal.NewFromInt(40)))
		require.NotNil(t, resp.IssueDate)
		require.Len(t, resp.Allocations, 1)
		assert.Equal(t, "R-1", resp.Allocations[0].ReceiptNumber)
	})

	t.Run("malformed number", func(t *testing.T) {
		svc, invoices, _, _ := setupLedger()
		_, err := svc.GetInvoice(ctx, "no-digits")
		assert.ErrorIs(t, err, billing.ErrMalformedInvoiceNumber)
		invoices.AssertNotCalled(t, "FindByNumber", mock.Anything, mock.Anything)
	})

	t.Run("not found", func(t *testing.T) {
		svc, invoices, _, _ := setupLedger()
		invoices.On("FindByNumber", ctx, "001-002-000000001").Return(nil, shared.ErrNotFound)
		_, err := svc.GetInvoice(ctx, "001-002-000000001")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("bare sequential uses the default series", func(t *testing.T) {
		svc, invoices, _, _ := setupLedger()
		invoices.On("FindByNumber", ctx, "001-001-000124370").Return(nil, shared.ErrNotFound)
		_, err := svc.GetInvoice(ctx, "124370")
		assert.ErrorIs(t, err, shared.ErrNotFound)
		invoices.AssertExpectations(t)
	})
}

func TestLedgerService_ListInvoices(t *testing.T) {
	ctx := context.Background()
	svc, invoices, _, _ := setupLedger()

	invoices.On("FindAll", ctx, mock.MatchedBy(func(f billing.InvoiceFilter) bool {
		return f.Status != nil && *f.Status == billing.InvoiceStatusPaid && f.Page == 1
	})).Return([]*billing.Invoice{}, int64(0), nil)

	items, total, err := svc.ListInvoices(ctx, InvoiceListFilter{Status: "PAID", Page: 1})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, int64(0), total)

	_, _, err = svc.ListInvoices(ctx, InvoiceListFilter{Status: "OVERDUE"})
	assert.Error(t, err)
}

func TestLedgerService_ListCreditNotes(t *testing.T) {
	ctx := context.Background()
	svc, _, _, notes := setupLedger()

	note, err := billing.NewCreditNote(billing.NewCreditNoteInput{
		CreditNoteNumber: "NC-1",
		InvoiceNumber:    "001-002-000000001",
		Amount:           decimal.NewFromInt(5),
	})
	require.NoError(t, err)

	notes.On("FindAll", ctx, mock.MatchedBy(func(f billing.CreditNoteFilter) bool {
		return f.Status != nil && *f.Status == billing.CreditNoteStatusPendingReview
	})).Return([]*billing.CreditNote{note}, int64(1), nil)

	items, total, err := svc.ListCreditNotes(ctx, CreditNoteListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, "PENDING_REVIEW", items[0].Status)
	assert.Nil(t, items[0].IssueDate)
}
