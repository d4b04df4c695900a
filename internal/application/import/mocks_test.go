package importapp

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/notaria/backoffice/internal/domain/billing"
	"github.com/notaria/backoffice/internal/domain/bulk"
	"github.com/notaria/backoffice/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// MockInvoiceRepository is a mock implementation of billing.InvoiceRepository
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
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindUnlinked(ctx context.Context, after uuid.UUID, limit int) ([]*billing.Invoice, error) {
	args := m.Called(ctx, after, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
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
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

// MockPaymentRepository is a mock implementation of billing.PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) ExistsByReceiptNumber(ctx context.Context, receiptNumber string) (bool, error) {
	args := m.Called(ctx, receiptNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepository) FindByReceiptNumber(ctx context.Context, receiptNumber string) (*billing.Payment, error) {
	args := m.Called(ctx, receiptNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindPending(ctx context.Context, after uuid.UUID, limit int) ([]*billing.Payment, error) {
	args := m.Called(ctx, after, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Payment), args.Error(1)
}

func (m *MockPaymentRepository) CountPending(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPaymentRepository) Save(ctx context.Context, payment *billing.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

// MockAllocationRepository is a mock implementation of billing.AllocationRepository
type MockAllocationRepository struct {
	mock.Mock
}

func (m *MockAllocationRepository) Create(ctx context.Context, allocations ...*billing.Allocation) error {
	args := m.Called(ctx, allocations)
	return args.Error(0)
}

func (m *MockAllocationRepository) ExistsForPair(ctx context.Context, paymentID, invoiceID uuid.UUID) (bool, error) {
	args := m.Called(ctx, paymentID, invoiceID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAllocationRepository) FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]*billing.Allocation, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Allocation), args.Error(1)
}

// MockCreditNoteRepository is a mock implementation of billing.CreditNoteRepository
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
	args := m.Called(ctx, note)
	return args.Error(0)
}

// MockDocumentRepository is a mock implementation of billing.DocumentRepository
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) FindIDsByInvoiceNumbers(ctx context.Context, invoiceNumbers []string) (map[string]uuid.UUID, error) {
	args := m.Called(ctx, invoiceNumbers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]uuid.UUID), args.Error(1)
}

// MockImportLogRepository is a mock implementation of bulk.ImportLogRepository
type MockImportLogRepository struct {
	mock.Mock
}

func (m *MockImportLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*bulk.ImportLog, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bulk.ImportLog), args.Error(1)
}

func (m *MockImportLogRepository) FindAll(ctx context.Context, filter bulk.ImportLogFilter) (*shared.Paginated[*bulk.ImportLog], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[*bulk.ImportLog]), args.Error(1)
}

func (m *MockImportLogRepository) FindLatestByDigest(ctx context.Context, digest string) (*bulk.ImportLog, error) {
	args := m.Called(ctx, digest)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bulk.ImportLog), args.Error(1)
}

func (m *MockImportLogRepository) Create(ctx context.Context, log *bulk.ImportLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

// recordingLocker grants every lock and remembers the keys
type recordingLocker struct {
	mu       sync.Mutex
	calls    [][]string
	released int
}

func (l *recordingLocker) Lock(_ context.Context, keys ...string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, append([]string(nil), keys...))
	return func() {
		l.mu.Lock()
		l.released++
		l.mu.Unlock()
	}, nil
}

// fixture bundles the mocks behind a BillingImportService
type fixture struct {
	invoices    *MockInvoiceRepository
	payments    *MockPaymentRepository
	allocations *MockAllocationRepository
	creditNotes *MockCreditNoteRepository
	importLogs  *MockImportLogRepository
	locker      *recordingLocker
}

func newFixture() *fixture {
	return &fixture{
		invoices:    new(MockInvoiceRepository),
		payments:    new(MockPaymentRepository),
		allocations: new(MockAllocationRepository),
		creditNotes: new(MockCreditNoteRepository),
		importLogs:  new(MockImportLogRepository),
		locker:      &recordingLocker{},
	}
}

func (f *fixture) service(documents billing.DocumentRepository, opts ...ServiceOption) *BillingImportService {
	scope := NewNoOpTransactionScope(f.invoices, f.payments, f.allocations, f.creditNotes)
	return NewBillingImportService(scope, f.locker, documents, f.importLogs, opts...)
}

// expectEmptySweep stubs the post-import pending pass with nothing pending
func (f *fixture) expectEmptySweep(stillPending int64) {
	f.payments.On("FindPending", mock.Anything, uuid.Nil, DefaultSweepBatchSize).Return([]*billing.Payment{}, nil)
	f.payments.On("CountPending", mock.Anything).Return(stillPending, nil)
}
