package handler

import (
	"context"

	"github.com/google/uuid"
	billingapp "github.com/notaria/backoffice/internal/application/billing"
	importapp "github.com/notaria/backoffice/internal/application/import"
	"github.com/notaria/backoffice/internal/domain/billing"
	"github.com/notaria/backoffice/internal/domain/bulk"
	"github.com/notaria/backoffice/internal/domain/shared"
	"github.com/notaria/backoffice/internal/infrastructure/scheduler"
	"github.com/stretchr/testify/mock"
)

type MockBillingImporter struct {
	mock.Mock
}

func (m *MockBillingImporter) ImportFile(ctx context.Context, data []byte, filename string, actorID uuid.UUID) (*importapp.ImportResult, error) {
	args := m.Called(ctx, data, filename, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*importapp.ImportResult), args.Error(1)
}

type MockImportLogReader struct {
	mock.Mock
}

func (m *MockImportLogReader) GetLog(ctx context.Context, id uuid.UUID) (*bulk.ImportLog, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bulk.ImportLog), args.Error(1)
}

func (m *MockImportLogReader) ListLogs(ctx context.Context, filter importapp.ListLogsFilter, page, pageSize int) (*shared.Paginated[*bulk.ImportLog], error) {
	args := m.Called(ctx, filter, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[*bulk.ImportLog]), args.Error(1)
}

func (m *MockImportLogReader) PreviousImport(ctx context.Context, data []byte) (*bulk.ImportLog, error) {
	args := m.Called(ctx, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bulk.ImportLog), args.Error(1)
}

func (m *MockImportLogReader) GetErrorsCSV(ctx context.Context, id uuid.UUID) (string, string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.String(1), args.Error(2)
}

type MockLedgerReader struct {
	mock.Mock
}

func (m *MockLedgerReader) GetInvoice(ctx context.Context, rawNumber string) (*billingapp.InvoiceResponse, error) {
	args := m.Called(ctx, rawNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billingapp.InvoiceResponse), args.Error(1)
}

func (m *MockLedgerReader) ListInvoices(ctx context.Context, filter billingapp.InvoiceListFilter) ([]billingapp.InvoiceResponse, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]billingapp.InvoiceResponse), args.Get(1).(int64), args.Error(2)
}

func (m *MockLedgerReader) ListCreditNotes(ctx context.Context, filter billingapp.CreditNoteListFilter) ([]billingapp.CreditNoteResponse, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]billingapp.CreditNoteResponse), args.Get(1).(int64), args.Error(2)
}

type MockCreditNoteResolver struct {
	mock.Mock
}

func (m *MockCreditNoteResolver) ResolveCreditNote(ctx context.Context, id uuid.UUID, resolution billing.CreditNoteResolution, actorID uuid.UUID) (*importapp.CreditNoteResolutionResult, error) {
	args := m.Called(ctx, id, resolution, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*importapp.CreditNoteResolutionResult), args.Error(1)
}

type MockSweepTrigger struct {
	mock.Mock
}

func (m *MockSweepTrigger) TriggerManualRun() error {
	return m.Called().Error(0)
}

func (m *MockSweepTrigger) GetStatus() map[string]any {
	return m.Called().Get(0).(map[string]any)
}

func (m *MockSweepTrigger) LastRun() *scheduler.SweepRun {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*scheduler.SweepRun)
}

var (
	_ BillingImporter    = (*MockBillingImporter)(nil)
	_ ImportLogReader    = (*MockImportLogReader)(nil)
	_ LedgerReader       = (*MockLedgerReader)(nil)
	_ CreditNoteResolver = (*MockCreditNoteResolver)(nil)
	_ SweepTrigger       = (*MockSweepTrigger)(nil)
)
