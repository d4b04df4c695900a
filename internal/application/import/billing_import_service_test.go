package importapp

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/notaria/backoffice/internal/domain/billing"
	"github.com/notaria/backoffice/internal/domain/bulk"
	"github.com/notaria/backoffice/internal/domain/shared"
	sheetimport "github.com/notaria/backoffice/internal/infrastructure/import"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const exportHeader = "tipdoc,numtra,numdoc,valcob,fecemi,codcli,nomcli,concep\n"

func exportCSV(lines ...string) []byte {
	return []byte(exportHeader + strings.Join(lines, "\n") + "\n")
}

func newInvoice(t *testing.T, number, total string) *billing.Invoice {
	t.Helper()
	inv, err := billing.NewInvoice(number, billing.InvoiceDetails{
		ClientName:  "ACME",
		TotalAmount: decimal.RequireFromString(total),
		IssueDate:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return inv
}

func newPendingPayment(t *testing.T, receipt, amount string, refs ...string) *billing.Payment {
	t.Helper()
	p, err := billing.NewPayment(billing.NewPaymentInput{
		ReceiptNumber: receipt,
		Amount:        decimal.RequireFromString(amount),
		PaymentDate:   time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		Type:          billing.PaymentTypeTransfer,
		InvoiceRefs:   refs,
	})
	require.NoError(t, err)
	return p
}

func errorCodes(result *ImportResult) []string {
	codes := make([]string, len(result.ErrorDetails))
	for i, e := range result.ErrorDetails {
		codes[i] = e.Code
	}
	return codes
}

func TestBillingImportService_ImportFile_StructuralFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := f.service(nil)

	f.importLogs.On("Create", mock.Anything, mock.MatchedBy(func(l *bulk.ImportLog) bool {
		return l.Status == bulk.ImportStatusFailed && l.FailureReason != ""
	})).Return(nil)

	result, err := svc.ImportFile(ctx, []byte("foo,bar\n1,2\n"), "CXC_2024.csv", uuid.New())

	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sheetimport.ErrStructuralImportFailure))
	var se *sheetimport.StructuralError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, sheetimport.ErrCodeImportMissingColumns, se.Code)

	f.importLogs.AssertExpectations(t)
	f.invoices.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestBillingImportService_ImportFile_ProcessesRows(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := f.service(nil)
	actorID := uuid.New()

	target := newInvoice(t, "001-002-000123341", "100.00")

	f.invoices.On("FindByNumber", mock.Anything, "001-002-000123341").Return(nil, shared.ErrNotFound)
	f.invoices.On("Save", mock.Anything, mock.AnythingOfType("*billing.Invoice")).Return(nil)
	f.invoices.On("FindByNumbers", mock.Anything, []string{"001-002-000123341"}).Return([]*billing.Invoice{target}, nil)
	f.payments.On("ExistsByReceiptNumber", mock.Anything, "R-1").Return(false, nil)
	f.payments.On("Save", mock.Anything, mock.AnythingOfType("*billing.Payment")).Return(nil)
	f.allocations.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.creditNotes.On("ExistsByNumber", mock.Anything, "NC-77").Return(false, nil)
	f.creditNotes.On("Save", mock.Anything, mock.AnythingOfType("*billing.CreditNote")).Return(nil)
	f.expectEmptySweep(0)
	f.importLogs.On("Create", mock.Anything, mock.AnythingOfType("*bulk.ImportLog")).Return(nil)

	data := exportCSV(
		"FC,001-002-000123341,,100.00,2024-03-01,0912345678,ACME,",
		"AB,001-002-000123341,R-1,40.00,2024-03-05,0912345678,ACME,TRANSFERENCIA",
		"NC,001-002-000123341,NC-77,5.00,2024-03-06,0912345678,ACME,NOTA DE CREDITO",
		"XX,1,,1,,,,",
		"FC,ABC,,10,,,,",
		"FC,001-002-000123342,,abc,,,,",
	)

	result, err := svc.ImportFile(ctx, data, "CXC_marzo.csv", actorID)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, bulk.FileTypeCXC, result.FileType)
	assert.Equal(t, "csv", result.Format)
	assert.Equal(t, 6, result.TotalRows)
	assert.Equal(t, 1, result.InvoicesCreated)
	assert.Equal(t, 0, result.InvoicesUpdated)
	assert.Equal(t, 1, result.PaymentsCreated)
	assert.Equal(t, 1, result.CreditNotesRecorded)
	assert.Equal(t, 0, result.PaymentsPending)
	assert.Equal(t, 3, result.Errors)
	assert.ElementsMatch(t, []string{
		sheetimport.ErrCodeImportUnrecognizedRow,
		sheetimport.ErrCodeImportMalformedInvoiceNumber,
		sheetimport.ErrCodeImportInvalidAmount,
	}, errorCodes(result))
	assert.Empty(t, result.Warnings)

	assert.True(t, target.PaidAmount.Equal(decimal.RequireFromString("40")))
	assert.Equal(t, billing.InvoiceStatusPartial, target.Status)

	assert.Contains(t, f.locker.calls, []string{"receipt:R-1", "001-002-000123341"})
	assert.Contains(t, f.locker.calls, []string{"credit-note:NC-77"})
	assert.Equal(t, len(f.locker.calls), f.locker.released)

	f.importLogs.AssertCalled(t, "Create", mock.Anything, mock.MatchedBy(func(l *bulk.ImportLog) bool {
		return l.Status == bulk.ImportStatusCompletedWithErrors && l.Counters.Errors == 3 && l.ActorID == actorID
	}))
}

func TestBillingImportService_ImportFile_UpdatesExistingInvoice(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := f.service(nil)

	existing := newInvoice(t, "001-002-000123341", "100.00")

	f.invoices.On("FindByNumber", mock.Anything, "001-002-000123341").Return(existing, nil)
	f.invoices.On("Save", mock.Anything, existing).Return(nil)
	f.expectEmptySweep(0)
	f.importLogs.On("Create", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.ImportFile(ctx, exportCSV("FC,001002-00123341,,120.00,2024-03-01,0912345678,ACME SA,"), "cxc.csv", uuid.New())
	require.NoError(t, err)

	assert.Equal(t, 0, result.InvoicesCreated)
	assert.Equal(t, 1, result.InvoicesUpdated)
	assert.True(t, existing.TotalAmount.Equal(decimal.RequireFromString("120")))
	assert.Equal(t, "ACME SA", existing.ClientName)
	assert.Equal(t, "001002-00123341", existing.RawInvoiceNumber)
	f.invoices.AssertCalled(t, "Save", mock.Anything, existing)
}

func TestBillingImportService_ImportFile_SkipsKnownReceipt(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := f.service(nil)

	f.payments.On("ExistsByReceiptNumber", mock.Anything, "R-1").Return(true, nil)
	f.expectEmptySweep(0)
	f.importLogs.On("Create", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.ImportFile(ctx, exportCSV("AB,001-002-000123341,R-1,40.00,2024-03-05,,,"), "cxc.csv", uuid.New())
	require.NoError(t, err)

	assert.Equal(t, 0, result.PaymentsCreated)
	assert.Equal(t, 1, result.PaymentsSkipped)
	f.payments.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	f.allocations.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestBillingImportService_ImportFile_PaymentWaitsForInvoice(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := f.service(nil)

	f.payments.On("ExistsByReceiptNumber", mock.Anything, "R-9").Return(false, nil)
	f.payments.On("Save", mock.Anything, mock.MatchedBy(func(p *billing.Payment) bool {
		return p.IsPending()
	})).Return(nil)
	f.invoices.On("FindByNumbers", mock.Anything, []string{"001-002-000000009"}).Return([]*billing.Invoice{}, nil)
	f.expectEmptySweep(1)
	f.importLogs.On("Create", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.ImportFile(ctx, exportCSV("AB,001-002-000000009,R-9,12.50,2024-03-05,,,"), "cxc.csv", uuid.New())
	require.NoError(t, err)

	assert.Equal(t, 1, result.PaymentsCreated)
	assert.Equal(t, 1, result.PaymentsPending)
	f.payments.AssertNumberOfCalls(t, "Save", 1)
	f.allocations.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestBillingImportService_ImportFile_DiscountWithoutReceipt(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := f.service(nil)

	target := newInvoice(t, "001-002-000123341", "100.00")
	expectedReceipt := billing.SyntheticReceiptPrefix + "001-002-000123341-" +
		billing.ShortHash(decimal.RequireFromString("10"), time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))

	f.payments.On("ExistsByReceiptNumber", mock.Anything, expectedReceipt).Return(false, nil)
	f.payments.On("Save", mock.Anything, mock.MatchedBy(func(p *billing.Payment) bool {
		return p.IsSynthetic && p.Type == billing.PaymentTypeAdjustment
	})).Return(nil)
	f.invoices.On("FindByNumbers", mock.Anything, []string{"001-002-000123341"}).Return([]*billing.Invoice{target}, nil)
	f.invoices.On("Save", mock.Anything, target).Return(nil)
	f.allocations.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.expectEmptySweep(0)
	f.importLogs.On("Create", mock.Anything, mock.Anything).Return(nil)

	data := exportCSV(
		"AB,001-002-000123341,,10.00,2024-03-05,,,DESCUENTO POR PRONTO PAGO",
		"AB,001-002-000123341,,10.00,2024-03-05,,,TRANSFERENCIA",
	)
	result, err := svc.ImportFile(ctx, data, "cxc.csv", uuid.New())
	require.NoError(t, err)

	assert.Equal(t, 1, result.PaymentsCreated)
	require.Equal(t, 1, result.Errors)
	assert.Equal(t, sheetimport.ErrCodeImportMissingReceiptNumber, result.ErrorDetails[0].Code)
	assert.Equal(t, 3, result.ErrorDetails[0].Row)
	assert.True(t, target.PaidAmount.Equal(decimal.RequireFromString("10")))
}

func TestBillingImportService_ImportFile_OverflowWarning(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := f.service(nil)

	target := newInvoice(t, "001-002-000123341", "100.00")

	f.payments.On("ExistsByReceiptNumber", mock.Anything, "R-2").Return(false, nil)
	f.payments.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.invoices.On("FindByNumbers", mock.Anything, []string{"001-002-000123341"}).Return([]*billing.Invoice{target}, nil)
	f.invoices.On("Save", mock.Anything, target).Return(nil)
	f.allocations.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.expectEmptySweep(0)
	f.importLogs.On("Create", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.ImportFile(ctx, exportCSV("AB,001-002-000123341,R-2,150.00,2024-03-05,,,"), "cxc.csv", uuid.New())
	require.NoError(t, err)

	require.Len(t, result.Warnings, 1)
	w := result.Warnings[0]
	assert.Equal(t, sheetimport.WarnCodeAllocationOverflow, w.Code)
	assert.Equal(t, "001-002-000123341", w.InvoiceNumber)
	assert.Equal(t, "R-2", w.ReceiptNumber)
	assert.Equal(t, billing.InvoiceStatusPaid, target.Status)
	assert.Equal(t, 0, result.Errors)
}

func TestBillingImportService_ImportFile_StorageFailureAborts(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := f.service(nil)

	f.invoices.On("FindByNumber", mock.Anything, "001-002-000000001").Return(nil, shared.ErrNotFound)
	f.invoices.On("Save", mock.Anything, mock.Anything).Return(errors.New("connection reset"))
	f.importLogs.On("Create", mock.Anything, mock.MatchedBy(func(l *bulk.ImportLog) bool {
		return l.Status == bulk.ImportStatusFailed && strings.Contains(l.FailureReason, "connection reset")
	})).Return(nil)

	data := exportCSV(
		"FC,001-002-000000001,,10.00,,,,",
		"FC,001-002-000000002,,20.00,,,,",
	)
	result, err := svc.ImportFile(ctx, data, "cxc.csv", uuid.New())

	assert.Nil(t, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
	f.invoices.AssertNumberOfCalls(t, "FindByNumber", 1)
	f.importLogs.AssertExpectations(t)
}

func TestBillingImportService_ImportFile_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := newFixture()
	svc := f.service(nil)

	f.importLogs.On("Create", mock.Anything, mock.MatchedBy(func(l *bulk.ImportLog) bool {
		return l.Status == bulk.ImportStatusFailed
	})).Return(nil)

	result, err := svc.ImportFile(ctx, exportCSV("FC,001-002-000000001,,10.00,,,,"), "cxc.csv", uuid.New())
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
	f.invoices.AssertNotCalled(t, "FindByNumber", mock.Anything, mock.Anything)
}

func TestBillingImportService_ImportFile_ArchiveFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	archive := &stubArchive{err: errors.New("bucket unavailable")}
	svc := f.service(nil, WithArchive(archive))

	f.expectEmptySweep(0)
	f.importLogs.On("Create", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.ImportFile(ctx, exportCSV("ZZ,1,,1,,,,"), "cxc.csv", uuid.New())
	require.NoError(t, err)
	assert.Empty(t, result.ArchiveKey)
	assert.Equal(t, 1, archive.calls)
}

func TestBillingImportService_ResolvePendingPayments(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := f.service(nil)

	inv := newInvoice(t, "001-002-000000009", "50.00")
	pending := newPendingPayment(t, "R-9", "50.00", "001-002-000000009")

	f.payments.On("FindPending", mock.Anything, uuid.Nil, DefaultSweepBatchSize).Return([]*billing.Payment{pending}, nil)
	f.payments.On("FindByReceiptNumber", mock.Anything, "R-9").Return(pending, nil)
	f.invoices.On("FindByNumbers", mock.Anything, []string{"001-002-000000009"}).Return([]*billing.Invoice{inv}, nil)
	f.allocations.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.invoices.On("Save", mock.Anything, inv).Return(nil)
	f.payments.On("Save", mock.Anything, pending).Return(nil)
	f.payments.On("CountPending", mock.Anything).Return(int64(0), nil)

	result, err := svc.ResolvePendingPayments(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Examined)
	assert.Equal(t, 1, result.Allocated)
	assert.Equal(t, int64(0), result.StillPending)
	assert.False(t, pending.IsPending())
	assert.Equal(t, billing.InvoiceStatusPaid, inv.Status)
}

func TestBillingImportService_LinkDocuments(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	docs := new(MockDocumentRepository)
	svc := f.service(docs)

	inv := newInvoice(t, "001-002-000123341", "10.00")
	docID := uuid.New()

	f.invoices.On("FindUnlinked", mock.Anything, uuid.Nil, DefaultLinkBatchSize).Return([]*billing.Invoice{inv}, nil)
	docs.On("FindIDsByInvoiceNumbers", mock.Anything, []string{"001-002-000123341", "001002-00123341"}).
		Return(map[string]uuid.UUID{"001002-00123341": docID}, nil)
	f.invoices.On("FindByNumber", mock.Anything, "001-002-000123341").Return(inv, nil)
	f.invoices.On("Save", mock.Anything, inv).Return(nil)

	linked, err := svc.LinkDocuments(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, linked)
	require.NotNil(t, inv.DocumentID)
	assert.Equal(t, docID, *inv.DocumentID)
}

func TestBillingImportService_SweepPagesPastBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("pending payments", func(t *testing.T) {
		f := newFixture()
		svc := f.service(nil, WithSweepBatchSize(1))

		orphan := newPendingPayment(t, "R-9", "10.00", "001-002-000000009")
		waiting := newPendingPayment(t, "R-1", "50.00", "001-002-000000001")
		inv := newInvoice(t, "001-002-000000001", "50.00")

		f.payments.On("FindPending", mock.Anything, uuid.Nil, 1).Return([]*billing.Payment{orphan}, nil)
		f.payments.On("FindPending", mock.Anything, orphan.ID, 1).Return([]*billing.Payment{waiting}, nil)
		f.payments.On("FindPending", mock.Anything, waiting.ID, 1).Return([]*billing.Payment{}, nil)
		f.payments.On("FindByReceiptNumber", mock.Anything, "R-9").Return(orphan, nil)
		f.payments.On("FindByReceiptNumber", mock.Anything, "R-1").Return(waiting, nil)
		f.invoices.On("FindByNumbers", mock.Anything, []string{"001-002-000000009"}).Return([]*billing.Invoice{}, nil)
		f.invoices.On("FindByNumbers", mock.Anything, []string{"001-002-000000001"}).Return([]*billing.Invoice{inv}, nil)
		f.allocations.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.invoices.On("Save", mock.Anything, inv).Return(nil)
		f.payments.On("Save", mock.Anything, waiting).Return(nil)
		f.payments.On("CountPending", mock.Anything).Return(int64(1), nil)

		result, err := svc.ResolvePendingPayments(ctx)
		require.NoError(t, err)

		assert.Equal(t, 2, result.Examined)
		assert.Equal(t, 1, result.Allocated)
		assert.Equal(t, int64(1), result.StillPending)
		assert.True(t, orphan.IsPending())
		assert.Equal(t, billing.InvoiceStatusPaid, inv.Status)
		f.payments.AssertExpectations(t)
	})

	t.Run("unlinked invoices", func(t *testing.T) {
		f := newFixture()
		docs := new(MockDocumentRepository)
		svc := f.service(docs, WithLinkBatchSize(1))

		first := newInvoice(t, "001-002-000000001", "10.00")
		second := newInvoice(t, "001-002-000000002", "10.00")
		docID := uuid.New()

		f.invoices.On("FindUnlinked", mock.Anything, uuid.Nil, 1).Return([]*billing.Invoice{first}, nil)
		f.invoices.On("FindUnlinked", mock.Anything, first.ID, 1).Return([]*billing.Invoice{second}, nil)
		f.invoices.On("FindUnlinked", mock.Anything, second.ID, 1).Return([]*billing.Invoice{}, nil)
		docs.On("FindIDsByInvoiceNumbers", mock.Anything, []string{"001-002-000000001", "001002-00000001"}).
			Return(map[string]uuid.UUID{}, nil)
		docs.On("FindIDsByInvoiceNumbers", mock.Anything, []string{"001-002-000000002", "001002-00000002"}).
			Return(map[string]uuid.UUID{"001-002-000000002": docID}, nil)
		f.invoices.On("FindByNumber", mock.Anything, "001-002-000000002").Return(second, nil)
		f.invoices.On("Save", mock.Anything, second).Return(nil)

		linked, err := svc.LinkDocuments(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, linked)
		require.NotNil(t, second.DocumentID)
		assert.Equal(t, docID, *second.DocumentID)
		assert.Nil(t, first.DocumentID)
		f.invoices.AssertExpectations(t)
	})
}

func TestBillingImportService_ResolveCreditNote(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New()

	newNote := func(t *testing.T) *billing.CreditNote {
		note, err := billing.NewCreditNote(billing.NewCreditNoteInput{
			CreditNoteNumber: "77",
			InvoiceNumber:    "001-002-000123341",
			Amount:           decimal.RequireFromString("5.00"),
		})
		require.NoError(t, err)
		return note
	}

	t.Run("apply allocates an adjustment payment", func(t *testing.T) {
		f := newFixture()
		svc := f.service(nil)
		note := newNote(t)
		inv := newInvoice(t, "001-002-000123341", "100.00")

		f.creditNotes.On("FindByID", mock.Anything, note.ID).Return(note, nil)
		f.payments.On("ExistsByReceiptNumber", mock.Anything, "NC-77").Return(false, nil)
		f.payments.On("Save", mock.Anything, mock.Anything).Return(nil)
		f.invoices.On("FindByNumbers", mock.Anything, []string{"001-002-000123341"}).Return([]*billing.Invoice{inv}, nil)
		f.allocations.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.invoices.On("Save", mock.Anything, inv).Return(nil)
		f.creditNotes.On("Save", mock.Anything, note).Return(nil)

		result, err := svc.ResolveCreditNote(ctx, note.ID, billing.CreditNoteResolutionApply, actorID)
		require.NoError(t, err)

		assert.Equal(t, billing.CreditNoteStatusApplied, result.CreditNote.Status)
		require.NotNil(t, result.Payment)
		assert.Equal(t, "NC-77", result.Payment.ReceiptNumber)
		assert.Equal(t, billing.PaymentTypeAdjustment, result.Payment.Type)
		require.Len(t, result.Allocations, 1)
		assert.True(t, inv.PaidAmount.Equal(decimal.RequireFromString("5")))
		assert.Contains(t, f.locker.calls, []string{"001-002-000123341", "receipt:NC-77"})
	})

	t.Run("dismiss records no payment", func(t *testing.T) {
		f := newFixture()
		svc := f.service(nil)
		note := newNote(t)

		f.creditNotes.On("FindByID", mock.Anything, note.ID).Return(note, nil)
		f.creditNotes.On("Save", mock.Anything, note).Return(nil)

		result, err := svc.ResolveCreditNote(ctx, note.ID, billing.CreditNoteResolutionDismiss, actorID)
		require.NoError(t, err)

		assert.Equal(t, billing.CreditNoteStatusDismissed, result.CreditNote.Status)
		assert.Nil(t, result.Payment)
		f.payments.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("already resolved", func(t *testing.T) {
		f := newFixture()
		svc := f.service(nil)
		note := newNote(t)
		require.NoError(t, note.Resolve(billing.CreditNoteResolutionDismiss, actorID))

		f.creditNotes.On("FindByID", mock.Anything, note.ID).Return(note, nil)

		_, err := svc.ResolveCreditNote(ctx, note.ID, billing.CreditNoteResolutionApply, actorID)
		assert.ErrorIs(t, err, billing.ErrCreditNoteResolved)
		assert.Empty(t, f.locker.calls)
	})

	t.Run("not found", func(t *testing.T) {
		f := newFixture()
		svc := f.service(nil)
		id := uuid.New()
		f.creditNotes.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

		_, err := svc.ResolveCreditNote(ctx, id, billing.CreditNoteResolutionApply, actorID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestContentDigest(t *testing.T) {
	a := ContentDigest([]byte("tipdoc,numtra\n"))
	assert.Len(t, a, 64)
	assert.Equal(t, a, ContentDigest([]byte("tipdoc,numtra\n")))
	assert.NotEqual(t, a, ContentDigest([]byte("tipdoc,numtra\n\n")))
}

type stubArchive struct {
	calls int
	key   string
	err   error
}

func (a *stubArchive) Archive(_ context.Context, _, _ string, _ []byte) (string, error) {
	a.calls++
	return a.key, a.err
}
