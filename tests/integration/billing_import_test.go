package integration

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	billingapp "github.com/notaria/backoffice/internal/application/billing"
	importapp "github.com/notaria/backoffice/internal/application/import"
	"github.com/notaria/backoffice/internal/domain/billing"
	"github.com/notaria/backoffice/internal/domain/bulk"
	"github.com/notaria/backoffice/internal/domain/shared"
	"github.com/notaria/backoffice/internal/infrastructure/cache"
	"github.com/notaria/backoffice/internal/infrastructure/migration"
	"github.com/notaria/backoffice/internal/infrastructure/persistence"
	"github.com/notaria/backoffice/migrations"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exportHeader = "tipdoc,numtra,numdoc,valcob,fecemi,codcli,nomcli,concep\n"

func export(lines ...string) []byte {
	return []byte(exportHeader + strings.Join(lines, "\n") + "\n")
}

// BillingTestSetup wires the import and ledger services over a real database
type BillingTestSetup struct {
	DB      *TestDB
	Imports *importapp.BillingImportService
	Ledger  *billingapp.LedgerService
	Logs    *importapp.ImportLogService
}

func NewBillingTestSetup(t *testing.T, db *TestDB, locker billing.InvoiceLocker) *BillingTestSetup {
	t.Helper()

	importLogs := persistence.NewGormImportLogRepository(db.DB)
	return &BillingTestSetup{
		DB: db,
		Imports: importapp.NewBillingImportService(
			persistence.NewGormTransactionScope(db.DB),
			locker,
			persistence.NewGormDocumentRepository(db.DB),
			importLogs,
		),
		Ledger: billingapp.NewLedgerService(
			persistence.NewGormInvoiceRepository(db.DB),
			persistence.NewGormAllocationRepository(db.DB),
			persistence.NewGormCreditNoteRepository(db.DB),
			billing.NewInvoiceNumberNormalizer(),
		),
		Logs: importapp.NewImportLogService(importLogs),
	}
}

func requirePaid(t *testing.T, s *BillingTestSetup, number, want string) *billingapp.InvoiceResponse {
	t.Helper()
	inv, err := s.Ledger.GetInvoice(context.Background(), number)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString(want).Equal(inv.PaidAmount),
		"invoice %s paid %s, want %s", number, inv.PaidAmount, want)
	return inv
}

func TestMigrations_EmbeddedSchema(t *testing.T) {
	db := NewTestDB(t)

	m, err := migration.NewEmbedded(db.SqlDB, nil)
	require.NoError(t, err)

	status, err := m.Status(migrations.FS)
	require.NoError(t, err)
	assert.False(t, status.Pending())
	assert.False(t, status.Dirty)

	for _, table := range []string{"invoices", "payments", "payment_allocations", "credit_notes", "import_logs", "documents"} {
		assert.True(t, db.DB.Migrator().HasTable(table), table)
	}

	t.Run("down and up again", func(t *testing.T) {
		require.NoError(t, m.Down())
		assert.False(t, db.DB.Migrator().HasTable("invoices"))

		require.NoError(t, m.Up())
		version, dirty, err := m.Version()
		require.NoError(t, err)
		assert.False(t, dirty)
		assert.Equal(t, status.Latest, version)
	})
}

func TestMigrations_Constraints(t *testing.T) {
	db := NewSharedTestDB(t)
	db.CleanTables()

	err := db.DB.Exec(`INSERT INTO invoices (id, invoice_number, total_amount, status) VALUES (?, ?, ?, ?)`,
		uuid.New(), "001-002-000000001", "10.00", "OVERDUE").Error
	assert.Error(t, err, "status outside the lifecycle is rejected")

	err = db.DB.Exec(`INSERT INTO payments (id, receipt_number, amount, payment_date, type, imported_at) VALUES (?, ?, ?, ?, ?, NOW())`,
		uuid.New(), "R-1", "-1.00", "2024-03-01", "CASH").Error
	assert.Error(t, err, "negative payments are rejected")
}

func TestBillingImport_Postgres(t *testing.T) {
	db := NewSharedTestDB(t)
	db.CleanTables()
	s := NewBillingTestSetup(t, db, cache.NewInMemoryInvoiceLocker(time.Second))
	ctx := context.Background()
	actor := uuid.New()

	doc := uuid.New()
	db.CreateTestDocument(doc, "001-002-000000001")

	data := export(
		"FC,001-002-000000001,,100.00,2024-03-01,0912345678,ACME SA,",
		"AB,001-002-000000001,R-1,40.00,2024-03-05,,,EFECTIVO",
		"AB,001-002-000000007,R-7,15.00,2024-03-05,,,TRANSFERENCIA",
		"NC,001-002-000000001,NC-77,5.00,2024-03-06,,,NOTA DE CREDITO",
		"FC,001-002-000000003,,abc,2024-03-01,,,",
	)

	first, err := s.Imports.ImportFile(ctx, data, "CXC_marzo.csv", actor)
	require.NoError(t, err)
	assert.Equal(t, bulk.FileTypeCXC, first.FileType)
	assert.Equal(t, 5, first.TotalRows)
	assert.Equal(t, 1, first.InvoicesCreated)
	assert.Equal(t, 2, first.PaymentsCreated)
	assert.Equal(t, 1, first.PaymentsPending)
	assert.Equal(t, 1, first.CreditNotesRecorded)
	assert.Equal(t, 1, first.DocumentsLinked)
	assert.Equal(t, 1, first.Errors)

	inv := requirePaid(t, s, "001-002-000000001", "40")
	assert.Equal(t, string(billing.InvoiceStatusPartial), inv.Status)
	require.NotNil(t, inv.DocumentID)
	assert.Equal(t, doc, *inv.DocumentID)
	require.Len(t, inv.Allocations, 1)
	assert.Equal(t, "R-1", inv.Allocations[0].ReceiptNumber)

	t.Run("reimport is idempotent", func(t *testing.T) {
		second, err := s.Imports.ImportFile(ctx, data, "CXC_marzo.csv", actor)
		require.NoError(t, err)
		assert.Zero(t, second.InvoicesCreated)
		assert.Zero(t, second.PaymentsCreated)
		assert.Equal(t, 2, second.PaymentsSkipped)
		assert.Zero(t, second.CreditNotesRecorded)
		requirePaid(t, s, "001-002-000000001", "40")

		prev, err := s.Logs.PreviousImport(ctx, data)
		require.NoError(t, err)
		assert.Equal(t, second.ImportLogID, prev.ID)
	})

	t.Run("sweep allocates once the invoice arrives", func(t *testing.T) {
		_, err := s.Imports.ImportFile(ctx, export("FC,001-002-000000007,,15.00,2024-03-07,,Banco del Sur,"), "CXC_abril.csv", actor)
		require.NoError(t, err)

		res, err := s.Imports.ResolvePendingPayments(ctx)
		require.NoError(t, err)
		assert.Zero(t, res.StillPending)

		inv := requirePaid(t, s, "001-002-000000007", "15")
		assert.Equal(t, string(billing.InvoiceStatusPaid), inv.Status)
	})

	t.Run("credit notes wait for review", func(t *testing.T) {
		notes, total, err := s.Ledger.ListCreditNotes(ctx, billingapp.CreditNoteListFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, notes, 1)
		assert.Equal(t, string(billing.CreditNoteStatusPendingReview), notes[0].Status)
	})

	t.Run("logs record the row error", func(t *testing.T) {
		log, err := s.Logs.GetLog(ctx, first.ImportLogID)
		require.NoError(t, err)
		assert.Equal(t, bulk.ImportStatusCompletedWithErrors, log.Status)
		require.Len(t, log.ErrorDetails, 1)
		assert.Equal(t, importapp.ContentDigest(data), log.ContentDigest)

		page, err := s.Logs.ListLogs(ctx, importapp.ListLogsFilter{Status: string(bulk.ImportStatusCompletedWithErrors)}, 1, 10)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, page.Total, int64(2))
	})
}

func TestBillingImport_ConcurrentWithRedisLock(t *testing.T) {
	db := NewSharedTestDB(t)
	db.CleanTables()
	client := NewTestRedis(t)

	locker := cache.NewRedisInvoiceLocker(client, 10*time.Second, 10*time.Second,
		cache.WithLockPrefix("koinor:test:"), cache.WithRetryInterval(10*time.Millisecond))
	s := NewBillingTestSetup(t, db, locker)
	ctx := context.Background()

	data := export(
		"FC,001-002-000000001,,100.00,2024-03-01,,ACME SA,",
		"AB,001-002-000000001,R-1,30.00,2024-03-05,,,EFECTIVO",
		"AB,001-002-000000001,R-2,30.00,2024-03-06,,,TRANSFERENCIA",
	)

	const workers = 4
	results := make([]*importapp.ImportResult, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.Imports.ImportFile(ctx, data, "CXC_marzo.csv", uuid.New())
		}(i)
	}
	wg.Wait()

	created, paymentsCreated := 0, 0
	for i := range workers {
		require.NoError(t, errs[i])
		created += results[i].InvoicesCreated
		paymentsCreated += results[i].PaymentsCreated
	}
	assert.Equal(t, 1, created, "one run creates the invoice")
	assert.Equal(t, 2, paymentsCreated, "each receipt is recorded once")

	inv := requirePaid(t, s, "001-002-000000001", "60")
	assert.Len(t, inv.Allocations, 2)

	keys, err := client.Keys(ctx, "koinor:test:*").Result()
	require.NoError(t, err)
	assert.Empty(t, keys, "every lease was released")
}

func TestRedisInvoiceLocker_Contention(t *testing.T) {
	client := NewTestRedis(t)
	ctx := context.Background()

	holder := cache.NewRedisInvoiceLocker(client, 5*time.Second, time.Second)
	waiter := cache.NewRedisInvoiceLocker(client, 5*time.Second, 100*time.Millisecond,
		cache.WithRetryInterval(10*time.Millisecond))

	release, err := holder.Lock(ctx, "001-002-000000001", "001-002-000000002")
	require.NoError(t, err)

	_, err = waiter.Lock(ctx, "001-002-000000002")
	assert.ErrorIs(t, err, shared.ErrLockTimeout)

	release()
	release()

	again, err := waiter.Lock(ctx, "001-002-000000002")
	require.NoError(t, err)
	again()

	require.NoError(t, holder.Ping(ctx))
}
