package importapp

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/notaria/backoffice/internal/domain/billing"
	"github.com/notaria/backoffice/internal/domain/bulk"
	"github.com/notaria/backoffice/internal/domain/shared"
	sheetimport "github.com/notaria/backoffice/internal/infrastructure/import"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

// Default batch sizes for the post-import passes
const (
	DefaultSweepBatchSize = 500
	DefaultLinkBatchSize  = 500
)

// Prefixes namespacing non-invoice keys in the invoice locker
const (
	receiptLockPrefix    = "receipt:"
	creditNoteLockPrefix = "credit-note:"
)

// ExportArchive keeps the raw bytes of every imported export
type ExportArchive interface {
	// Archive stores data and returns the key it was stored under
	Archive(ctx context.Context, digest, filename string, data []byte) (string, error)
}

// ImportMetrics records import outcomes
type ImportMetrics interface {
	RecordImport(ctx context.Context, result *ImportResult, status bulk.ImportStatus, duration time.Duration)
	RecordSweep(ctx context.Context, result *SweepResult)
}

// BillingImportService imports Koinor exports into the receivables ledger.
type BillingImportService struct {
	txScope    TransactionScope
	locker     billing.InvoiceLocker
	documents  billing.DocumentRepository
	importLogs bulk.ImportLogRepository

	reader     *sheetimport.Reader
	classifier *RowClassifier
	matcher    *billing.ReceiptMatcher
	engine     *billing.AllocationEngine
	archive    ExportArchive
	metrics    ImportMetrics
	logger     *zap.Logger

	maxErrorDetails int
	sweepBatchSize  int
	linkBatchSize   int
}

// ServiceOption configures a BillingImportService
type ServiceOption func(*BillingImportService)

// WithReader sets the export reader
func WithReader(r *sheetimport.Reader) ServiceOption {
	return func(s *BillingImportService) {
		if r != nil {
			s.reader = r
		}
	}
}

// WithNormalizer sets the invoice number normalizer used by the row classifier
func WithNormalizer(n *billing.InvoiceNumberNormalizer) ServiceOption {
	return func(s *BillingImportService) {
		s.classifier = NewRowClassifier(n)
	}
}

// WithReceiptMatcher sets the receipt matcher
func WithReceiptMatcher(m *billing.ReceiptMatcher) ServiceOption {
	return func(s *BillingImportService) {
		if m != nil {
			s.matcher = m
		}
	}
}

// WithAllocationEngine sets the allocation engine
func WithAllocationEngine(e *billing.AllocationEngine) ServiceOption {
	return func(s *BillingImportService) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithArchive enables archiving of raw exports
func WithArchive(a ExportArchive) ServiceOption {
	return func(s *BillingImportService) {
		s.archive = a
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m ImportMetrics) ServiceOption {
	return func(s *BillingImportService) {
		s.metrics = m
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *BillingImportService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxErrorDetails caps the row errors kept in results and logs
func WithMaxErrorDetails(n int) ServiceOption {
	return func(s *BillingImportService) {
		if n > 0 {
			s.maxErrorDetails = n
		}
	}
}

// WithSweepBatchSize sets the page size used when walking pending payments
func WithSweepBatchSize(n int) ServiceOption {
	return func(s *BillingImportService) {
		if n > 0 {
			s.sweepBatchSize = n
		}
	}
}

// WithLinkBatchSize sets the page size used when walking unlinked invoices
func WithLinkBatchSize(n int) ServiceOption {
	return func(s *BillingImportService) {
		if n > 0 {
			s.linkBatchSize = n
		}
	}
}

// NewBillingImportService creates a new BillingImportService.
// documents may be nil, in which case document linking is skipped.
func NewBillingImportService(
	txScope TransactionScope,
	locker billing.InvoiceLocker,
	documents billing.DocumentRepository,
	importLogs bulk.ImportLogRepository,
	opts ...ServiceOption,
) *BillingImportService {
	s := &BillingImportService{
		txScope:         txScope,
		locker:          locker,
		documents:       documents,
		importLogs:      importLogs,
		reader:          sheetimport.NewReader(),
		classifier:      NewRowClassifier(nil),
		matcher:         billing.NewReceiptMatcher(nil),
		engine:          billing.NewAllocationEngine(),
		logger:          zap.NewNop(),
		maxErrorDetails: bulk.DefaultMaxErrorDetails,
		sweepBatchSize:  DefaultSweepBatchSize,
		linkBatchSize:   DefaultLinkBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// importRun is the mutable state of one ImportFile call
type importRun struct {
	result  *ImportResult
	errors  *sheetimport.ErrorCollection
	source  string
	actorID uuid.UUID
	logger  *zap.Logger
}

func (r *importRun) addRowError(err error) {
	var rowErr sheetimport.RowError
	if !errors.As(err, &rowErr) {
		rowErr = sheetimport.NewRowError(0, "", sheetimport.ErrCodeImportInvalidFile, err.Error())
	}
	r.errors.Add(rowErr)
	r.logger.Debug("Row rejected",
		zap.Int("row", rowErr.Row),
		zap.String("column", rowErr.Column),
		zap.String("code", rowErr.Code),
		zap.String("message", rowErr.Message),
	)
}

func (r *importRun) addWarnings(ws []bulk.ImportWarning) {
	for _, w := range ws {
		r.logger.Warn("Allocation overflow",
			zap.String("invoice", w.InvoiceNumber),
			zap.String("receipt", w.ReceiptNumber),
			zap.String("detail", w.Message),
		)
	}
	r.result.Warnings = append(r.result.Warnings, ws...)
}

// ImportFile imports one export. Structural failures return a
// *sheetimport.StructuralError and no result. A storage failure aborts the
// run; rows before it stay committed.
func (s *BillingImportService) ImportFile(ctx context.Context, data []byte, filename string, actorID uuid.UUID) (*ImportResult, error) {
	started := time.Now()
	digest := ContentDigest(data)
	fileType := sheetimport.DetectFileType(filename)

	importLog, err := bulk.NewImportLog(filename, fileType, int64(len(data)), digest, actorID)
	if err != nil {
		return nil, err
	}
	log := s.logger.With(
		zap.String("import_id", importLog.ID.String()),
		zap.String("file", filename),
	)
	log.Info("Import started",
		zap.String("file_type", string(fileType)),
		zap.Int("size", len(data)),
		zap.String("digest", digest),
	)

	result := &ImportResult{
		ImportLogID:  importLog.ID,
		FileName:     filename,
		FileType:     fileType,
		ErrorDetails: []sheetimport.RowError{},
		Warnings:     []bulk.ImportWarning{},
	}

	table, err := s.reader.Read(ctx, data, filename)
	if err != nil {
		var se *sheetimport.StructuralError
		if errors.As(err, &se) {
			log.Warn("Structural import failure", zap.String("code", se.Code), zap.Error(err))
		}
		s.fail(ctx, log, importLog, result, err, started)
		return nil, err
	}
	result.Format = string(table.Format)
	result.TotalRows = len(table.Rows)

	if s.archive != nil {
		key, err := s.archive.Archive(ctx, digest, filename, data)
		if err != nil {
			log.Warn("Failed to archive export", zap.Error(err))
		} else {
			result.ArchiveKey = key
			_ = importLog.SetArchiveKey(key)
		}
	}

	run := &importRun{
		result:  result,
		errors:  sheetimport.NewErrorCollection(s.maxErrorDetails),
		source:  filename,
		actorID: actorID,
		logger:  log,
	}

	for _, row := range table.Rows {
		select {
		case <-ctx.Done():
			s.collect(run)
			s.fail(ctx, log, importLog, result, ctx.Err(), started)
			return nil, ctx.Err()
		default:
		}

		if err := s.importRow(ctx, run, row); err != nil {
			log.Error("Import aborted", zap.Int("row", row.LineNumber), zap.Error(err))
			s.collect(run)
			s.fail(ctx, log, importLog, result, err, started)
			return nil, fmt.Errorf("failed to import row %d: %w", row.LineNumber, err)
		}
	}

	sweep, err := s.ResolvePendingPayments(ctx)
	if err != nil {
		s.collect(run)
		s.fail(ctx, log, importLog, result, err, started)
		return nil, fmt.Errorf("failed to resolve pending payments: %w", err)
	}
	run.addWarnings(sweep.Warnings)
	result.PaymentsPending = int(sweep.StillPending)

	linked, err := s.LinkDocuments(ctx)
	if err != nil {
		s.collect(run)
		s.fail(ctx, log, importLog, result, err, started)
		return nil, fmt.Errorf("failed to link documents: %w", err)
	}
	result.DocumentsLinked = linked

	s.collect(run)
	result.Duration = time.Since(started)
	if err := importLog.Complete(result.ImportCounters, errorDetails(result.ErrorDetails), result.Warnings, s.maxErrorDetails); err != nil {
		return nil, err
	}
	if err := s.importLogs.Create(ctx, importLog); err != nil {
		return nil, fmt.Errorf("failed to save import log: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordImport(ctx, result, importLog.Status, result.Duration)
	}

	log.Info("Import finished",
		zap.String("status", string(importLog.Status)),
		zap.Int("total_rows", result.TotalRows),
		zap.Int("invoices_created", result.InvoicesCreated),
		zap.Int("invoices_updated", result.InvoicesUpdated),
		zap.Int("payments_created", result.PaymentsCreated),
		zap.Int("payments_skipped", result.PaymentsSkipped),
		zap.Int("credit_notes_recorded", result.CreditNotesRecorded),
		zap.Int("payments_pending", result.PaymentsPending),
		zap.Int("documents_linked", result.DocumentsLinked),
		zap.Int("errors", result.Errors),
		zap.Int("warnings", len(result.Warnings)),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// collect copies the error collection into the result
func (s *BillingImportService) collect(run *importRun) {
	run.result.Errors = run.errors.TotalCount()
	run.result.ErrorDetails = append([]sheetimport.RowError{}, run.errors.Errors()...)
	run.result.Truncated = run.errors.IsTruncated()
}

// fail persists a FAILED import log. The log is written even when ctx is
// already cancelled.
func (s *BillingImportService) fail(ctx context.Context, log *zap.Logger, importLog *bulk.ImportLog, result *ImportResult, cause error, started time.Time) {
	result.Duration = time.Since(started)
	if err := importLog.Fail(cause.Error(), result.ImportCounters); err != nil {
		log.Error("Failed to finish import log", zap.Error(err))
		return
	}
	saveCtx := context.WithoutCancel(ctx)
	if err := s.importLogs.Create(saveCtx, importLog); err != nil {
		log.Error("Failed to save import log", zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.RecordImport(saveCtx, result, bulk.ImportStatusFailed, result.Duration)
	}
}

// importRow imports a single row. Row problems are recorded in the run and nil
// is returned; a returned error aborts the import.
func (s *BillingImportService) importRow(ctx context.Context, run *importRun, row *sheetimport.Row) error {
	classified, err := s.classifier.Classify(row)
	if err != nil {
		run.addRowError(err)
		return nil
	}

	switch r := classified.(type) {
	case InvoiceRow:
		return s.importInvoice(ctx, run, r)
	case PaymentRow:
		return s.importPayment(ctx, run, r)
	case CreditNoteRow:
		return s.importCreditNote(ctx, run, r)
	case UnrecognizedRow:
		run.errors.AddUnrecognizedRow(r.LineNumber, ColumnDocType, r.DocType)
		return nil
	}
	return nil
}

func (s *BillingImportService) importInvoice(ctx context.Context, run *importRun, r InvoiceRow) error {
	release, err := s.locker.Lock(ctx, r.InvoiceNumber)
	if err != nil {
		return fmt.Errorf("failed to lock invoice %s: %w", r.InvoiceNumber, err)
	}
	defer release()

	details := billing.InvoiceDetails{
		RawInvoiceNumber: r.RawInvoiceNumber,
		ClientName:       r.ClientName,
		ClientTaxID:      r.ClientTaxID,
		TotalAmount:      r.Amount,
		IssueDate:        r.IssueDate,
		SourceFile:       run.source,
	}

	created := false
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		inv, err := repos.Invoices().FindByNumber(ctx, r.InvoiceNumber)
		if errors.Is(err, shared.ErrNotFound) {
			if inv, err = billing.NewInvoice(r.InvoiceNumber, details); err != nil {
				return err
			}
			created = true
			return repos.Invoices().Save(ctx, inv)
		}
		if err != nil {
			return err
		}
		changed, err := inv.UpdateDetails(details)
		if err != nil || !changed {
			return err
		}
		return repos.Invoices().Save(ctx, inv)
	})
	if err != nil {
		return s.rowFailure(run, r.LineNumber, ColumnTransaction, r.RawInvoiceNumber, err)
	}

	if created {
		run.result.InvoicesCreated++
	} else {
		run.result.InvoicesUpdated++
	}
	return nil
}

func (s *BillingImportService) importPayment(ctx context.Context, run *importRun, r PaymentRow) error {
	match, err := s.matcher.Match(billing.ReceiptSource{
		ReceiptNumber:     r.ReceiptNumber,
		TransactionNumber: r.TransactionRef,
		Concept:           r.Concept,
		Amount:            r.Amount,
		Date:              r.PaymentDate,
	})
	if err != nil {
		return s.rowFailure(run, r.LineNumber, ColumnDocumentNumber, r.ReceiptNumber, err)
	}

	release, err := s.locker.Lock(ctx, append([]string{receiptLockPrefix + match.ReceiptNumber}, r.InvoiceNumbers...)...)
	if err != nil {
		return fmt.Errorf("failed to lock payment %s: %w", match.ReceiptNumber, err)
	}
	defer release()

	var (
		skipped bool
		outcome *billing.AllocationOutcome
	)
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		exists, err := repos.Payments().ExistsByReceiptNumber(ctx, match.ReceiptNumber)
		if err != nil {
			return err
		}
		if exists {
			skipped = true
			return nil
		}

		payment, err := billing.NewPayment(billing.NewPaymentInput{
			ReceiptNumber:  match.ReceiptNumber,
			IsSynthetic:    match.IsSynthetic,
			Amount:         r.Amount,
			PaymentDate:    r.PaymentDate,
			Type:           billing.InferPaymentType(r.Concept, s.matcher.IsAdjustment(r.Concept)),
			Concept:        r.Concept,
			TransactionRef: r.TransactionRef,
			InvoiceRefs:    r.InvoiceNumbers,
			SourceFile:     run.source,
			ImportedBy:     run.actorID,
		})
		if err != nil {
			return err
		}
		if err := repos.Payments().Save(ctx, payment); err != nil {
			return err
		}
		outcome, err = s.allocate(ctx, repos, payment)
		return err
	})
	if err != nil {
		return s.rowFailure(run, r.LineNumber, ColumnDocumentNumber, match.ReceiptNumber, err)
	}

	if skipped {
		run.result.PaymentsSkipped++
		return nil
	}
	run.result.PaymentsCreated++
	if outcome != nil {
		run.addWarnings(overflowWarnings(outcome.Warnings))
	}
	return nil
}

func (s *BillingImportService) importCreditNote(ctx context.Context, run *importRun, r CreditNoteRow) error {
	release, err := s.locker.Lock(ctx, creditNoteLockPrefix+r.CreditNoteNumber)
	if err != nil {
		return fmt.Errorf("failed to lock credit note %s: %w", r.CreditNoteNumber, err)
	}
	defer release()

	recorded := false
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		exists, err := repos.CreditNotes().ExistsByNumber(ctx, r.CreditNoteNumber)
		if err != nil || exists {
			return err
		}
		note, err := billing.NewCreditNote(billing.NewCreditNoteInput{
			CreditNoteNumber: r.CreditNoteNumber,
			InvoiceNumber:    r.InvoiceNumber,
			Amount:           r.Amount,
			IssueDate:        r.IssueDate,
			Concept:          r.Concept,
			SourceFile:       run.source,
		})
		if err != nil {
			return err
		}
		recorded = true
		return repos.CreditNotes().Save(ctx, note)
	})
	if err != nil {
		return s.rowFailure(run, r.LineNumber, ColumnDocumentNumber, r.CreditNoteNumber, err)
	}
	if recorded {
		run.result.CreditNotesRecorded++
	}
	return nil
}

// allocate applies a pending payment when every invoice it references exists.
// It returns nil without error while the payment has to keep waiting.
func (s *BillingImportService) allocate(ctx context.Context, repos TransactionalRepositories, payment *billing.Payment) (*billing.AllocationOutcome, error) {
	invoices, err := repos.Invoices().FindByNumbers(ctx, payment.InvoiceRefs)
	if err != nil {
		return nil, err
	}
	if len(invoices) < len(payment.InvoiceRefs) {
		return nil, nil
	}

	outcome, err := s.engine.Allocate(payment, invoices)
	if err != nil {
		return nil, err
	}
	if len(outcome.Allocations) > 0 {
		if err := repos.Allocations().Create(ctx, outcome.Allocations...); err != nil {
			return nil, err
		}
	}
	touched := make(map[uuid.UUID]bool, len(outcome.Allocations))
	for _, a := range outcome.Allocations {
		touched[a.InvoiceID] = true
	}
	for _, inv := range invoices {
		if !touched[inv.ID] {
			continue
		}
		if err := repos.Invoices().Save(ctx, inv); err != nil {
			return nil, err
		}
	}
	if err := repos.Payments().Save(ctx, payment); err != nil {
		return nil, err
	}
	return outcome, nil
}

// rowFailure records domain errors as row errors and passes anything else
// through as a critical failure.
func (s *BillingImportService) rowFailure(run *importRun, line int, column, value string, err error) error {
	de, ok := shared.AsDomainError(err)
	if !ok || errors.Is(err, shared.ErrLockTimeout) {
		return err
	}
	run.addRowError(sheetimport.NewRowErrorWithValue(line, column, rowErrorCode(de.Code), de.Message, value))
	return nil
}

func rowErrorCode(domainCode string) string {
	switch domainCode {
	case billing.CodeMalformedInvoiceNumber:
		return sheetimport.ErrCodeImportMalformedInvoiceNumber
	case billing.CodeMissingReceiptNumber:
		return sheetimport.ErrCodeImportMissingReceiptNumber
	case billing.CodeInvalidAmount:
		return sheetimport.ErrCodeImportInvalidAmount
	}
	return "ERR_IMPORT_" + domainCode
}

// ResolvePendingPayments retries every pending payment whose invoices may have
// arrived since it was imported.
func (s *BillingImportService) ResolvePendingPayments(ctx context.Context) (*SweepResult, error) {
	result := &SweepResult{Warnings: []bulk.ImportWarning{}}

	after := uuid.Nil
	for {
		var pending []*billing.Payment
		err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			var err error
			pending, err = repos.Payments().FindPending(ctx, after, s.sweepBatchSize)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list pending payments: %w", err)
		}

		for _, p := range pending {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := s.sweepPayment(ctx, result, p); err != nil {
				return nil, err
			}
		}
		if len(pending) < s.sweepBatchSize {
			break
		}
		after = pending[len(pending)-1].ID
	}

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		result.StillPending, err = repos.Payments().CountPending(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count pending payments: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordSweep(ctx, result)
	}
	if result.Allocated > 0 {
		s.logger.Info("Pending payments allocated",
			zap.Int("allocated", result.Allocated),
			zap.Int64("still_pending", result.StillPending),
		)
	}
	return result, nil
}

// sweepPayment retries one pending payment. Domain failures are counted and
// logged; anything else is returned.
func (s *BillingImportService) sweepPayment(ctx context.Context, result *SweepResult, p *billing.Payment) error {
	result.Examined++

	outcome, err := s.allocatePending(ctx, p)
	if err != nil {
		if _, ok := shared.AsDomainError(err); ok && !errors.Is(err, shared.ErrLockTimeout) {
			s.logger.Warn("Pending payment not allocated",
				zap.String("receipt", p.ReceiptNumber),
				zap.Error(err),
			)
			result.Failed++
			return nil
		}
		return fmt.Errorf("failed to allocate payment %s: %w", p.ReceiptNumber, err)
	}
	if outcome == nil {
		return nil
	}
	result.Allocated++
	for _, w := range overflowWarnings(outcome.Warnings) {
		s.logger.Warn("Allocation overflow",
			zap.String("invoice", w.InvoiceNumber),
			zap.String("receipt", w.ReceiptNumber),
			zap.String("detail", w.Message),
		)
		result.Warnings = append(result.Warnings, w)
	}
	return nil
}

func (s *BillingImportService) allocatePending(ctx context.Context, p *billing.Payment) (*billing.AllocationOutcome, error) {
	release, err := s.locker.Lock(ctx, append([]string{receiptLockPrefix + p.ReceiptNumber}, p.InvoiceRefs...)...)
	if err != nil {
		return nil, err
	}
	defer release()

	var outcome *billing.AllocationOutcome
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		payment, err := repos.Payments().FindByReceiptNumber(ctx, p.ReceiptNumber)
		if err != nil {
			return err
		}
		if !payment.IsPending() {
			return nil
		}
		outcome, err = s.allocate(ctx, repos, payment)
		return err
	})
	return outcome, err
}

// LinkDocuments links unlinked invoices to their Document record, matching by
// canonical number and by the compact legacy form. It returns how many were linked.
func (s *BillingImportService) LinkDocuments(ctx context.Context) (int, error) {
	if s.documents == nil {
		return 0, nil
	}

	linked := 0
	after := uuid.Nil
	for {
		var unlinked []*billing.Invoice
		err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			var err error
			unlinked, err = repos.Invoices().FindUnlinked(ctx, after, s.linkBatchSize)
			return err
		})
		if err != nil {
			return linked, fmt.Errorf("failed to list unlinked invoices: %w", err)
		}
		if len(unlinked) == 0 {
			return linked, nil
		}

		n, err := s.linkBatch(ctx, unlinked)
		linked += n
		if err != nil {
			return linked, err
		}
		if len(unlinked) < s.linkBatchSize {
			return linked, nil
		}
		after = unlinked[len(unlinked)-1].ID
	}
}

// linkBatch links one page of unlinked invoices and returns how many were linked
func (s *BillingImportService) linkBatch(ctx context.Context, unlinked []*billing.Invoice) (int, error) {
	candidates := make([]string, 0, len(unlinked)*2)
	compact := make(map[string]string, len(unlinked))
	for _, inv := range unlinked {
		candidates = append(candidates, inv.InvoiceNumber)
		if c, err := billing.DenormalizeInvoiceNumber(inv.InvoiceNumber); err == nil {
			compact[inv.InvoiceNumber] = c
			candidates = append(candidates, c)
		}
	}
	ids, err := s.documents.FindIDsByInvoiceNumbers(ctx, candidates)
	if err != nil {
		return 0, fmt.Errorf("failed to look up documents: %w", err)
	}

	linked := 0
	for _, inv := range unlinked {
		docID, ok := ids[inv.InvoiceNumber]
		if !ok {
			docID, ok = ids[compact[inv.InvoiceNumber]]
		}
		if !ok {
			continue
		}

		done, err := s.linkDocument(ctx, inv.InvoiceNumber, docID)
		if err != nil {
			if _, isDomain := shared.AsDomainError(err); isDomain && !errors.Is(err, shared.ErrLockTimeout) {
				s.logger.Warn("Document not linked",
					zap.String("invoice", inv.InvoiceNumber),
					zap.Error(err),
				)
				continue
			}
			return linked, fmt.Errorf("failed to link invoice %s: %w", inv.InvoiceNumber, err)
		}
		if done {
			linked++
		}
	}
	return linked, nil
}

func (s *BillingImportService) linkDocument(ctx context.Context, invoiceNumber string, docID uuid.UUID) (bool, error) {
	release, err := s.locker.Lock(ctx, invoiceNumber)
	if err != nil {
		return false, err
	}
	defer release()

	linked := false
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		inv, err := repos.Invoices().FindByNumber(ctx, invoiceNumber)
		if err != nil {
			return err
		}
		if inv.IsLinked() {
			return nil
		}
		if err := inv.LinkDocument(docID); err != nil {
			return err
		}
		linked = true
		return repos.Invoices().Save(ctx, inv)
	})
	if err != nil {
		return false, err
	}
	return linked, nil
}

// ResolveCreditNote applies or dismisses a credit note pending review. Applying
// records an ADJUSTMENT payment that is allocated like any other payment.
func (s *BillingImportService) ResolveCreditNote(ctx context.Context, id uuid.UUID, resolution billing.CreditNoteResolution, actorID uuid.UUID) (*CreditNoteResolutionResult, error) {
	var note *billing.CreditNote
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		note, err = repos.CreditNotes().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !note.IsPendingReview() {
		return nil, billing.ErrCreditNoteResolved
	}

	release, err := s.locker.Lock(ctx, note.InvoiceNumber, receiptLockPrefix+note.AdjustmentReceiptNumber())
	if err != nil {
		return nil, fmt.Errorf("failed to lock invoice %s: %w", note.InvoiceNumber, err)
	}
	defer release()

	result := &CreditNoteResolutionResult{Warnings: []bulk.ImportWarning{}}
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		note, err := repos.CreditNotes().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := note.Resolve(resolution, actorID); err != nil {
			return err
		}
		result.CreditNote = note

		if resolution == billing.CreditNoteResolutionApply {
			receipt := note.AdjustmentReceiptNumber()
			exists, err := repos.Payments().ExistsByReceiptNumber(ctx, receipt)
			if err != nil {
				return err
			}
			if exists {
				return shared.NewDomainError(shared.ErrAlreadyExists.Code,
					fmt.Sprintf("Adjustment payment %s already exists", receipt))
			}
			payment, err := note.AdjustmentPayment(actorID)
			if err != nil {
				return err
			}
			if err := repos.Payments().Save(ctx, payment); err != nil {
				return err
			}
			outcome, err := s.allocate(ctx, repos, payment)
			if err != nil {
				return err
			}
			result.Payment = payment
			if outcome != nil {
				result.Allocations = outcome.Allocations
				result.Warnings = overflowWarnings(outcome.Warnings)
			}
		}
		return repos.CreditNotes().Save(ctx, note)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Credit note resolved",
		zap.String("credit_note", result.CreditNote.CreditNoteNumber),
		zap.String("invoice", result.CreditNote.InvoiceNumber),
		zap.String("status", string(result.CreditNote.Status)),
		zap.String("actor_id", actorID.String()),
	)
	return result, nil
}

// ContentDigest is the hex blake2b-256 of an export's bytes
func ContentDigest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
