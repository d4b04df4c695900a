package telemetry

import (
	"context"
	"errors"
	"time"

	importapp "github.com/notaria/backoffice/internal/application/import"
	"github.com/notaria/backoffice/internal/domain/bulk"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics recorder is built without a meter
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// ImportMetrics records the outcome of every export import and pending sweep.
type ImportMetrics struct {
	importsTotal    *Counter
	importDuration  *Histogram
	rowsTotal       *Counter
	rowErrorsTotal  *Counter
	warningsTotal   *Counter
	sweepAllocated  *Counter
	pendingPayments *Gauge
	documentsLinked *Counter
}

// NewImportMetrics registers the import instruments on meter.
func NewImportMetrics(meter metric.Meter) (*ImportMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &ImportMetrics{}
	var err error

	if m.importsTotal, err = NewCounter(meter,
		"koinor_imports_total", "Number of export imports by outcome", "{imports}"); err != nil {
		return nil, err
	}
	if m.importDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "koinor_import_duration_seconds",
		Description: "Wall time of one export import",
		Unit:        "s",
		Boundaries:  ImportDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.rowsTotal, err = NewCounter(meter,
		"koinor_import_rows_total", "Rows applied to the ledger by kind", "{rows}"); err != nil {
		return nil, err
	}
	if m.rowErrorsTotal, err = NewCounter(meter,
		"koinor_import_row_errors_total", "Rows rejected during import", "{rows}"); err != nil {
		return nil, err
	}
	if m.warningsTotal, err = NewCounter(meter,
		"koinor_import_warnings_total", "Allocation overflow warnings", "{warnings}"); err != nil {
		return nil, err
	}
	if m.sweepAllocated, err = NewCounter(meter,
		"koinor_sweep_allocated_total", "Pending payments allocated by a sweep", "{payments}"); err != nil {
		return nil, err
	}
	if m.pendingPayments, err = NewGauge(meter,
		"koinor_payments_pending", "Payments waiting for their invoices", "{payments}"); err != nil {
		return nil, err
	}
	if m.documentsLinked, err = NewCounter(meter,
		"koinor_documents_linked_total", "Invoices linked to a document record", "{invoices}"); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordImport records one finished or failed import
func (m *ImportMetrics) RecordImport(ctx context.Context, result *importapp.ImportResult, status bulk.ImportStatus, duration time.Duration) {
	fileType := AttrFileType.String(string(result.FileType))
	m.importsTotal.Inc(ctx, fileType, AttrImportStatus.String(string(status)))
	m.importDuration.RecordDuration(ctx, duration, fileType)

	m.rowsTotal.Add(ctx, int64(result.InvoicesCreated), fileType, AttrRowKind.String("invoice_created"))
	m.rowsTotal.Add(ctx, int64(result.InvoicesUpdated), fileType, AttrRowKind.String("invoice_updated"))
	m.rowsTotal.Add(ctx, int64(result.PaymentsCreated), fileType, AttrRowKind.String("payment_created"))
	m.rowsTotal.Add(ctx, int64(result.PaymentsSkipped), fileType, AttrRowKind.String("payment_skipped"))
	m.rowsTotal.Add(ctx, int64(result.CreditNotesRecorded), fileType, AttrRowKind.String("credit_note"))
	m.rowErrorsTotal.Add(ctx, int64(result.Errors), fileType)
	m.warningsTotal.Add(ctx, int64(len(result.Warnings)), fileType)
	m.documentsLinked.Add(ctx, int64(result.DocumentsLinked))
}

// RecordSweep records one pass over the pending payments
func (m *ImportMetrics) RecordSweep(ctx context.Context, result *importapp.SweepResult) {
	m.sweepAllocated.Add(ctx, int64(result.Allocated))
	m.warningsTotal.Add(ctx, int64(len(result.Warnings)), AttrFileType.String("sweep"))
	m.pendingPayments.Record(ctx, result.StillPending)
}

var _ importapp.ImportMetrics = (*ImportMetrics)(nil)
