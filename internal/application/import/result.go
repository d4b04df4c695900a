package importapp

import (
	"time"

	"github.com/google/uuid"
	"github.com/notaria/backoffice/internal/domain/billing"
	"github.com/notaria/backoffice/internal/domain/bulk"
	sheetimport "github.com/notaria/backoffice/internal/infrastructure/import"
)

// ImportResult summarizes one ImportFile run
type ImportResult struct {
	ImportLogID uuid.UUID     `json:"import_log_id"`
	FileName    string        `json:"file_name"`
	FileType    bulk.FileType `json:"file_type"`
	Format      string        `json:"format"`
	ArchiveKey  string        `json:"archive_key,omitempty"`
	bulk.ImportCounters
	ErrorDetails []sheetimport.RowError `json:"error_details"`
	Truncated    bool                   `json:"truncated"`
	Warnings     []bulk.ImportWarning   `json:"warnings"`
	Duration     time.Duration          `json:"duration_ns"`
}

// SweepResult summarizes one pass over the pending payments
type SweepResult struct {
	Examined     int                  `json:"examined"`
	Allocated    int                  `json:"allocated"`
	Failed       int                  `json:"failed"`
	StillPending int64                `json:"still_pending"`
	Warnings     []bulk.ImportWarning `json:"warnings"`
}

// CreditNoteResolutionResult is returned by ResolveCreditNote
type CreditNoteResolutionResult struct {
	CreditNote  *billing.CreditNote
	Payment     *billing.Payment // nil unless the note was applied
	Allocations []*billing.Allocation
	Warnings    []bulk.ImportWarning
}

func overflowWarnings(ws []billing.OverflowWarning) []bulk.ImportWarning {
	out := make([]bulk.ImportWarning, 0, len(ws))
	for _, w := range ws {
		out = append(out, bulk.ImportWarning{
			Code:          sheetimport.WarnCodeAllocationOverflow,
			InvoiceNumber: w.InvoiceNumber,
			ReceiptNumber: w.ReceiptNumber,
			Message:       w.String(),
		})
	}
	return out
}

func errorDetails(errs []sheetimport.RowError) []bulk.ImportErrorDetail {
	details := make([]bulk.ImportErrorDetail, len(errs))
	for i, e := range errs {
		details[i] = bulk.ImportErrorDetail{
			Row:     e.Row,
			Column:  e.Column,
			Code:    e.Code,
			Message: e.Message,
			Value:   e.Value,
		}
	}
	return details
}
