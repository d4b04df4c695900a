package dto

import (
	"time"

	"github.com/google/uuid"
	billingapp "github.com/notaria/backoffice/internal/application/billing"
	importapp "github.com/notaria/backoffice/internal/application/import"
	"github.com/notaria/backoffice/internal/domain/billing"
	"github.com/notaria/backoffice/internal/domain/bulk"
	"github.com/shopspring/decimal"
)

// DateLayout is the layout of date-only query parameters
const DateLayout = "2006-01-02"

// ImportLogListRequest holds the query parameters of GET /billing/imports
type ImportLogListRequest struct {
	PageRequest
	FileType    string `form:"file_type" binding:"omitempty,oneof=CXC POR_COBRAR UNKNOWN"`
	Status      string `form:"status" binding:"omitempty,oneof=RUNNING COMPLETED COMPLETED_WITH_ERRORS FAILED"`
	ActorID     string `form:"actor_id" binding:"omitempty,uuid"`
	StartedFrom string `form:"started_from" binding:"omitempty,datetime=2006-01-02"`
	StartedTo   string `form:"started_to" binding:"omitempty,datetime=2006-01-02"`
}

// ToFilter converts the request to the service filter. started_to is inclusive
// of the whole day. Values were validated by binding.
func (r ImportLogListRequest) ToFilter() importapp.ListLogsFilter {
	filter := importapp.ListLogsFilter{
		FileType: r.FileType,
		Status:   r.Status,
	}
	if id, err := uuid.Parse(r.ActorID); err == nil {
		filter.ActorID = &id
	}
	if t, err := time.Parse(DateLayout, r.StartedFrom); err == nil {
		filter.StartedFrom = &t
	}
	if t, err := time.Parse(DateLayout, r.StartedTo); err == nil {
		end := t.Add(24*time.Hour - time.Nanosecond)
		filter.StartedTo = &end
	}
	return filter
}

// ImportLogResponse is the API view of an import log
type ImportLogResponse struct {
	ID            uuid.UUID                `json:"id"`
	FileName      string                   `json:"file_name"`
	FileType      string                   `json:"file_type"`
	FileSize      int64                    `json:"file_size"`
	ContentDigest string                   `json:"content_digest"`
	ArchiveKey    string                   `json:"archive_key,omitempty"`
	ActorID       uuid.UUID                `json:"actor_id"`
	Status        string                   `json:"status"`
	Counters      bulk.ImportCounters      `json:"counters"`
	ErrorDetails  []bulk.ImportErrorDetail `json:"error_details,omitempty"`
	Warnings      []bulk.ImportWarning     `json:"warnings,omitempty"`
	FailureReason string                   `json:"failure_reason,omitempty"`
	StartedAt     time.Time                `json:"started_at"`
	FinishedAt    *time.Time               `json:"finished_at,omitempty"`
	DurationMs    int64                    `json:"duration_ms,omitempty"`
}

// ImportLogSummaryResponse is the list view of an import log, without details
type ImportLogSummaryResponse struct {
	ID         uuid.UUID           `json:"id"`
	FileName   string              `json:"file_name"`
	FileType   string              `json:"file_type"`
	Status     string              `json:"status"`
	ActorID    uuid.UUID           `json:"actor_id"`
	Counters   bulk.ImportCounters `json:"counters"`
	Warnings   int                 `json:"warnings"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
}

// ToImportLogResponse converts an import log to its API view
func ToImportLogResponse(log *bulk.ImportLog) ImportLogResponse {
	resp := ImportLogResponse{
		ID:            log.ID,
		FileName:      log.FileName,
		FileType:      string(log.FileType),
		FileSize:      log.FileSize,
		ContentDigest: log.ContentDigest,
		ArchiveKey:    log.ArchiveKey,
		ActorID:       log.ActorID,
		Status:        string(log.Status),
		Counters:      log.Counters,
		ErrorDetails:  log.ErrorDetails,
		Warnings:      log.Warnings,
		FailureReason: log.FailureReason,
		StartedAt:     log.StartedAt,
		FinishedAt:    log.FinishedAt,
	}
	if log.FinishedAt != nil {
		resp.DurationMs = log.FinishedAt.Sub(log.StartedAt).Milliseconds()
	}
	return resp
}

// ToImportLogSummaries converts a page of import logs to list views
func ToImportLogSummaries(logs []*bulk.ImportLog) []ImportLogSummaryResponse {
	out := make([]ImportLogSummaryResponse, len(logs))
	for i, log := range logs {
		out[i] = ImportLogSummaryResponse{
			ID:         log.ID,
			FileName:   log.FileName,
			FileType:   string(log.FileType),
			Status:     string(log.Status),
			ActorID:    log.ActorID,
			Counters:   log.Counters,
			Warnings:   len(log.Warnings),
			StartedAt:  log.StartedAt,
			FinishedAt: log.FinishedAt,
		}
	}
	return out
}

// ImportResponse is returned by the upload endpoint
type ImportResponse struct {
	*importapp.ImportResult
	Status string `json:"status"`
	// PreviousImportID is set when the same bytes were imported before
	PreviousImportID *uuid.UUID `json:"previous_import_id,omitempty"`
}

// ImportStatusOf derives the log status reported for a finished import
func ImportStatusOf(result *importapp.ImportResult) bulk.ImportStatus {
	if result.Errors > 0 {
		return bulk.ImportStatusCompletedWithErrors
	}
	return bulk.ImportStatusCompleted
}

// ResolveCreditNoteRequest is the body of POST /billing/credit-notes/:id/resolve
type ResolveCreditNoteRequest struct {
	Resolution string `json:"resolution" binding:"required,oneof=APPLY DISMISS apply dismiss"`
}

// PaymentResponse is the API view of a payment
type PaymentResponse struct {
	ID              uuid.UUID       `json:"id"`
	ReceiptNumber   string          `json:"receipt_number"`
	IsSynthetic     bool            `json:"is_synthetic"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentDate     time.Time       `json:"payment_date"`
	Type            string          `json:"type"`
	Concept         string          `json:"concept,omitempty"`
	TransactionRef  string          `json:"transaction_ref,omitempty"`
	InvoiceRefs     []string        `json:"invoice_refs"`
	AllocationState string          `json:"allocation_state"`
	SourceFile      string          `json:"source_file,omitempty"`
	ImportedAt      time.Time       `json:"imported_at"`
}

// ToPaymentResponse converts a payment to its API view
func ToPaymentResponse(p *billing.Payment) *PaymentResponse {
	if p == nil {
		return nil
	}
	return &PaymentResponse{
		ID:              p.ID,
		ReceiptNumber:   p.ReceiptNumber,
		IsSynthetic:     p.IsSynthetic,
		Amount:          p.Amount,
		PaymentDate:     p.PaymentDate,
		Type:            p.Type.String(),
		Concept:         p.Concept,
		TransactionRef:  p.TransactionRef,
		InvoiceRefs:     p.InvoiceRefs,
		AllocationState: string(p.AllocationState),
		SourceFile:      p.SourceFile,
		ImportedAt:      p.ImportedAt,
	}
}

// AllocationResponse is one allocation created by a credit note resolution
type AllocationResponse struct {
	ID            uuid.UUID       `json:"id"`
	PaymentID     uuid.UUID       `json:"payment_id"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	ReceiptNumber string          `json:"receipt_number"`
	Amount        decimal.Decimal `json:"amount"`
	AllocatedAt   time.Time       `json:"allocated_at"`
}

// CreditNoteResolutionResponse is returned by the resolve endpoint
type CreditNoteResolutionResponse struct {
	CreditNote  billingapp.CreditNoteResponse `json:"credit_note"`
	Payment     *PaymentResponse              `json:"payment,omitempty"`
	Allocations []AllocationResponse          `json:"allocations"`
	Warnings    []bulk.ImportWarning          `json:"warnings"`
}

// ToCreditNoteResolutionResponse converts a resolution result to its API view
func ToCreditNoteResolutionResponse(r *importapp.CreditNoteResolutionResult) CreditNoteResolutionResponse {
	warnings := r.Warnings
	if warnings == nil {
		warnings = []bulk.ImportWarning{}
	}
	return CreditNoteResolutionResponse{
		CreditNote:  billingapp.ToCreditNoteResponse(r.CreditNote),
		Payment:     ToPaymentResponse(r.Payment),
		Allocations: ToAllocationResponses(r.Allocations),
		Warnings:    warnings,
	}
}

// ToAllocationResponses converts allocations to their API views
func ToAllocationResponses(allocs []*billing.Allocation) []AllocationResponse {
	out := make([]AllocationResponse, len(allocs))
	for i, a := range allocs {
		out[i] = AllocationResponse{
			ID:            a.ID,
			PaymentID:     a.PaymentID,
			InvoiceID:     a.InvoiceID,
			InvoiceNumber: a.InvoiceNumber,
			ReceiptNumber: a.ReceiptNumber,
			Amount:        a.Amount,
			AllocatedAt:   a.AllocatedAt,
		}
	}
	return out
}

// SweepResponse is returned by the manual sweep endpoint
type SweepResponse struct {
	StartedAt       time.Time              `json:"started_at"`
	DurationMs      int64                  `json:"duration_ms"`
	Sweep           *importapp.SweepResult `json:"sweep,omitempty"`
	DocumentsLinked int                    `json:"documents_linked"`
	Error           string                 `json:"error,omitempty"`
}

// InvoiceListRequest holds the query parameters of GET /billing/invoices
type InvoiceListRequest struct {
	PageRequest
	Search     string `form:"search" binding:"omitempty,max=100"`
	Status     string `form:"status" binding:"omitempty,oneof=PENDING PARTIAL PAID"`
	ClientName string `form:"client_name" binding:"omitempty,max=200"`
	Unlinked   *bool  `form:"unlinked"`
}

// ToFilter converts the request to the ledger filter
func (r InvoiceListRequest) ToFilter() billingapp.InvoiceListFilter {
	return billingapp.InvoiceListFilter{
		Search:     r.Search,
		Status:     r.Status,
		ClientName: r.ClientName,
		Unlinked:   r.Unlinked,
		Page:       r.Page,
		PageSize:   r.PageSize,
	}
}

// CreditNoteListRequest holds the query parameters of GET /billing/credit-notes
type CreditNoteListRequest struct {
	PageRequest
	Status string `form:"status" binding:"omitempty,oneof=PENDING_REVIEW APPLIED DISMISSED"`
}

// ToFilter converts the request to the ledger filter
func (r CreditNoteListRequest) ToFilter() billingapp.CreditNoteListFilter {
	return billingapp.CreditNoteListFilter{
		Status:   r.Status,
		Page:     r.Page,
		PageSize: r.PageSize,
	}
}
