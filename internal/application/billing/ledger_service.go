package billingapp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/notaria/backoffice/internal/domain/billing"
	"github.com/notaria/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// LedgerService answers read queries over the receivables ledger
type LedgerService struct {
	invoiceRepo    billing.InvoiceRepository
	allocationRepo billing.AllocationRepository
	creditNoteRepo billing.CreditNoteRepository
	normalizer     *billing.InvoiceNumberNormalizer
}

// NewLedgerService creates a new LedgerService. A nil normalizer assumes the
// default series, like the import service.
func NewLedgerService(
	invoiceRepo billing.InvoiceRepository,
	allocationRepo billing.AllocationRepository,
	creditNoteRepo billing.CreditNoteRepository,
	normalizer *billing.InvoiceNumberNormalizer,
) *LedgerService {
	if normalizer == nil {
		normalizer = billing.NewInvoiceNumberNormalizer(
			billing.WithDefaultSeries(billing.DefaultEstablishment, billing.DefaultEmissionPoint))
	}
	return &LedgerService{
		invoiceRepo:    invoiceRepo,
		allocationRepo: allocationRepo,
		creditNoteRepo: creditNoteRepo,
		normalizer:     normalizer,
	}
}

// ===================== Invoices =====================

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID                uuid.UUID            `json:"id"`
	InvoiceNumber     string               `json:"invoice_number"`
	RawInvoiceNumber  string               `json:"raw_invoice_number,omitempty"`
	ClientName        string               `json:"client_name"`
	ClientTaxID       string               `json:"client_tax_id"`
	TotalAmount       decimal.Decimal      `json:"total_amount"`
	PaidAmount        decimal.Decimal      `json:"paid_amount"`
	OutstandingAmount decimal.Decimal      `json:"outstanding_amount"`
	OverpaidAmount    decimal.Decimal      `json:"overpaid_amount"`
	PaidPercentage    decimal.Decimal      `json:"paid_percentage"`
	Status            string               `json:"status"`
	IssueDate         *time.Time           `json:"issue_date,omitempty"`
	DocumentID        *uuid.UUID           `json:"document_id,omitempty"`
	SourceFile        string               `json:"source_file,omitempty"`
	Allocations       []AllocationResponse `json:"allocations,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
	Version           int                  `json:"version"`
}

// AllocationResponse represents one allocation in API responses
type AllocationResponse struct {
	ID            uuid.UUID       `json:"id"`
	PaymentID     uuid.UUID       `json:"payment_id"`
	ReceiptNumber string          `json:"receipt_number"`
	Amount        decimal.Decimal `json:"amount"`
	AllocatedAt   time.Time       `json:"allocated_at"`
}

// InvoiceListFilter defines filtering options for invoice list queries
type InvoiceListFilter struct {
	Search     string `form:"search"`
	Status     string `form:"status"`
	ClientName string `form:"client_name"`
	Unlinked   *bool  `form:"unlinked"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
}

// GetInvoice finds an invoice by any accepted spelling of its number and
// includes its allocations.
func (s *LedgerService) GetInvoice(ctx context.Context, rawNumber string) (*InvoiceResponse, error) {
	number, err := s.normalizer.Normalize(rawNumber)
	if err != nil {
		return nil, err
	}
	inv, err := s.invoiceRepo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	allocations, err := s.allocationRepo.FindByInvoiceID(ctx, inv.ID)
	if err != nil {
		return nil, err
	}

	resp := toInvoiceResponse(inv)
	resp.Allocations = make([]AllocationResponse, len(allocations))
	for i, a := range allocations {
		resp.Allocations[i] = AllocationResponse{
			ID:            a.ID,
			PaymentID:     a.PaymentID,
			ReceiptNumber: a.ReceiptNumber,
			Amount:        a.Amount,
			AllocatedAt:   a.AllocatedAt,
		}
	}
	return resp, nil
}

// ListInvoices lists invoices with filtering
func (s *LedgerService) ListInvoices(ctx context.Context, filter InvoiceListFilter) ([]InvoiceResponse, int64, error) {
	domainFilter := billing.InvoiceFilter{
		ClientName: filter.ClientName,
		Unlinked:   filter.Unlinked,
	}
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize
	domainFilter.Search = filter.Search

	if filter.Status != "" {
		status := billing.InvoiceStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_STATUS", "Invalid invoice status: "+filter.Status)
		}
		domainFilter.Status = &status
	}

	invoices, total, err := s.invoiceRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	responses := make([]InvoiceResponse, len(invoices))
	for i, inv := range invoices {
		responses[i] = *toInvoiceResponse(inv)
	}
	return responses, total, nil
}

func toInvoiceResponse(inv *billing.Invoice) *InvoiceResponse {
	resp := &InvoiceResponse{
		ID:                inv.ID,
		InvoiceNumber:     inv.InvoiceNumber,
		RawInvoiceNumber:  inv.RawInvoiceNumber,
		ClientName:        inv.ClientName,
		ClientTaxID:       inv.ClientTaxID,
		TotalAmount:       inv.TotalAmount,
		PaidAmount:        inv.PaidAmount,
		OutstandingAmount: inv.OutstandingAmount(),
		OverpaidAmount:    inv.OverpaidAmount(),
		PaidPercentage:    inv.PaidPercentage(),
		Status:            inv.Status.String(),
		DocumentID:        inv.DocumentID,
		SourceFile:        inv.SourceFile,
		CreatedAt:         inv.CreatedAt,
		UpdatedAt:         inv.UpdatedAt,
		Version:           inv.Version,
	}
	if !inv.IssueDate.IsZero() {
		issued := inv.IssueDate
		resp.IssueDate = &issued
	}
	return resp
}

// ===================== Credit notes =====================

// CreditNoteResponse represents a credit note in API responses
type CreditNoteResponse struct {
	ID               uuid.UUID       `json:"id"`
	CreditNoteNumber string          `json:"credit_note_number"`
	InvoiceNumber    string          `json:"invoice_number"`
	Amount           decimal.Decimal `json:"amount"`
	IssueDate        *time.Time      `json:"issue_date,omitempty"`
	Concept          string          `json:"concept,omitempty"`
	Status           string          `json:"status"`
	SourceFile       string          `json:"source_file,omitempty"`
	ResolvedBy       *uuid.UUID      `json:"resolved_by,omitempty"`
	ResolvedAt       *time.Time      `json:"resolved_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// CreditNoteListFilter defines filtering options for credit note list queries.
// An empty Status lists the notes pending review.
type CreditNoteListFilter struct {
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// ListCreditNotes lists credit notes, by default those pending review
func (s *LedgerService) ListCreditNotes(ctx context.Context, filter CreditNoteListFilter) ([]CreditNoteResponse, int64, error) {
	status := billing.CreditNoteStatusPendingReview
	if filter.Status != "" {
		status = billing.CreditNoteStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_STATUS", "Invalid credit note status: "+filter.Status)
		}
	}
	domainFilter := billing.CreditNoteFilter{Status: &status}
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize

	notes, total, err := s.creditNoteRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	responses := make([]CreditNoteResponse, len(notes))
	for i, n := range notes {
		responses[i] = ToCreditNoteResponse(n)
	}
	return responses, total, nil
}

// ToCreditNoteResponse converts a credit note to its API response
func ToCreditNoteResponse(n *billing.CreditNote) CreditNoteResponse {
	resp := CreditNoteResponse{
		ID:               n.ID,
		CreditNoteNumber: n.CreditNoteNumber,
		InvoiceNumber:    n.InvoiceNumber,
		Amount:           n.Amount,
		Concept:          n.Concept,
		Status:           string(n.Status),
		SourceFile:       n.SourceFile,
		ResolvedBy:       n.ResolvedBy,
		ResolvedAt:       n.ResolvedAt,
		CreatedAt:        n.CreatedAt,
	}
	if !n.IssueDate.IsZero() {
		issued := n.IssueDate
		resp.IssueDate = &issued
	}
	return resp
}
