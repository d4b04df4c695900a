package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	billingapp "github.com/notaria/backoffice/internal/application/billing"
	importapp "github.com/notaria/backoffice/internal/application/import"
	"github.com/notaria/backoffice/internal/domain/billing"
	"github.com/notaria/backoffice/internal/infrastructure/telemetry"
	"github.com/notaria/backoffice/internal/interfaces/http/dto"
	"github.com/notaria/backoffice/internal/interfaces/http/middleware"
)

// LedgerReader reads invoices and credit notes
type LedgerReader interface {
	GetInvoice(ctx context.Context, rawNumber string) (*billingapp.InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter billingapp.InvoiceListFilter) ([]billingapp.InvoiceResponse, int64, error)
	ListCreditNotes(ctx context.Context, filter billingapp.CreditNoteListFilter) ([]billingapp.CreditNoteResponse, int64, error)
}

// CreditNoteResolver applies or dismisses a credit note under review
type CreditNoteResolver interface {
	ResolveCreditNote(ctx context.Context, id uuid.UUID, resolution billing.CreditNoteResolution, actorID uuid.UUID) (*importapp.CreditNoteResolutionResult, error)
}

// LedgerHandler serves the receivables ledger endpoints
type LedgerHandler struct {
	BaseHandler
	ledger   LedgerReader
	resolver CreditNoteResolver
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledger LedgerReader, resolver CreditNoteResolver) *LedgerHandler {
	return &LedgerHandler{
		ledger:   ledger,
		resolver: resolver,
	}
}

// ListInvoices godoc
//
//	GET /billing/invoices?search=&status=&client_name=&unlinked=&page=&page_size=
func (h *LedgerHandler) ListInvoices(c *gin.Context) {
	var req dto.InvoiceListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	req.Normalize()

	invoices, total, err := h.ledger.ListInvoices(c.Request.Context(), req.ToFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, invoices, total, req.Page, req.PageSize)
}

// GetInvoice godoc
//
//	GET /billing/invoices/:number
//
// Any accepted spelling of the number resolves ("1-1-45", "001001000000045").
func (h *LedgerHandler) GetInvoice(c *gin.Context) {
	invoice, err := h.ledger.GetInvoice(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// ListCreditNotes godoc
//
//	GET /billing/credit-notes?status=&page=&page_size=
//
// Without a status only notes pending review are listed.
func (h *LedgerHandler) ListCreditNotes(c *gin.Context) {
	var req dto.CreditNoteListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	req.Normalize()

	notes, total, err := h.ledger.ListCreditNotes(c.Request.Context(), req.ToFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, notes, total, req.Page, req.PageSize)
}

// ResolveCreditNote godoc
//
//	POST /billing/credit-notes/:id/resolve {"resolution": "APPLY" | "DISMISS"}
func (h *LedgerHandler) ResolveCreditNote(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.ResolveCreditNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	resolution, err := billing.ParseCreditNoteResolution(req.Resolution)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	ctx, span := telemetry.StartServiceSpan(c.Request.Context(), "credit_note", "resolve",
		telemetry.WithAttribute("billing.credit_note_id", id.String()),
		telemetry.WithAttribute("billing.resolution", string(resolution)),
	)
	defer span.End()

	result, err := h.resolver.ResolveCreditNote(ctx, id, resolution, middleware.GetActorID(c))
	if err != nil {
		telemetry.RecordError(span, err)
		h.HandleError(c, err)
		return
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrInvoiceNumber, result.CreditNote.InvoiceNumber)
	telemetry.SetOK(span)

	h.Success(c, dto.ToCreditNoteResolutionResponse(result))
}
