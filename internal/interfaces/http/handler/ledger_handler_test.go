package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	billingapp "github.com/notaria/backoffice/internal/application/billing"
	importapp "github.com/notaria/backoffice/internal/application/import"
	"github.com/notaria/backoffice/internal/domain/billing"
	"github.com/notaria/backoffice/internal/domain/shared"
	"github.com/notaria/backoffice/internal/interfaces/http/dto"
	"github.com/notaria/backoffice/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func serveLedger(ledger *MockLedgerReader, resolver *MockCreditNoteResolver, req *http.Request) *httptest.ResponseRecorder {
	engine := newTestEngine(
		NewBillingImportHandler(new(MockBillingImporter), new(MockImportLogReader)),
		NewLedgerHandler(ledger, resolver),
		nil,
	)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestLedgerHandler_GetInvoice(t *testing.T) {
	t.Run("found by any spelling", func(t *testing.T) {
		ledger := new(MockLedgerReader)
		ledger.On("GetInvoice", mock.Anything, "1-1-45").Return(&billingapp.InvoiceResponse{
			ID:            uuid.New(),
			InvoiceNumber: "001-001-000000045",
			TotalAmount:   decimal.NewFromInt(100),
			Status:        "PARTIAL",
		}, nil)

		w := serveLedger(ledger, new(MockCreditNoteResolver), httptest.NewRequest(http.MethodGet, "/api/v1/billing/invoices/1-1-45", nil))

		require.Equal(t, http.StatusOK, w.Code)
		payload := decodeResponse(t, w).Data.(map[string]any)
		assert.Equal(t, "001-001-000000045", payload["invoice_number"])
		assert.Equal(t, "PARTIAL", payload["status"])
	})

	t.Run("malformed number", func(t *testing.T) {
		ledger := new(MockLedgerReader)
		ledger.On("GetInvoice", mock.Anything, "abc").
			Return(nil, shared.NewDomainError(billing.CodeMalformedInvoiceNumber, "Malformed invoice number: abc"))

		w := serveLedger(ledger, new(MockCreditNoteResolver), httptest.NewRequest(http.MethodGet, "/api/v1/billing/invoices/abc", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeMalformedInvoiceNumber, decodeResponse(t, w).Error.Code)
	})

	t.Run("not found", func(t *testing.T) {
		ledger := new(MockLedgerReader)
		ledger.On("GetInvoice", mock.Anything, "001-001-000000099").Return(nil, shared.ErrNotFound)

		w := serveLedger(ledger, new(MockCreditNoteResolver), httptest.NewRequest(http.MethodGet, "/api/v1/billing/invoices/001-001-000000099", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestLedgerHandler_ListInvoices(t *testing.T) {
	t.Run("passes filters", func(t *testing.T) {
		ledger := new(MockLedgerReader)
		ledger.On("ListInvoices", mock.Anything, mock.MatchedBy(func(f billingapp.InvoiceListFilter) bool {
			return f.Status == "PENDING" && f.Unlinked != nil && *f.Unlinked && f.Page == 1 && f.PageSize == 20
		})).Return([]billingapp.InvoiceResponse{{InvoiceNumber: "001-001-000000045"}}, int64(1), nil)

		w := serveLedger(ledger, new(MockCreditNoteResolver),
			httptest.NewRequest(http.MethodGet, "/api/v1/billing/invoices?status=PENDING&unlinked=true", nil))

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decodeResponse(t, w)
		assert.Equal(t, int64(1), resp.Meta.Total)
		assert.Len(t, resp.Data, 1)
		ledger.AssertExpectations(t)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		w := serveLedger(new(MockLedgerReader), new(MockCreditNoteResolver),
			httptest.NewRequest(http.MethodGet, "/api/v1/billing/invoices?status=LATE", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects oversized page", func(t *testing.T) {
		w := serveLedger(new(MockLedgerReader), new(MockCreditNoteResolver),
			httptest.NewRequest(http.MethodGet, "/api/v1/billing/invoices?page_size=1000", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLedgerHandler_ListCreditNotes(t *testing.T) {
	ledger := new(MockLedgerReader)
	ledger.On("ListCreditNotes", mock.Anything, billingapp.CreditNoteListFilter{Page: 1, PageSize: 20}).
		Return([]billingapp.CreditNoteResponse{{CreditNoteNumber: "NC-001-001-000000012", Status: "PENDING_REVIEW"}}, int64(1), nil)

	w := serveLedger(ledger, new(MockCreditNoteResolver), httptest.NewRequest(http.MethodGet, "/api/v1/billing/credit-notes", nil))

	require.Equal(t, http.StatusOK, w.Code)
	items := decodeResponse(t, w).Data.([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "PENDING_REVIEW", items[0].(map[string]any)["status"])
	ledger.AssertExpectations(t)
}

func TestLedgerHandler_ResolveCreditNote(t *testing.T) {
	resolveRequest := func(id, body string, actor uuid.UUID) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/credit-notes/"+id+"/resolve", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if actor != uuid.Nil {
			req.Header.Set(middleware.ActorHeader, actor.String())
		}
		return req
	}

	t.Run("apply", func(t *testing.T) {
		resolver := new(MockCreditNoteResolver)
		id := uuid.New()
		actor := uuid.New()
		now := time.Now()

		note := &billing.CreditNote{
			CreditNoteNumber: "NC-001-001-000000012",
			InvoiceNumber:    "001-001-000000045",
			Amount:           decimal.NewFromInt(15),
			Status:           billing.CreditNoteStatusApplied,
			ResolvedBy:       &actor,
			ResolvedAt:       &now,
		}
		note.ID = id
		payment := &billing.Payment{
			ReceiptNumber:   "NC-001-001-000000012",
			IsSynthetic:     true,
			Amount:          decimal.NewFromInt(15),
			Type:            billing.PaymentTypeAdjustment,
			AllocationState: billing.AllocationStateAllocated,
		}
		resolver.On("ResolveCreditNote", mock.Anything, id, billing.CreditNoteResolutionApply, actor).
			Return(&importapp.CreditNoteResolutionResult{
				CreditNote:  note,
				Payment:     payment,
				Allocations: []*billing.Allocation{{ID: uuid.New(), InvoiceNumber: "001-001-000000045", Amount: decimal.NewFromInt(15)}},
			}, nil)

		w := serveLedger(new(MockLedgerReader), resolver, resolveRequest(id.String(), `{"resolution":"apply"}`, actor))

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		payload := decodeResponse(t, w).Data.(map[string]any)
		assert.Equal(t, "APPLIED", payload["credit_note"].(map[string]any)["status"])
		assert.Equal(t, true, payload["payment"].(map[string]any)["is_synthetic"])
		assert.Len(t, payload["allocations"], 1)
		assert.Empty(t, payload["warnings"])
		resolver.AssertExpectations(t)
	})

	t.Run("already resolved", func(t *testing.T) {
		resolver := new(MockCreditNoteResolver)
		id := uuid.New()
		resolver.On("ResolveCreditNote", mock.Anything, id, billing.CreditNoteResolutionDismiss, uuid.Nil).
			Return(nil, shared.NewDomainError(billing.CodeCreditNoteResolved, "Credit note already resolved"))

		w := serveLedger(new(MockLedgerReader), resolver, resolveRequest(id.String(), `{"resolution":"DISMISS"}`, uuid.Nil))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeCreditNoteResolved, decodeResponse(t, w).Error.Code)
	})

	t.Run("invalid resolution", func(t *testing.T) {
		w := serveLedger(new(MockLedgerReader), new(MockCreditNoteResolver), resolveRequest(uuid.NewString(), `{"resolution":"REFUND"}`, uuid.Nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, decodeResponse(t, w).Error.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := serveLedger(new(MockLedgerReader), new(MockCreditNoteResolver), resolveRequest("12", `{"resolution":"APPLY"}`, uuid.Nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidID, decodeResponse(t, w).Error.Code)
	})
}
