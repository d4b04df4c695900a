package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCreditNote(t *testing.T) *CreditNote {
	t.Helper()
	note, err := NewCreditNote(NewCreditNoteInput{
		CreditNoteNumber: " 001-002-000000077 ",
		InvoiceNumber:    "001-002-000000001",
		Amount:           decimal.RequireFromString("12.345"),
		IssueDate:        time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Concept:          "Nota de crédito",
	})
	require.NoError(t, err)
	return note
}

func TestNewCreditNote(t *testing.T) {
	note := newTestCreditNote(t)
	assert.Equal(t, "001-002-000000077", note.CreditNoteNumber)
	assert.Equal(t, CreditNoteStatusPendingReview, note.Status)
	assert.True(t, note.Amount.Equal(decimal.RequireFromString("12.35")))
	assert.True(t, note.IsPendingReview())
	assert.Nil(t, note.ResolvedBy)

	_, err := NewCreditNote(NewCreditNoteInput{InvoiceNumber: "001-002-000000001"})
	assert.Error(t, err)

	_, err = NewCreditNote(NewCreditNoteInput{CreditNoteNumber: "NC1", InvoiceNumber: "1"})
	assert.ErrorIs(t, err, ErrMalformedInvoiceNumber)

	_, err = NewCreditNote(NewCreditNoteInput{CreditNoteNumber: "NC1", InvoiceNumber: "001-002-000000001", Amount: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestCreditNote_Resolve(t *testing.T) {
	actor := uuid.New()

	t.Run("apply", func(t *testing.T) {
		note := newTestCreditNote(t)
		require.NoError(t, note.Resolve(CreditNoteResolutionApply, actor))
		assert.Equal(t, CreditNoteStatusApplied, note.Status)
		require.NotNil(t, note.ResolvedBy)
		assert.Equal(t, actor, *note.ResolvedBy)
		assert.NotNil(t, note.ResolvedAt)

		assert.ErrorIs(t, note.Resolve(CreditNoteResolutionDismiss, actor), ErrCreditNoteResolved)
	})

	t.Run("dismiss", func(t *testing.T) {
		note := newTestCreditNote(t)
		require.NoError(t, note.Resolve(CreditNoteResolutionDismiss, actor))
		assert.Equal(t, CreditNoteStatusDismissed, note.Status)
	})

	t.Run("invalid resolution keeps the note pending", func(t *testing.T) {
		note := newTestCreditNote(t)
		assert.Error(t, note.Resolve("LATER", actor))
		assert.True(t, note.IsPendingReview())
	})
}

func TestParseCreditNoteResolution(t *testing.T) {
	r, err := ParseCreditNoteResolution(" apply ")
	require.NoError(t, err)
	assert.Equal(t, CreditNoteResolutionApply, r)

	r, err = ParseCreditNoteResolution("DISMISS")
	require.NoError(t, err)
	assert.Equal(t, CreditNoteResolutionDismiss, r)

	_, err = ParseCreditNoteResolution("maybe")
	assert.Error(t, err)
}

func TestCreditNote_AdjustmentPayment(t *testing.T) {
	note := newTestCreditNote(t)
	actor := uuid.New()

	p, err := note.AdjustmentPayment(actor)
	require.NoError(t, err)
	assert.Equal(t, "NC-001-002-000000077", p.ReceiptNumber)
	assert.Equal(t, PaymentTypeAdjustment, p.Type)
	assert.Equal(t, []string{"001-002-000000001"}, p.InvoiceRefs)
	assert.True(t, p.Amount.Equal(note.Amount))
	assert.Equal(t, actor, p.ImportedBy)
	assert.True(t, p.IsPending())
}
