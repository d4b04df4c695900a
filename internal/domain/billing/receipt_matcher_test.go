package billing

import (
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordAdjustmentPredicate(t *testing.T) {
	p := NewKeywordAdjustmentPredicate()

	assert.Equal(t, "keyword_adjustment", p.Name())
	assert.ElementsMatch(t, DefaultAdjustmentKeywords, p.Keywords())

	assert.True(t, p.Matches("DESCUENTO POR PRONTO PAGO"))
	assert.True(t, p.Matches("dscto. cliente frecuente"))
	assert.True(t, p.Matches("Ajusté de saldo"))
	assert.False(t, p.Matches("PAGO TRANSFERENCIA"))
	assert.False(t, p.Matches(""))

	custom := NewKeywordAdjustmentPredicate("rebaja", "  ")
	assert.Equal(t, []string{"REBAJA"}, custom.Keywords())
	assert.True(t, custom.Matches("Rebaja especial"))
	assert.False(t, custom.Matches("DESCUENTO"))
}

func TestAnyAdjustmentPredicate(t *testing.T) {
	p := NewAnyAdjustmentPredicate(
		NewKeywordAdjustmentPredicate("REBAJA"),
		nil,
		NewKeywordAdjustmentPredicate("BONIFICACION"),
	)
	assert.True(t, p.Matches("rebaja"))
	assert.True(t, p.Matches("Bonificación anual"))
	assert.False(t, p.Matches("descuento"))
	assert.False(t, NewAnyAdjustmentPredicate().Matches("anything"))
}

func TestReceiptMatcher_Match(t *testing.T) {
	m := NewReceiptMatcher(nil)
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	t.Run("uses the receipt number verbatim", func(t *testing.T) {
		got, err := m.Match(ReceiptSource{ReceiptNumber: "  R-001 ", Concept: "DESCUENTO"})
		require.NoError(t, err)
		assert.Equal(t, ReceiptMatch{ReceiptNumber: "R-001"}, got)
	})

	t.Run("synthesizes a receipt for adjustments", func(t *testing.T) {
		src := ReceiptSource{
			TransactionNumber: "124370",
			Concept:           "Descuento",
			Amount:            decimal.RequireFromString("5.50"),
			Date:              date,
		}
		got, err := m.Match(src)
		require.NoError(t, err)
		assert.True(t, got.IsSynthetic)
		assert.Regexp(t, regexp.MustCompile(`^DESC-124370-[a-z2-7]{6}$`), got.ReceiptNumber)

		again, err := m.Match(src)
		require.NoError(t, err)
		assert.Equal(t, got, again, "synthetic receipts are deterministic")
	})

	t.Run("different amount gives a different receipt", func(t *testing.T) {
		a, err := m.Match(ReceiptSource{TransactionNumber: "1", Concept: "AJUSTE", Amount: decimal.NewFromInt(1), Date: date})
		require.NoError(t, err)
		b, err := m.Match(ReceiptSource{TransactionNumber: "1", Concept: "AJUSTE", Amount: decimal.NewFromInt(2), Date: date})
		require.NoError(t, err)
		assert.NotEqual(t, a.ReceiptNumber, b.ReceiptNumber)
	})

	t.Run("missing receipt on a non adjustment row", func(t *testing.T) {
		_, err := m.Match(ReceiptSource{TransactionNumber: "124370", Concept: "PAGO"})
		assert.ErrorIs(t, err, ErrMissingReceiptNumber)
	})

	t.Run("adjustment without transaction number", func(t *testing.T) {
		_, err := m.Match(ReceiptSource{Concept: "DESCUENTO"})
		assert.ErrorIs(t, err, ErrMissingReceiptNumber)
	})
}

func TestShortHash(t *testing.T) {
	date := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	h := ShortHash(decimal.RequireFromString("10.5"), date)
	assert.Len(t, h, 6)
	assert.Equal(t, h, ShortHash(decimal.RequireFromString("10.50"), date.Truncate(24*time.Hour)),
		"amount scale and time of day do not change the hash")
}

func TestFoldText(t *testing.T) {
	assert.Equal(t, "NOTA DE CREDITO", FoldText("  Nota de   crédito "))
	assert.Equal(t, "ANO", FoldText("año"))
	assert.Equal(t, "", FoldText("   "))
}

func TestInferPaymentType(t *testing.T) {
	assert.Equal(t, PaymentTypeAdjustment, InferPaymentType("EFECTIVO", true))
	assert.Equal(t, PaymentTypeCash, InferPaymentType("Pago en efectivo", false))
	assert.Equal(t, PaymentTypeCash, InferPaymentType("CAJA 2", false))
	assert.Equal(t, PaymentTypeTransfer, InferPaymentType("TRANSFERENCIA PICHINCHA", false))
	assert.Equal(t, PaymentTypeTransfer, InferPaymentType("", false))
}
