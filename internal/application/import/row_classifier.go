package importapp

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/notaria/backoffice/internal/domain/billing"
	sheetimport "github.com/notaria/backoffice/internal/infrastructure/import"
	"github.com/shopspring/decimal"
)

// Export columns
const (
	ColumnDocType        = "tipdoc"
	ColumnTransaction    = "numtra"
	ColumnDocumentNumber = "numdoc"
	ColumnAmount         = "valcob"
	ColumnIssueDate      = "fecemi"
	ColumnClientCode     = "codcli"
	ColumnClientName     = "nomcli"
	ColumnConcept        = "concep"
)

// Document types carried in the tipdoc column
const (
	DocTypeInvoice    = "FC"
	DocTypePayment    = "AB"
	DocTypeCreditNote = "NC"
)

// ClassifiedRow is one of InvoiceRow, PaymentRow, CreditNoteRow or UnrecognizedRow.
type ClassifiedRow interface {
	Line() int
	classified()
}

// InvoiceRow is an FC row
type InvoiceRow struct {
	LineNumber       int
	InvoiceNumber    string
	RawInvoiceNumber string
	ClientTaxID      string
	ClientName       string
	Amount           decimal.Decimal
	IssueDate        time.Time
}

// PaymentRow is an AB row. InvoiceNumbers holds one or more canonical numbers.
type PaymentRow struct {
	LineNumber     int
	ReceiptNumber  string
	TransactionRef string
	InvoiceNumbers []string
	Amount         decimal.Decimal
	PaymentDate    time.Time
	Concept        string
	ClientTaxID    string
	ClientName     string
}

// CreditNoteRow is an NC row
type CreditNoteRow struct {
	LineNumber       int
	CreditNoteNumber string
	InvoiceNumber    string
	Amount           decimal.Decimal
	IssueDate        time.Time
	Concept          string
}

// UnrecognizedRow carries a tipdoc value the importer does not handle
type UnrecognizedRow struct {
	LineNumber int
	DocType    string
}

func (r InvoiceRow) Line() int      { return r.LineNumber }
func (r PaymentRow) Line() int      { return r.LineNumber }
func (r CreditNoteRow) Line() int   { return r.LineNumber }
func (r UnrecognizedRow) Line() int { return r.LineNumber }

func (InvoiceRow) classified()      {}
func (PaymentRow) classified()      {}
func (CreditNoteRow) classified()   {}
func (UnrecognizedRow) classified() {}

// RowClassifier turns raw rows into typed rows with parsed values.
type RowClassifier struct {
	normalizer *billing.InvoiceNumberNormalizer
}

// NewRowClassifier creates a classifier. A nil normalizer assumes the
// DefaultEstablishment-DefaultEmissionPoint series for bare sequentials.
func NewRowClassifier(normalizer *billing.InvoiceNumberNormalizer) *RowClassifier {
	if normalizer == nil {
		normalizer = billing.NewInvoiceNumberNormalizer(
			billing.WithDefaultSeries(billing.DefaultEstablishment, billing.DefaultEmissionPoint))
	}
	return &RowClassifier{normalizer: normalizer}
}

// Classify dispatches on tipdoc. A returned error is always a sheetimport.RowError.
func (c *RowClassifier) Classify(row *sheetimport.Row) (ClassifiedRow, error) {
	docType := strings.ToUpper(strings.TrimSpace(row.Get(ColumnDocType)))
	switch docType {
	case DocTypeInvoice:
		return c.invoiceRow(row)
	case DocTypePayment:
		return c.paymentRow(row)
	case DocTypeCreditNote:
		return c.creditNoteRow(row)
	}
	return UnrecognizedRow{LineNumber: row.LineNumber, DocType: docType}, nil
}

func (c *RowClassifier) invoiceRow(row *sheetimport.Row) (ClassifiedRow, error) {
	raw := strings.TrimSpace(row.Get(ColumnTransaction))
	if raw == "" {
		return nil, requiredField(row, ColumnTransaction)
	}
	number, err := c.normalizer.Normalize(raw)
	if err != nil {
		return nil, malformedNumber(row, ColumnTransaction, raw, err)
	}

	amount, err := parseAmount(row)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, sheetimport.NewRowErrorWithValue(row.LineNumber, ColumnAmount,
			sheetimport.ErrCodeImportInvalidAmount, "invoice amount must be positive", row.Get(ColumnAmount))
	}

	issued, err := parseOptionalDate(row)
	if err != nil {
		return nil, err
	}

	return InvoiceRow{
		LineNumber:       row.LineNumber,
		InvoiceNumber:    number,
		RawInvoiceNumber: raw,
		ClientTaxID:      strings.TrimSpace(row.Get(ColumnClientCode)),
		ClientName:       strings.TrimSpace(row.Get(ColumnClientName)),
		Amount:           amount,
		IssueDate:        issued,
	}, nil
}

func (c *RowClassifier) paymentRow(row *sheetimport.Row) (ClassifiedRow, error) {
	raw := strings.TrimSpace(row.Get(ColumnTransaction))
	if raw == "" {
		return nil, requiredField(row, ColumnTransaction)
	}
	refs, err := c.References(raw)
	if err != nil {
		return nil, malformedNumber(row, ColumnTransaction, raw, err)
	}

	amount, err := parseAmount(row)
	if err != nil {
		return nil, err
	}

	paid, err := parseOptionalDate(row)
	if err != nil {
		return nil, err
	}

	return PaymentRow{
		LineNumber:     row.LineNumber,
		ReceiptNumber:  strings.TrimSpace(row.Get(ColumnDocumentNumber)),
		TransactionRef: raw,
		InvoiceNumbers: refs,
		Amount:         amount,
		PaymentDate:    paid,
		Concept:        strings.TrimSpace(row.Get(ColumnConcept)),
		ClientTaxID:    strings.TrimSpace(row.Get(ColumnClientCode)),
		ClientName:     strings.TrimSpace(row.Get(ColumnClientName)),
	}, nil
}

func (c *RowClassifier) creditNoteRow(row *sheetimport.Row) (ClassifiedRow, error) {
	raw := strings.TrimSpace(row.Get(ColumnTransaction))
	if raw == "" {
		return nil, requiredField(row, ColumnTransaction)
	}
	number, err := c.normalizer.Normalize(raw)
	if err != nil {
		return nil, malformedNumber(row, ColumnTransaction, raw, err)
	}

	amount, err := parseAmount(row)
	if err != nil {
		return nil, err
	}
	issued, err := parseOptionalDate(row)
	if err != nil {
		return nil, err
	}

	noteNumber := strings.TrimSpace(row.Get(ColumnDocumentNumber))
	if noteNumber == "" {
		noteNumber = number + "-" + billing.ShortHash(amount, issued)
	}

	return CreditNoteRow{
		LineNumber:       row.LineNumber,
		CreditNoteNumber: noteNumber,
		InvoiceNumber:    number,
		Amount:           amount,
		IssueDate:        issued,
		Concept:          strings.TrimSpace(row.Get(ColumnConcept)),
	}, nil
}

// References normalizes a transaction reference naming one or several invoices.
// "001/002/123341" (three slash-separated parts with short series segments) is
// read as a single number.
func (c *RowClassifier) References(raw string) ([]string, error) {
	parts := billing.SplitInvoiceReferences(raw)
	if len(parts) == 0 {
		return nil, billing.ErrMalformedInvoiceNumber
	}
	if isSlashedNumber(raw, parts) {
		number, err := c.normalizer.Normalize(raw)
		if err != nil {
			return nil, err
		}
		return []string{number}, nil
	}

	refs := make([]string, 0, len(parts))
	for _, p := range parts {
		number, err := c.normalizer.Normalize(p)
		if err != nil {
			return nil, err
		}
		refs = append(refs, number)
	}
	return refs, nil
}

func isSlashedNumber(raw string, parts []string) bool {
	if len(parts) != 3 || strings.ContainsAny(raw, ",;&|") {
		return false
	}
	return len(parts[0]) <= billing.EstablishmentWidth && len(parts[1]) <= billing.EmissionPointWidth
}

func parseAmount(row *sheetimport.Row) (decimal.Decimal, error) {
	raw := row.Get(ColumnAmount)
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, requiredField(row, ColumnAmount)
	}
	amount, err := sheetimport.ParseMoneyAmount(raw)
	if err != nil {
		return decimal.Zero, valueError(row, ColumnAmount, err)
	}
	return amount, nil
}

// parseOptionalDate returns the zero time for an empty fecemi cell
func parseOptionalDate(row *sheetimport.Row) (time.Time, error) {
	raw := row.Get(ColumnIssueDate)
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	t, err := sheetimport.ParseDateCell(raw)
	if err != nil {
		return time.Time{}, valueError(row, ColumnIssueDate, err)
	}
	return t, nil
}

func requiredField(row *sheetimport.Row, column string) sheetimport.RowError {
	return sheetimport.NewRowError(row.LineNumber, column, sheetimport.ErrCodeImportRequiredField,
		fmt.Sprintf("field '%s' is required", column))
}

func malformedNumber(row *sheetimport.Row, column, raw string, err error) sheetimport.RowError {
	return sheetimport.NewRowErrorWithValue(row.LineNumber, column,
		sheetimport.ErrCodeImportMalformedInvoiceNumber, err.Error(), raw)
}

func valueError(row *sheetimport.Row, column string, err error) sheetimport.RowError {
	var ve *sheetimport.ValueError
	if errors.As(err, &ve) {
		return sheetimport.RowErrorFromValue(row.LineNumber, column, ve)
	}
	return sheetimport.NewRowErrorWithValue(row.LineNumber, column,
		sheetimport.ErrCodeImportInvalidAmount, err.Error(), row.Get(column))
}
