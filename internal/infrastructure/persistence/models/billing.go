package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/notaria/backoffice/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	AggregateModel
	InvoiceNumber    string                `gorm:"type:varchar(32);not null;uniqueIndex:idx_invoices_number"`
	RawInvoiceNumber string                `gorm:"type:varchar(64)"`
	ClientName       string                `gorm:"type:varchar(255);index"`
	ClientTaxID      string                `gorm:"type:varchar(20)"`
	TotalAmount      decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	PaidAmount       decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	IssueDate        *time.Time            `gorm:"type:date;index"`
	Status           billing.InvoiceStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	DocumentID       *uuid.UUID            `gorm:"type:uuid;index"`
	SourceFile       string                `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice entity.
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	inv := &billing.Invoice{
		InvoiceNumber:    m.InvoiceNumber,
		RawInvoiceNumber: m.RawInvoiceNumber,
		ClientName:       m.ClientName,
		ClientTaxID:      m.ClientTaxID,
		TotalAmount:      m.TotalAmount,
		PaidAmount:       m.PaidAmount,
		Status:           m.Status,
		DocumentID:       m.DocumentID,
		SourceFile:       m.SourceFile,
	}
	m.PopulateAggregateRoot(&inv.BaseAggregateRoot)
	if m.IssueDate != nil {
		inv.IssueDate = *m.IssueDate
	}
	return inv
}

// FromDomain populates the persistence model from a domain Invoice entity.
func (m *InvoiceModel) FromDomain(inv *billing.Invoice) {
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	m.InvoiceNumber = inv.InvoiceNumber
	m.RawInvoiceNumber = inv.RawInvoiceNumber
	m.ClientName = inv.ClientName
	m.ClientTaxID = inv.ClientTaxID
	m.TotalAmount = inv.TotalAmount
	m.PaidAmount = inv.PaidAmount
	m.IssueDate = optionalTime(inv.IssueDate)
	m.Status = inv.Status
	m.DocumentID = inv.DocumentID
	m.SourceFile = inv.SourceFile
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice entity.
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// PaymentModel is the persistence model for the Payment entity.
type PaymentModel struct {
	BaseModel
	ReceiptNumber   string                  `gorm:"type:varchar(64);not null;uniqueIndex:idx_payments_receipt"`
	IsSynthetic     bool                    `gorm:"not null;default:false"`
	Amount          decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	PaymentDate     time.Time               `gorm:"type:date;not null"`
	Type            billing.PaymentType     `gorm:"type:varchar(20);not null"`
	Concept         string                  `gorm:"type:text"`
	TransactionRef  string                  `gorm:"type:varchar(255)"`
	InvoiceRefs     string                  `gorm:"type:jsonb;not null;default:'[]'"`
	AllocationState billing.AllocationState `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	SourceFile      string                  `gorm:"type:varchar(255)"`
	ImportedAt      time.Time               `gorm:"not null"`
	ImportedBy      uuid.UUID               `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment entity.
func (m *PaymentModel) ToDomain() *billing.Payment {
	refs := make([]string, 0)
	if m.InvoiceRefs != "" {
		_ = json.Unmarshal([]byte(m.InvoiceRefs), &refs)
	}
	return &billing.Payment{
		BaseEntity:      m.BaseModel.ToDomain(),
		ReceiptNumber:   m.ReceiptNumber,
		IsSynthetic:     m.IsSynthetic,
		Amount:          m.Amount,
		PaymentDate:     m.PaymentDate,
		Type:            m.Type,
		Concept:         m.Concept,
		TransactionRef:  m.TransactionRef,
		InvoiceRefs:     refs,
		AllocationState: m.AllocationState,
		SourceFile:      m.SourceFile,
		ImportedAt:      m.ImportedAt,
		ImportedBy:      m.ImportedBy,
	}
}

// FromDomain populates the persistence model from a domain Payment entity.
func (m *PaymentModel) FromDomain(p *billing.Payment) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.ReceiptNumber = p.ReceiptNumber
	m.IsSynthetic = p.IsSynthetic
	m.Amount = p.Amount
	m.PaymentDate = p.PaymentDate
	m.Type = p.Type
	m.Concept = p.Concept
	m.TransactionRef = p.TransactionRef
	m.InvoiceRefs = "[]"
	if len(p.InvoiceRefs) > 0 {
		if data, err := json.Marshal(p.InvoiceRefs); err == nil {
			m.InvoiceRefs = string(data)
		}
	}
	m.AllocationState = p.AllocationState
	m.SourceFile = p.SourceFile
	m.ImportedAt = p.ImportedAt
	m.ImportedBy = p.ImportedBy
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment entity.
func PaymentModelFromDomain(p *billing.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// AllocationModel is the persistence model for an Allocation. Rows are
// insert-only and unique per (payment, invoice).
type AllocationModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	PaymentID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_allocations_payment_invoice,priority:1"`
	InvoiceID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_allocations_payment_invoice,priority:2;index"`
	InvoiceNumber string          `gorm:"type:varchar(32);not null"`
	ReceiptNumber string          `gorm:"type:varchar(64);not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	AllocatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AllocationModel) TableName() string {
	return "payment_allocations"
}

// ToDomain converts the persistence model to a domain Allocation.
func (m *AllocationModel) ToDomain() *billing.Allocation {
	return &billing.Allocation{
		ID:            m.ID,
		PaymentID:     m.PaymentID,
		InvoiceID:     m.InvoiceID,
		InvoiceNumber: m.InvoiceNumber,
		ReceiptNumber: m.ReceiptNumber,
		Amount:        m.Amount,
		AllocatedAt:   m.AllocatedAt,
	}
}

// AllocationModelFromDomain creates a new persistence model from a domain Allocation.
func AllocationModelFromDomain(a *billing.Allocation) *AllocationModel {
	return &AllocationModel{
		ID:            a.ID,
		PaymentID:     a.PaymentID,
		InvoiceID:     a.InvoiceID,
		InvoiceNumber: a.InvoiceNumber,
		ReceiptNumber: a.ReceiptNumber,
		Amount:        a.Amount,
		AllocatedAt:   a.AllocatedAt,
	}
}

// CreditNoteModel is the persistence model for the CreditNote entity.
type CreditNoteModel struct {
	BaseModel
	CreditNoteNumber string                   `gorm:"type:varchar(96);not null;uniqueIndex:idx_credit_notes_number"`
	InvoiceNumber    string                   `gorm:"type:varchar(32);not null;index"`
	Amount           decimal.Decimal          `gorm:"type:decimal(18,2);not null"`
	IssueDate        *time.Time               `gorm:"type:date"`
	Concept          string                   `gorm:"type:text"`
	Status           billing.CreditNoteStatus `gorm:"type:varchar(20);not null;default:'PENDING_REVIEW';index"`
	SourceFile       string                   `gorm:"type:varchar(255)"`
	ResolvedBy       *uuid.UUID               `gorm:"type:uuid"`
	ResolvedAt       *time.Time
}

// TableName returns the table name for GORM
func (CreditNoteModel) TableName() string {
	return "credit_notes"
}

// ToDomain converts the persistence model to a domain CreditNote entity.
func (m *CreditNoteModel) ToDomain() *billing.CreditNote {
	note := &billing.CreditNote{
		BaseEntity:       m.BaseModel.ToDomain(),
		CreditNoteNumber: m.CreditNoteNumber,
		InvoiceNumber:    m.InvoiceNumber,
		Amount:           m.Amount,
		Concept:          m.Concept,
		Status:           m.Status,
		SourceFile:       m.SourceFile,
		ResolvedBy:       m.ResolvedBy,
		ResolvedAt:       m.ResolvedAt,
	}
	if m.IssueDate != nil {
		note.IssueDate = *m.IssueDate
	}
	return note
}

// FromDomain populates the persistence model from a domain CreditNote entity.
func (m *CreditNoteModel) FromDomain(n *billing.CreditNote) {
	m.FromDomainBaseEntity(n.BaseEntity)
	m.CreditNoteNumber = n.CreditNoteNumber
	m.InvoiceNumber = n.InvoiceNumber
	m.Amount = n.Amount
	m.IssueDate = optionalTime(n.IssueDate)
	m.Concept = n.Concept
	m.Status = n.Status
	m.SourceFile = n.SourceFile
	m.ResolvedBy = n.ResolvedBy
	m.ResolvedAt = n.ResolvedAt
}

// CreditNoteModelFromDomain creates a new persistence model from a domain CreditNote entity.
func CreditNoteModelFromDomain(n *billing.CreditNote) *CreditNoteModel {
	m := &CreditNoteModel{}
	m.FromDomain(n)
	return m
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
