package models

import "github.com/google/uuid"

// DocumentModel maps the documents table owned by the document management
// module. Billing only reads it to link invoices.
type DocumentModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	InvoiceNumber string    `gorm:"type:varchar(64);index"`
}

// TableName returns the table name for GORM
func (DocumentModel) TableName() string {
	return "documents"
}
