package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/notaria/backoffice/internal/domain/billing"
	"github.com/notaria/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormDocumentRepository reads the documents table to link invoices
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// FindIDsByInvoiceNumbers maps each matched invoice number to its document ID.
// When several documents carry the same number the first one wins.
func (r *GormDocumentRepository) FindIDsByInvoiceNumbers(ctx context.Context, invoiceNumbers []string) (map[string]uuid.UUID, error) {
	ids := make(map[string]uuid.UUID)
	if len(invoiceNumbers) == 0 {
		return ids, nil
	}
	var documentModels []models.DocumentModel
	if err := r.db.WithContext(ctx).
		Select("id", "invoice_number").
		Where("invoice_number IN ?", invoiceNumbers).
		Order("invoice_number ASC, id ASC").
		Find(&documentModels).Error; err != nil {
		return nil, err
	}
	for _, d := range documentModels {
		if _, ok := ids[d.InvoiceNumber]; !ok {
			ids[d.InvoiceNumber] = d.ID
		}
	}
	return ids, nil
}

// Compile-time interface compliance check
var _ billing.DocumentRepository = (*GormDocumentRepository)(nil)
