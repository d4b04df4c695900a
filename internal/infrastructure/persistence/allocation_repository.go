package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/notaria/backoffice/internal/domain/billing"
	"github.com/notaria/backoffice/internal/domain/shared"
	"github.com/notaria/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAllocationRepository implements AllocationRepository using GORM.
// Allocations are insert-only.
type GormAllocationRepository struct {
	db *gorm.DB
}

// NewGormAllocationRepository creates a new GormAllocationRepository
func NewGormAllocationRepository(db *gorm.DB) *GormAllocationRepository {
	return &GormAllocationRepository{db: db}
}

// Create inserts allocations in one statement
func (r *GormAllocationRepository) Create(ctx context.Context, allocations ...*billing.Allocation) error {
	if len(allocations) == 0 {
		return nil
	}
	allocationModels := make([]*models.AllocationModel, len(allocations))
	for i, a := range allocations {
		allocationModels[i] = models.AllocationModelFromDomain(a)
	}
	if err := r.db.WithContext(ctx).Create(allocationModels).Error; err != nil {
		if isDuplicateKey(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// ExistsForPair checks if an allocation exists for the payment and invoice
func (r *GormAllocationRepository) ExistsForPair(ctx context.Context, paymentID, invoiceID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.AllocationModel{}).
		Where("payment_id = ? AND invoice_id = ?", paymentID, invoiceID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByInvoiceID lists the allocations of an invoice, oldest first
func (r *GormAllocationRepository) FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]*billing.Allocation, error) {
	var allocationModels []models.AllocationModel
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("allocated_at ASC").
		Find(&allocationModels).Error; err != nil {
		return nil, err
	}
	allocations := make([]*billing.Allocation, len(allocationModels))
	for i := range allocationModels {
		allocations[i] = allocationModels[i].ToDomain()
	}
	return allocations, nil
}

// Compile-time interface compliance check
var _ billing.AllocationRepository = (*GormAllocationRepository)(nil)
