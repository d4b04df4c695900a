package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/notaria/backoffice/internal/domain/billing"
	"github.com/notaria/backoffice/internal/domain/shared"
	"github.com/notaria/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// ExistsByReceiptNumber checks if a payment with the receipt number exists
func (r *GormPaymentRepository) ExistsByReceiptNumber(ctx context.Context, receiptNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.PaymentModel{}).
		Where("receipt_number = ?", receiptNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByReceiptNumber finds a payment by receipt number
func (r *GormPaymentRepository) FindByReceiptNumber(ctx context.Context, receiptNumber string) (*billing.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).Where("receipt_number = ?", receiptNumber).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindPending finds payments still waiting for their invoices, keyset-paged by ID
func (r *GormPaymentRepository) FindPending(ctx context.Context, after uuid.UUID, limit int) ([]*billing.Payment, error) {
	query := r.db.WithContext(ctx).
		Where("allocation_state = ?", billing.AllocationStatePending).
		Order("id ASC")
	if after != uuid.Nil {
		query = query.Where("id > ?", after)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var paymentModels []models.PaymentModel
	if err := query.Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	payments := make([]*billing.Payment, len(paymentModels))
	for i := range paymentModels {
		payments[i] = paymentModels[i].ToDomain()
	}
	return payments, nil
}

// CountPending counts payments waiting for their invoices
func (r *GormPaymentRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.PaymentModel{}).
		Where("allocation_state = ?", billing.AllocationStatePending).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a payment. A second payment with an existing
// receipt number fails with ErrAlreadyExists.
func (r *GormPaymentRepository) Save(ctx context.Context, payment *billing.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if isDuplicateKey(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Compile-time interface compliance check
var _ billing.PaymentRepository = (*GormPaymentRepository)(nil)
