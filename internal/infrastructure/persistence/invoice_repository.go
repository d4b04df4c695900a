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

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber finds an invoice by canonical invoice number
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, invoiceNumber string) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).Where("invoice_number = ?", invoiceNumber).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumbers returns the invoices that exist among the given numbers
func (r *GormInvoiceRepository) FindByNumbers(ctx context.Context, invoiceNumbers []string) ([]*billing.Invoice, error) {
	if len(invoiceNumbers) == 0 {
		return []*billing.Invoice{}, nil
	}
	var invoiceModels []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("invoice_number IN ?", invoiceNumbers).
		Order("invoice_number ASC").
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	return invoicesToDomain(invoiceModels), nil
}

// FindUnlinked finds invoices without a document reference, keyset-paged by ID
func (r *GormInvoiceRepository) FindUnlinked(ctx context.Context, after uuid.UUID, limit int) ([]*billing.Invoice, error) {
	query := r.db.WithContext(ctx).
		Where("document_id IS NULL").
		Order("id ASC")
	if after != uuid.Nil {
		query = query.Where("id > ?", after)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var invoiceModels []models.InvoiceModel
	if err := query.Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	return invoicesToDomain(invoiceModels), nil
}

// FindAll finds invoices with filtering and pagination
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter billing.InvoiceFilter) ([]*billing.Invoice, int64, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.InvoiceModel{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortField := ValidateSortField(filter.OrderBy, InvoiceSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)

	var invoiceModels []models.InvoiceModel
	if err := query.
		Order(sortField + " " + sortOrder).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&invoiceModels).Error; err != nil {
		return nil, 0, err
	}
	return invoicesToDomain(invoiceModels), total, nil
}

// Save creates the invoice or updates it with an optimistic version check.
// The domain bumps Version on every change, so the stored version must be
// strictly behind the one being written.
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	db := r.db.WithContext(ctx)

	var current models.InvoiceModel
	err := db.Select("id", "version").Where("id = ?", invoice.ID).First(&current).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := db.Create(model).Error; err != nil {
			if isDuplicateKey(err) {
				return shared.ErrAlreadyExists
			}
			return err
		}
		return nil
	}
	if err != nil {
		return err
	}
	if current.Version >= invoice.Version {
		return shared.ErrConcurrencyConflict
	}

	result := db.Model(&models.InvoiceModel{}).
		Where("id = ? AND version = ?", invoice.ID, current.Version).
		Select("*").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter billing.InvoiceFilter) *gorm.DB {
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where("LOWER(invoice_number) LIKE ? OR LOWER(raw_invoice_number) LIKE ? OR LOWER(client_name) LIKE ?",
			pattern, pattern, pattern)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.ClientName != "" {
		query = query.Where("LOWER(client_name) LIKE ?", likePattern(filter.ClientName))
	}
	if filter.Unlinked != nil {
		if *filter.Unlinked {
			query = query.Where("document_id IS NULL")
		} else {
			query = query.Where("document_id IS NOT NULL")
		}
	}
	return query
}

func invoicesToDomain(invoiceModels []models.InvoiceModel) []*billing.Invoice {
	invoices := make([]*billing.Invoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = invoiceModels[i].ToDomain()
	}
	return invoices
}

// Compile-time interface compliance check
var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
