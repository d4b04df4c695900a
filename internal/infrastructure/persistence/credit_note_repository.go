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

// GormCreditNoteRepository implements CreditNoteRepository using GORM
type GormCreditNoteRepository struct {
	db *gorm.DB
}

// NewGormCreditNoteRepository creates a new GormCreditNoteRepository
func NewGormCreditNoteRepository(db *gorm.DB) *GormCreditNoteRepository {
	return &GormCreditNoteRepository{db: db}
}

// FindByID finds a credit note by ID
func (r *GormCreditNoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.CreditNote, error) {
	var model models.CreditNoteModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ExistsByNumber checks if a credit note with the number exists
func (r *GormCreditNoteRepository) ExistsByNumber(ctx context.Context, creditNoteNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.CreditNoteModel{}).
		Where("credit_note_number = ?", creditNoteNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindAll finds credit notes with filtering and pagination
func (r *GormCreditNoteRepository) FindAll(ctx context.Context, filter billing.CreditNoteFilter) ([]*billing.CreditNote, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.CreditNoteModel{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where("LOWER(credit_note_number) LIKE ? OR LOWER(invoice_number) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortField := ValidateSortField(filter.OrderBy, CreditNoteSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)

	var noteModels []models.CreditNoteModel
	if err := query.
		Order(sortField + " " + sortOrder).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&noteModels).Error; err != nil {
		return nil, 0, err
	}

	notes := make([]*billing.CreditNote, len(noteModels))
	for i := range noteModels {
		notes[i] = noteModels[i].ToDomain()
	}
	return notes, total, nil
}

// Save creates or updates a credit note
func (r *GormCreditNoteRepository) Save(ctx context.Context, note *billing.CreditNote) error {
	model := models.CreditNoteModelFromDomain(note)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if isDuplicateKey(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Compile-time interface compliance check
var _ billing.CreditNoteRepository = (*GormCreditNoteRepository)(nil)
