package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/notaria/backoffice/internal/domain/bulk"
	"github.com/notaria/backoffice/internal/domain/shared"
	"github.com/notaria/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormImportLogRepository implements ImportLogRepository using GORM
type GormImportLogRepository struct {
	db *gorm.DB
}

// NewGormImportLogRepository creates a new GormImportLogRepository
func NewGormImportLogRepository(db *gorm.DB) *GormImportLogRepository {
	return &GormImportLogRepository{db: db}
}

// FindByID finds an import log by ID
func (r *GormImportLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*bulk.ImportLog, error) {
	var model models.ImportLogModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns import logs with pagination and filtering
func (r *GormImportLogRepository) FindAll(ctx context.Context, filter bulk.ImportLogFilter) (*shared.Paginated[*bulk.ImportLog], error) {
	query := r.applyFilters(r.db.WithContext(ctx).Model(&models.ImportLogModel{}), filter)

	var totalCount int64
	if err := query.Count(&totalCount).Error; err != nil {
		return nil, err
	}

	sortField := ValidateSortField(filter.OrderBy, ImportLogSortFields, "started_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)

	var logModels []models.ImportLogModel
	if err := query.
		Order(sortField + " " + sortOrder).
		Order("created_at DESC").
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&logModels).Error; err != nil {
		return nil, err
	}

	logs := make([]*bulk.ImportLog, len(logModels))
	for i := range logModels {
		logs[i] = logModels[i].ToDomain()
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	result := shared.NewPaginated(logs, totalCount, page, filter.Limit())
	return &result, nil
}

// FindLatestByDigest returns the most recent log for the given content digest
func (r *GormImportLogRepository) FindLatestByDigest(ctx context.Context, digest string) (*bulk.ImportLog, error) {
	var model models.ImportLogModel
	if err := r.db.WithContext(ctx).
		Where("content_digest = ?", digest).
		Order("started_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts a finished import log
func (r *GormImportLogRepository) Create(ctx context.Context, log *bulk.ImportLog) error {
	model := models.ImportLogModelFromDomain(log)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicateKey(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// applyFilters applies filter options to the query
func (r *GormImportLogRepository) applyFilters(query *gorm.DB, filter bulk.ImportLogFilter) *gorm.DB {
	if filter.FileType != nil {
		query = query.Where("file_type = ?", *filter.FileType)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.ActorID != nil {
		query = query.Where("actor_id = ?", *filter.ActorID)
	}
	if filter.StartedFrom != nil {
		query = query.Where("started_at >= ?", *filter.StartedFrom)
	}
	if filter.StartedTo != nil {
		query = query.Where("started_at <= ?", *filter.StartedTo)
	}
	if filter.Search != "" {
		query = query.Where("LOWER(file_name) LIKE ?", likePattern(filter.Search))
	}
	return query
}

// Compile-time interface compliance check
var _ bulk.ImportLogRepository = (*GormImportLogRepository)(nil)
