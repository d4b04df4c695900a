package bulk

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/notaria/backoffice/internal/domain/shared"
)

// ImportLogFilter defines the filters for querying import logs
type ImportLogFilter struct {
	shared.Filter
	Status      *ImportStatus // Filter by status
	FileType    *FileType     // Filter by file type
	ActorID     *uuid.UUID    // Filter by who imported
	StartedFrom *time.Time    // Filter by start time (from)
	StartedTo   *time.Time    // Filter by start time (to)
}

// ImportLogRepository defines the interface for import log persistence.
// Logs are written once and never updated.
type ImportLogRepository interface {
	// FindByID finds an import log by ID
	FindByID(ctx context.Context, id uuid.UUID) (*ImportLog, error)

	// FindAll returns import logs, newest first
	FindAll(ctx context.Context, filter ImportLogFilter) (*shared.Paginated[*ImportLog], error)

	// FindLatestByDigest returns the most recent log for the given content digest
	FindLatestByDigest(ctx context.Context, digest string) (*ImportLog, error)

	// Create inserts a finished import log
	Create(ctx context.Context, log *ImportLog) error
}
