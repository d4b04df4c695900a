package importapp

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/notaria/backoffice/internal/domain/bulk"
	"github.com/notaria/backoffice/internal/domain/shared"
)

// ErrNothingToExport is returned for error exports of clean imports
var ErrNothingToExport = shared.NewDomainError("NOTHING_TO_EXPORT", "Import has no row errors to export")

// ImportLogService reads the import audit trail
type ImportLogService struct {
	logRepo bulk.ImportLogRepository
}

// NewImportLogService creates a new ImportLogService
func NewImportLogService(logRepo bulk.ImportLogRepository) *ImportLogService {
	return &ImportLogService{
		logRepo: logRepo,
	}
}

// GetLog retrieves a specific import log by ID
func (s *ImportLogService) GetLog(ctx context.Context, id uuid.UUID) (*bulk.ImportLog, error) {
	return s.logRepo.FindByID(ctx, id)
}

// ListLogsFilter defines the filter options for listing import logs
type ListLogsFilter struct {
	FileType    string     // Filter by file type
	Status      string     // Filter by status
	ActorID     *uuid.UUID // Filter by who imported
	StartedFrom *time.Time // Filter by start time (from)
	StartedTo   *time.Time // Filter by start time (to)
}

// ListLogs retrieves import logs with pagination and filtering. Unknown
// status or file type values are ignored.
func (s *ImportLogService) ListLogs(ctx context.Context, filter ListLogsFilter, page, pageSize int) (*shared.Paginated[*bulk.ImportLog], error) {
	repoFilter := bulk.ImportLogFilter{
		Filter: shared.Filter{
			Page:     page,
			PageSize: pageSize,
			OrderBy:  "started_at",
			OrderDir: "desc",
		},
		ActorID:     filter.ActorID,
		StartedFrom: filter.StartedFrom,
		StartedTo:   filter.StartedTo,
	}

	if filter.FileType != "" {
		fileType := bulk.FileType(filter.FileType)
		if fileType.IsValid() {
			repoFilter.FileType = &fileType
		}
	}

	if filter.Status != "" {
		status := bulk.ImportStatus(filter.Status)
		if status.IsValid() {
			repoFilter.Status = &status
		}
	}

	return s.logRepo.FindAll(ctx, repoFilter)
}

// PreviousImport returns the latest log of an import with the same content, or
// nil when the bytes were never imported.
func (s *ImportLogService) PreviousImport(ctx context.Context, data []byte) (*bulk.ImportLog, error) {
	log, err := s.logRepo.FindLatestByDigest(ctx, ContentDigest(data))
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return log, nil
}

// GetErrorsCSV renders the error details of an import log as CSV. It returns
// the content and a file name.
func (s *ImportLogService) GetErrorsCSV(ctx context.Context, id uuid.UUID) (string, string, error) {
	log, err := s.logRepo.FindByID(ctx, id)
	if err != nil {
		return "", "", err
	}

	if len(log.ErrorDetails) == 0 {
		return "", "", ErrNothingToExport
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"Row", "Column", "Error Code", "Error Message", "Value"})
	for _, e := range log.ErrorDetails {
		_ = w.Write([]string{strconv.Itoa(e.Row), e.Column, e.Code, e.Message, e.Value})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", "", fmt.Errorf("failed to render errors: %w", err)
	}

	fileName := fmt.Sprintf("import_errors_%s_%s.csv", log.FileType, log.ID.String()[:8])
	return buf.String(), fileName, nil
}
