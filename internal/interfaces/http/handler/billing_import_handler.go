package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	importapp "github.com/notaria/backoffice/internal/application/import"
	"github.com/notaria/backoffice/internal/domain/bulk"
	"github.com/notaria/backoffice/internal/domain/shared"
	sheetimport "github.com/notaria/backoffice/internal/infrastructure/import"
	"github.com/notaria/backoffice/internal/infrastructure/logger"
	"github.com/notaria/backoffice/internal/infrastructure/telemetry"
	"github.com/notaria/backoffice/internal/interfaces/http/dto"
	"github.com/notaria/backoffice/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// UploadField is the multipart field carrying the export file
const UploadField = "file"

// DefaultMaxUploadSize caps uploads when no limit is configured
const DefaultMaxUploadSize int64 = 20 << 20

// BillingImporter imports one export file
type BillingImporter interface {
	ImportFile(ctx context.Context, data []byte, filename string, actorID uuid.UUID) (*importapp.ImportResult, error)
}

// ImportLogReader reads the import audit trail
type ImportLogReader interface {
	GetLog(ctx context.Context, id uuid.UUID) (*bulk.ImportLog, error)
	ListLogs(ctx context.Context, filter importapp.ListLogsFilter, page, pageSize int) (*shared.Paginated[*bulk.ImportLog], error)
	PreviousImport(ctx context.Context, data []byte) (*bulk.ImportLog, error)
	GetErrorsCSV(ctx context.Context, id uuid.UUID) (string, string, error)
}

// BillingImportHandler serves the export upload and import log endpoints
type BillingImportHandler struct {
	BaseHandler
	importer      BillingImporter
	logs          ImportLogReader
	maxUploadSize int64
}

// BillingImportOption configures a BillingImportHandler
type BillingImportOption func(*BillingImportHandler)

// WithMaxUploadSize caps the accepted upload size
func WithMaxUploadSize(n int64) BillingImportOption {
	return func(h *BillingImportHandler) {
		if n > 0 {
			h.maxUploadSize = n
		}
	}
}

// NewBillingImportHandler creates a new BillingImportHandler
func NewBillingImportHandler(importer BillingImporter, logs ImportLogReader, opts ...BillingImportOption) *BillingImportHandler {
	h := &BillingImportHandler{
		importer:      importer,
		logs:          logs,
		maxUploadSize: DefaultMaxUploadSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Import godoc
//
//	POST /billing/imports (multipart/form-data, field "file")
//
// Imports one Koinor export. Row errors are reported in the result; a
// structural failure (unreadable file, missing columns) answers 4xx and no
// row is applied.
func (h *BillingImportHandler) Import(c *gin.Context) {
	fileHeader, err := c.FormFile(UploadField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.ErrorWithCode(c, dto.ErrCodeRequestTooLarge, "Upload exceeds maximum allowed size")
			return
		}
		h.BadRequest(c, dto.ErrCodeMissingUpload, "Multipart field \"file\" is required")
		return
	}
	if fileHeader.Size > h.maxUploadSize {
		h.ErrorWithCode(c, sheetimport.ErrCodeImportFileTooLarge, "Upload exceeds maximum allowed size")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadSize+1))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if int64(len(data)) > h.maxUploadSize {
		h.ErrorWithCode(c, sheetimport.ErrCodeImportFileTooLarge, "Upload exceeds maximum allowed size")
		return
	}

	filename := filepath.Base(fileHeader.Filename)
	actorID := middleware.GetActorID(c)

	ctx, span := telemetry.StartServiceSpan(c.Request.Context(), "billing_import", "import",
		telemetry.WithAttribute(telemetry.SpanAttrFileName, filename),
		telemetry.WithAttribute(telemetry.SpanAttrContentDigest, importapp.ContentDigest(data)),
	)
	defer span.End()

	log := logger.GetGinLogger(c).With(zap.String("file", filename))

	var previousID *uuid.UUID
	previous, err := h.logs.PreviousImport(ctx, data)
	if err != nil {
		log.Warn("Failed to look up previous import", zap.Error(err))
	} else if previous != nil {
		previousID = &previous.ID
		log.Info("File was imported before", zap.String("previous_import_id", previous.ID.String()))
	}

	result, err := h.importer.ImportFile(ctx, data, filename, actorID)
	if err != nil {
		telemetry.RecordError(span, err)
		h.HandleError(c, err)
		return
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrImportLogID, result.ImportLogID.String(),
		telemetry.SpanAttrFileType, string(result.FileType),
		telemetry.SpanAttrRowCount, result.TotalRows,
		telemetry.SpanAttrErrorCount, result.Errors,
	)
	telemetry.SetOK(span)

	h.Created(c, dto.ImportResponse{
		ImportResult:     result,
		Status:           string(dto.ImportStatusOf(result)),
		PreviousImportID: previousID,
	})
}

// ListImports godoc
//
//	GET /billing/imports?file_type=&status=&actor_id=&started_from=&started_to=&page=&page_size=
func (h *BillingImportHandler) ListImports(c *gin.Context) {
	var req dto.ImportLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	req.Normalize()

	page, err := h.logs.ListLogs(c.Request.Context(), req.ToFilter(), req.Page, req.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, dto.ToImportLogSummaries(page.Items), page.Total, page.Page, page.PageSize)
}

// GetImport godoc
//
//	GET /billing/imports/:id
func (h *BillingImportHandler) GetImport(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	log, err := h.logs.GetLog(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToImportLogResponse(log))
}

// DownloadErrors godoc
//
//	GET /billing/imports/:id/errors.csv
func (h *BillingImportHandler) DownloadErrors(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	content, filename, err := h.logs.GetErrorsCSV(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(content))
}
