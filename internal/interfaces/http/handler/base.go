// Package handler implements the HTTP handlers of the backoffice API.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/notaria/backoffice/internal/domain/shared"
	sheetimport "github.com/notaria/backoffice/internal/infrastructure/import"
	"github.com/notaria/backoffice/internal/infrastructure/logger"
	"github.com/notaria/backoffice/internal/infrastructure/scheduler"
	"github.com/notaria/backoffice/internal/interfaces/http/dto"
	"github.com/notaria/backoffice/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 accepted response
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// ErrorWithCode sends an error response, deriving the status from the code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, code, message string) {
	h.Error(c, http.StatusBadRequest, code, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
}

// HandleError converts err to an HTTP response. Domain errors, structural
// import failures and scheduler errors carry their own codes; anything else is
// logged and reported as a 500 without details.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var structural *sheetimport.StructuralError
	if errors.As(err, &structural) {
		h.ErrorWithCode(c, structural.Code, structural.Message)
		return
	}

	if domainErr, ok := shared.AsDomainError(err); ok {
		h.ErrorWithCode(c, dto.NormalizeErrorCode(domainErr.Code), domainErr.Message)
		return
	}

	switch {
	case errors.Is(err, scheduler.ErrSweepInProgress):
		h.ErrorWithCode(c, dto.ErrCodeSweepInProgress, err.Error())
		return
	case errors.Is(err, scheduler.ErrSchedulerNotRunning):
		h.ErrorWithCode(c, dto.ErrCodeSchedulerStopped, err.Error())
		return
	case errors.Is(err, context.DeadlineExceeded):
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeLockTimeout, "The request timed out")
		return
	}

	_ = c.Error(err)
	logger.GetGinLogger(c).Error("Unhandled error", zap.Error(err))
	h.InternalError(c)
}

// parseUUIDParam parses the named path parameter, writing a 400 on failure
func (h *BaseHandler) parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, dto.ErrCodeInvalidID, "Invalid "+name+": must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
