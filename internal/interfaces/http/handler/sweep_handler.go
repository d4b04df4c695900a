package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/notaria/backoffice/internal/infrastructure/scheduler"
	"github.com/notaria/backoffice/internal/interfaces/http/dto"
)

// SweepTrigger starts and reports reconciliation sweeps
type SweepTrigger interface {
	TriggerManualRun() error
	GetStatus() map[string]any
	LastRun() *scheduler.SweepRun
}

// SweepHandler serves the manual sweep endpoints
type SweepHandler struct {
	BaseHandler
	trigger SweepTrigger
}

// NewSweepHandler creates a new SweepHandler
func NewSweepHandler(trigger SweepTrigger) *SweepHandler {
	return &SweepHandler{trigger: trigger}
}

// Trigger godoc
//
//	POST /billing/sweep
//
// Starts a sweep in the background and answers 202. A sweep already running
// answers 409.
func (h *SweepHandler) Trigger(c *gin.Context) {
	if err := h.trigger.TriggerManualRun(); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, gin.H{"message": "Reconciliation sweep started"})
}

// Status godoc
//
//	GET /billing/sweep
func (h *SweepHandler) Status(c *gin.Context) {
	h.Success(c, gin.H{
		"scheduler": h.trigger.GetStatus(),
		"last_run":  toSweepResponse(h.trigger.LastRun()),
	})
}

func toSweepResponse(run *scheduler.SweepRun) *dto.SweepResponse {
	if run == nil {
		return nil
	}
	resp := &dto.SweepResponse{
		StartedAt:       run.StartedAt,
		DurationMs:      run.Duration.Milliseconds(),
		Sweep:           run.Sweep,
		DocumentsLinked: run.DocumentsLinked,
	}
	if run.Err != nil {
		resp.Error = run.Err.Error()
	}
	return resp
}
