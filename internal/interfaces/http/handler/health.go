package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger checks a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger
type PingerFunc func(ctx context.Context) error

// Ping calls f
func (f PingerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	BaseHandler
	startTime time.Time
	checks    map[string]Pinger
	timeout   time.Duration
}

// NewHealthHandler creates a HealthHandler reporting the given dependency checks
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		startTime: time.Now(),
		checks:    checks,
		timeout:   2 * time.Second,
	}
}

// Health godoc
//
//	GET /health
//
// Answers 503 when any dependency check fails.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	status := "healthy"
	checks := make(map[string]string, len(h.checks))
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			checks[name] = err.Error()
			status = "unhealthy"
			continue
		}
		checks[name] = "ok"
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":     status,
		"checks":     checks,
		"uptime":     time.Since(h.startTime).Round(time.Second).String(),
		"go_version": runtime.Version(),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}
