// Package scheduler runs the periodic reconciliation sweep.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	importapp "github.com/notaria/backoffice/internal/application/import"
	"github.com/notaria/backoffice/internal/infrastructure/config"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSweepSchedule runs the sweep every fifteen minutes
const DefaultSweepSchedule = "*/15 * * * *"

// Reconciler is the part of the import service a sweep drives
type Reconciler interface {
	ResolvePendingPayments(ctx context.Context) (*importapp.SweepResult, error)
	LinkDocuments(ctx context.Context) (int, error)
}

// SweepSchedulerConfig holds configuration for the sweep scheduler
type SweepSchedulerConfig struct {
	Enabled    bool
	Schedule   string // standard five-field cron spec
	JobTimeout time.Duration
	Location   *time.Location
}

// DefaultSweepSchedulerConfig returns default sweep scheduler configuration
func DefaultSweepSchedulerConfig() SweepSchedulerConfig {
	return SweepSchedulerConfig{
		Enabled:    true,
		Schedule:   DefaultSweepSchedule,
		JobTimeout: 10 * time.Minute,
		Location:   time.UTC,
	}
}

// SweepSchedulerConfigFrom fills in defaults for the unset fields of cfg
func SweepSchedulerConfigFrom(cfg config.SchedulerConfig) SweepSchedulerConfig {
	out := DefaultSweepSchedulerConfig()
	out.Enabled = cfg.Enabled
	if cfg.SweepSchedule != "" {
		out.Schedule = cfg.SweepSchedule
	}
	if cfg.JobTimeout > 0 {
		out.JobTimeout = cfg.JobTimeout
	}
	return out
}

// SweepRun is the outcome of one scheduled or manual sweep
type SweepRun struct {
	StartedAt       time.Time
	Duration        time.Duration
	Sweep           *importapp.SweepResult
	DocumentsLinked int
	Err             error
}

// SweepScheduler retries pending payments and document links on a cron schedule.
// Runs never overlap: a tick that fires while a run is active is skipped.
type SweepScheduler struct {
	config     SweepSchedulerConfig
	reconciler Reconciler
	logger     *zap.Logger

	cron    *cron.Cron
	entryID cron.EntryID

	mu        sync.Mutex
	isRunning bool
	lastRun   *SweepRun
	running   atomic.Bool
	wg        sync.WaitGroup
	baseCtx   context.Context
	cancel    context.CancelFunc
}

// NewSweepScheduler validates the schedule and builds a stopped scheduler.
func NewSweepScheduler(cfg SweepSchedulerConfig, reconciler Reconciler, logger *zap.Logger) (*SweepScheduler, error) {
	if reconciler == nil {
		return nil, fmt.Errorf("%w: reconciler is required", ErrInvalidConfig)
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultSweepSchedulerConfig().JobTimeout
	}

	c := cron.New(cron.WithLocation(cfg.Location))
	s := &SweepScheduler{
		config:     cfg,
		reconciler: reconciler,
		logger:     logger,
		cron:       c,
	}
	id, err := c.AddFunc(cfg.Schedule, s.tick)
	if err != nil {
		return nil, fmt.Errorf("%w: sweep schedule %q: %v", ErrInvalidConfig, cfg.Schedule, err)
	}
	s.entryID = id
	return s, nil
}

// Start begins firing the sweep on schedule
func (s *SweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	if !s.config.Enabled {
		s.logger.Info("Sweep scheduler disabled")
		return nil
	}

	s.baseCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.isRunning = true
	s.cron.Start()

	s.logger.Info("Sweep scheduler started",
		zap.String("schedule", s.config.Schedule),
		zap.Duration("job_timeout", s.config.JobTimeout),
		zap.Time("next_run_at", s.cron.Entry(s.entryID).Next),
	)
	return nil
}

// Stop stops the cron and waits for an in-flight sweep, up to ctx.
func (s *SweepScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	cronDone := s.cron.Stop()
	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		cancel()
		s.logger.Info("Sweep scheduler stopped")
		return nil
	case <-ctx.Done():
		cancel()
		s.logger.Warn("Sweep scheduler stop timed out")
		return ctx.Err()
	}
}

// TriggerManualRun runs a sweep immediately on a background context.
func (s *SweepScheduler) TriggerManualRun() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	if !s.running.CompareAndSwap(false, true) {
		return ErrSweepInProgress
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		s.record(s.RunOnce(s.baseCtx))
	}()
	return nil
}

func (s *SweepScheduler) tick() {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("Skipping sweep tick, previous run still active")
		return
	}
	s.wg.Add(1)
	defer s.wg.Done()
	defer s.running.Store(false)

	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	s.record(s.RunOnce(ctx))
}

// RunOnce resolves pending payments then links documents, bounded by the job timeout.
// A failed payment sweep does not prevent document linking.
func (s *SweepScheduler) RunOnce(ctx context.Context) *SweepRun {
	ctx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	run := &SweepRun{StartedAt: time.Now()}
	sweep, sweepErr := s.reconciler.ResolvePendingPayments(ctx)
	run.Sweep = sweep
	if sweepErr != nil {
		s.logger.Error("Pending payment sweep failed", zap.Error(sweepErr))
	}

	linked, linkErr := s.reconciler.LinkDocuments(ctx)
	run.DocumentsLinked = linked
	if linkErr != nil {
		s.logger.Error("Document linking failed", zap.Error(linkErr))
	}

	if sweepErr != nil {
		run.Err = sweepErr
	} else {
		run.Err = linkErr
	}
	run.Duration = time.Since(run.StartedAt)

	fields := []zap.Field{
		zap.Int("documents_linked", linked),
		zap.Duration("duration", run.Duration),
	}
	if sweep != nil {
		fields = append(fields,
			zap.Int("examined", sweep.Examined),
			zap.Int("allocated", sweep.Allocated),
			zap.Int64("still_pending", sweep.StillPending),
		)
	}
	s.logger.Info("Reconciliation sweep finished", fields...)
	return run
}

func (s *SweepScheduler) record(run *SweepRun) {
	s.mu.Lock()
	s.lastRun = run
	s.mu.Unlock()
}

// GetStatus returns the current status of the sweep scheduler
func (s *SweepScheduler) GetStatus() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := map[string]any{
		"enabled":    s.config.Enabled,
		"is_running": s.isRunning,
		"schedule":   s.config.Schedule,
		"sweeping":   s.running.Load(),
	}
	if s.isRunning {
		status["next_run_at"] = s.cron.Entry(s.entryID).Next
	}
	if s.lastRun != nil {
		status["last_run_at"] = s.lastRun.StartedAt
		status["last_run_ok"] = s.lastRun.Err == nil
	}
	return status
}

// LastRun returns the most recent sweep, or nil before the first one
func (s *SweepScheduler) LastRun() *SweepRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}
