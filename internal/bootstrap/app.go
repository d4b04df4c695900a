// Package bootstrap wires the billing services from configuration. The HTTP
// server and the koinor command share it so both run the same import path.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	billingapp "github.com/notaria/backoffice/internal/application/billing"
	importapp "github.com/notaria/backoffice/internal/application/import"
	"github.com/notaria/backoffice/internal/domain/billing"
	"github.com/notaria/backoffice/internal/infrastructure/cache"
	"github.com/notaria/backoffice/internal/infrastructure/config"
	sheetimport "github.com/notaria/backoffice/internal/infrastructure/import"
	"github.com/notaria/backoffice/internal/infrastructure/logger"
	"github.com/notaria/backoffice/internal/infrastructure/persistence"
	"github.com/notaria/backoffice/internal/infrastructure/scheduler"
	"github.com/notaria/backoffice/internal/infrastructure/storage"
	"github.com/notaria/backoffice/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MeterName is the instrumentation scope of the billing meters
const MeterName = "github.com/notaria/backoffice/billing"

// App holds the wired billing services
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Database *persistence.Database
	Tracer   *telemetry.TracerProvider
	Meter    *telemetry.MeterProvider
	Locker   billing.InvoiceLocker

	Imports    *importapp.BillingImportService
	ImportLogs *importapp.ImportLogService
	Ledger     *billingapp.LedgerService

	closers []closer
}

type closer struct {
	name string
	fn   func(ctx context.Context) error
}

// New connects every dependency named by cfg. On error the parts already
// opened are closed again.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *App, err error) {
	app := &App{Config: cfg, Logger: log}
	defer func() {
		if err != nil {
			_ = app.Close(context.Background())
		}
	}()

	if err = app.initTelemetry(ctx); err != nil {
		return nil, err
	}
	if err = app.initDatabase(); err != nil {
		return nil, err
	}

	locker, closeLocker, err := cache.NewLockerFactory(cfg.Import, cfg.Redis, cache.WithLogger(log)).CreateLocker()
	if err != nil {
		return nil, err
	}
	app.Locker = locker
	app.onClose("locker", func(context.Context) error { return closeLocker() })

	opts, err := app.importOptions(ctx)
	if err != nil {
		return nil, err
	}

	db := app.Database.DB
	importLogRepo := persistence.NewGormImportLogRepository(db)
	app.Imports = importapp.NewBillingImportService(
		persistence.NewGormTransactionScope(db),
		locker,
		persistence.NewGormDocumentRepository(db),
		importLogRepo,
		opts...,
	)
	app.ImportLogs = importapp.NewImportLogService(importLogRepo)
	app.Ledger = billingapp.NewLedgerService(
		persistence.NewGormInvoiceRepository(db),
		persistence.NewGormAllocationRepository(db),
		persistence.NewGormCreditNoteRepository(db),
		app.Normalizer(),
	)

	log.Info("Billing services initialized",
		zap.String("lock_backend", cfg.Import.LockBackend),
		zap.Bool("archive", cfg.Storage.Enabled),
		zap.Int("max_error_details", cfg.Import.MaxErrorDetails),
	)
	return app, nil
}

func (a *App) initTelemetry(ctx context.Context) error {
	tel := a.Config.Telemetry

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           tel.Enabled,
		CollectorEndpoint: tel.CollectorEndpoint,
		SamplingRatio:     tel.SamplingRatio,
		ServiceName:       tel.ServiceName,
		Insecure:          tel.Insecure,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.Tracer = tp
	a.onClose("tracer", tp.Shutdown)

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           tel.Enabled,
		CollectorEndpoint: tel.CollectorEndpoint,
		ServiceName:       tel.ServiceName,
		Insecure:          tel.Insecure,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	a.Meter = mp
	a.onClose("meter", mp.Shutdown)
	return nil
}

func (a *App) initDatabase() error {
	cfg := a.Config

	gormLog := logger.NewGormLogger(a.Logger.Named("gorm"), logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithIgnoreRecordNotFoundError(true),
	)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		return err
	}
	a.Database = db
	a.onClose("database", func(context.Context) error { return db.Close() })

	plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfigFrom(cfg.Telemetry, cfg.Database), a.Logger)
	if err := plugin.Register(db.DB); err != nil {
		return fmt.Errorf("failed to register database tracing: %w", err)
	}

	if cfg.Database.Driver == config.DriverSQLite {
		if err := db.AutoMigrate(); err != nil {
			return err
		}
	}
	a.Logger.Info("Database connected", zap.String("driver", cfg.Database.Driver))
	return nil
}

func (a *App) importOptions(ctx context.Context) ([]importapp.ServiceOption, error) {
	cfg := a.Config.Import

	tolerance, err := decimal.NewFromString(cfg.OverflowTolerance)
	if err != nil || tolerance.IsNegative() {
		return nil, fmt.Errorf("import.overflow_tolerance %q is not a non-negative decimal", cfg.OverflowTolerance)
	}

	metrics, err := telemetry.NewImportMetrics(a.Meter.Meter(MeterName))
	if err != nil {
		return nil, fmt.Errorf("failed to create import metrics: %w", err)
	}

	opts := []importapp.ServiceOption{
		importapp.WithReader(sheetimport.NewReader(
			sheetimport.WithMaxFileSize(cfg.MaxFileSize),
			sheetimport.WithReaderLogger(a.Logger),
		)),
		importapp.WithNormalizer(a.Normalizer()),
		importapp.WithReceiptMatcher(billing.NewReceiptMatcher(
			billing.NewKeywordAdjustmentPredicate(cfg.AdjustmentKeywords...),
		)),
		importapp.WithAllocationEngine(billing.NewAllocationEngine(billing.WithTolerance(tolerance))),
		importapp.WithMetrics(metrics),
		importapp.WithLogger(a.Logger.Named("billing_import")),
		importapp.WithMaxErrorDetails(cfg.MaxErrorDetails),
		importapp.WithSweepBatchSize(cfg.SweepBatchSize),
		importapp.WithLinkBatchSize(cfg.LinkBatchSize),
	}

	if a.Config.Storage.Enabled {
		archive, err := a.exportArchive(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize export archive: %w", err)
		}
		opts = append(opts, importapp.WithArchive(archive))
	}
	return opts, nil
}

func (a *App) exportArchive(ctx context.Context) (importapp.ExportArchive, error) {
	cfg := &a.Config.Storage
	if cfg.Backend == config.StorageBackendMemory {
		a.Logger.Warn("Raw exports are archived in memory and lost on exit")
		return storage.NewMemoryExportArchive(cfg.Prefix), nil
	}
	return storage.NewS3ExportArchive(ctx, cfg, storage.WithLogger(a.Logger))
}

// Normalizer returns the invoice number normalizer configured for this deployment
func (a *App) Normalizer() *billing.InvoiceNumberNormalizer {
	cfg := a.Config.Import
	if cfg.DefaultEstablishment == "" {
		return billing.NewInvoiceNumberNormalizer()
	}
	return billing.NewInvoiceNumberNormalizer(
		billing.WithDefaultSeries(cfg.DefaultEstablishment, cfg.DefaultEmissionPoint),
	)
}

// SweepScheduler builds the reconciliation scheduler over the import service.
// It is returned stopped.
func (a *App) SweepScheduler() (*scheduler.SweepScheduler, error) {
	return scheduler.NewSweepScheduler(
		scheduler.SweepSchedulerConfigFrom(a.Config.Scheduler),
		a.Imports,
		a.Logger.Named("sweep"),
	)
}

// LockerPing returns the lock backend health check, or nil when the backend
// is in process.
func (a *App) LockerPing() func(ctx context.Context) error {
	if p, ok := a.Locker.(interface{ Ping(context.Context) error }); ok {
		return p.Ping
	}
	return nil
}

func (a *App) onClose(name string, fn func(ctx context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Close releases every dependency in reverse order of creation
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			a.Logger.Error("Error closing dependency", zap.String("dependency", c.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
