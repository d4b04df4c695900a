package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/notaria/backoffice/internal/bootstrap"
	"github.com/notaria/backoffice/internal/infrastructure/config"
	"github.com/notaria/backoffice/internal/infrastructure/logger"
	"github.com/notaria/backoffice/internal/infrastructure/scheduler"
	"github.com/notaria/backoffice/internal/interfaces/http/handler"
	"github.com/notaria/backoffice/internal/interfaces/http/middleware"
	"github.com/notaria/backoffice/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	// A missing .env is fine; the environment and config.toml still apply
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	lcfg := logger.FromLogConfig(cfg.Log)
	lcfg.TimeFormat = "2006-01-02T15:04:05.000Z07:00"
	log, err := logger.New(lcfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting billing back office",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()
	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer func() {
		if err := app.Close(context.Background()); err != nil {
			log.Error("Error releasing resources", zap.Error(err))
		}
	}()

	var sweeps *scheduler.SweepScheduler
	if cfg.Scheduler.Enabled {
		sweeps, err = app.SweepScheduler()
		if err != nil {
			log.Fatal("Failed to create sweep scheduler", zap.Error(err))
		}
		if err := sweeps.Start(ctx); err != nil {
			log.Fatal("Failed to start sweep scheduler", zap.Error(err))
		}
		defer func() {
			if err := sweeps.Stop(context.Background()); err != nil {
				log.Error("Error stopping sweep scheduler", zap.Error(err))
			}
		}()
		log.Info("Sweep scheduler started",
			zap.String("schedule", cfg.Scheduler.SweepSchedule),
			zap.Duration("job_timeout", cfg.Scheduler.JobTimeout),
		)
	}

	engine := newEngine(cfg, app, sweeps, log)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}

// newEngine builds the gin engine. sweeps is nil when the scheduler is disabled.
func newEngine(cfg *config.Config, app *bootstrap.App, sweeps *scheduler.SweepScheduler, log *zap.Logger) *gin.Engine {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Order matters:
	// 1. Tracing opens the request span
	// 2. Logger assigns the request id and request-scoped logger
	// 3. Recovery logs panics with that logger
	// 4. Actor reads X-Actor-ID
	// 5. Span enrichment and error marking run inside the span
	// 6. Metrics, security headers, CORS and the global body limit
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Actor())
	engine.Use(middleware.SpanAttributes())
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(app.Meter.Meter(bootstrap.MeterName)))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORS(middleware.CORSConfigFrom(cfg.HTTP)))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	checks := map[string]handler.Pinger{
		"database": handler.PingerFunc(func(ctx context.Context) error {
			sqlDB, err := app.Database.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}),
	}
	if ping := app.LockerPing(); ping != nil {
		checks["redis"] = handler.PingerFunc(ping)
	}
	handler.RegisterHealth(engine, handler.NewHealthHandler(checks))

	imports := handler.NewBillingImportHandler(app.Imports, app.ImportLogs,
		handler.WithMaxUploadSize(cfg.Import.MaxFileSize))
	ledger := handler.NewLedgerHandler(app.Ledger, app.Imports)

	var sweepHandler *handler.SweepHandler
	if sweeps != nil {
		sweepHandler = handler.NewSweepHandler(sweeps)
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.BillingRoutes(imports, ledger, sweepHandler))
	r.Setup()

	for _, route := range r.Routes() {
		log.Debug("Route registered", zap.String("method", route.Method), zap.String("path", route.Path))
	}
	return engine
}
