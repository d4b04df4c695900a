// Package cli implements the koinor command: operator access to the billing
// import outside the HTTP API.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	importapp "github.com/notaria/backoffice/internal/application/import"
	"github.com/notaria/backoffice/internal/bootstrap"
	"github.com/notaria/backoffice/internal/domain/bulk"
	"github.com/notaria/backoffice/internal/domain/shared"
	"github.com/notaria/backoffice/internal/infrastructure/config"
	"github.com/notaria/backoffice/internal/infrastructure/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

// Importer runs one export import
type Importer interface {
	ImportFile(ctx context.Context, data []byte, filename string, actorID uuid.UUID) (*importapp.ImportResult, error)
}

// Reconciler retries pending payments and document links
type Reconciler interface {
	ResolvePendingPayments(ctx context.Context) (*importapp.SweepResult, error)
	LinkDocuments(ctx context.Context) (int, error)
}

// LogReader reads import logs
type LogReader interface {
	GetLog(ctx context.Context, id uuid.UUID) (*bulk.ImportLog, error)
	ListLogs(ctx context.Context, filter importapp.ListLogsFilter, page, pageSize int) (*shared.Paginated[*bulk.ImportLog], error)
}

// Services are the billing operations the commands drive
type Services struct {
	Importer   Importer
	Reconciler Reconciler
	Logs       LogReader
	Logger     *zap.Logger
	Close      func(ctx context.Context) error
}

// Factory opens the services for one command run
type Factory func(ctx context.Context, opts GlobalOptions) (*Services, error)

// GlobalOptions are the persistent flags shared by every command
type GlobalOptions struct {
	ConfigFile string
	LogLevel   string
}

type rootState struct {
	opts     GlobalOptions
	factory  Factory
	services *Services
}

// NewRootCommand builds the koinor command tree. A nil factory wires the real
// services from configuration.
func NewRootCommand(factory Factory) *cobra.Command {
	root, _ := newRoot(factory)
	return root
}

func newRoot(factory Factory) (*cobra.Command, *rootState) {
	if factory == nil {
		factory = DefaultFactory
	}
	st := &rootState{factory: factory}

	root := &cobra.Command{
		Use:   "koinor",
		Short: "Import Koinor billing exports into the receivables ledger",
		Long: `koinor imports the Koinor receivables export (xlsx, xls, xml or csv) into
the billing ledger, retries pending payments and inspects import logs.

Configuration is read from config.toml and NOTARIA_* environment variables;
a .env file in the working directory is loaded first.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			services, err := st.factory(cmd.Context(), st.opts)
			if err != nil {
				return err
			}
			st.services = services
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return st.close(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&st.opts.ConfigFile, "config", "", "config file (default: ./config.toml lookup)")
	root.PersistentFlags().StringVar(&st.opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(newImportCommand(st), newSweepCommand(st), newLogsCommand(st))
	return root, st
}

func (st *rootState) close(ctx context.Context) error {
	if st.services == nil || st.services.Close == nil {
		return nil
	}
	err := st.services.Close(ctx)
	st.services.Close = nil
	return err
}

func (st *rootState) logger() *zap.Logger {
	if st.services == nil || st.services.Logger == nil {
		return zap.NewNop()
	}
	return st.services.Logger
}

// DefaultFactory loads configuration and wires the billing services. Logs go
// to stderr so stdout carries only the command output.
func DefaultFactory(ctx context.Context, opts GlobalOptions) (*Services, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigFile != "" {
		cfg, err = config.LoadFile(opts.ConfigFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	lcfg := logger.FromLogConfig(cfg.Log)
	lcfg.Output = "stderr"
	lcfg.Format = "console"
	if opts.LogLevel != "" {
		lcfg.Level = opts.LogLevel
	}
	log, err := logger.New(lcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	return &Services{
		Importer:   app.Imports,
		Reconciler: app.Imports,
		Logs:       app.ImportLogs,
		Logger:     log,
		Close: func(ctx context.Context) error {
			defer func() { _ = log.Sync() }()
			return app.Close(ctx)
		},
	}, nil
}

// Execute runs the command tree with factory and returns the process exit
// code. Services are closed even when the command fails.
func Execute(ctx context.Context, factory Factory, args []string, stdout, stderr io.Writer) int {
	root, st := newRoot(factory)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if closeErr := st.close(context.Background()); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// Main is the entry point used by cmd/koinor
func Main() {
	// A missing .env is fine; the environment and config.toml still apply
	_ = godotenv.Load()
	os.Exit(Execute(context.Background(), nil, os.Args[1:], os.Stdout, os.Stderr))
}
