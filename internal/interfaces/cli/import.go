package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	importapp "github.com/notaria/backoffice/internal/application/import"
	sheetimport "github.com/notaria/backoffice/internal/infrastructure/import"
	"github.com/notaria/backoffice/internal/infrastructure/logger"
	"github.com/notaria/backoffice/internal/infrastructure/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// DefaultMaxPrintedErrors is how many row errors the import command prints
const DefaultMaxPrintedErrors = 20

type importOptions struct {
	actor     string
	maxErrors int
	json      bool
}

func newImportCommand(st *rootState) *cobra.Command {
	opts := &importOptions{}
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import one Koinor receivables export",
		Long: `Import one Koinor receivables export into the ledger.

Invoices are upserted, payments are allocated to their invoices and credit
notes are recorded for review. Row errors are reported but do not stop the
import; a file that cannot be read at all exits with a non-zero status.`,
		Example: `  # Import a workbook
  koinor import CXC_marzo.xlsx

  # Record who imported it and print at most 5 row errors
  koinor import --actor 7b0f7a1e-3b7e-4c55-9b59-2f4f3b0a8c11 --max-errors 5 CXC_marzo.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, st, opts, args[0])
		},
	}
	cmd.Flags().StringVar(&opts.actor, "actor", "", "id of the operator running the import (uuid)")
	cmd.Flags().IntVar(&opts.maxErrors, "max-errors", DefaultMaxPrintedErrors, "row errors to print (0 prints none)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the full result as JSON")
	return cmd
}

func runImport(cmd *cobra.Command, st *rootState, opts *importOptions, path string) error {
	actorID := uuid.Nil
	if opts.actor != "" {
		id, err := uuid.Parse(opts.actor)
		if err != nil {
			return fmt.Errorf("invalid --actor %q: %w", opts.actor, err)
		}
		actorID = id
	}
	if opts.maxErrors < 0 {
		return errors.New("--max-errors cannot be negative")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	filename := filepath.Base(path)

	ctx, span := telemetry.StartServiceSpan(cmd.Context(), "koinor", "import",
		telemetry.WithAttribute("file.name", filename),
		telemetry.WithAttribute("file.size", len(data)),
		telemetry.WithAttribute("actor_id", actorID.String()),
	)
	defer span.End()
	ctx = logger.WithActorID(ctx, actorID.String())
	log := logger.Enrich(ctx, st.logger())

	result, err := st.services.Importer.ImportFile(ctx, data, filename, actorID)
	if err != nil {
		telemetry.RecordError(span, err)
		var se *sheetimport.StructuralError
		if errors.As(err, &se) {
			log.Warn("Import rejected", zap.String("file", filename), zap.String("code", se.Code))
			return fmt.Errorf("import of %s failed: %s: %s", filename, se.Code, se.Message)
		}
		return fmt.Errorf("import of %s failed: %w", filename, err)
	}
	telemetry.SetAttributes(span,
		"import.id", result.ImportLogID.String(),
		"import.rows", result.TotalRows,
		"import.errors", result.Errors,
	)
	telemetry.SetOK(span)

	if opts.json {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	return printImportResult(cmd.OutOrStdout(), result, opts.maxErrors)
}

func printImportResult(w io.Writer, r *importapp.ImportResult, maxErrors int) error {
	tw := newTable(w)
	rows := [][2]any{
		{"Import", r.ImportLogID},
		{"File", r.FileName},
		{"Type", r.FileType},
		{"Format", r.Format},
		{"Rows", r.TotalRows},
		{"Invoices created", r.InvoicesCreated},
		{"Invoices updated", r.InvoicesUpdated},
		{"Payments created", r.PaymentsCreated},
		{"Payments skipped", r.PaymentsSkipped},
		{"Payments pending", r.PaymentsPending},
		{"Credit notes", r.CreditNotesRecorded},
		{"Documents linked", r.DocumentsLinked},
		{"Warnings", len(r.Warnings)},
		{"Errors", r.Errors},
	}
	if r.ArchiveKey != "" {
		rows = append(rows, [2]any{"Archive", r.ArchiveKey})
	}
	for _, row := range rows {
		fmt.Fprintf(tw, "%s:\t%v\n", row[0], row[1])
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if r.Errors == 0 || maxErrors == 0 {
		return nil
	}
	shown := r.ErrorDetails
	if len(shown) > maxErrors {
		shown = shown[:maxErrors]
	}
	fmt.Fprintf(w, "\nRow errors (%d of %d):\n", len(shown), r.Errors)
	tw = newTable(w)
	fmt.Fprintln(tw, "ROW\tCOLUMN\tCODE\tMESSAGE")
	for _, e := range shown {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.Row, e.Column, e.Code, e.Message)
	}
	return tw.Flush()
}
