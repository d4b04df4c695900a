package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	importapp "github.com/notaria/backoffice/internal/application/import"
	"github.com/notaria/backoffice/internal/domain/bulk"
	"github.com/spf13/cobra"
)

type logsOptions struct {
	limit    int
	page     int
	status   string
	fileType string
	json     bool
}

func newLogsCommand(st *rootState) *cobra.Command {
	opts := &logsOptions{}
	cmd := &cobra.Command{
		Use:   "logs [id]",
		Short: "List import logs or show one",
		Example: `  # Latest ten imports that had row errors
  koinor logs --limit 10 --status COMPLETED_WITH_ERRORS

  # Full detail of one import
  koinor logs 2f6c1f0e-9d3a-4a55-8f7e-0c1d2b3a4f5e`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return showLog(cmd, st, opts, args[0])
			}
			return listLogs(cmd, st, opts)
		},
	}
	cmd.Flags().IntVar(&opts.limit, "limit", 20, "logs per page")
	cmd.Flags().IntVar(&opts.page, "page", 1, "page number")
	cmd.Flags().StringVar(&opts.status, "status", "", "filter by status")
	cmd.Flags().StringVar(&opts.fileType, "file-type", "", "filter by file type (CXC, POR_COBRAR, UNKNOWN)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print as JSON")
	return cmd
}

func listLogs(cmd *cobra.Command, st *rootState, opts *logsOptions) error {
	if opts.limit <= 0 || opts.page <= 0 {
		return fmt.Errorf("--limit and --page must be positive")
	}
	filter := importapp.ListLogsFilter{Status: opts.status, FileType: opts.fileType}
	page, err := st.services.Logs.ListLogs(cmd.Context(), filter, opts.page, opts.limit)
	if err != nil {
		return fmt.Errorf("failed to list import logs: %w", err)
	}

	out := cmd.OutOrStdout()
	if opts.json {
		return writeJSON(out, page)
	}
	if len(page.Items) == 0 {
		fmt.Fprintln(out, "No imports found")
		return nil
	}

	tw := newTable(out)
	fmt.Fprintln(tw, "ID\tSTARTED\tFILE\tTYPE\tSTATUS\tROWS\tERRORS")
	for _, l := range page.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			l.ID, l.StartedAt.Format(time.DateTime), l.FileName, l.FileType, l.Status,
			l.Counters.TotalRows, l.Counters.Errors)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nPage %d of %d (%d imports)\n", page.Page, page.TotalPages, page.Total)
	return nil
}

func showLog(cmd *cobra.Command, st *rootState, opts *logsOptions, raw string) error {
	id, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid import id %q: %w", raw, err)
	}
	l, err := st.services.Logs.GetLog(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to load import %s: %w", id, err)
	}

	out := cmd.OutOrStdout()
	if opts.json {
		return writeJSON(out, l)
	}
	return printLog(out, l)
}

func printLog(w io.Writer, l *bulk.ImportLog) error {
	finished := "-"
	if l.FinishedAt != nil {
		finished = l.FinishedAt.Format(time.DateTime)
	}
	actor := "-"
	if l.ActorID != uuid.Nil {
		actor = l.ActorID.String()
	}

	tw := newTable(w)
	fmt.Fprintf(tw, "Import:\t%s\n", l.ID)
	fmt.Fprintf(tw, "File:\t%s (%d bytes)\n", l.FileName, l.FileSize)
	fmt.Fprintf(tw, "Type:\t%s\n", l.FileType)
	fmt.Fprintf(tw, "Status:\t%s\n", l.Status)
	fmt.Fprintf(tw, "Actor:\t%s\n", actor)
	fmt.Fprintf(tw, "Started:\t%s\n", l.StartedAt.Format(time.DateTime))
	fmt.Fprintf(tw, "Finished:\t%s\n", finished)
	fmt.Fprintf(tw, "Digest:\t%s\n", l.ContentDigest)
	if l.ArchiveKey != "" {
		fmt.Fprintf(tw, "Archive:\t%s\n", l.ArchiveKey)
	}
	if l.FailureReason != "" {
		fmt.Fprintf(tw, "Failure:\t%s\n", l.FailureReason)
	}
	c := l.Counters
	fmt.Fprintf(tw, "Rows:\t%d\n", c.TotalRows)
	fmt.Fprintf(tw, "Invoices:\t%d created, %d updated\n", c.InvoicesCreated, c.InvoicesUpdated)
	fmt.Fprintf(tw, "Payments:\t%d created, %d skipped, %d pending\n", c.PaymentsCreated, c.PaymentsSkipped, c.PaymentsPending)
	fmt.Fprintf(tw, "Credit notes:\t%d\n", c.CreditNotesRecorded)
	fmt.Fprintf(tw, "Documents linked:\t%d\n", c.DocumentsLinked)
	fmt.Fprintf(tw, "Errors:\t%d\n", c.Errors)
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(l.ErrorDetails) > 0 {
		fmt.Fprintln(w, "\nRow errors:")
		tw = newTable(w)
		fmt.Fprintln(tw, "ROW\tCOLUMN\tCODE\tMESSAGE")
		for _, e := range l.ErrorDetails {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.Row, e.Column, e.Code, e.Message)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	if len(l.Warnings) > 0 {
		fmt.Fprintln(w, "\nWarnings:")
		for _, wn := range l.Warnings {
			fmt.Fprintf(w, "  %s: %s\n", wn.Code, wn.Message)
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
