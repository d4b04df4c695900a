package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	importapp "github.com/notaria/backoffice/internal/application/import"
	"github.com/notaria/backoffice/internal/infrastructure/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSweepCommand(st *rootState) *cobra.Command {
	var skipLinks bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Retry pending payments and link documents",
		Long: `Retry the allocation of payments whose invoices were missing at import
time, then link stored documents to the invoices they name.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, span := telemetry.StartServiceSpan(cmd.Context(), "koinor", "sweep")
			defer span.End()

			res, err := st.services.Reconciler.ResolvePendingPayments(ctx)
			if err != nil {
				telemetry.RecordError(span, err)
				return fmt.Errorf("pending payment sweep failed: %w", err)
			}

			linked := 0
			if !skipLinks {
				linked, err = st.services.Reconciler.LinkDocuments(ctx)
				if err != nil {
					telemetry.RecordError(span, err)
					return fmt.Errorf("document linking failed: %w", err)
				}
			}
			telemetry.SetOK(span)
			st.logger().Info("Sweep finished",
				zap.Int("examined", res.Examined),
				zap.Int("allocated", res.Allocated),
				zap.Int("documents_linked", linked),
			)
			return printSweepResult(cmd.OutOrStdout(), res, linked)
		},
	}
	cmd.Flags().BoolVar(&skipLinks, "skip-links", false, "do not link documents after the payment sweep")
	return cmd
}

func printSweepResult(w io.Writer, r *importapp.SweepResult, linked int) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Examined:\t%d\n", r.Examined)
	fmt.Fprintf(tw, "Allocated:\t%d\n", r.Allocated)
	fmt.Fprintf(tw, "Failed:\t%d\n", r.Failed)
	fmt.Fprintf(tw, "Still pending:\t%d\n", r.StillPending)
	fmt.Fprintf(tw, "Documents linked:\t%d\n", linked)
	fmt.Fprintf(tw, "Warnings:\t%d\n", len(r.Warnings))
	return tw.Flush()
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}
