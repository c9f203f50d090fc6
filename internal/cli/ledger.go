package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/probesweep/internal/ledger"
)

// LedgerResult is the ledger command's output.
type LedgerResult struct {
	Path     string                  `json:"path"`
	Rows     int                     `json:"rows"`
	Circuits []ledger.CircuitSummary `json:"circuits"`
}

// NewLedgerCommand creates the ledger command.
func NewLedgerCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger [path]",
		Short: "Summarize a results ledger",
		Long: `Summarize the runs recorded in a results ledger, per locked circuit.

The path defaults to the configured ledger. Files ending in .db, .sqlite or
.sqlite3 are read as SQLite ledgers, anything else as CSV.

Example:
  probesweep ledger results.csv
  probesweep ledger results.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootOpts.Config.Ledger
			if len(args) == 1 {
				path = args[0]
			}
			return runLedger(rootOpts, path, cmd)
		},
	}
	return cmd
}

func runLedger(opts *RootOptions, path string, cmd *cobra.Command) error {
	l, err := ledger.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	defer func() {
		if closeErr := l.Close(); closeErr != nil {
			opts.Logger.Error("error closing ledger", zap.Error(closeErr))
		}
	}()

	rows, err := l.Rows(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read ledger", err)
	}

	result := LedgerResult{Path: path, Rows: len(rows), Circuits: ledger.Summarize(rows)}
	return opts.formatter(cmd).Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "%s: %d runs\n", result.Path, result.Rows)
		if len(result.Circuits) == 0 {
			return
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "LOCKED CIRCUIT\tRUNS\tFULL KEY\tMAX PARTIAL\tTIME\tBEST")
		for _, c := range result.Circuits {
			best := c.BestFullKey
			if best == "" {
				best = ledger.NoResults
			}
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.1fs\t%s\n",
				c.LockedCircuit, c.Runs, c.FullKeyRuns, c.MaxPartialLeakage, c.TotalTime.Seconds(), best)
		}
		_ = tw.Flush()
	})
}
