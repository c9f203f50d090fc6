package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/probesweep/internal/bench"
	"github.com/roach88/probesweep/internal/keys"
	"github.com/roach88/probesweep/internal/match"
	"github.com/roach88/probesweep/internal/sweep"
)

// SweepOptions holds flags for the sweep command.
type SweepOptions struct {
	*RootOptions
	Algorithm int
}

// CircuitSweep reports one locked circuit's sweep.
type CircuitSweep struct {
	LockedCircuit string        `json:"locked_circuit"`
	Key           string        `json:"key"`
	Candidates    int           `json:"candidates"`
	Summary       sweep.Summary `json:"summary"`
	// Error is why the circuit was skipped, if it was.
	Error *CLIError `json:"error,omitempty"`
}

// SweepResult is the sweep command's output.
type SweepResult struct {
	Algorithm int            `json:"algorithm"`
	Circuits  []CircuitSweep `json:"circuits"`
	Total     sweep.Summary  `json:"total"`
}

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SweepOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sweep -a <1|2> [locked-circuit...]",
		Short: "Run the full experiment grid",
		Long: `Sweep every locked circuit over prior circuits, unroll factors and probe
resolutions.

Algorithm 1 probes single nodes and draws prior circuits from the corpus,
widening any whose outputs cannot cover the locked circuit's inputs.
Algorithm 2 probes multiple nodes jointly against the configured prior
circuits. Locked circuits default to the config's locked_circuits list.

Interrupting the sweep abandons running points and drops pending ones.

Example:
  probesweep sweep -a 1 --config probesweep.yaml
  probesweep sweep -a 2 probing_benchmarks/c1908/SLL/c1908_SLL.bench`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(opts, args, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Algorithm, "algorithm", "a", 0, "sweep algorithm: 1 (single-node, corpus priors) or 2 (multi-node, fixed priors)")
	_ = cmd.MarkFlagRequired("algorithm")

	return cmd
}

func runSweep(opts *SweepOptions, args []string, cmd *cobra.Command) error {
	logger := opts.Logger.Named("sweep")
	defer func() { _ = logger.Sync() }()
	cfg := opts.Config

	mode, err := sweep.ParseMode(opts.Algorithm)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid algorithm", err)
	}
	locked := args
	if len(locked) == 0 {
		locked = cfg.LockedCircuits
	}
	if len(locked) == 0 {
		return NewExitError(ExitCommandError, "no locked circuits given and none configured")
	}

	l, err := opts.openLedger()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := l.Close(); closeErr != nil {
			logger.Error("error closing ledger", zap.Error(closeErr))
		}
	}()

	driver, err := opts.newDriver(l)
	if err != nil {
		return err
	}
	coord, err := sweep.NewCoordinator(driver, cfg.Workers,
		sweep.WithGrid(sweep.GridConfig{
			UnrollFactors:    cfg.UnrollFactors.Values(),
			ProbeResolutions: cfg.ProbeResolutions.Values(),
			FixedUnroll:      cfg.FixedUnroll,
			MaxKeyInputs:     cfg.MaxKeyInputs,
		}),
		sweep.WithLogger(opts.Logger),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create worker pool", err)
	}

	var matcher *match.Matcher
	if mode == sweep.ModeSingleNode {
		if matcher, err = opts.newMatcher(); err != nil {
			return err
		}
	}

	stopMetrics := serveMetrics(cfg.MetricsAddr, logger)
	defer stopMetrics()

	ctx, stop := signalContext(cmd, logger)
	defer stop()
	stopClose := context.AfterFunc(ctx, coord.Close)
	defer stopClose()

	result := SweepResult{Algorithm: int(mode)}
	var sweepErr error
	for _, circuit := range locked {
		cs := sweepCircuit(ctx, coord, matcher, mode, circuit, cfg.PriorCircuits, logger)
		result.Circuits = append(result.Circuits, cs)
		result.Total.Add(cs.Summary)
		if ctx.Err() != nil {
			sweepErr = ctx.Err()
			break
		}
	}

	f := opts.formatter(cmd)
	if sweepErr != nil {
		exitErr := WrapExitError(ExitFailure, "sweep interrupted", sweepErr)
		if f.Format == "json" {
			if err := f.Error(ErrCodeInterrupted, exitErr.Error(), result); err != nil {
				return err
			}
			exitErr.Reported = true
			return exitErr
		}
		writeSweepText(f.Writer, result)
		return exitErr
	}

	return f.Success(result, func(w io.Writer) {
		writeSweepText(w, result)
	})
}

func writeSweepText(w io.Writer, result SweepResult) {
	for _, cs := range result.Circuits {
		fmt.Fprintf(w, "Locked circuit: %s\n", cs.LockedCircuit)
		if cs.Error != nil {
			fmt.Fprintf(w, "  skipped: %s\n", cs.Error.Message)
			continue
		}
		fmt.Fprintf(w, "  key: %s\n", cs.Key)
		fmt.Fprintf(w, "  algorithm %d -> %d compatible files\n", result.Algorithm, cs.Candidates)
		writeSummary(w, "  ", cs.Summary)
	}
	fmt.Fprintln(w, "Total:")
	writeSummary(w, "  ", result.Total)
}

// sweepCircuit runs the grid for one locked circuit. Errors that concern
// only this circuit are reported in the result and do not stop the sweep.
func sweepCircuit(
	ctx context.Context,
	coord *sweep.Coordinator,
	matcher *match.Matcher,
	mode sweep.Mode,
	locked string,
	fixedPriors []string,
	logger *zap.Logger,
) CircuitSweep {
	cs := CircuitSweep{LockedCircuit: locked}

	d, err := bench.Read(locked)
	if err != nil {
		logger.Error("skipping locked circuit", zap.String("locked", locked), zap.Error(err))
		cs.Error = &CLIError{Code: ErrCodeSkipped, Message: err.Error()}
		return cs
	}
	cs.Key = keys.RandomBits(d.KeyCount())

	candidates := fixedPriors
	if mode == sweep.ModeSingleNode {
		candidates, err = matcher.FindCompatible(ctx, locked)
		if err != nil {
			logger.Error("skipping locked circuit", zap.String("locked", locked), zap.Error(err))
			cs.Error = &CLIError{Code: ErrCodeSkipped, Message: errors.Wrap(err, "find compatible priors").Error()}
			return cs
		}
	}
	cs.Candidates = len(candidates)
	logger.Info("sweeping locked circuit",
		zap.String("locked", locked),
		zap.String("key", cs.Key),
		zap.Int("candidates", len(candidates)),
	)

	summary, err := coord.RunSweep(ctx, locked, cs.Key, mode, candidates)
	cs.Summary = summary
	if err != nil {
		logger.Warn("sweep stopped early", zap.String("locked", locked), zap.Error(err))
	}
	return cs
}

func writeSummary(w io.Writer, indent string, s sweep.Summary) {
	fmt.Fprintf(w, "%spoints: %d  succeeded: %d  degraded: %d  failed: %d  abandoned: %d  dropped: %d\n",
		indent, s.Points, s.Succeeded, s.Degraded, s.Failed, s.Abandoned, s.Dropped)
}
