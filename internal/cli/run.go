package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/probesweep/internal/attack"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	Prior           string
	UnrollFactor    int
	ProbeResolution int
	Key             string
	MultiNode       bool
	MaxKeyInputs    int
	KeySpaceMin     float64
	SolverOutput    string
	EngineVerbose   bool
}

// RunResult is the run command's output.
type RunResult struct {
	BaseName          string  `json:"base_name"`
	KeySource         string  `json:"key_source"`
	Key               string  `json:"key"`
	ExecutionSeconds  float64 `json:"execution_seconds"`
	FullKeyLeakage    string  `json:"full_key_leakage"`
	PartialKeyLeakage int     `json:"partial_key_leakage"`
	LogPath           string  `json:"log_path"`
	EngineError       string  `json:"engine_error,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <locked-circuit>",
		Short: "Run one probing attack",
		Long: `Run the attack engine once against a locked circuit and record the result.

The key comes from the key registry when it has an entry for the circuit's
benchmark and locking method, then from --key, and is otherwise generated.
With --prior, the prior circuit's outputs are renamed to the locked circuit's
non-key inputs before the engine sees it.

Example:
  probesweep run probing_benchmarks/c1908/SLL/c1908_SLL.bench -c 6
  probesweep run probing_benchmarks/c1908/SLL/c1908_SLL.bench -s bench_files/inputs/b01.bench -u 16 -r 3`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSingle(opts, args[0], cmd)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.Prior, "prior", "s", "", "prior circuit feeding the locked circuit's inputs")
	f.IntVarP(&opts.UnrollFactor, "unroll", "u", 0, "unroll factor (>= 2)")
	f.IntVarP(&opts.ProbeResolution, "resolution", "r", 0, "probe resolution (>= 1)")
	f.StringVarP(&opts.Key, "key", "k", "", "explicit binary key")
	f.BoolVarP(&opts.MultiNode, "multi-node", "m", false, "probe signals jointly")
	f.IntVarP(&opts.MaxKeyInputs, "max-key-inputs", "c", 0, "max key inputs per probe")
	f.Float64VarP(&opts.KeySpaceMin, "key-space-min", "l", 0, "minimum key space fraction a multi-node probe must eliminate")
	f.StringVarP(&opts.SolverOutput, "solver-output", "o", "", "solver output name")
	f.BoolVar(&opts.EngineVerbose, "engine-verbose", false, "verbose engine output")

	return cmd
}

// params converts the flags that were set into run parameters.
func (o *RunOptions) params(cmd *cobra.Command, locked string) (attack.Params, error) {
	f := cmd.Flags()
	p := attack.Params{
		LockedCircuit: locked,
		PriorCircuit:  o.Prior,
		Key:           o.Key,
		MultiNode:     o.MultiNode,
		SolverOutput:  o.SolverOutput,
		Verbose:       o.EngineVerbose,
	}
	if f.Changed("unroll") {
		if o.UnrollFactor < 2 {
			return p, NewExitError(ExitCommandError, "--unroll must be >= 2")
		}
		p.UnrollFactor = &o.UnrollFactor
	}
	if f.Changed("resolution") {
		if o.ProbeResolution < 1 {
			return p, NewExitError(ExitCommandError, "--resolution must be >= 1")
		}
		p.ProbeResolution = &o.ProbeResolution
	}
	if f.Changed("max-key-inputs") {
		if o.MaxKeyInputs < 1 {
			return p, NewExitError(ExitCommandError, "--max-key-inputs must be >= 1")
		}
		p.MaxKeyInputs = &o.MaxKeyInputs
	}
	if f.Changed("key-space-min") {
		p.KeySpaceMin = &o.KeySpaceMin
	}
	return p, nil
}

func runSingle(opts *RunOptions, locked string, cmd *cobra.Command) error {
	logger := opts.Logger.Named("run")
	defer func() { _ = logger.Sync() }()

	p, err := opts.params(cmd, locked)
	if err != nil {
		return err
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

	ctx, stop := signalContext(cmd, logger)
	defer stop()

	out, err := driver.Execute(ctx, p)
	if err != nil {
		if out == nil {
			return WrapExitError(ExitCommandError, "run failed", err)
		}
		return WrapExitError(ExitFailure, "run failed", err)
	}

	result := RunResult{
		BaseName:          out.BaseName,
		KeySource:         string(out.Key.Provenance),
		Key:               out.Key.Bits,
		ExecutionSeconds:  out.Result.ExecutionTime.Seconds(),
		FullKeyLeakage:    out.Result.FullKeyLeakage,
		PartialKeyLeakage: out.Result.PartialKeyLeakage,
		LogPath:           out.LogPath,
	}
	if out.EngineErr != nil {
		result.EngineError = out.EngineErr.Error()
	}

	return opts.formatter(cmd).Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "Run %s\n", result.BaseName)
		fmt.Fprintf(w, "  key (%s): %s\n", result.KeySource, result.Key)
		fmt.Fprintf(w, "  execution time: %.3fs\n", result.ExecutionSeconds)
		fmt.Fprintf(w, "  full key leakage: %s\n", result.FullKeyLeakage)
		fmt.Fprintf(w, "  partial key leakage: %d\n", result.PartialKeyLeakage)
		if result.EngineError != "" {
			fmt.Fprintf(w, "  engine failed: %s\n", result.EngineError)
		}
		fmt.Fprintf(w, "  log: %s\n", result.LogPath)
	})
}
