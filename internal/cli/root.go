package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/probesweep/internal/config"
)

// RootOptions holds global flags for all commands, plus the configuration
// and logger resolved from them before any subcommand runs.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	Config config.Config
	// Logger is built from Verbose unless already set.
	Logger *zap.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the probesweep CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

// Execute runs the CLI on the process arguments and returns its exit code.
// Failures are written through the output formatter: a JSON error envelope
// on stdout with --format json, an "Error:" line on stderr otherwise.
func Execute() int {
	return executeContext(context.Background(), &RootOptions{}, os.Args[1:], os.Stdout, os.Stderr)
}

func executeContext(ctx context.Context, opts *RootOptions, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	if !isReported(err) {
		reportError(opts.formatter(cmd), err)
	}
	return GetExitCode(err)
}

func reportError(f *OutputFormatter, err error) {
	if f.Format == "json" {
		_ = f.Error(errorCode(err), err.Error(), map[string]int{"exit_code": GetExitCode(err)})
		return
	}
	fmt.Fprintln(f.ErrWriter, "Error:", err)
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probesweep",
		Short: "probesweep - probing attack experiment orchestrator",
		Long: `Drive a probing attack engine over locked circuits.

A single run attacks one locked circuit, optionally chained behind a prior
circuit and unrolled. A sweep enumerates the full grid of prior circuits,
unroll factors and probe resolutions and runs it on a bounded worker pool.
Every run appends one row to the results ledger.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}

			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			opts.Config = cfg

			if opts.Logger == nil {
				logger, err := newLogger(opts.Verbose)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to create logger", err)
				}
				opts.Logger = logger
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewSweepCommand(opts))
	cmd.AddCommand(NewMatchCommand(opts))
	cmd.AddCommand(NewLedgerCommand(opts))

	return cmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
