package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/probesweep/internal/match"
)

// MatchOptions holds flags for the match command.
type MatchOptions struct {
	*RootOptions
	Sorted bool
}

// MatchResult is the match command's output.
type MatchResult struct {
	LockedCircuit string   `json:"locked_circuit"`
	Candidates    []string `json:"candidates"`
}

// NewMatchCommand creates the match command.
func NewMatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "match <locked-circuit>",
		Short: "List prior circuits compatible with a locked circuit",
		Long: `List the corpus circuits that can feed a locked circuit's non-key inputs.

Candidates with too few outputs are widened by duplicating their outputs;
the widened variant's path is listed instead. Paths are listed in corpus
walk order, or by ascending line count with --sorted.

Example:
  probesweep match probing_benchmarks/c1908/SLL/c1908_SLL.bench --sorted`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Sorted, "sorted", false, "order candidates by line count")

	return cmd
}

func runMatch(opts *MatchOptions, locked string, cmd *cobra.Command) error {
	matcher, err := opts.newMatcher()
	if err != nil {
		return err
	}

	candidates, err := matcher.FindCompatible(cmd.Context(), locked)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to match candidates", err)
	}
	if opts.Sorted {
		if candidates, err = match.SortByLineCount(candidates); err != nil {
			return WrapExitError(ExitFailure, "failed to sort candidates", err)
		}
	}

	result := MatchResult{LockedCircuit: locked, Candidates: candidates}
	if result.Candidates == nil {
		result.Candidates = []string{}
	}
	opts.formatter(cmd).VerboseLog("%d compatible candidates", len(candidates))
	return opts.formatter(cmd).Success(result, func(w io.Writer) {
		for _, c := range result.Candidates {
			fmt.Fprintln(w, c)
		}
	})
}
