package attack

import (
	"fmt"
	"strings"
	"time"
)

// Log markers written when a pattern is absent, so every log states
// explicitly what the engine did not report.
const (
	NoFullKeyMarker = "No specific full key results pattern found in the output."
	NoPartialMarker = "No specific partial key leakage pattern found in the output."
)

// logEntry is everything archived for one run.
type logEntry struct {
	Script    string
	Exec      Execution
	Output    Output
	KeySource string
	// ArtifactKeys is the number of distinct key inputs in the moved
	// artifact, or -1 when no artifact was produced.
	ArtifactKeys int
}

func renderLog(e logEntry) string {
	var b strings.Builder

	fmt.Fprintf(&b, "\nEngine Command: %s\n", e.Exec.Command)
	fmt.Fprintf(&b, "\nEngine Script Commands:\n%s\n\n--- Engine Output ---\n", e.Script)
	b.WriteString(e.Exec.Stdout)
	if e.Exec.Stderr != "" {
		b.WriteString("\n--- Engine Errors ---\n")
		b.WriteString(e.Exec.Stderr)
	}
	if e.Exec.Err != nil {
		fmt.Fprintf(&b, "\nEngine Failure: %v\n", e.Exec.Err)
	}
	fmt.Fprintf(&b, "\nExecution Time: %s seconds\n", formatSeconds(e.Exec.Duration))
	fmt.Fprintf(&b, "Key Source: %s\n", e.KeySource)

	if e.Output.FullKey != nil {
		fmt.Fprintf(&b, "\nResults: %s\n", e.Output.FullKey.Line)
	} else {
		fmt.Fprintf(&b, "\n%s\n", NoFullKeyMarker)
	}

	if e.Output.PartialLeakage != nil {
		fmt.Fprintf(&b, "\nPartial Key Leakage: %d\n", *e.Output.PartialLeakage)
	} else {
		fmt.Fprintf(&b, "\n%s\n", NoPartialMarker)
	}

	if e.ArtifactKeys >= 0 {
		fmt.Fprintf(&b, "\nArtifact Key Inputs: %d\n", e.ArtifactKeys)
	} else {
		b.WriteString("\nNo artifact file reported in the output.\n")
	}
	return b.String()
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.6f", d.Seconds())
}
