// Package naming derives the per-run identifiers that name logs, command
// scripts and intermediate artifacts.
//
// A base name is a pure function of (locked circuit, prior circuit, unroll
// factor, probe resolution):
//
//	{benchmark}_{method}_{prior file name | "base"}[_u<unroll>][_r<resolution>]
//
// where benchmark and method are the two directories above the locked circuit.
// Runs that differ only in fields outside this tuple share a base name and
// therefore the same artifact paths; they must not run concurrently.
package naming

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrMalformedPath is returned when a locked-circuit path does not have a
// benchmark and a locking-method directory above it.
var ErrMalformedPath = errors.New("locked circuit path needs <benchmark>/<method>/<file>")

// BasePrior is the prior suffix used when a run has no prior circuit.
const BasePrior = "base"

// Identity is the benchmark and locking-method pair encoded in a locked
// circuit's path.
type Identity struct {
	Benchmark string
	Method    string
}

// IdentityOf extracts the benchmark and locking method from the last two
// directory segments above the locked circuit file.
func IdentityOf(lockedPath string) (Identity, error) {
	parts := segments(lockedPath)
	if len(parts) < 3 {
		return Identity{}, errors.Wrapf(ErrMalformedPath, "%q", lockedPath)
	}
	id := Identity{
		Benchmark: parts[len(parts)-3],
		Method:    parts[len(parts)-2],
	}
	if id.Benchmark == "" || id.Method == "" || id.Benchmark == "." || id.Method == "." {
		return Identity{}, errors.Wrapf(ErrMalformedPath, "%q", lockedPath)
	}
	return id, nil
}

func segments(path string) []string {
	clean := filepath.ToSlash(filepath.Clean(path))
	var parts []string
	for _, p := range strings.Split(clean, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// BaseName composes the deterministic run name. prior is the prior circuit's
// path or file name (only the file name is used); empty means no prior.
// Nil unroll or resolution omit the corresponding suffix.
func BaseName(lockedPath, prior string, unroll, resolution *int) (string, error) {
	id, err := IdentityOf(lockedPath)
	if err != nil {
		return "", err
	}

	priorSuffix := BasePrior
	if prior != "" {
		priorSuffix = filepath.Base(prior)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s_%s_%s", id.Benchmark, id.Method, priorSuffix)
	if unroll != nil {
		fmt.Fprintf(&b, "_u%d", *unroll)
	}
	if resolution != nil {
		fmt.Fprintf(&b, "_r%d", *resolution)
	}
	return b.String(), nil
}

// Layout places run artifacts under a log directory and a scratch directory.
type Layout struct {
	LogDir string
	TmpDir string
}

// LogPath is where the run's log is archived.
func (l Layout) LogPath(base string) string {
	return filepath.Join(l.LogDir, base+"_log.txt")
}

// ScriptPath is where the engine command script is written.
func (l Layout) ScriptPath(base string) string {
	return filepath.Join(l.TmpDir, base+".abc")
}

// ArtifactPath is the canonical location of the engine's emitted
// interchange file (partial-leakage Verilog).
func (l Layout) ArtifactPath(base string) string {
	return filepath.Join(l.TmpDir, "partial_leakage_verilog", base+".v")
}

// PriorCopyPath returns a fresh, private location for a renamed copy of a
// prior circuit. Every call returns a different path.
func (l Layout) PriorCopyPath(prior string) string {
	return filepath.Join(l.TmpDir, fmt.Sprintf("%s_%s_modified.bench", uuid.NewString(), filepath.Base(prior)))
}
