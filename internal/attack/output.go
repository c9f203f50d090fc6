package attack

import (
	"bufio"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/roach88/probesweep/internal/ledger"
)

// Engine output patterns. These are the only parts of the engine's text
// that are relied upon.
var (
	fullKeyRE  = regexp.MustCompile(`We found (\d+) of (\d+) total keys using (\d+) probes`)
	partialRE  = regexp.MustCompile(`Partial key leakage: (\d+)`)
	artifactRE = regexp.MustCompile(`Verilog file: (.*)`)

	artifactKeyRE = regexp.MustCompile(`keyinput\d+`)
)

// FullKey is the engine's full-key summary.
type FullKey struct {
	Found  int
	Total  int
	Probes int
	// Line is the matched text, recorded verbatim in logs and the ledger.
	Line string
}

// Output holds the fields extracted from engine stdout. A nil pointer or
// empty string means the pattern was absent.
type Output struct {
	FullKey        *FullKey
	PartialLeakage *int
	ArtifactPath   string
}

// FullKeySummary is the full-key line, or ledger.NoResults when absent.
func (o Output) FullKeySummary() string {
	if o.FullKey == nil {
		return ledger.NoResults
	}
	return o.FullKey.Line
}

// Partial is the partial key leakage, 0 when absent.
func (o Output) Partial() int {
	if o.PartialLeakage == nil {
		return 0
	}
	return *o.PartialLeakage
}

// ParseOutput extracts the full-key summary, the partial-leakage count and
// the emitted artifact path from engine stdout. The first occurrence of
// each pattern wins.
func ParseOutput(stdout string) Output {
	var out Output

	if m := fullKeyRE.FindStringSubmatch(stdout); m != nil {
		found, err1 := strconv.Atoi(m[1])
		total, err2 := strconv.Atoi(m[2])
		probes, err3 := strconv.Atoi(m[3])
		if err1 == nil && err2 == nil && err3 == nil {
			out.FullKey = &FullKey{Found: found, Total: total, Probes: probes, Line: m[0]}
		}
	}
	if m := partialRE.FindStringSubmatch(stdout); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			out.PartialLeakage = &n
		}
	}
	if m := artifactRE.FindStringSubmatch(stdout); m != nil {
		out.ArtifactPath = strings.TrimSpace(m[1])
	}
	return out
}

// CountArtifactKeyInputs counts the distinct key inputs (keyinput<N>)
// mentioned in an emitted Verilog artifact. A missing file counts zero.
func CountArtifactKeyInputs(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "count artifact key inputs")
	}
	defer f.Close()

	seen := map[string]struct{}{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		for _, k := range artifactKeyRE.FindAllString(scanner.Text(), -1) {
			seen[k] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, errors.Wrap(err, "count artifact key inputs")
	}
	return len(seen), nil
}
