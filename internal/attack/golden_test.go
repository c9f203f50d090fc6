package attack

import (
	"errors"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestScript_Golden(t *testing.T) {
	p := Params{
		LockedCircuit:   "probing_benchmarks/c1908/SLL/c1908_SLL.bench",
		UnrollFactor:    intp(16),
		ProbeResolution: intp(3),
		MultiNode:       true,
		MaxKeyInputs:    intp(6),
		KeySpaceMin:     floatp(0.006125),
		SolverOutput:    "out.bench",
		Verbose:         true,
	}
	script := Script(p, "0101", "/tmp/x_b01.bench_modified.bench")

	newGoldie(t).Assert(t, "script_all_flags", []byte(script))
}

func TestRenderLog_FullResults(t *testing.T) {
	stdout := "We found 2 of 2 total keys using 5 probes\nPartial key leakage: 7\n"
	entry := logEntry{
		Script: "read_bench a/b/c.bench\nclap -k 01",
		Exec: Execution{
			Command:  "./abc -f tmp/c_base_script.txt",
			Stdout:   stdout,
			Duration: 1500 * time.Millisecond,
		},
		Output:       ParseOutput(stdout),
		KeySource:    "explicit",
		ArtifactKeys: 3,
	}

	newGoldie(t).Assert(t, "log_full", []byte(renderLog(entry)))
}

func TestRenderLog_Degraded(t *testing.T) {
	stdout := "engine crashed\n"
	entry := logEntry{
		Script: "read_bench a/b/c.bench\nclap",
		Exec: Execution{
			Command:  "./abc -f tmp/c_base_r2_script.txt",
			Stdout:   stdout,
			Stderr:   "segfault\n",
			Duration: 250 * time.Millisecond,
			Err:      errors.New("engine run failed: exit status 139"),
		},
		Output:       ParseOutput(stdout),
		KeySource:    "generated",
		ArtifactKeys: -1,
	}

	newGoldie(t).Assert(t, "log_degraded", []byte(renderLog(entry)))
}
