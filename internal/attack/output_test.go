package attack

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/probesweep/internal/ledger"
)

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func TestParseOutput_AllPatterns(t *testing.T) {
	stdout := `ABC command line: "clap -k 0101"
Probing...
We found 3 of 4 total keys using 12 probes
Partial key leakage: 7
Verilog file: /tmp/global_keystore.v
`
	out := ParseOutput(stdout)

	require.NotNil(t, out.FullKey)
	assert.Equal(t, FullKey{Found: 3, Total: 4, Probes: 12, Line: "We found 3 of 4 total keys using 12 probes"}, *out.FullKey)
	assert.Equal(t, "We found 3 of 4 total keys using 12 probes", out.FullKeySummary())
	assert.Equal(t, 7, out.Partial())
	assert.Equal(t, "/tmp/global_keystore.v", out.ArtifactPath)
}

func TestParseOutput_PartialLeakage(t *testing.T) {
	assert.Equal(t, 7, ParseOutput("Partial key leakage: 7").Partial())
	assert.Equal(t, 0, ParseOutput("Partial key leakage: none").Partial())
	assert.Equal(t, 0, ParseOutput("").Partial())
}

func TestParseOutput_Absent(t *testing.T) {
	out := ParseOutput("Empty network.\n")
	assert.Nil(t, out.FullKey)
	assert.Nil(t, out.PartialLeakage)
	assert.Empty(t, out.ArtifactPath)
	assert.Equal(t, ledger.NoResults, out.FullKeySummary())
}

func TestParseOutput_FirstMatchWins(t *testing.T) {
	out := ParseOutput("Partial key leakage: 1\nPartial key leakage: 9\n")
	assert.Equal(t, 1, out.Partial())
}

func TestCountArtifactKeyInputs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "k.v")
	content := "module top(keyinput0, keyinput12);\nassign x = keyinput0 & keyinput3;\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	n, err := CountArtifactKeyInputs(path)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = CountArtifactKeyInputs(filepath.Join(t.TempDir(), "missing.v"))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestScript_OmitsUnsetFlags(t *testing.T) {
	got := Script(Params{LockedCircuit: "a/b/c.bench"}, "", "")
	assert.Equal(t, "read_bench a/b/c.bench\nclap", got)

	got = Script(Params{LockedCircuit: "a/b/c.bench", MaxKeyInputs: intp(6)}, "11", "")
	assert.Equal(t, "read_bench a/b/c.bench\nclap -k 11 -c 6", got)
}
