package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, "./abc", c.Engine)
	assert.Equal(t, 1024, c.Workers)
	assert.Equal(t, 6, c.MaxKeyInputs)
	assert.Equal(t, 16, c.FixedUnroll)
	assert.Equal(t, Range{From: 2, To: 30}, c.UnrollFactors)
	assert.Equal(t, Range{From: 1, To: 20}, c.ProbeResolutions)
	assert.Len(t, c.UnrollFactors.Values(), 29)
	assert.Len(t, c.ProbeResolutions.Values(), 20)
	assert.Equal(t, time.Duration(0), c.RunTimeout)
	assert.NoError(t, c.Validate())
}

func TestLoad_EmptyPath(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probesweep.yaml")
	content := `engine: /opt/abc/abc
ledger: results.db
workers: 8
run_timeout: 90s
unroll_factors:
  from: 4
  to: 6
locked_circuits:
  - probing_benchmarks/c1908/SLL/c1908_SLL.bench
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/abc/abc", c.Engine)
	assert.Equal(t, "results.db", c.Ledger)
	assert.Equal(t, 8, c.Workers)
	assert.Equal(t, 90*time.Second, c.RunTimeout)
	assert.Equal(t, []int{4, 5, 6}, c.UnrollFactors.Values())
	assert.Equal(t, []string{"probing_benchmarks/c1908/SLL/c1908_SLL.bench"}, c.LockedCircuits)
	// Untouched fields keep their defaults.
	assert.Equal(t, Range{From: 1, To: 20}, c.ProbeResolutions)
	assert.Equal(t, "logs", c.LogDir)
}

func TestParse_EmptyDocument(t *testing.T) {
	c, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown field", "engnie: ./abc\n"},
		{"negative workers", "workers: -1\n"},
		{"unroll below two", "unroll_factors: {from: 1, to: 4}\n"},
		{"inverted resolutions", "probe_resolutions: {from: 5, to: 2}\n"},
		{"negative timeout", "run_timeout: -1s\n"},
		{"malformed", "workers: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRange_Values(t *testing.T) {
	assert.Equal(t, []int{3}, Range{From: 3, To: 3}.Values())
	assert.Nil(t, Range{From: 4, To: 3}.Values())
}
