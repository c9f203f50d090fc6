// Package config loads probesweep's YAML configuration.
package config

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	defaultEngine         = "./abc"
	defaultLogDir         = "logs"
	defaultTmpDir         = "tmp"
	defaultKeyRegistry    = "probing_benchmarks/keys.json"
	defaultLedger         = "results.csv"
	defaultCorpusDir      = "bench_files/inputs"
	defaultWorkers        = 1024
	defaultMaxKeyInputs   = 6
	defaultFixedUnroll    = 16
	defaultUnrollFrom     = 2
	defaultUnrollTo       = 30
	defaultResolutionFrom = 1
	defaultResolutionTo   = 20
	defaultMultiNodePrior = "bench_files/inputs/s38584.1.bench"
)

// Range is an inclusive integer range.
type Range struct {
	From int `yaml:"from"`
	To   int `yaml:"to"`
}

// Values expands the range in ascending order.
func (r Range) Values() []int {
	if r.To < r.From {
		return nil
	}
	out := make([]int, 0, r.To-r.From+1)
	for v := r.From; v <= r.To; v++ {
		out = append(out, v)
	}
	return out
}

// Config is the full configuration. Zero values are replaced by defaults
// in WithDefaults.
type Config struct {
	// Engine is the attack engine binary.
	Engine string `yaml:"engine"`
	// LogDir receives one log per run.
	LogDir string `yaml:"log_dir"`
	// TmpDir receives command scripts, prior copies and artifacts.
	TmpDir string `yaml:"tmp_dir"`
	// KeyRegistry maps benchmark -> locking method -> key. JSON or YAML.
	KeyRegistry string `yaml:"key_registry"`
	// Ledger is the results file; .db/.sqlite selects the SQLite backend.
	Ledger string `yaml:"ledger"`
	// CorpusDir holds candidate prior circuits for single-node sweeps.
	CorpusDir string `yaml:"corpus_dir"`
	// CacheDir overrides where duplicated circuit variants are written.
	CacheDir string `yaml:"cache_dir"`
	// RunTimeout bounds one engine run. Zero disables the limit.
	RunTimeout time.Duration `yaml:"run_timeout"`

	Workers          int   `yaml:"workers"`
	MaxKeyInputs     int   `yaml:"max_key_inputs"`
	UnrollFactors    Range `yaml:"unroll_factors"`
	ProbeResolutions Range `yaml:"probe_resolutions"`
	FixedUnroll      int   `yaml:"fixed_unroll"`

	// AllowList restricts corpus candidates by file name substring.
	AllowList []string `yaml:"allow_list"`
	// LockedCircuits are swept when no circuits are named on the command line.
	LockedCircuits []string `yaml:"locked_circuits"`
	// PriorCircuits is the fixed candidate set for multi-node sweeps.
	PriorCircuits []string `yaml:"prior_circuits"`

	// MetricsAddr serves Prometheus metrics during sweeps when set.
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{}.WithDefaults()
}

// WithDefaults returns a copy of the Config with any missing fields set to
// their default values.
func (c Config) WithDefaults() Config {
	cpy := c
	if cpy.Engine == "" {
		cpy.Engine = defaultEngine
	}
	if cpy.LogDir == "" {
		cpy.LogDir = defaultLogDir
	}
	if cpy.TmpDir == "" {
		cpy.TmpDir = defaultTmpDir
	}
	if cpy.KeyRegistry == "" {
		cpy.KeyRegistry = defaultKeyRegistry
	}
	if cpy.Ledger == "" {
		cpy.Ledger = defaultLedger
	}
	if cpy.CorpusDir == "" {
		cpy.CorpusDir = defaultCorpusDir
	}
	if cpy.Workers == 0 {
		cpy.Workers = defaultWorkers
	}
	if cpy.MaxKeyInputs == 0 {
		cpy.MaxKeyInputs = defaultMaxKeyInputs
	}
	if cpy.UnrollFactors == (Range{}) {
		cpy.UnrollFactors = Range{From: defaultUnrollFrom, To: defaultUnrollTo}
	}
	if cpy.ProbeResolutions == (Range{}) {
		cpy.ProbeResolutions = Range{From: defaultResolutionFrom, To: defaultResolutionTo}
	}
	if cpy.FixedUnroll == 0 {
		cpy.FixedUnroll = defaultFixedUnroll
	}
	if len(cpy.PriorCircuits) == 0 {
		cpy.PriorCircuits = []string{defaultMultiNodePrior}
	}
	return cpy
}

// Validate checks ranges and bounds.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return errors.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	if c.MaxKeyInputs < 1 {
		return errors.Errorf("max_key_inputs must be >= 1, got %d", c.MaxKeyInputs)
	}
	if c.UnrollFactors.From < 2 || c.UnrollFactors.To < c.UnrollFactors.From {
		return errors.Errorf("unroll_factors must satisfy 2 <= from <= to, got %d..%d",
			c.UnrollFactors.From, c.UnrollFactors.To)
	}
	if c.ProbeResolutions.From < 1 || c.ProbeResolutions.To < c.ProbeResolutions.From {
		return errors.Errorf("probe_resolutions must satisfy 1 <= from <= to, got %d..%d",
			c.ProbeResolutions.From, c.ProbeResolutions.To)
	}
	if c.FixedUnroll < 2 {
		return errors.Errorf("fixed_unroll must be >= 2, got %d", c.FixedUnroll)
	}
	if c.RunTimeout < 0 {
		return errors.Errorf("run_timeout must not be negative, got %s", c.RunTimeout)
	}
	return nil
}

// Load reads the file at path, applies defaults and validates the result.
// An empty path yields Default().
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "load config")
	}
	return Parse(data)
}

// Parse decodes YAML config data. Unknown fields are rejected.
func Parse(data []byte) (Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return Config{}, errors.Wrap(err, "parse config")
	}
	c = c.WithDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, errors.Wrap(err, "invalid config")
	}
	return c, nil
}
