package attack

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/roach88/probesweep/internal/bench"
	"github.com/roach88/probesweep/internal/fsutil"
	"github.com/roach88/probesweep/internal/keys"
	"github.com/roach88/probesweep/internal/ledger"
	"github.com/roach88/probesweep/internal/naming"
)

// Result is the outcome of one run.
type Result struct {
	ExecutionTime time.Duration
	// FullKeyLeakage is the engine's full-key line or ledger.NoResults.
	FullKeyLeakage    string
	PartialKeyLeakage int
}

// Outcome is a Result plus the run's identity and where its artifacts went.
type Outcome struct {
	Params   Params
	BaseName string
	Key      keys.Key
	Result   Result
	LogPath  string
	// EngineErr is the engine failure, if any. The run still produced a
	// (degraded) Result.
	EngineErr error
}

// Driver executes single runs.
type Driver struct {
	engine Engine
	keys   *keys.Provisioner
	layout naming.Layout
	ledger ledger.Ledger
	logger *zap.Logger
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithLedger makes every run append a ledger row.
func WithLedger(l ledger.Ledger) DriverOption {
	return func(d *Driver) {
		d.ledger = l
	}
}

// WithLogger sets the driver's logger.
func WithLogger(logger *zap.Logger) DriverOption {
	return func(d *Driver) {
		d.logger = logger
	}
}

// NewDriver creates a Driver.
func NewDriver(engine Engine, provisioner *keys.Provisioner, layout naming.Layout, opts ...DriverOption) *Driver {
	d := &Driver{
		engine: engine,
		keys:   provisioner,
		layout: layout,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.Named("driver")
	return d
}

// Execute performs one run. See the package documentation for the error
// contract.
func (d *Driver) Execute(ctx context.Context, p Params) (*Outcome, error) {
	key, err := d.keys.Resolve(p.LockedCircuit, p.Key)
	if err != nil {
		return nil, errors.Wrap(err, "resolve key")
	}

	base, err := naming.BaseName(p.LockedCircuit, p.PriorCircuit, p.UnrollFactor, p.ProbeResolution)
	if err != nil {
		return nil, errors.Wrap(err, "derive run name")
	}
	logger := d.logger.With(zap.String("run", base))

	if err := os.MkdirAll(d.layout.TmpDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create scratch directory")
	}

	var priorCopy string
	if p.PriorCircuit != "" {
		priorCopy, err = d.preparePrior(p)
		if err != nil {
			return nil, err
		}
		defer os.Remove(priorCopy)
	}

	script := Script(p, key.Bits, priorCopy)
	scriptPath := d.layout.ScriptPath(base)
	if err := fsutil.WriteFileAtomic(scriptPath, []byte(script+"\n"), 0o644); err != nil {
		return nil, errors.Wrap(err, "write command script")
	}

	logger.Info("executing engine", zap.String("script", scriptPath))
	exec, err := d.engine.Run(ctx, scriptPath)
	if err != nil {
		logger.Warn("run abandoned", zap.Error(err))
		return nil, err
	}
	if exec.Err != nil {
		logger.Warn("engine failed", zap.Error(exec.Err))
	}

	out := ParseOutput(exec.Stdout)
	artifactKeys := d.collectArtifact(out, base, logger)

	logPath := d.layout.LogPath(base)
	entry := logEntry{
		Script:       script,
		Exec:         exec,
		Output:       out,
		KeySource:    string(key.Provenance),
		ArtifactKeys: artifactKeys,
	}
	if err := fsutil.WriteFileAtomic(logPath, []byte(renderLog(entry)), 0o644); err != nil {
		return nil, errors.Wrap(err, "write run log")
	}

	if out.FullKey == nil {
		logger.Info("no full key results pattern found")
	}

	outcome := &Outcome{
		Params:   p,
		BaseName: base,
		Key:      key,
		Result: Result{
			ExecutionTime:     exec.Duration,
			FullKeyLeakage:    out.FullKeySummary(),
			PartialKeyLeakage: out.Partial(),
		},
		LogPath:   logPath,
		EngineErr: exec.Err,
	}

	if d.ledger != nil {
		if err := d.ledger.Append(ctx, outcome.LedgerRow()); err != nil {
			return outcome, errors.Wrap(err, "record run")
		}
	}
	return outcome, nil
}

// preparePrior writes a private copy of the prior circuit whose outputs are
// renamed to the locked circuit's non-key inputs.
func (d *Driver) preparePrior(p Params) (string, error) {
	locked, err := bench.Read(p.LockedCircuit)
	if err != nil {
		return "", errors.Wrap(err, "prepare prior circuit")
	}
	dst := d.layout.PriorCopyPath(p.PriorCircuit)
	if err := bench.RenameInterface(p.PriorCircuit, locked.Inputs, dst); err != nil {
		return "", errors.Wrap(err, "prepare prior circuit")
	}
	return dst, nil
}

// collectArtifact moves the engine's emitted artifact to the run's
// canonical path and counts the key inputs it mentions. Returns -1 when no
// artifact exists.
func (d *Driver) collectArtifact(out Output, base string, logger *zap.Logger) int {
	if out.ArtifactPath == "" {
		logger.Debug("no artifact reported")
		return -1
	}
	if _, err := os.Stat(out.ArtifactPath); err != nil {
		logger.Warn("reported artifact missing", zap.String("path", out.ArtifactPath))
		return -1
	}

	dst := d.layout.ArtifactPath(base)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		logger.Warn("create artifact directory", zap.Error(err))
		return -1
	}
	if err := os.Rename(out.ArtifactPath, dst); err != nil {
		logger.Warn("move artifact", zap.Error(err))
		return -1
	}
	logger.Debug("artifact moved", zap.String("path", dst))

	n, err := CountArtifactKeyInputs(dst)
	if err != nil {
		logger.Warn("count artifact key inputs", zap.Error(err))
		return -1
	}
	return n
}

// LedgerRow flattens the outcome for the ledger.
func (o *Outcome) LedgerRow() ledger.Row {
	var prior string
	if o.Params.PriorCircuit != "" {
		prior = filepath.Base(o.Params.PriorCircuit)
	}
	return ledger.Row{
		LockedCircuit:     filepath.Base(o.Params.LockedCircuit),
		PriorCircuit:      prior,
		UnrollFactor:      o.Params.UnrollFactor,
		ProbeResolution:   o.Params.ProbeResolution,
		ExecutionTime:     o.Result.ExecutionTime,
		FullKeyLeakage:    o.Result.FullKeyLeakage,
		PartialKeyLeakage: o.Result.PartialKeyLeakage,
		KeySource:         string(o.Key.Provenance),
		Key:               o.Key.Bits,
	}
}
