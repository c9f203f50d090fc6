package sweep

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/roach88/probesweep/internal/attack"
	"github.com/roach88/probesweep/internal/naming"
)

// ErrPoolClosed is returned when points are submitted to a closed
// coordinator.
var ErrPoolClosed = errors.New("sweep pool closed")

// Runner executes a single point. *attack.Driver implements it.
type Runner interface {
	Execute(ctx context.Context, p attack.Params) (*attack.Outcome, error)
}

var _ Runner = (*attack.Driver)(nil)

// Summary counts what happened to a batch of points.
type Summary struct {
	Points int `json:"points"`
	// Succeeded runs completed with a clean engine exit.
	Succeeded int `json:"succeeded"`
	// Degraded runs completed but the engine failed or timed out.
	Degraded int `json:"degraded"`
	// Failed runs were rejected before or after the engine ran, e.g. a
	// malformed circuit.
	Failed int `json:"failed"`
	// Abandoned runs were in flight when the sweep was interrupted.
	Abandoned int `json:"abandoned"`
	// Dropped points were never started.
	Dropped int `json:"dropped"`
}

// Add accumulates other into s.
func (s *Summary) Add(other Summary) {
	s.Points += other.Points
	s.Succeeded += other.Succeeded
	s.Degraded += other.Degraded
	s.Failed += other.Failed
	s.Abandoned += other.Abandoned
	s.Dropped += other.Dropped
}

// Coordinator runs points on a fixed number of worker slots. Points whose
// run names collide never execute concurrently. A failing point is logged
// and does not affect its siblings.
type Coordinator struct {
	runner  Runner
	workers int64
	grid    GridConfig
	logger  *zap.Logger

	sem    *semaphore.Weighted
	names  *keyedMutex
	closed atomic.Bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithGrid overrides DefaultGrid for RunSweep.
func WithGrid(g GridConfig) Option {
	return func(c *Coordinator) {
		c.grid = g
	}
}

// WithLogger sets the coordinator's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// NewCoordinator creates a Coordinator with the given number of worker
// slots.
func NewCoordinator(runner Runner, workers int, opts ...Option) (*Coordinator, error) {
	if workers < 1 {
		return nil, errors.Errorf("new coordinator: workers must be >= 1, got %d", workers)
	}
	c := &Coordinator{
		runner:  runner,
		workers: int64(workers),
		grid:    DefaultGrid(),
		logger:  zap.NewNop(),
		sem:     semaphore.NewWeighted(int64(workers)),
		names:   newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("sweep")
	return c, nil
}

// Close stops the coordinator from starting further points, including
// those of a Run in progress. Points already running are unaffected.
func (c *Coordinator) Close() {
	c.closed.Store(true)
}

// RunSweep builds the grid for one locked circuit and runs it.
func (c *Coordinator) RunSweep(ctx context.Context, locked, key string, mode Mode, candidates []string) (Summary, error) {
	points := BuildGrid(locked, key, mode, candidates, c.grid)
	c.logger.Info("starting sweep",
		zap.String("locked", locked),
		zap.Int("algorithm", int(mode)),
		zap.Int("candidates", len(candidates)),
		zap.Int("points", len(points)),
		zap.Int64("workers", c.workers),
	)
	summary, err := c.Run(ctx, points)
	c.logger.Info("sweep finished",
		zap.String("locked", locked),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("degraded", summary.Degraded),
		zap.Int("failed", summary.Failed),
		zap.Int("abandoned", summary.Abandoned),
		zap.Int("dropped", summary.Dropped),
	)
	return summary, err
}

// Run submits every point and waits for the started ones to finish. When
// ctx is cancelled or the coordinator is closed, points not yet started
// are dropped and the corresponding error is returned alongside the
// summary.
func (c *Coordinator) Run(ctx context.Context, points []attack.Params) (Summary, error) {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		summary = Summary{Points: len(points)}
		stopErr error
	)

	for i, p := range points {
		if c.closed.Load() {
			stopErr = ErrPoolClosed
		} else if err := c.sem.Acquire(ctx, 1); err != nil {
			stopErr = errors.Wrap(err, "sweep interrupted")
		} else if c.closed.Load() {
			c.sem.Release(1)
			stopErr = ErrPoolClosed
		}
		if stopErr != nil {
			dropped := len(points) - i
			summary.Dropped = dropped
			pointsDropped.Add(float64(dropped))
			c.logger.Warn("dropping unstarted points", zap.Int("count", dropped), zap.Error(stopErr))
			break
		}

		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer c.sem.Release(1)

			outcome := c.execute(ctx, p)
			mu.Lock()
			switch outcome {
			case outcomeSuccess:
				summary.Succeeded++
			case outcomeDegraded:
				summary.Degraded++
			case outcomeFailed:
				summary.Failed++
			case outcomeAbandoned:
				summary.Abandoned++
			}
			mu.Unlock()
		}()
	}

	wg.Wait()
	return summary, stopErr
}

const (
	outcomeSuccess   = "success"
	outcomeDegraded  = "degraded"
	outcomeFailed    = "failed"
	outcomeAbandoned = "abandoned"
)

func (c *Coordinator) execute(ctx context.Context, p attack.Params) string {
	name, err := naming.BaseName(p.LockedCircuit, p.PriorCircuit, p.UnrollFactor, p.ProbeResolution)
	if err == nil {
		unlock := c.names.Lock(name)
		defer unlock()
	} else {
		name = p.LockedCircuit
	}
	logger := c.logger.With(zap.String("run", name))

	pointsInflight.Inc()
	defer pointsInflight.Dec()

	out, err := c.runner.Execute(ctx, p)
	var outcome string
	switch {
	case err != nil && ctx.Err() != nil:
		outcome = outcomeAbandoned
		logger.Debug("run abandoned", zap.Error(err))
	case err != nil:
		outcome = outcomeFailed
		logger.Error("error in run", zap.Error(err))
	case out.EngineErr != nil:
		outcome = outcomeDegraded
		runDuration.Observe(out.Result.ExecutionTime.Seconds())
		logger.Warn("run degraded", zap.Error(out.EngineErr))
	default:
		outcome = outcomeSuccess
		runDuration.Observe(out.Result.ExecutionTime.Seconds())
		logger.Debug("run complete",
			zap.String("full_key_leakage", out.Result.FullKeyLeakage),
			zap.Int("partial_key_leakage", out.Result.PartialKeyLeakage),
		)
	}
	runsTotal.WithLabelValues(outcome).Inc()
	return outcome
}
