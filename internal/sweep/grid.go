// Package sweep enumerates experiment grids and runs them on a bounded
// worker pool.
package sweep

import (
	"github.com/pkg/errors"

	"github.com/roach88/probesweep/internal/attack"
)

// Mode selects the sweep algorithm.
type Mode int

const (
	// ModeSingleNode probes one signal at a time against corpus candidates.
	ModeSingleNode Mode = 1
	// ModeMultiNode probes signals jointly against a small fixed prior set.
	ModeMultiNode Mode = 2
)

// ParseMode validates an algorithm selector.
func ParseMode(n int) (Mode, error) {
	switch Mode(n) {
	case ModeSingleNode, ModeMultiNode:
		return Mode(n), nil
	default:
		return 0, errors.Errorf("unknown algorithm %d (want 1 or 2)", n)
	}
}

// MultiNode reports whether the engine runs in multi-node mode.
func (m Mode) MultiNode() bool {
	return m == ModeMultiNode
}

// GridConfig holds the swept ranges.
type GridConfig struct {
	UnrollFactors    []int
	ProbeResolutions []int
	// FixedUnroll is the unroll factor used for the per-candidate
	// resolution sweep.
	FixedUnroll  int
	MaxKeyInputs int
}

// DefaultGrid returns unroll factors 2..30, resolutions 1..20, fixed
// unroll 16 and at most 6 key inputs.
func DefaultGrid() GridConfig {
	g := GridConfig{FixedUnroll: 16, MaxKeyInputs: 6}
	for u := 2; u <= 30; u++ {
		g.UnrollFactors = append(g.UnrollFactors, u)
	}
	for r := 1; r <= 20; r++ {
		g.ProbeResolutions = append(g.ProbeResolutions, r)
	}
	return g
}

// Size is the number of points BuildGrid produces for n candidates.
func (g GridConfig) Size(n int) int {
	return 1 + n*len(g.UnrollFactors) + len(g.ProbeResolutions) + n*len(g.ProbeResolutions)
}

// BuildGrid enumerates the sweep for one locked circuit, in order:
//
//   - a baseline with no prior and no sweep parameter
//   - every candidate at every unroll factor
//   - every probe resolution with no prior
//   - every candidate at every probe resolution, unrolled FixedUnroll times
//
// Every point carries key as its explicit key.
func BuildGrid(locked, key string, mode Mode, candidates []string, g GridConfig) []attack.Params {
	base := func() attack.Params {
		p := attack.Params{
			LockedCircuit: locked,
			Key:           key,
			MultiNode:     mode.MultiNode(),
		}
		if g.MaxKeyInputs > 0 {
			p.MaxKeyInputs = intp(g.MaxKeyInputs)
		}
		return p
	}

	points := make([]attack.Params, 0, g.Size(len(candidates)))
	points = append(points, base())

	for _, prior := range candidates {
		for _, u := range g.UnrollFactors {
			p := base()
			p.PriorCircuit = prior
			p.UnrollFactor = intp(u)
			points = append(points, p)
		}
	}

	for _, r := range g.ProbeResolutions {
		p := base()
		p.ProbeResolution = intp(r)
		points = append(points, p)
	}

	for _, prior := range candidates {
		for _, r := range g.ProbeResolutions {
			p := base()
			p.PriorCircuit = prior
			p.UnrollFactor = intp(g.FixedUnroll)
			p.ProbeResolution = intp(r)
			points = append(points, p)
		}
	}
	return points
}

func intp(v int) *int { return &v }
