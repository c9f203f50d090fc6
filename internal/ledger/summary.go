package ledger

import (
	"sort"
	"time"
)

// CircuitSummary aggregates the rows recorded for one locked circuit.
type CircuitSummary struct {
	LockedCircuit     string        `json:"locked_circuit"`
	Runs              int           `json:"runs"`
	FullKeyRuns       int           `json:"full_key_runs"`
	MaxPartialLeakage int           `json:"max_partial_leakage"`
	TotalTime         time.Duration `json:"total_time_ns"`
	// BestFullKey is the first full-key summary line recorded, if any.
	BestFullKey string `json:"best_full_key,omitempty"`
}

// Summarize groups rows by locked circuit, sorted by circuit name.
func Summarize(rows []Row) []CircuitSummary {
	byCircuit := map[string]*CircuitSummary{}
	for _, r := range rows {
		s, ok := byCircuit[r.LockedCircuit]
		if !ok {
			s = &CircuitSummary{LockedCircuit: r.LockedCircuit}
			byCircuit[r.LockedCircuit] = s
		}
		s.Runs++
		s.TotalTime += r.ExecutionTime
		if r.PartialKeyLeakage > s.MaxPartialLeakage {
			s.MaxPartialLeakage = r.PartialKeyLeakage
		}
		if r.FoundFullKey() {
			s.FullKeyRuns++
			if s.BestFullKey == "" {
				s.BestFullKey = r.FullKeyLeakage
			}
		}
	}

	out := make([]CircuitSummary, 0, len(byCircuit))
	for _, s := range byCircuit {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LockedCircuit < out[j].LockedCircuit
	})
	return out
}
