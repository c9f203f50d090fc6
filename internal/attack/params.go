package attack

import (
	"strconv"
	"strings"
)

// Params fully describes one run. Nil/empty optional fields are not passed
// to the engine.
type Params struct {
	LockedCircuit string
	// PriorCircuit is an upstream circuit whose outputs feed the locked
	// circuit's non-key inputs. Empty for none.
	PriorCircuit    string
	UnrollFactor    *int
	ProbeResolution *int
	// Key is an explicit key, used when the registry has none.
	Key          string
	MultiNode    bool
	MaxKeyInputs *int
	// KeySpaceMin is the minimum fraction of key space a multi-node probe
	// must eliminate.
	KeySpaceMin  *float64
	SolverOutput string
	Verbose      bool
}

// Script composes the engine command script: a load directive followed by
// the attack invocation. key is the resolved key and priorCopy the renamed
// prior circuit (empty for none).
func Script(p Params, key, priorCopy string) string {
	flags := []string{"clap"}
	if key != "" {
		flags = append(flags, "-k "+key)
	}
	if p.MultiNode {
		flags = append(flags, "-m")
	}
	if p.MaxKeyInputs != nil {
		flags = append(flags, "-c "+strconv.Itoa(*p.MaxKeyInputs))
	}
	if p.KeySpaceMin != nil {
		flags = append(flags, "-l "+strconv.FormatFloat(*p.KeySpaceMin, 'f', -1, 64))
	}
	if p.SolverOutput != "" {
		flags = append(flags, "-o "+p.SolverOutput)
	}
	if p.ProbeResolution != nil {
		flags = append(flags, "-r "+strconv.Itoa(*p.ProbeResolution))
	}
	if priorCopy != "" {
		flags = append(flags, "-s "+priorCopy)
	}
	if p.UnrollFactor != nil {
		flags = append(flags, "-u "+strconv.Itoa(*p.UnrollFactor))
	}
	if p.Verbose {
		flags = append(flags, "-v")
	}

	return "read_bench " + p.LockedCircuit + "\n" + strings.Join(flags, " ")
}
