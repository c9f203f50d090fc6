package testutil

import (
	"fmt"
	"strings"
	"testing"
)

// Bench builds a circuit description with the given number of plain
// inputs (G0..), key inputs (keyinput0..) and outputs (O0..). Each output
// is an inversion of the first plain input.
func Bench(inputs, keyInputs, outputs int) string {
	var b strings.Builder
	for i := 0; i < inputs; i++ {
		fmt.Fprintf(&b, "INPUT(G%d)\n", i)
	}
	for i := 0; i < keyInputs; i++ {
		fmt.Fprintf(&b, "INPUT(keyinput%d)\n", i)
	}
	for i := 0; i < outputs; i++ {
		fmt.Fprintf(&b, "OUTPUT(O%d)\n", i)
	}
	for i := 0; i < outputs; i++ {
		fmt.Fprintf(&b, "O%d = NOT(G0)\n", i)
	}
	return b.String()
}

// WriteBench writes Bench(inputs, keyInputs, outputs) to path, creating
// parent directories.
func WriteBench(t testing.TB, path string, inputs, keyInputs, outputs int) {
	t.Helper()
	writeFile(t, path, Bench(inputs, keyInputs, outputs), 0o644)
}
