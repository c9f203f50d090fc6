package bench

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// declRE matches interface declarations such as "INPUT(G1)" or "OUTPUT(G22)".
// Captures the declaration kind and the declared name.
var declRE = regexp.MustCompile(`^(INPUT|OUTPUT)\s*\(\s*([^()\s]+)\s*\)`)

// keyMarker marks an input as part of the unlocking key.
const keyMarker = "key"

// Descriptor is the interface of a circuit file: its declared inputs and outputs
// in file order. Descriptors are derived on demand and never persisted.
type Descriptor struct {
	Path string

	// Inputs are the non-key inputs.
	Inputs []string
	// KeyInputs are the inputs whose name contains "key".
	KeyInputs []string
	Outputs   []string

	// all holds every declared input in file order.
	all []string
}

// Read parses the circuit description at path.
func Read(path string) (*Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "read circuit")
	}
	defer f.Close()

	d, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read circuit %s", path)
	}
	d.Path = path
	return d, nil
}

// Parse reads declarations from r. Lines that are not INPUT/OUTPUT
// declarations are skipped.
func Parse(r io.Reader) (*Descriptor, error) {
	d := &Descriptor{
		Inputs:    []string{},
		KeyInputs: []string{},
		Outputs:   []string{},
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		kind, name, ok := parseDecl(scanner.Text())
		if !ok {
			continue
		}
		switch kind {
		case "INPUT":
			d.all = append(d.all, name)
			if IsKeyInput(name) {
				d.KeyInputs = append(d.KeyInputs, name)
			} else {
				d.Inputs = append(d.Inputs, name)
			}
		case "OUTPUT":
			d.Outputs = append(d.Outputs, name)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan circuit")
	}
	return d, nil
}

// IsKeyInput reports whether an input name belongs to the key.
func IsKeyInput(name string) bool {
	return strings.Contains(name, keyMarker)
}

// AllInputs returns every declared input, key and non-key, in file order.
func (d *Descriptor) AllInputs() []string {
	out := make([]string, len(d.all))
	copy(out, d.all)
	return out
}

// KeyCount is the number of key inputs.
func (d *Descriptor) KeyCount() int {
	return len(d.KeyInputs)
}

func parseDecl(line string) (kind, name string, ok bool) {
	m := declRE.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}
