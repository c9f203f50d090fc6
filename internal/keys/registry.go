package keys

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/roach88/probesweep/internal/naming"
)

// MissReason says why a registry lookup did not produce a key.
type MissReason string

const (
	// MissNone marks a hit.
	MissNone MissReason = ""
	// MissNoRegistry means no registry file was configured or it does not exist.
	MissNoRegistry MissReason = "no registry"
	// MissPathShape means the locked circuit path has no benchmark/method segments.
	MissPathShape MissReason = "path shape"
	// MissBenchmark means the benchmark has no entry.
	MissBenchmark MissReason = "unknown benchmark"
	// MissMethod means the benchmark has no entry for the locking method.
	MissMethod MissReason = "unknown method"
)

// Lookup is the result of a registry query. A lookup is either a hit
// (Key set, Miss == MissNone) or a miss carrying its reason.
type Lookup struct {
	Key  string
	Miss MissReason
}

// Hit reports whether the lookup found a key.
func (l Lookup) Hit() bool {
	return l.Miss == MissNone
}

func miss(reason MissReason) Lookup {
	return Lookup{Miss: reason}
}

// Registry maps benchmark name -> locking method -> key.
type Registry struct {
	path    string
	entries map[string]map[string]string
}

// LoadRegistry reads a registry file. The file may be JSON or YAML:
//
//	{"c1908": {"SLL": "0101...", "AntiSAT": "1100..."}}
//
// A missing file yields an empty registry whose lookups all miss with
// MissNoRegistry. An unparseable file is an error.
func LoadRegistry(path string) (*Registry, error) {
	r := &Registry{path: path}
	if path == "" {
		return r, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, errors.Wrap(err, "load key registry")
	}

	raw := map[string]map[string]string{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "parse key registry %s", path)
	}

	r.entries = make(map[string]map[string]string, len(raw))
	for bench, methods := range raw {
		m := make(map[string]string, len(methods))
		for method, key := range methods {
			m[norm.NFC.String(method)] = key
		}
		r.entries[norm.NFC.String(bench)] = m
	}
	return r, nil
}

// Path is the file the registry was loaded from.
func (r *Registry) Path() string {
	return r.path
}

// Lookup finds the key registered for the locked circuit's benchmark and
// locking method, both taken from its path.
func (r *Registry) Lookup(lockedPath string) Lookup {
	if r == nil || r.entries == nil {
		return miss(MissNoRegistry)
	}
	id, err := naming.IdentityOf(lockedPath)
	if err != nil {
		return miss(MissPathShape)
	}
	methods, ok := r.entries[norm.NFC.String(id.Benchmark)]
	if !ok {
		return miss(MissBenchmark)
	}
	key, ok := methods[norm.NFC.String(id.Method)]
	if !ok {
		return miss(MissMethod)
	}
	return Lookup{Key: key}
}
