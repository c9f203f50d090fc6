// Package keys resolves the secret key used for a run.
//
// Sources are tried in order and the first one that produces a key wins:
//
//  1. the key registry, keyed by the benchmark/method directories of the
//     locked circuit;
//  2. an explicit key supplied by the caller;
//  3. a random key as long as the locked circuit's key-input count.
//
// The source is recorded as the key's Provenance.
package keys

import (
	"math/rand"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/roach88/probesweep/internal/bench"
)

// ErrInvalidKey is returned for keys that are not binary strings.
var ErrInvalidKey = errors.New("key must be a string of 0 and 1")

// Provenance records where a key came from.
type Provenance string

const (
	ProvenanceRegistry  Provenance = "registry"
	ProvenanceExplicit  Provenance = "explicit"
	ProvenanceGenerated Provenance = "generated"
)

// Key is a resolved key and its source.
type Key struct {
	Bits       string
	Provenance Provenance
}

// Generator produces a random binary string of length n.
type Generator func(n int) string

// RandomBits is the default Generator.
func RandomBits(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		if rand.Intn(2) == 1 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// Provisioner resolves keys for runs.
type Provisioner struct {
	registry *Registry
	generate Generator
	logger   *zap.Logger
}

// NewProvisioner creates a Provisioner. registry may be nil; generate
// defaults to RandomBits.
func NewProvisioner(registry *Registry, generate Generator, logger *zap.Logger) *Provisioner {
	if generate == nil {
		generate = RandomBits
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provisioner{
		registry: registry,
		generate: generate,
		logger:   logger.Named("keys"),
	}
}

// Resolve picks the key for lockedPath. explicit may be empty.
func (p *Provisioner) Resolve(lockedPath, explicit string) (Key, error) {
	lookup := p.registry.Lookup(lockedPath)
	if lookup.Hit() {
		return Key{Bits: lookup.Key, Provenance: ProvenanceRegistry}, nil
	}
	p.logger.Debug("registry miss",
		zap.String("circuit", lockedPath),
		zap.String("reason", string(lookup.Miss)),
	)

	if explicit != "" {
		if !IsBinary(explicit) {
			return Key{}, errors.Wrapf(ErrInvalidKey, "explicit key %q", explicit)
		}
		return Key{Bits: explicit, Provenance: ProvenanceExplicit}, nil
	}

	d, err := bench.Read(lockedPath)
	if err != nil {
		return Key{}, errors.Wrap(err, "generate key")
	}
	return Key{Bits: p.generate(d.KeyCount()), Provenance: ProvenanceGenerated}, nil
}

// IsBinary reports whether s consists only of '0' and '1'. The empty
// string is binary (a circuit may have no key inputs).
func IsBinary(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '0' && s[i] != '1' {
			return false
		}
	}
	return true
}
