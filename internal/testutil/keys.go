package testutil

import (
	"strconv"
	"strings"
	"sync"
)

// CountingKeys generates keys from a counter so tests get distinct,
// predictable keys. The first key is the binary encoding of 1, left-padded
// with zeros (or truncated to its low bits) to the requested length.
//
// Safe for concurrent use.
type CountingKeys struct {
	mu  sync.Mutex
	seq uint64
}

// Generate returns the next key of length n. It matches keys.Generator.
func (c *CountingKeys) Generate(n int) string {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	bits := strconv.FormatUint(seq, 2)
	if len(bits) >= n {
		return bits[len(bits)-n:]
	}
	return strings.Repeat("0", n-len(bits)) + bits
}

// Issued returns how many keys have been generated.
func (c *CountingKeys) Issued() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}
