package sweep

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()
	counters := map[string]*int{"a": new(int), "b": new(int)}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		key := []string{"a", "b"}[i%2]
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock(key)
			*counters[key]++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, *counters["a"])
	assert.Equal(t, 50, *counters["b"])
	assert.Equal(t, 0, k.len())
}
