package mem

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache[int]()
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, -time.Second)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("b")
	assert.False(t, ok)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestTTLCachePurgeRejectsStaleWrites(t *testing.T) {
	c := NewTTLCache[string]()
	before := c.Epoch()

	c.Set("k", "v", time.Minute)
	c.Purge()

	_, ok := c.Get("k")
	assert.False(t, ok)

	assert.False(t, c.SetAt(before, "k", "stale", time.Minute))
	_, ok = c.Get("k")
	assert.False(t, ok)

	assert.True(t, c.SetAt(c.Epoch(), "k", "fresh", time.Minute))
	v, _ := c.Get("k")
	assert.Equal(t, "fresh", v)
}

func TestTTLCacheConcurrentAccess(t *testing.T) {
	c := NewTTLCache[int]()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Set("k", i, time.Minute)
			c.Get("k")
			if i%10 == 0 {
				c.Purge()
			}
		}(i)
	}
	wg.Wait()
	assert.GreaterOrEqual(t, c.Epoch(), uint64(5))
}
