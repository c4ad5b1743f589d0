// pkg/memcache/ttl_cache.go
package mem

import (
	"sync"
	"time"
)

// Store is a small in-process cache with per-entry expiry.
type Store[V any] interface {
	Set(key string, value V, ttl time.Duration)

	// Get returns the value for key if present and not expired.
	Get(key string) (V, bool)

	// Epoch identifies the current contents. Purge advances it, so a value
	// computed before a purge can be dropped with SetAt.
	Epoch() uint64
	SetAt(epoch uint64, key string, value V, ttl time.Duration) bool

	Purge()
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

type TTLCache[V any] struct {
	mu    sync.RWMutex
	data  map[string]entry[V]
	epoch uint64
}

func NewTTLCache[V any]() *TTLCache[V] {
	return &TTLCache[V]{
		data: make(map[string]entry[V]),
	}
}

func (s *TTLCache[V]) Set(key string, value V, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = entry[V]{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
}

func (s *TTLCache[V]) Get(key string) (V, bool) {
	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()

	if !ok {
		var zero V
		return zero, false
	}
	if time.Now().After(e.expiresAt) {
		s.mu.Lock()
		if cur, still := s.data[key]; still && !time.Now().Before(cur.expiresAt) {
			delete(s.data, key) // cleanup expired
		}
		s.mu.Unlock()
		var zero V
		return zero, false
	}
	return e.value, true
}

func (s *TTLCache[V]) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

func (s *TTLCache[V]) SetAt(epoch uint64, key string, value V, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return false
	}
	s.data[key] = entry[V]{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return true
}

func (s *TTLCache[V]) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]entry[V])
	s.epoch++
}
