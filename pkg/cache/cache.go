// Package cache provides a generic, thread-safe TTL cache used by the
// built-in cache plugin and available to application services.
package cache

import (
	"sync/atomic"

	"github.com/guyskk/weirb-hrpc/errors"
)

// Cache is the generic cache interface, parameterized by value type.
type Cache[V any] interface {
	// Get retrieves a value by key.
	Get(key string) (V, bool)

	// Set stores a value. Returns true if a new entry was created, false
	// if an existing one was updated.
	Set(key string, value V) (bool, error)

	// Delete removes an entry. Returns true if the key existed.
	Delete(key string) (bool, error)

	// Clear removes all entries.
	Clear() error

	// Size returns the current number of entries.
	Size() int

	// Keys returns the unexpired keys.
	Keys() []string

	// Stats returns the running counters.
	Stats() *Statistics

	// Close stops background maintenance.
	Close() error
}

// EvictCallback runs when an entry is evicted, outside the cache lock.
type EvictCallback[V any] func(key string, value V)

// Statistics holds running cache counters.
type Statistics struct {
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// Hits returns the hit count.
func (s *Statistics) Hits() int64 { return s.hits.Load() }

// Misses returns the miss count.
func (s *Statistics) Misses() int64 { return s.misses.Load() }

// Evictions returns the eviction count.
func (s *Statistics) Evictions() int64 { return s.evictions.Load() }

func validateKey(key string) error {
	if key == "" {
		return errors.NewConfig("cache key cannot be empty")
	}
	return nil
}
