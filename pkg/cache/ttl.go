package cache

import (
	"sync"
	"time"
)

type ttlEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// ttlCache evicts entries once their TTL elapses. Expired entries are
// dropped lazily on Get and swept periodically by a background goroutine.
type ttlCache[V any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	items   map[string]*ttlEntry[V]
	stats   *Statistics
	evictFn EvictCallback[V]

	shutdown chan struct{}
	done     chan struct{}
	closed   sync.Once
}

// Option configures a TTL cache.
type Option[V any] func(*ttlCache[V])

// WithEvictCallback registers a callback invoked for every evicted entry.
func WithEvictCallback[V any](fn EvictCallback[V]) Option[V] {
	return func(c *ttlCache[V]) { c.evictFn = fn }
}

// NewTTL creates a TTL cache sweeping expired entries every
// cleanupInterval.
func NewTTL[V any](ttl, cleanupInterval time.Duration, opts ...Option[V]) Cache[V] {
	c := &ttlCache[V]{
		ttl:      ttl,
		items:    make(map[string]*ttlEntry[V]),
		stats:    &Statistics{},
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.sweep(cleanupInterval)
	return c
}

func (c *ttlCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	entry, exists := c.items[key]
	c.mu.RUnlock()

	if !exists {
		var zero V
		c.stats.misses.Add(1)
		return zero, false
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		if current, still := c.items[key]; still && time.Now().After(current.expiresAt) {
			delete(c.items, key)
			c.stats.evictions.Add(1)
			if c.evictFn != nil {
				defer c.evictFn(key, current.value)
			}
		}
		c.mu.Unlock()
		var zero V
		c.stats.misses.Add(1)
		return zero, false
	}
	c.stats.hits.Add(1)
	return entry.value, true
}

func (c *ttlCache[V]) Set(key string, value V) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, exists := c.items[key]
	c.items[key] = &ttlEntry[V]{value: value, expiresAt: time.Now().Add(c.ttl)}
	return !exists, nil
}

func (c *ttlCache[V]) Delete(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	c.mu.Lock()
	entry, exists := c.items[key]
	if exists {
		delete(c.items, key)
	}
	c.mu.Unlock()
	if exists && c.evictFn != nil {
		c.evictFn(key, entry.value)
	}
	return exists, nil
}

func (c *ttlCache[V]) Clear() error {
	c.mu.Lock()
	evicted := c.items
	c.items = make(map[string]*ttlEntry[V])
	c.mu.Unlock()
	if c.evictFn != nil {
		for key, entry := range evicted {
			c.evictFn(key, entry.value)
		}
	}
	return nil
}

func (c *ttlCache[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *ttlCache[V]) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := time.Now()
	keys := make([]string, 0, len(c.items))
	for key, entry := range c.items {
		if now.Before(entry.expiresAt) {
			keys = append(keys, key)
		}
	}
	return keys
}

func (c *ttlCache[V]) Stats() *Statistics {
	return c.stats
}

func (c *ttlCache[V]) Close() error {
	c.closed.Do(func() { close(c.shutdown) })
	<-c.done
	return nil
}

func (c *ttlCache[V]) sweep(interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.shutdown:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *ttlCache[V]) removeExpired() {
	now := time.Now()
	type evicted struct {
		key   string
		value V
	}
	var dropped []evicted

	c.mu.Lock()
	for key, entry := range c.items {
		if now.After(entry.expiresAt) {
			dropped = append(dropped, evicted{key, entry.value})
			delete(c.items, key)
		}
	}
	c.mu.Unlock()

	c.stats.evictions.Add(int64(len(dropped)))
	if c.evictFn != nil {
		for _, e := range dropped {
			c.evictFn(e.key, e.value)
		}
	}
}
