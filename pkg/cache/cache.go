package cache

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader loads the value of key on a cache miss.
type Loader[V any] func(ctx context.Context, key string) (V, error)

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// Stats are cumulative counters of a Cache.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Cache is a generational load-through cache keyed by string.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	gens    map[string]uint64
	waits   map[string]int
	epoch   uint64
	policy  Policy
	loader  Loader[V]
	group   singleflight.Group
	now     func() time.Time

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	policy Policy
	now    func() time.Time
}

// WithPolicy sets the eviction policy. The default is Unbounded.
func WithPolicy(p Policy) Option {
	return func(o *options) {
		if p != nil {
			o.policy = p
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// New creates a cache that loads misses with loader.
func New[V any](loader Loader[V], opts ...Option) *Cache[V] {
	o := options{policy: Unbounded(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		entries: make(map[string]entry[V]),
		gens:    make(map[string]uint64),
		waits:   make(map[string]int),
		policy:  o.policy,
		loader:  loader,
		now:     o.now,
	}
}

// Get returns the cached value of key, loading it on a miss.
// A cancelled ctx abandons the wait; the shared load carries on and may
// still populate the cache.
func (c *Cache[V]) Get(ctx context.Context, key string) (V, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		if !c.policy.Expired(e.storedAt, c.now()) {
			c.policy.Accessed(key)
			c.mu.Unlock()
			c.hits.Add(1)
			return e.value, nil
		}
		c.removeLocked(key)
	}
	epoch, gen := c.epoch, c.gens[key]
	c.waits[key]++
	c.mu.Unlock()
	c.misses.Add(1)

	flight := key + "\x00" + strconv.FormatUint(epoch, 10) + "." + strconv.FormatUint(gen, 10)
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(flight, func() (any, error) {
		v, err := c.loader(loadCtx, key)
		if err != nil {
			return nil, err
		}
		c.storeIfCurrent(key, v, epoch, gen)
		return v, nil
	})

	var zero V
	select {
	case <-ctx.Done():
		go func() {
			<-ch
			c.release(key)
		}()
		return zero, ctx.Err()
	case r := <-ch:
		c.release(key)
		if r.Err != nil {
			return zero, r.Err
		}
		v, _ := r.Val.(V)
		return v, nil
	}
}

// release ends a wait on a load of key. The generation of key is only
// needed while some load of it is in flight.
func (c *Cache[V]) release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.waits[key]--; c.waits[key] > 0 {
		return
	}
	delete(c.waits, key)
	delete(c.gens, key)
}

func (c *Cache[V]) storeIfCurrent(key string, v V, epoch, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch || c.gens[key] != gen {
		return
	}
	c.entries[key] = entry[V]{value: v, storedAt: c.now()}
	for _, k := range c.policy.Stored(key) {
		if k != key {
			c.removeLocked(k)
		}
	}
}

// Peek returns the cached value of key without loading it.
func (c *Cache[V]) Peek(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.policy.Expired(e.storedAt, c.now()) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Invalidate drops key and discards any load of key still in flight.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.waits[key] > 0 {
		c.gens[key]++
	}
	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.policy.Removed(key)
	}
}

// InvalidateAll drops every entry and discards every load in flight.
func (c *Cache[V]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	for k := range c.entries {
		c.policy.Removed(k)
	}
	c.entries = make(map[string]entry[V])
	c.gens = make(map[string]uint64)
}

// Len returns the number of cached entries, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns the hit, miss and eviction counters.
func (c *Cache[V]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

func (c *Cache[V]) removeLocked(key string) {
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	c.policy.Removed(key)
	c.evictions.Add(1)
}
