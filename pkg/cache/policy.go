package cache

import (
	"container/list"
	"time"
)

// Policy decides which entries leave the cache. A Cache calls every method
// while holding its lock, so implementations need no locking of their own.
type Policy interface {
	// Stored is called after key is stored and returns keys to evict.
	Stored(key string) []string
	// Accessed is called on every hit.
	Accessed(key string)
	// Removed is called when key leaves the cache.
	Removed(key string)
	// Expired reports whether an entry stored at storedAt is stale.
	Expired(storedAt, now time.Time) bool
}

type unbounded struct{}

// Unbounded never evicts.
func Unbounded() Policy { return unbounded{} }

func (unbounded) Stored(string) []string { return nil }
func (unbounded) Accessed(string) {}
func (unbounded) Removed(string) {}
func (unbounded) Expired(time.Time, time.Time) bool { return false }

type ttl struct {
	unbounded
	d time.Duration
}

// TTL expires entries d after they were stored.
func TTL(d time.Duration) Policy { return ttl{d: d} }

func (p ttl) Expired(storedAt, now time.Time) bool {
	return p.d > 0 && now.Sub(storedAt) >= p.d
}

type lru struct {
	max   int
	order *list.List
	elems map[string]*list.Element
}

// LRU bounds the cache to max entries, evicting the least recently used.
// A max of zero or less means unbounded.
func LRU(max int) Policy {
	if max <= 0 {
		return Unbounded()
	}
	return &lru{max: max, order: list.New(), elems: make(map[string]*list.Element)}
}

func (p *lru) Stored(key string) []string {
	if e, ok := p.elems[key]; ok {
		p.order.MoveToFront(e)
	} else {
		p.elems[key] = p.order.PushFront(key)
	}
	var evict []string
	for p.order.Len() > p.max {
		back := p.order.Back()
		k := back.Value.(string)
		p.order.Remove(back)
		delete(p.elems, k)
		evict = append(evict, k)
	}
	return evict
}

func (p *lru) Accessed(key string) {
	if e, ok := p.elems[key]; ok {
		p.order.MoveToFront(e)
	}
}

func (p *lru) Removed(key string) {
	if e, ok := p.elems[key]; ok {
		p.order.Remove(e)
		delete(p.elems, key)
	}
}

func (p *lru) Expired(time.Time, time.Time) bool { return false }

type chain []Policy

// Chain combines policies: an entry is evicted or expired if any policy says so.
func Chain(policies ...Policy) Policy { return chain(policies) }

func (c chain) Stored(key string) []string {
	var evict []string
	for _, p := range c {
		evict = append(evict, p.Stored(key)...)
	}
	return evict
}

func (c chain) Accessed(key string) {
	for _, p := range c {
		p.Accessed(key)
	}
}

func (c chain) Removed(key string) {
	for _, p := range c {
		p.Removed(key)
	}
}

func (c chain) Expired(storedAt, now time.Time) bool {
	for _, p := range c {
		if p.Expired(storedAt, now) {
			return true
		}
	}
	return false
}
