// Package cache provides a concurrency-safe, load-through cache with
// explicit invalidation.
//
// A miss calls the loader; concurrent misses for one key share a single
// load. Every key carries a generation that Invalidate advances, and a load
// only stores its result if the generation it started under is still
// current. A reader that raced with a writer therefore never re-populates
// the cache with the value the writer replaced.
//
// Loader errors are returned to the caller and never cached. Eviction is
// delegated to a Policy (unbounded, LRU, TTL or a chain of them);
// correctness never depends on eviction happening.
package cache
