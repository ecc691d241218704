// Package delay makes responses meet a configured minimum latency.
//
// A delay policy names the total time a response should take. Compute
// subtracts the time already spent producing the response and returns what
// is left to wait, never a negative amount. The wait itself is run by a
// Scheduler, a fixed pool of workers shared by the whole process, and is
// abandoned when the caller's context is done.
//
// Results are wrapped uniformly whatever their shape: an already computed
// Value, a Future computed in the background, a Sync computation run on
// Await, or a stream of elements (DelayStream).
package delay
