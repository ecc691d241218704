// Package metrics exposes Prometheus metrics of the stub server.
//
// A Collector owns its own registry with these metrics:
//
//   - oasstub_calls_total: stub calls (labels: api, method, status)
//   - oasstub_call_duration_seconds: call latency including delays (labels: api, method)
//   - oasstub_plugin_failures_total: plugins that failed to compile or run (labels: api)
//   - oasstub_cache_hits_total, oasstub_cache_misses_total,
//     oasstub_cache_evictions_total: definition cache counters (labels: cache)
//   - oasstub_delays_pending: delays waiting on the scheduler
//
// plus the Go runtime and process collectors. Collector implements
// engine.Telemetry.
//
//	c := metrics.New()
//	orch := engine.NewOrchestrator(defs, plugins, delays, session, engine.WithTelemetry(c))
//	mux.Handle("GET /metrics", c.Handler())
package metrics
