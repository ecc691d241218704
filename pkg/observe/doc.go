// Package observe keeps per-API call metrics and request/response records
// in session storage.
//
// Metrics of every API live under one session key (MetricsKey) holding a
// map from API name to *model.Metrics. Updates are read-modify-write
// without synchronisation, so under concurrent calls the last writer wins
// and a metric may be lost. Records are stored per API under
// RecordsKey(name) with the same semantics.
package observe
