// Package model defines the API definitions served by the stub engine and
// the telemetry it produces.
//
// Definitions form three levels of configuration: the definition-level
// defaults, per-path configurations and per-method configurations inside a
// path. MergeProperty resolves the effective value of one property for a
// request by merging the levels field by field, the more specific level
// winning. A nil field is absent and falls back to the less specific level;
// a non-nil empty map is an explicit empty value and replaces it.
package model
