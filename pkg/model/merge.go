package model

import (
	"net/http"
	"slices"
	"strings"
)

// Mergeable is a property whose values can be merged across configuration
// levels. Merge returns the receiver overridden by other.
type Mergeable[T any] interface {
	Merge(other T) T
}

// Merge overrides h with other. Header names are compared case-insensitively.
func (h *Headers) Merge(other *Headers) *Headers {
	if other == nil {
		return h
	}
	if h == nil {
		return other
	}
	return &Headers{
		Request:  MergeHeaderValues(h.Request, other.Request),
		Response: MergeHeaderValues(h.Response, other.Response),
	}
}

// MergeHeaderValues returns the union of base and over, over winning on
// names present in both. A nil over keeps base; an empty over clears it.
func MergeHeaderValues(base, over map[string][]string) map[string][]string {
	if over == nil {
		return base
	}
	result := make(map[string][]string, len(base)+len(over))
	if len(over) == 0 {
		return result
	}
	for k, v := range base {
		result[http.CanonicalHeaderKey(k)] = v
	}
	for k, v := range over {
		result[http.CanonicalHeaderKey(k)] = v
	}
	return result
}

// SortedHeaderNames returns the names of h in case-insensitive order.
func SortedHeaderNames(h map[string][]string) []string {
	names := make([]string, 0, len(h))
	for k := range h {
		names = append(names, k)
	}
	slices.SortFunc(names, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return names
}

// Merge overrides o field by field with other.
func (o *Options) Merge(other *Options) *Options {
	if other == nil {
		return o
	}
	if o == nil {
		return other
	}
	merged := *o
	if other.ShouldValidate != nil {
		merged.ShouldValidate = other.ShouldValidate
	}
	if other.ShouldMonitor != nil {
		merged.ShouldMonitor = other.ShouldMonitor
	}
	if other.ShouldRecord != nil {
		merged.ShouldRecord = other.ShouldRecord
	}
	if other.Latency != nil {
		merged.Latency = other.Latency
	}
	if other.Failure != nil {
		merged.Failure = other.Failure
	}
	return &merged
}

// Merge returns the union of d and other, other winning on shared labels.
func (d Data) Merge(other Data) Data {
	if other == nil {
		return d
	}
	result := make(Data, len(d)+len(other))
	if len(other) == 0 {
		return result
	}
	for k, v := range d {
		result[k] = v
	}
	for k, v := range other {
		result[k] = v
	}
	return result
}

// Merge replaces d with other when other is set. Delay policies are not
// merged field-wise.
func (d *Delay) Merge(other *Delay) *Delay {
	if other != nil {
		return other
	}
	return d
}

// Merge replaces p with other when other is set.
func (p *PluginDefinition) Merge(other *PluginDefinition) *PluginDefinition {
	if other != nil {
		return other
	}
	return p
}

// Merge overrides every property of c with other.
func (c *CommonConfiguration) Merge(other *CommonConfiguration) *CommonConfiguration {
	if other == nil {
		return c
	}
	if c == nil {
		return other
	}
	return &CommonConfiguration{
		Headers: c.Headers.Merge(other.Headers),
		Options: c.Options.Merge(other.Options),
		Data:    c.Data.Merge(other.Data),
		Delay:   c.Delay.Merge(other.Delay),
		Plugin:  c.Plugin.Merge(other.Plugin),
	}
}
