package model

import (
	"github.com/getmockd/oasstub/internal/matching"
)

// MergeProperty resolves one property for a request path and method.
//
// The definition-level value is overridden by the value of the path
// configuration matching path, which in turn is overridden by the value of
// the method configuration inside it. When no configuration matches path
// the definition-level value is returned unchanged.
func MergeProperty[R Mergeable[R]](defs *APIDefinitions, path, method string, extract func(*CommonConfiguration) R) R {
	if defs == nil {
		var zero R
		return zero
	}
	root := extract(&defs.CommonConfiguration)
	cfg, ok := matching.FindMatchingPathValue(path, defs.Configurations)
	if !ok || cfg == nil {
		return root
	}
	merged := root.Merge(extract(&cfg.CommonConfiguration))
	if m := cfg.Method(method); m != nil {
		merged = merged.Merge(extract(m))
	}
	return merged
}

// Effective returns every property of defs merged for path and method.
func (defs *APIDefinitions) Effective(path, method string) *CommonConfiguration {
	return MergeProperty(defs, path, method, func(c *CommonConfiguration) *CommonConfiguration { return c })
}

// HeadersOf extracts the headers property.
func HeadersOf(c *CommonConfiguration) *Headers { return c.Headers }

// OptionsOf extracts the options property.
func OptionsOf(c *CommonConfiguration) *Options { return c.Options }

// DataOf extracts the data property.
func DataOf(c *CommonConfiguration) Data { return c.Data }

// DelayOf extracts the delay property.
func DelayOf(c *CommonConfiguration) *Delay { return c.Delay }

// PluginOf extracts the plugin property.
func PluginOf(c *CommonConfiguration) *PluginDefinition { return c.Plugin }
