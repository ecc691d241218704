package model

import (
	"fmt"
	"strings"
	"time"
)

// APIDefinitions is everything registered under one API name.
type APIDefinitions struct {
	// Specification is the raw OpenAPI document (YAML or JSON).
	Specification string `json:"specification,omitempty" yaml:"specification,omitempty"`

	// CommonConfiguration holds the definition-level defaults.
	CommonConfiguration `yaml:",inline"`

	// Configurations holds per-path overrides keyed by path template.
	Configurations map[string]*APIConfiguration `json:"configurations,omitempty" yaml:"configurations,omitempty"`
}

// CommonConfiguration is the set of properties every configuration level carries.
type CommonConfiguration struct {
	Headers *Headers          `json:"headers,omitempty" yaml:"headers,omitempty"`
	Options *Options          `json:"options,omitempty" yaml:"options,omitempty"`
	Data    Data              `json:"data" yaml:"data,omitempty"`
	Delay   *Delay            `json:"delay,omitempty" yaml:"delay,omitempty"`
	Plugin  *PluginDefinition `json:"plugin,omitempty" yaml:"plugin,omitempty"`
}

// APIConfiguration overrides the definition-level defaults for one path.
type APIConfiguration struct {
	CommonConfiguration `yaml:",inline"`

	// Methods overrides the path configuration for a single HTTP method.
	Methods map[string]*CommonConfiguration `json:"methods,omitempty" yaml:"methods,omitempty"`
}

// Method returns the configuration for the HTTP method, if any.
func (c *APIConfiguration) Method(method string) *CommonConfiguration {
	if c == nil || method == "" || c.Methods == nil {
		return nil
	}
	if m, ok := c.Methods[method]; ok {
		return m
	}
	for k, m := range c.Methods {
		if strings.EqualFold(k, method) {
			return m
		}
	}
	return nil
}

// Headers are static headers added to requests and responses.
// Keys are case-insensitive.
type Headers struct {
	Request  map[string][]string `json:"request" yaml:"request,omitempty"`
	Response map[string][]string `json:"response" yaml:"response,omitempty"`
}

// Options toggles engine behaviour for an API or a path.
type Options struct {
	// ShouldValidate enables request validation. Defaults to true.
	ShouldValidate *bool `json:"shouldValidate,omitempty" yaml:"shouldValidate,omitempty"`
	// ShouldMonitor enables metrics collection. Defaults to true.
	ShouldMonitor *bool `json:"shouldMonitor,omitempty" yaml:"shouldMonitor,omitempty"`
	// ShouldRecord enables request/response recording. Defaults to false.
	ShouldRecord *bool    `json:"shouldRecord,omitempty" yaml:"shouldRecord,omitempty"`
	Latency      *Latency `json:"latency,omitempty" yaml:"latency,omitempty"`
	Failure      *Failure `json:"failure,omitempty" yaml:"failure,omitempty"`
}

// Validate reports whether validation is enabled. A nil receiver means defaults.
func (o *Options) Validate() bool {
	if o == nil || o.ShouldValidate == nil {
		return true
	}
	return *o.ShouldValidate
}

// Monitor reports whether metrics are collected.
func (o *Options) Monitor() bool {
	if o == nil || o.ShouldMonitor == nil {
		return true
	}
	return *o.ShouldMonitor
}

// Record reports whether requests are recorded.
func (o *Options) Record() bool {
	if o == nil || o.ShouldRecord == nil {
		return false
	}
	return *o.ShouldRecord
}

// Latency slows the response body down: each byte is written after Interval.
type Latency struct {
	Interval int64        `json:"interval" yaml:"interval"`
	Unit     DurationUnit `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// Duration returns the per-byte interval.
func (l *Latency) Duration() time.Duration {
	if l == nil {
		return 0
	}
	return l.Unit.Duration(l.Interval)
}

// FailureType selects how a simulated failure is produced.
type FailureType string

// Failure types.
const (
	// FailureProtocol writes a malformed HTTP response.
	FailureProtocol FailureType = "protocol"
	// FailureHTTP responds with a configured status code.
	FailureHTTP FailureType = "http"
	// FailureConnection closes the connection without a response.
	FailureConnection FailureType = "connection"
)

// Failure makes every matching request fail.
type Failure struct {
	Type   FailureType `json:"type" yaml:"type"`
	Status int         `json:"status,omitempty" yaml:"status,omitempty"`
}

// DelayType selects the delay policy.
type DelayType string

// Delay policies.
const (
	DelayFixed  DelayType = "fixed"
	DelayRandom DelayType = "random"
)

// Delay is the target total latency of a response.
type Delay struct {
	Type DelayType `json:"type" yaml:"type"`
	// Duration is the target of a fixed delay.
	Duration int64 `json:"duration,omitempty" yaml:"duration,omitempty"`
	// Min and Max bound a random delay, both inclusive.
	Min  int64        `json:"min,omitempty" yaml:"min,omitempty"`
	Max  int64        `json:"max,omitempty" yaml:"max,omitempty"`
	Unit DurationUnit `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// Validate checks the delay policy is well formed.
func (d *Delay) Validate() error {
	if d == nil {
		return nil
	}
	if _, err := ParseDurationUnit(string(d.Unit)); err != nil {
		return err
	}
	switch d.Type {
	case DelayFixed, "":
		if d.Duration < 0 {
			return fmt.Errorf("delay duration must not be negative: %d", d.Duration)
		}
	case DelayRandom:
		if d.Min < 0 || d.Max < d.Min {
			return fmt.Errorf("invalid random delay range [%d, %d]", d.Min, d.Max)
		}
	default:
		return fmt.Errorf("unknown delay type %q", d.Type)
	}
	return nil
}

// Data holds arbitrary stub data keyed by label, readable by plugins.
type Data map[string]any

// PluginType identifies the language of a plugin script.
type PluginType string

// Supported plugin languages.
const (
	PluginExpr PluginType = "expr"
	PluginCEL  PluginType = "cel"
)

// UnmarshalText accepts plugin types case-insensitively.
func (t *PluginType) UnmarshalText(b []byte) error {
	switch PluginType(strings.ToLower(string(b))) {
	case PluginExpr:
		*t = PluginExpr
	case PluginCEL:
		*t = PluginCEL
	default:
		return fmt.Errorf("unknown plugin type %q", string(b))
	}
	return nil
}

// PluginDefinition is a script that customizes responses.
type PluginDefinition struct {
	Type   PluginType `json:"type" yaml:"type"`
	Script string     `json:"script" yaml:"script"`
}

// DurationUnit is the unit of delay and latency amounts.
type DurationUnit string

// Duration units. The empty unit means milliseconds.
const (
	UnitNanoseconds  DurationUnit = "ns"
	UnitMicroseconds DurationUnit = "us"
	UnitMilliseconds DurationUnit = "ms"
	UnitSeconds      DurationUnit = "s"
	UnitMinutes      DurationUnit = "m"
)

// ParseDurationUnit parses a unit name. Long names ("seconds") are accepted.
func ParseDurationUnit(s string) (DurationUnit, error) {
	switch strings.ToLower(s) {
	case "", "ms", "millis", "milliseconds":
		return UnitMilliseconds, nil
	case "ns", "nanos", "nanoseconds":
		return UnitNanoseconds, nil
	case "us", "micros", "microseconds":
		return UnitMicroseconds, nil
	case "s", "sec", "seconds":
		return UnitSeconds, nil
	case "m", "min", "minutes":
		return UnitMinutes, nil
	default:
		return "", fmt.Errorf("unknown duration unit %q", s)
	}
}

// Duration converts n units to a time.Duration.
func (u DurationUnit) Duration(n int64) time.Duration {
	unit, err := ParseDurationUnit(string(u))
	if err != nil {
		unit = UnitMilliseconds
	}
	switch unit {
	case UnitNanoseconds:
		return time.Duration(n)
	case UnitMicroseconds:
		return time.Duration(n) * time.Microsecond
	case UnitSeconds:
		return time.Duration(n) * time.Second
	case UnitMinutes:
		return time.Duration(n) * time.Minute
	default:
		return time.Duration(n) * time.Millisecond
	}
}
