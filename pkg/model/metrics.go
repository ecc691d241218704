package model

import (
	"time"

	"github.com/getmockd/oasstub/internal/matching"
)

// Metric describes one completed call.
type Metric struct {
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
	Path      string        `json:"path"`
	Method    string        `json:"httpMethod"`
	Status    int           `json:"httpStatus"`
	Error     string        `json:"error,omitempty"`
}

// MetricList is an ordered sequence of metrics.
type MetricList []Metric

// Count returns the number of metrics.
func (l MetricList) Count() int { return len(l) }

// ByStatus returns the metrics with the given status code.
func (l MetricList) ByStatus(status int) MetricList {
	return l.Filter(func(m Metric) bool { return m.Status == status })
}

// ByMethod returns the metrics with the given HTTP method.
func (l MetricList) ByMethod(method string) MetricList {
	return l.Filter(func(m Metric) bool { return m.Method == method })
}

// Filter returns the metrics for which keep returns true.
func (l MetricList) Filter(keep func(Metric) bool) MetricList {
	result := MetricList{}
	for _, m := range l {
		if keep(m) {
			result = append(result, m)
		}
	}
	return result
}

// Metrics holds the metrics of one API grouped by request path.
type Metrics struct {
	Paths map[string]MetricList `json:"metrics"`
}

// Add appends metric under path.
func (m *Metrics) Add(path string, metric Metric) *Metrics {
	if m.Paths == nil {
		m.Paths = make(map[string]MetricList)
	}
	m.Paths[path] = append(m.Paths[path], metric)
	return m
}

// ByPath returns the metrics recorded for the exact request path.
func (m *Metrics) ByPath(path string) MetricList {
	if m == nil {
		return MetricList{}
	}
	if l, ok := m.Paths[path]; ok {
		return l
	}
	return MetricList{}
}

// ByTemplate returns the metrics of every path matching template, e.g.
// "/v1/pets/{id}".
func (m *Metrics) ByTemplate(template string) MetricList {
	return m.Filter(func(metric Metric) bool { return matching.MatchTemplate(template, metric.Path) })
}

// ByStatus returns the metrics of every path with the given status code.
func (m *Metrics) ByStatus(status int) MetricList {
	return m.All().ByStatus(status)
}

// Filter returns the metrics of every path for which keep returns true.
func (m *Metrics) Filter(keep func(Metric) bool) MetricList {
	return m.All().Filter(keep)
}

// All returns every metric, grouped by path in sorted path order.
func (m *Metrics) All() MetricList {
	result := MetricList{}
	if m == nil {
		return result
	}
	for _, p := range matching.Keys(m.Paths) {
		result = append(result, m.Paths[p]...)
	}
	return result
}

// Count returns the number of metrics across all paths.
func (m *Metrics) Count() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, l := range m.Paths {
		n += len(l)
	}
	return n
}
