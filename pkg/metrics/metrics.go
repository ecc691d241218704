package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/getmockd/oasstub/pkg/cache"
)

const namespace = "oasstub"

// DefaultBuckets are the call duration buckets in seconds.
var DefaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// unknownAPI labels calls that matched no API.
const unknownAPI = "-"

// Collector records stub server metrics.
type Collector struct {
	registry       *prometheus.Registry
	calls          *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	pluginFailures *prometheus.CounterVec
}

// New creates a Collector with a fresh registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Total number of stub calls",
		}, []string{"api", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Duration of stub calls in seconds",
			Buckets:   DefaultBuckets,
		}, []string{"api", "method"}),
		pluginFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plugin_failures_total",
			Help:      "Total number of plugins that failed to compile or run",
		}, []string{"api"}),
	}
	c.registry.MustRegister(
		c.calls,
		c.duration,
		c.pluginFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// ObserveCall counts a call and observes its duration.
func (c *Collector) ObserveCall(api, method string, status int, elapsed time.Duration) {
	if api == "" {
		api = unknownAPI
	}
	c.calls.WithLabelValues(api, method, strconv.Itoa(status)).Inc()
	c.duration.WithLabelValues(api, method).Observe(elapsed.Seconds())
}

// PluginFailed counts a plugin failure.
func (c *Collector) PluginFailed(api string, _ error) {
	c.pluginFailures.WithLabelValues(api).Inc()
}

// WatchCaches exports the counters returned by stats for every named
// cache. stats is called on every scrape.
func (c *Collector) WatchCaches(stats func() map[string]cache.Stats) error {
	return c.registry.Register(&cacheCollector{stats: stats})
}

// WatchPending exports the number of pending delays returned by pending.
func (c *Collector) WatchPending(pending func() int64) error {
	return c.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "delays_pending",
		Help:      "Number of delays waiting on the scheduler",
	}, func() float64 { return float64(pending()) }))
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

var (
	cacheHitsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "cache", "hits_total"),
		"Total number of definition cache hits", []string{"cache"}, nil)
	cacheMissesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "cache", "misses_total"),
		"Total number of definition cache misses", []string{"cache"}, nil)
	cacheEvictionsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "cache", "evictions_total"),
		"Total number of definition cache evictions", []string{"cache"}, nil)
)

type cacheCollector struct {
	stats func() map[string]cache.Stats
}

func (cc *cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- cacheHitsDesc
	ch <- cacheMissesDesc
	ch <- cacheEvictionsDesc
}

func (cc *cacheCollector) Collect(ch chan<- prometheus.Metric) {
	for name, s := range cc.stats() {
		ch <- prometheus.MustNewConstMetric(cacheHitsDesc, prometheus.CounterValue, float64(s.Hits), name)
		ch <- prometheus.MustNewConstMetric(cacheMissesDesc, prometheus.CounterValue, float64(s.Misses), name)
		ch <- prometheus.MustNewConstMetric(cacheEvictionsDesc, prometheus.CounterValue, float64(s.Evictions), name)
	}
}
