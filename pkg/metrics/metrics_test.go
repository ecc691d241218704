package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/oasstub/pkg/cache"
)

func TestCollector_ObserveCall(t *testing.T) {
	t.Parallel()

	c := New()
	c.ObserveCall("petstore", "GET", 200, 10*time.Millisecond)
	c.ObserveCall("petstore", "GET", 200, 20*time.Millisecond)
	c.ObserveCall("petstore", "GET", 404, time.Millisecond)
	c.ObserveCall("", "GET", 404, time.Millisecond)
	c.PluginFailed("petstore", errors.New("boom"))

	assert.InDelta(t, 2, testutil.ToFloat64(c.calls.WithLabelValues("petstore", "GET", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.calls.WithLabelValues("petstore", "GET", "404")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.calls.WithLabelValues(unknownAPI, "GET", "404")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.pluginFailures.WithLabelValues("petstore")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(c.duration))
}

func TestCollector_Handler(t *testing.T) {
	t.Parallel()

	c := New()
	c.ObserveCall("petstore", "GET", 200, time.Millisecond)
	require.NoError(t, c.WatchCaches(func() map[string]cache.Stats {
		return map[string]cache.Stats{"raw": {Hits: 3, Misses: 1}}
	}))
	require.NoError(t, c.WatchPending(func() int64 { return 2 }))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, want := range []string{
		`oasstub_calls_total{api="petstore",method="GET",status="200"} 1`,
		`oasstub_cache_hits_total{cache="raw"} 3`,
		`oasstub_cache_misses_total{cache="raw"} 1`,
		`oasstub_delays_pending 2`,
		`go_goroutines`,
	} {
		assert.True(t, strings.Contains(body, want), "missing %s", want)
	}
}
