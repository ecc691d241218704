package admin

import (
	"crypto/sha256"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/getmockd/oasstub/pkg/engine"
	"github.com/getmockd/oasstub/pkg/httputil"
	"github.com/getmockd/oasstub/pkg/logging"
	"github.com/getmockd/oasstub/pkg/observe"
)

// APIKeyHeader carries the admin API key.
const APIKeyHeader = "X-API-Key"

// DefaultMaxBodyBytes limits admin request bodies.
const DefaultMaxBodyBytes = 10 << 20

// API serves the admin endpoints.
type API struct {
	registry  *engine.Registry
	observer  *observe.Observer
	recorder  *observe.Recorder
	log       *slog.Logger
	maxBody   int64
	keyHash   []byte
	startTime time.Time
	mux       *http.ServeMux
}

// Option configures an API.
type Option func(*API)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		if logger != nil {
			a.log = logger
		}
	}
}

// WithMaxBodyBytes limits request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(a *API) {
		if n > 0 {
			a.maxBody = n
		}
	}
}

// WithAPIKey requires every request but GET /health to carry key in the
// X-API-Key header. An empty key disables the check.
func WithAPIKey(key string) Option {
	return func(a *API) {
		if key == "" {
			a.keyHash = nil
			return
		}
		sum := sha256.Sum256([]byte(key))
		a.keyHash = sum[:]
	}
}

// New creates the admin API over registry and the observer and recorder of
// orch.
func New(registry *engine.Registry, orch *engine.Orchestrator, opts ...Option) *API {
	a := &API{
		registry:  registry,
		observer:  orch.Observer(),
		recorder:  orch.Recorder(),
		log:       logging.Nop(),
		maxBody:   DefaultMaxBodyBytes,
		startTime: time.Now(),
		mux:       http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.registerRoutes(a.mux)
	return a
}

// ServeHTTP implements http.Handler.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if a.keyHash != nil && r.URL.Path != "/health" && !a.validKey(r.Header.Get(APIKeyHeader)) {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized", "a valid "+APIKeyHeader+" header is required")
		return
	}
	a.mux.ServeHTTP(w, r)
}

func (a *API) validKey(key string) bool {
	if key == "" {
		return false
	}
	sum := sha256.Sum256([]byte(key))
	return subtle.ConstantTimeCompare(sum[:], a.keyHash) == 1
}

func (a *API) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", a.handleHealth)

	// Observation
	mux.HandleFunc("GET /metrics", a.handleAllMetrics)
	mux.HandleFunc("GET /metrics/{name}", a.handleMetrics)
	mux.HandleFunc("DELETE /metrics", a.handleClearMetrics)
	mux.HandleFunc("GET /records/{name}", a.handleRecords)
	mux.HandleFunc("DELETE /records/{name}", a.handleClearRecords)
	mux.HandleFunc("DELETE /records", a.handleClearAllRecords)

	// Definitions
	mux.HandleFunc("GET /{$}", a.handleListAPIs)
	mux.HandleFunc("GET /{name}", a.handleGetDefinitions)
	mux.HandleFunc("PUT /{name}", a.handlePutDefinitions)
	mux.HandleFunc("DELETE /{name}", a.handleDeleteDefinitions)

	// Properties
	mux.HandleFunc("GET /{name}/{property}", a.handleGetProperty)
	mux.HandleFunc("PUT /{name}/{property}", a.handlePutProperty)
	mux.HandleFunc("DELETE /{name}/{property}", a.handleDeleteProperty)
	mux.HandleFunc("GET /{name}/configurations/{property}", a.handleGetPathProperty)
	mux.HandleFunc("PUT /{name}/configurations/{property}", a.handlePutPathProperty)
	mux.HandleFunc("DELETE /{name}/configurations/{property}", a.handleDeletePathProperty)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Uptime int64  `json:"uptime"`
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteOK(w, HealthResponse{Status: "ok", Uptime: int64(time.Since(a.startTime).Seconds())})
}
