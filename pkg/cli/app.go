package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/getmockd/oasstub/pkg/admin"
	"github.com/getmockd/oasstub/pkg/cache"
	"github.com/getmockd/oasstub/pkg/config"
	"github.com/getmockd/oasstub/pkg/definitions"
	"github.com/getmockd/oasstub/pkg/delay"
	"github.com/getmockd/oasstub/pkg/engine"
	"github.com/getmockd/oasstub/pkg/httputil"
	"github.com/getmockd/oasstub/pkg/logging"
	"github.com/getmockd/oasstub/pkg/metrics"
	"github.com/getmockd/oasstub/pkg/plugin"
)

// App is an assembled stub server.
type App struct {
	cfg       *config.Config
	log       *slog.Logger
	storage   *storage
	scheduler *delay.Scheduler
	registry  *engine.Registry
	collector *metrics.Collector
	handler   http.Handler
	server    *engine.Server
}

// NewApp opens the storage backends of cfg and wires every component.
// Close releases what NewApp opened.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	st, err := openStorage(ctx, cfg.Storage, logging.Component(logger, "storage"))
	if err != nil {
		return nil, err
	}

	var defOpts []definitions.Option
	defOpts = append(defOpts, definitions.WithLogger(logging.Component(logger, "definitions")))
	if newPolicy := cachePolicy(cfg.Engine); newPolicy != nil {
		defOpts = append(defOpts, definitions.WithCachePolicy(newPolicy))
	}
	defs := definitions.New(st.persistent, defOpts...)

	plugins, err := plugin.NewEngine(plugin.WithLogger(logging.Component(logger, "plugin")))
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("plugin engine: %w", err)
	}
	scheduler := delay.NewScheduler(cfg.Engine.DelayWorkers)
	collector := metrics.New()

	orch := engine.NewOrchestrator(defs, plugins, delay.NewService(defs, scheduler), st.session,
		engine.WithLogger(logging.Component(logger, "engine")),
		engine.WithTelemetry(collector),
	)
	registry := engine.NewRegistry(defs, plugins, logging.Component(logger, "registry"))

	a := &App{
		cfg:       cfg,
		log:       logger,
		storage:   st,
		scheduler: scheduler,
		registry:  registry,
		collector: collector,
	}
	if err := errors.Join(
		collector.WatchCaches(func() map[string]cache.Stats {
			raw, parsed := defs.CacheStats()
			return map[string]cache.Stats{"definitions": raw, "specifications": parsed}
		}),
		collector.WatchPending(scheduler.Pending),
	); err != nil {
		_ = a.Close()
		return nil, err
	}

	a.handler = a.routes(orch)
	a.server = engine.NewServer(engine.ServerConfig{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, a.handler, logging.Component(logger, "server"))
	return a, nil
}

// routes mounts the stub handler, the admin API and the metrics endpoint.
func (a *App) routes(orch *engine.Orchestrator) http.Handler {
	mux := http.NewServeMux()
	stubPrefix := withSlash(a.cfg.Stub.Prefix)
	mux.Handle(stubPrefix, engine.NewHandler(orch, a.scheduler, engine.HandlerConfig{
		Prefix:       stubPrefix,
		MaxBodyBytes: a.cfg.Stub.MaxBodyBytes,
		Timeout:      a.cfg.Stub.RequestTimeout,
	}, logging.Component(a.log, "stub")))

	if a.cfg.Admin.Enabled {
		api := admin.New(a.registry, orch,
			admin.WithLogger(logging.Component(a.log, "admin")),
			admin.WithMaxBodyBytes(a.cfg.Stub.MaxBodyBytes),
			admin.WithAPIKey(a.cfg.Admin.APIKey),
		)
		prefix := strings.TrimSuffix(a.cfg.Admin.Prefix, "/")
		mux.Handle(prefix+"/", http.StripPrefix(prefix, api))
	}
	if a.cfg.Metrics.Enabled {
		mux.Handle(a.cfg.Metrics.Path, a.collector.Handler())
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteNotFound(w, "not_found", "no route")
	})
	return mux
}

func withSlash(prefix string) string {
	if strings.HasSuffix(prefix, "/") {
		return prefix
	}
	return prefix + "/"
}

// cachePolicy builds the definition cache policy. Nil means unbounded.
func cachePolicy(cfg config.EngineConfig) func() cache.Policy {
	switch {
	case cfg.CacheMaxEntries > 0 && cfg.CacheTTL > 0:
		return func() cache.Policy { return cache.Chain(cache.LRU(cfg.CacheMaxEntries), cache.TTL(cfg.CacheTTL)) }
	case cfg.CacheMaxEntries > 0:
		return func() cache.Policy { return cache.LRU(cfg.CacheMaxEntries) }
	case cfg.CacheTTL > 0:
		return func() cache.Policy { return cache.TTL(cfg.CacheTTL) }
	}
	return nil
}

// Handler returns the composed HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Registry returns the API registry.
func (a *App) Registry() *engine.Registry { return a.registry }

// Server returns the HTTP server.
func (a *App) Server() *engine.Server { return a.server }

// Run starts the server and blocks until ctx is done or the server fails.
func (a *App) Run(ctx context.Context) error {
	if err := a.server.Start(); err != nil {
		return err
	}
	a.log.Info("oasstub started",
		"addr", a.server.Addr().String(),
		"stub", a.cfg.Stub.Prefix,
		"admin", a.cfg.Admin.Enabled,
		"metrics", a.cfg.Metrics.Enabled,
	)
	select {
	case <-ctx.Done():
		a.log.Info("shutting down")
		return a.server.Stop()
	case err := <-a.server.Done():
		return err
	}
}

// Close stops the delay scheduler and closes the storage backends.
func (a *App) Close() error {
	a.scheduler.Close()
	return a.storage.Close()
}
