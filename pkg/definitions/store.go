package definitions

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/getmockd/oasstub/pkg/cache"
	"github.com/getmockd/oasstub/pkg/logging"
	"github.com/getmockd/oasstub/pkg/model"
	"github.com/getmockd/oasstub/pkg/store"
)

// ErrNoSpecification is returned by OpenAPI for definitions stored
// without a specification.
var ErrNoSpecification = fmt.Errorf("%w: no specification", store.ErrNotFound)

// Store is the caching definition store.
type Store struct {
	persistent store.PersistentStorage
	raw        *cache.Cache[*model.APIDefinitions]
	parsed     *cache.Cache[*openapi3.T]
	logger     *slog.Logger

	mu        sync.RWMutex
	listeners []func(name string)
}

// Option configures a Store.
type Option func(*storeOptions)

type storeOptions struct {
	logger    *slog.Logger
	newPolicy func() cache.Policy
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(o *storeOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCachePolicy sets the eviction policy of both caches. newPolicy is
// called once per cache since policies keep per-cache state.
func WithCachePolicy(newPolicy func() cache.Policy) Option {
	return func(o *storeOptions) {
		if newPolicy != nil {
			o.newPolicy = newPolicy
		}
	}
}

// New creates a Store reading from and writing to persistent.
func New(persistent store.PersistentStorage, opts ...Option) *Store {
	o := storeOptions{logger: logging.Nop(), newPolicy: cache.Unbounded}
	for _, opt := range opts {
		opt(&o)
	}
	s := &Store{persistent: persistent, logger: o.logger}
	s.raw = cache.New(s.loadDefinitions, cache.WithPolicy(o.newPolicy()))
	s.parsed = cache.New(s.loadOpenAPI, cache.WithPolicy(o.newPolicy()))
	return s
}

func (s *Store) loadDefinitions(ctx context.Context, name string) (*model.APIDefinitions, error) {
	return s.persistent.Get(ctx, name)
}

func (s *Store) loadOpenAPI(ctx context.Context, name string) (*openapi3.T, error) {
	defs, err := s.raw.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if defs.Specification == "" {
		return nil, ErrNoSpecification
	}
	doc, err := Parse(defs.Specification)
	if err != nil {
		return nil, withName(err, name)
	}
	return doc, nil
}

// Get returns the definitions stored under name, or store.ErrNotFound.
// The result is shared and must not be modified.
func (s *Store) Get(ctx context.Context, name string) (*model.APIDefinitions, error) {
	return s.raw.Get(ctx, name)
}

// OpenAPI returns the parsed specification of name.
func (s *Store) OpenAPI(ctx context.Context, name string) (*openapi3.T, error) {
	return s.parsed.Get(ctx, name)
}

// PluginDefinition returns the plugin effective for path and method, or
// nil if none is configured.
func (s *Store) PluginDefinition(ctx context.Context, name, path, method string) (*model.PluginDefinition, error) {
	defs, err := s.raw.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return model.MergeProperty(defs, path, method, model.PluginOf), nil
}

// Names returns every stored API name.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	return s.persistent.Names(ctx)
}

// Save stores defs under name. The caches are only invalidated when the
// write succeeds.
func (s *Store) Save(ctx context.Context, name string, defs *model.APIDefinitions) error {
	if err := store.ValidateName(name); err != nil {
		return err
	}
	if err := s.persistent.Set(ctx, name, defs); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	s.invalidate(name)
	s.logger.Debug("definitions saved", "api", name)
	return nil
}

// Delete removes name. It reports false if nothing was stored.
func (s *Store) Delete(ctx context.Context, name string) (bool, error) {
	deleted, err := s.persistent.Delete(ctx, name)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", name, err)
	}
	s.invalidate(name)
	if deleted {
		s.logger.Debug("definitions deleted", "api", name)
	}
	return deleted, nil
}

// OnInvalidate registers fn to be called with the name of every API whose
// cached state is dropped.
func (s *Store) OnInvalidate(fn func(name string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) invalidate(name string) {
	s.raw.Invalidate(name)
	s.parsed.Invalidate(name)

	s.mu.RLock()
	listeners := s.listeners
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(name)
	}
}

// CacheStats returns the counters of the raw and parsed caches.
func (s *Store) CacheStats() (raw, parsed cache.Stats) {
	return s.raw.Stats(), s.parsed.Stats()
}
