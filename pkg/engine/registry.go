package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/getmockd/oasstub/pkg/definitions"
	"github.com/getmockd/oasstub/pkg/logging"
	"github.com/getmockd/oasstub/pkg/model"
	"github.com/getmockd/oasstub/pkg/plugin"
	"github.com/getmockd/oasstub/pkg/store"
)

// Registry registers API definitions. Definitions are checked before they
// are stored: the specification must parse, configuration keys must match
// its paths and every plugin must compile.
type Registry struct {
	defs    *definitions.Store
	plugins *plugin.Engine
	logger  *slog.Logger
}

// NewRegistry creates a Registry. Compiled plugins of an API are dropped
// whenever its definitions change.
func NewRegistry(defs *definitions.Store, plugins *plugin.Engine, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = logging.Nop()
	}
	defs.OnInvalidate(plugins.Forget)
	return &Registry{defs: defs, plugins: plugins, logger: logger}
}

// Get returns the definitions of name, or store.ErrNotFound.
// The result is shared and must not be modified.
func (r *Registry) Get(ctx context.Context, name string) (*model.APIDefinitions, error) {
	return r.defs.Get(ctx, name)
}

// Names returns every registered API name.
func (r *Registry) Names(ctx context.Context) ([]string, error) {
	return r.defs.Names(ctx)
}

// Save checks defs and stores them under name.
func (r *Registry) Save(ctx context.Context, name string, defs *model.APIDefinitions) error {
	if err := store.ValidateName(name); err != nil {
		return err
	}
	prepared, err := definitions.Prepare(ctx, name, defs, r.logger)
	if err != nil {
		return err
	}
	if err := r.checkPlugins(prepared); err != nil {
		return err
	}
	if err := r.defs.Save(ctx, name, prepared); err != nil {
		return err
	}
	r.logger.Info("api registered", "api", name)
	return nil
}

// Update applies fn to a copy of the definitions of name and saves the
// result. Missing definitions start out empty.
func (r *Registry) Update(ctx context.Context, name string, fn func(*model.APIDefinitions) error) error {
	current, err := r.defs.Get(ctx, name)
	switch {
	case errors.Is(err, store.ErrNotFound):
		current = &model.APIDefinitions{}
	case err != nil:
		return err
	}
	next, err := current.Clone()
	if err != nil {
		return err
	}
	if err := fn(next); err != nil {
		return err
	}
	return r.Save(ctx, name, next)
}

// Delete removes name. It reports false if name was not registered.
func (r *Registry) Delete(ctx context.Context, name string) (bool, error) {
	deleted, err := r.defs.Delete(ctx, name)
	if err == nil && deleted {
		r.logger.Info("api deleted", "api", name)
	}
	return deleted, err
}

func (r *Registry) checkPlugins(defs *model.APIDefinitions) error {
	check := func(where string, def *model.PluginDefinition) error {
		if def == nil || def.Script == "" {
			return nil
		}
		if err := r.plugins.Validate(*def); err != nil {
			return fmt.Errorf("plugin at %s: %w", where, err)
		}
		return nil
	}
	if err := check("root", defs.Plugin); err != nil {
		return err
	}
	paths := make([]string, 0, len(defs.Configurations))
	for p := range defs.Configurations {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		cfg := defs.Configurations[p]
		if cfg == nil {
			continue
		}
		if err := check(p, cfg.Plugin); err != nil {
			return err
		}
		methods := make([]string, 0, len(cfg.Methods))
		for m := range cfg.Methods {
			methods = append(methods, m)
		}
		sort.Strings(methods)
		for _, m := range methods {
			if mc := cfg.Methods[m]; mc != nil {
				if err := check(m+" "+p, mc.Plugin); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
