package plugin

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"

	"github.com/getmockd/oasstub/pkg/logging"
	"github.com/getmockd/oasstub/pkg/model"
)

// Compiler compiles scripts of one plugin language.
type Compiler interface {
	Compile(script string) (Program, error)
}

// Program is a compiled script. Run evaluates it with fresh state on every
// call and returns the script result, nil meaning no change.
type Program interface {
	Run(ctx context.Context, pc *Context) (map[string]any, error)
}

// CompiledPlugin is a compiled plugin definition.
type CompiledPlugin struct {
	Type    model.PluginType
	Digest  string
	program Program
}

type cacheEntry struct {
	plugin *CompiledPlugin
	owners map[string]struct{}
}

// Engine compiles, caches and executes plugins.
type Engine struct {
	compilers map[model.PluginType]Compiler
	logger    *slog.Logger

	mu    sync.RWMutex
	cache map[string]*cacheEntry
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithCompiler registers or replaces the compiler of a plugin type.
func WithCompiler(t model.PluginType, c Compiler) Option {
	return func(e *Engine) {
		e.compilers[t] = c
	}
}

// NewEngine creates an engine with the expr and CEL compilers.
func NewEngine(opts ...Option) (*Engine, error) {
	celc, err := newCELCompiler()
	if err != nil {
		return nil, err
	}
	e := &Engine{
		compilers: map[model.PluginType]Compiler{
			model.PluginExpr: exprCompiler{},
			model.PluginCEL:  celc,
		},
		logger: logging.Nop(),
		cache:  make(map[string]*cacheEntry),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Digest identifies a plugin definition for caching.
func Digest(def model.PluginDefinition) string {
	h := sha256.New()
	h.Write([]byte(def.Type))
	h.Write([]byte{0})
	h.Write([]byte(def.Script))
	return hex.EncodeToString(h.Sum(nil))
}

// Compile compiles def, reusing a cached compilation of the same script.
func (e *Engine) Compile(def model.PluginDefinition) (*CompiledPlugin, error) {
	return e.compile("", def)
}

// CompileFor compiles def on behalf of the API name, so that Forget(name)
// drops it.
func (e *Engine) CompileFor(name string, def model.PluginDefinition) (*CompiledPlugin, error) {
	return e.compile(name, def)
}

// Validate reports whether def compiles. Nothing is added to the cache.
func (e *Engine) Validate(def model.PluginDefinition) error {
	e.mu.RLock()
	_, ok := e.cache[Digest(def)]
	e.mu.RUnlock()
	if ok {
		return nil
	}
	compiler, found := e.compilers[def.Type]
	if !found {
		return &CompilationError{Type: def.Type, Cause: fmt.Errorf("unsupported plugin type %q", def.Type)}
	}
	_, err := compiler.Compile(def.Script)
	return err
}

func (e *Engine) compile(owner string, def model.PluginDefinition) (*CompiledPlugin, error) {
	digest := Digest(def)

	e.mu.RLock()
	entry, ok := e.cache[digest]
	owned := ok && entry.hasOwner(owner)
	e.mu.RUnlock()
	if ok && (owner == "" || owned) {
		return entry.plugin, nil
	}

	if !ok {
		compiler, found := e.compilers[def.Type]
		if !found {
			return nil, &CompilationError{Type: def.Type, Cause: fmt.Errorf("unsupported plugin type %q", def.Type)}
		}
		program, err := compiler.Compile(def.Script)
		if err != nil {
			return nil, err
		}
		entry = &cacheEntry{
			plugin: &CompiledPlugin{Type: def.Type, Digest: digest, program: program},
			owners: make(map[string]struct{}),
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if existing, found := e.cache[digest]; found {
		entry = existing
	} else {
		e.cache[digest] = entry
		e.logger.Debug("plugin compiled", "type", def.Type, "digest", digest[:12])
	}
	if owner != "" {
		entry.owners[owner] = struct{}{}
	}
	return entry.plugin, nil
}

func (c *cacheEntry) hasOwner(owner string) bool {
	_, ok := c.owners[owner]
	return ok
}

// Execute runs a compiled plugin and returns the customized response.
// pc.Response is not modified.
func (e *Engine) Execute(ctx context.Context, p *CompiledPlugin, pc *Context) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := p.program.Run(ctx, pc)
	if err != nil {
		return nil, &ExecutionError{Type: p.Type, Cause: err}
	}
	resp, err := apply(pc.Response, result)
	if err != nil {
		return nil, &ExecutionError{Type: p.Type, Cause: err}
	}
	return resp, nil
}

// Apply compiles def for the API name if needed and executes it.
func (e *Engine) Apply(ctx context.Context, name string, def model.PluginDefinition, pc *Context) (*Response, error) {
	p, err := e.CompileFor(name, def)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, p, pc)
}

// Forget drops the compilations owned by the API name. A compilation
// shared with other APIs is kept until its last owner is forgotten.
func (e *Engine) Forget(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for digest, entry := range e.cache {
		if _, ok := entry.owners[name]; !ok {
			continue
		}
		delete(entry.owners, name)
		if len(entry.owners) == 0 {
			delete(e.cache, digest)
		}
	}
}

// Len returns the number of cached compilations.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}
