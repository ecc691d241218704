package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the complete server configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Stub        StubConfig        `koanf:"stub"`
	Admin       AdminConfig       `koanf:"admin"`
	Metrics     MetricsConfig     `koanf:"metrics"`
	Storage     StorageConfig     `koanf:"storage"`
	Engine      EngineConfig      `koanf:"engine"`
	Logging     LoggingConfig     `koanf:"logging"`
	Definitions DefinitionsConfig `koanf:"definitions"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StubConfig configures the stub endpoint.
type StubConfig struct {
	Prefix         string        `koanf:"prefix"`
	MaxBodyBytes   int64         `koanf:"max_body_bytes"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// AdminConfig configures the admin API.
type AdminConfig struct {
	Enabled bool   `koanf:"enabled"`
	Prefix  string `koanf:"prefix"`
	APIKey  string `koanf:"api_key"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// StorageConfig selects the storage backends.
type StorageConfig struct {
	// Persistent is memory, file, sqlite or redis.
	Persistent string `koanf:"persistent"`
	// Session is memory or redis.
	Session    string      `koanf:"session"`
	DataDir    string      `koanf:"data_dir"`
	SQLitePath string      `koanf:"sqlite_path"`
	Redis      RedisConfig `koanf:"redis"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr        string        `koanf:"addr"`
	Username    string        `koanf:"username"`
	Password    string        `koanf:"password"`
	DB          int           `koanf:"db"`
	KeyPrefix   string        `koanf:"key_prefix"`
	DialTimeout time.Duration `koanf:"dial_timeout"`
}

// EngineConfig tunes the execution engine.
type EngineConfig struct {
	DelayWorkers int `koanf:"delay_workers"`
	// CacheMaxEntries bounds the definition caches. Zero is unbounded.
	CacheMaxEntries int `koanf:"cache_max_entries"`
	// CacheTTL expires cached definitions. Zero never expires.
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level     string `koanf:"level"`
	Format    string `koanf:"format"`
	AddSource bool   `koanf:"add_source"`
}

// DefinitionsConfig configures definitions loaded at startup.
type DefinitionsConfig struct {
	// Dir holds definition files registered at startup, one API per file
	// named after the API.
	Dir string `koanf:"dir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Stub: StubConfig{
			Prefix:         "/stub",
			MaxBodyBytes:   10 << 20,
			RequestTimeout: 2 * time.Minute,
		},
		Admin: AdminConfig{
			Enabled: true,
			Prefix:  "/admin",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Storage: StorageConfig{
			Persistent: "memory",
			Session:    "memory",
			Redis: RedisConfig{
				Addr:        "localhost:6379",
				KeyPrefix:   "oasstub:",
				DialTimeout: 5 * time.Second,
			},
		},
		Engine: EngineConfig{
			DelayWorkers: 8,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks that the configuration can be served.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Persistent {
	case "memory", "file", "sqlite", "redis":
	default:
		errs = append(errs, fmt.Errorf("storage.persistent: unknown backend %q", c.Storage.Persistent))
	}
	switch c.Storage.Session {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("storage.session: unknown backend %q", c.Storage.Session))
	}
	if c.Engine.DelayWorkers <= 0 {
		errs = append(errs, errors.New("engine.delay_workers must be positive"))
	}
	if c.Engine.CacheMaxEntries < 0 {
		errs = append(errs, errors.New("engine.cache_max_entries must not be negative"))
	}
	if c.Stub.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("stub.max_body_bytes must be positive"))
	}

	prefixes := map[string]string{"stub.prefix": c.Stub.Prefix}
	if c.Admin.Enabled {
		prefixes["admin.prefix"] = c.Admin.Prefix
	}
	if c.Metrics.Enabled {
		prefixes["metrics.path"] = c.Metrics.Path
	}
	for key, p := range prefixes {
		if !strings.HasPrefix(p, "/") || p == "/" {
			errs = append(errs, fmt.Errorf("%s must start with / and not be the root: %q", key, p))
		}
	}
	for a, pa := range prefixes {
		for b, pb := range prefixes {
			if a < b && nested(pa, pb) {
				errs = append(errs, fmt.Errorf("%s and %s overlap: %q, %q", a, b, pa, pb))
			}
		}
	}
	return errors.Join(errs...)
}

func nested(a, b string) bool {
	a, b = strings.TrimSuffix(a, "/")+"/", strings.TrimSuffix(b, "/")+"/"
	return strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
}
