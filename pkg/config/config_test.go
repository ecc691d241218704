package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "oasstub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Layers(t *testing.T) {
	path := writeFile(t, `
server:
  addr: ":9090"
  read_timeout: 5s
stub:
  prefix: /mock
storage:
  persistent: sqlite
  sqlite_path: /tmp/oasstub.db
engine:
  delay_workers: 2
`)
	t.Setenv("OASSTUB_SERVER_ADDR", ":7070")
	t.Setenv("OASSTUB_STUB_MAX__BODY__BYTES", "1024")
	t.Setenv("OASSTUB_ENGINE_CACHE__TTL", "1m")

	cfg, err := Load(path, map[string]any{"engine.delay_workers": 4})
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr, "environment wins over the file")
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "/mock", cfg.Stub.Prefix)
	assert.Equal(t, int64(1024), cfg.Stub.MaxBodyBytes)
	assert.Equal(t, "sqlite", cfg.Storage.Persistent)
	assert.Equal(t, "/tmp/oasstub.db", cfg.Storage.SQLitePath)
	assert.Equal(t, time.Minute, cfg.Engine.CacheTTL)
	assert.Equal(t, 4, cfg.Engine.DelayWorkers, "overrides win over everything")
	assert.Equal(t, "/admin", cfg.Admin.Prefix, "unset keys keep their defaults")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)

	_, err = Load(writeFile(t, "storage:\n  persistent: postgres\n"), nil)
	assert.ErrorContains(t, err, "storage.persistent")
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown session backend", func(c *Config) { c.Storage.Session = "sqlite" }, "storage.session"},
		{"no delay workers", func(c *Config) { c.Engine.DelayWorkers = 0 }, "engine.delay_workers"},
		{"root prefix", func(c *Config) { c.Stub.Prefix = "/" }, "stub.prefix"},
		{"relative prefix", func(c *Config) { c.Admin.Prefix = "admin" }, "admin.prefix"},
		{"nested prefixes", func(c *Config) { c.Admin.Prefix = "/stub/admin" }, "overlap"},
		{"disabled admin is not checked", func(c *Config) { c.Admin.Enabled = false; c.Admin.Prefix = "/stub" }, ""},
		{"body limit", func(c *Config) { c.Stub.MaxBodyBytes = 0 }, "stub.max_body_bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestEnvKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "server.addr", envKey("OASSTUB_SERVER_ADDR"))
	assert.Equal(t, "stub.max_body_bytes", envKey("OASSTUB_STUB_MAX__BODY__BYTES"))
	assert.Equal(t, "storage.redis.key_prefix", envKey("OASSTUB_STORAGE_REDIS_KEY__PREFIX"))
}
