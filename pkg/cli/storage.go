package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	goredis "github.com/redis/go-redis/v9"

	"github.com/getmockd/oasstub/pkg/config"
	"github.com/getmockd/oasstub/pkg/store"
	"github.com/getmockd/oasstub/pkg/store/file"
	"github.com/getmockd/oasstub/pkg/store/memory"
	"github.com/getmockd/oasstub/pkg/store/redis"
	"github.com/getmockd/oasstub/pkg/store/sqlite"
)

// storage holds the opened backends and what must be closed on shutdown.
type storage struct {
	persistent store.PersistentStorage
	session    store.SessionStorage
	closers    []func() error
}

func (s *storage) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// openStorage opens the persistent and session backends of cfg. A single
// Redis client is shared when both use Redis.
func openStorage(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*storage, error) {
	s := &storage{}
	var client *goredis.Client
	redisClient := func() (*goredis.Client, error) {
		if client != nil {
			return client, nil
		}
		c := redis.NewClient(redis.Config{
			Addr:        cfg.Redis.Addr,
			Username:    cfg.Redis.Username,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			KeyPrefix:   cfg.Redis.KeyPrefix,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err := c.Ping(ctx).Err(); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("%w: redis %s: %w", store.ErrUnavailable, cfg.Redis.Addr, err)
		}
		client = c
		s.closers = append(s.closers, c.Close)
		return c, nil
	}

	persistent, err := store.ParseBackend(cfg.Persistent)
	if err != nil {
		return nil, err
	}
	switch persistent {
	case store.BackendMemory:
		s.persistent = memory.NewPersistentStore()
	case store.BackendFile:
		fs := file.New(file.Config{DataDir: dataDir(cfg)})
		fs.SetLogger(logger)
		if err := fs.Open(ctx); err != nil {
			_ = fs.Close()
			return nil, fmt.Errorf("open file storage: %w", err)
		}
		s.persistent = fs
		s.closers = append(s.closers, fs.Close)
	case store.BackendSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = filepath.Join(dataDir(cfg), "oasstub.db")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, err
		}
		db, err := sqlite.Open(path, logger)
		if err != nil {
			return nil, err
		}
		s.persistent = db
		s.closers = append(s.closers, db.Close)
	case store.BackendRedis:
		c, err := redisClient()
		if err != nil {
			return nil, err
		}
		s.persistent = redis.NewPersistentStore(c, cfg.Redis.KeyPrefix)
	}

	session, err := store.ParseBackend(cfg.Session)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	switch session {
	case store.BackendMemory:
		s.session = memory.NewSessionStore()
	case store.BackendRedis:
		c, err := redisClient()
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.session = redis.NewSessionStore(c, cfg.Redis.KeyPrefix)
	default:
		_ = s.Close()
		return nil, fmt.Errorf("session storage cannot use the %s backend", session)
	}
	return s, nil
}

func dataDir(cfg config.StorageConfig) string {
	if cfg.DataDir != "" {
		return cfg.DataDir
	}
	return store.DefaultDataDir()
}
