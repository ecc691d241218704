// Package redis provides store implementations backed by a Redis server.
// Several stub servers can share one Redis so that definitions, metrics and
// records are visible to all of them.
package redis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/getmockd/oasstub/pkg/model"
	"github.com/getmockd/oasstub/pkg/store"
)

// DefaultKeyPrefix namespaces every key written by the stores.
const DefaultKeyPrefix = "oasstub:"

// Config holds Redis connection settings.
type Config struct {
	Addr         string
	Username     string
	Password     string
	DB           int
	KeyPrefix    string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewClient creates a client for cfg.
func NewClient(cfg Config) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}

func prefixOf(p string) string {
	if p == "" {
		return DefaultKeyPrefix
	}
	return p
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
}

// PersistentStore implements store.PersistentStorage on Redis.
// Each definition is a string key; the set of names is kept alongside.
type PersistentStore struct {
	client goredis.UniversalClient
	prefix string
}

// NewPersistentStore creates a PersistentStore using client.
func NewPersistentStore(client goredis.UniversalClient, keyPrefix string) *PersistentStore {
	return &PersistentStore{client: client, prefix: prefixOf(keyPrefix)}
}

func (s *PersistentStore) key(name string) string { return s.prefix + "definitions:" + name }
func (s *PersistentStore) namesKey() string      { return s.prefix + "names" }

// Get retrieves definitions by name.
func (s *PersistentStore) Get(ctx context.Context, name string) (*model.APIDefinitions, error) {
	data, err := s.client.Get(ctx, s.key(name)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, unavailable(err)
	}
	return store.DecodeDefinitions(data)
}

// Set stores or replaces definitions.
func (s *PersistentStore) Set(ctx context.Context, name string, defs *model.APIDefinitions) error {
	if err := store.ValidateName(name); err != nil {
		return err
	}
	data, err := store.EncodeDefinitions(defs)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, s.key(name), data, 0)
		pipe.SAdd(ctx, s.namesKey(), name)
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// Delete removes definitions by name.
func (s *PersistentStore) Delete(ctx context.Context, name string) (bool, error) {
	var del *goredis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		del = pipe.Del(ctx, s.key(name))
		pipe.SRem(ctx, s.namesKey(), name)
		return nil
	})
	if err != nil {
		return false, unavailable(err)
	}
	return del.Val() > 0, nil
}

// Names returns all stored names, sorted.
func (s *PersistentStore) Names(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, s.namesKey()).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	slices.Sort(names)
	return names, nil
}

// SessionStore implements store.SessionStorage on Redis.
// Expiry is delegated to Redis key TTLs.
type SessionStore struct {
	client goredis.UniversalClient
	prefix string
}

// NewSessionStore creates a SessionStore using client.
func NewSessionStore(client goredis.UniversalClient, keyPrefix string) *SessionStore {
	return &SessionStore{client: client, prefix: prefixOf(keyPrefix)}
}

func (s *SessionStore) key(k string) string { return s.prefix + "session:" + k }

// Put stores value under key.
func (s *SessionStore) Put(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := store.Marshal(value)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(key), data, ttl).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// Get decodes the value under key into dst.
func (s *SessionStore) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, unavailable(err)
	}
	if err := store.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes key.
func (s *SessionStore) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, s.key(key)).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return n > 0, nil
}

// Compile-time interface checks
var (
	_ store.PersistentStorage = (*PersistentStore)(nil)
	_ store.SessionStorage    = (*SessionStore)(nil)
)
