package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/getmockd/oasstub/pkg/model"
	"github.com/getmockd/oasstub/pkg/store"
)

// startRedis runs a throwaway Redis container and returns its address.
func startRedis(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	testcontainers.CleanupContainer(t, c)

	addr, err := c.Endpoint(ctx, "")
	require.NoError(t, err)
	return addr
}

func TestRedisStores(t *testing.T) {
	addr := startRedis(t)
	client := NewClient(Config{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	t.Run("persistent round trip", func(t *testing.T) {
		s := NewPersistentStore(client, "test:")

		require.NoError(t, s.Set(ctx, "petstore", &model.APIDefinitions{Specification: "openapi: 3.0.3"}))
		require.NoError(t, s.Set(ctx, "orders", &model.APIDefinitions{}))

		got, err := s.Get(ctx, "petstore")
		require.NoError(t, err)
		assert.Equal(t, "openapi: 3.0.3", got.Specification)

		names, err := s.Names(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"orders", "petstore"}, names)

		deleted, err := s.Delete(ctx, "petstore")
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = s.Delete(ctx, "petstore")
		require.NoError(t, err)
		assert.False(t, deleted)

		_, err = s.Get(ctx, "petstore")
		assert.True(t, errors.Is(err, store.ErrNotFound))
	})

	t.Run("session values and ttl", func(t *testing.T) {
		s := NewSessionStore(client, "test:")

		require.NoError(t, s.Put(ctx, "counter", map[string]int{"n": 1}, 0))
		got, ok, err := store.GetAs[map[string]int](ctx, s, "counter")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 1, got["n"])

		require.NoError(t, s.Put(ctx, "short", "v", 50*time.Millisecond))
		assert.Eventually(t, func() bool {
			var v string
			ok, err := s.Get(ctx, "short", &v)
			return err == nil && !ok
		}, 2*time.Second, 20*time.Millisecond)

		deleted, err := s.Delete(ctx, "counter")
		require.NoError(t, err)
		assert.True(t, deleted)
	})
}

func TestRedisStores_Unavailable(t *testing.T) {
	client := NewClient(Config{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	_, err := NewPersistentStore(client, "").Get(ctx, "petstore")
	assert.True(t, errors.Is(err, store.ErrUnavailable))

	_, err = NewSessionStore(client, "").Get(ctx, "k", new(string))
	assert.True(t, errors.Is(err, store.ErrUnavailable))
}
