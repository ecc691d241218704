package definitions

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/oasstub/pkg/cache"
	"github.com/getmockd/oasstub/pkg/model"
	"github.com/getmockd/oasstub/pkg/store"
	"github.com/getmockd/oasstub/pkg/store/memory"
)

// countingStorage counts reads and can be made to fail writes.
type countingStorage struct {
	store.PersistentStorage
	mu       sync.Mutex
	gets     int
	failSets bool
}

func (s *countingStorage) Get(ctx context.Context, name string) (*model.APIDefinitions, error) {
	s.mu.Lock()
	s.gets++
	s.mu.Unlock()
	return s.PersistentStorage.Get(ctx, name)
}

func (s *countingStorage) Set(ctx context.Context, name string, defs *model.APIDefinitions) error {
	if s.failSets {
		return store.ErrUnavailable
	}
	return s.PersistentStorage.Set(ctx, name, defs)
}

func (s *countingStorage) reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets
}

func newTestStore(t *testing.T) (*Store, *countingStorage) {
	t.Helper()
	backing := &countingStorage{PersistentStorage: memory.NewPersistentStore()}
	return New(backing), backing
}

func TestStore_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	defs := &model.APIDefinitions{Specification: readFixture(t, "petstore.yaml")}

	require.NoError(t, s.Save(ctx, "petstore", defs))

	got, err := s.Get(ctx, "petstore")
	require.NoError(t, err)
	assert.Equal(t, defs.Specification, got.Specification)

	names, err := s.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"petstore"}, names)

	deleted, err := s.Delete(ctx, "petstore")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = s.Get(ctx, "petstore")
	assert.ErrorIs(t, err, store.ErrNotFound)

	deleted, err = s.Delete(ctx, "petstore")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestStore_CachesReads(t *testing.T) {
	ctx := context.Background()
	s, backing := newTestStore(t)
	require.NoError(t, s.Save(ctx, "petstore", &model.APIDefinitions{Specification: readFixture(t, "petstore.yaml")}))

	for range 5 {
		_, err := s.Get(ctx, "petstore")
		require.NoError(t, err)
		_, err = s.OpenAPI(ctx, "petstore")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, backing.reads())

	raw, parsed := s.CacheStats()
	assert.Equal(t, uint64(1), raw.Misses)
	assert.Equal(t, uint64(1), parsed.Misses)
}

func TestStore_OverwriteIsVisibleImmediately(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	v1 := &model.APIDefinitions{Specification: readFixture(t, "petstore.yaml")}
	require.NoError(t, s.Save(ctx, "api", v1))
	doc, err := s.OpenAPI(ctx, "api")
	require.NoError(t, err)
	assert.Equal(t, "Petstore", doc.Info.Title)

	v2 := &model.APIDefinitions{Specification: readFixture(t, "swagger.json")}
	require.NoError(t, s.Save(ctx, "api", v2))

	got, err := s.Get(ctx, "api")
	require.NoError(t, err)
	assert.Equal(t, v2.Specification, got.Specification)

	doc, err = s.OpenAPI(ctx, "api")
	require.NoError(t, err)
	assert.Equal(t, "Legacy", doc.Info.Title)
}

func TestStore_FailedWriteKeepsCache(t *testing.T) {
	ctx := context.Background()
	s, backing := newTestStore(t)

	require.NoError(t, s.Save(ctx, "api", &model.APIDefinitions{CommonConfiguration: model.CommonConfiguration{Data: model.Data{"v": 1.0}}}))
	_, err := s.Get(ctx, "api")
	require.NoError(t, err)

	var invalidated []string
	s.OnInvalidate(func(name string) { invalidated = append(invalidated, name) })

	backing.failSets = true
	err = s.Save(ctx, "api", &model.APIDefinitions{CommonConfiguration: model.CommonConfiguration{Data: model.Data{"v": 2.0}}})
	assert.ErrorIs(t, err, store.ErrUnavailable)
	assert.Empty(t, invalidated)

	got, err := s.Get(ctx, "api")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Data["v"])
	assert.Equal(t, 1, backing.reads())
}

func TestStore_AbsenceIsNotCached(t *testing.T) {
	ctx := context.Background()
	s, backing := newTestStore(t)

	_, err := s.Get(ctx, "late")
	require.ErrorIs(t, err, store.ErrNotFound)

	// written behind the store's back, e.g. by another process sharing redis
	require.NoError(t, backing.Set(ctx, "late", &model.APIDefinitions{CommonConfiguration: model.CommonConfiguration{Data: model.Data{}}}))

	_, err = s.Get(ctx, "late")
	assert.NoError(t, err)
}

func TestStore_OpenAPIWithoutSpecification(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, s.Save(ctx, "bare", &model.APIDefinitions{}))

	_, err := s.OpenAPI(ctx, "bare")
	assert.ErrorIs(t, err, ErrNoSpecification)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_OnInvalidate(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	var got []string
	s.OnInvalidate(func(name string) { got = append(got, name) })

	require.NoError(t, s.Save(ctx, "a", &model.APIDefinitions{}))
	_, err := s.Delete(ctx, "a")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "a"}, got)
}

func TestStore_PluginDefinition(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	root := &model.PluginDefinition{Type: model.PluginExpr, Script: `{"status": 201}`}
	path := &model.PluginDefinition{Type: model.PluginCEL, Script: `{"status": 202}`}
	method := &model.PluginDefinition{Type: model.PluginExpr, Script: `{"status": 203}`}
	defs := &model.APIDefinitions{
		CommonConfiguration: model.CommonConfiguration{Plugin: root},
		Configurations: map[string]*model.APIConfiguration{
			"/pets/{id}": {
				CommonConfiguration: model.CommonConfiguration{Plugin: path},
				Methods: map[string]*model.CommonConfiguration{
					"DELETE": {Plugin: method},
				},
			},
		},
	}
	require.NoError(t, s.Save(ctx, "api", defs))

	tests := []struct {
		path, method string
		want         string
	}{
		{"/owners", "GET", root.Script},
		{"/pets/1", "GET", path.Script},
		{"/pets/1", "DELETE", method.Script},
	}
	for _, tt := range tests {
		got, err := s.PluginDefinition(ctx, "api", tt.path, tt.method)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, tt.want, got.Script, "%s %s", tt.method, tt.path)
	}

	_, err := s.PluginDefinition(ctx, "missing", "/", "GET")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_InvalidName(t *testing.T) {
	s, _ := newTestStore(t)
	err := s.Save(context.Background(), "a/b", &model.APIDefinitions{})
	assert.True(t, errors.Is(err, store.ErrInvalidName))
}

func TestStore_LRUPolicy(t *testing.T) {
	ctx := context.Background()
	backing := &countingStorage{PersistentStorage: memory.NewPersistentStore()}
	s := New(backing, WithCachePolicy(func() cache.Policy { return cache.LRU(1) }))

	require.NoError(t, s.Save(ctx, "a", &model.APIDefinitions{}))
	require.NoError(t, s.Save(ctx, "b", &model.APIDefinitions{}))

	_, _ = s.Get(ctx, "a")
	_, _ = s.Get(ctx, "b")
	_, _ = s.Get(ctx, "a")
	assert.Equal(t, 3, backing.reads())
}
