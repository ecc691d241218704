// Package memory provides process-local implementations of the store
// interfaces. Values are kept encoded so readers never share state with
// writers.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/getmockd/oasstub/pkg/model"
	"github.com/getmockd/oasstub/pkg/store"
)

// PersistentStore is a thread-safe in-memory implementation of store.PersistentStorage.
type PersistentStore struct {
	mu   sync.RWMutex
	defs map[string][]byte
}

// NewPersistentStore creates a new PersistentStore.
func NewPersistentStore() *PersistentStore {
	return &PersistentStore{
		defs: make(map[string][]byte),
	}
}

// Get retrieves definitions by name.
func (s *PersistentStore) Get(_ context.Context, name string) (*model.APIDefinitions, error) {
	s.mu.RLock()
	data, ok := s.defs[name]
	s.mu.RUnlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	return store.DecodeDefinitions(data)
}

// Set stores or replaces definitions.
func (s *PersistentStore) Set(_ context.Context, name string, defs *model.APIDefinitions) error {
	if err := store.ValidateName(name); err != nil {
		return err
	}
	data, err := store.EncodeDefinitions(defs)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defs[name] = data
	return nil
}

// Delete removes definitions by name. Returns true if deleted, false if not found.
func (s *PersistentStore) Delete(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.defs[name]; exists {
		delete(s.defs, name)
		return true, nil
	}
	return false, nil
}

// Names returns all stored names, sorted.
func (s *PersistentStore) Names(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.defs))
	for name := range s.defs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// Count returns the number of stored definitions.
func (s *PersistentStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.defs)
}

type entry struct {
	value   []byte
	expires time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// SessionStore is a thread-safe in-memory implementation of store.SessionStorage.
// Expired entries are dropped lazily on access.
type SessionStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Put stores value under key.
func (s *SessionStore) Put(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := store.Marshal(value)
	if err != nil {
		return err
	}
	e := entry{value: data}
	if ttl > 0 {
		e.expires = s.now().Add(ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = e
	return nil
}

// Get decodes the value under key into dst.
func (s *SessionStore) Get(_ context.Context, key string, dst any) (bool, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if e.expired(s.now()) {
		s.mu.Lock()
		if cur, ok := s.entries[key]; ok && cur.expired(s.now()) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return false, nil
	}
	if err := store.Unmarshal(e.value, dst); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes key. Returns true if a live value was removed.
func (s *SessionStore) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	delete(s.entries, key)
	return !e.expired(s.now()), nil
}

// Clear removes every entry.
func (s *SessionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]entry)
}

// Compile-time interface checks
var (
	_ store.PersistentStorage = (*PersistentStore)(nil)
	_ store.SessionStorage    = (*SessionStore)(nil)
)
