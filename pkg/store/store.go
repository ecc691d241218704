// Package store defines the storage contracts of the stub engine.
//
// Two kinds of storage are used:
//   - PersistentStorage keeps API definitions by name.
//   - SessionStorage keeps short-lived values by key: metrics, records and
//     anything plugins choose to remember between calls.
//
// Implementations live in sub-packages:
//   - memory: process-local maps (default)
//   - file:   JSON files in the data directory
//   - sqlite: embedded SQLite database
//   - redis:  Redis server, shareable between processes
//
// The data directory follows the XDG Base Directory Specification
// (~/.local/share/oasstub on Linux).
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/goccy/go-json"

	"github.com/getmockd/oasstub/pkg/model"
)

// Common errors
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("storage unavailable")
	ErrReadOnly    = errors.New("store is read-only")
	ErrInvalidName = errors.New("invalid name")
)

// Backend represents a storage backend type.
type Backend string

const (
	// BackendMemory uses in-memory storage (no persistence)
	BackendMemory Backend = "memory"
	// BackendFile uses JSON files for storage
	BackendFile Backend = "file"
	// BackendSQLite uses embedded SQLite database
	BackendSQLite Backend = "sqlite"
	// BackendRedis uses a Redis server
	BackendRedis Backend = "redis"
)

// ParseBackend parses a backend name.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case BackendMemory, BackendFile, BackendSQLite, BackendRedis:
		return b, nil
	case "":
		return BackendMemory, nil
	default:
		return "", fmt.Errorf("unknown storage backend %q", s)
	}
}

// PersistentStorage stores API definitions by name.
type PersistentStorage interface {
	// Get returns the definitions stored under name, or ErrNotFound.
	Get(ctx context.Context, name string) (*model.APIDefinitions, error)
	// Set stores defs under name, replacing any previous value.
	Set(ctx context.Context, name string, defs *model.APIDefinitions) error
	// Delete removes name. It reports false if name was not stored.
	Delete(ctx context.Context, name string) (bool, error)
	// Names returns every stored name in sorted order.
	Names(ctx context.Context) ([]string, error)
}

// SessionStorage stores JSON-encodable values by key.
type SessionStorage interface {
	// Put stores value under key. A ttl of zero never expires.
	Put(ctx context.Context, key string, value any, ttl time.Duration) error
	// Get decodes the value stored under key into dst.
	// It reports false if there is no value.
	Get(ctx context.Context, key string, dst any) (bool, error)
	// Delete removes key. It reports false if key was not stored.
	Delete(ctx context.Context, key string) (bool, error)
}

// GetAs is SessionStorage.Get returning a typed value.
func GetAs[T any](ctx context.Context, s SessionStorage, key string) (T, bool, error) {
	var v T
	ok, err := s.Get(ctx, key, &v)
	return v, ok, err
}

// Marshal encodes a stored value.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes a stored value into dst.
func Unmarshal(data []byte, dst any) error {
	return json.Unmarshal(data, dst)
}

// EncodeDefinitions encodes definitions for storage.
func EncodeDefinitions(defs *model.APIDefinitions) ([]byte, error) {
	if defs == nil {
		return nil, errors.New("nil definitions")
	}
	return json.Marshal(defs)
}

// DecodeDefinitions decodes stored definitions.
func DecodeDefinitions(data []byte) (*model.APIDefinitions, error) {
	var defs model.APIDefinitions
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("decode definitions: %w", err)
	}
	return &defs, nil
}

// ValidateName rejects names that cannot be used as a path segment.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	for _, r := range name {
		if r == '/' || r == '\\' || r < 0x20 {
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return nil
}

// DefaultDataDir returns the default data directory following XDG spec.
func DefaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "oasstub")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".oasstub", "data")
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "oasstub")
	}
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("LOCALAPPDATA"); appData != "" {
			return filepath.Join(appData, "oasstub")
		}
		return filepath.Join(home, "AppData", "Local", "oasstub")
	}
	return filepath.Join(home, ".local", "share", "oasstub")
}
