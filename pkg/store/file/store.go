// Package file provides a file-based implementation of store.PersistentStorage.
// Definitions are kept in memory and written to a single JSON file in the
// data directory. Writes are coalesced: a change schedules a flush after
// the debounce interval and Close flushes whatever is still pending.
package file

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/getmockd/oasstub/pkg/logging"
	"github.com/getmockd/oasstub/pkg/model"
	"github.com/getmockd/oasstub/pkg/store"
)

// formatVersion is written to the data file; newer files are rejected.
const formatVersion = 1

// DataFileName is the name of the file inside the data directory.
const DataFileName = "definitions.json"

// Config configures a FileStore.
type Config struct {
	// DataDir is the directory holding the data file.
	DataDir string
	// ReadOnly rejects every write.
	ReadOnly bool
	// SaveDebounce is how long a change waits for further changes before
	// it is written. Defaults to 500ms.
	SaveDebounce time.Duration
}

type document struct {
	Version     int                        `json:"version"`
	Definitions map[string]json.RawMessage `json:"definitions"`
}

// FileStore implements store.PersistentStorage using a JSON file.
type FileStore struct {
	cfg Config
	log *slog.Logger

	mu      sync.RWMutex
	defs    map[string]json.RawMessage
	pending bool

	// writeMu serialises flushes so the file is never written concurrently.
	writeMu sync.Mutex

	wake      chan struct{}
	stop      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// New creates a FileStore. Open must be called before use.
func New(cfg Config) *FileStore {
	if cfg.DataDir == "" {
		cfg.DataDir = store.DefaultDataDir()
	}
	if cfg.SaveDebounce <= 0 {
		cfg.SaveDebounce = 500 * time.Millisecond
	}
	s := &FileStore{
		cfg:     cfg,
		log:     logging.Nop(),
		defs:    make(map[string]json.RawMessage),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.writer()
	return s
}

// SetLogger sets the logger used for background write failures.
func (s *FileStore) SetLogger(log *slog.Logger) {
	if log != nil {
		s.log = log
	}
}

func (s *FileStore) path() string {
	return filepath.Join(s.cfg.DataDir, DataFileName)
}

// Open creates the data directory and reads the data file if there is one.
func (s *FileStore) Open(_ context.Context) error {
	if err := os.MkdirAll(s.cfg.DataDir, 0o700); err != nil {
		return err
	}
	raw, err := os.ReadFile(s.path())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("read %s: %w", s.path(), err)
	}
	if doc.Version > formatVersion {
		return fmt.Errorf("read %s: unsupported version %d", s.path(), doc.Version)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.defs = doc.Definitions
	if s.defs == nil {
		s.defs = make(map[string]json.RawMessage)
	}
	s.pending = false
	return nil
}

// Close writes pending changes and stops the background writer.
// It may be called more than once.
func (s *FileStore) Close() error {
	s.closeOnce.Do(func() { close(s.stop) })
	<-s.stopped
	return nil
}

// writer flushes changes once no new change arrived for the debounce
// interval.
func (s *FileStore) writer() {
	defer close(s.stopped)
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	for {
		select {
		case <-s.wake:
			timer.Reset(s.cfg.SaveDebounce)
		case <-timer.C:
			if err := s.flush(); err != nil {
				s.log.Error("failed to write definitions", "path", s.path(), "error", err)
			}
		case <-s.stop:
			timer.Stop()
			if err := s.flush(); err != nil {
				s.log.Error("failed to write definitions on close", "path", s.path(), "error", err)
			}
			return
		}
	}
}

// flush writes the current definitions if anything changed since the last
// write. The file is replaced atomically.
func (s *FileStore) flush() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if !s.pending {
		s.mu.Unlock()
		return nil
	}
	doc := document{Version: formatVersion, Definitions: maps.Clone(s.defs)}
	s.pending = false
	s.mu.Unlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err == nil {
		err = writeAtomic(s.path(), data)
	}
	if err != nil {
		s.mu.Lock()
		s.pending = true
		s.mu.Unlock()
	}
	return err
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// changed records a change and wakes the writer.
func (s *FileStore) changed() {
	s.pending = true
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// ForceSave writes the definitions now.
func (s *FileStore) ForceSave() error {
	if s.cfg.ReadOnly {
		return store.ErrReadOnly
	}
	s.mu.Lock()
	s.pending = true
	s.mu.Unlock()
	return s.flush()
}

// Get retrieves definitions by name.
func (s *FileStore) Get(_ context.Context, name string) (*model.APIDefinitions, error) {
	s.mu.RLock()
	raw, ok := s.defs[name]
	s.mu.RUnlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	return store.DecodeDefinitions(raw)
}

// Set stores or replaces definitions.
func (s *FileStore) Set(_ context.Context, name string, defs *model.APIDefinitions) error {
	if s.cfg.ReadOnly {
		return store.ErrReadOnly
	}
	if err := store.ValidateName(name); err != nil {
		return err
	}
	raw, err := store.EncodeDefinitions(defs)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defs[name] = raw
	s.changed()
	return nil
}

// Delete removes definitions by name.
func (s *FileStore) Delete(_ context.Context, name string) (bool, error) {
	if s.cfg.ReadOnly {
		return false, store.ErrReadOnly
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.defs[name]; !ok {
		return false, nil
	}
	delete(s.defs, name)
	s.changed()
	return true, nil
}

// Names returns all stored names, sorted.
func (s *FileStore) Names(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.defs)), nil
}

var _ store.PersistentStorage = (*FileStore)(nil)
