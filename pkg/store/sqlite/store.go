// Package sqlite provides a store.PersistentStorage backed by an embedded
// SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/getmockd/oasstub/pkg/logging"
	"github.com/getmockd/oasstub/pkg/model"
	"github.com/getmockd/oasstub/pkg/store"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// Store implements store.PersistentStorage using SQLite.
type Store struct {
	db  *sqlx.DB
	log *slog.Logger
}

// Open opens (creating if needed) the database at path.
// Use ":memory:" for a private in-memory database.
func Open(path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = logging.Nop()
	}
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single connection avoids "database is locked" under concurrent writers
	// and keeps ":memory:" databases alive for the lifetime of the store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, log: log}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	log.Info("sqlite storage initialized", "path", path)
	return s, nil
}

func (s *Store) initSchema() error {
	var version int
	if err := s.db.Get(&version, "PRAGMA user_version"); err != nil {
		return fmt.Errorf("query schema version: %w", err)
	}
	if version >= schemaVersion {
		s.log.Debug("database schema already exists", "version", version)
		return nil
	}
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get retrieves definitions by name.
func (s *Store) Get(ctx context.Context, name string) (*model.APIDefinitions, error) {
	var raw string
	err := s.db.GetContext(ctx, &raw, "SELECT definitions FROM api_definitions WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}
	return store.DecodeDefinitions([]byte(raw))
}

// Set stores or replaces definitions.
func (s *Store) Set(ctx context.Context, name string, defs *model.APIDefinitions) error {
	if err := store.ValidateName(name); err != nil {
		return err
	}
	raw, err := store.EncodeDefinitions(defs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO api_definitions (name, definitions, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET definitions = excluded.definitions, updated_at = excluded.updated_at`,
		name, string(raw), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}
	return nil
}

// Delete removes definitions by name.
func (s *Store) Delete(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM api_definitions WHERE name = ?", name)
	if err != nil {
		return false, fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Names returns all stored names, sorted.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	names := []string{}
	if err := s.db.SelectContext(ctx, &names, "SELECT name FROM api_definitions ORDER BY name"); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}
	return names, nil
}

var _ store.PersistentStorage = (*Store)(nil)
