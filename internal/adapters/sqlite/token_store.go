package sqlite

// Package sqlite provides the default on-device token store backed by SQLite.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pastibot/companion/internal/ports"
	_ "modernc.org/sqlite"
)

// DefaultKey is the key the bearer token is stored under.
const DefaultKey = "authToken"

const tokenSchema = `
CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// Config configures the SQLite token store.
type Config struct {
	// Path is the database file. Parent directories are created.
	Path string
	// Key is the row key of the token. Defaults to DefaultKey.
	Key string
}

// TokenStore persists the bearer token in a single key/value row.
type TokenStore struct {
	db  *sql.DB
	key string
}

var _ ports.TokenStore = (*TokenStore)(nil)

// Open opens (or creates) the token database.
func Open(cfg Config) (*TokenStore, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite token store: path is required")
	}
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlite token store: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite token store: open: %w", err)
	}
	// One writer; the session serialises token writes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite token store: set WAL mode: %w", err)
	}
	if _, err := db.Exec(tokenSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite token store: create schema: %w", err)
	}
	return &TokenStore{db: db, key: cfg.Key}, nil
}

// Load returns the stored token or an empty string when none is stored.
func (s *TokenStore) Load(ctx context.Context) (string, error) {
	var tok string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, s.key).Scan(&tok)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("sqlite token store load: %w", err)
	}
	return tok, nil
}

// Save stores token, replacing any previous value.
func (s *TokenStore) Save(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("token cannot be empty")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.key, token, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite token store save: %w", err)
	}
	return nil
}

// Delete removes the stored token.
func (s *TokenStore) Delete(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, s.key); err != nil {
		return fmt.Errorf("sqlite token store delete: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *TokenStore) Close() error {
	return s.db.Close()
}
