// ABOUTME: SQLite-backed key-value store for the kv_* tools
// ABOUTME: Provides durable get/set/delete/list with automatic schema creation

package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested key does not exist
var ErrNotFound = errors.New("key not found")

// Store is a durable string key-value store backed by SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates a Store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func Open(path string, logger *slog.Logger) (*Store, error) {
	logger = logger.With("component", "kvstore")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("key-value store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *Store) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// Set stores a value under the given key, replacing any existing value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT OR REPLACE INTO kv (key, value, updated_at)
		VALUES (?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		key,
		value,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("setting key %q: %w", key, err)
	}

	s.logger.Debug("stored value", "key", key, "size", len(value))
	return nil
}

// Get retrieves the value stored under key.
// Returns ErrNotFound if the key does not exist.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	query := `SELECT value FROM kv WHERE key = ?`

	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)

	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying key %q: %w", key, err)
	}

	return value, nil
}

// Delete removes the key.
// Returns ErrNotFound if the key did not exist.
func (s *Store) Delete(ctx context.Context, key string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("deleting key %q: %w", key, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted key", "key", key)
	return nil
}

// List returns all keys with the given prefix in sorted order.
// An empty prefix lists every key.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	query := `SELECT key FROM kv WHERE key LIKE ? ORDER BY key`

	rows, err := s.db.QueryContext(ctx, query, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating keys: %w", err)
	}

	return keys, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.logger.Info("closing key-value store")
	return s.db.Close()
}
