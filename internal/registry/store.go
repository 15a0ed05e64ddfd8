// Package registry is the shared metadata document store. One record per key,
// keyed by the key name, holding the metadata fields pushed at sync time.
//
// The store is a single SQLite file on shared storage. The push primitive is
// a conflict-aware insert, so concurrent pushers racing on the same key
// resolve inside the engine and exactly one insert wins.
package registry

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store manages registry persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open connects to the registry database, creating it and its parent
// directory when missing.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create registry directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open registry db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create registry schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// PushIfAbsent inserts a record for the key unless one already exists. It
// reports whether this call created the record; an existing record is left
// untouched regardless of its contents.
func (s *Store) PushIfAbsent(ctx context.Context, key string, fields map[string]any) (bool, error) {
	payload, err := json.Marshal(fields)
	if err != nil {
		return false, fmt.Errorf("marshal record fields: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO scene_records (key, fields_json, created_at)
         VALUES (?, ?, ?)
         ON CONFLICT(key) DO NOTHING`,
		key,
		string(payload),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, fmt.Errorf("push record %q: %w", key, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rows > 0, nil
}

// Get returns the stored fields for a key and whether a record exists.
func (s *Store) Get(ctx context.Context, key string) (map[string]any, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT fields_json FROM scene_records WHERE key = ?", key,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read record %q: %w", key, err)
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return nil, false, fmt.Errorf("decode record %q: %w", key, err)
	}
	return fields, true, nil
}

// Keys returns every key with a record, sorted.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM scene_records ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan record key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
