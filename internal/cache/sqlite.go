package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Pure Go SQLite driver — no CGO, unlike mattn/go-sqlite3, which
	// keeps cross-compilation simple for the analyzer's CLI binary.
	_ "modernc.org/sqlite"
)

// SQLiteStore is the Lite-profile on-disk backend: a single table
// keyed by the opaque cache key, storing the serialized Entry as JSON.
// Grounded on internal/storage/sqlite/sqlite_storage.go's connection
// setup (WAL mode, bounded pool) and directory-creation guard.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("cache: sqlite path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("cache: creating sqlite directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cache: opening sqlite: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: initializing schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key        TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	cached_at  INTEGER NOT NULL
);
`

func (s *SQLiteStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM cache_entries WHERE key = ?`, key).Scan(&payload)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	var entry Entry
	if err := json.Unmarshal([]byte(payload), &entry); err != nil {
		return Entry{}, false, fmt.Errorf("cache: decoding entry for %s: %w", key, err)
	}
	return entry, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, entry Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, payload, cached_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, cached_at = excluded.cached_at
	`, key, string(payload), entry.CachedAt.Unix())
	return err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
