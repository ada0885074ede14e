package cache

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver for goose
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// PostgresStore is the Standard-profile backend for multi-node
// deployments sharing one cache. Grounded on
// internal/database/postgres/pool.go's pgxpool usage and
// internal/database/migrations.go's goose-driven schema management.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn, runs pending goose migrations
// through a stdlib *sql.DB handle (goose requires database/sql), then
// returns a pool-backed store for the hot path.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if err := runMigrations(dsn); err != nil {
		return nil, fmt.Errorf("cache: running migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("cache: connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cache: pinging postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func runMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}

func (s *PostgresStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM cache_entries WHERE key = $1`, key).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	var entry Entry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return Entry{}, false, fmt.Errorf("cache: decoding entry for %s: %w", key, err)
	}
	return entry, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, entry Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO cache_entries (key, payload, cached_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET payload = excluded.payload, cached_at = excluded.cached_at
	`, key, string(payload), entry.CachedAt)
	return err
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
