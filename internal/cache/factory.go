package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Profile selects a cache backend the way the teacher's deployment
// profile selects a storage backend: Lite for a single host (CI runs,
// local use), Standard for a shared team deployment.
type Profile string

const (
	ProfileLite     Profile = "lite"
	ProfileStandard Profile = "standard"
)

// Options configures Factory's backend construction. MemoryCapacity
// always applies (every profile keeps an in-process L1 tier in front
// of whatever durable backend it picks). RedisAddr is optional even
// under ProfileStandard — when empty, Standard runs on Postgres alone.
type Options struct {
	Profile        Profile
	MemoryCapacity int
	SQLitePath     string
	PostgresDSN    string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisTTL       time.Duration
}

// ErrInvalidProfile mirrors the teacher's typed storage-selection
// error, reported when Options names a profile this package doesn't
// know how to build a backend for.
type ErrInvalidProfile struct {
	Profile Profile
}

func (e *ErrInvalidProfile) Error() string {
	return fmt.Sprintf("cache: unknown deployment profile %q", e.Profile)
}

// New builds the Store a deployment profile calls for: a MemoryStore
// alone for Lite without a sqlite path, a MemoryStore in front of
// SQLiteStore for Lite with one, or a MemoryStore in front of
// PostgresStore (optionally itself fronted by a RedisStore) for
// Standard. Grounded on internal/storage/factory.go's NewStorage
// profile switch.
func New(ctx context.Context, opts Options, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	local, err := NewMemoryStore(opts.MemoryCapacity)
	if err != nil {
		return nil, fmt.Errorf("cache: building memory tier: %w", err)
	}

	switch opts.Profile {
	case ProfileLite, "":
		if opts.SQLitePath == "" {
			logger.Info("cache: lite profile, memory-only (no sqlite path configured)")
			return local, nil
		}
		durable, err := NewSQLiteStore(ctx, opts.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("cache: building sqlite tier: %w", err)
		}
		logger.Info("cache: lite profile, memory fronting sqlite", "path", opts.SQLitePath)
		return NewTieredStore(local, durable), nil

	case ProfileStandard:
		if opts.PostgresDSN == "" {
			return nil, fmt.Errorf("cache: standard profile requires a postgres dsn")
		}
		durable, err := NewPostgresStore(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("cache: building postgres tier: %w", err)
		}

		var shared Store = durable
		if opts.RedisAddr != "" {
			client := redis.NewClient(&redis.Options{
				Addr:     opts.RedisAddr,
				Password: opts.RedisPassword,
				DB:       opts.RedisDB,
			})
			if err := client.Ping(ctx).Err(); err != nil {
				durable.Close()
				return nil, fmt.Errorf("cache: connecting to redis: %w", err)
			}
			shared = NewTieredStore(NewRedisStore(client, opts.RedisTTL), durable)
			logger.Info("cache: standard profile, redis L2 fronting postgres", "addr", opts.RedisAddr)
		} else {
			logger.Info("cache: standard profile, postgres only (no redis configured)")
		}

		return NewTieredStore(local, shared), nil

	default:
		return nil, &ErrInvalidProfile{Profile: opts.Profile}
	}
}
