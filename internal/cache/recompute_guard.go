package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RecomputeGuard prevents a cache stampede: when several nodes miss the
// same cache key for the same analyzer/extension pair at once, only the
// holder of the guard runs the analyzer; the rest wait for its result.
// Grounded on internal/infrastructure/lock/distributed.go's SET-NX/Lua
// release pattern, renamed from a general-purpose distributed lock to
// this package's one actual use: guarding a single recompute.
type RecomputeGuard struct {
	redis  *redis.Client
	logger *slog.Logger
	key    string
	value  string
	ttl    time.Duration
	held   bool
}

// GuardConfig tunes acquisition behaviour; zero values fall back to
// sane defaults in NewRecomputeGuard.
type GuardConfig struct {
	TTL            time.Duration
	MaxRetries     int
	RetryInterval  time.Duration
	AcquireTimeout time.Duration
}

func (c GuardConfig) withDefaults() GuardConfig {
	if c.TTL <= 0 {
		c.TTL = 30 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 200 * time.Millisecond
	}
	if c.AcquireTimeout <= 0 {
		c.AcquireTimeout = c.TTL
	}
	return c
}

// NewRecomputeGuard builds a guard for cacheKey. logger defaults to
// slog.Default() when nil.
func NewRecomputeGuard(client *redis.Client, cacheKey string, cfg GuardConfig, logger *slog.Logger) (*RecomputeGuard, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	value, err := guardValue()
	if err != nil {
		return nil, fmt.Errorf("cache: generating guard value: %w", err)
	}
	return &RecomputeGuard{
		redis:  client,
		logger: logger,
		key:    "recompute_guard:" + cacheKey,
		value:  value,
		ttl:    cfg.TTL,
	}, nil
}

func guardValue() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Acquire attempts a single SET-NX acquisition, returning false (not an
// error) when another node already holds the guard.
func (g *RecomputeGuard) Acquire(ctx context.Context) (bool, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, g.ttl)
	defer cancel()

	ok, err := g.redis.SetNX(acquireCtx, g.key, g.value, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("cache: acquiring recompute guard %s: %w", g.key, err)
	}
	g.held = ok
	return ok, nil
}

// AcquireWithRetry retries acquisition up to cfg.MaxRetries times,
// sleeping cfg.RetryInterval between attempts, for callers willing to
// wait out an in-flight recompute rather than bail immediately.
func (g *RecomputeGuard) AcquireWithRetry(ctx context.Context, cfg GuardConfig) (bool, error) {
	cfg = cfg.withDefaults()

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		ok, err := g.Acquire(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			g.logger.Debug("recompute guard acquired", "key", g.key, "attempt", attempt+1)
			return true, nil
		}
		if attempt == cfg.MaxRetries {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(cfg.RetryInterval):
		}
	}
	return false, nil
}

// releaseScript deletes the key only if it still holds this guard's
// own value, so one holder can never release a guard another holder
// has since re-acquired after expiry.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// Release drops the guard if this instance still holds it. A no-op,
// not an error, when Acquire never succeeded.
func (g *RecomputeGuard) Release(ctx context.Context) error {
	if !g.held {
		return nil
	}

	releaseCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	result, err := g.redis.Eval(releaseCtx, releaseScript, []string{g.key}, g.value).Result()
	if err != nil {
		return fmt.Errorf("cache: releasing recompute guard %s: %w", g.key, err)
	}

	if n, ok := result.(int64); ok && n == 1 {
		g.held = false
		return nil
	}
	g.logger.Warn("recompute guard was not released (already expired or reassigned)", "key", g.key)
	return nil
}
