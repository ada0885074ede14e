package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the Standard-profile L2 tier shared by every node in a
// cluster, sitting behind each node's own MemoryStore. Grounded on
// internal/infrastructure/lock/distributed.go's redis.Client usage,
// adapted from a lock primitive to a plain value store.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an already-configured client. ttl bounds how long
// Redis itself retains an entry, independent of the Entry's own
// TTLSeconds field checked by Entry.Valid.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	payload, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("cache: reading %s from redis: %w", key, err)
	}

	var entry Entry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return Entry{}, false, fmt.Errorf("cache: decoding entry for %s: %w", key, err)
	}
	return entry, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, entry Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("cache: writing %s to redis: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// TieredStore checks a fast local tier before falling back to a shared
// tier, populating the local tier on a remote hit so the next lookup on
// this node avoids the network round trip. Grounded on the teacher's
// L1/L2 composition previously in pkg/history/cache/l2_cache.go.
type TieredStore struct {
	local  Store
	remote Store
}

// NewTieredStore composes local (checked first, always populated on a
// remote hit) with remote (the shared backend other nodes also read).
func NewTieredStore(local, remote Store) *TieredStore {
	return &TieredStore{local: local, remote: remote}
}

func (s *TieredStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	if entry, ok, err := s.local.Get(ctx, key); err == nil && ok {
		return entry, true, nil
	}

	entry, ok, err := s.remote.Get(ctx, key)
	if err != nil || !ok {
		return Entry{}, false, err
	}
	if err := s.local.Set(ctx, key, entry); err != nil {
		return entry, true, nil
	}
	return entry, true, nil
}

func (s *TieredStore) Set(ctx context.Context, key string, entry Entry) error {
	if err := s.remote.Set(ctx, key, entry); err != nil {
		return err
	}
	return s.local.Set(ctx, key, entry)
}

func (s *TieredStore) Close() error {
	localErr := s.local.Close()
	remoteErr := s.remote.Close()
	if localErr != nil {
		return localErr
	}
	return remoteErr
}
