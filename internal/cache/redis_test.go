package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestRedisStore_SetGetRoundTrip(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewRedisStore(client, time.Minute)

	ctx := context.Background()
	entry := Entry{AnalyzerName: "code_metrics", ExtensionKey: "news", RiskScore: 4.2, CachedAt: time.Now()}
	require.NoError(t, store.Set(ctx, "k1", entry))

	got, ok, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entry.ExtensionKey, got.ExtensionKey)
	assert.Equal(t, entry.RiskScore, got.RiskScore)
}

func TestRedisStore_GetMissingKey(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewRedisStore(client, time.Minute)

	_, ok, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_DefaultsTTLWhenNonPositive(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewRedisStore(client, 0)
	assert.Equal(t, 24*time.Hour, store.ttl)
}

func TestTieredStore_PopulatesLocalOnRemoteHit(t *testing.T) {
	client, _ := setupTestRedis(t)
	remote := NewRedisStore(client, time.Minute)
	local, err := NewMemoryStore(10)
	require.NoError(t, err)

	tiered := NewTieredStore(local, remote)
	ctx := context.Background()

	entry := Entry{AnalyzerName: "rewrite", ExtensionKey: "news"}
	require.NoError(t, remote.Set(ctx, "k1", entry))

	_, ok, err := local.Get(ctx, "k1")
	require.NoError(t, err)
	require.False(t, ok, "local tier should start empty")

	got, ok, err := tiered.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entry.AnalyzerName, got.AnalyzerName)

	localGot, ok, err := local.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok, "tiered Get should have populated the local tier")
	assert.Equal(t, entry.AnalyzerName, localGot.AnalyzerName)
}

func TestTieredStore_SetWritesBothTiers(t *testing.T) {
	client, _ := setupTestRedis(t)
	remote := NewRedisStore(client, time.Minute)
	local, err := NewMemoryStore(10)
	require.NoError(t, err)

	tiered := NewTieredStore(local, remote)
	ctx := context.Background()
	entry := Entry{AnalyzerName: "version_availability"}
	require.NoError(t, tiered.Set(ctx, "k1", entry))

	_, ok, err := local.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = remote.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
}
