package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecomputeGuard_Acquire(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	t.Run("successful acquire", func(t *testing.T) {
		guard, err := NewRecomputeGuard(client, "analysis_rewrite_abc", GuardConfig{}, nil)
		require.NoError(t, err)

		acquired, err := guard.Acquire(ctx)
		require.NoError(t, err)
		assert.True(t, acquired)
	})

	t.Run("second guard on same key fails while first holds it (zero MaxRetries uses the default)", func(t *testing.T) {
		key := "analysis_rewrite_def"
		g1, err := NewRecomputeGuard(client, key, GuardConfig{}, nil)
		require.NoError(t, err)
		acquired1, err := g1.Acquire(ctx)
		require.NoError(t, err)
		require.True(t, acquired1)

		g2, err := NewRecomputeGuard(client, key, GuardConfig{}, nil)
		require.NoError(t, err)
		acquired2, err := g2.AcquireWithRetry(ctx, GuardConfig{MaxRetries: 0})
		require.NoError(t, err)
		assert.False(t, acquired2)
	})

	t.Run("acquire after release succeeds", func(t *testing.T) {
		key := "analysis_rewrite_ghi"
		g1, err := NewRecomputeGuard(client, key, GuardConfig{}, nil)
		require.NoError(t, err)
		acquired1, err := g1.Acquire(ctx)
		require.NoError(t, err)
		require.True(t, acquired1)

		require.NoError(t, g1.Release(ctx))

		g2, err := NewRecomputeGuard(client, key, GuardConfig{}, nil)
		require.NoError(t, err)
		acquired2, err := g2.AcquireWithRetry(ctx, GuardConfig{MaxRetries: 0})
		require.NoError(t, err)
		assert.True(t, acquired2)
	})

	t.Run("release without acquire is a no-op", func(t *testing.T) {
		guard, err := NewRecomputeGuard(client, "analysis_rewrite_never_held", GuardConfig{}, nil)
		require.NoError(t, err)
		assert.NoError(t, guard.Release(ctx))
	})
}

func TestRecomputeGuard_AcquireWithRetrySucceedsAfterHolderReleases(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()
	key := "analysis_rewrite_retry"

	holder, err := NewRecomputeGuard(client, key, GuardConfig{TTL: time.Minute}, nil)
	require.NoError(t, err)
	acquired, err := holder.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, acquired)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = holder.Release(ctx)
	}()

	waiter, err := NewRecomputeGuard(client, key, GuardConfig{}, nil)
	require.NoError(t, err)
	acquired, err = waiter.AcquireWithRetry(ctx, GuardConfig{MaxRetries: 10, RetryInterval: 20 * time.Millisecond})
	require.NoError(t, err)
	assert.True(t, acquired)
}
