package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LiteProfileMemoryOnly(t *testing.T) {
	store, err := New(context.Background(), Options{Profile: ProfileLite}, nil)
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.(*MemoryStore)
	assert.True(t, ok, "expected a bare MemoryStore when no sqlite path is configured")
}

func TestNew_LiteProfileWithSQLitePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := New(context.Background(), Options{Profile: ProfileLite, SQLitePath: path}, nil)
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.(*TieredStore)
	assert.True(t, ok, "expected memory fronting sqlite")
}

func TestNew_StandardProfileRequiresDSN(t *testing.T) {
	_, err := New(context.Background(), Options{Profile: ProfileStandard}, nil)
	assert.Error(t, err)
}

func TestNew_UnknownProfile(t *testing.T) {
	_, err := New(context.Background(), Options{Profile: "bogus"}, nil)
	require.Error(t, err)
	var invalidProfile *ErrInvalidProfile
	assert.ErrorAs(t, err, &invalidProfile)
}
