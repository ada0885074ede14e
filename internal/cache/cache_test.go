package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateKey_DeterministicRegardlessOfMapOrder(t *testing.T) {
	a := GenerateKey("version_availability", map[string]any{"extension": "news", "version": "11.5.0"})
	b := GenerateKey("version_availability", map[string]any{"version": "11.5.0", "extension": "news"})
	assert.Equal(t, a, b)
	assert.Regexp(t, `^analysis_version_availability_[0-9a-f]{64}$`, a)
}

func TestGenerateKey_DiffersByAnalyzerOrComponents(t *testing.T) {
	base := GenerateKey("version_availability", map[string]any{"extension": "news"})
	otherAnalyzer := GenerateKey("code_metrics", map[string]any{"extension": "news"})
	otherComponent := GenerateKey("version_availability", map[string]any{"extension": "other"})

	assert.NotEqual(t, base, otherAnalyzer)
	assert.NotEqual(t, base, otherComponent)
}

func TestEntry_Valid(t *testing.T) {
	now := time.Now()

	t.Run("within ttl is valid", func(t *testing.T) {
		e := Entry{CachedAt: now.Add(-10 * time.Second), TTLSeconds: 60}
		assert.True(t, e.Valid(now, nil))
	})

	t.Run("past ttl is invalid", func(t *testing.T) {
		e := Entry{CachedAt: now.Add(-120 * time.Second), TTLSeconds: 60}
		assert.False(t, e.Valid(now, nil))
	})

	t.Run("cached before directory mtime is invalid even within ttl", func(t *testing.T) {
		e := Entry{CachedAt: now.Add(-5 * time.Second), TTLSeconds: 60}
		dirMTime := now.Add(-1 * time.Second)
		assert.False(t, e.Valid(now, &dirMTime))
	})

	t.Run("cached after directory mtime is valid", func(t *testing.T) {
		e := Entry{CachedAt: now, TTLSeconds: 60}
		dirMTime := now.Add(-1 * time.Second)
		assert.True(t, e.Valid(now, &dirMTime))
	})
}
