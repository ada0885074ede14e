package analyzer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CPS-IT/typo3-upgrade-analyser/internal/analysis"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/cache"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/extension"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/version"
)

type countingCapability struct {
	name  string
	calls int
	fn    func(ext extension.Extension, analysisCtx analysis.Context) analysis.Result
}

func (c *countingCapability) Name() string        { return c.name }
func (c *countingCapability) Description() string  { return "counts invocations for cache tests" }
func (c *countingCapability) RequiredTools() []string { return nil }
func (c *countingCapability) Supports(ext extension.Extension) bool { return true }
func (c *countingCapability) DoAnalyze(_ context.Context, ext extension.Extension, analysisCtx analysis.Context) analysis.Result {
	c.calls++
	return c.fn(ext, analysisCtx)
}

func newsExtension() extension.Extension {
	return extension.Extension{Key: "news", Version: version.MustParse("11.5.0"), Type: extension.TypeComposer}
}

func testContext() analysis.Context {
	return analysis.Context{CurrentVersion: version.MustParse("11.5.0"), TargetVersion: version.MustParse("12.4.0")}
}

func TestDriver_CachesSuccessfulResultAcrossCalls(t *testing.T) {
	store, err := cache.NewMemoryStore(10)
	require.NoError(t, err)

	cap := &countingCapability{
		name: "version_availability",
		fn: func(ext extension.Extension, _ analysis.Context) analysis.Result {
			return analysis.NewResultBuilder("version_availability", ext.Identifier()).WithRiskScore(2.5).Build()
		},
	}
	driver := New(cap, store, nil)
	ext := newsExtension()
	ctx := testContext()

	first := driver.Run(context.Background(), ext, ctx)
	second := driver.Run(context.Background(), ext, ctx)

	assert.Equal(t, 1, cap.calls, "second run should be served from cache")
	assert.Equal(t, first.RiskScore, second.RiskScore)
	assert.True(t, second.Successful)
}

func TestDriver_DoesNotCacheUnsuccessfulResult(t *testing.T) {
	store, err := cache.NewMemoryStore(10)
	require.NoError(t, err)

	cap := &countingCapability{
		name: "rewrite",
		fn: func(ext extension.Extension, _ analysis.Context) analysis.Result {
			return analysis.Failure("rewrite", ext.Identifier(), assertError("tool not found"))
		},
	}
	driver := New(cap, store, nil)
	ext := newsExtension()
	ctx := testContext()

	driver.Run(context.Background(), ext, ctx)
	driver.Run(context.Background(), ext, ctx)

	assert.Equal(t, 2, cap.calls, "a failed result must never be cached")
}

func TestDriver_PanicBecomesUnsuccessfulResult(t *testing.T) {
	store, err := cache.NewMemoryStore(10)
	require.NoError(t, err)

	cap := &countingCapability{
		name: "code_metrics",
		fn: func(ext extension.Extension, _ analysis.Context) analysis.Result {
			panic("boom")
		},
	}
	driver := New(cap, store, nil)

	result := driver.Run(context.Background(), newsExtension(), testContext())

	assert.False(t, result.Successful)
	assert.Contains(t, result.Error, "boom")
}

func TestDriver_DisableCacheBypassesStore(t *testing.T) {
	store, err := cache.NewMemoryStore(10)
	require.NoError(t, err)

	cap := &countingCapability{
		name: "version_availability",
		fn: func(ext extension.Extension, _ analysis.Context) analysis.Result {
			return analysis.NewResultBuilder("version_availability", ext.Identifier()).WithRiskScore(1).Build()
		},
	}
	driver := New(cap, store, nil)
	ext := newsExtension()
	ctx := testContext()
	ctx.DisableCache = true

	driver.Run(context.Background(), ext, ctx)
	driver.Run(context.Background(), ext, ctx)

	assert.Equal(t, 2, cap.calls)
}

func TestDriver_ExpiredCacheEntryIsRecomputed(t *testing.T) {
	store, err := cache.NewMemoryStore(10)
	require.NoError(t, err)

	cap := &countingCapability{
		name: "version_availability",
		fn: func(ext extension.Extension, _ analysis.Context) analysis.Result {
			return analysis.NewResultBuilder("version_availability", ext.Identifier()).WithRiskScore(3).Build()
		},
	}
	driver := New(cap, store, nil)
	ext := newsExtension()
	ctx := testContext()
	ctx.CacheTTLSeconds = 1

	driver.Run(context.Background(), ext, ctx)
	time.Sleep(1100 * time.Millisecond)
	driver.Run(context.Background(), ext, ctx)

	assert.Equal(t, 2, cap.calls, "an entry older than its ttl must be recomputed")
}

type simpleError string

func (e simpleError) Error() string { return string(e) }

func assertError(msg string) error { return simpleError(msg) }
