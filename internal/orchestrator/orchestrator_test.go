package orchestrator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CPS-IT/typo3-upgrade-analyser/internal/analysis"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/extension"
)

type stubRunner struct {
	name     string
	supports func(extension.Extension) bool
	run      func(ctx context.Context, ext extension.Extension) analysis.Result
}

func (s stubRunner) Name() string                         { return s.name }
func (s stubRunner) Supports(ext extension.Extension) bool { return s.supports(ext) }
func (s stubRunner) Run(ctx context.Context, ext extension.Extension, _ analysis.Context) analysis.Result {
	return s.run(ctx, ext)
}

func alwaysSupports(extension.Extension) bool { return true }

func simpleResult(name string, ext extension.Extension) analysis.Result {
	return analysis.NewResultBuilder(name, ext.Identifier()).Build()
}

func TestOrchestrator_RunsEveryExtensionAnalyzerPair(t *testing.T) {
	var calls int32
	runner := stubRunner{
		name:     "probe",
		supports: alwaysSupports,
		run: func(ctx context.Context, ext extension.Extension) analysis.Result {
			atomic.AddInt32(&calls, 1)
			return simpleResult("probe", ext)
		},
	}

	extensions := []extension.Extension{{Key: "a"}, {Key: "b"}, {Key: "c"}}
	o := New(Config{PoolSize: 2}, nil)
	results := o.Run(context.Background(), extensions, []Runner{runner}, analysis.Context{})

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Len(t, results, 3)
}

func TestOrchestrator_SkipsUnsupportedPairs(t *testing.T) {
	runner := stubRunner{
		name:     "composer-only",
		supports: func(ext extension.Extension) bool { return ext.Type == extension.TypeComposer },
		run: func(ctx context.Context, ext extension.Extension) analysis.Result {
			return simpleResult("composer-only", ext)
		},
	}

	extensions := []extension.Extension{
		{Key: "a", Type: extension.TypeComposer},
		{Key: "b", Type: extension.TypeSystem},
	}
	o := New(Config{PoolSize: 2}, nil)
	results := o.Run(context.Background(), extensions, []Runner{runner}, analysis.Context{})

	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Extension.Key)
}

func TestOrchestrator_ResultsAreSortedByAnalyzerThenExtensionKey(t *testing.T) {
	makeRunner := func(name string) Runner {
		return stubRunner{name: name, supports: alwaysSupports, run: func(ctx context.Context, ext extension.Extension) analysis.Result {
			return simpleResult(name, ext)
		}}
	}

	extensions := []extension.Extension{{Key: "zeta"}, {Key: "alpha"}}
	analyzers := []Runner{makeRunner("b_analyzer"), makeRunner("a_analyzer")}

	o := New(Config{PoolSize: 4}, nil)
	results := o.Run(context.Background(), extensions, analyzers, analysis.Context{})

	require.Len(t, results, 4)
	for i := 1; i < len(results); i++ {
		prev, cur := results[i-1], results[i]
		less := prev.AnalyzerName < cur.AnalyzerName ||
			(prev.AnalyzerName == cur.AnalyzerName && prev.Extension.Key <= cur.Extension.Key)
		assert.True(t, less, "results not sorted: %+v before %+v", prev, cur)
	}
}

func TestOrchestrator_CapsConcurrentHeavyAnalyzerInvocations(t *testing.T) {
	var current, maxObserved int32
	heavy := stubRunner{
		name:     "rewrite",
		supports: alwaysSupports,
		run: func(ctx context.Context, ext extension.Extension) analysis.Result {
			n := atomic.AddInt32(&current, 1)
			for {
				old := atomic.LoadInt32(&maxObserved)
				if n <= old || atomic.CompareAndSwapInt32(&maxObserved, old, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return simpleResult("rewrite", ext)
		},
	}

	extensions := make([]extension.Extension, 8)
	for i := range extensions {
		extensions[i] = extension.Extension{Key: string(rune('a' + i))}
	}

	o := New(Config{PoolSize: 8, RewriteConcurrency: 2}, nil)
	results := o.Run(context.Background(), extensions, []Runner{heavy}, analysis.Context{})

	assert.Len(t, results, 8)
	assert.LessOrEqual(t, atomic.LoadInt32(&maxObserved), int32(2))
}

func TestOrchestrator_CancellationStopsRemainingWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var started int32
	runner := stubRunner{
		name:     "slow",
		supports: alwaysSupports,
		run: func(ctx context.Context, ext extension.Extension) analysis.Result {
			atomic.AddInt32(&started, 1)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			return simpleResult("slow", ext)
		},
	}

	extensions := make([]extension.Extension, 20)
	for i := range extensions {
		extensions[i] = extension.Extension{Key: string(rune('a' + i))}
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	o := New(Config{PoolSize: 2}, nil)
	results := o.Run(ctx, extensions, []Runner{runner}, analysis.Context{})

	assert.Less(t, len(results), 20)
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Greater(t, cfg.PoolSize, 0)
	assert.GreaterOrEqual(t, cfg.RewriteConcurrency, 1)
	assert.Equal(t, "rewrite", cfg.HeavyAnalyzerName)
}
