// Package orchestrator implements the concurrency/resource model of
// spec.md §5: a bounded worker pool over (extension, analyzer) pairs,
// with a separate, smaller concurrency cap for the memory-intensive
// rewrite analyzer, deterministic result ordering, and cancellation
// that reaches in-flight work within one scheduling tick.
//
// Grounded on the teacher's PublishingQueue worker pool
// (internal/infrastructure/publishing/queue.go): a fixed-size pool of
// goroutines draining a job channel, sized by configuration rather
// than spawned per-item.
package orchestrator

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"

	"github.com/CPS-IT/typo3-upgrade-analyser/internal/analysis"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/extension"
)

// Runner is the minimal interface the orchestrator needs from an
// analyzer; analyzer.Driver implements it directly.
type Runner interface {
	Name() string
	Supports(ext extension.Extension) bool
	Run(ctx context.Context, ext extension.Extension, analysisCtx analysis.Context) analysis.Result
}

// Config tunes the worker pool's shape.
type Config struct {
	// PoolSize is the level-1 worker pool size (spec.md §5 "default:
	// number of CPU cores").
	PoolSize int
	// RewriteConcurrency separately caps concurrent invocations of the
	// named heavy analyzer (spec.md §5 "backpressure... default:
	// max(1, cores/2)").
	RewriteConcurrency int
	// HeavyAnalyzerName identifies which analyzer the RewriteConcurrency
	// cap applies to; empty falls back to "rewrite".
	HeavyAnalyzerName string
}

func (c Config) withDefaults() Config {
	if c.PoolSize <= 0 {
		c.PoolSize = runtime.NumCPU()
	}
	if c.RewriteConcurrency <= 0 {
		c.RewriteConcurrency = max(1, runtime.NumCPU()/2)
	}
	if c.HeavyAnalyzerName == "" {
		c.HeavyAnalyzerName = "rewrite"
	}
	return c
}

// task is one (extension, analyzer) unit of work (spec.md §5 "Level 1").
type task struct {
	ext      extension.Extension
	analyzer Runner
}

// Orchestrator runs a bounded pool of workers over a task list.
type Orchestrator struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Orchestrator {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{cfg: cfg, logger: logger}
}

// Run submits one task per (extension, analyzer) pair where
// analyzer.Supports(extension), executes them across the bounded
// pool, and returns results sorted by (analyzerName, extension.key)
// for deterministic reporting (spec.md §5 "Ordering guarantees").
//
// ctx cancellation propagates to every in-flight Runner.Run call
// since each task goroutine passes ctx straight through; a Runner that
// honors ctx (as analyzer.Driver's wrapped capabilities do, via
// exec.CommandContext / http requests built with it) aborts promptly.
func (o *Orchestrator) Run(ctx context.Context, extensions []extension.Extension, analyzers []Runner, analysisCtx analysis.Context) []analysis.Result {
	tasks := buildTasks(extensions, analyzers)
	if len(tasks) == 0 {
		return nil
	}

	jobs := make(chan task, len(tasks))
	for _, t := range tasks {
		jobs <- t
	}
	close(jobs)

	results := make([]analysis.Result, 0, len(tasks))
	var mu sync.Mutex

	heavySem := make(chan struct{}, o.cfg.RewriteConcurrency)

	var wg sync.WaitGroup
	for i := 0; i < o.cfg.PoolSize; i++ {
		wg.Add(1)
		go o.worker(ctx, i, jobs, heavySem, &mu, &results, analysisCtx, &wg)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool {
		if results[i].AnalyzerName != results[j].AnalyzerName {
			return results[i].AnalyzerName < results[j].AnalyzerName
		}
		return results[i].Extension.Key < results[j].Extension.Key
	})

	return results
}

func (o *Orchestrator) worker(
	ctx context.Context,
	id int,
	jobs <-chan task,
	heavySem chan struct{},
	mu *sync.Mutex,
	results *[]analysis.Result,
	analysisCtx analysis.Context,
	wg *sync.WaitGroup,
) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-jobs:
			if !ok {
				return
			}
			o.runTask(ctx, t, heavySem, mu, results, analysisCtx)
		}
	}
}

func (o *Orchestrator) runTask(
	ctx context.Context,
	t task,
	heavySem chan struct{},
	mu *sync.Mutex,
	results *[]analysis.Result,
	analysisCtx analysis.Context,
) {
	if t.analyzer.Name() == o.cfg.HeavyAnalyzerName {
		select {
		case heavySem <- struct{}{}:
			defer func() { <-heavySem }()
		case <-ctx.Done():
			return
		}
	}

	if ctx.Err() != nil {
		return
	}

	result := t.analyzer.Run(ctx, t.ext, analysisCtx)

	mu.Lock()
	*results = append(*results, result)
	mu.Unlock()
}

func buildTasks(extensions []extension.Extension, analyzers []Runner) []task {
	var tasks []task
	for _, ext := range extensions {
		for _, a := range analyzers {
			if a.Supports(ext) {
				tasks = append(tasks, task{ext: ext, analyzer: a})
			}
		}
	}
	return tasks
}
