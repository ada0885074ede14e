// Package analyzer implements the Analyzer Driver (spec.md §4.5): a
// generic cache-fronted execution shell so each concrete analyzer only
// supplies DoAnalyze. Grounded on the teacher's AbstractCachedAnalyzer
// pattern generalized into a Go interface plus a type-parameterized
// Driver, per spec.md §9's "class inheritance maps to a capability set
// plus a generic envelope" design note.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/CPS-IT/typo3-upgrade-analyser/internal/analysis"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/cache"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/extension"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/metrics"
)

// Capability is the small interface every concrete analyzer
// implements; Driver wraps any Capability with caching, timing, and
// panic/error containment.
type Capability interface {
	Name() string
	Description() string
	Supports(ext extension.Extension) bool
	RequiredTools() []string
	DoAnalyze(ctx context.Context, ext extension.Extension, analysisCtx analysis.Context) analysis.Result
}

// KeyComponents lets a Capability contribute analyzer-specific fields
// to the cache key (spec.md §4.5; the rewrite analyzer contributes its
// tool binary path and rule-set count). Optional — a Capability
// that doesn't implement this is keyed on the common fields alone.
type KeyComponents interface {
	CacheKeyComponents(ext extension.Extension, analysisCtx analysis.Context) map[string]any
}

// DirValidator lets a Capability extend cache-entry validity with a
// directory-mtime check (spec.md §4.5 "Cached entry validity").
// Optional — a Capability that doesn't implement this is validated by
// ttl alone.
type DirValidator interface {
	ExtensionDirMTime(ext extension.Extension, analysisCtx analysis.Context) (*time.Time, error)
}

// ToolChecker lets a Capability report whether its external tool
// dependency is present before the driver ever calls DoAnalyze
// (spec.md §4.5/§6.4: "if absent, analyzer reports hasRequiredTools=
// false and is skipped by the driver"). Optional — a Capability with
// no external tool dependency doesn't need it.
type ToolChecker interface {
	HasRequiredTools() bool
}

const defaultTTLSeconds = 3600

// Driver wraps one Capability with the uniform execution envelope:
// compute cache key, return a cached hit, otherwise invoke DoAnalyze
// and cache a successful result.
type Driver struct {
	capability Capability
	store      cache.Store
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// New builds a Driver around capability, using store as its cache
// backend. logger defaults to slog.Default() when nil. Metrics are
// reported against the process-wide metrics.Default() singleton; use
// WithMetrics to override it (tests, isolated registries).
func New(capability Capability, store cache.Store, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{capability: capability, store: store, logger: logger, metrics: metrics.Default()}
}

// WithMetrics overrides the Driver's metrics sink, returning the same
// Driver for chaining.
func (d *Driver) WithMetrics(m *metrics.Metrics) *Driver {
	d.metrics = m
	return d
}

func (d *Driver) Name() string                         { return d.capability.Name() }
func (d *Driver) Description() string                  { return d.capability.Description() }
func (d *Driver) Supports(ext extension.Extension) bool { return d.capability.Supports(ext) }
func (d *Driver) RequiredTools() []string               { return d.capability.RequiredTools() }

// Run executes the full envelope described in spec.md §4.5.
func (d *Driver) Run(ctx context.Context, ext extension.Extension, analysisCtx analysis.Context) analysis.Result {
	if checker, ok := d.capability.(ToolChecker); ok && !checker.HasRequiredTools() {
		d.metrics.RecordRun(d.Name(), 0, true, true)
		return analysis.Skip(d.Name(), ext.Identifier(), "required tool not found: "+d.Name())
	}

	key := d.cacheKey(ext, analysisCtx)
	cachingEnabled := analysisCtx.CachingEnabled() && d.store != nil

	if cachingEnabled {
		if entry, ok := d.lookupValid(ctx, key, ext, analysisCtx); ok {
			d.metrics.RecordCacheLookup(d.Name(), true)
			return entryToResult(entry, ext)
		}
		d.metrics.RecordCacheLookup(d.Name(), false)
	}

	start := time.Now()
	result := d.invoke(ctx, ext, analysisCtx)
	d.metrics.RecordRun(d.Name(), time.Since(start).Seconds(), result.Successful, false)

	if cachingEnabled && result.Successful {
		ttl := analysisCtx.CacheTTLSeconds
		if ttl <= 0 {
			ttl = defaultTTLSeconds
		}
		entry := resultToEntry(result, time.Now(), ttl)
		if err := d.store.Set(ctx, key, entry); err != nil {
			d.logger.Warn("analyzer: failed to cache result", "analyzer", d.Name(), "extension", ext.Key, "error", err)
		}
	}

	return result
}

// invoke contains panics/errors from DoAnalyze per spec.md §7: no
// exception ever crosses the analyzer boundary.
func (d *Driver) invoke(ctx context.Context, ext extension.Extension, analysisCtx analysis.Context) (result analysis.Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("analyzer: panic recovered", "analyzer", d.Name(), "extension", ext.Key, "panic", r)
			result = analysis.Failure(d.Name(), ext.Identifier(), fmt.Errorf("analyzer panicked: %v", r))
		}
	}()
	return d.capability.DoAnalyze(ctx, ext, analysisCtx)
}

func (d *Driver) lookupValid(ctx context.Context, key string, ext extension.Extension, analysisCtx analysis.Context) (cache.Entry, bool) {
	entry, ok, err := d.store.Get(ctx, key)
	if err != nil {
		d.logger.Warn("analyzer: cache read failed, proceeding uncached", "analyzer", d.Name(), "error", err)
		return cache.Entry{}, false
	}
	if !ok {
		return cache.Entry{}, false
	}

	var dirMTime *time.Time
	if validator, ok := d.capability.(DirValidator); ok {
		mtime, err := validator.ExtensionDirMTime(ext, analysisCtx)
		if err != nil {
			d.logger.Warn("analyzer: directory mtime check failed, ignoring", "analyzer", d.Name(), "error", err)
		} else {
			dirMTime = mtime
		}
	}

	if !entry.Valid(time.Now(), dirMTime) {
		return cache.Entry{}, false
	}
	return entry, true
}

func (d *Driver) cacheKey(ext extension.Extension, analysisCtx analysis.Context) string {
	components := map[string]any{
		"extensionKey":     ext.Key,
		"extensionVersion": ext.Version.String(),
		"currentVersion":   analysisCtx.CurrentVersion.String(),
		"targetVersion":    analysisCtx.TargetVersion.String(),
		"extensionType":    string(ext.Type),
	}
	if ext.ComposerName != "" {
		components["composerName"] = ext.ComposerName
	}
	if contributor, ok := d.capability.(KeyComponents); ok {
		for k, v := range contributor.CacheKeyComponents(ext, analysisCtx) {
			components[k] = v
		}
	}
	return cache.GenerateKey(d.Name(), components)
}

func entryToResult(entry cache.Entry, ext extension.Extension) analysis.Result {
	return analysis.Result{
		AnalyzerName:    entry.AnalyzerName,
		Extension:       ext.Identifier(),
		Metrics:         entry.Metrics,
		RiskScore:       entry.RiskScore,
		Recommendations: entry.Recommendations,
		Successful:      entry.Successful,
		Error:           entry.Error,
	}
}

func resultToEntry(result analysis.Result, now time.Time, ttlSeconds int) cache.Entry {
	return cache.Entry{
		AnalyzerName:    result.AnalyzerName,
		ExtensionKey:    result.Extension.Key,
		Metrics:         result.Metrics,
		RiskScore:       result.RiskScore,
		Recommendations: result.Recommendations,
		Successful:      result.Successful,
		Error:           result.Error,
		CachedAt:        now,
		TTLSeconds:      ttlSeconds,
	}
}
