// Package versionavailability implements the Version-Availability
// Analyzer (spec.md §4.6): a 3-source fan-out (community registry,
// composer registry, git) producing a composite risk score.
package versionavailability

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/CPS-IT/typo3-upgrade-analyser/internal/analysis"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/extension"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/version"
)

const analyzerName = "version_availability"

// defaultSourceTimeout bounds the community registry query, the
// composer registry query, and the repository-URL lookup that seeds
// the git source. The git tag listing itself runs without a timeout.
const defaultSourceTimeout = 10 * time.Second

// Config tunes the analyzer's outbound registry access.
type Config struct {
	CommunityRegistryBaseURL string
	ComposerRegistryBaseURL  string
	SourceTimeout            time.Duration
	// RateLimitPerSecond caps, per second, the community query, the
	// composer query and the repository-URL lookup together: one
	// limiter is shared by all of them, not one per source. Zero
	// disables limiting.
	RateLimitPerSecond float64
}

func (c Config) withDefaults() Config {
	if c.SourceTimeout <= 0 {
		c.SourceTimeout = defaultSourceTimeout
	}
	if c.CommunityRegistryBaseURL == "" {
		c.CommunityRegistryBaseURL = "https://extensions.typo3.org"
	}
	if c.ComposerRegistryBaseURL == "" {
		c.ComposerRegistryBaseURL = "https://packagist.org"
	}
	return c
}

// Analyzer implements analyzer.Capability. Grounded on the teacher's
// circuit-breaker-guarded outbound-call pattern in
// internal/infrastructure/llm, adapted to a 3-way fan-out instead of a
// single client.
type Analyzer struct {
	cfg              Config
	community        *CommunityRegistryClient
	composer         *ComposerRegistryClient
	git              *GitSource
	communityBreaker *circuitBreaker
	limiter          *rate.Limiter
	logger           *slog.Logger
}

// New builds the analyzer. logger defaults to slog.Default() when nil.
func New(cfg Config, logger *slog.Logger) *Analyzer {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := &http.Client{Timeout: cfg.SourceTimeout}

	var limiter *rate.Limiter
	if cfg.RateLimitPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), 1)
	}

	return &Analyzer{
		cfg:              cfg,
		community:        NewCommunityRegistryClient(cfg.CommunityRegistryBaseURL, httpClient),
		composer:         NewComposerRegistryClient(cfg.ComposerRegistryBaseURL, httpClient),
		git:              NewGitSource(),
		communityBreaker: newCircuitBreaker(5, 30*time.Second, logger),
		limiter:          limiter,
		logger:           logger,
	}
}

func (a *Analyzer) Name() string        { return analyzerName }
func (a *Analyzer) Description() string { return "checks three independent sources for a version compatible with the upgrade target" }
func (a *Analyzer) RequiredTools() []string { return nil }

// Supports excludes system extensions, which never need outbound
// availability checks (spec.md §4.6 "System extensions short-circuit").
func (a *Analyzer) Supports(ext extension.Extension) bool {
	return ext.IsThirdParty()
}

// DoAnalyze runs the 3-source fan-out and composite scoring.
func (a *Analyzer) DoAnalyze(ctx context.Context, ext extension.Extension, analysisCtx analysis.Context) analysis.Result {
	builder := analysis.NewResultBuilder(analyzerName, ext.Identifier())

	if ext.Type == extension.TypeSystem {
		return builder.WithRiskScore(1.0).WithRecommendation("system extension: always shipped with core, availability check skipped").Build()
	}

	var wg sync.WaitGroup
	var communityOK, composerOK bool
	var communityErr, composerErr error
	var gitResult GitSourceResult
	var gitErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		communityOK, communityErr = a.checkCommunity(ctx, ext.Key, analysisCtx.TargetVersion)
	}()

	if ext.ComposerName != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			composerOK, composerErr = a.checkComposer(ctx, ext.ComposerName, analysisCtx.TargetVersion)
		}()
	}

	if ext.ComposerName != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			repoURL, err := a.withTimeout(ctx, func(c context.Context) (string, error) {
				return a.composer.RepositoryURL(c, ext.ComposerName)
			})
			if err != nil || repoURL == "" {
				return
			}
			gitResult, gitErr = a.git.AnalyzeExtension(repoURL, analysisCtx.TargetVersion)
		}()
	}

	wg.Wait()

	// spec.md §4.6: a fatal error from the community registry is the
	// only failure that aborts the analyzer; every other per-source
	// error (network failure, timeout, circuit open) is demoted to an
	// unavailable metric. The only thing treated as fatal here is the
	// caller's own context being cancelled.
	if communityErr != nil && isFatal(ctx, communityErr) {
		return analysis.Failure(analyzerName, ext.Identifier(), communityErr)
	}
	if communityErr != nil {
		builder.WithRecommendation("community registry check failed: " + communityErr.Error())
	}
	if composerErr != nil {
		builder.WithRecommendation("composer registry check failed: " + composerErr.Error())
	}
	if gitErr != nil {
		builder.WithRecommendation("git repository check failed: " + gitErr.Error())
	}

	builder.
		WithMetric("ter_available", communityOK).
		WithMetric("packagist_available", composerOK).
		WithMetric("git_available", gitResult.Available).
		WithMetric("git_health", gitResult.Health).
		WithMetric("git_url", gitResult.URL)

	weight := compositeWeight(communityOK, composerOK, gitResult)
	risk := riskForWeight(weight)
	builder.WithRiskScore(risk)

	if !communityOK && !composerOK && !gitResult.Available {
		builder.WithRecommendation("no compatible version found in any source; manual migration likely required")
	}

	return builder.Build()
}

// compositeWeight implements spec.md §4.6's W = 4T + 3P + (G? max(2H,1) : 0).
func compositeWeight(communityOK, composerOK bool, git GitSourceResult) float64 {
	w := 0.0
	if communityOK {
		w += 4
	}
	if composerOK {
		w += 3
	}
	if git.Available {
		h := git.Health
		contribution := 2 * h
		if contribution < 1 {
			contribution = 1
		}
		w += contribution
	}
	return w
}

func riskForWeight(w float64) float64 {
	switch {
	case w >= 6:
		return 1.5
	case w >= 4:
		return 2.5
	case w >= 2:
		return 5.0
	case w >= 1:
		return 7.0
	default:
		return 9.0
	}
}

func (a *Analyzer) checkCommunity(ctx context.Context, key string, target version.Version) (bool, error) {
	a.wait(ctx)
	var ok bool
	err := a.communityBreaker.Call(ctx, func(c context.Context) error {
		ctx, cancel := context.WithTimeout(c, a.cfg.SourceTimeout)
		defer cancel()
		var innerErr error
		ok, innerErr = a.community.HasVersionFor(ctx, key, target)
		return innerErr
	})
	return ok, err
}

func (a *Analyzer) checkComposer(ctx context.Context, composerName string, target version.Version) (bool, error) {
	a.wait(ctx)
	ctx, cancel := context.WithTimeout(ctx, a.cfg.SourceTimeout)
	defer cancel()
	return a.composer.HasVersionFor(ctx, composerName, target)
}

func (a *Analyzer) withTimeout(ctx context.Context, f func(ctx context.Context) (string, error)) (string, error) {
	a.wait(ctx)
	ctx, cancel := context.WithTimeout(ctx, a.cfg.SourceTimeout)
	defer cancel()
	return f(ctx)
}

func (a *Analyzer) wait(ctx context.Context) {
	if a.limiter == nil {
		return
	}
	_ = a.limiter.Wait(ctx)
}

// isFatal distinguishes the caller's own cancellation (which must
// abort the whole analyzer) from every other per-source failure
// (network error, timeout, circuit open), which spec.md §4.6 demotes
// to a "source unavailable" metric rather than an analyzer failure.
func isFatal(ctx context.Context, _ error) bool {
	return ctx.Err() != nil
}
