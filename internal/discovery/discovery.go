// Package discovery implements the Installation & Extension Discovery
// strategy-pluggable pipeline (spec.md §4.1): infer an installation's
// layout mode, root version, and best-effort configuration from
// heterogeneous, partially-redundant on-disk sources.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/CPS-IT/typo3-upgrade-analyser/internal/installation"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/version"
)

// Strategy detects an installation's layout at a given root. Strategies
// are tried in descending Priority order; the first to return a
// non-nil Installation wins and remaining strategies are not
// consulted (spec.md §4.1 step 3).
type Strategy interface {
	Name() string
	Priority() int
	// RequiredIndicators lists paths, relative to the installation
	// root, that must all exist before Supports/Detect are even
	// attempted (cheap pre-filter).
	RequiredIndicators() []string
	// Supports performs a deeper, strategy-specific check.
	Supports(path string) bool
	// Detect returns a populated Installation, or nil if this
	// strategy ultimately does not apply. A returned error means the
	// strategy itself failed (treated as "attempted but failed" by
	// the engine, never propagated to the caller).
	Detect(path string) (*installation.Installation, error)
}

// VersionStrategy extracts the authoritative root Version. Like
// Strategy, these are priority-ordered and the first success wins;
// unlike Strategy, the winning extraction also reports a
// reliabilityScore so low-confidence extractions can still be used
// (tagged accordingly) rather than discarded.
type VersionStrategy interface {
	Name() string
	Priority() int
	// Extract attempts to determine the version. ok=false means this
	// strategy does not apply or could not find a version.
	Extract(path string) (v version.Version, reliability float64, ok bool)
}

// IssueSeverity mirrors the severities a ValidationRule may report.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "ERROR"
	SeverityWarning IssueSeverity = "WARNING"
	SeverityInfo    IssueSeverity = "INFO"
)

// ValidationIssue is one finding from a ValidationRule, shaped for the
// reporter per spec.md §6.5.
type ValidationIssue struct {
	Rule            string
	Severity        IssueSeverity
	Message         string
	Category        string
	Context         map[string]any
	AffectedPaths   []string
	Recommendations []string
}

// ValidationRule is an optional post-detection sanity check over a
// successfully detected Installation. A rule that panics or returns
// an error never aborts discovery — it becomes a synthetic ERROR
// issue (spec.md §4.1 step 6).
type ValidationRule interface {
	Name() string
	AppliesTo(inst *installation.Installation) bool
	Validate(inst *installation.Installation) ([]ValidationIssue, error)
}

// AttemptedStrategy records one Strategy's outcome for the discovery
// report, per spec.md §6.5.
type AttemptedStrategy struct {
	Strategy    string
	Supported   bool
	Result      string // "" when it did not produce an installation
	Reason      string // why it was skipped/failed, when applicable
	Priority    int
	Reliability *float64
}

// Result is the outcome of one discovery run (spec.md §4.1, §6.5).
type Result struct {
	Successful          bool
	ErrorMessage         string
	Installation         *installation.Installation
	SuccessfulStrategy   string
	ValidationIssues     []ValidationIssue
	AttemptedStrategies  []AttemptedStrategy
}

// ConfigDiscoverer enriches a detected Installation with best-effort
// configuration data. Implemented by internal/discovery/configdiscovery.
// A failure here never fails the overall discovery (spec.md §4.1 step 5).
type ConfigDiscoverer interface {
	Discover(ctx context.Context, inst *installation.Installation) (map[string]installation.ConfigurationData, error)
}

// Options tunes one Run call.
type Options struct {
	// RunValidation enables the ValidationRule pass (spec.md §4.1 step 6).
	RunValidation bool
}

// Engine is the Discovery Engine: a priority-sorted, immutable-after-
// construction list of strategies plus the version extractor,
// configuration discoverer, and validation rules (REDESIGN FLAGS: "no
// runtime registration required, a simple sorted slice suffices").
type Engine struct {
	strategies       []Strategy
	versionStrategies []VersionStrategy
	configDiscoverer ConfigDiscoverer
	validationRules  []ValidationRule
	logger           *slog.Logger
}

// New builds an Engine, sorting strategies and version strategies by
// descending priority once. Equal priorities keep registration order
// (stable sort), per spec.md §4.1 policy "ties: first registered wins".
func New(
	strategies []Strategy,
	versionStrategies []VersionStrategy,
	configDiscoverer ConfigDiscoverer,
	validationRules []ValidationRule,
	logger *slog.Logger,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	s := make([]Strategy, len(strategies))
	copy(s, strategies)
	sort.SliceStable(s, func(i, j int) bool { return s[i].Priority() > s[j].Priority() })

	vs := make([]VersionStrategy, len(versionStrategies))
	copy(vs, versionStrategies)
	sort.SliceStable(vs, func(i, j int) bool { return vs[i].Priority() > vs[j].Priority() })

	return &Engine{
		strategies:        s,
		versionStrategies: vs,
		configDiscoverer:  configDiscoverer,
		validationRules:   validationRules,
		logger:            logger,
	}
}

// Run executes the discovery pipeline described by spec.md §4.1's
// numbered algorithm and the state machine in its "State machine of a
// discovery attempt" subsection. Each transition is logged at debug
// level; every transition after Pending carries the name of the
// strategy it concerns.
func (e *Engine) Run(ctx context.Context, path string, opts Options) *Result {
	e.logger.Debug("discovery: Pending", "path", path)

	fi, err := os.Stat(path)
	if err != nil || !fi.IsDir() {
		return &Result{
			Successful:          false,
			ErrorMessage:        "Path does not exist or is not a directory",
			AttemptedStrategies: []AttemptedStrategy{},
		}
	}

	attempts := make([]AttemptedStrategy, 0, len(e.strategies))
	var winner *installation.Installation
	var winnerName string

	for _, strat := range e.strategies {
		e.logger.Debug("discovery: CheckingIndicators", "strategy", strat.Name())
		missing := firstMissingIndicator(path, strat.RequiredIndicators())
		if missing != "" {
			attempts = append(attempts, AttemptedStrategy{
				Strategy: strat.Name(), Supported: false,
				Reason: "required indicators missing: " + missing, Priority: strat.Priority(),
			})
			continue
		}

		e.logger.Debug("discovery: CheckingSupport", "strategy", strat.Name())
		if !safeSupports(strat, path) {
			attempts = append(attempts, AttemptedStrategy{
				Strategy: strat.Name(), Supported: false,
				Reason: "supports() returned false", Priority: strat.Priority(),
			})
			continue
		}

		e.logger.Debug("discovery: Detecting", "strategy", strat.Name())
		inst, detErr := safeDetect(strat, path)
		if detErr != nil {
			attempts = append(attempts, AttemptedStrategy{
				Strategy: strat.Name(), Supported: true,
				Reason: "detect failed: " + detErr.Error(), Priority: strat.Priority(),
			})
			continue
		}
		if inst == nil {
			attempts = append(attempts, AttemptedStrategy{
				Strategy: strat.Name(), Supported: true,
				Reason: "detect returned no installation", Priority: strat.Priority(),
			})
			continue
		}

		attempts = append(attempts, AttemptedStrategy{
			Strategy: strat.Name(), Supported: true, Result: "matched", Priority: strat.Priority(),
		})
		winner = inst
		winnerName = strat.Name()
		break // first non-null wins; remaining strategies are not consulted
	}

	if winner == nil {
		return &Result{
			Successful:          false,
			ErrorMessage:        "no detection strategy matched this installation",
			AttemptedStrategies: attempts,
		}
	}

	e.logger.Debug("discovery: ExtractingVersion", "strategy", winnerName)
	e.extractVersion(path, winner, &attempts)

	e.logger.Debug("discovery: EnrichingConfig", "strategy", winnerName)
	if e.configDiscoverer != nil {
		configs, cfgErr := e.safeDiscoverConfig(ctx, winner)
		if cfgErr != nil {
			e.logger.Warn("configuration discovery failed, continuing best-effort", "error", cfgErr)
		} else {
			winner = winner.WithConfigurations(configs)
		}
	}

	result := &Result{
		Successful:          true,
		Installation:        winner,
		SuccessfulStrategy:  winnerName,
		AttemptedStrategies: attempts,
	}

	if opts.RunValidation {
		e.logger.Debug("discovery: Validating", "strategy", winnerName)
		result.ValidationIssues = e.runValidation(winner)
	}

	e.logger.Debug("discovery: Done", "strategy", winnerName, "successful", true)
	return result
}

func (e *Engine) extractVersion(path string, inst *installation.Installation, attempts *[]AttemptedStrategy) {
	for _, vs := range e.versionStrategies {
		v, reliability, ok := safeExtract(vs, path)
		if !ok {
			continue
		}
		inst.Version = v
		inst.Metadata["version_strategy"] = vs.Name()
		inst.Metadata["version_reliability"] = reliability
		r := reliability
		*attempts = append(*attempts, AttemptedStrategy{
			Strategy: vs.Name(), Supported: true, Result: "version extracted", Priority: vs.Priority(), Reliability: &r,
		})
		return
	}
}

func (e *Engine) safeDiscoverConfig(ctx context.Context, inst *installation.Installation) (configs map[string]installation.ConfigurationData, err error) {
	defer func() {
		if r := recover(); r != nil {
			configs, err = nil, recoverAsError(r)
		}
	}()
	return e.configDiscoverer.Discover(ctx, inst)
}

func (e *Engine) runValidation(inst *installation.Installation) []ValidationIssue {
	var issues []ValidationIssue
	for _, rule := range e.validationRules {
		if !safeAppliesTo(rule, inst) {
			continue
		}
		found, err := e.safeValidate(rule, inst)
		if err != nil {
			issues = append(issues, ValidationIssue{
				Rule: rule.Name(), Severity: SeverityError,
				Message: "validation rule failed: " + err.Error(),
			})
			continue
		}
		issues = append(issues, found...)
	}
	return issues
}

func (e *Engine) safeValidate(rule ValidationRule, inst *installation.Installation) (issues []ValidationIssue, err error) {
	defer func() {
		if r := recover(); r != nil {
			issues, err = nil, recoverAsError(r)
		}
	}()
	return rule.Validate(inst)
}

func firstMissingIndicator(root string, indicators []string) string {
	for _, ind := range indicators {
		if _, err := os.Stat(filepath.Join(root, ind)); err != nil {
			return ind
		}
	}
	return ""
}

func safeSupports(s Strategy, path string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return s.Supports(path)
}

func safeDetect(s Strategy, path string) (inst *installation.Installation, err error) {
	defer func() {
		if r := recover(); r != nil {
			inst, err = nil, recoverAsError(r)
		}
	}()
	return s.Detect(path)
}

func safeExtract(vs VersionStrategy, path string) (v version.Version, reliability float64, ok bool) {
	defer func() {
		if recover() != nil {
			v, reliability, ok = version.Version{}, 0, false
		}
	}()
	return vs.Extract(path)
}

func safeAppliesTo(rule ValidationRule, inst *installation.Installation) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return rule.AppliesTo(inst)
}

func recoverAsError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}
