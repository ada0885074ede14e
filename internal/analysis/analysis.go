// Package analysis defines the value objects analyzers produce and
// consume: the immutable AnalysisContext passed in, the AnalysisResult
// built incrementally and snapshotted on completion (spec.md §9 design
// note), and the Finding type the rewrite analyzer emits.
package analysis

import (
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/extension"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/version"
)

// Context is the immutable value object passed to every analyzer
// (spec.md §3 AnalysisContext). REDESIGN FLAGS: the analyzed
// installation's working directory is threaded explicitly here rather
// than read from process state (no implicit getcwd()/realpath()).
type Context struct {
	CurrentVersion   version.Version
	TargetVersion    version.Version
	InstallationPath string
	CustomPaths      map[string]string
	Configuration    map[string]any

	// DisableCache opts a run out of the analyzer driver's cache
	// envelope (spec.md §4.5: "per-context flag, default true").
	DisableCache bool
	// CacheTTLSeconds overrides the driver's default ttl (3600s) for
	// entries written during this run; zero means "use the default".
	CacheTTLSeconds int
}

// CachingEnabled reports spec.md §4.5's per-context caching flag,
// which defaults to true (the zero value of DisableCache is false).
func (c Context) CachingEnabled() bool {
	return !c.DisableCache
}

// Severity is a Finding's severity band.
type Severity string

const (
	SeverityCritical   Severity = "critical"
	SeverityWarning    Severity = "warning"
	SeverityInfo       Severity = "info"
	SeveritySuggestion Severity = "suggestion"
)

// ChangeType classifies the kind of upgrade impact a Finding reports.
type ChangeType string

const (
	ChangeBreaking             ChangeType = "breaking_change"
	ChangeDeprecation          ChangeType = "deprecation"
	ChangeMethodSignature      ChangeType = "method_signature"
	ChangeClassRemoval         ChangeType = "class_removal"
	ChangeInterface            ChangeType = "interface_change"
	ChangeConfiguration        ChangeType = "configuration_change"
	ChangeBestPractice         ChangeType = "best_practice"
	ChangeCodeStyle            ChangeType = "code_style"
)

var severityWeight = map[Severity]int{
	SeverityCritical:   4,
	SeverityWarning:    3,
	SeverityInfo:       2,
	SeveritySuggestion: 1,
}

// changeTypeWeight breaks ties between findings of equal severity; it
// never outranks severity itself (priorityScore keeps severity in the
// high digit), keeping spec.md §8's monotonicity invariant intact.
var changeTypeWeight = map[ChangeType]int{
	ChangeBreaking:        5,
	ChangeClassRemoval:    5,
	ChangeInterface:       4,
	ChangeMethodSignature: 3,
	ChangeConfiguration:   2,
	ChangeDeprecation:     2,
	ChangeBestPractice:    1,
	ChangeCodeStyle:       1,
}

// estimatedEffortMinutes is the lookup behind Finding.EstimatedEffort.
var estimatedEffortMinutes = map[ChangeType]int{
	ChangeBreaking:        30,
	ChangeClassRemoval:    25,
	ChangeInterface:       25,
	ChangeMethodSignature: 20,
	ChangeConfiguration:   15,
	ChangeDeprecation:     10,
	ChangeBestPractice:    5,
	ChangeCodeStyle:       5,
}

// manualInterventionTypes are the ChangeTypes a human must review; the
// rest are assumed safe to apply the tool's suggestedFix unattended.
var manualInterventionTypes = map[ChangeType]bool{
	ChangeBreaking:        true,
	ChangeClassRemoval:    true,
	ChangeInterface:       true,
	ChangeMethodSignature: true,
}

// Finding is a single issue reported by the rewrite analyzer (spec.md
// §3), keyed by file, line, and rule class.
type Finding struct {
	File         string
	Line         int
	RuleClass    string
	Message      string
	Severity     Severity
	ChangeType   ChangeType
	OldCode      string
	NewCode      string
	SuggestedFix string
	Context      map[string]any
}

// PriorityScore ranks findings for triage: severity dominates (the
// tens digit), changeType breaks ties within the same severity.
func (f Finding) PriorityScore() int {
	return severityWeight[f.Severity]*10 + changeTypeWeight[f.ChangeType]
}

// EstimatedEffort is the expected remediation time in minutes.
func (f Finding) EstimatedEffort() int {
	if m, ok := estimatedEffortMinutes[f.ChangeType]; ok {
		return m
	}
	return 10
}

// RequiresManualIntervention reports whether this finding's
// suggestedFix, if any, should never be applied unattended.
func (f Finding) RequiresManualIntervention() bool {
	return manualInterventionTypes[f.ChangeType]
}

// Result is the outcome of running one analyzer against one
// extension (spec.md §3 AnalysisResult). Build it with NewResultBuilder;
// once Build() returns, the value is treated as immutable by every
// consumer (cache, orchestrator, reporter).
type Result struct {
	AnalyzerName    string
	Extension       extension.Identifier
	Metrics         map[string]any
	RiskScore       float64
	Recommendations []string
	Successful      bool
	Error           string
	// Skipped marks a Result the driver produced without ever calling
	// DoAnalyze, because a required tool was unavailable (spec.md §4.5
	// "if absent, analyzer reports hasRequiredTools=false and is
	// skipped by the driver"). A skipped result is not a failure: it
	// carries no error, just an explanatory recommendation.
	Skipped bool
}

// ResultBuilder accumulates an AnalysisResult's fields incrementally,
// the way a single analyzer body typically adds metrics and
// recommendations as it discovers them, before Build() snapshots a
// clamped, immutable Result (spec.md §9 design note).
type ResultBuilder struct {
	result Result
}

func NewResultBuilder(analyzerName string, ext extension.Identifier) *ResultBuilder {
	return &ResultBuilder{result: Result{
		AnalyzerName: analyzerName,
		Extension:    ext,
		Metrics:      map[string]any{},
		Successful:   true,
	}}
}

func (b *ResultBuilder) WithMetric(key string, value any) *ResultBuilder {
	b.result.Metrics[key] = value
	return b
}

func (b *ResultBuilder) WithRiskScore(score float64) *ResultBuilder {
	b.result.RiskScore = score
	return b
}

func (b *ResultBuilder) WithRecommendation(rec string) *ResultBuilder {
	b.result.Recommendations = append(b.result.Recommendations, rec)
	return b
}

func (b *ResultBuilder) WithFailure(err string) *ResultBuilder {
	b.result.Successful = false
	b.result.Error = err
	return b
}

// Build returns an immutable snapshot. RiskScore is clamped to [0,10]
// regardless of how it got there (spec.md §8 invariant).
func (b *ResultBuilder) Build() Result {
	snapshot := b.result

	metrics := make(map[string]any, len(b.result.Metrics))
	for k, v := range b.result.Metrics {
		metrics[k] = v
	}
	snapshot.Metrics = metrics

	snapshot.Recommendations = append([]string{}, b.result.Recommendations...)

	switch {
	case snapshot.RiskScore < 0:
		snapshot.RiskScore = 0
	case snapshot.RiskScore > 10:
		snapshot.RiskScore = 10
	}

	return snapshot
}

// Failure builds a one-shot unsuccessful Result, the shape the
// Analyzer Driver produces when doAnalyze itself returns an error
// (spec.md §4.5 step 2 — never an exception past the driver boundary).
func Failure(analyzerName string, ext extension.Identifier, err error) Result {
	return NewResultBuilder(analyzerName, ext).WithFailure(err.Error()).Build()
}

// Skip builds a Result for a required tool that was never invoked
// (spec.md §4.5, §6.4 "external tool not installed" row): successful,
// risk-neutral, and distinguishable from both an ordinary result and a
// failure via the Skipped flag.
func Skip(analyzerName string, ext extension.Identifier, reason string) Result {
	return NewResultBuilder(analyzerName, ext).
		WithMetric("hasRequiredTools", false).
		WithRecommendation(reason).
		Build().
		asSkipped()
}

func (r Result) asSkipped() Result {
	r.Skipped = true
	return r
}
