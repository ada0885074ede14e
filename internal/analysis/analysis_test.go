package analysis

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CPS-IT/typo3-upgrade-analyser/internal/extension"
)

func TestResultBuilder_ClampsRiskScore(t *testing.T) {
	id := extension.Identifier{Key: "news"}

	high := NewResultBuilder("rewrite", id).WithRiskScore(15).Build()
	assert.Equal(t, 10.0, high.RiskScore)

	low := NewResultBuilder("rewrite", id).WithRiskScore(-3).Build()
	assert.Equal(t, 0.0, low.RiskScore)

	mid := NewResultBuilder("rewrite", id).WithRiskScore(6.5).Build()
	assert.Equal(t, 6.5, mid.RiskScore)
}

func TestResultBuilder_BuildIsIndependentSnapshot(t *testing.T) {
	id := extension.Identifier{Key: "news"}
	b := NewResultBuilder("rewrite", id).WithMetric("files", 3).WithRecommendation("upgrade now")

	first := b.Build()
	b.WithMetric("files", 99).WithRecommendation("second")
	second := b.Build()

	assert.Equal(t, 3, first.Metrics["files"])
	assert.Len(t, first.Recommendations, 1)
	assert.Equal(t, 99, second.Metrics["files"])
	assert.Len(t, second.Recommendations, 2)
}

func TestFailure(t *testing.T) {
	id := extension.Identifier{Key: "news"}
	result := Failure("rewrite", id, errors.New("tool crashed"))

	assert.False(t, result.Successful)
	assert.Equal(t, "tool crashed", result.Error)
	assert.Equal(t, 0.0, result.RiskScore)
}

func TestFinding_PriorityScore_MonotoneInSeverity(t *testing.T) {
	base := Finding{ChangeType: ChangeMethodSignature}

	critical := base
	critical.Severity = SeverityCritical
	warning := base
	warning.Severity = SeverityWarning
	info := base
	info.Severity = SeverityInfo
	suggestion := base
	suggestion.Severity = SeveritySuggestion

	require.Greater(t, critical.PriorityScore(), warning.PriorityScore())
	require.Greater(t, warning.PriorityScore(), info.PriorityScore())
	require.Greater(t, info.PriorityScore(), suggestion.PriorityScore())
}

func TestFinding_MethodSignature_MatchesSpecExample(t *testing.T) {
	f := Finding{
		RuleClass:  "RemoveMethodRector",
		Severity:   SeverityCritical,
		ChangeType: ChangeMethodSignature,
	}

	assert.True(t, f.RequiresManualIntervention())
	assert.Equal(t, 20, f.EstimatedEffort())
}

func TestFinding_CodeStyle_NoManualIntervention(t *testing.T) {
	f := Finding{Severity: SeveritySuggestion, ChangeType: ChangeCodeStyle}
	assert.False(t, f.RequiresManualIntervention())
}
