package rewrite

import (
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/analysis"
)

// Summary aggregates classified findings into the metrics spec.md §4.7
// asks the analyzer to report alongside the raw finding list.
type Summary struct {
	TotalFindings    int
	CriticalIssues   int
	Warnings         int
	InfoIssues       int
	Suggestions      int
	AffectedFiles    int
	TotalFiles       int
	RuleBreakdown    map[string]int
	FileBreakdown    map[string]int
	TypeBreakdown    map[string]int
	ComplexityScore  float64
	EstimatedFixTime int // minutes
}

func buildSummary(out toolOutput, findings []analysis.Finding) Summary {
	s := Summary{
		TotalFiles:    len(out.Entries),
		RuleBreakdown: map[string]int{},
		FileBreakdown: map[string]int{},
		TypeBreakdown: map[string]int{},
	}

	affected := map[string]bool{}
	for _, f := range findings {
		s.TotalFindings++
		s.EstimatedFixTime += f.EstimatedEffort()
		s.RuleBreakdown[f.RuleClass]++
		s.TypeBreakdown[string(f.ChangeType)]++
		if f.File != "" {
			s.FileBreakdown[f.File]++
			affected[f.File] = true
		}

		switch f.Severity {
		case analysis.SeverityCritical:
			s.CriticalIssues++
		case analysis.SeverityWarning:
			s.Warnings++
		case analysis.SeverityInfo:
			s.InfoIssues++
		case analysis.SeveritySuggestion:
			s.Suggestions++
		}
	}
	s.AffectedFiles = len(affected)

	// complexityScore: a 0-10 scale driven by findings-per-file density,
	// weighted toward critical findings since those carry the largest
	// remediation risk.
	if s.TotalFiles > 0 {
		density := float64(s.CriticalIssues*3+s.Warnings*2+s.InfoIssues) / float64(s.TotalFiles)
		s.ComplexityScore = density
		if s.ComplexityScore > 10 {
			s.ComplexityScore = 10
		}
	}

	return s
}

// upgradeReadinessScore is an inverted 0-10 scale (10 = ready, 0 = not
// ready), the complement of riskScore's severity-weighted penalty.
func (s Summary) upgradeReadinessScore() float64 {
	if s.TotalFindings == 0 {
		return 10.0
	}
	penalty := float64(s.CriticalIssues)*2 + float64(s.Warnings) + float64(s.InfoIssues)*0.25
	score := 10.0 - penalty
	if score < 0 {
		score = 0
	}
	return score
}

// fileImpactPercentage is the share of the extension's files touched
// by any finding, as a 0-100 percentage.
func (s Summary) fileImpactPercentage() float64 {
	if s.TotalFiles == 0 {
		return 0
	}
	return float64(s.AffectedFiles) / float64(s.TotalFiles) * 100
}

// fileImpactRatio is the 0-1 form riskScore's formula operates on.
func (s Summary) fileImpactRatio() float64 {
	if s.TotalFiles == 0 {
		return 0
	}
	return float64(s.AffectedFiles) / float64(s.TotalFiles)
}

// riskLevel buckets the summary into the four bands spec.md §4.7 fixes
// the enum at. A clean run (no findings) is "low", never "none"; the
// clean-extension scenario (spec.md §8 scenario 5) reports readiness
// via upgradeReadinessScore, not a fifth riskLevel value.
func (s Summary) riskLevel() string {
	switch {
	case s.CriticalIssues >= 3:
		return "critical"
	case s.CriticalIssues > 0:
		return "high"
	case s.Warnings > 0:
		return "medium"
	default:
		return "low"
	}
}

// riskScore implements spec.md §4.7's formula: a baseline plus
// severity-weighted counts and a file-impact term, scaled by a
// complexity multiplier, plus an effort-band bonus, clamped to 10.
func riskScore(s Summary) float64 {
	score := 1.0 +
		1.2*float64(s.CriticalIssues) +
		0.6*float64(s.Warnings) +
		0.2*float64(s.InfoIssues) +
		1.5*s.fileImpactRatio()

	score *= 1 + s.ComplexityScore/20

	hours := float64(s.EstimatedFixTime) / 60
	switch {
	case hours > 16:
		score += 2
	case hours > 8:
		score += 1
	case hours > 4:
		score += 0.5
	}

	if score > 10 {
		score = 10
	}
	if score < 0 {
		score = 0
	}
	return score
}
