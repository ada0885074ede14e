// Package validation provides the built-in ValidationRule
// implementations run optionally at the end of discovery (spec.md
// §4.1 step 6).
package validation

import (
	"fmt"

	"github.com/CPS-IT/typo3-upgrade-analyser/internal/discovery"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/installation"
)

// VersionKnown flags installations whose version could not be
// extracted at all, or was extracted with low reliability — both
// cases the upstream analyzers should be warned about before trusting
// an upgrade-window calculation derived from it.
type VersionKnown struct {
	MinReliability float64
}

func NewVersionKnown(minReliability float64) VersionKnown {
	if minReliability <= 0 {
		minReliability = 0.5
	}
	return VersionKnown{MinReliability: minReliability}
}

func (VersionKnown) Name() string { return "version_known" }

func (VersionKnown) AppliesTo(inst *installation.Installation) bool {
	return inst != nil
}

func (v VersionKnown) Validate(inst *installation.Installation) ([]discovery.ValidationIssue, error) {
	if inst.Version.IsZero() {
		return []discovery.ValidationIssue{{
			Rule:     v.Name(),
			Severity: discovery.SeverityError,
			Message:  "installation version could not be determined",
			Category: "version",
		}}, nil
	}

	reliability, _ := inst.Metadata["version_reliability"].(float64)
	if reliability > 0 && reliability < v.MinReliability {
		return []discovery.ValidationIssue{{
			Rule:     v.Name(),
			Severity: discovery.SeverityWarning,
			Message:  fmt.Sprintf("version %s was extracted with low reliability (%.2f)", inst.Version, reliability),
			Category: "version",
			Recommendations: []string{
				"confirm the installed core version manually before trusting upgrade-window calculations",
			},
		}}, nil
	}
	return nil, nil
}

// ModeKnown flags installations whose layout mode could not be
// determined (stuck at Mode unknown).
type ModeKnown struct{}

func (ModeKnown) Name() string { return "mode_known" }

func (ModeKnown) AppliesTo(inst *installation.Installation) bool { return inst != nil }

func (ModeKnown) Validate(inst *installation.Installation) ([]discovery.ValidationIssue, error) {
	if inst.Mode == installation.ModeUnknown || inst.Mode == "" {
		return []discovery.ValidationIssue{{
			Rule:     "mode_known",
			Severity: discovery.SeverityWarning,
			Message:  "installation layout mode could not be determined; path resolution will fall back to auto-detection per request",
			Category: "layout",
		}}, nil
	}
	return nil, nil
}
