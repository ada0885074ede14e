package rewrite

import (
	"fmt"

	"github.com/CPS-IT/typo3-upgrade-analyser/internal/version"
)

// RuleSet is one entry of the Rule Registry (spec.md §4.7.1): a static
// metadata record the rewrite analyzer consults to pick which rule
// sets apply to a given upgrade window. The registry never inspects a
// set's internal rules, only this metadata.
type RuleSet struct {
	ID            string
	Category      string
	MinVersion    version.Version
	MaxVersion    version.Version
	Severity      string
	ChangeType    string
	Description   string
	EffortMinutes int
}

// intersectsWindow reports whether this set's [MinVersion,MaxVersion]
// range intersects the open upgrade window (from, to].
func (rs RuleSet) intersectsWindow(from, to version.Version) bool {
	return rs.MinVersion.Compare(to) <= 0 && rs.MaxVersion.Compare(from) > 0
}

// Registry is the static rule-set metadata table. Read-only after
// construction (spec.md §5 "Rule Registry: read-only after
// construction"), so it needs no locking.
type Registry struct {
	sets []RuleSet
}

// NewDefaultRegistry builds the registry with the rule sets this
// analyzer ships with, covering the TYPO3 9-through-13 upgrade path.
func NewDefaultRegistry() *Registry {
	return &Registry{sets: []RuleSet{
		{ID: "general", Category: "general", MinVersion: version.Version{Major: 0}, MaxVersion: version.Version{Major: 999}, Severity: "info", ChangeType: "best_practice", Description: "version-independent code quality rules", EffortMinutes: 5},
		{ID: "code_quality", Category: "code_quality", MinVersion: version.Version{Major: 0}, MaxVersion: version.Version{Major: 999}, Severity: "info", ChangeType: "code_style", Description: "style and modernization rules applied on major jumps", EffortMinutes: 5},
		{ID: "TYPO3_9", Category: "core", MinVersion: version.Version{Major: 8}, MaxVersion: version.Version{Major: 9, Minor: 5, Patch: 99}, Severity: "warning", ChangeType: "deprecation", Description: "TYPO3 9 LTS deprecations and signal/slot to PSR-14 migration", EffortMinutes: 15},
		{ID: "TYPO3_10", Category: "core", MinVersion: version.Version{Major: 9}, MaxVersion: version.Version{Major: 10, Minor: 4, Patch: 99}, Severity: "warning", ChangeType: "deprecation", Description: "TYPO3 10 LTS deprecations", EffortMinutes: 15},
		{ID: "TYPO3_11", Category: "core", MinVersion: version.Version{Major: 10}, MaxVersion: version.Version{Major: 11, Minor: 5, Patch: 99}, Severity: "warning", ChangeType: "deprecation", Description: "TYPO3 11 LTS deprecations, site-handling config changes", EffortMinutes: 20},
		{ID: "TYPO3_12", Category: "core", MinVersion: version.Version{Major: 11}, MaxVersion: version.Version{Major: 12, Minor: 4, Patch: 99}, Severity: "critical", ChangeType: "breaking_change", Description: "TYPO3 12 breaking changes: removed extbase annotations, PSR-14 events", EffortMinutes: 30},
		{ID: "TYPO3_13", Category: "core", MinVersion: version.Version{Major: 12}, MaxVersion: version.Version{Major: 13, Minor: 4, Patch: 99}, Severity: "critical", ChangeType: "breaking_change", Description: "TYPO3 13 breaking changes: removed TypoScript conditions, fluid v3", EffortMinutes: 30},
	}}
}

// GetSetsForVersionUpgrade returns the union of sets whose range
// intersects (from, to], plus the always-on general set and, for
// major-version jumps, code_quality (spec.md §4.7.1).
func (r *Registry) GetSetsForVersionUpgrade(from, to version.Version) []RuleSet {
	var out []RuleSet
	seen := map[string]bool{}

	add := func(rs RuleSet) {
		if !seen[rs.ID] {
			seen[rs.ID] = true
			out = append(out, rs)
		}
	}

	for _, rs := range r.sets {
		if rs.ID == "general" {
			add(rs)
			continue
		}
		if rs.ID == "code_quality" {
			continue
		}
		if rs.intersectsWindow(from, to) {
			add(rs)
		}
	}

	if to.Major > from.Major {
		for _, rs := range r.sets {
			if rs.ID == "code_quality" {
				add(rs)
			}
		}
	}

	return out
}

func (r *Registry) GetSetsByCategory(category string) []RuleSet {
	var out []RuleSet
	for _, rs := range r.sets {
		if rs.Category == category {
			out = append(out, rs)
		}
	}
	return out
}

func (r *Registry) GetVersionSpecificSets(v version.Version) []RuleSet {
	var out []RuleSet
	for _, rs := range r.sets {
		if rs.ID == "general" || rs.ID == "code_quality" {
			continue
		}
		if rs.MinVersion.Compare(v) <= 0 && rs.MaxVersion.Compare(v) >= 0 {
			out = append(out, rs)
		}
	}
	return out
}

func (r *Registry) IsVersionSupported(v version.Version) bool {
	return len(r.GetVersionSpecificSets(v)) > 0
}

// Statistics is getSetsStatistics's return shape: a coarse census of
// the registry's contents, useful for diagnostics and for the rewrite
// analyzer's cache-key contribution (rule-set count).
type Statistics struct {
	TotalSets    int
	ByCategory   map[string]int
	ByChangeType map[string]int
}

func (r *Registry) GetSetsStatistics() Statistics {
	stats := Statistics{ByCategory: map[string]int{}, ByChangeType: map[string]int{}}
	for _, rs := range r.sets {
		stats.TotalSets++
		stats.ByCategory[rs.Category]++
		stats.ByChangeType[rs.ChangeType]++
	}
	return stats
}

// IDs returns every rule-set identifier in rs, for building tool
// configuration files.
func IDs(sets []RuleSet) []string {
	ids := make([]string, len(sets))
	for i, rs := range sets {
		ids[i] = rs.ID
	}
	return ids
}

func (rs RuleSet) String() string {
	return fmt.Sprintf("%s(%s)", rs.ID, rs.Category)
}
