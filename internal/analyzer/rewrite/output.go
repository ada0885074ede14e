package rewrite

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/CPS-IT/typo3-upgrade-analyser/internal/analysis"
)

// toolOutput is the parsed shape of the tool's stdout (spec.md §6.3),
// normalized from either the newer file_diffs shape or the legacy
// changed_files shape into one common representation.
type toolOutput struct {
	ChangedFileCount int
	Entries          []fileEntry
}

type fileEntry struct {
	File           string
	AppliedRectors []appliedRector
	Diff           string
}

type appliedRector struct {
	Class   string
	Message string
	Line    int
	Old     string
	New     string
}

// rawOutput mirrors the JSON wire shape exactly; appliedRectors
// entries may be either a bare class-name string or an object, so they
// are decoded via json.RawMessage and disambiguated in decodeRectors.
type rawOutput struct {
	Totals struct {
		ChangedFiles int `json:"changed_files"`
	} `json:"totals"`
	FileDiffs    []rawFileEntry    `json:"file_diffs"`
	ChangedFiles []json.RawMessage `json:"changed_files"`
	Errors       []json.RawMessage `json:"errors"`
}

type rawFileEntry struct {
	File           string            `json:"file"`
	AppliedRectors []json.RawMessage `json:"applied_rectors"`
	Diff           string            `json:"diff"`
}

type rawRectorObject struct {
	Class   string `json:"class"`
	Message string `json:"message"`
	Line    int    `json:"line"`
	Old     string `json:"old"`
	New     string `json:"new"`
}

func parseToolOutput(stdout string) (toolOutput, error) {
	stdout = strings.TrimSpace(stdout)
	if stdout == "" {
		return toolOutput{}, fmt.Errorf("rewrite: empty tool output")
	}

	var raw rawOutput
	if err := json.Unmarshal([]byte(stdout), &raw); err != nil {
		return toolOutput{}, fmt.Errorf("rewrite: unparseable tool output: %w", err)
	}

	out := toolOutput{ChangedFileCount: raw.Totals.ChangedFiles}

	if len(raw.FileDiffs) > 0 {
		for _, fd := range raw.FileDiffs {
			out.Entries = append(out.Entries, fileEntry{
				File:           fd.File,
				AppliedRectors: decodeRectors(fd.AppliedRectors),
				Diff:           fd.Diff,
			})
		}
		return out, nil
	}

	// Legacy changed_files shape: either the same per-file object shape
	// or a bare list of filename strings (spec.md §6.3).
	for _, raw := range raw.ChangedFiles {
		var asString string
		if err := json.Unmarshal(raw, &asString); err == nil {
			out.Entries = append(out.Entries, fileEntry{File: asString})
			continue
		}
		var asObject rawFileEntry
		if err := json.Unmarshal(raw, &asObject); err == nil {
			out.Entries = append(out.Entries, fileEntry{
				File:           asObject.File,
				AppliedRectors: decodeRectors(asObject.AppliedRectors),
				Diff:           asObject.Diff,
			})
		}
	}

	return out, nil
}

func decodeRectors(raw []json.RawMessage) []appliedRector {
	var out []appliedRector
	for _, r := range raw {
		var asString string
		if err := json.Unmarshal(r, &asString); err == nil {
			out = append(out, appliedRector{Class: asString})
			continue
		}
		var asObject rawRectorObject
		if err := json.Unmarshal(r, &asObject); err == nil {
			out = append(out, appliedRector{
				Class:   asObject.Class,
				Message: asObject.Message,
				Line:    asObject.Line,
				Old:     asObject.Old,
				New:     asObject.New,
			})
		}
	}
	return out
}

// classifyFindings applies spec.md §4.7's substring-matching heuristic
// to every applied rector across every file.
func classifyFindings(out toolOutput) []analysis.Finding {
	var findings []analysis.Finding
	for _, entry := range out.Entries {
		for _, rector := range entry.AppliedRectors {
			severity, changeType := classify(rector.Class)
			findings = append(findings, analysis.Finding{
				File:         entry.File,
				Line:         rector.Line,
				RuleClass:    rector.Class,
				Message:      rector.Message,
				Severity:     severity,
				ChangeType:   changeType,
				OldCode:      rector.Old,
				NewCode:      rector.New,
				SuggestedFix: suggestedFix(rector, entry.Diff),
			})
		}
	}
	return findings
}

func classify(ruleClass string) (analysis.Severity, analysis.ChangeType) {
	switch {
	case strings.Contains(ruleClass, "Remove"):
		switch {
		case strings.Contains(ruleClass, "Method"):
			return analysis.SeverityCritical, analysis.ChangeMethodSignature
		case strings.Contains(ruleClass, "Class"):
			return analysis.SeverityCritical, analysis.ChangeClassRemoval
		default:
			return analysis.SeverityCritical, analysis.ChangeBreaking
		}
	case strings.Contains(ruleClass, "Substitute"), strings.Contains(ruleClass, "Replace"):
		return analysis.SeverityWarning, analysis.ChangeDeprecation
	case strings.Contains(ruleClass, "Migrate"):
		return analysis.SeverityWarning, analysis.ChangeConfiguration
	default:
		return analysis.SeverityInfo, analysis.ChangeBestPractice
	}
}

// suggestedFix implements spec.md §4.7's derivation rules in priority
// order: both old/new present, only one present, or a diff-only hunk
// extraction as a last resort.
func suggestedFix(r appliedRector, diff string) string {
	switch {
	case r.Old != "" && r.New != "":
		return fmt.Sprintf("Replace '%s' with '%s'", r.Old, r.New)
	case r.New != "":
		return fmt.Sprintf("Add: '%s'", r.New)
	case r.Old != "":
		return fmt.Sprintf("Remove: '%s'", r.Old)
	default:
		return diffHunkFix(diff)
	}
}

// diffHunkFix heuristically extracts the first removed and added line
// from a unified diff, for tool output that reports neither a
// structured old/new pair.
func diffHunkFix(diff string) string {
	var removed, added string
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case removed == "" && strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			removed = strings.TrimPrefix(line, "-")
		case added == "" && strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			added = strings.TrimPrefix(line, "+")
		}
		if removed != "" && added != "" {
			break
		}
	}
	switch {
	case removed != "" && added != "":
		return fmt.Sprintf("Replace '%s' with '%s'", strings.TrimSpace(removed), strings.TrimSpace(added))
	case added != "":
		return fmt.Sprintf("Add: '%s'", strings.TrimSpace(added))
	case removed != "":
		return fmt.Sprintf("Remove: '%s'", strings.TrimSpace(removed))
	default:
		return ""
	}
}

// findingsRequiringAttention returns the subset of findings a human
// should review before accepting the tool's suggested fixes (spec.md
// §4.7): anything whose change type demands manual intervention.
func findingsRequiringAttention(findings []analysis.Finding) []analysis.Finding {
	var out []analysis.Finding
	for _, f := range findings {
		if f.RequiresManualIntervention() {
			out = append(out, f)
		}
	}
	return out
}

// recommendationFor renders a single human-facing line for a finding
// that needs manual review.
func recommendationFor(f analysis.Finding) string {
	if f.SuggestedFix == "" {
		return fmt.Sprintf("%s:%d — %s requires manual review", f.File, f.Line, f.RuleClass)
	}
	return fmt.Sprintf("%s:%d — %s: %s", f.File, f.Line, f.RuleClass, f.SuggestedFix)
}
