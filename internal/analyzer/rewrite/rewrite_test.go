package rewrite

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CPS-IT/typo3-upgrade-analyser/internal/analysis"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/extension"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/version"
)

// fakeTool writes a tiny shell/batch script that echoes canned JSON to
// stdout, standing in for the real rewrite tool binary so these tests
// never depend on rector being installed.
func fakeTool(t *testing.T, stdout string) string {
	t.Helper()
	dir := t.TempDir()
	name := "fake-rewrite-tool"
	if runtime.GOOS == "windows" {
		name += ".bat"
	}
	path := filepath.Join(dir, name)

	var script string
	if runtime.GOOS == "windows" {
		script = "@echo off\r\necho " + stdout + "\r\n"
	} else {
		script = "#!/bin/sh\ncat <<'EOF'\n" + stdout + "\nEOF\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func testContext(t *testing.T) (extension.Extension, analysis.Context) {
	t.Helper()
	ext := extension.Extension{Key: "news", Type: extension.TypeComposer, ComposerName: "georgringer/news"}
	installationPath := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(installationPath, "vendor", "georgringer", "news"), 0o755))
	ctx := analysis.Context{
		CurrentVersion:   version.MustParse("11.5.0"),
		TargetVersion:    version.MustParse("12.4.0"),
		InstallationPath: installationPath,
	}
	return ext, ctx
}

func TestAnalyzer_CleanExtensionYieldsFullReadiness(t *testing.T) {
	tool := fakeTool(t, `{"totals":{"changed_files":0}}`)
	a := New(Config{BinaryPath: tool}, nil, nil)
	ext, ctx := testContext(t)

	result := a.DoAnalyze(context.Background(), ext, ctx)

	require.True(t, result.Successful)
	assert.Equal(t, 0, result.Metrics["totalFindings"])
	assert.Equal(t, 10.0, result.Metrics["upgradeReadinessScore"])
	assert.Equal(t, "low", result.Metrics["riskLevel"])
	assert.Contains(t, result.Recommendations[0], "ready")
}

func TestAnalyzer_ClassifiesRemoveMethodAsCriticalManualIntervention(t *testing.T) {
	stdout := `{
		"totals": {"changed_files": 1},
		"file_diffs": [
			{
				"file": "Classes/Domain/Repository/NewsRepository.php",
				"applied_rectors": [
					{"class": "RemoveMethodRector", "message": "findAll() removed", "line": 42, "old": "findAll()", "new": ""}
				],
				"diff": "--- a\n+++ b\n-    $this->findAll();\n"
			}
		]
	}`
	tool := fakeTool(t, stdout)
	a := New(Config{BinaryPath: tool}, nil, nil)
	ext, ctx := testContext(t)

	result := a.DoAnalyze(context.Background(), ext, ctx)

	require.True(t, result.Successful)
	assert.Equal(t, 1, result.Metrics["criticalIssues"])
	assert.Equal(t, "high", result.Metrics["riskLevel"])
	require.NotEmpty(t, result.Recommendations)
	assert.Contains(t, result.Recommendations[0], "RemoveMethodRector")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		ruleClass      string
		wantSeverity   analysis.Severity
		wantChangeType analysis.ChangeType
	}{
		{"RemoveMethodCallRector", analysis.SeverityCritical, analysis.ChangeMethodSignature},
		{"RemoveClassRector", analysis.SeverityCritical, analysis.ChangeClassRemoval},
		{"RemoveDeadCodeRector", analysis.SeverityCritical, analysis.ChangeBreaking},
		{"SubstituteConstructorRector", analysis.SeverityWarning, analysis.ChangeDeprecation},
		{"ReplaceAnnotationRector", analysis.SeverityWarning, analysis.ChangeDeprecation},
		{"MigrateSiteConfigurationRector", analysis.SeverityWarning, analysis.ChangeConfiguration},
		{"RenameVariableRector", analysis.SeverityInfo, analysis.ChangeBestPractice},
	}
	for _, tt := range tests {
		t.Run(tt.ruleClass, func(t *testing.T) {
			severity, changeType := classify(tt.ruleClass)
			assert.Equal(t, tt.wantSeverity, severity)
			assert.Equal(t, tt.wantChangeType, changeType)
		})
	}
}

func TestParseToolOutput_LegacyChangedFilesAsPlainStrings(t *testing.T) {
	out, err := parseToolOutput(`{"totals":{"changed_files":2},"changed_files":["a.php","b.php"]}`)
	require.NoError(t, err)
	assert.Equal(t, 2, out.ChangedFileCount)
	require.Len(t, out.Entries, 2)
	assert.Equal(t, "a.php", out.Entries[0].File)
	assert.Empty(t, out.Entries[0].AppliedRectors)
}

func TestParseToolOutput_LegacyChangedFilesAsObjects(t *testing.T) {
	out, err := parseToolOutput(`{"totals":{"changed_files":1},"changed_files":[{"file":"a.php","applied_rectors":["RemoveMethodRector"]}]}`)
	require.NoError(t, err)
	require.Len(t, out.Entries, 1)
	assert.Equal(t, "a.php", out.Entries[0].File)
	require.Len(t, out.Entries[0].AppliedRectors, 1)
	assert.Equal(t, "RemoveMethodRector", out.Entries[0].AppliedRectors[0].Class)
}

func TestParseToolOutput_RejectsEmptyOutput(t *testing.T) {
	_, err := parseToolOutput("")
	assert.Error(t, err)
}

func TestParseToolOutput_RejectsGarbage(t *testing.T) {
	_, err := parseToolOutput("not json at all")
	assert.Error(t, err)
}

func TestAnalyzer_MissingToolIsNotCalledDirectly(t *testing.T) {
	// HasRequiredTools is what the driver consults; DoAnalyze itself no
	// longer checks it (spec.md §4.5: the driver skips the run before
	// DoAnalyze is ever invoked).
	a := New(Config{BinaryPath: filepath.Join(t.TempDir(), "does-not-exist")}, nil, nil)
	assert.False(t, a.HasRequiredTools())
}

func TestAnalyzer_ToolLookupSucceedsForAbsolutePath(t *testing.T) {
	tool := fakeTool(t, `{"totals":{"changed_files":0}}`)
	a := New(Config{BinaryPath: tool}, nil, nil)
	assert.True(t, a.HasRequiredTools())
}

func TestAnalyzer_ToolLookupUsesPATHForRelativeNames(t *testing.T) {
	// "sh" (or "cmd" on windows) should always resolve via exec.LookPath.
	name := "sh"
	if runtime.GOOS == "windows" {
		name = "cmd"
	}
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not on PATH in this environment", name)
	}
	a := New(Config{BinaryPath: name}, nil, nil)
	assert.True(t, a.HasRequiredTools())
}

func TestAnalyzer_UnparseableOutputIsAFailure(t *testing.T) {
	tool := fakeTool(t, `not json`)
	a := New(Config{BinaryPath: tool}, nil, nil)
	ext, ctx := testContext(t)

	result := a.DoAnalyze(context.Background(), ext, ctx)

	assert.False(t, result.Successful)
	assert.NotEmpty(t, result.Error)
}

func TestRiskScore_ClampedToTen(t *testing.T) {
	s := Summary{CriticalIssues: 50, Warnings: 50, InfoIssues: 50, TotalFiles: 1, AffectedFiles: 1, EstimatedFixTime: 2000}
	assert.Equal(t, 10.0, riskScore(s))
}

func TestSummary_UpgradeReadinessScoreFloorsAtZero(t *testing.T) {
	s := Summary{TotalFindings: 20, CriticalIssues: 20}
	assert.Equal(t, 0.0, s.upgradeReadinessScore())
}
