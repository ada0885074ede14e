// Package rewrite implements the Rewrite-Tool Analyzer (spec.md §4.7):
// invokes an external refactoring tool in dry-run mode, classifies its
// findings, and derives a risk score and remediation summary.
package rewrite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/CPS-IT/typo3-upgrade-analyser/internal/analysis"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/extension"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/pathresolver"
)

const analyzerName = "rewrite"
const defaultTimeout = 300 * time.Second

// Config configures tool discovery and invocation.
type Config struct {
	// BinaryPath is the refactoring tool's executable; resolved via
	// exec.LookPath when relative, per the teacher's exec.CommandContext
	// pattern in internal/infrastructure/migrations/backup.go.
	BinaryPath  string
	Timeout     time.Duration
	MemoryLimit string // e.g. "512M", passed through to the tool, empty disables the flag
	Debug       bool
	ClearCache  bool
}

func (c Config) withDefaults() Config {
	if c.BinaryPath == "" {
		c.BinaryPath = "rector"
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

// Analyzer implements analyzer.Capability, analyzer.KeyComponents, and
// analyzer.ToolChecker.
type Analyzer struct {
	cfg      Config
	registry *Registry
	resolver *pathresolver.Resolver
	logger   *slog.Logger
}

func New(cfg Config, registry *Registry, logger *slog.Logger) *Analyzer {
	cfg = cfg.withDefaults()
	if registry == nil {
		registry = NewDefaultRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{cfg: cfg, registry: registry, resolver: pathresolver.New(), logger: logger}
}

func (a *Analyzer) Name() string            { return analyzerName }
func (a *Analyzer) Description() string     { return "runs an external rewrite tool in dry-run mode and classifies its findings" }
func (a *Analyzer) RequiredTools() []string { return []string{a.cfg.BinaryPath} }
func (a *Analyzer) Supports(ext extension.Extension) bool { return ext.IsThirdParty() }

// CacheKeyComponents contributes the configured tool binary path and
// the resolved rule-set count. The tool's own version is not queried
// and is not part of the key, so replacing the binary at the same path
// does not change the key.
func (a *Analyzer) CacheKeyComponents(_ extension.Extension, analysisCtx analysis.Context) map[string]any {
	sets := a.registry.GetSetsForVersionUpgrade(analysisCtx.CurrentVersion, analysisCtx.TargetVersion)
	return map[string]any{
		"toolBinary":   a.cfg.BinaryPath,
		"ruleSetCount": len(sets),
	}
}

// HasRequiredTools implements analyzer.ToolChecker: the driver calls
// this before ever invoking DoAnalyze, and skips the run entirely when
// it returns false (spec.md §4.5/§6.4).
func (a *Analyzer) HasRequiredTools() bool {
	if filepath.IsAbs(a.cfg.BinaryPath) {
		_, err := os.Stat(a.cfg.BinaryPath)
		return err == nil
	}
	_, err := exec.LookPath(a.cfg.BinaryPath)
	return err == nil
}

// resolveExtensionPath uses the Path Resolver (spec.md §4.3) instead of
// naively joining the installation root and the extension key, so
// composer-name/vendor-dir/custom-path layouts resolve correctly.
func (a *Analyzer) resolveExtensionPath(ext extension.Extension, analysisCtx analysis.Context) (string, error) {
	resp := a.resolver.Resolve(pathresolver.Request{
		InstallationPath:  analysisCtx.InstallationPath,
		PathType:          pathresolver.PathExtension,
		InstallationType:  pathresolver.InstallationAutoDetect,
		PathConfiguration: pathresolver.PathConfiguration{CustomPaths: analysisCtx.CustomPaths},
		ExtensionIdentifier: &pathresolver.ExtensionIdentifier{
			Key:          ext.Key,
			ComposerName: ext.ComposerName,
		},
	})
	if !resp.Success {
		return "", fmt.Errorf("resolving extension path: %v", resp.Errors)
	}
	return resp.ResolvedPath, nil
}

// DoAnalyze implements spec.md §4.7's invocation pipeline. The driver
// has already confirmed HasRequiredTools before calling this.
func (a *Analyzer) DoAnalyze(ctx context.Context, ext extension.Extension, analysisCtx analysis.Context) analysis.Result {
	builder := analysis.NewResultBuilder(analyzerName, ext.Identifier())
	builder.WithMetric("hasRequiredTools", true)

	sets := a.registry.GetSetsForVersionUpgrade(analysisCtx.CurrentVersion, analysisCtx.TargetVersion)
	configPath, err := writeToolConfig(IDs(sets))
	if err != nil {
		return analysis.Failure(analyzerName, ext.Identifier(), fmt.Errorf("generating tool config: %w", err))
	}
	defer os.Remove(configPath)

	extensionPath, err := a.resolveExtensionPath(ext, analysisCtx)
	if err != nil {
		return analysis.Failure(analyzerName, ext.Identifier(), err)
	}

	stdout, err := a.runTool(ctx, extensionPath, configPath)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return analysis.Failure(analyzerName, ext.Identifier(), errors.New("timeout"))
		}
		// exit code is ignored when stdout is parseable (spec.md §6.3);
		// only treat this as fatal when stdout itself never parses.
	}

	toolOutput, parseErr := parseToolOutput(stdout)
	if parseErr != nil {
		return analysis.Failure(analyzerName, ext.Identifier(), fmt.Errorf("parsing tool output: %w", parseErr))
	}

	findings := classifyFindings(toolOutput)
	summary := buildSummary(toolOutput, findings)

	builder.
		WithMetric("totalFindings", summary.TotalFindings).
		WithMetric("criticalIssues", summary.CriticalIssues).
		WithMetric("warnings", summary.Warnings).
		WithMetric("infoIssues", summary.InfoIssues).
		WithMetric("suggestions", summary.Suggestions).
		WithMetric("affectedFiles", summary.AffectedFiles).
		WithMetric("totalFiles", summary.TotalFiles).
		WithMetric("ruleBreakdown", summary.RuleBreakdown).
		WithMetric("fileBreakdown", summary.FileBreakdown).
		WithMetric("typeBreakdown", summary.TypeBreakdown).
		WithMetric("complexityScore", summary.ComplexityScore).
		WithMetric("estimatedFixTime", summary.EstimatedFixTime).
		WithMetric("upgradeReadinessScore", summary.upgradeReadinessScore()).
		WithMetric("fileImpactPercentage", summary.fileImpactPercentage()).
		WithMetric("riskLevel", summary.riskLevel())

	if summary.TotalFindings == 0 {
		builder.WithRecommendation("extension appears ready for the target version; no findings reported")
	} else {
		for _, f := range findingsRequiringAttention(findings) {
			builder.WithRecommendation(recommendationFor(f))
		}
	}

	builder.WithRiskScore(riskScore(summary))

	return builder.Build()
}

func (a *Analyzer) runTool(ctx context.Context, extensionPath, configPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	args := []string{"process", extensionPath, "--config", configPath, "--dry-run", "--output-format", "json", "--no-progress-bar"}
	if a.cfg.MemoryLimit != "" {
		args = append(args, "--memory-limit", a.cfg.MemoryLimit)
	}
	if a.cfg.Debug {
		args = append(args, "--debug")
	}
	if a.cfg.ClearCache {
		args = append(args, "--clear-cache")
	}

	cmd := exec.CommandContext(ctx, a.cfg.BinaryPath, args...)
	out, err := cmd.Output()
	if ctx.Err() != nil {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		return "", ctx.Err()
	}
	return string(out), err
}

func writeToolConfig(ruleSetIDs []string) (string, error) {
	f, err := os.CreateTemp("", "rewrite-config-*.json")
	if err != nil {
		return "", err
	}
	defer f.Close()

	payload, err := json.Marshal(map[string]any{"ruleSets": ruleSetIDs})
	if err != nil {
		os.Remove(f.Name())
		return "", err
	}
	if _, err := f.Write(payload); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
