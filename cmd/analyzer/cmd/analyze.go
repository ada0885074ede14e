package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/CPS-IT/typo3-upgrade-analyser/internal/analysis"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/analyzer"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/analyzer/codemetrics"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/analyzer/rewrite"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/analyzer/versionavailability"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/cache"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/config"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/configparser"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/discovery"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/discovery/configdiscovery"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/discovery/strategies"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/discovery/validation"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/discovery/versionstrategy"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/installation"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/inventory"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/orchestrator"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/version"
	"github.com/CPS-IT/typo3-upgrade-analyser/pkg/logger"
)

var (
	analyzePath          string
	analyzeTargetVersion string
	analyzeOutput        string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Discover an installation and analyze its third-party extensions",
	Args:  cobra.NoArgs,
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzePath, "path", ".", "root path of the TYPO3 installation to analyze")
	analyzeCmd.Flags().StringVar(&analyzeTargetVersion, "target", "", "target TYPO3 version to analyze against (required)")
	analyzeCmd.Flags().StringVar(&analyzeOutput, "output", "", "write the JSON report here instead of stdout")
	_ = analyzeCmd.MarkFlagRequired("target")
}

// runSummary is the top-level JSON document one analyze invocation
// emits: discovery/inventory outcome plus the sorted analyzer results.
type runSummary struct {
	RunID             string            `json:"run_id"`
	InstallationPath  string            `json:"installation_path"`
	DetectedVersion   string            `json:"detected_version"`
	TargetVersion     string            `json:"target_version"`
	DetectionStrategy string            `json:"detection_strategy"`
	ExtensionCount    int               `json:"extension_count"`
	DiscoveryWarnings []string          `json:"discovery_warnings,omitempty"`
	Results           []analysis.Result `json:"results"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.NewLogger(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	runID := logger.GenerateRunID()
	ctx := logger.WithRunID(cmd.Context(), runID)
	log = logger.FromContext(ctx, log)

	sanitized := config.NewDefaultConfigSanitizer().Sanitize(cfg)
	log.Info("starting analysis run", "profile", sanitized.Profile, "path", analyzePath, "target", analyzeTargetVersion, "config", sanitized)

	targetVersion, ok := version.Parse(analyzeTargetVersion)
	if !ok {
		return fmt.Errorf("invalid --target version %q", analyzeTargetVersion)
	}

	inst, instResult, err := discoverInstallation(ctx, analyzePath, log)
	if err != nil {
		return err
	}

	invResult := buildInventory(inst, log)
	if !invResult.Success {
		log.Warn("extension inventory completed with warnings", "warnings", invResult.Warnings)
	}

	store, err := cache.New(ctx, cacheOptions(cfg), log)
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			log.Warn("cache close failed", "error", cerr)
		}
	}()

	runners := buildAnalyzers(cfg, store, log)
	pool := orchestrator.New(orchestrator.Config{
		PoolSize:           cfg.Analyzer.PoolSize,
		RewriteConcurrency: cfg.Analyzer.RewriteConcurrency,
	}, log)

	runCtx := ctx
	if cfg.Analyzer.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.Analyzer.Timeout)
		defer cancel()
	}

	analysisCtx := analysis.Context{
		CurrentVersion:   inst.Version,
		TargetVersion:    targetVersion,
		InstallationPath: inst.Path,
	}

	results := pool.Run(runCtx, invResult.Extensions, runners, analysisCtx)

	summary := runSummary{
		RunID:             runID,
		InstallationPath:  inst.Path,
		DetectedVersion:   inst.Version.String(),
		TargetVersion:     targetVersion.String(),
		DetectionStrategy: instResult.SuccessfulStrategy,
		ExtensionCount:    len(invResult.Extensions),
		DiscoveryWarnings: warningMessages(instResult),
		Results:           results,
	}

	return writeSummary(summary)
}

func discoverInstallation(ctx context.Context, path string, log *slog.Logger) (*installation.Installation, *discovery.Result, error) {
	registry := configparser.NewRegistry(configparser.NewPHPArrayParser(), configparser.NewYAMLParser())

	engine := discovery.New(
		[]discovery.Strategy{strategies.NewComposer("vendor"), strategies.NewLegacy("public", "typo3conf/PackageStates.php")},
		[]discovery.VersionStrategy{versionstrategy.ComposerLock{}, versionstrategy.ComposerJSON{}, versionstrategy.NewCoreSourceConstant("typo3/sysext/core/Classes/Information/Typo3Version.php")},
		configdiscovery.New(registry, log),
		[]discovery.ValidationRule{validation.NewVersionKnown(0.5), validation.ModeKnown{}},
		log,
	)

	result := engine.Run(ctx, path, discovery.Options{RunValidation: true})
	if !result.Successful || result.Installation == nil {
		return nil, result, fmt.Errorf("installation discovery failed at %q: %s", path, result.ErrorMessage)
	}

	log.Info("installation detected", "strategy", result.SuccessfulStrategy, "version", result.Installation.Version.String(), "mode", result.Installation.Mode)
	return result.Installation, result, nil
}

// buildInventory merges the conventional package-state and lock file
// locations for inst (inventory.DefaultPaths) into the extension list,
// classifying entries found under the vendor dir as composer-managed
// and entries under typo3/sysext as system extensions.
func buildInventory(inst *installation.Installation, log *slog.Logger) *inventory.Result {
	builder := inventory.NewBuilder(log)
	packageStatePath, lockPath := inventory.DefaultPaths(inst)
	vendorDir := inst.CustomPath("vendor-dir", "vendor")
	return builder.Build(packageStatePath, lockPath, vendorDir, "typo3/sysext")
}

func cacheOptions(cfg *config.Config) cache.Options {
	profile := cache.ProfileLite
	if cfg.Profile == config.ProfileStandard {
		profile = cache.ProfileStandard
	}
	return cache.Options{
		Profile:        profile,
		MemoryCapacity: cfg.Cache.MemoryCapacity,
		SQLitePath:     cfg.Cache.SQLitePath,
		PostgresDSN:    cfg.Cache.PostgresDSN,
		RedisAddr:      cfg.Cache.RedisAddr,
		RedisPassword:  cfg.Cache.RedisPassword,
		RedisDB:        cfg.Cache.RedisDB,
		RedisTTL:       cfg.Cache.RedisTTL,
	}
}

func buildAnalyzers(cfg *config.Config, store cache.Store, log *slog.Logger) []orchestrator.Runner {
	rewriteAnalyzer := rewrite.New(rewrite.Config{
		BinaryPath:  cfg.Tool.BinaryPath,
		Timeout:     cfg.Tool.Timeout,
		MemoryLimit: cfg.Tool.MemoryLimit,
		Debug:       cfg.Tool.Debug,
		ClearCache:  cfg.Tool.ClearCache,
	}, rewrite.NewDefaultRegistry(), log)

	versionAnalyzer := versionavailability.New(versionavailability.Config{
		CommunityRegistryBaseURL: cfg.Sources.CommunityRegistryBaseURL,
		ComposerRegistryBaseURL:  cfg.Sources.ComposerRegistryBaseURL,
		SourceTimeout:            cfg.Sources.HTTPTimeout,
	}, log)

	metricsAnalyzer := codemetrics.New(codemetrics.Config{}, log)

	return []orchestrator.Runner{
		analyzer.New(rewriteAnalyzer, store, log),
		analyzer.New(versionAnalyzer, store, log),
		analyzer.New(metricsAnalyzer, store, log),
	}
}

func warningMessages(result *discovery.Result) []string {
	warnings := make([]string, 0, len(result.ValidationIssues))
	for _, issue := range result.ValidationIssues {
		warnings = append(warnings, fmt.Sprintf("[%s] %s: %s", issue.Severity, issue.Rule, issue.Message))
	}
	return warnings
}

func writeSummary(summary runSummary) error {
	out := os.Stdout
	if analyzeOutput != "" {
		f, err := os.Create(analyzeOutput)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
