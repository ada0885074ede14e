// Package cmd implements the typo3-upgrade-analyser command line
// interface: a root command plus the analyze subcommand that wires
// config, logging, discovery, inventory, the analyzer pool and the
// cache envelope into one run.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "typo3-upgrade-analyser",
	Short: "Analyses a TYPO3 installation's third-party extensions for upgrade risk",
	Long: `typo3-upgrade-analyser discovers a TYPO3 installation, enumerates its
third-party extensions, and runs them through a pool of analyzers
(rewrite-tool, version-availability, code-metrics) to produce a
per-extension, risk-scored JSON report.

Examples:
  # Analyze an installation in place, targeting TYPO3 12.4
  typo3-upgrade-analyser analyze --path /var/www/typo3 --target 12.4.0

  # Analyze with a config file and a custom log level
  typo3-upgrade-analyser analyze --config analyser.yaml --path . --target 13.0.0`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets build-time version information, supplied by main via
// linker flags.
func SetVersion(v, commit, date string) {
	version, gitCommit, buildDate = v, commit, date
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, env vars take precedence)")
	rootCmd.AddCommand(analyzeCmd)
}
