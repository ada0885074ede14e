// Package main is the entry point for typo3-upgrade-analyser.
package main

import (
	"fmt"
	"os"

	"github.com/CPS-IT/typo3-upgrade-analyser/cmd/analyzer/cmd"
)

// Set by the release build via -ldflags.
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersion(version, gitCommit, buildDate)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
