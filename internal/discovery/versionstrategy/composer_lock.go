// Package versionstrategy provides VersionStrategy implementations
// that extract the authoritative root Version from the various
// on-disk sources listed in spec.md §6.1.
package versionstrategy

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/CPS-IT/typo3-upgrade-analyser/internal/version"
)

const corePackagePrefix = "typo3/cms-core"

type lockFile struct {
	Packages []lockPackage `json:"packages"`
}

type lockPackage struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ComposerLock reads composer.lock and extracts the version pinned
// for the core package (spec.md §8 scenario 1).
type ComposerLock struct{}

func (ComposerLock) Name() string  { return "composer_lock" }
func (ComposerLock) Priority() int { return 100 }

func (ComposerLock) Extract(path string) (version.Version, float64, bool) {
	raw, err := os.ReadFile(filepath.Join(path, "composer.lock"))
	if err != nil {
		return version.Version{}, 0, false
	}

	var doc lockFile
	if err := json.Unmarshal(raw, &doc); err != nil {
		return version.Version{}, 0, false
	}

	for _, pkg := range doc.Packages {
		if pkg.Name == corePackagePrefix {
			if v, ok := version.Parse(pkg.Version); ok {
				return v, 1.0, true
			}
		}
	}
	return version.Version{}, 0, false
}

// ComposerJSON falls back to the require constraint in composer.json
// when no lock file is present, picking the lowest resolvable version
// from the constraint (spec.md §1 supplemented feature D.1).
type ComposerJSON struct{}

func (ComposerJSON) Name() string  { return "composer_json" }
func (ComposerJSON) Priority() int { return 80 }

type composerJSONDoc struct {
	Require map[string]string `json:"require"`
}

func (ComposerJSON) Extract(path string) (version.Version, float64, bool) {
	raw, err := os.ReadFile(filepath.Join(path, "composer.json"))
	if err != nil {
		return version.Version{}, 0, false
	}

	var doc composerJSONDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return version.Version{}, 0, false
	}

	constraint, ok := doc.Require[corePackagePrefix]
	if !ok {
		return version.Version{}, 0, false
	}

	v, ok := lowestResolvable(constraint)
	if !ok {
		return version.Version{}, 0, false
	}
	// Reliability is lower than the lock file: a constraint names a
	// range, not the version actually installed.
	return v, 0.5, true
}

// lowestResolvable extracts a concrete version from a composer
// constraint string, taking the lowest explicit bound: "^12.4" -> 12.4.0,
// "~12.4.2" -> 12.4.2, "12.4.8" -> 12.4.8. Wildcard-only constraints
// ("*", "") are not resolvable without network access and return ok=false.
func lowestResolvable(constraint string) (version.Version, bool) {
	c := strings.TrimSpace(constraint)
	c = strings.TrimPrefix(c, "^")
	c = strings.TrimPrefix(c, "~")
	c = strings.TrimPrefix(c, ">=")
	// Constraints may list alternatives ("^12.4 || ^13.0"); take the
	// first alternative, which is conventionally the lowest.
	if idx := strings.IndexAny(c, " |,"); idx >= 0 {
		c = c[:idx]
	}
	if c == "" || c == "*" {
		return version.Version{}, false
	}

	parts := strings.Split(c, ".")
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	return version.Parse(strings.Join(parts[:3], "."))
}
