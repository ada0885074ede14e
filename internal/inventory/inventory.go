// Package inventory implements Extension Inventory (spec.md §4.2):
// merging a package-state file and a Composer-style lock file into one
// authoritative []extension.Extension, with provenance-aware conflict
// resolution and best-effort failure semantics.
package inventory

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/CPS-IT/typo3-upgrade-analyser/internal/configparser"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/extension"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/installation"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/version"
)

const frameworkExtensionTypePrefix = "typo3-cms-"

// Result is the outcome of one inventory build, recording which
// sources actually contributed (spec.md §4.2: "returning an
// ExtensionDiscoveryResult that records which sources succeeded").
type Result struct {
	Success              bool
	Extensions           []extension.Extension
	PackageStateResolved bool
	LockFileResolved     bool
	Warnings             []string
}

// Builder reads the two enumeration sources and merges them.
type Builder struct {
	phpParser configparser.PHPArrayParser
	logger    *slog.Logger
}

func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{phpParser: configparser.NewPHPArrayParser(), logger: logger}
}

// lockPackage is one element of a Composer-style lock file's
// "packages" array.
type lockPackage struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Version string `json:"version"`
	Extra   struct {
		TYPO3 struct {
			CMS struct {
				ExtensionKey string `json:"extension-key"`
			} `json:"cms"`
		} `json:"typo3"`
	} `json:"extra"`
}

type lockFile struct {
	Packages []lockPackage `json:"packages"`
}

// mergedEntry accumulates the fields contributed by each source before
// the final Extension is assembled, so merge precedence (spec.md §4.2)
// is applied in one place regardless of arrival order.
type mergedEntry struct {
	key                string
	fromPackageState   bool
	fromLock           bool
	active             bool
	title              string
	manifestVersion    version.Version
	emConfiguration    map[string]any
	composerName       string
	lockVersion        version.Version
	packagePath        string
}

// Build reads packageStatePath and lockPath (either may be empty or
// missing — that source is simply skipped) and returns the merged
// inventory. vendorDir and systemExtDir classify each entry's Type.
func (b *Builder) Build(packageStatePath, lockPath, vendorDir, systemExtDir string) *Result {
	result := &Result{Success: true}
	entries := map[string]*mergedEntry{}

	if packageStatePath != "" {
		if err := b.readPackageState(packageStatePath, entries, result); err != nil {
			result.Warnings = append(result.Warnings, "package-state file: "+err.Error())
		} else {
			result.PackageStateResolved = true
		}
	}

	if lockPath != "" {
		if err := b.readLockFile(lockPath, entries); err != nil {
			result.Warnings = append(result.Warnings, "lock file: "+err.Error())
		} else {
			result.LockFileResolved = true
		}
	}

	if !result.PackageStateResolved && !result.LockFileResolved {
		b.logger.Warn("inventory: no enumeration source resolved, returning empty inventory")
		return result
	}

	extensions := make([]extension.Extension, 0, len(entries))
	for key, e := range entries {
		ext := extension.Extension{
			Key:             key,
			Title:           e.title,
			Version:         e.manifestVersion,
			ComposerName:    e.composerName,
			Active:          e.active,
			EMConfiguration: e.emConfiguration,
		}
		if !e.lockVersion.IsZero() {
			ext.Version = e.lockVersion
		}
		ext.Type = classify(e, vendorDir, systemExtDir)

		if err := ext.Validate(); err != nil {
			result.Warnings = append(result.Warnings, "skipping invalid extension "+key+": "+err.Error())
			continue
		}
		extensions = append(extensions, ext)
	}

	result.Extensions = extensions
	return result
}

func classify(e *mergedEntry, vendorDir, systemExtDir string) extension.Type {
	if systemExtDir != "" && strings.Contains(filepath.ToSlash(e.packagePath), filepath.ToSlash(systemExtDir)) {
		return extension.TypeSystem
	}
	if e.fromLock && vendorDir != "" && strings.Contains(filepath.ToSlash(e.packagePath), filepath.ToSlash(vendorDir)) {
		return extension.TypeComposer
	}
	if e.fromLock && e.packagePath == "" {
		// Lock-only entries with no resolvable path are, by
		// construction, Composer-managed.
		return extension.TypeComposer
	}
	return extension.TypeLocal
}

// readPackageState parses the package-state file, which — like
// ext_emconf.php — is itself a PHP array literal (PackageStates.php's
// `return ['packages' => ['key' => ['packagePath' => ..., 'state' =>
// ...]]]` shape), not JSON, so it goes through the same
// configparser.PHPArrayParser as manifests.
func (b *Builder) readPackageState(path string, entries map[string]*mergedEntry, result *Result) error {
	parseResult := b.phpParser.ParseFile(path)
	if !parseResult.Success {
		return joinErrors(parseResult.Errors)
	}

	packages, _ := parseResult.Data["packages"].(map[string]any)
	for key, raw := range packages {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		packagePath, _ := entry["packagePath"].(string)
		state, _ := entry["state"].(string)

		e := getOrCreate(entries, key)
		e.fromPackageState = true
		e.active = state == "active"
		e.packagePath = packagePath

		if packagePath == "" {
			continue
		}
		manifestPath := filepath.Join(packagePath, "ext_emconf.php")
		manifestResult := b.phpParser.ParseFile(manifestPath)
		if !manifestResult.Success {
			b.logger.Warn("inventory: corrupt extension manifest skipped", "key", key, "path", manifestPath, "errors", manifestResult.Errors)
			result.Warnings = append(result.Warnings, "corrupt manifest for "+key+": "+joinErrors(manifestResult.Errors).Error())
			continue
		}
		if title, ok := manifestResult.Data["title"].(string); ok {
			e.title = title
		}
		if v, ok := manifestResult.Data["version"].(string); ok {
			if parsed, parseOK := version.Parse(v); parseOK {
				e.manifestVersion = parsed
			}
		}
		e.emConfiguration = manifestResult.Data
	}
	return nil
}

func (b *Builder) readLockFile(path string, entries map[string]*mergedEntry) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var parsed lockFile
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return err
	}

	for _, pkg := range parsed.Packages {
		if !strings.HasPrefix(pkg.Type, frameworkExtensionTypePrefix) {
			continue
		}
		key := pkg.Extra.TYPO3.CMS.ExtensionKey
		if key == "" {
			key = keyFromComposerName(pkg.Name)
		}
		if key == "" {
			continue
		}

		e := getOrCreate(entries, key)
		e.fromLock = true
		e.composerName = pkg.Name
		if v, ok := version.Parse(pkg.Version); ok {
			e.lockVersion = v
		}
	}
	return nil
}

func joinErrors(errs []string) error {
	if len(errs) == 0 {
		return fmt.Errorf("parse failed")
	}
	return fmt.Errorf("%s", strings.Join(errs, "; "))
}

func getOrCreate(entries map[string]*mergedEntry, key string) *mergedEntry {
	e, ok := entries[key]
	if !ok {
		e = &mergedEntry{key: key}
		entries[key] = e
	}
	return e
}

// keyFromComposerName derives an extension key from the last segment
// of a Composer package name when no explicit extra.typo3/cms
// .extension-key is present (spec.md §4.2): "vendor/ext-name" becomes
// "ext_name".
func keyFromComposerName(name string) string {
	parts := strings.SplitN(name, "/", 2)
	if len(parts) != 2 {
		return ""
	}
	return strings.ReplaceAll(parts[1], "-", "_")
}

// DefaultPaths resolves the conventional package-state and lock file
// locations for an Installation, honoring any custom path overrides.
func DefaultPaths(inst *installation.Installation) (packageStatePath, lockPath string) {
	typo3conf := inst.CustomPath("typo3conf", "typo3conf")
	packageStatePath = filepath.Join(inst.Path, typo3conf, "PackageStates.php")
	lockPath = filepath.Join(inst.Path, "composer.lock")
	return packageStatePath, lockPath
}
