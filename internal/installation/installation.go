// Package installation defines the Installation entity (spec.md §3):
// the root of an analyzed CMS tree, its detected layout mode and
// version, and the best-effort configuration map populated by a
// separate Configuration Discovery pass. Installation deliberately
// does not own the extension list (spec.md §3) so discovery can run
// without paying for extension enumeration.
package installation

import (
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/version"
)

// Mode is the installation's dependency-management layout.
type Mode string

const (
	ModeComposer Mode = "composer"
	ModeLegacy   Mode = "legacy"
	ModeUnknown  Mode = "unknown"
)

// ConfigurationData is one parsed configuration file, keyed by the
// stable identifier Configuration Discovery assigns it (spec.md §4.4):
// the bare filename for root configs, "Site.<name>" for site configs,
// "Services.<extKey>" for extension-local service configs.
type ConfigurationData struct {
	Identifier string
	Path       string
	Format     string // "php" | "yaml"
	Data       map[string]any
	Warnings   []string
}

// Installation is the immutable result of a successful discovery run.
type Installation struct {
	Path           string
	Version        version.Version
	Mode           Mode
	CustomPaths    map[string]string
	Configurations map[string]ConfigurationData
	Metadata       map[string]any
}

// New constructs an Installation with non-nil maps so callers never
// have to nil-check before ranging or indexing.
func New(path string, v version.Version, mode Mode) *Installation {
	return &Installation{
		Path:           path,
		Version:        v,
		Mode:           mode,
		CustomPaths:    map[string]string{},
		Configurations: map[string]ConfigurationData{},
		Metadata:       map[string]any{},
	}
}

// WithConfigurations returns a copy of inst with its Configurations
// replaced; used by the Configuration Discovery pass so the
// Installation stays otherwise immutable once detection succeeds.
func (inst *Installation) WithConfigurations(configs map[string]ConfigurationData) *Installation {
	clone := *inst
	clone.Configurations = configs
	return &clone
}

// CustomPath returns customPaths[name], falling back to def when
// unset or empty. The inventory and Configuration Discovery read their
// directory overrides through it; the path resolver reads overrides
// from its own PathConfiguration instead.
func (inst *Installation) CustomPath(name, def string) string {
	if v, ok := inst.CustomPaths[name]; ok && v != "" {
		return v
	}
	return def
}
