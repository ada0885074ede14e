// Package extension defines the Extension entity (spec.md §3) — a
// plugin/module installed into the analyzed CMS — and the thin query
// key ExtensionIdentifier used to address one without carrying its
// full record around.
package extension

import (
	"fmt"
	"regexp"

	"github.com/CPS-IT/typo3-upgrade-analyser/internal/version"
)

// Type classifies where an extension came from and how it should be
// treated by analyzers (system extensions are excluded from
// third-party analyzers per spec.md §4.2).
type Type string

const (
	TypeSystem   Type = "system"
	TypeLocal    Type = "local"
	TypeComposer Type = "composer"
)

var keyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
var composerNamePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9_.-]*[a-z0-9])?/[a-z0-9]([a-z0-9_.-]*[a-z0-9])?$`)

// Extension is the canonical record of one installed plugin/module.
type Extension struct {
	Key            string
	Title          string
	Version        version.Version
	Type           Type
	ComposerName   string // empty when not composer-managed
	Active         bool
	EMConfiguration map[string]any
}

// Validate enforces the invariants from spec.md §8: Key matches
// ^[a-z][a-z0-9_]*$, and ComposerName (when set) matches
// <vendor>/<package>.
func (e Extension) Validate() error {
	if !keyPattern.MatchString(e.Key) {
		return fmt.Errorf("extension: invalid key %q: must match %s", e.Key, keyPattern.String())
	}
	if e.ComposerName != "" && !composerNamePattern.MatchString(e.ComposerName) {
		return fmt.Errorf("extension: invalid composer name %q: must match <vendor>/<package>", e.ComposerName)
	}
	return nil
}

// Identifier is the thin query key used by analyzers and the path
// resolver that don't need the full Extension record.
type Identifier struct {
	Key          string
	Version      version.Version
	Type         Type
	ComposerName string
}

// Identifier projects an Extension down to its Identifier.
func (e Extension) Identifier() Identifier {
	return Identifier{
		Key:          e.Key,
		Version:      e.Version,
		Type:         e.Type,
		ComposerName: e.ComposerName,
	}
}

// IsThirdParty reports whether this extension should be run through
// the third-party analyzers (version-availability, rewrite). System
// extensions are always present in the inventory but are excluded
// here per spec.md §4.2.
func (e Extension) IsThirdParty() bool {
	return e.Type != TypeSystem
}
