// Package strategies provides the built-in DetectionStrategy
// implementations: composer-managed installations and legacy/source
// installations (spec.md glossary).
package strategies

import (
	"os"
	"path/filepath"

	"github.com/CPS-IT/typo3-upgrade-analyser/internal/installation"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/version"
)

// Composer detects a composer-managed installation: presence of
// composer.json at the root is required, composer.lock (preferred)
// or a vendor directory confirm it.
type Composer struct {
	VendorDir string // default "vendor"
}

func NewComposer(vendorDir string) *Composer {
	if vendorDir == "" {
		vendorDir = "vendor"
	}
	return &Composer{VendorDir: vendorDir}
}

func (c *Composer) Name() string { return "composer" }
func (c *Composer) Priority() int { return 100 }

func (c *Composer) RequiredIndicators() []string {
	return []string{"composer.json"}
}

func (c *Composer) Supports(path string) bool {
	if _, err := os.Stat(filepath.Join(path, "composer.lock")); err == nil {
		return true
	}
	fi, err := os.Stat(filepath.Join(path, c.VendorDir))
	return err == nil && fi.IsDir()
}

func (c *Composer) Detect(path string) (*installation.Installation, error) {
	inst := installation.New(path, version.Version{}, installation.ModeComposer)
	inst.CustomPaths["vendor-dir"] = c.VendorDir
	return inst, nil
}

// Legacy detects a non-composer, "source" layout installation:
// presence of a PackageStates.php under the default web document root
// and the absence of composer.json at the root (a composer.lock alone
// does not rule it out).
type Legacy struct {
	WebDir         string // default "public"
	PackageStatesRel string // default "typo3conf/PackageStates.php", relative to WebDir
}

func NewLegacy(webDir, packageStatesRel string) *Legacy {
	if webDir == "" {
		webDir = "public"
	}
	if packageStatesRel == "" {
		packageStatesRel = "typo3conf/PackageStates.php"
	}
	return &Legacy{WebDir: webDir, PackageStatesRel: packageStatesRel}
}

func (l *Legacy) Name() string { return "legacy" }
func (l *Legacy) Priority() int { return 50 }

func (l *Legacy) RequiredIndicators() []string {
	return []string{filepath.Join(l.WebDir, l.PackageStatesRel)}
}

func (l *Legacy) Supports(path string) bool {
	if _, err := os.Stat(filepath.Join(path, "composer.json")); err == nil {
		return false
	}
	_, err := os.Stat(filepath.Join(path, l.WebDir, l.PackageStatesRel))
	return err == nil
}

func (l *Legacy) Detect(path string) (*installation.Installation, error) {
	inst := installation.New(path, version.Version{}, installation.ModeLegacy)
	inst.CustomPaths["web-dir"] = l.WebDir
	return inst, nil
}
