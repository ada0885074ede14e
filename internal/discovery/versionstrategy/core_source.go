package versionstrategy

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/CPS-IT/typo3-upgrade-analyser/internal/version"
)

var versionConstPattern = regexp.MustCompile(`VERSION\s*=\s*'([0-9.]+)'`)

// CoreSourceConstant is the lowest-priority, lowest-reliability
// fallback: it greps the core's own version constant out of the
// legacy source tree when neither composer.lock nor composer.json
// named the core package (e.g. a legacy install with no composer
// metadata at all). Reliability is deliberately low since this reads
// an implementation detail rather than a declared dependency.
type CoreSourceConstant struct {
	// RelPath is the path, relative to the installation root, of the
	// file declaring the version constant. Default matches the
	// conventional legacy layout.
	RelPath string
}

func NewCoreSourceConstant(relPath string) CoreSourceConstant {
	if relPath == "" {
		relPath = filepath.Join("typo3", "sysext", "core", "Classes", "Information", "Typo3Version.php")
	}
	return CoreSourceConstant{RelPath: relPath}
}

func (c CoreSourceConstant) Name() string  { return "core_source_constant" }
func (c CoreSourceConstant) Priority() int { return 10 }

func (c CoreSourceConstant) Extract(path string) (version.Version, float64, bool) {
	raw, err := os.ReadFile(filepath.Join(path, c.RelPath))
	if err != nil {
		return version.Version{}, 0, false
	}
	m := versionConstPattern.FindSubmatch(raw)
	if m == nil {
		return version.Version{}, 0, false
	}
	v, ok := version.Parse(string(m[1]))
	if !ok {
		return version.Version{}, 0, false
	}
	return v, 0.3, true
}
