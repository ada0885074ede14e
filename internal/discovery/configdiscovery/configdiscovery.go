// Package configdiscovery implements the Configuration Discovery pass
// (spec.md §4.1 step 5, §4.4): walks an Installation's well-known
// configuration locations, parses each file through the Configuration
// Parser Framework, and assigns every result the stable identifier the
// rest of the pipeline keys off of.
package configdiscovery

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/CPS-IT/typo3-upgrade-analyser/internal/configparser"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/installation"
)

// Discoverer is the discovery.ConfigDiscoverer implementation.
type Discoverer struct {
	registry *configparser.Registry
	logger   *slog.Logger
}

func New(registry *configparser.Registry, logger *slog.Logger) *Discoverer {
	if registry == nil {
		registry = configparser.NewRegistry(configparser.NewYAMLParser(), configparser.NewPHPArrayParser())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Discoverer{registry: registry, logger: logger}
}

// location describes one glob pattern and how to derive an identifier
// from a path it matched, per spec.md §4.4's three identifier shapes.
type location struct {
	pattern    string
	identifier func(path, root string) string
}

func (d *Discoverer) locations(inst *installation.Installation) []location {
	extDir := inst.CustomPath("extensions", "typo3conf/ext")
	vendorDir := inst.CustomPath("vendor-dir", "vendor")
	typo3confDir := inst.CustomPath("typo3conf", "typo3conf")

	locs := []location{
		{
			pattern:    "config/*.php",
			identifier: func(path, _ string) string { return filepath.Base(path) },
		},
		{
			pattern:    "config/Services.yaml",
			identifier: func(path, _ string) string { return filepath.Base(path) },
		},
		{
			pattern: "config/sites/*/config.yaml",
			identifier: func(path, root string) string {
				rel, _ := filepath.Rel(filepath.Join(root, "config", "sites"), path)
				siteName := strings.Split(filepath.ToSlash(rel), "/")[0]
				return "Site." + siteName
			},
		},
		{
			pattern: filepath.Join(extDir, "*", "Configuration", "Services.yaml"),
			identifier: func(path, root string) string {
				return "Services." + extKeyFromPath(path, filepath.Join(root, extDir))
			},
		},
		{
			pattern: filepath.Join(typo3confDir, "*.php"),
			identifier: func(path, _ string) string { return filepath.Base(path) },
		},
	}

	if inst.Mode == installation.ModeComposer {
		locs = append(locs, location{
			pattern: filepath.Join(vendorDir, "*", "*", "Configuration", "Services.yaml"),
			identifier: func(path, root string) string {
				return "Services." + extKeyFromVendorPath(path, filepath.Join(root, vendorDir))
			},
		})
	}

	return locs
}

// extKeyFromPath extracts the extension key, the single directory
// component directly under base.
func extKeyFromPath(path, base string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return filepath.Base(filepath.Dir(filepath.Dir(path)))
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// extKeyFromVendorPath derives an extension key from a Composer vendor
// package path (vendor/<vendor>/<package>/Configuration/Services.yaml):
// the package segment, hyphens folded to underscores to approximate
// the legacy extension-key shape well enough for identifier purposes.
func extKeyFromVendorPath(path, base string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return ""
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return ""
	}
	return strings.ReplaceAll(parts[1], "-", "_")
}

// Discover implements discovery.ConfigDiscoverer.
func (d *Discoverer) Discover(ctx context.Context, inst *installation.Installation) (map[string]installation.ConfigurationData, error) {
	out := map[string]installation.ConfigurationData{}

	for _, loc := range d.locations(inst) {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		default:
		}

		matches, err := filepath.Glob(filepath.Join(inst.Path, loc.pattern))
		if err != nil {
			d.logger.Warn("configdiscovery: bad glob pattern", "pattern", loc.pattern, "error", err)
			continue
		}
		sort.Strings(matches)

		for _, path := range matches {
			id := loc.identifier(path, inst.Path)
			result := d.registry.ParseFile(path)

			format := result.Format
			if format == "unknown" {
				format = strings.TrimPrefix(filepath.Ext(path), ".")
			}

			if !result.Success {
				d.logger.Warn("configdiscovery: failed to parse configuration file",
					"identifier", id, "path", path, "errors", result.Errors)
			}

			out[id] = installation.ConfigurationData{
				Identifier: id,
				Path:       path,
				Format:     format,
				Data:       result.Data,
				Warnings:   append(append([]string{}, result.Warnings...), result.Errors...),
			}
		}
	}

	return out, nil
}
