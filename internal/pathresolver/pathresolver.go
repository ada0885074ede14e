// Package pathresolver implements the Path Resolver (spec.md §4.3):
// deterministic, read-only translation of a logical path request
// (extension/vendor/web/typo3conf/system) into a concrete filesystem
// path, trying layout candidates in a fixed order.
package pathresolver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

// PathType enumerates the logical path kinds a request can ask for.
type PathType string

const (
	PathExtension PathType = "extension"
	PathVendor    PathType = "vendor"
	PathWeb       PathType = "web"
	PathTypo3conf PathType = "typo3conf"
	PathSystem    PathType = "system"
)

// InstallationType mirrors installation.Mode for request purposes,
// plus the resolver-local "probe the filesystem" option.
type InstallationType string

const (
	InstallationComposer   InstallationType = "composer"
	InstallationLegacy     InstallationType = "legacy"
	InstallationAutoDetect InstallationType = "auto_detect"
)

// ExtensionIdentifier is the minimal addressing info pathType=extension
// needs — deliberately independent of package extension.Identifier so
// this package stays free of an import cycle with internal/extension.
type ExtensionIdentifier struct {
	Key          string
	ComposerName string
}

// PathConfiguration carries the installation's custom path overrides,
// keyed the way composer.json's "extra" section names them.
type PathConfiguration struct {
	CustomPaths map[string]string
}

func (c PathConfiguration) get(key, def string) string {
	if v, ok := c.CustomPaths[key]; ok && v != "" {
		return v
	}
	return def
}

// Request is one path-resolution query.
type Request struct {
	InstallationPath     string               `validate:"required"`
	PathType             PathType             `validate:"required,oneof=extension vendor web typo3conf system"`
	InstallationType      InstallationType     `validate:"required,oneof=composer legacy auto_detect"`
	PathConfiguration     PathConfiguration
	ExtensionIdentifier   *ExtensionIdentifier
}

// Response is the outcome of one Resolve call.
type Response struct {
	Success      bool
	ResolvedPath string
	Errors       []string
}

var validate = validator.New()

// Resolver performs stateless, read-only path resolution.
type Resolver struct{}

func New() *Resolver { return &Resolver{} }

// Resolve implements the algorithm in spec.md §4.3.
func (r *Resolver) Resolve(req Request) Response {
	if err := validate.Struct(req); err != nil {
		return Response{Errors: []string{"invalid request: " + err.Error()}}
	}

	vendorDir := req.PathConfiguration.get("vendor-dir", "vendor")
	webDir := req.PathConfiguration.get("web-dir", "public")
	typo3confDir := req.PathConfiguration.get("typo3conf-dir", filepath.Join(webDir, "typo3conf"))
	typo3confIsCustom := req.PathConfiguration.CustomPaths["typo3conf-dir"] != ""

	installationType := req.InstallationType
	if installationType == InstallationAutoDetect {
		installationType = r.detectLayout(req.InstallationPath, typo3confDir)
	}

	switch req.PathType {
	case PathVendor:
		return r.resolveDirectory(req.InstallationPath, vendorDir)
	case PathWeb:
		return r.resolveDirectory(req.InstallationPath, webDir)
	case PathTypo3conf:
		return r.resolveDirectory(req.InstallationPath, typo3confDir)
	case PathSystem:
		return r.resolveDirectory(req.InstallationPath, filepath.Join("typo3", "sysext"))
	case PathExtension:
		return r.resolveExtension(req, vendorDir, webDir, typo3confDir, typo3confIsCustom, installationType)
	default:
		return Response{Errors: []string{fmt.Sprintf("unsupported pathType %q", req.PathType)}}
	}
}

func (r *Resolver) resolveDirectory(root, rel string) Response {
	full := filepath.Join(root, rel)
	if fi, err := os.Stat(full); err == nil && fi.IsDir() {
		return Response{Success: true, ResolvedPath: full}
	}
	return Response{Errors: []string{full + " does not exist"}}
}

// detectLayout probes for a lock file (composer mode) versus a
// package-state file alone (legacy mode), per spec.md §4.3 step 4.
func (r *Resolver) detectLayout(installationPath, typo3confDir string) InstallationType {
	if _, err := os.Stat(filepath.Join(installationPath, "composer.lock")); err == nil {
		return InstallationComposer
	}
	if _, err := os.Stat(filepath.Join(installationPath, typo3confDir, "PackageStates.php")); err == nil {
		return InstallationLegacy
	}
	return InstallationLegacy
}

func (r *Resolver) resolveExtension(
	req Request,
	vendorDir, webDir, typo3confDir string,
	typo3confIsCustom bool,
	installationType InstallationType,
) Response {
	if req.ExtensionIdentifier == nil || req.ExtensionIdentifier.Key == "" {
		return Response{Errors: []string{"pathType=extension requires an extensionIdentifier with a key"}}
	}
	id := *req.ExtensionIdentifier
	root := req.InstallationPath

	var tried []string
	var candidates []string

	if id.ComposerName != "" {
		candidates = append(candidates, filepath.Join(vendorDir, filepath.FromSlash(id.ComposerName)))
	}
	candidates = append(candidates,
		filepath.Join(typo3confDir, "ext", id.Key),
		filepath.Join("typo3", "sysext", id.Key),
		filepath.Join(vendorDir, "typo3", "cms-"+strings.ReplaceAll(id.Key, "_", "-")),
	)
	if typo3confIsCustom {
		candidates = append(candidates, filepath.Join(webDir, "typo3conf", "ext", id.Key))
	}

	_ = installationType // layout detection informs callers upstream; candidate order already covers both modes

	for _, rel := range candidates {
		full := filepath.Join(root, rel)
		tried = append(tried, full)

		if strings.ContainsAny(rel, "*?[") {
			matches, err := filepath.Glob(full)
			if err != nil || len(matches) == 0 {
				continue
			}
			for _, m := range matches {
				if fi, err := os.Stat(m); err == nil && fi.IsDir() {
					return Response{Success: true, ResolvedPath: m}
				}
			}
			continue
		}

		if fi, err := os.Stat(full); err == nil && fi.IsDir() {
			return Response{Success: true, ResolvedPath: full}
		}
	}

	return Response{Errors: append([]string{"no candidate path exists for extension " + id.Key + ":"}, tried...)}
}
