package pathresolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkdirAll(t *testing.T, root string, rel ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(append([]string{root}, rel...)...), 0o755))
}

func TestResolve_Extension_VendorCandidateWins(t *testing.T) {
	root := t.TempDir()
	mkdirAll(t, root, "vendor", "georgringer", "news")
	mkdirAll(t, root, "public", "typo3conf", "ext", "news")

	resp := New().Resolve(Request{
		InstallationPath:  root,
		PathType:          PathExtension,
		InstallationType:  InstallationComposer,
		ExtensionIdentifier: &ExtensionIdentifier{Key: "news", ComposerName: "georgringer/news"},
	})

	require.True(t, resp.Success, resp.Errors)
	assert.Equal(t, filepath.Join(root, "vendor", "georgringer", "news"), resp.ResolvedPath)
}

func TestResolve_Extension_FallsBackToTypo3confExt(t *testing.T) {
	root := t.TempDir()
	mkdirAll(t, root, "public", "typo3conf", "ext", "my_ext")

	resp := New().Resolve(Request{
		InstallationPath: root,
		PathType:         PathExtension,
		InstallationType: InstallationLegacy,
		ExtensionIdentifier: &ExtensionIdentifier{Key: "my_ext"},
	})

	require.True(t, resp.Success, resp.Errors)
	assert.Equal(t, filepath.Join(root, "public", "typo3conf", "ext", "my_ext"), resp.ResolvedPath)
}

func TestResolve_Extension_LegacySystemPath(t *testing.T) {
	root := t.TempDir()
	mkdirAll(t, root, "typo3", "sysext", "core")

	resp := New().Resolve(Request{
		InstallationPath: root,
		PathType:         PathExtension,
		InstallationType: InstallationLegacy,
		ExtensionIdentifier: &ExtensionIdentifier{Key: "core"},
	})

	require.True(t, resp.Success, resp.Errors)
	assert.Equal(t, filepath.Join(root, "typo3", "sysext", "core"), resp.ResolvedPath)
}

func TestResolve_Extension_NoCandidateExists(t *testing.T) {
	root := t.TempDir()

	resp := New().Resolve(Request{
		InstallationPath: root,
		PathType:         PathExtension,
		InstallationType: InstallationComposer,
		ExtensionIdentifier: &ExtensionIdentifier{Key: "ghost"},
	})

	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Errors)
}

func TestResolve_Extension_MissingIdentifier(t *testing.T) {
	root := t.TempDir()
	resp := New().Resolve(Request{
		InstallationPath: root,
		PathType:         PathExtension,
		InstallationType: InstallationComposer,
	})
	assert.False(t, resp.Success)
}

func TestResolve_Vendor(t *testing.T) {
	root := t.TempDir()
	mkdirAll(t, root, "vendor")

	resp := New().Resolve(Request{
		InstallationPath: root,
		PathType:         PathVendor,
		InstallationType: InstallationComposer,
	})
	require.True(t, resp.Success, resp.Errors)
	assert.Equal(t, filepath.Join(root, "vendor"), resp.ResolvedPath)
}

func TestResolve_AutoDetect_ComposerLockPresent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "composer.lock"), []byte("{}"), 0o644))
	mkdirAll(t, root, "vendor")

	resp := New().Resolve(Request{
		InstallationPath: root,
		PathType:         PathVendor,
		InstallationType: InstallationAutoDetect,
	})
	require.True(t, resp.Success, resp.Errors)
}

func TestResolve_InvalidRequest(t *testing.T) {
	resp := New().Resolve(Request{})
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Errors)
}
