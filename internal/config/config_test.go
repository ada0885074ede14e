package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetViper clears viper's global state between tests.
// Note: environment variables are read at runtime via AutomaticEnv,
// so we also unset any vars we set in tests to avoid cross-test pollution.
func resetViper() {
	viper.Reset()
}

func unsetEnvKeys(keys ...string) {
	for _, k := range keys {
		_ = os.Unsetenv(k)
	}
}

func writeTempYAML(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)
	return path
}

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	resetViper()
	unsetEnvKeys(
		"TUA_PROFILE",
		"TUA_ANALYZER_POOL_SIZE",
		"TUA_TOOL_BINARY_PATH",
		"TUA_APP_ENVIRONMENT",
		"TUA_APP_DEBUG",
	)

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ProfileLite, cfg.Profile)
	assert.Equal(t, "rector", cfg.Tool.BinaryPath)
	assert.Equal(t, "https://extensions.typo3.org", cfg.Sources.CommunityRegistryBaseURL)
	assert.Equal(t, "https://packagist.org", cfg.Sources.ComposerRegistryBaseURL)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, false, cfg.App.Debug)
}

func TestLoadConfig_File(t *testing.T) {
	resetViper()
	unsetEnvKeys("TUA_APP_ENVIRONMENT", "TUA_APP_DEBUG", "TUA_TOOL_BINARY_PATH")

	yaml := `
app:
  environment: "production"
  debug: false
tool:
  binary_path: "/usr/local/bin/rector"
  timeout: "2m"
sources:
  composer_registry_base_url: "https://packagist.example.com"
log:
  level: "debug"
`
	path := writeTempYAML(t, yaml)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.App.Environment)
	assert.False(t, cfg.App.Debug)
	assert.Equal(t, "/usr/local/bin/rector", cfg.Tool.BinaryPath)
	assert.Equal(t, "https://packagist.example.com", cfg.Sources.ComposerRegistryBaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	resetViper()

	yaml := `
tool:
  binary_path: "/file/rector"
app:
  environment: "development"
  debug: true
`
	path := writeTempYAML(t, yaml)

	require.NoError(t, os.Setenv("TUA_TOOL_BINARY_PATH", "/env/rector"))
	require.NoError(t, os.Setenv("TUA_APP_ENVIRONMENT", "production"))
	require.NoError(t, os.Setenv("TUA_APP_DEBUG", "false"))
	t.Cleanup(func() {
		unsetEnvKeys("TUA_TOOL_BINARY_PATH", "TUA_APP_ENVIRONMENT", "TUA_APP_DEBUG")
	})

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/env/rector", cfg.Tool.BinaryPath, "env should override file")
	assert.Equal(t, "production", cfg.App.Environment, "env should override file")
	assert.Equal(t, false, cfg.App.Debug, "env should override file")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	resetViper()

	invalid := `
tool:
  binary_path: : invalid
`
	path := writeTempYAML(t, invalid)

	cfg, err := LoadConfig(path)
	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadConfig_ValidationError_MissingBinaryPath(t *testing.T) {
	resetViper()
	unsetEnvKeys("TUA_TOOL_BINARY_PATH")

	yaml := `
tool:
  binary_path: ""
`
	path := writeTempYAML(t, yaml)

	cfg, err := LoadConfig(path)
	require.Error(t, err, "validation should fail for empty tool.binary_path")
	assert.Nil(t, cfg)
}

func TestLoadConfig_ValidationError_InvalidProfile(t *testing.T) {
	resetViper()
	unsetEnvKeys("TUA_PROFILE")

	yaml := `
profile: "bogus"
`
	path := writeTempYAML(t, yaml)

	cfg, err := LoadConfig(path)
	require.Error(t, err, "validation should fail for an unknown profile")
	assert.Nil(t, cfg)
}

func TestValidate_StandardProfileRequiresPostgresDSN(t *testing.T) {
	cfg := &Config{
		Profile: ProfileStandard,
		Tool:    ToolConfig{BinaryPath: "rector"},
		Log:     LogConfig{Level: "info"},
		App:     AppConfig{Name: "typo3-upgrade-analyser"},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres_dsn")
}

func TestValidate_StandardProfileWithPostgresDSNSucceeds(t *testing.T) {
	cfg := &Config{
		Profile: ProfileStandard,
		Cache:   CacheConfig{PostgresDSN: "postgres://localhost/tua"},
		Tool:    ToolConfig{BinaryPath: "rector"},
		Log:     LogConfig{Level: "info"},
		App:     AppConfig{Name: "typo3-upgrade-analyser"},
	}

	assert.NoError(t, cfg.Validate())
}

func TestProfileHelpers(t *testing.T) {
	lite := &Config{Profile: ProfileLite}
	assert.True(t, lite.IsLiteProfile())
	assert.False(t, lite.IsStandardProfile())

	standard := &Config{Profile: ProfileStandard}
	assert.True(t, standard.IsStandardProfile())
	assert.False(t, standard.IsLiteProfile())
}

func TestEnvironmentHelpers(t *testing.T) {
	dev := &Config{App: AppConfig{Environment: "development", Debug: false}}
	assert.True(t, dev.IsDevelopment())
	assert.False(t, dev.IsProduction())
	assert.True(t, dev.IsDebug(), "debug follows development even when Debug field is false")

	prod := &Config{App: AppConfig{Environment: "production", Debug: true}}
	assert.False(t, prod.IsDevelopment())
	assert.True(t, prod.IsProduction())
	assert.True(t, prod.IsDebug())
}
