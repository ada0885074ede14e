// Package config loads the application-level configuration (as
// distinct from the analyzed installation's own config files, which
// the configparser package handles): worker pool sizing, analyzer
// timeouts, cache backend selection, remote registry base URLs, the
// rewrite tool's binary path, and logging options.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	// Profile selects the deployment profile: "lite" (embedded cache,
	// single host) or "standard" (postgres + optional redis L2).
	Profile DeploymentProfile `mapstructure:"profile"`

	Cache    CacheConfig    `mapstructure:"cache"`
	Analyzer AnalyzerConfig `mapstructure:"analyzer"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Tool     ToolConfig     `mapstructure:"tool"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	App      AppConfig      `mapstructure:"app"`
}

// DeploymentProfile selects the cache backend shape, mirrored in
// internal/cache.Profile.
type DeploymentProfile string

const (
	// ProfileLite is single-host: memory cache tier, optional sqlite
	// durable tier, no external dependencies.
	ProfileLite DeploymentProfile = "lite"

	// ProfileStandard is shared-team: postgres durable tier, optional
	// redis L2 tier, for concurrent analyzer processes across a team.
	ProfileStandard DeploymentProfile = "standard"
)

// CacheConfig configures internal/cache.Options for the driver's
// cache envelope (spec.md §4.5).
type CacheConfig struct {
	MemoryCapacity  int           `mapstructure:"memory_capacity"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	PostgresDSN     string        `mapstructure:"postgres_dsn"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	RedisTTL        time.Duration `mapstructure:"redis_ttl"`
	DefaultTTL      time.Duration `mapstructure:"default_ttl"`
	Disabled        bool          `mapstructure:"disabled"`
}

// AnalyzerConfig tunes the orchestrator's worker-pool sizing (spec.md
// §5) and per-analyzer timeouts.
type AnalyzerConfig struct {
	PoolSize           int           `mapstructure:"pool_size"`
	RewriteConcurrency int           `mapstructure:"rewrite_concurrency"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

// SourcesConfig configures the remote registries the
// Version-Availability Analyzer (spec.md §4.6) consults.
type SourcesConfig struct {
	CommunityRegistryBaseURL string        `mapstructure:"community_registry_base_url"`
	ComposerRegistryBaseURL  string        `mapstructure:"composer_registry_base_url"`
	GitRemoteTimeout         time.Duration `mapstructure:"git_remote_timeout"`
	HTTPTimeout              time.Duration `mapstructure:"http_timeout"`
}

// ToolConfig configures the external rewrite-tool invocation (spec.md §4.7).
type ToolConfig struct {
	BinaryPath  string        `mapstructure:"binary_path"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MemoryLimit string        `mapstructure:"memory_limit"`
	Debug       bool          `mapstructure:"debug"`
	ClearCache  bool          `mapstructure:"clear_cache"`
}

// LogConfig holds logging-related configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig holds Prometheus endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Port    int    `mapstructure:"port"`
}

// AppConfig holds application-wide settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("TUA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		viper.SetConfigFile(configPath)
		viper.SetConfigType("yaml")

		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigFromEnv loads configuration from environment variables only.
func LoadConfigFromEnv() (*Config, error) {
	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("TUA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("profile", "lite")

	viper.SetDefault("cache.memory_capacity", 1000)
	viper.SetDefault("cache.sqlite_path", "")
	viper.SetDefault("cache.postgres_dsn", "")
	viper.SetDefault("cache.redis_addr", "")
	viper.SetDefault("cache.redis_db", 0)
	viper.SetDefault("cache.redis_ttl", "1h")
	viper.SetDefault("cache.default_ttl", "1h")
	viper.SetDefault("cache.disabled", false)

	viper.SetDefault("analyzer.pool_size", 0) // 0 -> runtime.NumCPU()
	viper.SetDefault("analyzer.rewrite_concurrency", 0)
	viper.SetDefault("analyzer.timeout", "5m")

	viper.SetDefault("sources.community_registry_base_url", "https://extensions.typo3.org")
	viper.SetDefault("sources.composer_registry_base_url", "https://packagist.org")
	viper.SetDefault("sources.git_remote_timeout", "10s")
	viper.SetDefault("sources.http_timeout", "10s")

	viper.SetDefault("tool.binary_path", "rector")
	viper.SetDefault("tool.timeout", "5m")
	viper.SetDefault("tool.memory_limit", "")
	viper.SetDefault("tool.debug", false)
	viper.SetDefault("tool.clear_cache", false)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.filename", "")
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age", 28)
	viper.SetDefault("log.compress", true)

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
	viper.SetDefault("metrics.port", 9090)

	viper.SetDefault("app.name", "typo3-upgrade-analyser")
	viper.SetDefault("app.version", "dev")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", false)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.validateProfile(); err != nil {
		return fmt.Errorf("profile validation failed: %w", err)
	}

	if c.Log.Level == "" {
		return fmt.Errorf("log level cannot be empty")
	}

	if c.App.Name == "" {
		return fmt.Errorf("app name cannot be empty")
	}

	if c.Tool.BinaryPath == "" {
		return fmt.Errorf("tool binary path cannot be empty")
	}

	return nil
}

func (c *Config) validateProfile() error {
	if c.Profile != ProfileLite && c.Profile != ProfileStandard {
		return fmt.Errorf("invalid deployment profile: %s (must be 'lite' or 'standard')", c.Profile)
	}

	switch c.Profile {
	case ProfileStandard:
		if c.Cache.PostgresDSN == "" {
			return fmt.Errorf("standard profile requires cache.postgres_dsn")
		}
	}

	return nil
}

// IsDevelopment returns true if the application is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if the application is running in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDebug returns true if debug mode is enabled.
func (c *Config) IsDebug() bool {
	return c.App.Debug || c.IsDevelopment()
}

// IsLiteProfile returns true if running in the Lite deployment profile.
func (c *Config) IsLiteProfile() bool {
	return c.Profile == ProfileLite
}

// IsStandardProfile returns true if running in the Standard deployment profile.
func (c *Config) IsStandardProfile() bool {
	return c.Profile == ProfileStandard
}
