package config

import (
	"fmt"
	"log"
	"os"
)

// ExampleLoadConfig demonstrates how to load configuration.
func ExampleLoadConfig() {
	cfg, err := LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	fmt.Printf("App: %s v%s\n", cfg.App.Name, cfg.App.Version)
	fmt.Printf("Profile: %s\n", cfg.Profile)
	fmt.Printf("Rewrite tool: %s\n", cfg.Tool.BinaryPath)
	fmt.Printf("Environment: %s\n", cfg.App.Environment)
	fmt.Printf("Debug: %t\n", cfg.IsDebug())
}

// ExampleLoadConfigFromEnv demonstrates loading config from environment only.
func ExampleLoadConfigFromEnv() {
	os.Setenv("TUA_ANALYZER_POOL_SIZE", "4")
	os.Setenv("TUA_APP_ENVIRONMENT", "production")
	os.Setenv("TUA_APP_DEBUG", "false")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config from env: %v", err)
	}

	fmt.Printf("Pool size from env: %d\n", cfg.Analyzer.PoolSize)
	fmt.Printf("Environment from env: %s\n", cfg.App.Environment)
	fmt.Printf("Debug from env: %t\n", cfg.App.Debug)
}

// ExampleConfigValidation demonstrates config validation.
func ExampleConfigValidation() {
	cfg := &Config{
		Profile: ProfileLite,
		Tool: ToolConfig{
			BinaryPath: "rector",
		},
		Log: LogConfig{
			Level: "info",
		},
		App: AppConfig{
			Name: "typo3-upgrade-analyser",
		},
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Config validation failed: %v", err)
	}

	fmt.Println("Configuration is valid!")
}

// ExampleEnvironmentHelpers demonstrates environment helper methods.
func ExampleEnvironmentHelpers() {
	devCfg := &Config{
		App: AppConfig{
			Environment: "development",
			Debug:       false,
		},
	}

	fmt.Printf("Is Development: %t\n", devCfg.IsDevelopment())
	fmt.Printf("Is Production: %t\n", devCfg.IsProduction())
	fmt.Printf("Is Debug: %t\n", devCfg.IsDebug())

	prodCfg := &Config{
		App: AppConfig{
			Environment: "production",
			Debug:       false,
		},
	}

	fmt.Printf("Is Development: %t\n", prodCfg.IsDevelopment())
	fmt.Printf("Is Production: %t\n", prodCfg.IsProduction())
	fmt.Printf("Is Debug: %t\n", prodCfg.IsDebug())
}

// ExampleConfigWithDefaults demonstrates loading config with defaults.
func ExampleConfigWithDefaults() {
	cfg, err := LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	fmt.Printf("Default profile: %s\n", cfg.Profile)
	fmt.Printf("Default rewrite tool binary: %s\n", cfg.Tool.BinaryPath)
	fmt.Printf("Default community registry: %s\n", cfg.Sources.CommunityRegistryBaseURL)
	fmt.Printf("Default app name: %s\n", cfg.App.Name)
}

// ExampleConfigOverride demonstrates how environment variables override file values.
func ExampleConfigOverride() {
	os.Setenv("TUA_TOOL_BINARY_PATH", "/usr/local/bin/rector")
	os.Setenv("TUA_SOURCES_COMPOSER_REGISTRY_BASE_URL", "https://packagist.example.com")

	cfg, err := LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	fmt.Printf("Rewrite tool (env override): %s\n", cfg.Tool.BinaryPath)
	fmt.Printf("Composer registry (env override): %s\n", cfg.Sources.ComposerRegistryBaseURL)
	fmt.Printf("App name (from file): %s\n", cfg.App.Name)
}
