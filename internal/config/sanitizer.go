package config

import (
	"encoding/json"
)

// ConfigSanitizer sanitizes sensitive configuration data.
type ConfigSanitizer interface {
	// Sanitize removes or redacts sensitive fields.
	Sanitize(cfg *Config) *Config
}

// DefaultConfigSanitizer implements ConfigSanitizer.
type DefaultConfigSanitizer struct {
	redactionValue string
}

// NewDefaultConfigSanitizer creates a new DefaultConfigSanitizer.
func NewDefaultConfigSanitizer() ConfigSanitizer {
	return &DefaultConfigSanitizer{
		redactionValue: "***REDACTED***",
	}
}

// NewConfigSanitizer creates a ConfigSanitizer with a custom redaction value.
func NewConfigSanitizer(redactionValue string) ConfigSanitizer {
	return &DefaultConfigSanitizer{
		redactionValue: redactionValue,
	}
}

// Sanitize removes or redacts sensitive fields from configuration,
// ahead of the one-time info-level config log on startup.
func (s *DefaultConfigSanitizer) Sanitize(cfg *Config) *Config {
	sanitized := s.deepCopy(cfg)

	sanitized.Cache.RedisPassword = s.redactionValue
	sanitized.Cache.PostgresDSN = s.sanitizeDSN(sanitized.Cache.PostgresDSN)

	return sanitized
}

func (s *DefaultConfigSanitizer) deepCopy(cfg *Config) *Config {
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return cfg
	}

	var configCopy Config
	if err := json.Unmarshal(configJSON, &configCopy); err != nil {
		return cfg
	}

	return &configCopy
}

// sanitizeDSN redacts a non-empty postgres DSN wholesale rather than
// parsing out the embedded password; DSNs are only ever logged, never
// reused from the sanitized copy.
func (s *DefaultConfigSanitizer) sanitizeDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return s.redactionValue
}
