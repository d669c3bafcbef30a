package audit

import (
	"os"
	"strconv"
)

// Config controls audit retention behavior.
type Config struct {
	RetentionDays int  // Default 365
	Enabled       bool // Whether the retention worker runs
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 365,
		Enabled:       true,
	}
}

// ConfigFromEnv loads config from environment variables.
// ISSUANCE_AUDIT_RETENTION_DAYS, ISSUANCE_AUDIT_RETENTION_ENABLED
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()

	if v := os.Getenv("ISSUANCE_AUDIT_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			cfg.RetentionDays = days
		}
	}

	if v := os.Getenv("ISSUANCE_AUDIT_RETENTION_ENABLED"); v != "" {
		cfg.Enabled, _ = strconv.ParseBool(v)
	}

	return cfg
}
