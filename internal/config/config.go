// Package config loads server configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds runtime server configuration.
type Config struct {
	Listen      string   `yaml:"listen"`
	DBType      string   `yaml:"dbType"`
	DBDSN       string   `yaml:"dbDsn"`
	CORSOrigins []string `yaml:"corsOrigins"`

	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig configures bearer-token authentication.
type JWTConfig struct {
	PublicKeyPath string `yaml:"publicKeyPath"`
	RoleClaim     string `yaml:"roleClaim"`
	Issuer        string `yaml:"issuer"`
	Audience      string `yaml:"audience"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Listen:      ":8080",
		DBType:      "sqlite",
		CORSOrigins: []string{"http://localhost:3000"},
		JWT: JWTConfig{
			RoleClaim: "role",
		},
	}
}

// Load reads configuration from a YAML file, then applies environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ISSUANCE_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("ISSUANCE_DB_TYPE"); v != "" {
		cfg.DBType = v
	}
	if v := os.Getenv("ISSUANCE_DB_DSN"); v != "" {
		cfg.DBDSN = v
	}
	if v := os.Getenv("ISSUANCE_JWT_PUBLIC_KEY"); v != "" {
		cfg.JWT.PublicKeyPath = v
	}
	if v := os.Getenv("ISSUANCE_JWT_ISSUER"); v != "" {
		cfg.JWT.Issuer = v
	}
	if v := os.Getenv("ISSUANCE_JWT_AUDIENCE"); v != "" {
		cfg.JWT.Audience = v
	}
}
