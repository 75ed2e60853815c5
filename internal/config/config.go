// Package config loads process configuration from the environment,
// optionally layered over a YAML file.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all process configuration
type Config struct {
	DatabaseURL string `yaml:"database_url"`
	HTTPPort    int    `yaml:"http_port"`

	// Exactly one of EncryptionKey (base64, 32 bytes) or
	// EncryptionPassphrase must be set; the process refuses to start
	// otherwise.
	EncryptionKey        string `yaml:"encryption_key"`
	EncryptionPassphrase string `yaml:"encryption_passphrase"`

	JWTSecret string `yaml:"jwt_secret"`

	SweepInterval   time.Duration `yaml:"sweep_interval"`
	ProviderTimeout time.Duration `yaml:"provider_timeout"`
	Lookback        time.Duration `yaml:"lookback"`
	MaxRegions      int           `yaml:"max_regions"`
	MaxResources    int           `yaml:"max_resources"`

	ArtifactDir string `yaml:"artifact_dir"`
	LogLevel    string `yaml:"log_level"`
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		DatabaseURL:     "postgres://localhost:5432/cloud9?sslmode=disable",
		HTTPPort:        8080,
		SweepInterval:   10 * time.Minute,
		ProviderTimeout: 30 * time.Second,
		Lookback:        time.Hour,
		MaxRegions:      3,
		MaxResources:    20,
		LogLevel:        "info",
	}
}

// Load builds configuration from defaults, an optional YAML file named
// by CLOUD9_CONFIG, and environment variable overrides, then validates
// the result.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CLOUD9_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.EncryptionKey, "CLOUD9_ENCRYPTION_KEY")
	setString(&c.EncryptionPassphrase, "CLOUD9_ENCRYPTION_PASSPHRASE")
	setString(&c.JWTSecret, "CLOUD9_JWT_SECRET")
	setString(&c.ArtifactDir, "CLOUD9_ARTIFACT_DIR")
	setString(&c.LogLevel, "CLOUD9_LOG_LEVEL")
	setInt(&c.HTTPPort, "CLOUD9_HTTP_PORT")
	setInt(&c.MaxRegions, "CLOUD9_MAX_REGIONS")
	setInt(&c.MaxResources, "CLOUD9_MAX_RESOURCES")
	setDuration(&c.SweepInterval, "CLOUD9_SWEEP_INTERVAL")
	setDuration(&c.ProviderTimeout, "CLOUD9_PROVIDER_TIMEOUT")
	setDuration(&c.Lookback, "CLOUD9_LOOKBACK")
}

// Validate checks the configuration for startup-fatal problems.
func (c *Config) Validate() error {
	if c.EncryptionKey == "" && c.EncryptionPassphrase == "" {
		return fmt.Errorf("config: encryption key or passphrase is required")
	}
	if c.EncryptionKey != "" {
		raw, err := base64.StdEncoding.DecodeString(c.EncryptionKey)
		if err != nil {
			return fmt.Errorf("config: encryption key is not valid base64: %w", err)
		}
		if len(raw) != 32 {
			return fmt.Errorf("config: encryption key must be 32 bytes, got %d", len(raw))
		}
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("config: sweep interval must be positive")
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("config: provider timeout must be positive")
	}
	if c.MaxRegions <= 0 || c.MaxResources <= 0 {
		return fmt.Errorf("config: region and resource fan-out bounds must be positive")
	}
	return nil
}

// KeyBytes returns the decoded raw encryption key, or nil when the key
// is derived from a passphrase instead.
func (c *Config) KeyBytes() []byte {
	if c.EncryptionKey == "" {
		return nil
	}
	raw, err := base64.StdEncoding.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil
	}
	return raw
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
