package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/brightclass/reportcard/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig `yaml:"database"`

	// Cache configuration
	Cache CacheConfig `yaml:"cache"`

	// Audit configuration
	Audit AuditConfig `yaml:"audit"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL      string        `yaml:"url"`
	MaxConns int           `yaml:"max_conns"`
	MinConns int           `yaml:"min_conns"`
	Timeout  time.Duration `yaml:"timeout"`
}

// CacheConfig holds scope cache settings
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	RedisURL string        `yaml:"redis_url"`
	ScopeTTL time.Duration `yaml:"scope_ttl"`
}

// AuditConfig holds audit trail settings
type AuditConfig struct {
	RetentionDays int    `yaml:"retention_days"`
	SweepSchedule string `yaml:"sweep_schedule"`
}

// ObservabilityConfig holds logging and metrics settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel `yaml:"-"`
	LogLevelName   string                 `yaml:"log_level"`
	MetricsEnabled bool                   `yaml:"metrics_enabled"`
	MetricsPort    string                 `yaml:"metrics_port"`
}

// LoadConfig loads configuration from environment variables. When
// REPORTCARD_CONFIG_FILE points at a YAML file, the file is read first
// and environment variables override its values.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()

	if path := getEnv("REPORTCARD_CONFIG_FILE", ""); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	cfg.applyEnv()

	if cfg.Observability.LogLevelName != "" {
		cfg.Observability.LogLevel = observability.ParseLogLevel(cfg.Observability.LogLevelName)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			MaxConns: 25,
			MinConns: 5,
			Timeout:  10 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:  false,
			ScopeTTL: time.Minute,
		},
		Audit: AuditConfig{
			RetentionDays: 365,
			SweepSchedule: "0 3 * * *",
		},
		Observability: ObservabilityConfig{
			LogLevelName:   "info",
			MetricsEnabled: true,
			MetricsPort:    "9090",
		},
	}
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnv() {
	if v := getEnv("REPORTCARD_POSTGRES_URL", ""); v != "" {
		c.Database.URL = v
	}
	if v := getEnvInt("REPORTCARD_POSTGRES_MAX_CONNS", 0); v > 0 {
		c.Database.MaxConns = v
	}
	if v := getEnvInt("REPORTCARD_POSTGRES_MIN_CONNS", 0); v > 0 {
		c.Database.MinConns = v
	}
	if v := getEnvDuration("REPORTCARD_POSTGRES_TIMEOUT", 0); v > 0 {
		c.Database.Timeout = v
	}

	if v := os.Getenv("REPORTCARD_CACHE_ENABLED"); v != "" {
		c.Cache.Enabled = strings.ToLower(v) == "true" || v == "1"
	}
	if v := getEnv("REPORTCARD_REDIS_URL", ""); v != "" {
		c.Cache.RedisURL = v
	}
	if v := getEnvDuration("REPORTCARD_SCOPE_TTL", 0); v > 0 {
		c.Cache.ScopeTTL = v
	}

	if v := getEnvInt("REPORTCARD_AUDIT_RETENTION_DAYS", 0); v > 0 {
		c.Audit.RetentionDays = v
	}
	if v := getEnv("REPORTCARD_AUDIT_SWEEP_SCHEDULE", ""); v != "" {
		c.Audit.SweepSchedule = v
	}

	if v := getEnv("REPORTCARD_LOG_LEVEL", ""); v != "" {
		c.Observability.LogLevelName = v
	}
	if v := os.Getenv("REPORTCARD_METRICS_ENABLED"); v != "" {
		c.Observability.MetricsEnabled = strings.ToLower(v) == "true" || v == "1"
	}
	if v := getEnv("REPORTCARD_METRICS_PORT", ""); v != "" {
		c.Observability.MetricsPort = v
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max conns must be at least min conns")
	}
	if c.Cache.Enabled && c.Cache.RedisURL == "" {
		return fmt.Errorf("redis URL is required when the cache is enabled")
	}
	if c.Audit.RetentionDays <= 0 {
		return fmt.Errorf("audit retention must be positive")
	}
	if c.Observability.MetricsEnabled && c.Observability.MetricsPort == "" {
		return fmt.Errorf("metrics port is required when metrics are enabled")
	}
	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
