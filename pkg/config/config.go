package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for govlens-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Optional LLM classifier used as a fallback matching strategy
	Classifier ClassifierConfig `yaml:"classifier"`

	// Matching engine tunables
	Matching MatchingConfig `yaml:"matching"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"govlens"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"govlens_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// ClassifierConfig holds the OpenAI-compatible endpoint used for
// LLM-assisted matching. Disabled unless both endpoint and model are set.
type ClassifierConfig struct {
	Endpoint    string  `yaml:"endpoint" env:"CLASSIFIER_ENDPOINT" env-default:""`
	Model       string  `yaml:"model" env:"CLASSIFIER_MODEL" env-default:""`
	APIKey      string  `yaml:"-" env:"CLASSIFIER_API_KEY"` // Secret - not in YAML
	Temperature float64 `yaml:"temperature" env:"CLASSIFIER_TEMPERATURE" env-default:"0.1"`
}

// IsEnabled returns true if the classifier collaborator is configured.
func (c *ClassifierConfig) IsEnabled() bool {
	return c.Endpoint != "" && c.Model != ""
}

// MatchingConfig holds reconciliation engine tunables.
type MatchingConfig struct {
	// JobRetentionMinutes is how long rematch jobs are kept before lazy
	// purge, regardless of terminal state.
	JobRetentionMinutes int `yaml:"job_retention_minutes" env:"MATCHING_JOB_RETENTION_MINUTES" env-default:"60"`

	// JobTimeoutSeconds bounds a single rematch job, including classifier calls.
	JobTimeoutSeconds int `yaml:"job_timeout_seconds" env:"MATCHING_JOB_TIMEOUT_SECONDS" env-default:"120"`
}

// JobRetention returns the job retention window as a duration.
func (m *MatchingConfig) JobRetention() time.Duration {
	return time.Duration(m.JobRetentionMinutes) * time.Minute
}

// JobTimeout returns the per-job execution deadline as a duration.
func (m *MatchingConfig) JobTimeout() time.Duration {
	return time.Duration(m.JobTimeoutSeconds) * time.Second
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	return cfg, nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
