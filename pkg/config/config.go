// Package config provides configuration structures and loading logic for the
// service. Configuration is read once at startup: a YAML file with defaults,
// then environment variable overrides, then validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the global configuration for the service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Audit     AuditConfig     `yaml:"audit"`
	Storage   StorageConfig   `yaml:"storage"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RateLimitConfig holds admission-control settings. An empty RedisURL forces
// local-only mode.
type RateLimitConfig struct {
	RedisURL      string        `yaml:"redis_url"`
	DefaultLimit  int64         `yaml:"default_limit"`
	DefaultWindow time.Duration `yaml:"default_window"`
	BucketMaxAge  time.Duration `yaml:"bucket_max_age"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// AuditConfig sizes the audit pipeline.
type AuditConfig struct {
	QueueCapacity int           `yaml:"queue_capacity"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// StorageConfig holds the durable-store settings. An empty DatabaseURL selects
// the in-memory store (development only).
type StorageConfig struct {
	DatabaseURL string `yaml:"database_url"`
}

// ScoringConfig holds the risk threshold above which operations are blocked.
type ScoringConfig struct {
	RiskThreshold int `yaml:"risk_threshold"`
}

// TelemetryConfig holds configuration for OpenTelemetry.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
}

// LoggingConfig holds configuration for logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Load reads configuration from a file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{
		// Defaults
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		RateLimit: RateLimitConfig{
			DefaultLimit:  100,
			DefaultWindow: 60 * time.Second,
			BucketMaxAge:  time.Hour,
			SweepInterval: 5 * time.Minute,
		},
		Audit: AuditConfig{
			QueueCapacity: 1000,
			BatchSize:     50,
			FlushInterval: 5 * time.Second,
		},
		Scoring: ScoringConfig{
			RiskThreshold: 50,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}

	if path != "" {
		//nolint:gosec // Config file path is controlled by admin/operator
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("AEGIS_LISTEN_ADDR"); val != "" {
		cfg.Server.ListenAddr = val
	}

	if val := os.Getenv("AEGIS_REDIS_URL"); val != "" {
		cfg.RateLimit.RedisURL = val
	}
	if val := os.Getenv("AEGIS_DEFAULT_LIMIT"); val != "" {
		if limit, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.RateLimit.DefaultLimit = limit
		}
	}
	if val := os.Getenv("AEGIS_DEFAULT_WINDOW"); val != "" {
		if window, err := time.ParseDuration(val); err == nil {
			cfg.RateLimit.DefaultWindow = window
		}
	}

	if val := os.Getenv("AEGIS_QUEUE_CAPACITY"); val != "" {
		if capacity, err := strconv.Atoi(val); err == nil {
			cfg.Audit.QueueCapacity = capacity
		}
	}
	if val := os.Getenv("AEGIS_BATCH_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			cfg.Audit.BatchSize = size
		}
	}
	if val := os.Getenv("AEGIS_FLUSH_INTERVAL"); val != "" {
		if interval, err := time.ParseDuration(val); err == nil {
			cfg.Audit.FlushInterval = interval
		}
	}

	if val := os.Getenv("AEGIS_DATABASE_URL"); val != "" {
		cfg.Storage.DatabaseURL = val
	}

	if val := os.Getenv("AEGIS_OTLP_ENDPOINT"); val != "" {
		cfg.Telemetry.OTLPEndpoint = val
	}
	if val := os.Getenv("AEGIS_OTLP_INSECURE"); val == "true" {
		cfg.Telemetry.Insecure = true
	}

	if val := os.Getenv("AEGIS_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("AEGIS_LOG_PRETTY"); val == "true" {
		cfg.Logging.Pretty = true
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr must not be empty")
	}
	if c.RateLimit.DefaultLimit <= 0 {
		return fmt.Errorf("ratelimit.default_limit must be positive, got %d", c.RateLimit.DefaultLimit)
	}
	if c.RateLimit.DefaultWindow <= 0 {
		return fmt.Errorf("ratelimit.default_window must be positive, got %s", c.RateLimit.DefaultWindow)
	}
	if c.RateLimit.BucketMaxAge <= 0 {
		return fmt.Errorf("ratelimit.bucket_max_age must be positive, got %s", c.RateLimit.BucketMaxAge)
	}
	if c.Audit.QueueCapacity <= 0 {
		return fmt.Errorf("audit.queue_capacity must be positive, got %d", c.Audit.QueueCapacity)
	}
	if c.Audit.BatchSize <= 0 {
		return fmt.Errorf("audit.batch_size must be positive, got %d", c.Audit.BatchSize)
	}
	if c.Audit.BatchSize > c.Audit.QueueCapacity {
		return fmt.Errorf("audit.batch_size (%d) must not exceed audit.queue_capacity (%d)",
			c.Audit.BatchSize, c.Audit.QueueCapacity)
	}
	if c.Audit.FlushInterval <= 0 {
		return fmt.Errorf("audit.flush_interval must be positive, got %s", c.Audit.FlushInterval)
	}
	if c.Scoring.RiskThreshold < 0 {
		return fmt.Errorf("scoring.risk_threshold must not be negative, got %d", c.Scoring.RiskThreshold)
	}
	return nil
}
