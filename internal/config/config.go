// Package config provides configuration management for the header rule engine.
// It handles loading configuration from environment variables with sensible defaults
// and validates the configuration to ensure the application starts safely.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Diagnostics API port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - LOG_FORMAT: "console" or "json" (default: console)
//   - LOG_FILE: Optional log file path
//
// Storage Configuration:
//   - STORAGE_TYPE: "file", "sqlite" or "postgres" (default: file)
//   - SNAPSHOT_PATH: YAML or JSON snapshot for file storage (default: ./rules.yaml)
//   - DATABASE_PATH: SQLite database file path (default: ./header_rules.db)
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_DB, POSTGRES_USER, POSTGRES_PASSWORD,
//     POSTGRES_SSL_MODE: PostgreSQL connection (used when STORAGE_TYPE=postgres)
//   - POSTGRES_URL: postgres:// URL, replaces the individual POSTGRES_* settings when set
//   - SEED_PATH: Snapshot imported into SQL storage on startup
//
// Host Configuration:
//   - OUTPUT_PATH: File the platform rules are written to (default: ./platform_rules.json)
//   - MAX_RULES: Host dynamic rule budget, overrides the stored setting when set
//   - ACTIVE_PROFILE: Overrides the stored active profile when set
//
// Resolution Cache:
//   - CACHE_TYPE: "local", "redis" or "two_tier" (default: local)
//   - CACHE_TTL: Resolved value lifetime (default: 10m)
//
// Redis Configuration:
//   - REDIS_ADDRESS: Redis server address; empty disables Redis (default: empty)
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//   - REDIS_POOL_SIZE: Redis connection pool size (default: 10)
//   - ANALYTICS_CHANNEL: Pub/sub channel for conversion events (default: header-rules:events)
//
// Resync:
//   - RESYNC_SCHEDULE: Cron spec for periodic resync of volatile templates (default: empty, disabled)
//   - WATCH_SNAPSHOT: Resync when the snapshot file changes (default: true)
//
// Rate Limiting:
//   - RATE_LIMIT_RPS: Requests per second per client on the action endpoints; 0 disables (default: 5)
//   - RATE_LIMIT_BURST: Burst allowance per client (default: 10)
//
// Metrics:
//   - METRICS_NAMESPACE: Prometheus namespace (default: header_rules)
//
// Example usage:
//
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid configuration: %v", err)
//	}
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"header-rules/internal/common/validation"
)

// Config holds all configuration values for the header rule engine.
// All string fields correspond to environment variables that can be set to
// override the default values.
type Config struct {
	// Application settings
	Port      string // Diagnostics API port
	LogLevel  string // Logging level (debug, info, warn, error)
	LogFormat string // "console" or "json"
	LogFile   string // Optional log file

	// Storage
	StorageType      string // "file", "sqlite" or "postgres"
	SnapshotPath     string // Snapshot document for file storage
	DatabasePath     string // SQLite database file
	PostgresHost     string
	PostgresPort     string
	PostgresDB       string
	PostgresUser     string
	PostgresPassword string
	PostgresSSLMode  string
	PostgresURL      string
	SeedPath         string // Snapshot imported into SQL storage on startup

	// Host
	OutputPath    string // Platform rules file
	MaxRules      string // Overrides the stored rule budget when set
	ActiveProfile string // Overrides the stored active profile when set

	// Resolution cache
	CacheType string // "local", "redis" or "two_tier"
	CacheTTL  string

	// Redis
	RedisAddress     string
	RedisPassword    string
	RedisDB          string
	RedisPoolSize    string
	AnalyticsChannel string

	// Resync
	ResyncSchedule string // Cron spec, empty disables the scheduler
	WatchSnapshot  bool

	// Rate limiting for /api/sync, /api/analyze and /api/resolve
	RateLimitRPS   string
	RateLimitBurst string

	MetricsNamespace string
}

// Load creates a new Config instance with values loaded from environment variables.
// If an environment variable is not set, the corresponding default value is used.
//
// This function does not validate the configuration; call Validate() on the
// returned Config before use.
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
		LogFile:   getEnv("LOG_FILE", ""),

		StorageType:      getEnv("STORAGE_TYPE", "file"),
		SnapshotPath:     getEnv("SNAPSHOT_PATH", "./rules.yaml"),
		DatabasePath:     getEnv("DATABASE_PATH", "./header_rules.db"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresDB:       getEnv("POSTGRES_DB", "header_rules"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresSSLMode:  getEnv("POSTGRES_SSL_MODE", "disable"),
		PostgresURL:      getEnv("POSTGRES_URL", ""),
		SeedPath:         getEnv("SEED_PATH", ""),

		OutputPath:    getEnv("OUTPUT_PATH", "./platform_rules.json"),
		MaxRules:      getEnv("MAX_RULES", ""),
		ActiveProfile: getEnv("ACTIVE_PROFILE", ""),

		CacheType: getEnv("CACHE_TYPE", "local"),
		CacheTTL:  getEnv("CACHE_TTL", "10m"),

		RedisAddress:     getEnv("REDIS_ADDRESS", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnv("REDIS_DB", "0"),
		RedisPoolSize:    getEnv("REDIS_POOL_SIZE", "10"),
		AnalyticsChannel: getEnv("ANALYTICS_CHANNEL", "header-rules:events"),

		ResyncSchedule: getEnv("RESYNC_SCHEDULE", ""),
		WatchSnapshot:  getBoolEnv("WATCH_SNAPSHOT", true),

		RateLimitRPS:   getEnv("RATE_LIMIT_RPS", "5"),
		RateLimitBurst: getEnv("RATE_LIMIT_BURST", "10"),

		MetricsNamespace: getEnv("METRICS_NAMESPACE", "header_rules"),
	}
}

// getEnv retrieves an environment variable value or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv retrieves a boolean environment variable value or returns a default value.
// Unparseable values fall back to the default.
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Validate checks required fields, formats and cross-field dependencies.
func (c *Config) Validate() error {
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	switch c.LogFormat {
	case "", "console", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be 'console' or 'json'")
	}

	switch c.StorageType {
	case "file":
		if c.SnapshotPath == "" {
			return fmt.Errorf("SNAPSHOT_PATH is required when using file storage")
		}
	case "sqlite":
		if c.DatabasePath == "" {
			return fmt.Errorf("DATABASE_PATH is required when using SQLite")
		}
	case "postgres", "postgresql":
		if c.PostgresURL != "" {
			if !strings.HasPrefix(c.PostgresURL, "postgres://") && !strings.HasPrefix(c.PostgresURL, "postgresql://") {
				return fmt.Errorf("POSTGRES_URL must start with postgres://")
			}
			break
		}
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required when using PostgreSQL")
		}
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required when using PostgreSQL")
		}
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required when using PostgreSQL")
		}
		if port, err := strconv.Atoi(c.PostgresPort); err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("POSTGRES_PORT must be a valid port number")
		}
	default:
		return fmt.Errorf("STORAGE_TYPE must be 'file', 'sqlite' or 'postgres'")
	}

	if c.OutputPath == "" {
		return fmt.Errorf("OUTPUT_PATH is required")
	}

	if c.MaxRules != "" {
		if n, err := strconv.Atoi(c.MaxRules); err != nil || n < 1 {
			return fmt.Errorf("MAX_RULES must be a positive number")
		}
	}

	switch c.CacheType {
	case "local", "none":
	case "redis", "two_tier":
		if c.RedisAddress == "" {
			return fmt.Errorf("REDIS_ADDRESS is required when CACHE_TYPE is %s", c.CacheType)
		}
	default:
		return fmt.Errorf("CACHE_TYPE must be 'local', 'redis', 'two_tier' or 'none'")
	}
	if d, err := time.ParseDuration(c.CacheTTL); err != nil || d <= 0 {
		return fmt.Errorf("CACHE_TTL must be a positive duration (e.g., '10m')")
	}

	if c.RedisAddress != "" {
		if db, err := strconv.Atoi(c.RedisDB); err != nil || db < 0 || db > 15 {
			return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
		}
		if poolSize, err := strconv.Atoi(c.RedisPoolSize); err != nil || poolSize < 1 {
			return fmt.Errorf("REDIS_POOL_SIZE must be a positive number")
		}
	}

	if c.ResyncSchedule != "" && !validation.ValidCronExpression(c.ResyncSchedule) {
		return fmt.Errorf("RESYNC_SCHEDULE must be a valid cron expression")
	}

	if rps, err := strconv.ParseFloat(c.RateLimitRPS, 64); err != nil || rps < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be a non-negative number")
	}
	if burst, err := strconv.Atoi(c.RateLimitBurst); err != nil || burst < 1 {
		return fmt.Errorf("RATE_LIMIT_BURST must be a positive number")
	}

	return nil
}

// IsPostgres reports whether PostgreSQL storage is configured
func (c *Config) IsPostgres() bool {
	return c.StorageType == "postgres" || c.StorageType == "postgresql"
}

// CacheTTLDuration returns CACHE_TTL parsed, or ten minutes when invalid
func (c *Config) CacheTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// MaxRulesOverride returns MAX_RULES, or 0 when unset
func (c *Config) MaxRulesOverride() int {
	n, err := strconv.Atoi(c.MaxRules)
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// RedisDBNumber returns REDIS_DB as an int
func (c *Config) RedisDBNumber() int {
	n, _ := strconv.Atoi(c.RedisDB)
	return n
}

// RedisPoolSizeNumber returns REDIS_POOL_SIZE as an int, defaulting to 10
func (c *Config) RedisPoolSizeNumber() int {
	n, err := strconv.Atoi(c.RedisPoolSize)
	if err != nil || n < 1 {
		return 10
	}
	return n
}

// RateLimit returns the per-client rate and burst. A zero rate disables limiting.
func (c *Config) RateLimit() (float64, int) {
	rps, _ := strconv.ParseFloat(c.RateLimitRPS, 64)
	burst, _ := strconv.Atoi(c.RateLimitBurst)
	return rps, burst
}
