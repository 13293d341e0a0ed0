// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
// Token issuance is owned by the external auth collaborator; the engine
// only validates access tokens it receives.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq-backed scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// DistributionConfig provides the operational constants of the
// distribution engine. These are deliberately named configuration
// values rather than literals.
type DistributionConfig interface {
	// GetReservationTTL is how long a realtor holds an exclusive
	// reservation before the expiry clock releases it.
	GetReservationTTL() time.Duration
	// GetActiveLeadCap is the maximum number of unresolved leads a
	// realtor may hold at once before being skipped by distribution.
	GetActiveLeadCap() int
	// GetMaxDistributionAttempts bounds how often an unanswered lead is
	// re-offered before it is terminally expired.
	GetMaxDistributionAttempts() int
}

// SweepConfig provides the intervals of the recurring background loops.
type SweepConfig interface {
	GetExpirySweepInterval() time.Duration
	GetDistributionPassInterval() time.Duration
	GetQueueRecalcInterval() time.Duration
	GetRetentionCleanupInterval() time.Duration
	GetRetentionWindow() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env              string
	HTTPAddr         string
	DatabaseURL      string
	JWTAccessSecret  string
	CORSAllowAll     bool
	CORSOrigins      []string
	CORSAllowCreds   bool
	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	ReservationTTL          time.Duration
	ActiveLeadCap           int
	MaxDistributionAttempts int

	ExpirySweepInterval      time.Duration
	DistributionPassInterval time.Duration
	QueueRecalcInterval      time.Duration
	RetentionCleanupInterval time.Duration
	RetentionWindow          time.Duration
}

// Load reads configuration from the environment, falling back to a
// local .env file when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:              getEnv("APP_ENV", "development"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		JWTAccessSecret:  getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:     corsAllowAll,
		CORSOrigins:      corsOrigins,
		CORSAllowCreds:   strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: getPositiveInt("ASYNQ_CONCURRENCY", 10),

		ReservationTTL:          mustDuration(getEnv("RESERVATION_TTL", "10m")),
		ActiveLeadCap:           getPositiveInt("ACTIVE_LEAD_CAP", 3),
		MaxDistributionAttempts: getPositiveInt("MAX_DISTRIBUTION_ATTEMPTS", 5),

		ExpirySweepInterval:      mustDuration(getEnv("EXPIRY_SWEEP_INTERVAL", "1m")),
		DistributionPassInterval: mustDuration(getEnv("DISTRIBUTION_PASS_INTERVAL", "1m")),
		QueueRecalcInterval:      mustDuration(getEnv("QUEUE_RECALC_INTERVAL", "10m")),
		RetentionCleanupInterval: mustDuration(getEnv("RETENTION_CLEANUP_INTERVAL", "1h")),
		RetentionWindow:          mustDuration(getEnv("RETENTION_WINDOW", "720h")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.ReservationTTL <= 0 {
		return nil, fmt.Errorf("RESERVATION_TTL must be a positive duration")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

// =============================================================================
// Interface implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string     { return c.DatabaseURL }
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

func (c *Config) GetHTTPAddr() string       { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool     { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string  { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool   { return c.CORSAllowCreds }
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

func (c *Config) GetReservationTTL() time.Duration { return c.ReservationTTL }
func (c *Config) GetActiveLeadCap() int            { return c.ActiveLeadCap }
func (c *Config) GetMaxDistributionAttempts() int  { return c.MaxDistributionAttempts }

func (c *Config) GetExpirySweepInterval() time.Duration      { return c.ExpirySweepInterval }
func (c *Config) GetDistributionPassInterval() time.Duration { return c.DistributionPassInterval }
func (c *Config) GetQueueRecalcInterval() time.Duration      { return c.QueueRecalcInterval }
func (c *Config) GetRetentionCleanupInterval() time.Duration { return c.RetentionCleanupInterval }
func (c *Config) GetRetentionWindow() time.Duration          { return c.RetentionWindow }

// =============================================================================
// Helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func getPositiveInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
