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
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
	IsMetricsEnabled() bool
}

// SchedulerConfig provides settings for the asynq task scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// BoardConfig provides tuning for the pipeline board engine.
type BoardConfig interface {
	GetDragLockBackend() string
	GetDragSessionTTL() time.Duration
	GetHistoryDedupWindow() time.Duration
	GetMemberSort() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Drag lock backends.
const (
	DragLockMemory = "memory"
	DragLockRedis  = "redis"
)

// Config holds all application configuration values.
type Config struct {
	Env                string
	HTTPAddr           string
	DatabaseURL        string
	JWTAccessSecret    string
	CORSAllowAll       bool
	CORSOrigins        []string
	CORSAllowCreds     bool
	MetricsEnabled     bool
	RedisURL           string
	RedisTLSInsecure   bool
	AsynqQueueName     string
	AsynqConcurrency   int
	DragLockBackend    string
	DragSessionTTL     time.Duration
	HistoryDedupWindow time.Duration
	MemberSort         string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }
func (c *Config) IsMetricsEnabled() bool   { return c.MetricsEnabled }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }
func (c *Config) IsSchedulerEnabled() bool  { return c.RedisURL != "" }

// BoardConfig implementation
func (c *Config) GetDragLockBackend() string           { return c.DragLockBackend }
func (c *Config) GetDragSessionTTL() time.Duration     { return c.DragSessionTTL }
func (c *Config) GetHistoryDedupWindow() time.Duration { return c.HistoryDedupWindow }
func (c *Config) GetMemberSort() string                { return c.MemberSort }

// Load reads configuration from environment variables for the API server.
func Load() (*Config, error) {
	cfg, err := LoadBase()
	if err != nil {
		return nil, err
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	return cfg, nil
}

// LoadBase reads the settings shared by every binary (api, worker, CLI).
func LoadBase() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	dragSessionTTL, err := time.ParseDuration(getEnv("DRAG_SESSION_TTL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid DRAG_SESSION_TTL: %w", err)
	}
	dedupWindow, err := time.ParseDuration(getEnv("HISTORY_DEDUP_WINDOW", "2s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HISTORY_DEDUP_WINDOW: %w", err)
	}
	concurrency, err := strconv.Atoi(getEnv("ASYNQ_CONCURRENCY", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid ASYNQ_CONCURRENCY: %w", err)
	}

	cfg := &Config{
		Env:                getEnv("APP_ENV", "development"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		JWTAccessSecret:    getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:       corsAllowAll,
		CORSOrigins:        corsOrigins,
		CORSAllowCreds:     strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		MetricsEnabled:     strings.EqualFold(getEnv("METRICS_ENABLED", "true"), "true"),
		RedisURL:           getEnv("REDIS_URL", ""),
		RedisTLSInsecure:   strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:     getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:   concurrency,
		DragLockBackend:    strings.ToLower(getEnv("DRAG_LOCK_BACKEND", DragLockMemory)),
		DragSessionTTL:     dragSessionTTL,
		HistoryDedupWindow: dedupWindow,
		MemberSort:         getEnv("MEMBER_SORT", "entered_desc"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	switch cfg.DragLockBackend {
	case DragLockMemory:
	case DragLockRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("DRAG_LOCK_BACKEND=redis requires REDIS_URL")
		}
	default:
		return nil, fmt.Errorf("unknown DRAG_LOCK_BACKEND %q", cfg.DragLockBackend)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
