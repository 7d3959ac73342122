// Package config loads all application configuration from environment
// variables. Every setting has a sensible default so the app can start
// with nothing but database credentials set.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Config holds all application configuration.
type Config struct {
	Env      string
	Port     string
	LogLevel string

	// TrustedProxies is a list of CIDR ranges whose X-Forwarded-For
	// headers are honored when resolving client IPs.
	TrustedProxies []string

	Database  DatabaseConfig
	Redis     RedisConfig
	Security  SecurityConfig
	RateLimit RateLimitConfig
}

// DatabaseConfig holds MariaDB connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN builds the MySQL data source name from the individual settings.
func (d DatabaseConfig) DSN() string {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, d.Port)
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.DBName = d.Name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	// Count matched rows, not changed rows, so updating a row with its
	// current values doesn't look like a missing row to RowsAffected.
	cfg.ClientFoundRows = true
	return cfg.FormatDSN()
}

// RedisConfig holds Redis connection settings. Redis is optional: the
// session store falls back to an in-memory backend when SessionBackend
// is "memory".
type RedisConfig struct {
	URL            string
	SessionBackend string // "memory" or "redis"
}

// SecurityConfig holds session and CSRF settings.
type SecurityConfig struct {
	SessionTimeout time.Duration
	CSRFSecretKey  string
	SweepInterval  time.Duration
}

// RateLimitConfig holds fixed-window rate limiting settings.
type RateLimitConfig struct {
	Enabled               bool
	RequestsPerMinute     int
	AuthRequestsPerMinute int
}

// Load reads configuration from environment variables, applying defaults
// for anything unset.
func Load() (*Config, error) {
	cfg := &Config{
		Env:            getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		TrustedProxies: getEnvList("TRUSTED_PROXIES", nil),
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "3306"),
			User:            getEnv("DB_USER", "roster"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "roster"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME_MINUTES", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:            getEnv("REDIS_URL", "redis://localhost:6379/0"),
			SessionBackend: getEnv("SESSION_BACKEND", "memory"),
		},
		Security: SecurityConfig{
			SessionTimeout: getEnvDuration("SESSION_TIMEOUT_MINUTES", 30*time.Minute),
			CSRFSecretKey:  getEnv("CSRF_SECRET_KEY", ""),
			SweepInterval:  getEnvDuration("SESSION_SWEEP_INTERVAL_MINUTES", 5*time.Minute),
		},
		RateLimit: RateLimitConfig{
			Enabled:               getEnvBool("RATE_LIMIT_ENABLED", true),
			RequestsPerMinute:     getEnvInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 60),
			AuthRequestsPerMinute: getEnvInt("RATE_LIMIT_AUTH_REQUESTS_PER_MINUTE", 10),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	switch cfg.Redis.SessionBackend {
	case "memory", "redis":
	default:
		return nil, fmt.Errorf("SESSION_BACKEND must be \"memory\" or \"redis\", got %q", cfg.Redis.SessionBackend)
	}

	if cfg.Security.CSRFSecretKey == "" {
		key, err := randomKey(32)
		if err != nil {
			return nil, fmt.Errorf("generating csrf secret key: %w", err)
		}
		cfg.Security.CSRFSecretKey = key
		slog.Warn("CSRF_SECRET_KEY not set, generated a random key; tokens will not survive restarts")
	}

	return cfg, nil
}

// IsDevelopment returns true when running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func randomKey(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func ensurePort(host, port string) string {
	if strings.Contains(host, ":") {
		return host
	}
	return host + ":" + port
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvList reads a comma-separated list from the environment.
func getEnvList(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
		slog.Warn("invalid integer in environment, using default",
			slog.String("key", key), slog.Int("default", fallback))
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
		slog.Warn("invalid boolean in environment, using default",
			slog.String("key", key), slog.Bool("default", fallback))
	}
	return fallback
}

// getEnvDuration reads a minute count from the environment and converts
// it to a duration.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * time.Minute
		}
		slog.Warn("invalid duration in environment, using default",
			slog.String("key", key), slog.Duration("default", fallback))
	}
	return fallback
}
