package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for trivia-engine
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Catalog  CatalogConfig
	Cleanup  CleanupConfig
	Quiz     QuizConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	DSN            string
	MaxConns       int
	MinConns       int
	ConnectRetries int
	RetryInterval  time.Duration
	// MigrationsDir overrides the migrations built into the binary
	MigrationsDir string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled       bool
	Address       string
	Password      string
	DB            int
	CacheTTL      time.Duration
	LockTTL       time.Duration
	EventsChannel string
}

// CatalogConfig holds question catalog configuration
type CatalogConfig struct {
	// Path is a YAML file or directory; empty means the built-in catalog
	Path string
}

// CleanupConfig holds stale session cleanup configuration
type CleanupConfig struct {
	Interval   time.Duration
	SessionTTL time.Duration
	BatchLimit int
}

// QuizConfig holds game rules
type QuizConfig struct {
	Target int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			RequestTimeout: getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			DSN:            getEnv("DATABASE_DSN", ""),
			MaxConns:       getEnvAsInt("DATABASE_MAX_CONNS", 25),
			MinConns:       getEnvAsInt("DATABASE_MIN_CONNS", 2),
			ConnectRetries: getEnvAsInt("DATABASE_CONNECT_RETRIES", 5),
			RetryInterval:  getEnvAsDuration("DATABASE_RETRY_INTERVAL", 5*time.Second),
			MigrationsDir:  getEnv("MIGRATIONS_DIR", ""),
		},
		Redis: RedisConfig{
			Enabled:       getEnvAsBool("REDIS_ENABLED", false),
			Address:       getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password:      getEnv("REDIS_PASSWORD", ""),
			DB:            getEnvAsInt("REDIS_DB", 0),
			CacheTTL:      getEnvAsDuration("REDIS_CACHE_TTL", 10*time.Minute),
			LockTTL:       getEnvAsDuration("REDIS_LOCK_TTL", 10*time.Second),
			EventsChannel: getEnv("REDIS_EVENTS_CHANNEL", "trivia:events"),
		},
		Catalog: CatalogConfig{
			Path: getEnv("CATALOG_PATH", ""),
		},
		Cleanup: CleanupConfig{
			Interval:   getEnvAsDuration("CLEANUP_INTERVAL", 5*time.Minute),
			SessionTTL: getEnvAsDuration("SESSION_IDLE_TTL", 24*time.Hour),
			BatchLimit: getEnvAsInt("CLEANUP_BATCH_LIMIT", 100),
		},
		Quiz: QuizConfig{
			Target: getEnvAsInt("QUIZ_TARGET", 10),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration. The database DSN is checked by
// the commands that need it.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.ConnectRetries < 1 {
		return fmt.Errorf("database connect retries must be at least 1, got %d", c.Database.ConnectRetries)
	}

	if c.Redis.Enabled && c.Redis.Address == "" {
		return fmt.Errorf("redis address is required when redis is enabled")
	}

	if c.Quiz.Target < 1 {
		return fmt.Errorf("quiz target must be positive, got %d", c.Quiz.Target)
	}

	if c.Cleanup.SessionTTL <= 0 {
		return fmt.Errorf("session idle ttl must be positive")
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}

	return nil
}

// ParseLevel maps a LOG_LEVEL value onto a slog level
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %q", s)
	}
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
