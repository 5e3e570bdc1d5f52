package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Database.ConnectRetries)
	assert.Equal(t, 5*time.Second, cfg.Database.RetryInterval)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 10, cfg.Quiz.Target)
	assert.Equal(t, 24*time.Hour, cfg.Cleanup.SessionTTL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DATABASE_DSN", "postgres://trivia@localhost/trivia")
	t.Setenv("DATABASE_RETRY_INTERVAL", "250ms")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_ADDRESS", "redis:6379")
	t.Setenv("SESSION_IDLE_TTL", "2h")
	t.Setenv("QUIZ_TARGET", "not-a-number")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres://trivia@localhost/trivia", cfg.Database.DSN)
	assert.Equal(t, 250*time.Millisecond, cfg.Database.RetryInterval)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Address)
	assert.Equal(t, 2*time.Hour, cfg.Cleanup.SessionTTL)
	// Unparseable values fall back to the default
	assert.Equal(t, 10, cfg.Quiz.Target)
}

func TestValidate(t *testing.T) {
	tests := map[string]string{
		"SERVER_PORT":              "70000",
		"DATABASE_CONNECT_RETRIES": "0",
		"QUIZ_TARGET":              "-1",
		"LOG_LEVEL":                "chatty",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestRedisAddressRequiredWhenEnabled(t *testing.T) {
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_ADDRESS", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	level, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}
