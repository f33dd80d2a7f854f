package config_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/ErlanBelekov/sultan-shell/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DEVICE_JWT_SECRET", secret)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "memory", cfg.StorageDriver)
	assert.Equal(t, "http://localhost:8000/api/v1", cfg.APIBaseURL)
	assert.Equal(t, 30*time.Minute, cfg.DeviceIdleTTL)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("DEVICE_JWT_SECRET", "")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestPostgresNeedsDatabaseURL(t *testing.T) {
	t.Setenv("DEVICE_JWT_SECRET", secret)
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := config.Load()
	require.Error(t, err)

	t.Setenv("DATABASE_URL", "postgres://localhost/sultan")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.StorageDriver)
}

func TestSlogLevel(t *testing.T) {
	t.Setenv("DEVICE_JWT_SECRET", secret)
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())

	t.Setenv("LOG_LEVEL", "verbose")
	_, err = config.Load()
	assert.Error(t, err)
}
