package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env      string `env:"ENV"       envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT"      envDefault:"8080"  validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"  validate:"oneof=debug info warn error"`
	LogFile  string `env:"LOG_FILE"`

	// AllowedOrigins may open the snapshot websocket cross-origin.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"memory" validate:"oneof=memory postgres"`
	DatabaseURL   string `env:"DATABASE_URL"                        validate:"required_if=StorageDriver postgres"`

	APIBaseURL string `env:"API_BASE_URL" envDefault:"http://localhost:8000/api/v1" validate:"required,url"`

	GenAIAPIKey     string        `env:"GENAI_API_KEY"`
	GenAIBaseURL    string        `env:"GENAI_BASE_URL"`
	GenAITextModel  string        `env:"GENAI_TEXT_MODEL"`
	GenAIImageModel string        `env:"GENAI_IMAGE_MODEL"`
	GenAITimeout    time.Duration `env:"GENAI_TIMEOUT" envDefault:"60s"`

	DeviceJWTSecret string        `env:"DEVICE_JWT_SECRET,required" validate:"required,min=32"`
	DeviceTokenTTL  time.Duration `env:"DEVICE_TOKEN_TTL" envDefault:"720h"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	DeviceIdleTTL   time.Duration `env:"DEVICE_IDLE_TTL"  envDefault:"30m"`
	EvictInterval   time.Duration `env:"EVICT_INTERVAL"   envDefault:"1m"`
	SelectionTTL    time.Duration `env:"SELECTION_TTL"    envDefault:"168h"`
	DeviceRetention time.Duration `env:"DEVICE_RETENTION" envDefault:"2160h"`
	JanitorCron     string        `env:"JANITOR_CRON"     envDefault:"@every 10m" validate:"required"`
	JanitorBatch    int           `env:"JANITOR_BATCH"    envDefault:"500"        validate:"min=1,max=10000"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
