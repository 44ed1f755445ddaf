// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/lmittmann/tint"
)

// Backend selects the event store implementation.
const (
	BackendMemory   = "memory"
	BackendDisk     = "disk"
	BackendPostgres = "postgres"
)

// Config is the full runtime configuration of the booking daemon.
type Config struct {
	// Env is "development" or "production"; it selects the log format.
	Env string `envconfig:"APP_ENV" default:"development"`

	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	// EventStoreBackend is "memory", "disk" or "postgres".
	EventStoreBackend string `envconfig:"EVENTSTORE_BACKEND" default:"memory"`
	EventStoreDir     string `envconfig:"EVENTSTORE_DIR" default:"./data/events"`
	PostgresDSN       string `envconfig:"PG_DSN"`

	// RedisAddr enables the accommodation catalog cache when set.
	RedisAddr string        `envconfig:"REDIS_ADDR"`
	RedisTTL  time.Duration `envconfig:"REDIS_TTL" default:"5m"`

	// AMQPURL enables event publication to RabbitMQ when set; empty keeps
	// the in-process bus only.
	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"booking.events"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}

	switch cfg.EventStoreBackend {
	case BackendMemory, BackendDisk:
	case BackendPostgres:
		if cfg.PostgresDSN == "" {
			return Config{}, fmt.Errorf("PG_DSN is required when EVENTSTORE_BACKEND=%s", BackendPostgres)
		}
	default:
		return Config{}, fmt.Errorf("unknown EVENTSTORE_BACKEND %q", cfg.EventStoreBackend)
	}

	return cfg, nil
}

// NewLogger builds the process logger: colorized console output during
// development, JSON in production.
func (c Config) NewLogger() *slog.Logger {
	if c.Env == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen,
	}))
}
