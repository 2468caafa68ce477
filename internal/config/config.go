package config

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/caarlos0/env/v11"

	"github.com/playperu/matchday/internal/clock"
)

type Config struct {
	HTTPAddr      string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath        string     `env:"DB_PATH" envDefault:"data/matchday.db"`
	LogLevel      slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	RedisURL      string     `env:"REDIS_URL"`
	NotifyChannel string     `env:"NOTIFY_CHANNEL" envDefault:"matchday.finalized"`
	ClockSpeed    int        `env:"CLOCK_SPEED" envDefault:"1"`
	SeedDemo      bool       `env:"SEED_DEMO" envDefault:"true"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if !slices.Contains(clock.Speeds, cfg.ClockSpeed) {
		return nil, fmt.Errorf("CLOCK_SPEED must be one of %v, got %d", clock.Speeds, cfg.ClockSpeed)
	}
	return &cfg, nil
}
