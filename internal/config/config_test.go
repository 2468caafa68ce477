package config_test

import (
	"log/slog"
	"testing"

	"github.com/playperu/matchday/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.DBPath != "data/matchday.db" || cfg.ClockSpeed != 1 || !cfg.SeedDemo {
		t.Errorf("got %+v", cfg)
	}
	if cfg.RedisURL != "" {
		t.Errorf("RedisURL = %q, want empty", cfg.RedisURL)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("CLOCK_SPEED", "60")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SEED_DEMO", "false")

	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if cfg.ClockSpeed != 60 || cfg.SeedDemo || cfg.RedisURL == "" {
		t.Errorf("got %+v", cfg)
	}
}

func TestLoadRejectsUnsupportedSpeed(t *testing.T) {
	t.Setenv("CLOCK_SPEED", "5")
	if _, err := config.Load(); err == nil {
		t.Fatal("speed 5 accepted")
	}
}
