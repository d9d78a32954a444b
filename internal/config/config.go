package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// Config keeps runtime settings for the bot. Values come from an optional
// YAML file (CONFIG_PATH, default ./nudgebot.yaml) with environment
// variables taking precedence.
type Config struct {
	TelegramToken   string        `yaml:"telegram_token"`
	DatabaseURL     string        `yaml:"database_url"`
	DefaultTZ       string        `yaml:"default_timezone"`
	ReminderTick    time.Duration `yaml:"reminder_tick"`
	CatchupTick     time.Duration `yaml:"catchup_tick"`
	DigestSendAfter string        `yaml:"digest_send_after"` // local HH:MM
	LogLevel        string        `yaml:"log_level"`
}

// Load reads configuration with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL:     "nudgebot.db",
		DefaultTZ:       "Europe/Warsaw",
		ReminderTick:    time.Minute,
		CatchupTick:     5 * time.Minute,
		DigestSendAfter: "09:00",
		LogLevel:        "info",
	}

	path := strings.TrimSpace(os.Getenv("CONFIG_PATH"))
	if path == "" {
		path = "nudgebot.yaml"
	}
	if err := loadFile(&cfg, path, os.Getenv("CONFIG_PATH") != ""); err != nil {
		return cfg, err
	}
	applyEnv(&cfg)

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	if _, err := time.LoadLocation(cfg.DefaultTZ); err != nil {
		return cfg, fmt.Errorf("invalid default_timezone %q: %w", cfg.DefaultTZ, err)
	}
	if cfg.ReminderTick < time.Second {
		return cfg, fmt.Errorf("reminder_tick %v is below one second", cfg.ReminderTick)
	}
	if cfg.CatchupTick < time.Second {
		return cfg, fmt.Errorf("catchup_tick %v is below one second", cfg.CatchupTick)
	}
	return cfg, nil
}

// loadFile merges a YAML file into cfg. A missing file is only an error
// when the path was set explicitly.
func loadFile(cfg *Config, path string, explicit bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")); v != "" {
		cfg.TelegramToken = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DEFAULT_TZ")); v != "" {
		cfg.DefaultTZ = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("DIGEST_SEND_AFTER")); v != "" {
		cfg.DigestSendAfter = v
	}
	if d := parseDuration(os.Getenv("REMINDER_TICK")); d > 0 {
		cfg.ReminderTick = d
	}
	if d := parseDuration(os.Getenv("CATCHUP_TICK")); d > 0 {
		cfg.CatchupTick = d
	}
}

func parseDuration(raw string) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0
	}
	return d
}
