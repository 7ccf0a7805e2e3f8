// Package config handles application configuration from environment variables.
package config

import (
	"errors"
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the application configuration.
type Config struct {
	TelegramToken string `envconfig:"TELEGRAM_TOKEN"`

	MinifluxBaseURL  string `envconfig:"MINIFLUX_BASE_URL"`
	MinifluxUsername string `envconfig:"MINIFLUX_USERNAME"`
	MinifluxPassword string `envconfig:"MINIFLUX_PASSWORD"`
	MinifluxAPIKey   string `envconfig:"MINIFLUX_API_KEY"`

	BridgeURL string `envconfig:"RSS_BRIDGE_URL"`

	Admin                 string `envconfig:"ADMIN"`
	AcceptWithoutUsername bool   `envconfig:"ACCEPT_CHANNELS_WITHOUT_USERNAME" default:"false"`

	DatabasePath string `envconfig:"DATABASE_PATH" default:"./data/bot.db"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_TOKEN is required")
	}
	if c.MinifluxBaseURL == "" {
		return errors.New("MINIFLUX_BASE_URL is required")
	}
	if c.MinifluxAPIKey == "" && (c.MinifluxUsername == "" || c.MinifluxPassword == "") {
		return errors.New("miniflux credentials are required: set MINIFLUX_API_KEY or MINIFLUX_USERNAME and MINIFLUX_PASSWORD")
	}
	if c.Admin == "" {
		return errors.New("ADMIN is required")
	}
	if c.BridgeURL == "" {
		return errors.New("RSS_BRIDGE_URL is required")
	}
	return nil
}

// IsAdmin checks whether a Telegram username matches the configured admin.
func (c *Config) IsAdmin(username string) bool {
	return username != "" && username == c.Admin
}
