// /internal/config/config.go
package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Env holds secrets and deployment paths read from the environment (and an
// optional .env file).
type Env struct {
	DiscordToken   string `env:"DISCORD_TOKEN"`
	StoragePath    string `env:"STORAGE_PATH" envDefault:"data/datastore.json"`
	ConfigPath     string `env:"CONFIG_PATH" envDefault:"bot.yaml"`
	JoinLeaveLogs  string `env:"JOIN_LEAVE_LOGS"`
	DashboardToken string `env:"DASHBOARD_TOKEN"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile        string `env:"LOG_FILE"`
	DeveloperID    string `env:"DEVELOPER_ID"`
}

// Config is the full runtime configuration.
type Config struct {
	Env
	Bot
}

// Load reads .env (if present), the environment, and the bot file named by
// CONFIG_PATH. A missing bot file yields the defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var e Env
	if err := env.Parse(&e); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	bot, err := LoadBotFile(e.ConfigPath)
	if err != nil {
		return nil, err
	}

	cfg := &Config{Env: e, Bot: *bot}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects inconsistent settings.
func (c *Config) Validate() error {
	var errs []error
	if c.Prefix == "" {
		errs = append(errs, errors.New("prefix must not be empty"))
	}
	if !c.Interactions.Global && c.Interactions.TestGuildID == "" && (c.Interactions.Slash || c.Interactions.Context) {
		errs = append(errs, errors.New("interactions.test_guild_id is required when interactions.global is false"))
	}
	if c.Presence.Enabled && c.Presence.UpdateInterval <= 0 {
		errs = append(errs, errors.New("presence.update_interval must be positive"))
	}
	if c.Dashboard.Enabled && c.DashboardToken == "" {
		errs = append(errs, errors.New("DASHBOARD_TOKEN is required when the dashboard is enabled"))
	}
	return errors.Join(errs...)
}

// RequireToken fails when no Discord token is configured.
func (c *Config) RequireToken() error {
	if c.DiscordToken == "" {
		return errors.New("DISCORD_TOKEN is not set")
	}
	return nil
}

// IsDeveloper reports whether userID is the configured developer.
func (c *Config) IsDeveloper(userID string) bool {
	return c != nil && c.DeveloperID != "" && c.DeveloperID == userID
}
