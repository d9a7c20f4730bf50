package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Bot is the bot.yaml file.
type Bot struct {
	Prefix       string              `yaml:"prefix"`
	Interactions Interactions        `yaml:"interactions"`
	Presence     Presence            `yaml:"presence"`
	Dashboard    Dashboard           `yaml:"dashboard"`
	Categories   map[string]Category `yaml:"categories"`
	EmbedColors  EmbedColors         `yaml:"embed_colors"`
	UpdateCheck  UpdateCheck         `yaml:"update_check"`
}

// Interactions toggles the application command surfaces and their scope.
type Interactions struct {
	Slash       bool   `yaml:"slash"`
	Context     bool   `yaml:"context"`
	Global      bool   `yaml:"global"`
	TestGuildID string `yaml:"test_guild_id"`
}

// Presence configures the periodic status update. Message may contain
// {members} and {servers}.
type Presence struct {
	Enabled        bool          `yaml:"enabled"`
	Status         string        `yaml:"status"`
	Type           string        `yaml:"type"`
	Message        string        `yaml:"message"`
	UpdateInterval time.Duration `yaml:"update_interval"`
}

type Dashboard struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	BaseURL string `yaml:"base_url"`
}

type EmbedColors struct {
	Bot     int `yaml:"bot"`
	Success int `yaml:"success"`
	Error   int `yaml:"error"`
	Warning int `yaml:"warning"`
}

type UpdateCheck struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// DefaultBot returns the settings used when no bot file exists.
func DefaultBot() *Bot {
	return &Bot{
		Prefix: "!",
		Interactions: Interactions{
			Slash:   true,
			Context: true,
			Global:  true,
		},
		Presence: Presence{
			Enabled:        true,
			Status:         "online",
			Type:           "WATCHING",
			Message:        "{members} members in {servers} servers",
			UpdateInterval: 2 * time.Minute,
		},
		Dashboard: Dashboard{
			Addr:    ":8080",
			BaseURL: "http://localhost:8080",
		},
		Categories: DefaultCategories(),
		EmbedColors: EmbedColors{
			Bot:     0x068ADD,
			Success: 0x00A56A,
			Error:   0xD61A3C,
			Warning: 0xF7E919,
		},
		UpdateCheck: UpdateCheck{
			Enabled: true,
			URL:     "https://api.github.com/repos/keshon/herald/releases/latest",
		},
	}
}

// LoadBotFile decodes path over the defaults. A missing file is not an error.
func LoadBotFile(path string) (*Bot, error) {
	bot := DefaultBot()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return bot, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	bot.Categories = nil
	if err := yaml.Unmarshal(data, bot); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	bot.Categories = mergeCategories(DefaultCategories(), bot.Categories)

	return bot, nil
}
