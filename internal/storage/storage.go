// /internal/storage/storage.go
package storage

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const commandHistoryLimit int = 20

// MaxPrefixLength bounds a guild prefix in characters.
const MaxPrefixLength = 2

var (
	ErrPrefixTooLong     = fmt.Errorf("prefix is longer than %d characters", MaxPrefixLength)
	ErrPrefixInvalidChar = errors.New("prefix contains whitespace or a backtick")
)

// ValidatePrefix rejects prefixes that could not be typed as a command
// start. The empty prefix is valid and means the configured default.
func ValidatePrefix(p string) error {
	switch {
	case utf8.RuneCountInString(p) > MaxPrefixLength:
		return ErrPrefixTooLong
	case strings.ContainsAny(p, " \t\n`"):
		return ErrPrefixInvalidChar
	}
	return nil
}

// CommandHistory is one logged command execution.
type CommandHistory struct {
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	GuildName   string    `json:"guild_name"`
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	Command     string    `json:"command"`
	Datetime    time.Time `json:"datetime"`
}

// GuildSettings is the guild-scoped configuration document.
type GuildSettings struct {
	GuildID               string           `json:"guild_id"`
	Prefix                string           `json:"prefix,omitempty"`
	ApplicationLogChannel string           `json:"application_log_channel,omitempty"`
	DisabledCategories    []string         `json:"disabled_categories,omitempty"`
	CommandsHistory       []CommandHistory `json:"commands_history,omitempty"`
}

// IsCategoryDisabled reports whether a category is switched off for the guild.
func (g *GuildSettings) IsCategoryDisabled(category string) bool {
	return slices.Contains(g.DisabledCategories, category)
}

// Storage is the guild settings store.
type Storage struct {
	docs *docStore
	mu   sync.Mutex // serializes read-modify-write of documents
}

// New opens the store at filePath with default options.
func New(filePath string) (*Storage, error) {
	return Open(DefaultOptions(filePath))
}

// Open opens the store with explicit options.
func Open(opts Options) (*Storage, error) {
	docs, err := openDocs(opts)
	if err != nil {
		return nil, err
	}
	return &Storage{docs: docs}, nil
}

// Flush writes pending changes to disk.
func (s *Storage) Flush() error { return s.docs.flush() }

// Close stops autosave and flushes.
func (s *Storage) Close() error { return s.docs.close() }

func guildKey(guildID string) string { return "guild:" + guildID }

// Settings returns the guild's settings, or an empty document for a guild
// that has none.
func (s *Storage) Settings(guildID string) (GuildSettings, error) {
	var g GuildSettings
	if _, err := s.docs.get(guildKey(guildID), &g); err != nil {
		return GuildSettings{}, err
	}
	g.GuildID = guildID
	return g, nil
}

// UpdateSettings applies fn to the guild's settings and stores the result.
// Nothing is stored when fn returns an error.
func (s *Storage) UpdateSettings(guildID string, fn func(*GuildSettings) error) (GuildSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.Settings(guildID)
	if err != nil {
		return GuildSettings{}, err
	}
	if err := fn(&g); err != nil {
		return GuildSettings{}, err
	}
	if len(g.CommandsHistory) > commandHistoryLimit {
		g.CommandsHistory = g.CommandsHistory[len(g.CommandsHistory)-commandHistoryLimit:]
	}
	if err := s.docs.put(guildKey(guildID), g); err != nil {
		return GuildSettings{}, fmt.Errorf("failed to save settings for guild %s: %w", guildID, err)
	}
	return g, nil
}

// SetPrefix sets the guild's text command prefix. An empty prefix restores the
// configured default.
func (s *Storage) SetPrefix(guildID, prefix string) error {
	if err := ValidatePrefix(prefix); err != nil {
		return err
	}
	_, err := s.UpdateSettings(guildID, func(g *GuildSettings) error {
		g.Prefix = prefix
		return nil
	})
	return err
}

// SetApplicationLogChannel sets the channel receiving submitted applications.
func (s *Storage) SetApplicationLogChannel(guildID, channelID string) error {
	_, err := s.UpdateSettings(guildID, func(g *GuildSettings) error {
		g.ApplicationLogChannel = channelID
		return nil
	})
	return err
}
