// Package commands holds the built-in command set. Every handler works on
// both the prefix and the slash surface through discord.Context.
package commands

import (
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/herald/internal/config"
	"github.com/keshon/herald/internal/registry"
	"github.com/keshon/herald/internal/storage"
)

// Deps are the services commands use outside of an invocation context.
type Deps struct {
	Config *config.Config
	Store  *storage.Storage
	Log    zerolog.Logger
}

// Definitions returns the built-in commands in registration order.
func Definitions(deps Deps) []registry.CommandDefinition {
	return []registry.CommandDefinition{
		helpCommand(deps),
		pingCommand(),
		inviteCommand(),
		aboutCommand(),
		avatarCommand(),
		applicationCommand(deps),
		prefixCommand(deps),
	}
}

// Contexts returns the built-in context menus.
func Contexts(deps Deps) []registry.ContextMenuDefinition {
	return []registry.ContextMenuDefinition{
		avatarContext(),
		messageInfoContext(),
	}
}

var channelRef = regexp.MustCompile(`^(?:<#(\d+)>|(\d{17,20}))$`)

// matchChannel resolves a channel mention, ID or name against channels.
// Names match text channels only, ignoring case and a leading '#'.
func matchChannel(channels []*discordgo.Channel, arg string) string {
	arg = strings.TrimSpace(arg)
	if m := channelRef.FindStringSubmatch(arg); m != nil {
		if m[1] != "" {
			return m[1]
		}
		return m[2]
	}
	name := strings.ToLower(strings.TrimPrefix(arg, "#"))
	if name == "" {
		return ""
	}
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildText && strings.ToLower(ch.Name) == name {
			return ch.ID
		}
	}
	return ""
}

// resolveChannel looks the argument up in the guild's channels, from state
// first and REST otherwise.
func resolveChannel(s *discordgo.Session, guildID, arg string) string {
	var channels []*discordgo.Channel
	if g, err := s.State.Guild(guildID); err == nil {
		channels = g.Channels
	} else if chs, err := s.GuildChannels(guildID); err == nil {
		channels = chs
	}
	return matchChannel(channels, arg)
}

func channelOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionChannel,
		Name:         "channel",
		Description:  description,
		ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
		Required:     true,
	}
}

// NewRegistry loads the built-in commands and context menus into a frozen
// registry. Categories switched off in the config are skipped.
func NewRegistry(deps Deps) (*registry.Registry, error) {
	opts := []registry.Option{registry.WithLogger(deps.Log)}
	if deps.Config != nil {
		opts = append(opts, registry.WithCategoryFilter(deps.Config.CategoryEnabled))
	}
	reg := registry.New(opts...)
	if err := reg.Load(Definitions(deps)); err != nil {
		return nil, err
	}
	if err := reg.LoadContexts(Contexts(deps)); err != nil {
		return nil, err
	}
	reg.Freeze()
	return reg, nil
}
