package commands

import (
	"context"
	"fmt"
	"runtime"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/herald/internal/config"
	"github.com/keshon/herald/internal/discord"
	"github.com/keshon/herald/internal/registry"
	"github.com/keshon/herald/internal/version"
	"github.com/keshon/herald/pkg/cmd"
)

// both exposes one handler on the prefix and the slash surface.
func both(def registry.CommandDefinition, h cmd.Handler) registry.CommandDefinition {
	def.Text.Enabled, def.Text.Handler = true, h
	def.Slash.Enabled, def.Slash.Handler = true, h
	return def
}

func pingCommand() registry.CommandDefinition {
	return both(registry.CommandDefinition{
		Name:        "ping",
		Description: "shows the current ping from the bot to the discord servers",
		Category:    config.CategoryInformation,
	}, cmd.HandlerFunc(func(ctx context.Context, inv *cmd.Invocation) error {
		c, err := discord.ContextOf(inv)
		if err != nil {
			return err
		}
		return c.Reply(c.Embed(fmt.Sprintf("🏓 Pong! %dms", c.Latency().Milliseconds())))
	}))
}

func inviteCommand() registry.CommandDefinition {
	return both(registry.CommandDefinition{
		Name:        "invite",
		Description: "gives you bot invite",
		Category:    config.CategoryInformation,
	}, cmd.HandlerFunc(func(ctx context.Context, inv *cmd.Invocation) error {
		c, err := discord.ContextOf(inv)
		if err != nil {
			return err
		}
		return c.Reply(inviteEmbed(c.Discord().State.User.ID, c.Config().EmbedColors.Bot))
	}))
}

func inviteEmbed(appID string, color int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Invite " + version.AppName,
		Color:       color,
		Description: fmt.Sprintf("[Click here to add me to your server](%s)", discord.InviteURL(appID)),
	}
}

func aboutCommand() registry.CommandDefinition {
	return both(registry.CommandDefinition{
		Name:        "about",
		Description: "shows info about the bot",
		Category:    config.CategoryInformation,
	}, cmd.HandlerFunc(func(ctx context.Context, inv *cmd.Invocation) error {
		c, err := discord.ContextOf(inv)
		if err != nil {
			return err
		}
		return c.Reply(aboutEmbed(c.Registry().Stats(), c.Config().EmbedColors.Bot))
	}))
}

func aboutEmbed(stats registry.Stats, color int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "ℹ️ About " + version.AppName,
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Version", Value: version.String(), Inline: true},
			{Name: "Go", Value: runtime.Version(), Inline: true},
			{Name: "Commands", Value: fmt.Sprintf("%d text, %d slash, %d context menus",
				stats.Text, stats.Slash, stats.UserContexts+stats.MessageContexts)},
		},
	}
}
