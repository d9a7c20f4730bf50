package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/herald/internal/registry"
	"github.com/keshon/herald/pkg/cmd"
)

// parseInvocation splits content into a command name and arguments when it
// starts with prefix or mentions the bot. ok is false for anything else.
func parseInvocation(content, prefix, botID string) (name string, args []string, ok bool) {
	content = strings.TrimSpace(content)

	var rest string
	switch {
	case prefix != "" && strings.HasPrefix(content, prefix):
		rest = content[len(prefix):]
	case botID != "" && strings.HasPrefix(content, "<@"+botID+">"):
		rest = content[len("<@"+botID+">"):]
	case botID != "" && strings.HasPrefix(content, "<@!"+botID+">"):
		rest = content[len("<@!"+botID+">"):]
	default:
		return "", nil, false
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", nil, false
	}
	return fields[0], fields[1:], true
}

// textMiddleware is the chain for prefix commands, outermost first.
func (b *Bot) textMiddleware(def *registry.CommandDefinition) []cmd.Middleware {
	return []cmd.Middleware{
		WithGuildOnly(),
		WithCommandLogger(b.store, b.channelNames, b.log),
		WithCategoryCheck(def.Category, b.isCategoryDisabled),
		WithMinArgs(def.Text.MinArgs, def.Text.Usage),
		WithUserPermissionCheck(def.UserPermissions, b.permissions, b.isAdministrator),
		WithBotPermissionCheck(def.BotPermissions, b.permissions, b.AppID),
		WithCooldown(b.cooldowns, def.Cooldown),
	}
}

// slashMiddleware is the chain for slash commands, outermost first.
func (b *Bot) slashMiddleware(def *registry.CommandDefinition) []cmd.Middleware {
	return []cmd.Middleware{
		WithGuildOnly(),
		WithCommandLogger(b.store, b.channelNames, b.log),
		WithCategoryCheck(def.Category, b.isCategoryDisabled),
		WithUserPermissionCheck(def.UserPermissions, b.permissions, b.isAdministrator),
		WithBotPermissionCheck(def.BotPermissions, b.permissions, b.AppID),
		WithCooldown(b.cooldowns, def.Cooldown),
	}
}

// onMessageCreate is called when a message is created
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	settings := b.settings(m.GuildID)
	prefix := settings.Prefix
	if prefix == "" {
		prefix = b.cfg.Prefix
	}

	name, args, ok := parseInvocation(m.Content, prefix, s.State.User.ID)
	if !ok {
		return
	}
	def, ok := b.reg.Lookup(name)
	if !ok {
		return
	}

	mctx := &MessageContext{
		base:  base{Bot: b, Session: s, Settings: settings},
		Event: m,
	}
	inv := &cmd.Invocation{Name: def.Name, Args: args, Data: mctx}

	if err := cmd.Apply(def.Text.Handler, b.textMiddleware(def)...).Run(b.ctx, inv); err != nil {
		b.log.Error().Err(err).Str("command", def.Name).Msg("Error running command")
		_ = mctx.Reply(mctx.ErrorEmbed(fmt.Sprintf("Error running command: %v", err)))
	}
}

// onInteractionCreate is called when an interaction is created
func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ictx := &InteractionContext{
		base:  base{Bot: b, Session: s, Settings: b.settings(i.GuildID)},
		Event: i,
	}

	var (
		handler cmd.Handler
		inv     *cmd.Invocation
	)

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		switch data.CommandType {
		case discordgo.UserApplicationCommand, discordgo.MessageApplicationCommand:
			menu, ok := b.reg.Context(data.Name)
			if !ok {
				b.log.Debug().Str("context", data.Name).Msg("Unknown context menu")
				return
			}
			ictx.Ephemeral = true
			inv = &cmd.Invocation{Name: menu.Name, Args: []string{data.TargetID}, Data: ictx}
			handler = cmd.Apply(menu.Handler,
				WithGuildOnly(),
				WithCommandLogger(b.store, b.channelNames, b.log),
				WithUserPermissionCheck(menu.UserPermissions, b.permissions, b.isAdministrator),
				WithCooldown(b.cooldowns, menu.Cooldown),
			)
		default:
			def, ok := b.reg.SlashCommand(data.Name)
			if !ok {
				b.log.Debug().Str("command", data.Name).Msg("Unknown slash command")
				return
			}
			ictx.Ephemeral = def.Slash.Ephemeral
			inv = &cmd.Invocation{Name: def.Name, Args: slashArgs(data.Options), Data: ictx}
			handler = cmd.Apply(def.Slash.Handler, b.slashMiddleware(def)...)
		}

	case discordgo.InteractionMessageComponent, discordgo.InteractionModalSubmit:
		customID := componentID(i)
		def, ok := b.reg.Component(customID)
		if !ok {
			b.log.Debug().Str("custom_id", customID).Msg("No matching component")
			return
		}
		_, rest, _ := strings.Cut(customID, ":")
		inv = &cmd.Invocation{Name: def.Name, Args: strings.Split(rest, ":"), Data: ictx}
		handler = cmd.Apply(def.Component,
			WithGuildOnly(),
			WithCategoryCheck(def.Category, b.isCategoryDisabled),
		)

	default:
		b.log.Debug().Int("type", int(i.Type)).Msg("Unknown interaction type")
		return
	}

	if err := handler.Run(b.ctx, inv); err != nil {
		b.log.Error().Err(err).Str("command", inv.Name).Msg("Error running interaction")
		_ = ictx.Deny(fmt.Sprintf("Error running command: %v", err))
	}
}

func componentID(i *discordgo.InteractionCreate) string {
	if i.Type == discordgo.InteractionModalSubmit {
		return i.ModalSubmitData().CustomID
	}
	return i.MessageComponentData().CustomID
}
