package discord

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/herald/internal/config"
	"github.com/keshon/herald/internal/registry"
	"github.com/keshon/herald/internal/storage"
	"github.com/keshon/herald/pkg/cmd"
)

// Source is the part of an invocation context that middleware relies on.
// MessageContext and InteractionContext implement it.
type Source interface {
	GuildID() string
	ChannelID() string
	User() *discordgo.User
	// Deny tells the invoking user why the command did not run.
	Deny(msg string) error
}

// Context is what command handlers see of either invocation surface.
type Context interface {
	Source
	Reply(embed *discordgo.MessageEmbed) error
	Embed(description string) *discordgo.MessageEmbed
	ErrorEmbed(description string) *discordgo.MessageEmbed
	Prefix() string
	BotHas(channelID string, perm int64) bool
	ResolveUsers(search string, exact bool) []*discordgo.User
	Discord() *discordgo.Session
	Latency() time.Duration
	Config() *config.Config
	Store() *storage.Storage
	Registry() *registry.Registry
	Log() zerolog.Logger
}

var errNoContext = errors.New("invocation has no discord context")

// ContextOf returns the Discord context an adapter attached to inv.
func ContextOf(inv *cmd.Invocation) (Context, error) {
	c, ok := inv.Data.(Context)
	if !ok {
		return nil, errNoContext
	}
	return c, nil
}

// InteractionOf returns the interaction context attached to inv.
func InteractionOf(inv *cmd.Invocation) (*InteractionContext, error) {
	c, ok := inv.Data.(*InteractionContext)
	if !ok {
		return nil, errNoContext
	}
	return c, nil
}

// base carries what every invocation context shares.
type base struct {
	Bot      *Bot
	Session  *discordgo.Session
	Settings storage.GuildSettings
}

func (c *base) Config() *config.Config       { return c.Bot.cfg }
func (c *base) Store() *storage.Storage      { return c.Bot.store }
func (c *base) Registry() *registry.Registry { return c.Bot.reg }
func (c *base) Log() zerolog.Logger          { return c.Bot.log }
func (c *base) Discord() *discordgo.Session  { return c.Session }

// Latency is the gateway heartbeat latency.
func (c *base) Latency() time.Duration { return c.Session.HeartbeatLatency() }

// Embed returns an embed with the configured bot color.
func (c *base) Embed(description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Description: description, Color: c.Bot.cfg.EmbedColors.Bot}
}

// ErrorEmbed returns an embed with the configured error color.
func (c *base) ErrorEmbed(description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Description: description, Color: c.Bot.cfg.EmbedColors.Error}
}

// Prefix is the guild's text command prefix, falling back to the configured one.
func (c *base) Prefix() string {
	if c.Settings.Prefix != "" {
		return c.Settings.Prefix
	}
	return c.Bot.cfg.Prefix
}

// BotHas reports whether the bot holds perm in channelID.
func (c *base) BotHas(channelID string, perm int64) bool {
	perms, err := c.Bot.permissions(c.Session.State.User.ID, channelID)
	return err == nil && perms&perm == perm
}

// ResolveUsers finds users by mention, ID, tag or name in the session state,
// fetching IDs over REST.
func (c *base) ResolveUsers(search string, exact bool) []*discordgo.User {
	return ResolveUsers(c.Session.State, func(id string) (*discordgo.User, error) {
		return c.Session.User(id)
	}, search, exact)
}

// MessageContext is the invocation context of a prefix or mention command.
type MessageContext struct {
	base
	Event *discordgo.MessageCreate
}

func (c *MessageContext) GuildID() string       { return c.Event.GuildID }
func (c *MessageContext) ChannelID() string     { return c.Event.ChannelID }
func (c *MessageContext) User() *discordgo.User { return c.Event.Author }

// Reply sends embed to the channel as a reply to the invoking message.
func (c *MessageContext) Reply(embed *discordgo.MessageEmbed) error {
	_, err := c.Session.ChannelMessageSendComplex(c.Event.ChannelID, &discordgo.MessageSend{
		Embeds:          []*discordgo.MessageEmbed{embed},
		Reference:       c.Event.Reference(),
		AllowedMentions: &discordgo.MessageAllowedMentions{RepliedUser: false},
	})
	return err
}

func (c *MessageContext) Deny(msg string) error {
	return c.Reply(c.ErrorEmbed(msg))
}

// InteractionContext is the invocation context of a slash command, context
// menu, button or modal submit.
type InteractionContext struct {
	base
	Event     *discordgo.InteractionCreate
	Ephemeral bool

	responded bool
}

func (c *InteractionContext) GuildID() string   { return c.Event.GuildID }
func (c *InteractionContext) ChannelID() string { return c.Event.ChannelID }

func (c *InteractionContext) User() *discordgo.User {
	return interactionUser(c.Event)
}

// Reply responds to the interaction, or sends a followup when a response
// was already sent.
func (c *InteractionContext) Reply(embed *discordgo.MessageEmbed) error {
	return c.reply(embed, c.Ephemeral)
}

// ReplyEphemeral is Reply that only the invoking user can see.
func (c *InteractionContext) ReplyEphemeral(embed *discordgo.MessageEmbed) error {
	return c.reply(embed, true)
}

func (c *InteractionContext) reply(embed *discordgo.MessageEmbed, ephemeral bool) error {
	if c.responded {
		if ephemeral {
			return FollowupEmbedEphemeral(c.Session, c.Event, embed)
		}
		return FollowupEmbed(c.Session, c.Event, embed)
	}
	c.responded = true
	if ephemeral {
		return RespondEmbedEphemeral(c.Session, c.Event, embed)
	}
	return RespondEmbed(c.Session, c.Event, embed)
}

// ShowModal answers the interaction with a modal.
func (c *InteractionContext) ShowModal(customID, title string, inputs ...discordgo.TextInput) error {
	c.responded = true
	return RespondModal(c.Session, c.Event, customID, title, inputs...)
}

func (c *InteractionContext) Deny(msg string) error {
	return c.reply(c.ErrorEmbed(msg), true)
}

// ModalValues returns the text input values of a modal submit by custom ID.
func (c *InteractionContext) ModalValues() map[string]string {
	if c.Event.Type != discordgo.InteractionModalSubmit {
		return nil
	}
	return modalValues(c.Event.ModalSubmitData().Components)
}

func modalValues(rows []discordgo.MessageComponent) map[string]string {
	out := make(map[string]string)
	for _, row := range rows {
		ar, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range ar.Components {
			if in, ok := comp.(*discordgo.TextInput); ok {
				out[in.CustomID] = strings.TrimSpace(in.Value)
			}
		}
	}
	return out
}

// slashArgs renders options as positional arguments: subcommand names first,
// then option values in order.
func slashArgs(opts []*discordgo.ApplicationCommandInteractionDataOption) []string {
	var out []string
	for _, o := range opts {
		switch o.Type {
		case discordgo.ApplicationCommandOptionSubCommand, discordgo.ApplicationCommandOptionSubCommandGroup:
			out = append(out, o.Name)
			out = append(out, slashArgs(o.Options)...)
		default:
			out = append(out, fmt.Sprint(o.Value))
		}
	}
	return out
}

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	if i.User != nil {
		return i.User
	}
	return &discordgo.User{ID: "unknown", Username: "Unknown"}
}
