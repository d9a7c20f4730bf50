package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

type eventBinding struct {
	name    string
	handler interface{}
}

func (b *Bot) eventBindings() []eventBinding {
	return []eventBinding{
		{"ready", b.onReady},
		{"guildCreate", b.onGuildCreate},
		{"guildDelete", b.onGuildDelete},
		{"messageCreate", b.onMessageCreate},
		{"interactionCreate", b.onInteractionCreate},
	}
}

// bindEvents attaches the gateway handlers and logs a summary table.
func (b *Bot) bindEvents() {
	bindings := b.eventBindings()
	names := make([]string, 0, len(bindings))
	for _, e := range bindings {
		b.dg.AddHandler(e.handler)
		names = append(names, e.name)
	}
	fmt.Println(renderEventsTable(names))
	b.log.Info().Int("events", len(names)).Msg("Loaded client events")
}

func renderEventsTable(names []string) string {
	rows := make([][]string, 0, len(names))
	for _, n := range names {
		rows = append(rows, []string{n, "✓"})
	}
	header := lipgloss.NewStyle().Bold(true).Align(lipgloss.Center)
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Client Events", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			if col == 1 {
				return cell.Align(lipgloss.Center)
			}
			return cell.Width(25)
		}).
		String()
}

// onReady is called when the bot is ready
func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.mu.Lock()
	if b.registrar == nil {
		b.registrar = NewRegistrar(s, r.User.ID, b.reg, b.store, ManifestOptions(b.cfg), b.log.With().Str("component", "registrar").Logger())
	}
	b.mu.Unlock()

	stats := b.reg.Stats()
	b.log.Info().
		Int("commands", stats.Text).
		Int("slash", stats.Slash).
		Int("user_contexts", stats.UserContexts).
		Int("message_contexts", stats.MessageContexts).
		Int("guilds", len(r.Guilds)).
		Msgf("✅ Discord bot %v is running.", r.User.Username)

	go func() {
		if _, err := b.RegisterInteractions(b.ctx, RegistrationScope(b.cfg), false); err != nil {
			b.log.Error().Err(err).Msg("Startup registration failed")
		}
	}()

	if b.cfg.Presence.Enabled && !b.jobs.Running("presence") {
		if err := b.jobs.StartAsync("presence", func(ctx context.Context) error {
			b.runPresence(ctx, s)
			return nil
		}); err != nil {
			b.log.Warn().Err(err).Msg("Failed to start presence updates")
		}
	}
}

// onGuildCreate fires for every guild after ready and when the bot joins one.
// Only guilds joined after startup are reported.
func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if !isNewJoin(g.Guild, b.startedAt) {
		return
	}

	b.log.Info().Str("guild", g.ID).Str("name", g.Name).Msg("Bot added to guild")
	b.sendJoinLeave(s, g.Guild, true)
}

// onGuildDelete fires when the bot leaves a guild or it becomes unavailable.
func (b *Bot) onGuildDelete(s *discordgo.Session, g *discordgo.GuildDelete) {
	if g.Unavailable {
		return
	}

	guild := g.Guild
	if g.BeforeDelete != nil {
		guild = g.BeforeDelete
	}
	b.log.Info().Str("guild", g.ID).Str("name", guild.Name).Msg("Bot removed from guild")
	b.sendJoinLeave(s, guild, false)
}

func isNewJoin(g *discordgo.Guild, startedAt time.Time) bool {
	return g != nil && !g.JoinedAt.IsZero() && g.JoinedAt.After(startedAt)
}
