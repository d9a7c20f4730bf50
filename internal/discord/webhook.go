package discord

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

type webhookTarget struct {
	ID    string
	Token string
}

// parseWebhookURL extracts id and token from
// https://discord.com/api/webhooks/<id>/<token>.
func parseWebhookURL(raw string) (*webhookTarget, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return &webhookTarget{ID: parts[i+1], Token: parts[i+2]}, nil
		}
	}
	return nil, errors.New("expected /api/webhooks/<id>/<token>")
}

func joinLeaveEmbed(g *discordgo.Guild, joined bool, success, failure int) *discordgo.MessageEmbed {
	title, color := "Guild Left", failure
	if joined {
		title, color = "Guild Joined", success
	}
	e := &discordgo.MessageEmbed{
		Title:     title,
		Color:     color,
		Timestamp: time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Guild Name", Value: orDash(g.Name), Inline: false},
			{Name: "ID", Value: orDash(g.ID), Inline: false},
			{Name: "Owner", Value: orDash(g.OwnerID), Inline: true},
			{Name: "Members", Value: fmt.Sprintf("```yaml\n%d```", g.MemberCount), Inline: false},
		},
	}
	if g.Icon != "" {
		e.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: g.IconURL("256")}
	}
	return e
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (b *Bot) sendJoinLeave(s *discordgo.Session, g *discordgo.Guild, joined bool) {
	if b.webhook == nil || g == nil {
		return
	}
	embed := joinLeaveEmbed(g, joined, b.cfg.EmbedColors.Success, b.cfg.EmbedColors.Error)
	_, err := s.WebhookExecute(b.webhook.ID, b.webhook.Token, false, &discordgo.WebhookParams{
		Username: "Join/Leave",
		Embeds:   []*discordgo.MessageEmbed{embed},
	})
	if err != nil {
		b.log.Warn().Err(err).Str("guild", g.ID).Msg("Failed to send join/leave log")
	}
}
