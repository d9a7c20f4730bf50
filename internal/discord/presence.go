package discord

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

var activityTypes = map[string]discordgo.ActivityType{
	"PLAYING":   discordgo.ActivityTypeGame,
	"STREAMING": discordgo.ActivityTypeStreaming,
	"LISTENING": discordgo.ActivityTypeListening,
	"WATCHING":  discordgo.ActivityTypeWatching,
	"CUSTOM":    discordgo.ActivityTypeCustom,
	"COMPETING": discordgo.ActivityTypeCompeting,
}

func activityType(name string) discordgo.ActivityType {
	if t, ok := activityTypes[strings.ToUpper(name)]; ok {
		return t
	}
	return discordgo.ActivityTypeWatching
}

// presenceMessage fills the {members} and {servers} placeholders.
func presenceMessage(tpl string, members, servers int) string {
	return strings.NewReplacer(
		"{members}", strconv.Itoa(members),
		"{servers}", strconv.Itoa(servers),
	).Replace(tpl)
}

// guildTotals sums member counts over the guilds in state.
func guildTotals(state *discordgo.State) (members, servers int) {
	state.RLock()
	defer state.RUnlock()
	for _, g := range state.Guilds {
		members += g.MemberCount
	}
	return members, len(state.Guilds)
}

func (b *Bot) updatePresence(s *discordgo.Session) {
	p := b.cfg.Presence
	members, servers := guildTotals(s.State)
	msg := presenceMessage(p.Message, members, servers)

	err := s.UpdateStatusComplex(discordgo.UpdateStatusData{
		Status: p.Status,
		Activities: []*discordgo.Activity{{
			Name:  msg,
			Type:  activityType(p.Type),
			State: msg,
		}},
	})
	if err != nil {
		b.log.Warn().Err(err).Msg("Failed to update presence")
	}
}

// runPresence updates presence now and every configured interval.
func (b *Bot) runPresence(ctx context.Context, s *discordgo.Session) {
	b.updatePresence(s)

	ticker := time.NewTicker(b.cfg.Presence.UpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.updatePresence(s)
		}
	}
}
