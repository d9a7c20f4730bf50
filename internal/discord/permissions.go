package discord

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// PermissionNames maps permission bits to the names shown to users.
var PermissionNames = map[int64]string{
	discordgo.PermissionCreateInstantInvite:    "Create Instant Invite",
	discordgo.PermissionKickMembers:            "Kick Members",
	discordgo.PermissionBanMembers:             "Ban Members",
	discordgo.PermissionAdministrator:          "Administrator",
	discordgo.PermissionManageChannels:         "Manage Channels",
	discordgo.PermissionManageGuild:            "Manage Server",
	discordgo.PermissionAddReactions:           "Add Reactions",
	discordgo.PermissionViewAuditLogs:          "View Audit Logs",
	discordgo.PermissionViewChannel:            "View Channel",
	discordgo.PermissionSendMessages:           "Send Messages",
	discordgo.PermissionSendTTSMessages:        "Send TTS Messages",
	discordgo.PermissionManageMessages:         "Manage Messages",
	discordgo.PermissionEmbedLinks:             "Embed Links",
	discordgo.PermissionAttachFiles:            "Attach Files",
	discordgo.PermissionReadMessageHistory:     "Read Message History",
	discordgo.PermissionMentionEveryone:        "Mention Everyone",
	discordgo.PermissionUseExternalEmojis:      "Use External Emojis",
	discordgo.PermissionUseApplicationCommands: "Use Application Commands",
	discordgo.PermissionManageThreads:          "Manage Threads",
	discordgo.PermissionCreatePublicThreads:    "Create Public Threads",
	discordgo.PermissionCreatePrivateThreads:   "Create Private Threads",
	discordgo.PermissionUseExternalStickers:    "Use External Stickers",
	discordgo.PermissionSendMessagesInThreads:  "Send Messages in Threads",
	discordgo.PermissionSendVoiceMessages:      "Send Voice Messages",
	discordgo.PermissionVoicePrioritySpeaker:   "Priority Speaker",
	discordgo.PermissionVoiceStreamVideo:       "Stream Video",
	discordgo.PermissionVoiceConnect:           "Connect to Voice Channel",
	discordgo.PermissionVoiceSpeak:             "Speak",
	discordgo.PermissionVoiceMuteMembers:       "Mute Members",
	discordgo.PermissionVoiceDeafenMembers:     "Deafen Members",
	discordgo.PermissionVoiceMoveMembers:       "Move Members",
	discordgo.PermissionVoiceUseVAD:            "Use Voice Activity Detection",
	discordgo.PermissionVoiceRequestToSpeak:    "Request to Speak",
	discordgo.PermissionUseEmbeddedActivities:  "Use Embedded Activities",
	discordgo.PermissionChangeNickname:         "Change Nickname",
	discordgo.PermissionManageNicknames:        "Manage Nicknames",
	discordgo.PermissionManageRoles:            "Manage Roles",
	discordgo.PermissionManageWebhooks:         "Manage Webhooks",
	discordgo.PermissionManageGuildExpressions: "Manage Expressions (Emojis, Stickers, Sounds)",
	discordgo.PermissionManageEvents:           "Manage Events",
	discordgo.PermissionViewGuildInsights:      "View Guild Insights",
	discordgo.PermissionModerateMembers:        "Moderate Members",
}

// PermissionName returns the display name of a single permission bit.
func PermissionName(p int64) string {
	if name, ok := PermissionNames[p]; ok {
		return name
	}
	return fmt.Sprintf("0x%x", p)
}

// FormatPermissions renders permissions as a backtick-quoted list.
func FormatPermissions(perms []int64) string {
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, PermissionName(p))
	}
	return "`" + strings.Join(names, "`, `") + "`"
}

// MissingPermissions returns the required bits absent from have. The
// Administrator bit grants everything.
func MissingPermissions(have int64, required []int64) []int64 {
	if have&discordgo.PermissionAdministrator != 0 {
		return nil
	}
	var missing []int64
	for _, p := range required {
		if have&p != p && !slices.Contains(missing, p) {
			missing = append(missing, p)
		}
	}
	return missing
}

// IsAdministrator reports whether member owns guildID or holds a role with
// the Administrator permission there.
func IsAdministrator(s *discordgo.Session, guildID string, member *discordgo.Member) bool {
	if member == nil || member.User == nil {
		return false
	}
	guild, err := s.State.Guild(guildID)
	if err != nil {
		if guild, err = s.Guild(guildID); err != nil {
			return false
		}
	}
	if member.User.ID == guild.OwnerID {
		return true
	}
	for _, roleID := range member.Roles {
		for _, role := range guild.Roles {
			if role.ID == roleID && role.Permissions&discordgo.PermissionAdministrator != 0 {
				return true
			}
		}
	}
	return false
}

// isAdministrator lets the developer and guild administrators past user
// permission checks.
func (b *Bot) isAdministrator(guildID, userID string) bool {
	if b.cfg.IsDeveloper(userID) {
		return true
	}
	if b.dg == nil || guildID == "" {
		return false
	}
	member, err := b.dg.State.Member(guildID, userID)
	if err != nil {
		if member, err = b.dg.GuildMember(guildID, userID); err != nil {
			b.log.Warn().Err(err).Str("guild", guildID).Msg("Failed to fetch member")
			return false
		}
	}
	return IsAdministrator(b.dg, guildID, member)
}

// channelPermissions resolves a user's permissions in a channel from the state
// cache, falling back to REST.
func channelPermissions(s *discordgo.Session, userID, channelID string) (int64, error) {
	if perms, err := s.State.UserChannelPermissions(userID, channelID); err == nil {
		return perms, nil
	}
	perms, err := s.UserChannelPermissions(userID, channelID)
	if err != nil {
		return 0, fmt.Errorf("failed to get permissions of %s in %s: %w", userID, channelID, err)
	}
	return perms, nil
}
