package discord

import (
	"net/url"
	"strconv"

	"github.com/bwmarrin/discordgo"
)

// InvitePermissions is the permission set requested by the invite link.
const InvitePermissions int64 = discordgo.PermissionAddReactions |
	discordgo.PermissionAttachFiles |
	discordgo.PermissionBanMembers |
	discordgo.PermissionChangeNickname |
	discordgo.PermissionVoiceConnect |
	discordgo.PermissionVoiceDeafenMembers |
	discordgo.PermissionEmbedLinks |
	discordgo.PermissionKickMembers |
	discordgo.PermissionManageChannels |
	discordgo.PermissionManageGuild |
	discordgo.PermissionManageMessages |
	discordgo.PermissionManageNicknames |
	discordgo.PermissionManageRoles |
	discordgo.PermissionModerateMembers |
	discordgo.PermissionVoiceMoveMembers |
	discordgo.PermissionVoiceMuteMembers |
	discordgo.PermissionVoicePrioritySpeaker |
	discordgo.PermissionReadMessageHistory |
	discordgo.PermissionSendMessages |
	discordgo.PermissionSendMessagesInThreads |
	discordgo.PermissionVoiceSpeak |
	discordgo.PermissionViewChannel

// InviteURL builds the OAuth2 authorize link that adds the bot with its
// application commands.
func InviteURL(appID string) string {
	q := url.Values{}
	q.Set("client_id", appID)
	q.Set("scope", "bot applications.commands")
	q.Set("permissions", strconv.FormatInt(InvitePermissions, 10))
	return "https://discord.com/oauth2/authorize?" + q.Encode()
}
