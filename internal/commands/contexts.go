package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/herald/internal/config"
	"github.com/keshon/herald/internal/discord"
	"github.com/keshon/herald/internal/registry"
	"github.com/keshon/herald/pkg/cmd"
	"github.com/keshon/herald/pkg/util"
)

const dateLayout = "YYYY-MM-DD hh:mm:ss"

func avatarContext() registry.ContextMenuDefinition {
	return registry.ContextMenuDefinition{
		Name:    "Avatar",
		Type:    registry.ContextUser,
		Enabled: true,
		Handler: cmd.HandlerFunc(func(ctx context.Context, inv *cmd.Invocation) error {
			ic, err := discord.InteractionOf(inv)
			if err != nil {
				return err
			}
			u, err := targetUser(ic, inv.Arg(0))
			if err != nil {
				return err
			}
			return ic.Reply(avatarEmbed(u, ic.Config().EmbedColors.Bot))
		}),
	}
}

func avatarCommand() registry.CommandDefinition {
	def := both(registry.CommandDefinition{
		Name:        "avatar",
		Description: "displays the avatar of a user",
		Category:    config.CategoryUtility,
	}, cmd.HandlerFunc(func(ctx context.Context, inv *cmd.Invocation) error {
		c, err := discord.ContextOf(inv)
		if err != nil {
			return err
		}
		search := strings.Join(inv.Args, " ")
		u := avatarTarget(c.User(), search, c.ResolveUsers)
		if u == nil {
			return c.Deny(fmt.Sprintf("No user found matching `%s`", search))
		}
		return c.Reply(avatarEmbed(u, c.Config().EmbedColors.Bot))
	}))
	def.Text.Aliases = []string{"av"}
	def.Text.Usage = "avatar [@member|id|name]"
	def.Slash.Options = []*discordgo.ApplicationCommandOption{{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "user",
		Description: "the user to show, yourself when empty",
	}}
	return def
}

// avatarTarget is self without a search, otherwise the first user the search
// resolves to, or nil.
func avatarTarget(self *discordgo.User, search string, resolve func(search string, exact bool) []*discordgo.User) *discordgo.User {
	if strings.TrimSpace(search) == "" {
		return self
	}
	if users := resolve(search, false); len(users) > 0 {
		return users[0]
	}
	return nil
}

func targetUser(ic *discord.InteractionContext, id string) (*discordgo.User, error) {
	if res := ic.Event.ApplicationCommandData().Resolved; res != nil {
		if u, ok := res.Users[id]; ok {
			return u, nil
		}
	}
	u, err := ic.Discord().User(id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user %s: %w", id, err)
	}
	return u, nil
}

func avatarEmbed(u *discordgo.User, color int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "Avatar of " + u.String(),
		Color: color,
		Image: &discordgo.MessageEmbedImage{URL: u.AvatarURL("256")},
		Description: fmt.Sprintf("Link as [png](%s) [jpg](%s) [webp](%s)",
			avatarFormat(u, "png"), avatarFormat(u, "jpg"), avatarFormat(u, "webp")),
	}
}

// avatarFormat links the avatar as a still image in format at 1024px.
// Users without an avatar fall back to the default one.
func avatarFormat(u *discordgo.User, format string) string {
	if u.Avatar == "" {
		return u.AvatarURL("1024")
	}
	return discordgo.EndpointCDNAvatars + u.ID + "/" + u.Avatar + "." + format + "?size=1024"
}

func messageInfoContext() registry.ContextMenuDefinition {
	return registry.ContextMenuDefinition{
		Name:    "Message Info",
		Type:    registry.ContextMessage,
		Enabled: true,
		Handler: cmd.HandlerFunc(func(ctx context.Context, inv *cmd.Invocation) error {
			ic, err := discord.InteractionOf(inv)
			if err != nil {
				return err
			}
			res := ic.Event.ApplicationCommandData().Resolved
			if res == nil || res.Messages[inv.Arg(0)] == nil {
				return ic.Deny("I could not read that message.")
			}
			m := res.Messages[inv.Arg(0)]
			if m.GuildID == "" {
				m.GuildID = ic.GuildID()
			}
			return ic.Reply(messageInfoEmbed(m, ic.Config().EmbedColors.Bot))
		}),
	}
}

func messageInfoEmbed(m *discordgo.Message, color int) *discordgo.MessageEmbed {
	author := "-"
	if m.Author != nil {
		author = fmt.Sprintf("%s (`%s`)", m.Author.String(), m.Author.ID)
	}
	edited := "never"
	if m.EditedTimestamp != nil {
		edited = util.FormatDateTpl(m.EditedTimestamp.UTC(), dateLayout) + " UTC"
	}
	return &discordgo.MessageEmbed{
		Title: "Message Info",
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Author", Value: author},
			{Name: "Channel", Value: fmt.Sprintf("<#%s>", m.ChannelID), Inline: true},
			{Name: "ID", Value: "`" + m.ID + "`", Inline: true},
			{Name: "Created", Value: util.FormatDateTpl(m.Timestamp.UTC(), dateLayout) + " UTC", Inline: true},
			{Name: "Edited", Value: edited, Inline: true},
			{Name: "Attachments", Value: fmt.Sprint(len(m.Attachments)), Inline: true},
			{Name: "Embeds", Value: fmt.Sprint(len(m.Embeds)), Inline: true},
			{Name: "Link", Value: fmt.Sprintf("https://discord.com/channels/%s/%s/%s", m.GuildID, m.ChannelID, m.ID)},
		},
	}
}
