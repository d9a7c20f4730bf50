package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/herald/internal/config"
	"github.com/keshon/herald/internal/discord"
	"github.com/keshon/herald/internal/registry"
	"github.com/keshon/herald/pkg/cmd"
)

const applicationName = "application"

// Component actions, the part of the custom ID after "application:".
const (
	actionSetup      = "setup"
	actionSetupModal = "setupmodal"
	actionApply      = "apply"
	actionApplyModal = "applymodal"
)

func applicationID(parts ...string) string {
	return applicationName + ":" + strings.Join(parts, ":")
}

func applicationCommand(deps Deps) registry.CommandDefinition {
	run := cmd.HandlerFunc(func(ctx context.Context, inv *cmd.Invocation) error {
		c, err := discord.ContextOf(inv)
		if err != nil {
			return err
		}
		switch strings.ToLower(inv.Arg(0)) {
		case "setup":
			return applicationSetup(c, inv.Arg(1))
		case "log":
			return applicationLog(deps, c, inv.Arg(1))
		default:
			return c.Deny(fmt.Sprintf("Unknown subcommand.\nUsage: `%s%s <setup|log> <#channel>`", c.Prefix(), applicationName))
		}
	})

	return registry.CommandDefinition{
		Name:            applicationName,
		Description:     "various application commands",
		Category:        config.CategoryApplication,
		UserPermissions: []int64{discordgo.PermissionManageGuild},
		Text: registry.TextSurface{
			Enabled: true,
			Usage:   applicationName + " <setup|log> <#channel>",
			MinArgs: 1,
			Subcommands: []registry.Subcommand{
				{Trigger: "setup <#channel>", Description: "start an interactive application setup"},
				{Trigger: "log <#channel>", Description: "setup log channel for applications"},
			},
			Handler: run,
		},
		Slash: registry.SlashSurface{
			Enabled:   true,
			Ephemeral: true,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "setup",
					Description: "setup a new application message",
					Options:     []*discordgo.ApplicationCommandOption{channelOption("the channel where application creation message must be sent")},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "log",
					Description: "setup log channel for applications",
					Options:     []*discordgo.ApplicationCommandOption{channelOption("channel where application logs must be sent")},
				},
			},
			Handler: run,
		},
		Component: cmd.HandlerFunc(func(ctx context.Context, inv *cmd.Invocation) error {
			return applicationComponent(deps, inv)
		}),
	}
}

// applicationSetup posts a button that only the invoking member can use to
// open the setup modal.
func applicationSetup(c discord.Context, arg string) error {
	if !c.BotHas(c.ChannelID(), discordgo.PermissionManageChannels) {
		return c.Deny("I am missing `Manage Channels` to create application channels")
	}
	target := resolveChannel(c.Discord(), c.GuildID(), arg)
	if target == "" {
		return c.Deny("I could not find channel with that name")
	}

	_, err := discord.MessageWithComponents(c.Discord(), c.ChannelID(),
		"Please click the button below to setup application message", nil,
		discordgo.Button{
			Label:    "Setup Message",
			Style:    discordgo.PrimaryButton,
			CustomID: applicationID(actionSetup, target, c.User().ID),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to send setup message: %w", err)
	}
	if ic, ok := c.(*discord.InteractionContext); ok {
		return ic.ReplyEphemeral(c.Embed(fmt.Sprintf("Setup started for <#%s>.", target)))
	}
	return nil
}

func applicationLog(deps Deps, c discord.Context, arg string) error {
	target := resolveChannel(c.Discord(), c.GuildID(), arg)
	if target == "" {
		return c.Deny("Could not find any matching channel")
	}
	if err := deps.Store.SetApplicationLogChannel(c.GuildID(), target); err != nil {
		return fmt.Errorf("failed to save log channel: %w", err)
	}
	if err := discord.Message(c.Discord(), target, "Application log channel has been set!"); err != nil {
		deps.Log.Warn().Err(err).Str("channel", target).Msg("Failed to post to application log channel")
	}
	return c.Reply(c.Embed(fmt.Sprintf("Application logs will be sent to <#%s>", target)))
}

func applicationComponent(deps Deps, inv *cmd.Invocation) error {
	ic, err := discord.InteractionOf(inv)
	if err != nil {
		return err
	}

	switch inv.Arg(0) {
	case actionSetup:
		channelID, owner := inv.Arg(1), inv.Arg(2)
		if ic.User().ID != owner {
			return ic.Deny("Only the member who started the setup can use this button.")
		}
		return ic.ShowModal(applicationID(actionSetupModal, channelID), "Application Setup", setupInputs()...)

	case actionSetupModal:
		channelID := inv.Arg(1)
		embed := applicationEmbed(ic.ModalValues(), deps.Config.EmbedColors.Bot)
		_, err := discord.MessageWithComponents(ic.Discord(), channelID, "", embed, discordgo.Button{
			Label:    "Apply for a job",
			Style:    discordgo.SuccessButton,
			CustomID: applicationID(actionApply),
		})
		if err != nil {
			return fmt.Errorf("failed to send application message: %w", err)
		}
		return discord.RespondUpdate(ic.Discord(), ic.Event, "Done! Application Message Created")

	case actionApply:
		return ic.ShowModal(applicationID(actionApplyModal), "Job Application", applyInputs()...)

	case actionApplyModal:
		settings, err := deps.Store.Settings(ic.GuildID())
		if err != nil {
			return err
		}
		if settings.ApplicationLogChannel == "" {
			return ic.Deny("Applications are not being accepted right now.")
		}
		embed := submissionEmbed(ic.User(), ic.ModalValues(), deps.Config.EmbedColors.Success, time.Now())
		if err := discord.MessageEmbed(ic.Discord(), settings.ApplicationLogChannel, embed); err != nil {
			return fmt.Errorf("failed to deliver application: %w", err)
		}
		return ic.ReplyEphemeral(ic.Embed("Your application has been submitted!"))

	default:
		deps.Log.Debug().Str("action", inv.Arg(0)).Msg("Unknown application component")
		return nil
	}
}

func setupInputs() []discordgo.TextInput {
	return []discordgo.TextInput{
		{CustomID: "title", Label: "Embed Title", Style: discordgo.TextInputShort},
		{CustomID: "description", Label: "Embed Description", Style: discordgo.TextInputParagraph},
		{CustomID: "footer", Label: "Embed Footer", Style: discordgo.TextInputShort},
		{CustomID: "image_url", Label: "Embed Image URL", Style: discordgo.TextInputShort},
	}
}

// applyQuestions are the apply modal inputs in display order.
var applyQuestions = []discordgo.TextInput{
	{CustomID: "about", Label: "Tell us about yourself", Style: discordgo.TextInputParagraph, Required: true, MaxLength: 1000},
	{CustomID: "reason", Label: "Why do you want to join?", Style: discordgo.TextInputParagraph, Required: true, MaxLength: 1000},
}

func applyInputs() []discordgo.TextInput {
	out := make([]discordgo.TextInput, len(applyQuestions))
	copy(out, applyQuestions)
	return out
}

func valueOr(values map[string]string, key, fallback string) string {
	if v := values[key]; v != "" {
		return v
	}
	return fallback
}

// applicationEmbed builds the public application message from the setup
// modal.
func applicationEmbed(values map[string]string, color int) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Color:       color,
		Author:      &discordgo.MessageEmbedAuthor{Name: valueOr(values, "title", "Job Application")},
		Description: valueOr(values, "description", "Please use the button below to apply for a job"),
		Footer:      &discordgo.MessageEmbedFooter{Text: valueOr(values, "footer", "You can only have 1 open application at a time!")},
	}
	if img := values["image_url"]; img != "" {
		e.Image = &discordgo.MessageEmbedImage{URL: img}
	}
	return e
}

// submissionEmbed is what the log channel receives for one application.
func submissionEmbed(u *discordgo.User, values map[string]string, color int, at time.Time) *discordgo.MessageEmbed {
	fields := make([]*discordgo.MessageEmbedField, 0, len(applyQuestions))
	for _, q := range applyQuestions {
		fields = append(fields, &discordgo.MessageEmbedField{Name: q.Label, Value: valueOr(values, q.CustomID, "-")})
	}
	return &discordgo.MessageEmbed{
		Title:     "New Application",
		Color:     color,
		Author:    &discordgo.MessageEmbedAuthor{Name: u.String(), IconURL: u.AvatarURL("64")},
		Fields:    fields,
		Footer:    &discordgo.MessageEmbedFooter{Text: "User ID: " + u.ID},
		Timestamp: at.Format(time.RFC3339),
	}
}
