package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/herald/internal/config"
	"github.com/keshon/herald/internal/discord"
	"github.com/keshon/herald/internal/registry"
	"github.com/keshon/herald/internal/storage"
	"github.com/keshon/herald/pkg/cmd"
)

func prefixCommand(deps Deps) registry.CommandDefinition {
	def := both(registry.CommandDefinition{
		Name:            "prefix",
		Description:     "sets a new prefix for this server",
		Category:        config.CategoryAdmin,
		UserPermissions: []int64{discordgo.PermissionManageGuild},
	}, cmd.HandlerFunc(func(ctx context.Context, inv *cmd.Invocation) error {
		c, err := discord.ContextOf(inv)
		if err != nil {
			return err
		}
		prefix := inv.Arg(0)
		if err := validatePrefix(prefix); err != nil {
			return c.Deny(prefixDenial(err))
		}
		if err := deps.Store.SetPrefix(c.GuildID(), prefix); err != nil {
			return fmt.Errorf("failed to save prefix: %w", err)
		}
		return c.Reply(c.Embed(fmt.Sprintf("New prefix is set to `%s`", prefix)))
	}))
	def.Text.Aliases = []string{"setprefix"}
	def.Text.Usage = "prefix <new-prefix>"
	def.Text.MinArgs = 1
	def.Slash.Ephemeral = true
	def.Slash.Options = []*discordgo.ApplicationCommandOption{{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "newprefix",
		Description: "the new prefix to set",
		Required:    true,
	}}
	return def
}

var errEmptyPrefix = errors.New("prefix is empty")

func validatePrefix(p string) error {
	if p == "" {
		return errEmptyPrefix
	}
	return storage.ValidatePrefix(p)
}

// prefixDenial is the reply shown for a rejected prefix.
func prefixDenial(err error) string {
	switch {
	case errors.Is(err, errEmptyPrefix):
		return "Prefix cannot be empty"
	case errors.Is(err, storage.ErrPrefixTooLong):
		return fmt.Sprintf("Prefix length cannot exceed `%d` characters", storage.MaxPrefixLength)
	case errors.Is(err, storage.ErrPrefixInvalidChar):
		return "Prefix cannot contain spaces or backticks"
	}
	return "Invalid prefix"
}
