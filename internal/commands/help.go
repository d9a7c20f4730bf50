package commands

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/herald/internal/config"
	"github.com/keshon/herald/internal/discord"
	"github.com/keshon/herald/internal/registry"
	"github.com/keshon/herald/internal/version"
	"github.com/keshon/herald/pkg/cmd"
)

func helpCommand(deps Deps) registry.CommandDefinition {
	def := both(registry.CommandDefinition{
		Name:        "help",
		Description: "command help menu",
		Category:    config.CategoryInformation,
	}, cmd.HandlerFunc(func(ctx context.Context, inv *cmd.Invocation) error {
		c, err := discord.ContextOf(inv)
		if err != nil {
			return err
		}
		return runHelp(deps, c, inv.Arg(0))
	}))
	def.Text.Usage = "help [command]"
	def.Slash.Ephemeral = true
	def.Slash.Options = []*discordgo.ApplicationCommandOption{{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "command",
		Description: "name of the command",
	}}
	return def
}

func runHelp(deps Deps, c discord.Context, name string) error {
	reg, cfg := c.Registry(), c.Config()
	title := version.AppName + " Help"

	if name != "" {
		def, ok := reg.Lookup(name)
		if !ok {
			def, ok = reg.SlashCommand(name)
		}
		if !ok {
			return c.Deny(fmt.Sprintf("No command found matching `%s`", name))
		}
		e := c.Embed(commandHelp(def, c.Prefix()))
		e.Title = title
		return c.Reply(e)
	}

	hidden := func(category string) bool {
		disabled, err := deps.Store.IsCategoryDisabled(c.GuildID(), category)
		return err == nil && disabled
	}
	e := c.Embed(helpOverview(reg.All(), &cfg.Bot, c.Prefix(), hidden))
	e.Title = title
	return c.Reply(e)
}

// helpOverview lists commands grouped by category in category weight order.
func helpOverview(cmds []*registry.CommandDefinition, bot *config.Bot, prefix string, hidden func(category string) bool) string {
	byCategory := make(map[string][]*registry.CommandDefinition)
	for _, d := range cmds {
		if hidden != nil && d.Category != "" && hidden(d.Category) {
			continue
		}
		byCategory[d.Category] = append(byCategory[d.Category], d)
	}

	keys := make([]string, 0, len(byCategory))
	for k := range byCategory {
		keys = append(keys, k)
	}
	bot.SortCategories(keys)

	var sb strings.Builder
	for _, key := range keys {
		title := bot.CategoryTitle(key)
		if title == "" {
			title = "Other"
		}
		fmt.Fprintf(&sb, "**%s**\n", title)

		defs := byCategory[key]
		slices.SortFunc(defs, func(a, b *registry.CommandDefinition) int { return strings.Compare(a.Name, b.Name) })
		for _, d := range defs {
			fmt.Fprintf(&sb, "`%s` - %s\n", invokeHint(d, prefix), d.Description)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Use `%shelp <command>` for details.", prefix)
	return sb.String()
}

func invokeHint(d *registry.CommandDefinition, prefix string) string {
	if d.Text.Enabled {
		return prefix + d.Name
	}
	return "/" + d.Name
}

// commandHelp describes one command: usage, aliases and subcommands.
func commandHelp(d *registry.CommandDefinition, prefix string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s**\n%s\n", d.Name, d.Description)

	if d.Text.Enabled {
		usage := d.Text.Usage
		if usage == "" {
			usage = d.Name
		}
		fmt.Fprintf(&sb, "\n**Usage:** `%s%s`\n", prefix, usage)
		if len(d.Text.Aliases) > 0 {
			fmt.Fprintf(&sb, "**Aliases:** %s\n", strings.Join(d.Text.Aliases, ", "))
		}
		for _, sub := range d.Text.Subcommands {
			fmt.Fprintf(&sb, "`%s%s %s` - %s\n", prefix, d.Name, sub.Trigger, sub.Description)
		}
	}
	if d.Slash.Enabled {
		fmt.Fprintf(&sb, "\n**Slash:** `/%s`\n", d.Name)
	}
	if len(d.UserPermissions) > 0 {
		fmt.Fprintf(&sb, "\n**Requires:** %s\n", discord.FormatPermissions(d.UserPermissions))
	}
	if d.Cooldown > 0 {
		fmt.Fprintf(&sb, "**Cooldown:** %s\n", d.Cooldown)
	}
	return sb.String()
}
