package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/keshon/herald/internal/discord"
	"github.com/keshon/herald/internal/docs"
	"github.com/keshon/herald/internal/registry"
	"github.com/keshon/herald/internal/storage"
)

func (app *App) addCommandsCommand(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "commands",
		Short: "List loaded commands and context menus",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), commandsTable(app.Registry, app.Config.Prefix))
		},
	})
}

func commandsTable(reg *registry.Registry, prefix string) string {
	var rows [][]string
	for _, d := range reg.All() {
		text, slash := "-", "-"
		if d.Text.Enabled {
			text = prefix + d.Name
			if len(d.Text.Aliases) > 0 {
				text += " (" + strings.Join(d.Text.Aliases, ", ") + ")"
			}
		}
		if d.Slash.Enabled {
			slash = "/" + d.Name
		}
		perms := "-"
		if len(d.UserPermissions) > 0 {
			names := make([]string, 0, len(d.UserPermissions))
			for _, p := range d.UserPermissions {
				names = append(names, discord.PermissionName(p))
			}
			perms = strings.Join(names, ", ")
		}
		rows = append(rows, []string{d.Name, d.Category, text, slash, perms})
	}
	for _, c := range reg.Contexts() {
		rows = append(rows, []string{c.Name, "", "-", c.Type.String(), "-"})
	}

	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Name", "Category", "Text", "Interaction", "Permissions").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		String()
}

func (app *App) addManifestCommand(root *cobra.Command) {
	var api bool
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Print the interaction manifest as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			manifest := app.Registry.Manifest(discord.ManifestOptions(app.Config))
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if api {
				return enc.Encode(discord.ApplicationCommands(manifest))
			}
			return enc.Encode(manifest)
		},
	}
	cmd.Flags().BoolVar(&api, "api", false, "Print the payload sent to Discord instead of descriptors")
	root.AddCommand(cmd)
}

func (app *App) addInviteCommand(root *cobra.Command) {
	var appID string
	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Print the bot invite link",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if appID == "" {
				return errors.New("--app-id is required")
			}
			fmt.Fprintln(cmd.OutOrStdout(), discord.InviteURL(appID))
			return nil
		},
	}
	cmd.Flags().StringVar(&appID, "app-id", "", "Discord application ID")
	root.AddCommand(cmd)
}

func (app *App) addRegisterCommand(root *cobra.Command) {
	var (
		guilds []string
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Publish the manifest to Discord over REST",
		Long: `Replaces the application's commands with the current manifest. Without
--guild the configured scope is used (global, or interactions.test_guild_id).
--guild may be repeated to push to several guilds.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.Config.RequireToken(); err != nil {
				return err
			}
			ctx := cmd.Context()

			s, err := discordgo.New("Bot " + app.Config.DiscordToken)
			if err != nil {
				return fmt.Errorf("failed to create session: %w", err)
			}
			me, err := s.User("@me", discordgo.WithContext(ctx))
			if err != nil {
				return fmt.Errorf("failed to resolve application: %w", err)
			}

			store, err := openHashes(app.Config.StoragePath)
			if err != nil {
				return err
			}
			defer store.Close()

			scopes := guilds
			if len(scopes) == 0 {
				scopes = []string{discord.RegistrationScope(app.Config)}
			}
			r := discord.NewRegistrar(s, me.ID, app.Registry, store, discord.ManifestOptions(app.Config), app.Log)
			results, err := r.RegisterScopes(ctx, scopes, force)
			for _, res := range results {
				printResult(cmd.OutOrStdout(), res)
			}
			return err
		},
	}
	cmd.Flags().StringSliceVar(&guilds, "guild", nil, "Guild ID to register in instead of the configured scope")
	cmd.Flags().BoolVar(&force, "force", false, "Push even when the manifest is unchanged")
	root.AddCommand(cmd)
}

// openHashes opens the bot's store for the hashes of its last pushes. The bot
// may hold the same file open, so nothing is written back.
func openHashes(path string) (*storage.Storage, error) {
	opts := storage.DefaultOptions(path)
	opts.ReadOnly = true
	return storage.Open(opts)
}

func printResult(out io.Writer, res discord.RegisterResult) {
	scope := res.Scope
	if scope == "" {
		scope = "global"
	}
	if res.Skipped {
		fmt.Fprintf(out, "%s: manifest unchanged (%.12s), nothing pushed. Use --force to push anyway.\n", scope, res.Hash)
		return
	}
	fmt.Fprintf(out, "%s: registered %d interactions: %s\n", scope, len(res.Names), strings.Join(res.Names, ", "))
}

func (app *App) addReadmeCommand(root *cobra.Command) {
	var tmpl, out string
	cmd := &cobra.Command{
		Use:   "readme",
		Short: "Regenerate README.md from the command registry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := docs.UpdateReadme(tmpl, out, app.Registry, &app.Config.Bot); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s updated with current commands\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&tmpl, "template", "README.md.tmpl", "Template path")
	cmd.Flags().StringVar(&out, "out", "README.md", "Output path")
	root.AddCommand(cmd)
}
