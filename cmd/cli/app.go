package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/keshon/herald/internal/commands"
	"github.com/keshon/herald/internal/config"
	"github.com/keshon/herald/internal/logging"
	"github.com/keshon/herald/internal/registry"
	"github.com/keshon/herald/internal/version"
)

// App is the herald-cli application. Config and registry are loaded before
// any subcommand runs.
type App struct {
	Config   *config.Config
	Registry *registry.Registry
	Log      zerolog.Logger

	logLevel string
}

func NewApp() *App {
	return &App{}
}

// RootCommand creates the root command with every subcommand attached.
func (app *App) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "herald-cli",
		Short:         "Inspect and publish the " + version.AppName + " command set",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.load(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&app.logLevel, "log-level", "warn", "Log level")

	app.addCommandsCommand(root)
	app.addManifestCommand(root)
	app.addInviteCommand(root)
	app.addRegisterCommand(root)
	app.addReadmeCommand(root)
	app.addVersionCommand(root)
	return root
}

func (app *App) load(stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	app.Config = cfg
	app.Log = logging.New(logging.Options{Level: app.logLevel, Console: stderr})

	reg, err := commands.NewRegistry(commands.Deps{Config: cfg, Log: app.Log})
	if err != nil {
		return fmt.Errorf("invalid command definitions: %w", err)
	}
	app.Registry = reg
	return nil
}

func (app *App) addVersionCommand(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", version.AppName, version.String())
		},
	})
}
