// cmd/discord/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/herald/internal/commands"
	"github.com/keshon/herald/internal/config"
	"github.com/keshon/herald/internal/dashboard"
	"github.com/keshon/herald/internal/discord"
	"github.com/keshon/herald/internal/logging"
	"github.com/keshon/herald/internal/storage"
	v "github.com/keshon/herald/internal/version"
	"github.com/keshon/herald/pkg/jobmgr"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(logging.Options{}).Fatal().Err(err).Msg("Failed to load config")
	}
	log := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	log.Info().Str("version", v.Version).Msgf("Starting %v bot...", v.AppName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := storage.DefaultOptions(cfg.StoragePath)
	opts.Log = logging.Component(log, "storage")
	store, err := storage.Open(opts)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer store.Close()

	deps := commands.Deps{Config: cfg, Store: store, Log: logging.Component(log, "commands")}
	reg, err := commands.NewRegistry(deps)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid command definitions")
	}
	stats := reg.Stats()
	log.Info().
		Int("text", stats.Text).
		Int("slash", stats.Slash).
		Int("user_contexts", stats.UserContexts).
		Int("message_contexts", stats.MessageContexts).
		Msg("Commands loaded")

	if cfg.UpdateCheck.Enabled {
		go checkForUpdates(ctx, cfg.UpdateCheck.URL, log)
	}

	events := discord.NewEventBus(16)
	bot, err := discord.New(discord.Options{
		Config:   cfg,
		Registry: reg,
		Store:    store,
		Events:   events,
		Log:      logging.Component(log, "discord"),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	jobs := jobmgr.NewManager(ctx, func(msg string) {
		log.Debug().Str("job", msg).Msg("Job status")
	})
	if cfg.Dashboard.Enabled {
		srv := dashboard.New(dashboard.Options{
			Addr:     cfg.Dashboard.Addr,
			Token:    cfg.DashboardToken,
			Store:    store,
			Registry: reg,
			Events:   events,
			Manifest: discord.ManifestOptions(cfg),
			Log:      logging.Component(log, "dashboard"),
		})
		if err := jobs.StartAsync("dashboard", srv.Run); err != nil {
			log.Fatal().Err(err).Msg("Failed to start dashboard")
		}
	}

	errCh := make(chan error, 1)
	go func() {
		if err := bot.Run(ctx); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("Received signal, shutting down...")
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("Discord bot error")
		}
		cancel()
	}

	jobs.StopAll()
	log.Info().Msg("Discord bot exited cleanly")
}

func checkForUpdates(ctx context.Context, url string, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	latest, newer, err := v.CheckForUpdates(ctx, &http.Client{Timeout: 10 * time.Second}, url)
	switch {
	case err != nil:
		log.Debug().Err(err).Msg("Update check failed")
	case newer:
		log.Warn().Str("current", v.Version).Str("latest", latest).Msg("A newer version is available")
	default:
		log.Info().Str("version", v.Version).Msg("Running the latest version")
	}
}
