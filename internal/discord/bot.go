package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/herald/internal/config"
	"github.com/keshon/herald/internal/registry"
	"github.com/keshon/herald/internal/storage"
	"github.com/keshon/herald/pkg/jobmgr"
)

// Options configures a Bot.
type Options struct {
	Config   *config.Config
	Registry *registry.Registry
	Store    *storage.Storage
	Events   *EventBus
	Log      zerolog.Logger
}

// Bot is a Discord bot
type Bot struct {
	cfg       *config.Config
	reg       *registry.Registry
	store     *storage.Storage
	events    *EventBus
	log       zerolog.Logger
	cooldowns *storage.Cooldowns

	dg      *discordgo.Session
	ctx     context.Context
	jobs    *jobmgr.Manager
	webhook *webhookTarget

	permissions PermissionLookup

	startedAt time.Time

	mu        sync.RWMutex
	registrar *Registrar
}

// New validates options and returns a bot ready to Run. The registry must be
// frozen.
func New(opts Options) (*Bot, error) {
	if opts.Config == nil || opts.Registry == nil || opts.Store == nil {
		return nil, errors.New("config, registry and store are required")
	}
	if !opts.Registry.Frozen() {
		return nil, errors.New("registry must be frozen before the bot starts")
	}
	if opts.Events == nil {
		opts.Events = NewEventBus(16)
	}

	b := &Bot{
		cfg:       opts.Config,
		reg:       opts.Registry,
		store:     opts.Store,
		events:    opts.Events,
		log:       opts.Log,
		cooldowns: storage.NewCooldowns(),
	}

	if opts.Config.JoinLeaveLogs != "" {
		target, err := parseWebhookURL(opts.Config.JoinLeaveLogs)
		if err != nil {
			return nil, fmt.Errorf("invalid JOIN_LEAVE_LOGS: %w", err)
		}
		b.webhook = target
	}
	return b, nil
}

// Run opens the gateway session and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.cfg.RequireToken(); err != nil {
		return err
	}
	dg, err := discordgo.New("Bot " + b.cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	b.dg = dg
	b.ctx = ctx
	b.startedAt = time.Now()
	b.permissions = func(userID, channelID string) (int64, error) {
		return channelPermissions(dg, userID, channelID)
	}
	b.jobs = jobmgr.NewManager(ctx, func(msg string) {
		b.log.Debug().Str("job", msg).Msg("Job status")
	})

	b.configureIntents()
	b.bindEvents()

	if err := dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer dg.Close()

	if err := b.jobs.StartAsync("system-events", b.handleSystemEvents); err != nil {
		return err
	}
	if err := b.jobs.StartAsync("cooldown-cleaner", func(ctx context.Context) error {
		storage.RunCooldownCleaner(ctx, b.cooldowns, b.log)
		return nil
	}); err != nil {
		return err
	}

	<-ctx.Done()
	b.log.Info().Strs("jobs", b.jobs.List()).Msg("❎ Shutdown signal received. Cleaning up...")
	b.jobs.StopAll()
	return nil
}

// configureIntents configures the Discord intents
func (b *Bot) configureIntents() {
	b.dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildPresences |
		discordgo.IntentsMessageContent
}

// AppID returns the application ID once the session is ready.
func (b *Bot) AppID() string {
	if b.dg == nil || b.dg.State == nil || b.dg.State.User == nil {
		return ""
	}
	return b.dg.State.User.ID
}

// RegisterInteractions pushes the manifest to scope ("" for global).
func (b *Bot) RegisterInteractions(ctx context.Context, scope string, force bool) (RegisterResult, error) {
	b.mu.RLock()
	r := b.registrar
	b.mu.RUnlock()
	if r == nil {
		return RegisterResult{Scope: scope}, errors.New("session is not ready")
	}
	return r.Register(ctx, scope, force)
}

// RegistrationScope is where startup and refresh pushes go: "" for global,
// otherwise the test guild.
func RegistrationScope(cfg *config.Config) string {
	if cfg.Interactions.Global {
		return ""
	}
	return cfg.Interactions.TestGuildID
}

// ManifestOptions selects the interaction kinds the config enables.
func ManifestOptions(cfg *config.Config) registry.ManifestOptions {
	return registry.ManifestOptions{Slash: cfg.Interactions.Slash, Context: cfg.Interactions.Context}
}

// refreshScope is the guild the event names, or the configured registration
// scope when it names none.
func refreshScope(evt SystemEvent, cfg *config.Config) string {
	if evt.GuildID != "" {
		return evt.GuildID
	}
	return RegistrationScope(cfg)
}

// handleSystemEvents processes refresh requests one at a time.
func (b *Bot) handleSystemEvents(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-b.events.Events():
			switch evt.Type {
			case SystemEventRefreshCommands:
				scope := refreshScope(evt, b.cfg)
				b.log.Info().Str("scope", scopeName(scope)).Msg("Refreshing interactions")
				if _, err := b.RegisterInteractions(ctx, scope, true); err != nil {
					b.log.Error().Err(err).Msg("Failed to refresh interactions")
				}
			default:
				b.log.Warn().Str("type", string(evt.Type)).Msg("Unknown system event")
			}
		}
	}
}

// channelNames resolves guild and channel names from state, falling back to
// REST.
func (b *Bot) channelNames(guildID, channelID string) (guildName, channelName string) {
	s := b.dg
	channel, err := s.State.Channel(channelID)
	if err != nil {
		channel, err = s.Channel(channelID)
		if err != nil {
			b.log.Warn().Err(err).Msg("Failed to fetch channel")
		}
	}
	if channel != nil {
		channelName = channel.Name
	}

	guild, err := s.State.Guild(guildID)
	if err != nil {
		guild, err = s.Guild(guildID)
		if err != nil {
			b.log.Warn().Err(err).Msg("Failed to fetch guild")
		}
	}
	if guild != nil {
		guildName = guild.Name
	}
	return guildName, channelName
}

func (b *Bot) isCategoryDisabled(guildID, category string) bool {
	disabled, err := b.store.IsCategoryDisabled(guildID, category)
	if err != nil {
		b.log.Warn().Err(err).Str("guild", guildID).Msg("Failed to read disabled categories")
		return false
	}
	return disabled
}

func (b *Bot) settings(guildID string) storage.GuildSettings {
	if guildID == "" {
		return storage.GuildSettings{}
	}
	g, err := b.store.Settings(guildID)
	if err != nil {
		b.log.Warn().Err(err).Str("guild", guildID).Msg("Failed to read guild settings")
	}
	return g
}
