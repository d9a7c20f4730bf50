package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/keshon/herald/internal/storage"
	"github.com/keshon/herald/pkg/cmd"
)

// PermissionLookup resolves a user's permission bits in a channel.
type PermissionLookup func(userID, channelID string) (int64, error)

// WithGuildOnly drops invocations outside a guild.
func WithGuildOnly() cmd.Middleware {
	return func(next cmd.Handler) cmd.Handler {
		return cmd.HandlerFunc(func(ctx context.Context, inv *cmd.Invocation) error {
			if src, ok := inv.Data.(Source); ok && src.GuildID() == "" {
				return nil
			}
			return next.Run(ctx, inv)
		})
	}
}

// WithCategoryCheck refuses commands whose category the guild switched off.
func WithCategoryCheck(category string, disabled func(guildID, category string) bool) cmd.Middleware {
	return func(next cmd.Handler) cmd.Handler {
		return cmd.HandlerFunc(func(ctx context.Context, inv *cmd.Invocation) error {
			src, ok := inv.Data.(Source)
			if !ok || category == "" || !disabled(src.GuildID(), category) {
				return next.Run(ctx, inv)
			}
			return src.Deny("This command is disabled on this server.")
		})
	}
}

// WithMinArgs replies with usage when fewer than n arguments were given.
func WithMinArgs(n int, usage string) cmd.Middleware {
	return func(next cmd.Handler) cmd.Handler {
		return cmd.HandlerFunc(func(ctx context.Context, inv *cmd.Invocation) error {
			if len(inv.Args) >= n {
				return next.Run(ctx, inv)
			}
			if src, ok := inv.Data.(Source); ok {
				return src.Deny(fmt.Sprintf("Not enough arguments.\nUsage: `%s`", usage))
			}
			return nil
		})
	}
}

// WithUserPermissionCheck requires the invoking user to hold every permission
// in required. Users for which privileged reports true bypass the check.
func WithUserPermissionCheck(required []int64, lookup PermissionLookup, privileged func(guildID, userID string) bool) cmd.Middleware {
	return func(next cmd.Handler) cmd.Handler {
		return cmd.HandlerFunc(func(ctx context.Context, inv *cmd.Invocation) error {
			src, ok := inv.Data.(Source)
			if !ok || len(required) == 0 || src.GuildID() == "" {
				return next.Run(ctx, inv)
			}
			user := src.User()
			if privileged != nil && privileged(src.GuildID(), user.ID) {
				return next.Run(ctx, inv)
			}
			have, err := lookup(user.ID, src.ChannelID())
			if err != nil {
				return fmt.Errorf("failed to get user permissions: %w", err)
			}
			if missing := MissingPermissions(have, required); len(missing) > 0 {
				return src.Deny(fmt.Sprintf("You need the following permissions to run this command:\n%s", FormatPermissions(missing)))
			}
			return next.Run(ctx, inv)
		})
	}
}

// WithBotPermissionCheck requires the bot to hold every permission in required.
func WithBotPermissionCheck(required []int64, lookup PermissionLookup, botID func() string) cmd.Middleware {
	return func(next cmd.Handler) cmd.Handler {
		return cmd.HandlerFunc(func(ctx context.Context, inv *cmd.Invocation) error {
			src, ok := inv.Data.(Source)
			if !ok || len(required) == 0 || src.GuildID() == "" {
				return next.Run(ctx, inv)
			}
			have, err := lookup(botID(), src.ChannelID())
			if err != nil {
				return fmt.Errorf("failed to get bot permissions: %w", err)
			}
			if missing := MissingPermissions(have, required); len(missing) > 0 {
				return src.Deny(fmt.Sprintf("I need the following permissions to run this command:\n%s", FormatPermissions(missing)))
			}
			return next.Run(ctx, inv)
		})
	}
}

// WithCooldown limits how often one user may run the command.
func WithCooldown(cooldowns *storage.Cooldowns, d time.Duration) cmd.Middleware {
	return func(next cmd.Handler) cmd.Handler {
		return cmd.HandlerFunc(func(ctx context.Context, inv *cmd.Invocation) error {
			src, ok := inv.Data.(Source)
			if !ok || d <= 0 {
				return next.Run(ctx, inv)
			}
			allowed, left := cooldowns.Allow(inv.Name+":"+src.User().ID, d)
			if !allowed {
				return src.Deny(fmt.Sprintf("You are on cooldown. You can again use this command in `%s`", left.Round(time.Second)))
			}
			return next.Run(ctx, inv)
		})
	}
}

// ChannelNames resolves display names for the command history.
type ChannelNames func(guildID, channelID string) (guildName, channelName string)

// WithCommandLogger logs every execution with a correlation ID and appends it
// to the guild's command history.
func WithCommandLogger(store *storage.Storage, names ChannelNames, log zerolog.Logger) cmd.Middleware {
	return func(next cmd.Handler) cmd.Handler {
		return cmd.HandlerFunc(func(ctx context.Context, inv *cmd.Invocation) error {
			src, ok := inv.Data.(Source)
			if !ok {
				return next.Run(ctx, inv)
			}

			id := uuid.NewString()
			user := src.User()
			start := time.Now()
			err := next.Run(ctx, inv)

			ev := log.Info()
			if err != nil {
				ev = log.Error().Err(err)
			}
			ev.Str("invocation", id).
				Str("command", inv.Name).
				Str("guild", src.GuildID()).
				Str("user", user.Username).
				Dur("took", time.Since(start)).
				Msg("Command executed")

			if src.GuildID() != "" && store != nil {
				guildName, channelName := "", ""
				if names != nil {
					guildName, channelName = names(src.GuildID(), src.ChannelID())
				}
				rec := storage.CommandHistory{
					ChannelID:   src.ChannelID(),
					ChannelName: channelName,
					GuildName:   guildName,
					UserID:      user.ID,
					Username:    user.Username,
					Command:     inv.Name,
					Datetime:    start,
				}
				if e := store.AppendCommandHistory(src.GuildID(), rec); e != nil {
					log.Warn().Err(e).Str("invocation", id).Msg("Failed to log command")
				}
			}
			return err
		})
	}
}
