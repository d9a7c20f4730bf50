package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/herald/internal/registry"
	"github.com/keshon/herald/pkg/ratelimit"
	"github.com/keshon/herald/pkg/util"
)

// CommandsAPI is the part of the REST API used to publish application
// commands. *discordgo.Session satisfies it.
type CommandsAPI interface {
	ApplicationCommands(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// HashStore remembers the hash of the last manifest pushed per scope.
type HashStore interface {
	ManifestHash(scope string) (string, error)
	SetManifestHash(scope, hash string) error
}

// RegisterResult describes one registration attempt.
type RegisterResult struct {
	Scope    string
	Names    []string
	Existing []string
	Hash     string
	Skipped  bool
}

// Registrar publishes the registry manifest with a full replace. Calls for
// the same scope are serialized.
type Registrar struct {
	api     CommandsAPI
	appID   string
	reg     *registry.Registry
	hashes  HashStore
	opts    registry.ManifestOptions
	limiter *ratelimit.AdaptiveLimiter
	log     zerolog.Logger

	locks sync.Map // scope -> *sync.Mutex
}

// registerWorkers bounds concurrent pushes in RegisterScopes.
const registerWorkers = 4

// NewRegistrar creates a registrar. hashes may be nil, in which case every
// call pushes.
func NewRegistrar(api CommandsAPI, appID string, reg *registry.Registry, hashes HashStore, opts registry.ManifestOptions, log zerolog.Logger) *Registrar {
	return &Registrar{
		api:     api,
		appID:   appID,
		reg:     reg,
		hashes:  hashes,
		opts:    opts,
		limiter: ratelimit.NewAdaptiveLimiter(1, 0.2, 5, 0.5, 0.5),
		log:     log,
	}
}

// Register replaces the commands of scope ("" for global, otherwise a guild
// ID) with the current manifest. An unchanged manifest is not pushed again
// unless force is set.
func (r *Registrar) Register(ctx context.Context, scope string, force bool) (RegisterResult, error) {
	unlock := r.lock(scope)
	defer unlock()

	cmds := ApplicationCommands(r.reg.Manifest(r.opts))
	res := RegisterResult{Scope: scope, Names: commandNames(cmds), Hash: hashManifest(cmds)}
	log := r.log.With().Str("scope", scopeName(scope)).Logger()

	if !force && r.hashes != nil {
		prev, err := r.hashes.ManifestHash(scope)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to read cached manifest hash")
		} else if prev == res.Hash {
			res.Skipped = true
			log.Info().Int("commands", len(cmds)).Msg("Interactions unchanged, skipping registration")
			return res, nil
		}
	}

	if scope != "" {
		if err := r.limiter.Wait(ctx); err != nil {
			return res, err
		}
	}

	existing, err := r.api.ApplicationCommands(r.appID, scope, discordgo.WithContext(ctx))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch existing commands")
	} else {
		res.Existing = commandNames(existing)
	}
	log.Info().Strs("existing", res.Existing).Strs("register", res.Names).Msg("Registering interactions")

	_, err = r.api.ApplicationCommandBulkOverwrite(r.appID, scope, cmds, discordgo.WithContext(ctx))
	err = withStatus(err)
	if scope != "" {
		r.limiter.Observe(err)
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to register interactions")
		return res, fmt.Errorf("failed to register interactions in %s: %w", scopeName(scope), err)
	}

	if r.hashes != nil {
		if err := r.hashes.SetManifestHash(scope, res.Hash); err != nil {
			log.Warn().Err(err).Msg("Failed to cache manifest hash")
		}
	}
	log.Info().Int("commands", len(cmds)).Msg("Successfully registered interactions")
	return res, nil
}

// RegisterScopes runs Register for each scope, a few at a time. The first
// failure stops the remaining pushes.
func (r *Registrar) RegisterScopes(ctx context.Context, scopes []string, force bool) ([]RegisterResult, error) {
	var (
		mu      sync.Mutex
		results = make([]RegisterResult, 0, len(scopes))
	)
	err := util.Parallel(ctx, scopes, registerWorkers, func(ctx context.Context, scope string) error {
		res, err := r.Register(ctx, scope, force)
		if err != nil {
			return err
		}
		mu.Lock()
		results = append(results, res)
		mu.Unlock()
		return nil
	})
	return results, err
}

func (r *Registrar) lock(scope string) func() {
	m, _ := r.locks.LoadOrStore(scope, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// ApplicationCommands converts manifest descriptors to the API shape.
func ApplicationCommands(manifest []registry.Descriptor) []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, 0, len(manifest))
	for _, d := range manifest {
		out = append(out, &discordgo.ApplicationCommand{
			Name:                     d.Name,
			Description:              d.Description,
			Type:                     commandType(d.Kind),
			Options:                  d.Options,
			DefaultMemberPermissions: d.DefaultMemberPermissions,
		})
	}
	return out
}

func commandType(k registry.Kind) discordgo.ApplicationCommandType {
	switch k {
	case registry.KindUser:
		return discordgo.UserApplicationCommand
	case registry.KindMessage:
		return discordgo.MessageApplicationCommand
	default:
		return discordgo.ChatApplicationCommand
	}
}

func commandNames(cmds []*discordgo.ApplicationCommand) []string {
	names := make([]string, 0, len(cmds))
	for _, c := range cmds {
		names = append(names, c.Name)
	}
	return names
}

func scopeName(scope string) string {
	if scope == "" {
		return "global"
	}
	return "guild " + scope
}

// withStatus exposes the HTTP status of REST errors to the limiter.
func withStatus(err error) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		return &ratelimit.StatusError{Code: restErr.Response.StatusCode, Err: err}
	}
	return err
}
