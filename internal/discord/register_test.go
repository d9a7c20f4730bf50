package discord

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/herald/internal/config"
	"github.com/keshon/herald/internal/registry"
	"github.com/keshon/herald/internal/storage"
	"github.com/keshon/herald/pkg/cmd"
)

type fakeCommandsAPI struct {
	mu       sync.Mutex
	existing []*discordgo.ApplicationCommand
	pushed   map[string][]*discordgo.ApplicationCommand
	calls    int
	err      error
}

func (f *fakeCommandsAPI) ApplicationCommands(appID, guildID string, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	return f.existing, nil
}

func (f *fakeCommandsAPI) ApplicationCommandBulkOverwrite(appID string, guildID string, cmds []*discordgo.ApplicationCommand, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.pushed == nil {
		f.pushed = make(map[string][]*discordgo.ApplicationCommand)
	}
	f.pushed[guildID] = cmds
	return cmds, nil
}

var noop = cmd.HandlerFunc(func(context.Context, *cmd.Invocation) error { return nil })

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.Load([]registry.CommandDefinition{
		{
			Name:            "prefix",
			Description:     "set the prefix",
			UserPermissions: []int64{discordgo.PermissionManageGuild},
			Text:            registry.TextSurface{Enabled: true, Handler: noop},
			Slash:           registry.SlashSurface{Enabled: true, Handler: noop},
		},
		{
			Name:        "ping",
			Description: "pong",
			Slash:       registry.SlashSurface{Enabled: true, Handler: noop},
		},
		{
			Name:        "textonly",
			Description: "not in the manifest",
			Text:        registry.TextSurface{Enabled: true, Handler: noop},
		},
	}))
	require.NoError(t, reg.LoadContexts([]registry.ContextMenuDefinition{
		{Name: "Avatar", Type: registry.ContextUser, Enabled: true, Handler: noop},
	}))
	reg.Freeze()
	return reg
}

func testStore(t *testing.T) *storage.Storage {
	t.Helper()
	opts := storage.DefaultOptions(filepath.Join(t.TempDir(), "store.json"))
	opts.AutoSave = 0
	store, err := storage.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestApplicationCommands(t *testing.T) {
	cmds := ApplicationCommands(testRegistry(t).Manifest(registry.DefaultManifest()))
	require.Len(t, cmds, 3)

	assert.Equal(t, "prefix", cmds[0].Name)
	assert.Equal(t, discordgo.ChatApplicationCommand, cmds[0].Type)
	require.NotNil(t, cmds[0].DefaultMemberPermissions)
	assert.Equal(t, int64(discordgo.PermissionManageGuild), *cmds[0].DefaultMemberPermissions)

	assert.Equal(t, "ping", cmds[1].Name)
	assert.Nil(t, cmds[1].DefaultMemberPermissions)

	assert.Equal(t, "Avatar", cmds[2].Name)
	assert.Equal(t, discordgo.UserApplicationCommand, cmds[2].Type)
	assert.Empty(t, cmds[2].Description)
}

func TestRegistrar_FullReplaceAndSkip(t *testing.T) {
	api := &fakeCommandsAPI{existing: []*discordgo.ApplicationCommand{{Name: "obsolete"}}}
	store := testStore(t)
	r := NewRegistrar(api, "app", testRegistry(t), store, registry.DefaultManifest(), zerolog.Nop())

	res, err := r.Register(context.Background(), "", false)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, []string{"prefix", "ping", "Avatar"}, res.Names)
	assert.Equal(t, []string{"obsolete"}, res.Existing)
	assert.Equal(t, 1, api.calls)
	assert.Len(t, api.pushed[""], 3, "whole manifest is pushed, obsolete entries are dropped by replacement")

	cached, err := store.ManifestHash("")
	require.NoError(t, err)
	assert.Equal(t, res.Hash, cached)

	res, err = r.Register(context.Background(), "", false)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, 1, api.calls)

	_, err = r.Register(context.Background(), "", true)
	require.NoError(t, err)
	assert.Equal(t, 2, api.calls, "force pushes unchanged manifests")
}

func TestRegistrar_GuildScope(t *testing.T) {
	api := &fakeCommandsAPI{}
	r := NewRegistrar(api, "app", testRegistry(t), nil, registry.ManifestOptions{Slash: true}, zerolog.Nop())

	res, err := r.Register(context.Background(), "guild-1", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"prefix", "ping"}, res.Names, "context menus excluded")
	assert.Len(t, api.pushed["guild-1"], 2)
}

func TestRegistrar_FailureIsReturnedNotCached(t *testing.T) {
	api := &fakeCommandsAPI{err: errors.New("unauthorized")}
	store := testStore(t)
	r := NewRegistrar(api, "app", testRegistry(t), store, registry.DefaultManifest(), zerolog.Nop())

	_, err := r.Register(context.Background(), "", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "global")

	cached, err := store.ManifestHash("")
	require.NoError(t, err)
	assert.Empty(t, cached)
}

func TestRegistrar_CancelledGuildPush(t *testing.T) {
	api := &fakeCommandsAPI{}
	r := NewRegistrar(api, "app", testRegistry(t), nil, registry.DefaultManifest(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Register(ctx, "guild-1", false)
	assert.Error(t, err)
	assert.Equal(t, 0, api.calls)
}

func TestRegistrationScope(t *testing.T) {
	cfg := &config.Config{}
	cfg.Interactions = config.Interactions{Global: true, TestGuildID: "7", Slash: true}
	assert.Equal(t, "", RegistrationScope(cfg))
	assert.Equal(t, registry.ManifestOptions{Slash: true}, ManifestOptions(cfg))

	cfg.Interactions.Global = false
	assert.Equal(t, "7", RegistrationScope(cfg))
}

func TestRegistrar_RegisterScopes(t *testing.T) {
	api := &fakeCommandsAPI{}
	r := NewRegistrar(api, "app", testRegistry(t), testStore(t), registry.DefaultManifest(), zerolog.Nop())

	results, err := r.RegisterScopes(context.Background(), []string{"", "g1", "g2"}, false)
	require.NoError(t, err)
	require.Len(t, results, 3)

	scopes := make([]string, 0, len(results))
	for _, res := range results {
		scopes = append(scopes, res.Scope)
	}
	sort.Strings(scopes)
	assert.Equal(t, []string{"", "g1", "g2"}, scopes)
	assert.Equal(t, 3, api.calls)
	assert.Len(t, api.pushed, 3)

	api.err = errors.New("boom")
	_, err = r.RegisterScopes(context.Background(), []string{"g3"}, true)
	assert.Error(t, err)
}

func (f *fakeCommandsAPI) pushedTo(scope string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.pushed[scope]
	return ok
}

func TestHandleSystemEvents_RefreshesRequestedGuild(t *testing.T) {
	cfg := &config.Config{Bot: *config.DefaultBot()}
	cfg.Interactions.Global = true

	api := &fakeCommandsAPI{}
	events := NewEventBus(4)
	b, err := New(Options{Config: cfg, Registry: testRegistry(t), Store: testStore(t), Events: events, Log: zerolog.Nop()})
	require.NoError(t, err)
	b.registrar = NewRegistrar(api, "app", b.reg, b.store, ManifestOptions(cfg), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.handleSystemEvents(ctx) }()

	require.True(t, events.Publish(SystemEvent{Type: SystemEventRefreshCommands, GuildID: "123456789012345678"}))
	assert.Eventually(t, func() bool { return api.pushedTo("123456789012345678") }, time.Second, 5*time.Millisecond)
	assert.False(t, api.pushedTo(""), "a guild refresh never overwrites the global set")

	require.True(t, events.Publish(SystemEvent{Type: SystemEventRefreshCommands}))
	assert.Eventually(t, func() bool { return api.pushedTo("") }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestRefreshScope(t *testing.T) {
	cfg := &config.Config{}
	cfg.Interactions = config.Interactions{Global: false, TestGuildID: "7"}

	assert.Equal(t, "42", refreshScope(SystemEvent{GuildID: "42"}, cfg))
	assert.Equal(t, "7", refreshScope(SystemEvent{}, cfg))

	cfg.Interactions.Global = true
	assert.Equal(t, "", refreshScope(SystemEvent{}, cfg))
}
