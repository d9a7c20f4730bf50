package registry

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/herald/pkg/cmd"
)

var noop = cmd.HandlerFunc(func(context.Context, *cmd.Invocation) error { return nil })

func text(name string, aliases ...string) CommandDefinition {
	return CommandDefinition{
		Name:        name,
		Description: "text " + name,
		Text:        TextSurface{Enabled: true, Aliases: aliases, Handler: noop},
	}
}

func slash(name string) CommandDefinition {
	return CommandDefinition{
		Name:        name,
		Description: "slash " + name,
		Slash:       SlashSurface{Enabled: true, Handler: noop},
	}
}

func both(name string, aliases ...string) CommandDefinition {
	d := text(name, aliases...)
	d.Slash = SlashSurface{Enabled: true, Handler: noop}
	return d
}

func menu(name string, t ContextType) ContextMenuDefinition {
	return ContextMenuDefinition{Name: name, Type: t, Enabled: true, Handler: noop}
}

func TestLoad_DuplicateNameIsCaseInsensitive(t *testing.T) {
	r := New()
	err := r.Load([]CommandDefinition{text("foo"), text("FOO")})

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.ErrorIs(t, err, ErrDuplicateName)
	assert.Equal(t, "FOO", le.Name)
	assert.Contains(t, err.Error(), `"FOO"`)

	require.NoError(t, New().Load([]CommandDefinition{text("foo"), text("bar")}))
}

func TestLoad_AliasCollisions(t *testing.T) {
	tests := []struct {
		name string
		defs []CommandDefinition
		want error
	}{
		{"alias hits earlier name", []CommandDefinition{text("ping"), text("p", "ping")}, ErrDuplicateAlias},
		{"alias hits earlier alias", []CommandDefinition{text("a", "x"), text("b", "X")}, ErrDuplicateAlias},
		{"name hits earlier alias", []CommandDefinition{text("a", "b"), text("b")}, ErrDuplicateName},
		{"alias equals own name", []CommandDefinition{text("a", "A")}, ErrDuplicateAlias},
		{"alias repeated", []CommandDefinition{text("a", "x", "x")}, ErrDuplicateAlias},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, New().Load(tt.defs), tt.want)
		})
	}
}

func TestLoad_FailureLeavesRegistryUnchanged(t *testing.T) {
	r := New()
	require.NoError(t, r.Load([]CommandDefinition{text("ping")}))

	err := r.Load([]CommandDefinition{text("pong"), text("p", "ping")})
	require.ErrorIs(t, err, ErrDuplicateAlias)

	_, ok := r.Lookup("pong")
	assert.False(t, ok)
	assert.Len(t, r.Commands(), 1)
}

func TestLookup(t *testing.T) {
	r := New()
	require.NoError(t, r.Load([]CommandDefinition{text("help", "h", "Commands"), text("foo")}))

	for _, invoke := range []string{"help", "HELP", "h", "commands", "COMMANDS"} {
		d, ok := r.Lookup(invoke)
		require.True(t, ok, invoke)
		assert.Equal(t, "help", d.Name)
	}

	a, _ := r.Lookup("Foo")
	b, _ := r.Lookup("foo")
	assert.Same(t, a, b)

	d, ok := r.Lookup("nonexistent")
	assert.False(t, ok)
	assert.Nil(t, d)
}

func TestLoad_SurfacesAreIndependent(t *testing.T) {
	r := New()
	require.NoError(t, r.Load([]CommandDefinition{text("only-text"), slash("only-slash")}))

	_, ok := r.Lookup("only-slash")
	assert.False(t, ok)
	_, ok = r.SlashCommand("only-text")
	assert.False(t, ok)

	d, ok := r.SlashCommand("only-slash")
	require.True(t, ok)
	assert.Equal(t, "only-slash", d.Name)

	assert.ErrorIs(t, r.Load([]CommandDefinition{slash("only-slash")}), ErrDuplicateSlash)
	assert.NoError(t, r.Load([]CommandDefinition{text("only-slash")}))
}

func TestLoad_SlashCeiling(t *testing.T) {
	defs := make([]CommandDefinition, 0, MaxSlashCommands)
	for i := 0; i < MaxSlashCommands; i++ {
		defs = append(defs, slash(fmt.Sprintf("cmd-%03d", i)))
	}

	r := New()
	require.NoError(t, r.Load(defs))

	manifest := r.Manifest(DefaultManifest())
	require.Len(t, manifest, MaxSlashCommands)
	for i, desc := range manifest {
		assert.Equal(t, fmt.Sprintf("cmd-%03d", i), desc.Name)
		assert.Equal(t, KindChatInput, desc.Kind)
	}

	err := r.Load([]CommandDefinition{slash("one-too-many")})
	assert.ErrorIs(t, err, ErrTooManySlash)
	assert.Len(t, r.SlashCommands(), MaxSlashCommands)
}

func TestLoad_CategoryFilterSkips(t *testing.T) {
	r := New(WithCategoryFilter(func(c string) bool { return c != "GIVEAWAY" }))

	gift := text("gift")
	gift.Category = "GIVEAWAY"
	dup := text("gift")
	dup.Category = "GIVEAWAY"
	info := text("info")
	info.Category = "INFORMATION"

	require.NoError(t, r.Load([]CommandDefinition{gift, dup, info}))
	_, ok := r.Lookup("gift")
	assert.False(t, ok)
	_, ok = r.Lookup("info")
	assert.True(t, ok)
}

func TestLoad_InvalidDefinitions(t *testing.T) {
	upper := slash("Ping")
	noDesc := slash("ping")
	noDesc.Description = ""
	noHandler := text("ping")
	noHandler.Text.Handler = nil
	spaced := text("two words")
	badAlias := text("ping", "")
	negArgs := text("ping")
	negArgs.Text.MinArgs = -1

	for name, d := range map[string]CommandDefinition{
		"upper case slash": upper,
		"no description":   noDesc,
		"no handler":       noHandler,
		"whitespace name":  spaced,
		"empty alias":      badAlias,
		"negative min":     negArgs,
		"empty name":       {Text: TextSurface{Enabled: true, Handler: noop}},
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, New().Load([]CommandDefinition{d}), ErrInvalidDefinition)
		})
	}
}

func TestLoad_DoesNotAliasCallerSlices(t *testing.T) {
	d := text("ping", "p")
	r := New()
	require.NoError(t, r.Load([]CommandDefinition{d}))

	d.Text.Aliases[0] = "changed"
	got, ok := r.Lookup("p")
	require.True(t, ok)
	assert.Equal(t, []string{"p"}, got.Aliases())
}

func TestLoadContexts(t *testing.T) {
	r := New()
	require.NoError(t, r.LoadContexts([]ContextMenuDefinition{
		menu("Avatar", ContextUser),
		menu("Profile", ContextUser),
		menu("Warn", ContextUser),
		menu("Quote", ContextMessage),
	}))

	c, ok := r.Context("Avatar")
	require.True(t, ok)
	assert.Equal(t, ContextUser, c.Type)
	_, ok = r.Context("avatar")
	assert.False(t, ok, "context names are exact")

	manifest := r.Manifest(DefaultManifest())
	require.Len(t, manifest, 4)
	assert.Equal(t, []Kind{KindUser, KindUser, KindUser, KindMessage},
		[]Kind{manifest[0].Kind, manifest[1].Kind, manifest[2].Kind, manifest[3].Kind})

	stats := r.Stats()
	assert.Equal(t, 3, stats.UserContexts)
	assert.Equal(t, 1, stats.MessageContexts)
}

func TestLoadContexts_Ceilings(t *testing.T) {
	users := []ContextMenuDefinition{
		menu("u1", ContextUser), menu("u2", ContextUser), menu("u3", ContextUser), menu("u4", ContextUser),
	}
	assert.ErrorIs(t, New().LoadContexts(users), ErrTooManyUserContexts)

	messages := []ContextMenuDefinition{
		menu("m1", ContextMessage), menu("m2", ContextMessage), menu("m3", ContextMessage), menu("m4", ContextMessage),
	}
	assert.ErrorIs(t, New().LoadContexts(messages), ErrTooManyMessageContexts)

	r := New()
	require.NoError(t, r.LoadContexts(users[:3]))
	assert.ErrorIs(t, r.LoadContexts(users[3:]), ErrTooManyUserContexts)
	assert.Len(t, r.Contexts(), 3)
}

func TestLoadContexts_DisabledAndDuplicates(t *testing.T) {
	off := menu("Avatar", ContextUser)
	off.Enabled = false
	off.Handler = nil

	r := New()
	require.NoError(t, r.LoadContexts([]ContextMenuDefinition{off, menu("Avatar", ContextUser)}))
	assert.ErrorIs(t, r.LoadContexts([]ContextMenuDefinition{menu("Avatar", ContextMessage)}), ErrDuplicateContext)

	bad := menu("Weird", ContextType(9))
	assert.ErrorIs(t, New().LoadContexts([]ContextMenuDefinition{bad}), ErrInvalidDefinition)
}

func TestManifest_OrderAndToggles(t *testing.T) {
	admin := both("settings")
	admin.UserPermissions = []int64{discordgo.PermissionManageGuild, discordgo.PermissionManageChannels}
	admin.Slash.Options = []*discordgo.ApplicationCommandOption{
		{Type: discordgo.ApplicationCommandOptionString, Name: "key", Description: "key"},
	}

	r := New()
	require.NoError(t, r.Load([]CommandDefinition{text("text-only"), slash("zeta"), admin, slash("alpha")}))
	require.NoError(t, r.LoadContexts([]ContextMenuDefinition{menu("Message Info", ContextMessage), menu("Avatar", ContextUser)}))

	var names []string
	for _, d := range r.Manifest(DefaultManifest()) {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"zeta", "settings", "alpha", "Message Info", "Avatar"}, names)

	settings := r.Manifest(ManifestOptions{Slash: true})[1]
	require.NotNil(t, settings.DefaultMemberPermissions)
	assert.Equal(t, int64(discordgo.PermissionManageGuild|discordgo.PermissionManageChannels), *settings.DefaultMemberPermissions)
	assert.Len(t, settings.Options, 1)

	assert.Len(t, r.Manifest(ManifestOptions{Context: true}), 2)
	assert.Empty(t, r.Manifest(ManifestOptions{}))
}

func TestComponentRouting(t *testing.T) {
	withComponent := both("application")
	withComponent.Component = noop
	slashOnly := slash("poll")
	slashOnly.Component = noop
	textTwin := text("poll")
	textTwin.Component = noop

	r := New()
	require.NoError(t, r.Load([]CommandDefinition{withComponent, slashOnly}))

	d, ok := r.Component("application:setup:123")
	require.True(t, ok)
	assert.Equal(t, "application", d.Name)
	_, ok = r.Component("poll")
	assert.True(t, ok)
	_, ok = r.Component("unknown:thing")
	assert.False(t, ok)

	assert.ErrorIs(t, r.Load([]CommandDefinition{textTwin}), ErrDuplicateComponent)
}

func TestFreeze(t *testing.T) {
	r := New()
	require.NoError(t, r.Load([]CommandDefinition{text("ping")}))
	r.Freeze()

	assert.True(t, r.Frozen())
	assert.ErrorIs(t, r.Load([]CommandDefinition{text("pong")}), ErrFrozen)
	assert.ErrorIs(t, r.LoadContexts([]ContextMenuDefinition{menu("Avatar", ContextUser)}), ErrFrozen)
}

func TestConcurrentReadsAfterFreeze(t *testing.T) {
	r := New()
	require.NoError(t, r.Load([]CommandDefinition{both("ping", "p"), both("help", "h")}))
	r.Freeze()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_, _ = r.Lookup("P")
				_, _ = r.SlashCommand("help")
				_ = r.Manifest(DefaultManifest())
			}
		}()
	}
	wg.Wait()
}

func TestAllAndStats(t *testing.T) {
	r := New()
	require.NoError(t, r.Load([]CommandDefinition{both("ping"), slash("only-slash"), text("only-text")}))

	var names []string
	for _, d := range r.All() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"ping", "only-text", "only-slash"}, names)
	assert.Equal(t, Stats{Text: 2, Slash: 2}, r.Stats())
}
