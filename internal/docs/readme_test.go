package docs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/herald/internal/config"
	"github.com/keshon/herald/internal/registry"
	"github.com/keshon/herald/pkg/cmd"
)

var noop = cmd.HandlerFunc(func(context.Context, *cmd.Invocation) error { return nil })

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.Load([]registry.CommandDefinition{
		{
			Name:        "setup",
			Description: "admin setup",
			Category:    config.CategoryAdmin,
			Text: registry.TextSurface{
				Enabled:     true,
				Handler:     noop,
				Subcommands: []registry.Subcommand{{Trigger: "log <#channel>", Description: "log channel"}},
			},
		},
		{
			Name:        "ping",
			Description: "pong",
			Category:    config.CategoryInformation,
			Text:        registry.TextSurface{Enabled: true, Handler: noop},
			Slash:       registry.SlashSurface{Enabled: true, Handler: noop},
		},
		{
			Name:        "about",
			Description: "about",
			Category:    config.CategoryInformation,
			Slash:       registry.SlashSurface{Enabled: true, Handler: noop},
		},
	}))
	require.NoError(t, reg.LoadContexts([]registry.ContextMenuDefinition{
		{Name: "Avatar", Type: registry.ContextUser, Enabled: true, Handler: noop},
	}))
	reg.Freeze()
	return reg
}

func TestCommandSections(t *testing.T) {
	bot := config.DefaultBot()
	out := CommandSections(testRegistry(t), bot)

	info := strings.Index(out, "### "+bot.CategoryTitle(config.CategoryInformation))
	admin := strings.Index(out, "### "+bot.CategoryTitle(config.CategoryAdmin))
	require.True(t, info >= 0 && admin >= 0, out)
	assert.Less(t, info, admin)

	assert.Contains(t, out, "- **`!ping` `/ping`** - pong")
	assert.Contains(t, out, "- **`/about`** - about")
	assert.Contains(t, out, "  - `!setup log <#channel>` log channel")
	assert.Contains(t, out, "### Context Menus\n\n- **Avatar** (user)")
	assert.Less(t, strings.Index(out, "/about"), strings.Index(out, "!ping"))
}

func TestUpdateReadme(t *testing.T) {
	dir := t.TempDir()
	tmpl := filepath.Join(dir, "README.md.tmpl")
	out := filepath.Join(dir, "README.md")
	require.NoError(t, os.WriteFile(tmpl, []byte("# Title\n\n{{ .CommandSections }}"), 0o644))

	require.NoError(t, UpdateReadme(tmpl, out, testRegistry(t), config.DefaultBot()))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Title\n\n### "))
	assert.Contains(t, string(data), "pong")

	assert.Error(t, UpdateReadme(filepath.Join(dir, "missing.tmpl"), out, testRegistry(t), config.DefaultBot()))
}
