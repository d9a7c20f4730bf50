package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/herald/internal/discord"
	"github.com/keshon/herald/internal/registry"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", filepath.Join(dir, "bot.yaml"))
	t.Setenv("STORAGE_PATH", filepath.Join(dir, "store.json"))
	t.Setenv("DISCORD_TOKEN", "")

	var out, errOut bytes.Buffer
	root := NewApp().RootCommand()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestManifestCommand(t *testing.T) {
	out, err := run(t, "manifest")
	require.NoError(t, err)

	var manifest []registry.Descriptor
	require.NoError(t, json.Unmarshal([]byte(out), &manifest))
	require.NotEmpty(t, manifest)

	names := make([]string, 0, len(manifest))
	for _, d := range manifest {
		names = append(names, d.Name)
	}
	assert.Contains(t, names, "application")
	assert.Contains(t, names, "Avatar")
}

func TestManifestCommand_API(t *testing.T) {
	out, err := run(t, "manifest", "--api")
	require.NoError(t, err)

	var cmds []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &cmds))
	require.NotEmpty(t, cmds)
	assert.Contains(t, cmds[0], "type")
}

func TestCommandsCommand(t *testing.T) {
	out, err := run(t, "commands")
	require.NoError(t, err)
	assert.Contains(t, out, "Interaction")
	assert.Contains(t, out, "!prefix (setprefix)")
	assert.Contains(t, out, "Message Info")
}

func TestInviteCommand(t *testing.T) {
	out, err := run(t, "invite", "--app-id", "123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "https://discord.com/oauth2/authorize?"))
	assert.Contains(t, out, "client_id=123")

	_, err = run(t, "invite")
	assert.Error(t, err)
}

func TestRegisterCommand_RequiresToken(t *testing.T) {
	_, err := run(t, "register")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Herald "))
}

func TestReadmeCommand(t *testing.T) {
	dir := t.TempDir()
	tmpl := filepath.Join(dir, "README.md.tmpl")
	readme := filepath.Join(dir, "README.md")
	require.NoError(t, os.WriteFile(tmpl, []byte("{{ .CommandSections }}"), 0o644))

	_, err := run(t, "readme", "--template", tmpl, "--out", readme)
	require.NoError(t, err)

	data, err := os.ReadFile(readme)
	require.NoError(t, err)
	assert.Contains(t, string(data), "`/application`")
}

func TestPrintResult(t *testing.T) {
	var out bytes.Buffer
	printResult(&out, discord.RegisterResult{Scope: "", Skipped: true, Hash: "0123456789abcdef"})
	printResult(&out, discord.RegisterResult{Scope: "42", Names: []string{"ping", "help"}})

	assert.Equal(t,
		"global: manifest unchanged (0123456789ab), nothing pushed. Use --force to push anyway.\n"+
			"42: registered 2 interactions: ping, help\n",
		out.String())
}

func TestOpenHashes_LeavesBotStoreUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	original := []byte(`{"guild:1":{"guild_id":"1","prefix":"?"},"manifest:global":"old"}`)
	require.NoError(t, os.WriteFile(path, original, 0o644))

	store, err := openHashes(path)
	require.NoError(t, err)
	hash, err := store.ManifestHash("")
	require.NoError(t, err)
	assert.Equal(t, "old", hash)

	require.NoError(t, store.SetManifestHash("", "new"))
	require.NoError(t, store.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, data)
}
