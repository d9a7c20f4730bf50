package discord

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInvocation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		cmd     string
		args    []string
		ok      bool
	}{
		{"prefix", "!ping", "ping", []string{}, true},
		{"prefix with args", "!help   prefix  now", "help", []string{"prefix", "now"}, true},
		{"mention", "<@42> help", "help", []string{}, true},
		{"nick mention", "<@!42> Help x", "Help", []string{"x"}, true},
		{"no prefix", "ping", "", nil, false},
		{"prefix only", "!   ", "", nil, false},
		{"other mention", "<@43> help", "", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, args, ok := parseInvocation(tt.content, "!", "42")
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.cmd, name)
			assert.Equal(t, len(tt.args), len(args))
			for i := range tt.args {
				assert.Equal(t, tt.args[i], args[i])
			}
		})
	}
}

func TestHashManifest(t *testing.T) {
	perm := int64(discordgo.PermissionManageGuild)
	a := &discordgo.ApplicationCommand{Name: "a", Description: "first", Type: discordgo.ChatApplicationCommand}
	b := &discordgo.ApplicationCommand{Name: "b", Type: discordgo.UserApplicationCommand}

	h1 := hashManifest([]*discordgo.ApplicationCommand{a, b})
	assert.Equal(t, h1, hashManifest([]*discordgo.ApplicationCommand{b, a}), "command order is irrelevant")
	assert.Len(t, h1, 40)

	changed := *a
	changed.DefaultMemberPermissions = &perm
	assert.NotEqual(t, h1, hashManifest([]*discordgo.ApplicationCommand{&changed, b}))

	withOpt := *a
	withOpt.Options = []*discordgo.ApplicationCommandOption{
		{Name: "x", Description: "x", Type: discordgo.ApplicationCommandOptionString},
		{Name: "y", Description: "y", Type: discordgo.ApplicationCommandOptionString},
	}
	swapped := *a
	swapped.Options = []*discordgo.ApplicationCommandOption{withOpt.Options[1], withOpt.Options[0]}
	assert.NotEqual(t, hashManifest([]*discordgo.ApplicationCommand{&withOpt}), hashManifest([]*discordgo.ApplicationCommand{&swapped}))

	// runtime fields are ignored
	withID := *a
	withID.ID = "123"
	withID.Version = "9"
	assert.Equal(t, h1, hashManifest([]*discordgo.ApplicationCommand{&withID, b}))
}

func TestSlashArgs(t *testing.T) {
	opts := []*discordgo.ApplicationCommandInteractionDataOption{{
		Name: "setup",
		Type: discordgo.ApplicationCommandOptionSubCommand,
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: "channel", Type: discordgo.ApplicationCommandOptionChannel, Value: "555"},
		},
	}}
	assert.Equal(t, []string{"setup", "555"}, slashArgs(opts))
}

func TestModalValues(t *testing.T) {
	rows := []discordgo.MessageComponent{
		&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			&discordgo.TextInput{CustomID: "title", Value: "  Hello "},
		}},
		&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			&discordgo.TextInput{CustomID: "footer", Value: ""},
		}},
	}
	assert.Equal(t, map[string]string{"title": "Hello", "footer": ""}, modalValues(rows))
}

func TestPresenceMessage(t *testing.T) {
	assert.Equal(t, "10 members in 2 servers", presenceMessage("{members} members in {servers} servers", 10, 2))
	assert.Equal(t, discordgo.ActivityTypeListening, activityType("listening"))
	assert.Equal(t, discordgo.ActivityTypeWatching, activityType("unknown"))
}

func TestGuildTotals(t *testing.T) {
	state := discordgo.NewState()
	require.NoError(t, state.GuildAdd(&discordgo.Guild{ID: "1", MemberCount: 5}))
	require.NoError(t, state.GuildAdd(&discordgo.Guild{ID: "2", MemberCount: 7}))

	members, servers := guildTotals(state)
	assert.Equal(t, 12, members)
	assert.Equal(t, 2, servers)
}

func TestParseWebhookURL(t *testing.T) {
	w, err := parseWebhookURL("https://discord.com/api/webhooks/123/abc-DEF")
	require.NoError(t, err)
	assert.Equal(t, "123", w.ID)
	assert.Equal(t, "abc-DEF", w.Token)

	w, err = parseWebhookURL("https://discordapp.com/api/v10/webhooks/9/tok/")
	require.NoError(t, err)
	assert.Equal(t, "9", w.ID)

	for _, bad := range []string{"", "ftp://discord.com/api/webhooks/1/2", "https://discord.com/api/webhooks/1", "::"} {
		_, err := parseWebhookURL(bad)
		assert.Error(t, err, bad)
	}
}

func TestJoinLeaveEmbed(t *testing.T) {
	g := &discordgo.Guild{ID: "1", Name: "Test", MemberCount: 3}
	e := joinLeaveEmbed(g, true, 0x00ff00, 0xff0000)
	assert.Equal(t, "Guild Joined", e.Title)
	assert.Equal(t, 0x00ff00, e.Color)
	assert.Nil(t, e.Thumbnail)

	e = joinLeaveEmbed(g, false, 0x00ff00, 0xff0000)
	assert.Equal(t, "Guild Left", e.Title)
	assert.Equal(t, 0xff0000, e.Color)
}

func TestIsNewJoin(t *testing.T) {
	start := time.Now()
	assert.True(t, isNewJoin(&discordgo.Guild{JoinedAt: start.Add(time.Second)}, start))
	assert.False(t, isNewJoin(&discordgo.Guild{JoinedAt: start.Add(-time.Hour)}, start))
	assert.False(t, isNewJoin(&discordgo.Guild{}, start))
	assert.False(t, isNewJoin(nil, start))
}

func TestResolveUsers(t *testing.T) {
	alice := &discordgo.User{ID: "100000000000000001", Username: "alice", Discriminator: "0"}
	alicia := &discordgo.User{ID: "100000000000000002", Username: "Alicia", Discriminator: "0"}
	bob := &discordgo.User{ID: "100000000000000003", Username: "bob", Discriminator: "0"}

	state := discordgo.NewState()
	require.NoError(t, state.GuildAdd(&discordgo.Guild{ID: "1", Members: []*discordgo.Member{
		{GuildID: "1", User: alice}, {GuildID: "1", User: alicia},
	}}))
	require.NoError(t, state.GuildAdd(&discordgo.Guild{ID: "2", Members: []*discordgo.Member{
		{GuildID: "2", User: alice}, {GuildID: "2", User: bob},
	}}))

	fetched := &discordgo.User{ID: "123456789012345678", Username: "remote"}
	fetch := func(id string) (*discordgo.User, error) {
		if id == fetched.ID {
			return fetched, nil
		}
		return nil, errors.New("unknown user")
	}

	users := ResolveUsers(state, fetch, "<@123456789012345678>", false)
	require.Len(t, users, 1)
	assert.Equal(t, "remote", users[0].Username)

	users = ResolveUsers(state, fetch, "alice", true)
	require.Len(t, users, 1)
	assert.Equal(t, alice.ID, users[0].ID)

	users = ResolveUsers(state, fetch, "ali", false)
	assert.Len(t, users, 2, "substring matches without duplicates")

	assert.Empty(t, ResolveUsers(state, fetch, "ali", true))
	assert.Empty(t, ResolveUsers(state, fetch, "   ", false))

	c := &MessageContext{base: base{Session: &discordgo.Session{State: state}}}
	users = c.ResolveUsers("bo", false)
	require.Len(t, users, 1, "contexts resolve against their session state")
	assert.Equal(t, bob.ID, users[0].ID)
}

func TestInviteURL(t *testing.T) {
	u := InviteURL("42")
	assert.True(t, strings.HasPrefix(u, "https://discord.com/oauth2/authorize?"))
	assert.Contains(t, u, "client_id=42")
	assert.Contains(t, u, "scope=bot+applications.commands")
	assert.NotZero(t, InvitePermissions&int64(discordgo.PermissionManageGuild))
}

func TestEventBus(t *testing.T) {
	bus := NewEventBus(1)
	assert.True(t, bus.Publish(SystemEvent{Type: SystemEventRefreshCommands, GuildID: "1"}))
	assert.False(t, bus.Publish(SystemEvent{Type: SystemEventRefreshCommands, GuildID: "2"}), "full bus drops")

	evt := <-bus.Events()
	assert.Equal(t, "1", evt.GuildID)
}

func TestRenderEventsTable(t *testing.T) {
	out := renderEventsTable([]string{"ready", "messageCreate"})
	assert.Contains(t, out, "Client Events")
	assert.Contains(t, out, "ready")
	assert.Contains(t, out, "messageCreate")
}

func TestMissingPermissions(t *testing.T) {
	manage := int64(discordgo.PermissionManageGuild)
	send := int64(discordgo.PermissionSendMessages)
	admin := int64(discordgo.PermissionAdministrator)

	assert.Empty(t, MissingPermissions(manage|send, []int64{manage, send}))
	assert.Equal(t, []int64{manage}, MissingPermissions(send, []int64{manage, send, manage}))
	assert.Empty(t, MissingPermissions(admin, []int64{manage}))
	assert.Equal(t, "`Manage Server`, `Send Messages`", FormatPermissions([]int64{manage, send}))
	assert.Equal(t, "0x0", PermissionName(0))
}

func TestWithStatus(t *testing.T) {
	restErr := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusTooManyRequests}}
	err := withStatus(restErr)
	assert.ErrorIs(t, err, restErr)

	var se interface{ StatusCode() int }
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode())

	assert.NoError(t, withStatus(nil))
	plain := errors.New("x")
	assert.Equal(t, plain, withStatus(plain))
}
