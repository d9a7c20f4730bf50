package registry

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/herald/pkg/cmd"
)

// Platform ceilings for application commands.
const (
	MaxSlashCommands   = 100
	MaxUserContexts    = 3
	MaxMessageContexts = 3
)

// Subcommand documents one prefix-command form for help output.
type Subcommand struct {
	Trigger     string
	Description string
}

// TextSurface is the prefix/mention invocation surface.
type TextSurface struct {
	Enabled     bool
	Aliases     []string
	Usage       string
	MinArgs     int
	Subcommands []Subcommand
	Handler     cmd.Handler
}

// SlashSurface is the application command (chat input) surface.
type SlashSurface struct {
	Enabled   bool
	Ephemeral bool
	Options   []*discordgo.ApplicationCommandOption
	Handler   cmd.Handler
}

// CommandDefinition is the closed description of a command. It is validated
// once by Load and never changed afterwards.
type CommandDefinition struct {
	Name        string
	Description string
	Category    string

	// UserPermissions and BotPermissions are discordgo permission bits; any
	// missing bit denies the invocation.
	UserPermissions []int64
	BotPermissions  []int64
	Cooldown        time.Duration

	Text  TextSurface
	Slash SlashSurface

	// Component handles buttons and modals whose custom ID is "<name>:...".
	Component cmd.Handler
}

// Aliases returns the text aliases.
func (d *CommandDefinition) Aliases() []string { return d.Text.Aliases }

// ContextType is the closed set of context menu kinds.
type ContextType int

const (
	ContextUser ContextType = iota + 1
	ContextMessage
)

func (t ContextType) String() string {
	switch t {
	case ContextUser:
		return "USER"
	case ContextMessage:
		return "MESSAGE"
	default:
		return "UNKNOWN"
	}
}

// ContextMenuDefinition describes a user or message context menu entry.
type ContextMenuDefinition struct {
	Name            string
	Type            ContextType
	Enabled         bool
	UserPermissions []int64
	Cooldown        time.Duration
	Handler         cmd.Handler
}
