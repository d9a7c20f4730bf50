// Package registry holds the command and context menu tables the bot
// dispatches from. It is populated once at startup, frozen, and then read
// concurrently without locking.
package registry

import (
	"maps"
	"slices"
	"strings"

	"github.com/rs/zerolog"
)

// Registry maps invocation text to command definitions and interaction names
// to interaction-enabled commands and context menus.
type Registry struct {
	log            zerolog.Logger
	categoryActive func(category string) bool
	frozen         bool

	commands []*CommandDefinition // text-enabled, insertion order
	index    map[string]int       // lower-cased name or alias -> commands position

	slash      map[string]*CommandDefinition
	slashOrder []*CommandDefinition

	contexts     map[string]*ContextMenuDefinition
	contextOrder []*ContextMenuDefinition

	components map[string]*CommandDefinition
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for skip notices.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// WithCategoryFilter sets the predicate deciding whether a category is
// administratively enabled. Definitions in disabled categories are skipped.
func WithCategoryFilter(active func(category string) bool) Option {
	return func(r *Registry) { r.categoryActive = active }
}

// New returns an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		log:        zerolog.Nop(),
		index:      make(map[string]int),
		slash:      make(map[string]*CommandDefinition),
		contexts:   make(map[string]*ContextMenuDefinition),
		components: make(map[string]*CommandDefinition),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Freeze makes the registry read-only. Later Load and LoadContexts calls fail
// with ErrFrozen.
func (r *Registry) Freeze() { r.frozen = true }

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool { return r.frozen }

// Load registers command definitions in order. Any duplicate name, alias or
// slash name, any invalid definition, or more than MaxSlashCommands slash
// commands in total yields a *LoadError and leaves the registry unchanged.
func (r *Registry) Load(defs []CommandDefinition) error {
	if r.frozen {
		return loadErr(ErrFrozen, "")
	}

	commands := slices.Clone(r.commands)
	index := maps.Clone(r.index)
	slash := maps.Clone(r.slash)
	slashOrder := slices.Clone(r.slashOrder)
	components := maps.Clone(r.components)

	for i := range defs {
		d := cloneDefinition(&defs[i])

		if d.Category != "" && r.categoryActive != nil && !r.categoryActive(d.Category) {
			r.log.Debug().Str("command", d.Name).Str("category", d.Category).Msg("Skipping command, category is disabled")
			continue
		}
		if err := validateCommand(d); err != nil {
			return err
		}

		loaded := false

		if d.Text.Enabled {
			name := strings.ToLower(d.Name)
			if _, ok := index[name]; ok {
				return loadErr(ErrDuplicateName, d.Name)
			}
			pos := len(commands)
			index[name] = pos
			for _, alias := range d.Text.Aliases {
				key := strings.ToLower(alias)
				if _, ok := index[key]; ok {
					return loadErr(ErrDuplicateAlias, alias)
				}
				index[key] = pos
			}
			commands = append(commands, d)
			loaded = true
		} else {
			r.log.Debug().Str("command", d.Name).Msg("Skipping text command, disabled")
		}

		if d.Slash.Enabled {
			name := strings.ToLower(d.Name)
			if _, ok := slash[name]; ok {
				return loadErr(ErrDuplicateSlash, d.Name)
			}
			slash[name] = d
			slashOrder = append(slashOrder, d)
			loaded = true
		} else {
			r.log.Debug().Str("command", d.Name).Msg("Skipping slash command, disabled")
		}

		if loaded && d.Component != nil {
			key := strings.ToLower(d.Name)
			if _, ok := components[key]; ok {
				return loadErr(ErrDuplicateComponent, d.Name)
			}
			components[key] = d
		}
	}

	if len(slash) > MaxSlashCommands {
		return loadErr(ErrTooManySlash, "")
	}

	r.commands, r.index = commands, index
	r.slash, r.slashOrder = slash, slashOrder
	r.components = components
	return nil
}

// LoadContexts registers context menus. Disabled entries are skipped. A
// duplicate name, an invalid entry, or more than three USER or three MESSAGE
// menus yields a *LoadError and leaves the registry unchanged.
func (r *Registry) LoadContexts(defs []ContextMenuDefinition) error {
	if r.frozen {
		return loadErr(ErrFrozen, "")
	}

	contexts := maps.Clone(r.contexts)
	order := slices.Clone(r.contextOrder)

	for i := range defs {
		c := defs[i]
		if !c.Enabled {
			r.log.Debug().Str("context", c.Name).Msg("Skipping context, disabled")
			continue
		}
		if err := validateContext(&c); err != nil {
			return err
		}
		if _, ok := contexts[c.Name]; ok {
			return loadErr(ErrDuplicateContext, c.Name)
		}
		c.UserPermissions = slices.Clone(c.UserPermissions)
		contexts[c.Name] = &c
		order = append(order, &c)
	}

	users, messages := countContexts(order)
	if users > MaxUserContexts {
		return loadErr(ErrTooManyUserContexts, "")
	}
	if messages > MaxMessageContexts {
		return loadErr(ErrTooManyMessageContexts, "")
	}

	r.contexts, r.contextOrder = contexts, order
	return nil
}

// Lookup finds a text command by name or alias, ignoring case.
func (r *Registry) Lookup(invoke string) (*CommandDefinition, bool) {
	pos, ok := r.index[strings.ToLower(invoke)]
	if !ok {
		return nil, false
	}
	return r.commands[pos], true
}

// SlashCommand finds an interaction-enabled command by name.
func (r *Registry) SlashCommand(name string) (*CommandDefinition, bool) {
	d, ok := r.slash[strings.ToLower(name)]
	return d, ok
}

// Context finds an enabled context menu by its exact name.
func (r *Registry) Context(name string) (*ContextMenuDefinition, bool) {
	c, ok := r.contexts[name]
	return c, ok
}

// Component finds the command owning a component custom ID of the form
// "<name>:<action>...".
func (r *Registry) Component(customID string) (*CommandDefinition, bool) {
	owner, _, _ := strings.Cut(customID, ":")
	d, ok := r.components[strings.ToLower(owner)]
	return d, ok
}

// Commands returns text-enabled commands in registration order.
func (r *Registry) Commands() []*CommandDefinition { return slices.Clone(r.commands) }

// SlashCommands returns interaction-enabled commands in registration order.
func (r *Registry) SlashCommands() []*CommandDefinition { return slices.Clone(r.slashOrder) }

// Contexts returns enabled context menus in registration order.
func (r *Registry) Contexts() []*ContextMenuDefinition { return slices.Clone(r.contextOrder) }

// All returns every loaded command once, text commands first, then slash-only
// commands, each in registration order.
func (r *Registry) All() []*CommandDefinition {
	out := slices.Clone(r.commands)
	for _, d := range r.slashOrder {
		if !d.Text.Enabled {
			out = append(out, d)
		}
	}
	return out
}

// Stats summarizes the registry for startup logging.
type Stats struct {
	Text, Slash, UserContexts, MessageContexts int
}

func (r *Registry) Stats() Stats {
	users, messages := countContexts(r.contextOrder)
	return Stats{
		Text:            len(r.commands),
		Slash:           len(r.slashOrder),
		UserContexts:    users,
		MessageContexts: messages,
	}
}

func countContexts(cs []*ContextMenuDefinition) (users, messages int) {
	for _, c := range cs {
		switch c.Type {
		case ContextUser:
			users++
		case ContextMessage:
			messages++
		}
	}
	return users, messages
}

func cloneDefinition(src *CommandDefinition) *CommandDefinition {
	d := *src
	d.UserPermissions = slices.Clone(src.UserPermissions)
	d.BotPermissions = slices.Clone(src.BotPermissions)
	d.Text.Aliases = slices.Clone(src.Text.Aliases)
	d.Text.Subcommands = slices.Clone(src.Text.Subcommands)
	d.Slash.Options = slices.Clone(src.Slash.Options)
	return &d
}
