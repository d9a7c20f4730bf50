package registry

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxNameLength        = 32
	maxDescriptionLength = 100
)

var slashNamePattern = regexp.MustCompile(`^[-_\p{L}\p{N}]{1,32}$`)

func validateCommand(d *CommandDefinition) error {
	if d.Name == "" {
		return invalid(d.Name, "name is required")
	}
	if utf8.RuneCountInString(d.Name) > maxNameLength {
		return invalid(d.Name, "name longer than %d characters", maxNameLength)
	}
	if hasSpace(d.Name) {
		return invalid(d.Name, "name contains whitespace")
	}

	if d.Text.Enabled {
		if d.Text.Handler == nil {
			return invalid(d.Name, "text surface enabled without handler")
		}
		if d.Text.MinArgs < 0 {
			return invalid(d.Name, "negative minimum argument count")
		}
		for _, alias := range d.Text.Aliases {
			if alias == "" || hasSpace(alias) {
				return invalid(d.Name, "bad alias %q", alias)
			}
		}
	}

	if d.Slash.Enabled {
		if d.Slash.Handler == nil {
			return invalid(d.Name, "slash surface enabled without handler")
		}
		if !slashNamePattern.MatchString(d.Name) || strings.ToLower(d.Name) != d.Name {
			return invalid(d.Name, "slash names must be lower case letters, digits, - or _")
		}
		n := utf8.RuneCountInString(d.Description)
		if n == 0 || n > maxDescriptionLength {
			return invalid(d.Name, "slash description must be 1-%d characters", maxDescriptionLength)
		}
	}

	return nil
}

func validateContext(c *ContextMenuDefinition) error {
	n := utf8.RuneCountInString(c.Name)
	if n == 0 || n > maxNameLength {
		return invalid(c.Name, "context name must be 1-%d characters", maxNameLength)
	}
	if c.Type != ContextUser && c.Type != ContextMessage {
		return invalid(c.Name, "unknown context type %d", int(c.Type))
	}
	if c.Handler == nil {
		return invalid(c.Name, "context menu without handler")
	}
	return nil
}

func hasSpace(s string) bool {
	return strings.IndexFunc(s, unicode.IsSpace) >= 0
}
