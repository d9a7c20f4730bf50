package registry

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateName          = errors.New("command already registered")
	ErrDuplicateAlias         = errors.New("alias already registered")
	ErrDuplicateSlash         = errors.New("slash command already registered")
	ErrDuplicateContext       = errors.New("context menu already registered")
	ErrDuplicateComponent     = errors.New("component owner already registered")
	ErrTooManySlash           = fmt.Errorf("a maximum of %d slash commands can be enabled", MaxSlashCommands)
	ErrTooManyUserContexts    = fmt.Errorf("a maximum of %d USER contexts can be enabled", MaxUserContexts)
	ErrTooManyMessageContexts = fmt.Errorf("a maximum of %d MESSAGE contexts can be enabled", MaxMessageContexts)
	ErrInvalidDefinition      = errors.New("invalid definition")
	ErrFrozen                 = errors.New("registry is frozen")
)

// LoadError is returned by Load and LoadContexts. Every LoadError is a
// packaging defect and must abort startup.
type LoadError struct {
	// Name is the offending command name, alias or context menu name.
	// Empty for capacity errors.
	Name   string
	Err    error
	Reason string
}

func (e *LoadError) Error() string {
	msg := e.Err.Error()
	if e.Name != "" {
		msg = fmt.Sprintf("%s: %q", msg, e.Name)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *LoadError) Unwrap() error { return e.Err }

func loadErr(sentinel error, name string) *LoadError {
	return &LoadError{Name: name, Err: sentinel}
}

func invalid(name, format string, args ...any) *LoadError {
	return &LoadError{Name: name, Err: ErrInvalidDefinition, Reason: fmt.Sprintf(format, args...)}
}
