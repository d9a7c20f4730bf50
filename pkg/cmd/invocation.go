// Package cmd provides a transport-agnostic command core: a handler is something
// that runs with a context and an Invocation. How it is registered and
// dispatched (Discord prefix, slash, context menu, CLI) is defined by adapters.
package cmd

import "context"

// Invocation carries the minimal input any adapter can pass: the invoked
// name, parsed arguments and an opaque payload. Adapters set Data to their own
// context (e.g. a Discord message or interaction context).
type Invocation struct {
	Name string
	Args []string
	Data any
}

// Arg returns the i-th argument or an empty string.
func (inv *Invocation) Arg(i int) string {
	if inv == nil || i < 0 || i >= len(inv.Args) {
		return ""
	}
	return inv.Args[i]
}

// Handler runs an invocation.
type Handler interface {
	Run(ctx context.Context, inv *Invocation) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, inv *Invocation) error

// Run calls f.
func (f HandlerFunc) Run(ctx context.Context, inv *Invocation) error {
	return f(ctx, inv)
}
