package cmd

// Middleware wraps a handler (e.g. logging, permission check, cooldown).
type Middleware func(Handler) Handler

// Apply applies middlewares in order; the first in the list is the outermost.
func Apply(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}

// Chain composes middlewares into one, keeping Apply's ordering.
func Chain(mws ...Middleware) Middleware {
	return func(h Handler) Handler {
		return Apply(h, mws...)
	}
}
