// internal/domain/session/probe.go
package session

import "context"

// Identity is a signed-in shopper.
type Identity struct {
	ID    string
	Email string
}

// Probe answers "is there a signed-in identity right now".
//
// Implementations must be side-effect free and cheap enough to call before
// every cart mutation. The cart store treats a nil -> non-nil transition
// between two calls as a login event.
type Probe interface {
	CurrentIdentity(ctx context.Context) *Identity
}

type ctxKey struct{ name string }

var ctxKeyIdentity = ctxKey{name: "currentIdentity"}

// WithIdentity stashes a verified identity in the request context.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	if id == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

// FromContext returns the identity stashed by the auth middleware, or nil.
func FromContext(ctx context.Context) *Identity {
	if v, ok := ctx.Value(ctxKeyIdentity).(*Identity); ok {
		return v
	}
	return nil
}

// ContextProbe resolves the identity from the per-request context. It is the
// production Probe: the auth middleware verifies the bearer token once per
// request and stashes the result; the probe itself performs no I/O.
type ContextProbe struct{}

func (ContextProbe) CurrentIdentity(ctx context.Context) *Identity {
	return FromContext(ctx)
}
