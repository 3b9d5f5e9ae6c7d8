package sqlsession

import "context"

type key int

const (
	sessionKey key = iota
)

// ContextWithSession adds a session to a context.
func ContextWithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext returns a session from a context, or nil if the
// context does not contain one.
func SessionFromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionKey).(*Session); ok {
		return s
	}
	return nil
}
