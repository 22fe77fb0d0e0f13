package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// Actor identifies the authenticated staff member performing an operation.
// Services receive it explicitly instead of digging it out of ambient state.
type Actor struct {
	ID    int64
	Email string
}

// ActorFromSession resolves the acting user from a loaded session.
// The zero Actor means the request is unauthenticated.
func ActorFromSession(sess *Session) Actor {
	if sess == nil {
		return Actor{}
	}
	return Actor{ID: sess.UserID(), Email: sess.Get("email")}
}
