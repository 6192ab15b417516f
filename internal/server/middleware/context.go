package middleware

import "context"

type contextKey struct{ name string }

var (
	userIDKey   = contextKey{"user_id"}
	authModeKey = contextKey{"auth_mode"}
)

// Auth modes recorded on an authenticated request, naming which verification
// branch succeeded.
const (
	ModeLocal    = "local"
	ModeExternal = "external"
)

// WithIdentity returns a context carrying the authenticated user id and the
// auth mode. Handlers read these via UserID and AuthMode.
func WithIdentity(ctx context.Context, userID, mode string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, authModeKey, mode)
	return ctx
}

// UserID returns the authenticated user id from context and true if set.
func UserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	return v, ok
}

// AuthMode returns the auth mode from context and true if set.
func AuthMode(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(authModeKey).(string)
	return v, ok
}
