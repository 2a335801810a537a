package session

import (
	"context"

	"github.com/google/uuid"
)

type contextKey struct{}

// WithUser returns a context carrying the acting user's id.
func WithUser(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserFromContext returns the acting user, if the request is authenticated.
func UserFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(contextKey{}).(int64)
	return id, ok && id > 0
}

// Store maps opaque session tokens to user ids.
type Store interface {
	// Create starts a session for userID and returns its token.
	Create(ctx context.Context, userID int64) (string, error)
	// Lookup resolves a token. Unknown or expired tokens report ok=false
	// with a nil error.
	Lookup(ctx context.Context, token string) (userID int64, ok bool, err error)
	// Destroy ends a session. Destroying an unknown token is not an error.
	Destroy(ctx context.Context, token string) error
}

func newToken() string {
	return uuid.NewString()
}
