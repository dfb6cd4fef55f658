// ABOUTME: Authentication context for tracking identity through request handling
// ABOUTME: Provides WithAuth/FromContext for propagating auth info via context

package auth

import (
	"context"
)

// AuthContext holds the authenticated identity extracted from a request.
// It is populated by the HTTP middleware before any transport logic runs
// and travels on the request context from there on.
type AuthContext struct {
	ClientID string   // stable identifier of the calling client ("sub" claim)
	TenantID string   // tenant the client belongs to ("tid" claim), may be empty
	Scopes   []string // granted scopes ("scope" claim, space-separated)
}

// authContextKey is the key type for storing AuthContext in context.Context.
type authContextKey struct{}

// WithAuth returns a new context with the AuthContext attached.
func WithAuth(ctx context.Context, auth *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, auth)
}

// FromContext retrieves the AuthContext from the context, returning nil if
// not present. Requests on an unauthenticated server carry none.
func FromContext(ctx context.Context) *AuthContext {
	val := ctx.Value(authContextKey{})
	if val == nil {
		return nil
	}
	auth, ok := val.(*AuthContext)
	if !ok {
		return nil
	}
	return auth
}
