package api

import (
	"context"

	"github.com/pathos-os/pathos/pkg/pathos"
)

// userContextKey is the context key for the authenticated user.
type userContextKey struct{}

// WithUser returns a new context with the authenticated user attached.
func WithUser(ctx context.Context, u *pathos.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, u)
}

// UserFromContext extracts the authenticated user from the context.
func UserFromContext(ctx context.Context) (*pathos.User, bool) {
	u, ok := ctx.Value(userContextKey{}).(*pathos.User)
	return u, ok && u != nil
}

// MustUserFromContext extracts the user or panics.
// Use only behind AuthMiddleware.
func MustUserFromContext(ctx context.Context) *pathos.User {
	u, ok := UserFromContext(ctx)
	if !ok {
		panic("user not in context: middleware misconfiguration")
	}
	return u
}
