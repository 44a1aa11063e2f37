// Package requestctx carries request-scoped identity through context.Context.
package requestctx

import (
	"context"

	"github.com/bradleygolden/userapi/internal/models"
)

// principalContextKey is the context key for the authenticated user.
type principalContextKey struct{}

// WithPrincipal stores the authenticated user in ctx.
func WithPrincipal(ctx context.Context, user models.User) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, principalContextKey{}, user)
}

// PrincipalFromContext returns the authenticated user stored in ctx.
func PrincipalFromContext(ctx context.Context) (models.User, bool) {
	if ctx == nil {
		return models.User{}, false
	}
	user, ok := ctx.Value(principalContextKey{}).(models.User)
	return user, ok
}

// PrincipalID returns the authenticated user's ID, or nil when the request is anonymous.
func PrincipalID(ctx context.Context) *int64 {
	user, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil
	}
	id := user.ID
	return &id
}
