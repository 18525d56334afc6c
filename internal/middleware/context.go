package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"saasbackend/internal/rbac"
	"saasbackend/internal/token"
)

type principalKey struct{}
type claimsKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p rbac.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by the guard.
func PrincipalFromContext(ctx context.Context) (rbac.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(rbac.Principal)
	return p, ok
}

// ClaimsFromContext returns the verified token claims stored by the guard.
// The returned value is a copy.
func ClaimsFromContext(ctx context.Context) (token.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(token.Claims)
	return c, ok
}

func withClaims(ctx context.Context, c token.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// CurrentPrincipal is PrincipalFromContext for gin handlers.
func CurrentPrincipal(c *gin.Context) (rbac.Principal, bool) {
	return PrincipalFromContext(c.Request.Context())
}
