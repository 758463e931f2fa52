package auth

import "context"

type ctxKey string

const claimsKey ctxKey = "claims"

// WithClaims attaches verified claims to a request-scoped context.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFromContext returns the claims attached by the gate, or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey).(*Claims)
	return c
}
