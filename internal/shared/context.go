package shared

import "context"

// Claims is the identity carried by a verified session token.
type Claims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	RoleID   int64  `json:"role_id"`
}

type claimsContextKey struct{}

// ContextWithClaims stores the caller identity in context.
func ContextWithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext extracts the caller identity from context.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(Claims)
	return claims, ok
}
