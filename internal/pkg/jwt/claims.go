package jwt

import (
	"context"

	libJWT "github.com/golang-jwt/jwt/v5"
)

// Claims are the registered claims plus the session's string values.
type Claims struct {
	libJWT.RegisteredClaims
	Values map[string]string `json:"val,omitempty"`
}

func (c Claims) Value(key string) string {
	return c.Values[key]
}

type authKey struct{}

// SetAuth returns a copy of ctx carrying clm.
func SetAuth(ctx context.Context, clm Claims) context.Context {
	return context.WithValue(ctx, authKey{}, clm)
}

// GetAuth returns the claims put there by SetAuth, or nil.
func GetAuth(ctx context.Context) *Claims {
	if clm, ok := ctx.Value(authKey{}).(Claims); ok {
		return &clm
	}
	return nil
}
