// Package jwt verifies the bearer tokens guardians present after logging in.
// Tokens are minted by the login service; Generate exists for tooling and tests.
package jwt

import (
	"context"
	"errors"
	"time"

	libJWT "github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidSigningMethod = errors.New("jwt: unexpected signing method")
	ErrSigningKeyTooShort   = errors.New("jwt: HS512 key must be at least 64 bytes")
	ErrTokenExpired         = errors.New("jwt: token expired")
	ErrInvalidToken         = errors.New("jwt: invalid token")
	ErrMissingGuardian      = errors.New("jwt: token has no guardian id")
)

// JWT generates and verifies guardian tokens.
type JWT interface {
	Generate(guardianID, role string) (string, error)
	Verify(token string) (Claims, error)
}

// Claims identify the guardian behind a request. Subject always equals GuardianID.
type Claims struct {
	libJWT.RegisteredClaims
	GuardianID string `json:"gid"`
	// Role is matched against the custody policy (admin, approver, viewer).
	Role string `json:"role"`
}

// Config holds the token parameters.
type Config struct {
	Secret     []byte
	Issuer     string
	Audiences  []string
	TTLMinutes time.Duration
	Clock      interface{ Now() time.Time }
	UUID       interface{ Generate() string }
}

type authKey struct{}

// SetAuth attaches verified claims to ctx.
func SetAuth(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, authKey{}, c)
}

// GetAuth returns the claims attached by SetAuth, or nil for anonymous requests.
func GetAuth(ctx context.Context) *Claims {
	if c, ok := ctx.Value(authKey{}).(Claims); ok {
		return &c
	}
	return nil
}
