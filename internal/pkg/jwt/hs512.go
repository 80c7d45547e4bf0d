package jwt

import (
	"errors"

	libJWT "github.com/golang-jwt/jwt/v5"
)

const minHS512Key = 64

// HS512 signs and verifies tokens with a shared HMAC-SHA512 key.
type HS512 struct {
	cfg    Config
	parser *libJWT.Parser
}

// NewHS512 validates the key length and prepares a parser bound to the issuer and audiences.
func NewHS512(cfg Config) (*HS512, error) {
	if len(cfg.Secret) < minHS512Key {
		return nil, ErrSigningKeyTooShort
	}

	opts := []libJWT.ParserOption{
		libJWT.WithValidMethods([]string{libJWT.SigningMethodHS512.Alg()}),
		libJWT.WithIssuer(cfg.Issuer),
		libJWT.WithIssuedAt(),
		libJWT.WithExpirationRequired(),
	}
	if len(cfg.Audiences) > 0 {
		opts = append(opts, libJWT.WithAudience(cfg.Audiences...))
	}
	if cfg.Clock != nil {
		opts = append(opts, libJWT.WithTimeFunc(cfg.Clock.Now))
	}

	return &HS512{cfg: cfg, parser: libJWT.NewParser(opts...)}, nil
}

func (h *HS512) Generate(guardianID, role string) (string, error) {
	if guardianID == "" {
		return "", ErrMissingGuardian
	}

	issued := h.cfg.Clock.Now()
	reg := libJWT.RegisteredClaims{
		ID:        h.cfg.UUID.Generate(),
		Subject:   guardianID,
		Issuer:    h.cfg.Issuer,
		Audience:  h.cfg.Audiences,
		IssuedAt:  libJWT.NewNumericDate(issued),
		NotBefore: libJWT.NewNumericDate(issued),
		ExpiresAt: libJWT.NewNumericDate(issued.Add(h.cfg.TTLMinutes)),
	}

	tok := libJWT.NewWithClaims(libJWT.SigningMethodHS512, Claims{RegisteredClaims: reg, GuardianID: guardianID, Role: role})
	return tok.SignedString(h.cfg.Secret)
}

func (h *HS512) Verify(token string) (Claims, error) {
	var c Claims

	_, err := h.parser.ParseWithClaims(token, &c, h.key)
	switch {
	case errors.Is(err, libJWT.ErrTokenExpired):
		return Claims{}, ErrTokenExpired
	case errors.Is(err, ErrInvalidSigningMethod):
		return Claims{}, ErrInvalidSigningMethod
	case err != nil:
		return Claims{}, errors.Join(ErrInvalidToken, err)
	}

	if c.GuardianID == "" || c.GuardianID != c.Subject {
		return Claims{}, ErrMissingGuardian
	}
	return c, nil
}

func (h *HS512) key(t *libJWT.Token) (any, error) {
	if _, ok := t.Method.(*libJWT.SigningMethodHMAC); !ok {
		return nil, ErrInvalidSigningMethod
	}
	return h.cfg.Secret, nil
}
