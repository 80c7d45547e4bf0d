package jwt

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/gocustody/internal/pkg/clock"
)

type fixedID string

func (f fixedID) Generate() string { return string(f) }

func newTestJWT(t *testing.T, clk *clock.Manual) *HS512 {
	t.Helper()

	j, err := NewHS512(Config{
		Secret:     []byte(strings.Repeat("k", 64)),
		Issuer:     "custody-login",
		Audiences:  []string{"gocustody"},
		TTLMinutes: 15 * time.Minute,
		Clock:      clk,
		UUID:       fixedID("jti-1"),
	})
	if err != nil {
		t.Fatalf("NewHS512: %v", err)
	}
	return j
}

func TestHS512(t *testing.T) {
	clk := clock.NewManual(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	j := newTestJWT(t, clk)

	t.Run("RoundTrip", func(t *testing.T) {
		tok, err := j.Generate("cfo-1", "approver")
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}

		clm, err := j.Verify(tok)
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if clm.GuardianID != "cfo-1" || clm.Role != "approver" || clm.ID != "jti-1" {
			t.Fatalf("unexpected claims: %+v", clm)
		}
	})

	t.Run("Expired", func(t *testing.T) {
		tok, _ := j.Generate("cfo-1", "approver")
		later := newTestJWT(t, clock.NewManual(clk.Now().Add(16*time.Minute)))

		if _, err := later.Verify(tok); !errors.Is(err, ErrTokenExpired) {
			t.Fatalf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("WrongSecret", func(t *testing.T) {
		tok, _ := j.Generate("cfo-1", "approver")
		other, _ := NewHS512(Config{
			Secret:    []byte(strings.Repeat("x", 64)),
			Issuer:    "custody-login",
			Audiences: []string{"gocustody"},
			Clock:     clk,
			UUID:      fixedID("jti-2"),
		})

		if _, err := other.Verify(tok); err == nil {
			t.Fatalf("expected verification failure")
		}
	})

	t.Run("MissingGuardian", func(t *testing.T) {
		if _, err := j.Generate("", "approver"); !errors.Is(err, ErrMissingGuardian) {
			t.Fatalf("expected ErrMissingGuardian, got %v", err)
		}
	})

	t.Run("ShortSecret", func(t *testing.T) {
		if _, err := NewHS512(Config{Secret: []byte("short")}); !errors.Is(err, ErrSigningKeyTooShort) {
			t.Fatalf("expected ErrSigningKeyTooShort, got %v", err)
		}
	})
}

func TestAuthContext(t *testing.T) {
	ctx := context.Background()
	if GetAuth(ctx) != nil {
		t.Fatalf("expected no claims")
	}

	ctx = SetAuth(ctx, Claims{GuardianID: "cfo-1"})
	if clm := GetAuth(ctx); clm == nil || clm.GuardianID != "cfo-1" {
		t.Fatalf("unexpected claims: %+v", clm)
	}
}

func TestHS512_RejectsForeignClaims(t *testing.T) {
	clk := clock.NewManual(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	j := newTestJWT(t, clk)

	otherAudience, err := NewHS512(Config{
		Secret:     []byte(strings.Repeat("k", 64)),
		Issuer:     "custody-login",
		Audiences:  []string{"treasury"},
		TTLMinutes: 15 * time.Minute,
		Clock:      clk,
		UUID:       fixedID("jti-3"),
	})
	if err != nil {
		t.Fatalf("NewHS512: %v", err)
	}

	tok, err := otherAudience.Generate("cfo-1", "approver")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if _, err := j.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := j.Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}
