package otp

import (
	"errors"
	"testing"
	"time"

	"github.com/pquerna/otp"
)

// RFC 6238 appendix B seed "12345678901234567890" in base32.
const rfcSeed = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestGenerateCode(t *testing.T) {
	o := NewTOTP(30, 1, otp.DigitsEight)

	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{name: "59", at: time.Unix(59, 0).UTC(), want: "94287082"},
		{name: "1111111109", at: time.Unix(1111111109, 0).UTC(), want: "07081804"},
		{name: "1234567890", at: time.Unix(1234567890, 0).UTC(), want: "89005924"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := o.GenerateCode(rfcSeed, tt.at)
			if err != nil {
				t.Fatalf("GenerateCode: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGenerateCodeAtOffset(t *testing.T) {
	o := NewTOTP(30, 1, otp.DigitsSix)
	at := time.Unix(1_700_000_015, 0).UTC()

	prev, err := o.GenerateCodeAt(rfcSeed, at, -1)
	if err != nil {
		t.Fatalf("GenerateCodeAt(-1): %v", err)
	}
	want, _ := o.GenerateCode(rfcSeed, at.Add(-30*time.Second))
	if prev != want {
		t.Fatalf("offset -1 got %s, want %s", prev, want)
	}

	next, _ := o.GenerateCodeAt(rfcSeed, at, 1)
	want, _ = o.GenerateCode(rfcSeed, at.Add(30*time.Second))
	if next != want {
		t.Fatalf("offset +1 got %s, want %s", next, want)
	}
}

func TestDefaults(t *testing.T) {
	o := NewTOTP(0, 0, otp.Digits(7))

	if o.Period() != 30*time.Second {
		t.Fatalf("expected 30s period, got %v", o.Period())
	}
	if o.Skew() != 0 {
		t.Fatalf("expected skew 0, got %d", o.Skew())
	}

	code, err := o.GenerateCode(rfcSeed, time.Unix(59, 0))
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected fallback to 6 digits, got %q", code)
	}
}

func TestEmptySecret(t *testing.T) {
	_, err := NewTOTP(30, 1, otp.DigitsSix).GenerateCode("", time.Now())
	if !errors.Is(err, ErrEmptySecret) {
		t.Fatalf("expected ErrEmptySecret, got %v", err)
	}
}
