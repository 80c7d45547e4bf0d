package ocra

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"regexp"
	"testing"

	"golang.org/x/crypto/hkdf"
)

var (
	testSecret = []byte("tx-42 contextual secret")
	testNonce  = bytes.Repeat([]byte{0xab}, NonceSize)
)

func TestCompute(t *testing.T) {
	digits := regexp.MustCompile(`^[0-9]{8}$`)

	t.Run("Deterministic", func(t *testing.T) {
		a, err := Compute(testSecret, testNonce, "123456")
		if err != nil {
			t.Fatalf("Compute: %v", err)
		}
		b, _ := Compute(testSecret, testNonce, "123456")
		if a != b {
			t.Fatalf("expected same response, got %s and %s", a, b)
		}
		if !digits.MatchString(a) {
			t.Fatalf("response %q is not 8 digits", a)
		}
	})

	t.Run("EveryInputMatters", func(t *testing.T) {
		base, _ := Compute(testSecret, testNonce, "123456")

		otherNonce := bytes.Repeat([]byte{0xcd}, NonceSize)
		variants := map[string]func() (string, error){
			"nonce":  func() (string, error) { return Compute(testSecret, otherNonce, "123456") },
			"secret": func() (string, error) { return Compute([]byte("tx-43 contextual secret"), testNonce, "123456") },
			"code":   func() (string, error) { return Compute(testSecret, testNonce, "654321") },
		}

		for name, fn := range variants {
			got, err := fn()
			if err != nil {
				t.Fatalf("%s: %v", name, err)
			}
			if got == base {
				t.Fatalf("changing %s did not change the response", name)
			}
		}
	})

	t.Run("MatchesDocumentedConstruction", func(t *testing.T) {
		// Arrange
		key := make([]byte, 32)
		if _, err := io.ReadFull(hkdf.New(sha256.New, testSecret, nil, []byte(Suite)), key); err != nil {
			t.Fatalf("hkdf: %v", err)
		}
		pin := sha256.Sum256([]byte("123456"))
		q := make([]byte, 128)
		copy(q, testNonce)

		var msg []byte
		msg = append(msg, []byte(Suite)...)
		msg = append(msg, 0)
		msg = append(msg, q...)
		msg = append(msg, pin[:]...)

		mac := hmac.New(sha256.New, key)
		mac.Write(msg)
		sum := mac.Sum(nil)
		off := sum[len(sum)-1] & 0x0f
		want := fmt.Sprintf("%08d", (binary.BigEndian.Uint32(sum[off:off+4])&0x7fffffff)%100000000)

		// Act
		got, err := Compute(testSecret, testNonce, "123456")

		// Assert
		if err != nil {
			t.Fatalf("Compute: %v", err)
		}
		if got != want {
			t.Fatalf("got %s, want %s", got, want)
		}
	})

	t.Run("InvalidInput", func(t *testing.T) {
		if _, err := Compute(nil, testNonce, "123456"); !errors.Is(err, ErrEmptySecret) {
			t.Fatalf("expected ErrEmptySecret, got %v", err)
		}
		if _, err := Compute(testSecret, testNonce[:16], "123456"); !errors.Is(err, ErrNonceSize) {
			t.Fatalf("expected ErrNonceSize, got %v", err)
		}
		if _, err := Compute(testSecret, testNonce, ""); !errors.Is(err, ErrEmptyCode) {
			t.Fatalf("expected ErrEmptyCode, got %v", err)
		}
	})
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		got      string
		want     bool
	}{
		{name: "Same", expected: "01234567", got: "01234567", want: true},
		{name: "Different", expected: "01234567", got: "01234568", want: false},
		{name: "Shorter", expected: "01234567", got: "0123456", want: false},
		{name: "Empty", expected: "01234567", got: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.expected, tt.got); got != tt.want {
				t.Fatalf("Equal(%q, %q) = %v, want %v", tt.expected, tt.got, got, tt.want)
			}
		})
	}
}

func TestEqualAny(t *testing.T) {
	candidates := []string{"11111111", "22222222", "33333333"}

	if !EqualAny(candidates, "33333333") {
		t.Fatalf("expected match on last candidate")
	}
	if EqualAny(candidates, "44444444") {
		t.Fatalf("expected no match")
	}
	if EqualAny(nil, "11111111") {
		t.Fatalf("expected no match for empty candidates")
	}
}
