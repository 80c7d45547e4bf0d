package seal

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

var testKey = bytes.Repeat([]byte{7}, 32)

func TestAESGCMEncryptor(t *testing.T) {
	enc := NewAESGCMEncryptor(StaticKeyProvider{KeyBytes: testKey})
	scope := Scope{Subject: "cfo-1", Purpose: PurposeTOTPSeed}

	t.Run("RoundTrip", func(t *testing.T) {
		ct, err := enc.Encrypt([]byte("JBSWY3DPEHPK3PXP"), scope)
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}

		pt, err := enc.Decrypt(ct, scope)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if string(pt) != "JBSWY3DPEHPK3PXP" {
			t.Fatalf("got %q", pt)
		}
	})

	t.Run("ScopeIsBound", func(t *testing.T) {
		ct, _ := enc.Encrypt([]byte("secret"), scope)

		others := []Scope{
			{Subject: "cfo-2", Purpose: PurposeTOTPSeed},
			{Subject: "cfo-1", Purpose: PurposeContextualSecret},
		}
		for _, s := range others {
			if _, err := enc.Decrypt(ct, s); !errors.Is(err, ErrDecryptFailed) {
				t.Fatalf("scope %+v: expected ErrDecryptFailed, got %v", s, err)
			}
		}
	})

	t.Run("Tampered", func(t *testing.T) {
		ct, _ := enc.Encrypt([]byte("secret"), scope)
		ct[len(ct)-1] ^= 0xff
		if _, err := enc.Decrypt(ct, scope); !errors.Is(err, ErrDecryptFailed) {
			t.Fatalf("expected ErrDecryptFailed, got %v", err)
		}
	})

	t.Run("FreshNonce", func(t *testing.T) {
		a, _ := enc.Encrypt([]byte("secret"), scope)
		b, _ := enc.Encrypt([]byte("secret"), scope)
		if bytes.Equal(a, b) {
			t.Fatalf("two encryptions produced identical ciphertext")
		}
	})

	t.Run("Errors", func(t *testing.T) {
		if _, err := enc.Encrypt(nil, scope); !errors.Is(err, ErrPlaintextEmpty) {
			t.Fatalf("expected ErrPlaintextEmpty, got %v", err)
		}
		if _, err := enc.Decrypt([]byte{0, 1}, scope); !errors.Is(err, ErrCiphertextTooShort) {
			t.Fatalf("expected ErrCiphertextTooShort, got %v", err)
		}
		var nilEnc *AESGCMEncryptor
		if _, err := nilEnc.Encrypt([]byte("x"), scope); !errors.Is(err, ErrEncryptorNotConfigured) {
			t.Fatalf("expected ErrEncryptorNotConfigured, got %v", err)
		}
	})
}

func TestNewStaticKeyProvider(t *testing.T) {
	if _, err := NewStaticKeyProvider(base64.StdEncoding.EncodeToString(testKey)); err != nil {
		t.Fatalf("valid key rejected: %v", err)
	}
	if _, err := NewStaticKeyProvider(base64.StdEncoding.EncodeToString(testKey[:16])); !errors.Is(err, ErrInvalidKeyLength) {
		t.Fatalf("expected ErrInvalidKeyLength, got %v", err)
	}
	if _, err := NewStaticKeyProvider("%%%"); err == nil {
		t.Fatalf("expected decode error")
	}
}
