package ocra

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// Suite names the construction and is mixed into both key and message.
	Suite = "OCRA-1:HOTP-SHA256-8:QH64-PSHA256"
	// Digits is the length of a response.
	Digits = 8
	// NonceSize is the challenge length in bytes (QH64: 64 hex characters).
	NonceSize = 32

	challengeBlock = 128
	keySize        = 32
)

var (
	// ErrEmptySecret indicates a missing contextual secret.
	ErrEmptySecret = errors.New("ocra: contextual secret is empty")
	// ErrNonceSize indicates a nonce that is not NonceSize bytes.
	ErrNonceSize = errors.New("ocra: invalid nonce size")
	// ErrEmptyCode indicates a missing TOTP code.
	ErrEmptyCode = errors.New("ocra: totp code is empty")
)

const modulo uint32 = 100_000_000 // 10^Digits

// Responder computes responses under one contextual secret.
type Responder struct {
	key []byte
}

// NewResponder derives the response key from a transaction's contextual secret.
func NewResponder(contextualSecret []byte) (*Responder, error) {
	if len(contextualSecret) == 0 {
		return nil, ErrEmptySecret
	}

	key := make([]byte, keySize)
	kdf := hkdf.New(sha256.New, contextualSecret, nil, []byte(Suite))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("ocra: derive key: %w", err)
	}

	return &Responder{key: key}, nil
}

// Respond returns the response for a nonce and a TOTP code.
func (r *Responder) Respond(nonce []byte, totpCode string) (string, error) {
	if len(nonce) != NonceSize {
		return "", fmt.Errorf("%w: got %d bytes, want %d", ErrNonceSize, len(nonce), NonceSize)
	}
	if totpCode == "" {
		return "", ErrEmptyCode
	}

	pin := sha256.Sum256([]byte(totpCode))

	msg := make([]byte, 0, len(Suite)+1+challengeBlock+len(pin))
	msg = append(msg, Suite...)
	msg = append(msg, 0x00)
	msg = append(msg, nonce...)
	msg = append(msg, make([]byte, challengeBlock-len(nonce))...)
	msg = append(msg, pin[:]...)

	mac := hmac.New(sha256.New, r.key)
	mac.Write(msg)

	return fmt.Sprintf("%0*d", Digits, truncate(mac.Sum(nil))), nil
}

// Compute is NewResponder followed by Respond.
func Compute(contextualSecret, nonce []byte, totpCode string) (string, error) {
	r, err := NewResponder(contextualSecret)
	if err != nil {
		return "", err
	}
	return r.Respond(nonce, totpCode)
}

// Equal compares two responses in constant time.
func Equal(expected, submitted string) bool {
	return subtle.ConstantTimeCompare([]byte(expected), []byte(submitted)) == 1
}

// EqualAny reports whether submitted equals any candidate. Every candidate is
// compared so the running time does not depend on which one matched.
func EqualAny(candidates []string, submitted string) bool {
	var match int
	for _, c := range candidates {
		match |= subtle.ConstantTimeCompare([]byte(c), []byte(submitted))
	}
	return match == 1
}

func truncate(sum []byte) uint32 {
	offset := sum[len(sum)-1] & 0x0f
	bin := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff
	return bin % modulo
}
