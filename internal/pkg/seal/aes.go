package seal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Ciphertext format (binary):
// [0..1]   uint16 version (currently 1)
// [2..13]  12-byte nonce
// [14..]   gcm.Seal output (ciphertext + tag)
const aesGCMVersion uint16 = 1

const (
	gcmNonceSize = 12
	headerSize   = 2 + gcmNonceSize
	aesKeyLen    = 32
)

var (
	// ErrEncryptorNotConfigured indicates a missing encryptor key provider.
	ErrEncryptorNotConfigured = errors.New("seal: encryptor not configured")
	// ErrPlaintextEmpty indicates an empty plaintext input.
	ErrPlaintextEmpty = errors.New("seal: plaintext is empty")
	// ErrInvalidKeyLength indicates the key length is invalid.
	ErrInvalidKeyLength = errors.New("seal: invalid key length")
	// ErrCiphertextTooShort indicates a truncated ciphertext.
	ErrCiphertextTooShort = errors.New("seal: ciphertext too short")
	// ErrUnsupportedCiphertextVersion indicates an unsupported ciphertext version.
	ErrUnsupportedCiphertextVersion = errors.New("seal: unsupported ciphertext version")
	// ErrDecryptFailed indicates decryption failure.
	ErrDecryptFailed = errors.New("seal: decrypt failed")
	// ErrMissingStaticKey indicates a missing static key.
	ErrMissingStaticKey = errors.New("seal: missing static key")
)

// AESGCMEncryptor implements Encryptor using AES-256-GCM.
type AESGCMEncryptor struct {
	keys KeyProvider
}

// NewAESGCMEncryptor constructs an AES-GCM encryptor.
func NewAESGCMEncryptor(keys KeyProvider) *AESGCMEncryptor {
	return &AESGCMEncryptor{keys: keys}
}

// Encrypt seals plaintext, binding the result to scope via AAD.
func (e *AESGCMEncryptor) Encrypt(plaintext []byte, scope Scope) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, ErrPlaintextEmpty
	}

	gcm, err := e.aead(scope)
	if err != nil {
		return nil, err
	}

	out := make([]byte, headerSize, headerSize+len(plaintext)+gcm.Overhead())
	binary.BigEndian.PutUint16(out[0:2], aesGCMVersion)
	if _, err := io.ReadFull(rand.Reader, out[2:headerSize]); err != nil {
		return nil, fmt.Errorf("seal: nonce generation failed: %w", err)
	}

	return gcm.Seal(out, out[2:headerSize], plaintext, scopeAAD(scope)), nil
}

// Decrypt opens ciphertext, requiring the same scope it was sealed with.
func (e *AESGCMEncryptor) Decrypt(ciphertext []byte, scope Scope) ([]byte, error) {
	if len(ciphertext) < headerSize+1 {
		return nil, ErrCiphertextTooShort
	}

	version := binary.BigEndian.Uint16(ciphertext[0:2])
	if version != aesGCMVersion {
		return nil, fmt.Errorf("seal: version %d: %w", version, ErrUnsupportedCiphertextVersion)
	}

	gcm, err := e.aead(scope)
	if err != nil {
		return nil, err
	}

	plain, err := gcm.Open(nil, ciphertext[2:headerSize], ciphertext[headerSize:], scopeAAD(scope))
	if err != nil {
		// wrong scope, wrong key and tampering all look the same
		return nil, ErrDecryptFailed
	}
	return plain, nil
}

func (e *AESGCMEncryptor) aead(scope Scope) (cipher.AEAD, error) {
	if e == nil || e.keys == nil {
		return nil, ErrEncryptorNotConfigured
	}

	key, err := e.keys.Key(scope)
	if err != nil {
		return nil, fmt.Errorf("seal: key provider error: %w", err)
	}
	if len(key) != aesKeyLen {
		return nil, fmt.Errorf("seal: key length %d (want %d): %w", len(key), aesKeyLen, ErrInvalidKeyLength)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("seal: aes init failed: %w", err)
	}

	return cipher.NewGCMWithNonceSize(block, gcmNonceSize)
}

// scopeAAD hashes a labelled canonical form so AAD has a fixed length and
// separators in subject ids cannot collide.
func scopeAAD(s Scope) []byte {
	canonical := fmt.Sprintf("subject=%s\npurpose=%s\n", s.Subject, s.Purpose)
	sum := sha256.Sum256([]byte(canonical))
	return sum[:]
}

// StaticKeyProvider returns the same key for every scope.
type StaticKeyProvider struct {
	// KeyBytes is the raw AES key material.
	KeyBytes []byte
}

// NewStaticKeyProvider decodes a base64 AES-256 key.
func NewStaticKeyProvider(b64 string) (StaticKeyProvider, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return StaticKeyProvider{}, fmt.Errorf("seal: decode key: %w", err)
	}
	if len(raw) != aesKeyLen {
		return StaticKeyProvider{}, fmt.Errorf("seal: key is %d bytes (want %d): %w", len(raw), aesKeyLen, ErrInvalidKeyLength)
	}
	return StaticKeyProvider{KeyBytes: raw}, nil
}

// Key returns a copy of the static key.
func (p StaticKeyProvider) Key(_ Scope) ([]byte, error) {
	if len(p.KeyBytes) == 0 {
		return nil, ErrMissingStaticKey
	}
	k := make([]byte, len(p.KeyBytes))
	copy(k, p.KeyBytes)
	return k, nil
}
