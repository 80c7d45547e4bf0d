package hash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var ErrEmptySecret = errors.New("hash: hmac secret is empty")

// HMACSHA256 derives hex store keys from identifiers. Without the secret a
// dump of the store cannot be mapped back to live challenge ids.
type HMACSHA256 struct {
	key []byte
}

func NewHMACSHA256(secret string) (*HMACSHA256, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	return &HMACSHA256{key: []byte(secret)}, nil
}

func (k *HMACSHA256) Hash(id string) ([]byte, error) {
	return hex.AppendEncode(nil, k.mac(id)), nil
}

func (k *HMACSHA256) Verify(hashed, id string) bool {
	raw, err := hex.DecodeString(hashed)
	if err != nil {
		return false
	}
	return hmac.Equal(raw, k.mac(id))
}

func (k *HMACSHA256) mac(id string) []byte {
	m := hmac.New(sha256.New, k.key)
	m.Write([]byte(id))
	return m.Sum(nil)
}
