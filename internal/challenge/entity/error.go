package entity

import "errors"

var (
	// ErrChallengeNotFound is returned by a store for a missing or past-TTL record.
	ErrChallengeNotFound = errors.New("challenge: not found")

	// ErrStorageUnavailable wraps any failure to reach the challenge store.
	ErrStorageUnavailable = errors.New("challenge: storage unavailable")

	// ErrInvalidTTL is returned by Put for a non-positive ttl.
	ErrInvalidTTL = errors.New("challenge: ttl must be positive")

	// ErrInvalidChallenge is returned by Put for a record without id, binding or nonce.
	ErrInvalidChallenge = errors.New("challenge: record is incomplete")

	// ErrSecretNotFound is returned by a secret provider for an unknown or
	// inactive guardian, or a transaction that is not awaiting approval.
	ErrSecretNotFound = errors.New("challenge: secret not found")

	// ErrSecretProviderUnavailable wraps any failure to reach the secret provider.
	ErrSecretProviderUnavailable = errors.New("challenge: secret provider unavailable")

	// ErrSecretUnreadable is returned when a stored secret cannot be opened or
	// used: a wrong sealing key, tampered ciphertext or a malformed seed.
	// Retrying does not help.
	ErrSecretUnreadable = errors.New("challenge: secret unreadable")
)
