package entity

import "time"

// Challenge is a single-use, time-bound challenge bound to one transaction
// and one guardian.
type Challenge struct {
	ID            string
	TransactionID string
	GuardianID    string
	Nonce         []byte
	IssuedAt      time.Time
	ExpiresAt     time.Time
	AttemptCount  int
	MaxAttempts   int
	Consumed      bool
}

// ExpiredAt reports whether the challenge is past its expiry at now.
// A challenge is still valid at exactly ExpiresAt.
func (c *Challenge) ExpiredAt(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Exhausted reports whether attempt is past the attempt ceiling.
func (c *Challenge) Exhausted(attempt int) bool {
	return attempt > c.MaxAttempts
}

// ChallengeView is what a caller learns about an issued challenge. It never
// carries the contextual secret or the TOTP seed.
type ChallengeView struct {
	ChallengeID   string
	TransactionID string
	GuardianID    string
	Nonce         []byte
	Suite         string
	IssuedAt      time.Time
	ExpiresAt     time.Time
}
