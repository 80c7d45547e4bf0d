package store

import (
	"time"

	"github.com/shandysiswandi/gocustody/internal/challenge/entity"
)

// record is the serialized challenge used by the bbolt and memory backends.
type record struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transaction_id"`
	GuardianID    string    `json:"guardian_id"`
	Nonce         []byte    `json:"nonce"`
	IssuedAt      time.Time `json:"issued_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	AttemptCount  int       `json:"attempt_count"`
	MaxAttempts   int       `json:"max_attempts"`
	Consumed      bool      `json:"consumed"`
	// EvictAt is the store-side lifetime, independent of ExpiresAt.
	EvictAt time.Time `json:"evict_at"`
}

func newRecord(ch entity.Challenge, evictAt time.Time) record {
	return record{
		ID:            ch.ID,
		TransactionID: ch.TransactionID,
		GuardianID:    ch.GuardianID,
		Nonce:         append([]byte(nil), ch.Nonce...),
		IssuedAt:      ch.IssuedAt,
		ExpiresAt:     ch.ExpiresAt,
		AttemptCount:  ch.AttemptCount,
		MaxAttempts:   ch.MaxAttempts,
		Consumed:      ch.Consumed,
		EvictAt:       evictAt,
	}
}

// evicted reports whether now is past the store lifetime. A read at exactly
// EvictAt still sees the record.
func (r record) evicted(now time.Time) bool {
	return now.After(r.EvictAt)
}

func (r record) challenge() *entity.Challenge {
	return &entity.Challenge{
		ID:            r.ID,
		TransactionID: r.TransactionID,
		GuardianID:    r.GuardianID,
		Nonce:         append([]byte(nil), r.Nonce...),
		IssuedAt:      r.IssuedAt,
		ExpiresAt:     r.ExpiresAt,
		AttemptCount:  r.AttemptCount,
		MaxAttempts:   r.MaxAttempts,
		Consumed:      r.Consumed,
	}
}

// increment applies the capped attempt increment and reports whether the
// record changed.
func (r *record) increment() (int, bool) {
	if r.AttemptCount >= r.MaxAttempts {
		return r.MaxAttempts + 1, false
	}
	r.AttemptCount++
	return r.AttemptCount, true
}

// consume flips Consumed and shortens the lifetime to retention. A
// non-positive retention asks the caller to delete the record.
func (r *record) consume(now time.Time, retention time.Duration) (flipped, remove bool) {
	if r.Consumed {
		return false, false
	}
	r.Consumed = true
	if retention <= 0 {
		return true, true
	}
	if evict := now.Add(retention); evict.Before(r.EvictAt) {
		r.EvictAt = evict
	}
	return true, false
}
