// Package storetest is a conformance suite every challenge store backend
// must pass.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/gocustody/internal/challenge/entity"
)

// Store mirrors the backend contract.
type Store interface {
	Put(ctx context.Context, ch entity.Challenge, ttl time.Duration) error
	Get(ctx context.Context, id string) (*entity.Challenge, error)
	Delete(ctx context.Context, id string) error
	CompareAndIncrementAttempt(ctx context.Context, id string) (int, error)
	MarkConsumed(ctx context.Context, id string, retention time.Duration) (bool, error)
}

// Harness is one fresh backend plus a way to move its notion of time.
// A nil Advance skips the checks that need time to pass.
type Harness struct {
	Store   Store
	Advance func(d time.Duration)
}

const ttl = 5 * time.Minute

var issuedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Fixture returns a complete challenge with the given id.
func Fixture(id string, maxAttempts int) entity.Challenge {
	nonce := make([]byte, 32)
	for i := range nonce {
		nonce[i] = byte(i)
	}
	return entity.Challenge{
		ID:            id,
		TransactionID: "tx-42",
		GuardianID:    "cfo-1",
		Nonce:         nonce,
		IssuedAt:      issuedAt,
		ExpiresAt:     issuedAt.Add(ttl),
		MaxAttempts:   maxAttempts,
	}
}

// Run executes the suite. newHarness must return an empty backend each call.
func Run(t *testing.T, newHarness func(t *testing.T) Harness) {
	t.Helper()
	ctx := context.Background()

	put := func(t *testing.T, h Harness, ch entity.Challenge) {
		t.Helper()
		if err := h.Store.Put(ctx, ch, ttl); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	t.Run("PutGet", func(t *testing.T) {
		h := newHarness(t)
		want := Fixture("chal-1", 5)
		put(t, h, want)

		got, err := h.Store.Get(ctx, "chal-1")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.ID != want.ID || got.TransactionID != want.TransactionID || got.GuardianID != want.GuardianID {
			t.Fatalf("binding mismatch: %+v", got)
		}
		if !slices.Equal(got.Nonce, want.Nonce) {
			t.Fatalf("nonce mismatch")
		}
		if !got.IssuedAt.Equal(want.IssuedAt) || !got.ExpiresAt.Equal(want.ExpiresAt) {
			t.Fatalf("time mismatch: %v %v", got.IssuedAt, got.ExpiresAt)
		}
		if got.AttemptCount != 0 || got.MaxAttempts != 5 || got.Consumed {
			t.Fatalf("unexpected counters: %+v", got)
		}
	})

	t.Run("PutContractViolations", func(t *testing.T) {
		h := newHarness(t)

		if err := h.Store.Put(ctx, Fixture("chal-1", 5), 0); !errors.Is(err, entity.ErrInvalidTTL) {
			t.Fatalf("expected ErrInvalidTTL, got %v", err)
		}
		if err := h.Store.Put(ctx, Fixture("chal-1", 5), -time.Second); !errors.Is(err, entity.ErrInvalidTTL) {
			t.Fatalf("expected ErrInvalidTTL, got %v", err)
		}

		incomplete := Fixture("chal-1", 5)
		incomplete.GuardianID = ""
		if err := h.Store.Put(ctx, incomplete, ttl); !errors.Is(err, entity.ErrInvalidChallenge) {
			t.Fatalf("expected ErrInvalidChallenge, got %v", err)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		h := newHarness(t)
		if _, err := h.Store.Get(ctx, "nope"); !errors.Is(err, entity.ErrChallengeNotFound) {
			t.Fatalf("expected ErrChallengeNotFound, got %v", err)
		}
	})

	t.Run("GetAtExactTTLIsPresent", func(t *testing.T) {
		h := newHarness(t)
		if h.Advance == nil {
			t.Skip("backend cannot move time")
		}
		put(t, h, Fixture("chal-1", 5))

		h.Advance(ttl)

		got, err := h.Store.Get(ctx, "chal-1")
		if err != nil {
			t.Fatalf("expected record readable at exactly TTL, got %v", err)
		}
		if got.ID != "chal-1" {
			t.Fatalf("unexpected record %+v", got)
		}
		if n, err := h.Store.CompareAndIncrementAttempt(ctx, "chal-1"); err != nil || n != 1 {
			t.Fatalf("increment at exactly TTL = %d, %v; want 1, nil", n, err)
		}
	})

	t.Run("GetPastTTLIsMissing", func(t *testing.T) {
		h := newHarness(t)
		if h.Advance == nil {
			t.Skip("backend cannot move time")
		}
		put(t, h, Fixture("chal-1", 5))

		h.Advance(ttl + time.Second)

		if _, err := h.Store.Get(ctx, "chal-1"); !errors.Is(err, entity.ErrChallengeNotFound) {
			t.Fatalf("expected ErrChallengeNotFound past TTL, got %v", err)
		}
		if _, err := h.Store.CompareAndIncrementAttempt(ctx, "chal-1"); !errors.Is(err, entity.ErrChallengeNotFound) {
			t.Fatalf("expected ErrChallengeNotFound on increment past TTL, got %v", err)
		}
	})

	t.Run("DeleteIdempotent", func(t *testing.T) {
		h := newHarness(t)
		put(t, h, Fixture("chal-1", 5))

		for i := range 2 {
			if err := h.Store.Delete(ctx, "chal-1"); err != nil {
				t.Fatalf("Delete #%d: %v", i+1, err)
			}
		}
		if err := h.Store.Delete(ctx, "never-existed"); err != nil {
			t.Fatalf("Delete missing: %v", err)
		}
		if _, err := h.Store.Get(ctx, "chal-1"); !errors.Is(err, entity.ErrChallengeNotFound) {
			t.Fatalf("expected ErrChallengeNotFound after delete, got %v", err)
		}
	})

	t.Run("IncrementCapped", func(t *testing.T) {
		h := newHarness(t)
		put(t, h, Fixture("chal-1", 3))

		for want := 1; want <= 3; want++ {
			n, err := h.Store.CompareAndIncrementAttempt(ctx, "chal-1")
			if err != nil {
				t.Fatalf("increment: %v", err)
			}
			if n != want {
				t.Fatalf("expected %d, got %d", want, n)
			}
		}
		for range 2 {
			n, err := h.Store.CompareAndIncrementAttempt(ctx, "chal-1")
			if err != nil {
				t.Fatalf("increment: %v", err)
			}
			if n != 4 {
				t.Fatalf("expected capped 4, got %d", n)
			}
		}

		got, err := h.Store.Get(ctx, "chal-1")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.AttemptCount != 3 {
			t.Fatalf("stored attempt count must never exceed max, got %d", got.AttemptCount)
		}
	})

	t.Run("IncrementMissing", func(t *testing.T) {
		h := newHarness(t)
		if _, err := h.Store.CompareAndIncrementAttempt(ctx, "nope"); !errors.Is(err, entity.ErrChallengeNotFound) {
			t.Fatalf("expected ErrChallengeNotFound, got %v", err)
		}
	})

	t.Run("IncrementLinearizable", func(t *testing.T) {
		h := newHarness(t)
		const workers = 20
		put(t, h, Fixture("chal-1", 50))

		results := make([]int, workers)
		var wg sync.WaitGroup
		for i := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				n, err := h.Store.CompareAndIncrementAttempt(ctx, "chal-1")
				if err != nil {
					t.Errorf("increment: %v", err)
					return
				}
				results[i] = n
			}()
		}
		wg.Wait()

		slices.Sort(results)
		for i, n := range results {
			if n != i+1 {
				t.Fatalf("expected distinct counts 1..%d, got %v", workers, results)
			}
		}
	})

	t.Run("MarkConsumedOnce", func(t *testing.T) {
		h := newHarness(t)
		put(t, h, Fixture("chal-1", 5))

		flipped, err := h.Store.MarkConsumed(ctx, "chal-1", time.Minute)
		if err != nil || !flipped {
			t.Fatalf("first MarkConsumed = %v, %v; want true, nil", flipped, err)
		}
		flipped, err = h.Store.MarkConsumed(ctx, "chal-1", time.Minute)
		if err != nil || flipped {
			t.Fatalf("second MarkConsumed = %v, %v; want false, nil", flipped, err)
		}

		got, err := h.Store.Get(ctx, "chal-1")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !got.Consumed {
			t.Fatalf("expected consumed record")
		}

		if h.Advance == nil {
			return
		}
		h.Advance(time.Minute + time.Second)
		if _, err := h.Store.Get(ctx, "chal-1"); !errors.Is(err, entity.ErrChallengeNotFound) {
			t.Fatalf("expected consumed record gone after retention, got %v", err)
		}
	})

	t.Run("MarkConsumedWithoutRetentionDeletes", func(t *testing.T) {
		h := newHarness(t)
		put(t, h, Fixture("chal-1", 5))

		flipped, err := h.Store.MarkConsumed(ctx, "chal-1", 0)
		if err != nil || !flipped {
			t.Fatalf("MarkConsumed = %v, %v; want true, nil", flipped, err)
		}
		if _, err := h.Store.Get(ctx, "chal-1"); !errors.Is(err, entity.ErrChallengeNotFound) {
			t.Fatalf("expected record deleted, got %v", err)
		}
	})

	t.Run("MarkConsumedMissing", func(t *testing.T) {
		h := newHarness(t)
		if _, err := h.Store.MarkConsumed(ctx, "nope", time.Minute); !errors.Is(err, entity.ErrChallengeNotFound) {
			t.Fatalf("expected ErrChallengeNotFound, got %v", err)
		}
	})

	t.Run("MarkConsumedExactlyOneWinner", func(t *testing.T) {
		h := newHarness(t)
		const workers = 10
		put(t, h, Fixture("chal-1", 5))

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners int
		)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				flipped, err := h.Store.MarkConsumed(ctx, "chal-1", time.Minute)
				if err != nil {
					t.Errorf("MarkConsumed: %v", err)
					return
				}
				if flipped {
					mu.Lock()
					winners++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if winners != 1 {
			t.Fatalf("expected exactly one winner, got %d", winners)
		}
	})

	t.Run("IndependentRecords", func(t *testing.T) {
		h := newHarness(t)
		for i := range 3 {
			put(t, h, Fixture(fmt.Sprintf("chal-%d", i), 5))
		}

		if _, err := h.Store.MarkConsumed(ctx, "chal-0", time.Minute); err != nil {
			t.Fatalf("MarkConsumed: %v", err)
		}
		for _, id := range []string{"chal-1", "chal-2"} {
			got, err := h.Store.Get(ctx, id)
			if err != nil {
				t.Fatalf("Get %s: %v", id, err)
			}
			if got.Consumed {
				t.Fatalf("%s must not be affected by another record", id)
			}
		}
	})
}
