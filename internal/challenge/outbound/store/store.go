// Package store holds the challenge store backends. Every backend keys
// records by a keyed hash of the challenge id and enforces the record's
// lifetime itself, so a read past TTL behaves exactly like a missing key.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shandysiswandi/gocustody/internal/challenge/entity"
	"github.com/shandysiswandi/gocustody/internal/pkg/hash"
	"github.com/shandysiswandi/gocustody/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DriverRedis selects the Redis backend.
	DriverRedis = "redis"
	// DriverBolt selects the embedded bbolt backend.
	DriverBolt = "bolt"
	// DriverMemory selects the in-process backend.
	DriverMemory = "memory"
)

// Store is the contract shared by every backend.
type Store interface {
	Put(ctx context.Context, ch entity.Challenge, ttl time.Duration) error
	Get(ctx context.Context, id string) (*entity.Challenge, error)
	Delete(ctx context.Context, id string) error
	CompareAndIncrementAttempt(ctx context.Context, id string) (int, error)
	MarkConsumed(ctx context.Context, id string, retention time.Duration) (bool, error)
}

func validatePut(ch entity.Challenge, ttl time.Duration) error {
	if ttl <= 0 {
		return entity.ErrInvalidTTL
	}
	if ch.ID == "" || ch.TransactionID == "" || ch.GuardianID == "" || len(ch.Nonce) == 0 || ch.MaxAttempts <= 0 {
		return entity.ErrInvalidChallenge
	}
	return nil
}

// keyer maps challenge ids to store keys.
type keyer struct {
	prefix string
	hash   hash.Hash
}

func (k keyer) key(id string) (string, error) {
	if k.hash == nil {
		return k.prefix + id, nil
	}

	h, err := k.hash.Hash(id)
	if err != nil {
		return "", fmt.Errorf("store: hash key: %w", err)
	}
	return k.prefix + string(h), nil
}

func unavailable(err error) error {
	if err == nil || errors.Is(err, entity.ErrChallengeNotFound) || errors.Is(err, entity.ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", entity.ErrStorageUnavailable, err)
}

type tracer struct {
	ins instrument.Instrumentation
}

func (t tracer) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if t.ins == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.ins.Tracer("challenge.outbound.store").Start(ctx, name)
}

func (tracer) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, entity.ErrChallengeNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
