package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/gocustody/internal/challenge/entity"
	"github.com/shandysiswandi/gocustody/internal/pkg/goerror"
	"github.com/shandysiswandi/gocustody/internal/pkg/ocra"
	"github.com/shandysiswandi/gocustody/internal/shared/event"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ValidateInput struct {
	ChallengeID string `validate:"required,identifier"`
	Response    string `validate:"required,max=64"`
	// GuardianID is the authenticated caller. When set, a challenge issued
	// to another guardian is reported as not found.
	GuardianID string `validate:"omitempty,identifier"`
}

// Validate checks a response against a challenge and consumes the challenge
// on success. Rejections are returned as an Outcome with a nil error; the
// error is reserved for invalid input and infrastructure failures.
func (s *Usecase) Validate(ctx context.Context, in ValidateInput) (*entity.Outcome, error) {
	ctx, span := s.startSpan(ctx, "Validate")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.WarnContext(ctx, "invalid validate challenge payload", "error", err)
		return nil, goerror.NewInvalidInput(err)
	}

	span.SetAttributes(attribute.String("challenge.id", in.ChallengeID))

	now := s.clock.Now()

	ch, err := s.repoStore.Get(ctx, in.ChallengeID)
	if errors.Is(err, entity.ErrChallengeNotFound) {
		return s.reject(ctx, in.ChallengeID, nil, entity.ReasonChallengeNotFound, 0), nil
	}
	if err != nil {
		return nil, s.storeFailure(ctx, span, "get", in.ChallengeID, err)
	}

	if in.GuardianID != "" && in.GuardianID != ch.GuardianID {
		slog.WarnContext(ctx, "challenge presented by another guardian",
			"challenge_id", ch.ID,
			"guardian_id", in.GuardianID,
		)
		return s.reject(ctx, ch.ID, nil, entity.ReasonChallengeNotFound, 0), nil
	}

	if ch.ExpiredAt(now) {
		s.discard(ctx, ch.ID)
		return s.reject(ctx, ch.ID, ch, entity.ReasonExpired, 0), nil
	}

	if ch.Consumed {
		return s.reject(ctx, ch.ID, ch, entity.ReasonAlreadyConsumed, 0), nil
	}

	attempt, err := s.repoStore.CompareAndIncrementAttempt(ctx, ch.ID)
	if errors.Is(err, entity.ErrChallengeNotFound) {
		return s.reject(ctx, ch.ID, ch, entity.ReasonChallengeNotFound, 0), nil
	}
	if err != nil {
		return nil, s.storeFailure(ctx, span, "increment", ch.ID, err)
	}

	if ch.Exhausted(attempt) {
		s.discard(ctx, ch.ID)
		return s.reject(ctx, ch.ID, ch, entity.ReasonAttemptsExhausted, attempt), nil
	}

	candidates, err := s.expectedResponses(ctx, ch, now)
	if errors.Is(err, entity.ErrSecretNotFound) {
		return s.reject(ctx, ch.ID, ch, entity.ReasonSecretNotFound, attempt), nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "secret provider failure")
		if errors.Is(err, entity.ErrSecretProviderUnavailable) {
			slog.ErrorContext(ctx, "secret provider unavailable", "challenge_id", ch.ID, "error", err)
			return nil, goerror.NewUnavailable(err)
		}
		slog.ErrorContext(ctx, "failed to compute expected responses", "challenge_id", ch.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !ocra.EqualAny(candidates, in.Response) {
		return s.reject(ctx, ch.ID, ch, entity.ReasonInvalidResponse, attempt), nil
	}

	flipped, err := s.repoStore.MarkConsumed(ctx, ch.ID, s.consumedRetention())
	if errors.Is(err, entity.ErrChallengeNotFound) {
		return s.reject(ctx, ch.ID, ch, entity.ReasonChallengeNotFound, attempt), nil
	}
	if err != nil {
		return nil, s.storeFailure(ctx, span, "consume", ch.ID, err)
	}
	if !flipped {
		return s.reject(ctx, ch.ID, ch, entity.ReasonAlreadyConsumed, attempt), nil
	}

	out := entity.Accepted(attempt)
	s.countOutcome(ctx, out)

	slog.InfoContext(ctx, "challenge response accepted",
		"challenge_id", ch.ID,
		"transaction_id", ch.TransactionID,
		"guardian_id", ch.GuardianID,
		"attempt", attempt,
	)

	s.audit(ctx, ChallengeAuditEvent{
		Type:          event.ChallengeAuditTypeValidated,
		ChallengeID:   ch.ID,
		TransactionID: ch.TransactionID,
		GuardianID:    ch.GuardianID,
		Accepted:      true,
		Reason:        out.Reason.String(),
		Attempt:       attempt,
		OccurredAt:    now,
	})

	return out, nil
}

// expectedResponses returns one response per accepted TOTP window, current
// window included.
func (s *Usecase) expectedResponses(ctx context.Context, ch *entity.Challenge, now time.Time) ([]string, error) {
	secret, err := s.repoSecret.GetContextualSecret(ctx, ch.TransactionID)
	if err != nil {
		return nil, err
	}

	responder, err := ocra.NewResponder(secret)
	if errors.Is(err, ocra.ErrEmptySecret) {
		return nil, entity.ErrSecretNotFound
	}
	if err != nil {
		return nil, err
	}

	skew := s.skew()
	offsets := lo.RangeFrom(-skew, 2*skew+1)

	candidates := make([]string, 0, len(offsets))
	for _, offset := range offsets {
		code, err := s.repoSecret.GetTOTPCode(ctx, ch.GuardianID, now, offset)
		if err != nil {
			return nil, err
		}

		resp, err := responder.Respond(ch.Nonce, code)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, resp)
	}

	return candidates, nil
}

func (s *Usecase) reject(ctx context.Context, id string, ch *entity.Challenge, reason entity.Reason, attempt int) *entity.Outcome {
	out := entity.Rejected(reason, attempt)
	s.countOutcome(ctx, out)

	ev := ChallengeAuditEvent{
		Type:        event.ChallengeAuditTypeValidated,
		ChallengeID: id,
		Reason:      reason.String(),
		Attempt:     attempt,
		OccurredAt:  s.clock.Now(),
	}
	if ch != nil {
		ev.TransactionID = ch.TransactionID
		ev.GuardianID = ch.GuardianID
	}

	slog.WarnContext(ctx, "challenge response rejected",
		"challenge_id", id,
		"transaction_id", ev.TransactionID,
		"guardian_id", ev.GuardianID,
		"reason", reason.String(),
		"attempt", attempt,
	)

	s.audit(ctx, ev)

	return out
}

// discard removes a dead challenge. The store TTL still reclaims it when the
// delete fails, so the failure is only logged.
func (s *Usecase) discard(ctx context.Context, id string) {
	if err := s.repoStore.Delete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "failed to delete challenge", "challenge_id", id, "error", err)
	}
}

func (s *Usecase) storeFailure(ctx context.Context, span trace.Span, op, id string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "challenge store failure")
	slog.ErrorContext(ctx, "challenge store failure", "op", op, "challenge_id", id, "error", err)
	if errors.Is(err, entity.ErrStorageUnavailable) {
		return goerror.NewUnavailable(err)
	}
	return goerror.NewServer(err)
}
