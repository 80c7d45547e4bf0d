package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/shandysiswandi/gocustody/internal/challenge/entity"
	"github.com/shandysiswandi/gocustody/internal/pkg/goerror"
	"github.com/shandysiswandi/gocustody/internal/pkg/ocra"
	"github.com/shandysiswandi/gocustody/internal/shared/event"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// nonceSize is the challenge nonce length in bytes (256 bits).
const nonceSize = 32

type IssueInput struct {
	TransactionID string `validate:"required,identifier"`
	GuardianID    string `validate:"required,identifier"`
}

// Issue mints a challenge bound to one transaction and one guardian and
// stores it with the configured TTL. Earlier challenges for the same pair
// stay valid.
func (s *Usecase) Issue(ctx context.Context, in IssueInput) (*entity.ChallengeView, error) {
	ctx, span := s.startSpan(ctx, "Issue")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.WarnContext(ctx, "invalid issue challenge payload", "error", err)
		return nil, goerror.NewInvalidInput(err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(s.rand, nonce); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read nonce")
		slog.ErrorContext(ctx, "failed to read challenge nonce", "error", err)
		return nil, goerror.NewServer(err)
	}

	ttl := s.challengeTTL()
	now := s.clock.Now()
	ch := entity.Challenge{
		ID:            s.uuid.Generate(),
		TransactionID: in.TransactionID,
		GuardianID:    in.GuardianID,
		Nonce:         nonce,
		IssuedAt:      now,
		ExpiresAt:     now.Add(ttl),
		MaxAttempts:   s.maxAttempts(),
	}
	span.SetAttributes(attribute.String("challenge.id", ch.ID))

	if err := s.repoStore.Put(ctx, ch, ttl); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to store challenge")
		if errors.Is(err, entity.ErrStorageUnavailable) {
			slog.ErrorContext(ctx, "challenge store unavailable on issue", "transaction_id", in.TransactionID, "error", err)
			return nil, goerror.NewUnavailable(err)
		}
		slog.ErrorContext(ctx, "failed to store challenge", "transaction_id", in.TransactionID, "ttl", ttl, "error", err)
		return nil, goerror.NewServer(err)
	}

	if s.issuedCounter != nil {
		s.issuedCounter.Add(ctx, 1)
	}

	slog.InfoContext(ctx, "challenge issued",
		"challenge_id", ch.ID,
		"transaction_id", ch.TransactionID,
		"guardian_id", ch.GuardianID,
		"expires_at", ch.ExpiresAt,
	)

	s.audit(ctx, ChallengeAuditEvent{
		Type:          event.ChallengeAuditTypeIssued,
		ChallengeID:   ch.ID,
		TransactionID: ch.TransactionID,
		GuardianID:    ch.GuardianID,
		Accepted:      true,
		Reason:        entity.ReasonNone.String(),
		OccurredAt:    now,
	})

	return &entity.ChallengeView{
		ChallengeID:   ch.ID,
		TransactionID: ch.TransactionID,
		GuardianID:    ch.GuardianID,
		Nonce:         ch.Nonce,
		Suite:         ocra.Suite,
		IssuedAt:      ch.IssuedAt,
		ExpiresAt:     ch.ExpiresAt,
	}, nil
}
