package mq

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shandysiswandi/gocustody/internal/challenge/usecase"
	"github.com/shandysiswandi/gocustody/internal/pkg/instrument"
	"github.com/shandysiswandi/gocustody/internal/pkg/messaging"
	"github.com/shandysiswandi/gocustody/internal/shared/event"
)

func TestMessaging_PublishChallengeAudit(t *testing.T) {
	// Arrange
	pub := messaging.NewMemory()
	m := NewMessaging(pub, instrument.NewNoop(), "")
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Act
	err := m.PublishChallengeAudit(context.Background(), usecase.ChallengeAuditEvent{
		EventID:       7,
		Type:          event.ChallengeAuditTypeValidated,
		ChallengeID:   "tx-42-chal-001",
		TransactionID: "tx-42",
		GuardianID:    "cfo-1",
		Reason:        "invalid_response",
		Attempt:       2,
		OccurredAt:    at,
		CorrelationID: "corr-1",
	})

	// Assert
	if err != nil {
		t.Fatalf("PublishChallengeAudit: %v", err)
	}

	got := pub.Messages()
	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
	if got[0].Destination != event.ChallengeAuditDestination {
		t.Fatalf("unexpected destination %q", got[0].Destination)
	}
	if cid, _ := got[0].Message.HeaderValue(keyOfCorrelationID); cid != "corr-1" {
		t.Fatalf("expected cID header corr-1, got %q", cid)
	}
	if string(got[0].Message.Key) != "tx-42-chal-001" {
		t.Fatalf("expected challenge id as key, got %q", got[0].Message.Key)
	}

	var body event.ChallengeAuditMessage
	if err := json.Unmarshal(got[0].Message.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.EventID != 7 || body.Reason != "invalid_response" || body.Attempt != 2 || !body.OccurredAt.Equal(at) {
		t.Fatalf("unexpected body %+v", body)
	}
}
