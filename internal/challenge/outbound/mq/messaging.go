package mq

import (
	"context"
	"encoding/json"

	"github.com/shandysiswandi/gocustody/internal/challenge/usecase"
	"github.com/shandysiswandi/gocustody/internal/pkg/instrument"
	"github.com/shandysiswandi/gocustody/internal/pkg/messaging"
	"github.com/shandysiswandi/gocustody/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
)

const (
	keyOfCorrelationID string = "cID"
	keyOfEventType     string = "type"
)

type Messaging struct {
	client      messaging.Publisher
	ins         instrument.Instrumentation
	destination string
}

func NewMessaging(client messaging.Publisher, ins instrument.Instrumentation, destination string) *Messaging {
	if destination == "" {
		destination = event.ChallengeAuditDestination
	}
	return &Messaging{client: client, ins: ins, destination: destination}
}

func (m *Messaging) PublishChallengeAudit(ctx context.Context, msg usecase.ChallengeAuditEvent) error {
	ctx, span := m.ins.Tracer("challenge.outbound.mq").Start(ctx, "PublishChallengeAudit")
	defer span.End()

	body, err := json.Marshal(event.ChallengeAuditMessage{
		EventID:       msg.EventID,
		Type:          msg.Type,
		ChallengeID:   msg.ChallengeID,
		TransactionID: msg.TransactionID,
		GuardianID:    msg.GuardianID,
		Accepted:      msg.Accepted,
		Reason:        msg.Reason,
		Attempt:       msg.Attempt,
		OccurredAt:    msg.OccurredAt,
		CorrelationID: msg.CorrelationID,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if _, err := m.client.Publish(ctx, m.destination, messaging.OutgoingMessage{
		Body: body,
		// Keeps every event of one challenge on one Kafka partition.
		Key:         []byte(msg.ChallengeID),
		OrderingKey: msg.ChallengeID,
		Headers: []messaging.Header{
			{Key: keyOfCorrelationID, Value: []byte(msg.CorrelationID)},
			{Key: keyOfEventType, Value: []byte(msg.Type)},
		},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
