package event

import "time"

// ChallengeAuditDestination is the default topic for challenge audit events.
const ChallengeAuditDestination string = "custody.challenge.audit"

const (
	ChallengeAuditTypeIssued    string = "challenge.issued"
	ChallengeAuditTypeValidated string = "challenge.validated"
)

// ChallengeAuditMessage records one issue or one validation outcome. It never
// carries the nonce, the response, the seed or the contextual secret.
type ChallengeAuditMessage struct {
	EventID       int64     `json:"event_id"`
	Type          string    `json:"type"`
	ChallengeID   string    `json:"challenge_id"`
	TransactionID string    `json:"transaction_id,omitempty"`
	GuardianID    string    `json:"guardian_id,omitempty"`
	Accepted      bool      `json:"accepted"`
	Reason        string    `json:"reason,omitempty"`
	Attempt       int       `json:"attempt,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}
