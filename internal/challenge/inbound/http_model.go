package inbound

import (
	"net/http"
	"time"
)

type ChallengeResponse struct {
	ChallengeID   string    `json:"challenge_id"`
	TransactionID string    `json:"transaction_id"`
	GuardianID    string    `json:"guardian_id"`
	Nonce         string    `json:"nonce"` // hex
	Suite         string    `json:"suite"`
	IssuedAt      time.Time `json:"issued_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

func (ChallengeResponse) StatusCode() int { return http.StatusCreated }

func (ChallengeResponse) Message() string { return "challenge issued" }

type VerifyRequest struct {
	Response string `json:"response"`
}

type VerifyResponse struct {
	Accepted bool `json:"accepted"`
}

func (VerifyResponse) Message() string { return "response accepted" }
