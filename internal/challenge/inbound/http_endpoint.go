package inbound

import (
	"encoding/hex"

	"github.com/shandysiswandi/gocustody/internal/challenge/usecase"
	"github.com/shandysiswandi/gocustody/internal/pkg/goerror"
	"github.com/shandysiswandi/gocustody/internal/pkg/jwt"
	"github.com/shandysiswandi/gocustody/internal/pkg/router"
)

// errVerificationFailed is the only thing a caller learns about a rejection.
var errVerificationFailed = goerror.NewBusiness("verification failed", goerror.CodeUnauthorized)

// HTTPEndpoint exposes the challenge-response workflow to authenticated guardians.
type HTTPEndpoint struct {
	uc uc
}

// IssueChallenge mints a challenge for the calling guardian on a transaction.
func (h *HTTPEndpoint) IssueChallenge(r *router.Request) (any, error) {
	claims := jwt.GetAuth(r.Context())
	if claims == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	view, err := h.uc.Issue(r.Context(), usecase.IssueInput{
		TransactionID: r.GetParam("transaction_id"),
		GuardianID:    claims.GuardianID,
	})
	if err != nil {
		return nil, err
	}

	return ChallengeResponse{
		ChallengeID:   view.ChallengeID,
		TransactionID: view.TransactionID,
		GuardianID:    view.GuardianID,
		Nonce:         hex.EncodeToString(view.Nonce),
		Suite:         view.Suite,
		IssuedAt:      view.IssuedAt,
		ExpiresAt:     view.ExpiresAt,
	}, nil
}

// VerifyChallenge checks the guardian's response and consumes the challenge.
func (h *HTTPEndpoint) VerifyChallenge(r *router.Request) (any, error) {
	claims := jwt.GetAuth(r.Context())
	if claims == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	var req VerifyRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	out, err := h.uc.Validate(r.Context(), usecase.ValidateInput{
		ChallengeID: r.GetParam("challenge_id"),
		Response:    req.Response,
		GuardianID:  claims.GuardianID,
	})
	if err != nil {
		return nil, err
	}
	if !out.Accepted {
		return nil, errVerificationFailed
	}

	return VerifyResponse{Accepted: true}, nil
}
