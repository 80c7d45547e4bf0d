package inbound

import (
	"context"

	"github.com/shandysiswandi/gocustody/internal/challenge/entity"
	"github.com/shandysiswandi/gocustody/internal/challenge/usecase"
	"github.com/shandysiswandi/gocustody/internal/pkg/router"
)

// Casbin object and actions guarding the challenge endpoints.
const (
	PolicyObject       = "custody.challenge"
	PolicyActionIssue  = "issue"
	PolicyActionVerify = "verify"
)

type uc interface {
	Issue(ctx context.Context, in usecase.IssueInput) (*entity.ChallengeView, error)
	Validate(ctx context.Context, in usecase.ValidateInput) (*entity.Outcome, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.POST("/api/v1/custody/transactions/:transaction_id/challenges", end.IssueChallenge,
		r.Authorize(PolicyObject, PolicyActionIssue))
	r.POST("/api/v1/custody/challenges/:challenge_id/verify", end.VerifyChallenge,
		r.Authorize(PolicyObject, PolicyActionVerify))
}
