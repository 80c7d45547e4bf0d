package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/shandysiswandi/gocustody/internal/challenge/entity"
	"github.com/shandysiswandi/gocustody/internal/challenge/usecase"
	"github.com/shandysiswandi/gocustody/internal/pkg/clock"
	"github.com/shandysiswandi/gocustody/internal/pkg/goerror"
	"github.com/shandysiswandi/gocustody/internal/pkg/jwt"
	"github.com/shandysiswandi/gocustody/internal/pkg/router"
)

type fixedID string

func (f fixedID) Generate() string { return string(f) }

type fakeUsecase struct {
	issueIn    usecase.IssueInput
	validateIn usecase.ValidateInput
	outcome    *entity.Outcome
	err        error
}

func (f *fakeUsecase) Issue(_ context.Context, in usecase.IssueInput) (*entity.ChallengeView, error) {
	f.issueIn = in
	if f.err != nil {
		return nil, f.err
	}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &entity.ChallengeView{
		ChallengeID:   "tx-42-chal-001",
		TransactionID: in.TransactionID,
		GuardianID:    in.GuardianID,
		Nonce:         []byte{0xde, 0xad, 0xbe, 0xef},
		Suite:         "OCRA-1:HOTP-SHA256-8:QH64-PSHA256",
		IssuedAt:      at,
		ExpiresAt:     at.Add(5 * time.Minute),
	}, nil
}

func (f *fakeUsecase) Validate(_ context.Context, in usecase.ValidateInput) (*entity.Outcome, error) {
	f.validateIn = in
	return f.outcome, f.err
}

const policyModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

func newTestServer(t *testing.T, uc uc) (*httptest.Server, jwt.JWT) {
	t.Helper()

	j, err := jwt.NewHS512(jwt.Config{
		Secret:     []byte(strings.Repeat("k", 64)),
		Issuer:     "custody-login",
		Audiences:  []string{"gocustody"},
		TTLMinutes: time.Hour,
		Clock:      clock.New(),
		UUID:       fixedID("jti"),
	})
	if err != nil {
		t.Fatalf("jwt: %v", err)
	}

	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		t.Fatalf("enforcer: %v", err)
	}
	if _, err := e.AddPolicies([][]string{
		{"approver", PolicyObject, PolicyActionIssue},
		{"approver", PolicyObject, PolicyActionVerify},
	}); err != nil {
		t.Fatalf("policies: %v", err)
	}

	r := router.NewRouter(router.Config{JWT: j, UUID: fixedID("cid-1"), Enforcer: e})
	RegisterHTTPEndpoint(r, uc)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return srv, j
}

func do(t *testing.T, srv *httptest.Server, j jwt.JWT, role, path, body string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		tok, err := j.Generate("cfo-1", role)
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	var payload map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&payload)

	return resp, payload
}

func TestIssueChallenge(t *testing.T) {
	// Arrange
	uc := &fakeUsecase{}
	srv, j := newTestServer(t, uc)

	// Act
	resp, payload := do(t, srv, j, "approver", "/api/v1/custody/transactions/tx-42/challenges", "")

	// Assert
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if uc.issueIn.TransactionID != "tx-42" || uc.issueIn.GuardianID != "cfo-1" {
		t.Fatalf("input = %+v", uc.issueIn)
	}
	data, _ := payload["data"].(map[string]any)
	if data["challenge_id"] != "tx-42-chal-001" || data["nonce"] != "deadbeef" {
		t.Fatalf("data = %v", data)
	}
}

func TestIssueChallenge_Forbidden(t *testing.T) {
	uc := &fakeUsecase{}
	srv, j := newTestServer(t, uc)

	resp, _ := do(t, srv, j, "viewer", "/api/v1/custody/transactions/tx-42/challenges", "")

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
	if uc.issueIn.TransactionID != "" {
		t.Fatalf("usecase reached without permission")
	}
}

func TestVerifyChallenge(t *testing.T) {
	const path = "/api/v1/custody/challenges/tx-42-chal-001/verify"

	tests := []struct {
		name       string
		role       string
		body       string
		outcome    *entity.Outcome
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "Accepted",
			role:       "approver",
			body:       `{"response":"12345678"}`,
			outcome:    entity.Accepted(1),
			wantStatus: http.StatusOK,
		},
		{
			name:       "InvalidResponseIsGeneric",
			role:       "approver",
			body:       `{"response":"12345678"}`,
			outcome:    entity.Rejected(entity.ReasonInvalidResponse, 1),
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "verification failed",
		},
		{
			name:       "ExpiredIsGeneric",
			role:       "approver",
			body:       `{"response":"12345678"}`,
			outcome:    entity.Rejected(entity.ReasonExpired, 0),
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "verification failed",
		},
		{
			name:       "StorageUnavailable",
			role:       "approver",
			body:       `{"response":"12345678"}`,
			err:        goerror.NewUnavailable(errors.New("redis down")),
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "MalformedBody",
			role:       "approver",
			body:       `{"response":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "UnknownField",
			role:       "approver",
			body:       `{"response":"12345678","otp":"1"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "NoToken",
			body:       `{"response":"12345678"}`,
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Authentication required",
		},
		{
			name:       "WrongRole",
			role:       "viewer",
			body:       `{"response":"12345678"}`,
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &fakeUsecase{outcome: tt.outcome, err: tt.err}
			srv, j := newTestServer(t, uc)

			resp, payload := do(t, srv, j, tt.role, path, tt.body)

			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d (payload %v)", resp.StatusCode, tt.wantStatus, payload)
			}
			if tt.wantMsg != "" && payload["message"] != tt.wantMsg {
				t.Fatalf("message = %v, want %q", payload["message"], tt.wantMsg)
			}
			if tt.wantStatus == http.StatusServiceUnavailable && resp.Header.Get("Retry-After") == "" {
				t.Fatalf("missing Retry-After")
			}
		})
	}
}

func TestVerifyChallenge_PassesCaller(t *testing.T) {
	uc := &fakeUsecase{outcome: entity.Accepted(1)}
	srv, j := newTestServer(t, uc)

	do(t, srv, j, "approver", "/api/v1/custody/challenges/tx-42-chal-001/verify", `{"response":"12345678"}`)

	want := usecase.ValidateInput{ChallengeID: "tx-42-chal-001", Response: "12345678", GuardianID: "cfo-1"}
	if uc.validateIn != want {
		t.Fatalf("input = %+v, want %+v", uc.validateIn, want)
	}
}

func TestVerifyChallenge_RejectionsLookAlike(t *testing.T) {
	bodies := make(map[string]bool)
	for _, reason := range []entity.Reason{
		entity.ReasonChallengeNotFound,
		entity.ReasonExpired,
		entity.ReasonAlreadyConsumed,
		entity.ReasonAttemptsExhausted,
		entity.ReasonInvalidResponse,
		entity.ReasonSecretNotFound,
	} {
		uc := &fakeUsecase{outcome: entity.Rejected(reason, 1)}
		srv, j := newTestServer(t, uc)

		resp, payload := do(t, srv, j, "approver", "/api/v1/custody/challenges/c/verify", `{"response":"1"}`)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d", reason, resp.StatusCode)
		}
		bodies[fmt.Sprint(payload)] = true
	}

	if len(bodies) != 1 {
		t.Fatalf("rejections are distinguishable: %v", bodies)
	}
}
