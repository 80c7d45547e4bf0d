package usecase

import (
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/gocustody/internal/challenge/entity"
	"github.com/shandysiswandi/gocustody/internal/pkg/clock"
	"github.com/shandysiswandi/gocustody/internal/pkg/config"
	"github.com/shandysiswandi/gocustody/internal/pkg/goroutine"
	"github.com/shandysiswandi/gocustody/internal/pkg/instrument"
	"github.com/shandysiswandi/gocustody/internal/pkg/otp"
	"github.com/shandysiswandi/gocustody/internal/pkg/uid"
	"github.com/shandysiswandi/gocustody/internal/pkg/validator"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTTL               = 5 * time.Minute
	defaultMaxAttempts       = 5
	defaultConsumedRetention = time.Minute
	defaultSkew              = 1
)

// ChallengeAuditEvent is published for every issue and every validation outcome.
type ChallengeAuditEvent struct {
	EventID       int64
	Type          string
	ChallengeID   string
	TransactionID string
	GuardianID    string
	Accepted      bool
	Reason        string
	Attempt       int
	OccurredAt    time.Time
	CorrelationID string
}

type repoStore interface {
	Put(ctx context.Context, ch entity.Challenge, ttl time.Duration) error
	Get(ctx context.Context, id string) (*entity.Challenge, error)
	Delete(ctx context.Context, id string) error
	CompareAndIncrementAttempt(ctx context.Context, id string) (int, error)
	MarkConsumed(ctx context.Context, id string, retention time.Duration) (bool, error)
}

type repoSecret interface {
	GetTOTPCode(ctx context.Context, guardianID string, at time.Time, offset int) (string, error)
	GetContextualSecret(ctx context.Context, transactionID string) ([]byte, error)
}

type repoMessaging interface {
	PublishChallengeAudit(ctx context.Context, msg ChallengeAuditEvent) error
}

type Usecase struct {
	repoStore     repoStore
	repoSecret    repoSecret
	repoMessaging repoMessaging
	validator     validator.Validator
	cfg           config.Config
	uuid          uid.StringID
	uid           uid.NumberID
	clock         clock.Clocker
	totp          otp.OTP
	rand          io.Reader
	ins           instrument.Instrumentation
	goroutine     *goroutine.Manager

	issuedCounter  metric.Int64Counter
	outcomeCounter metric.Int64Counter
}

type Dependency struct {
	RepoStore     repoStore
	RepoSecret    repoSecret
	RepoMessaging repoMessaging
	Validator     validator.Validator
	Config        config.Config
	UUID          uid.StringID
	UID           uid.NumberID
	Clock         clock.Clocker
	// Totp supplies the accepted window skew.
	Totp otp.OTP
	// Rand is the nonce source. It defaults to crypto/rand.
	Rand       io.Reader
	Instrument instrument.Instrumentation
	Goroutine  *goroutine.Manager
}

func New(dep Dependency) *Usecase {
	s := &Usecase{
		repoStore:     dep.RepoStore,
		repoSecret:    dep.RepoSecret,
		repoMessaging: dep.RepoMessaging,
		validator:     dep.Validator,
		cfg:           dep.Config,
		uuid:          dep.UUID,
		uid:           dep.UID,
		clock:         dep.Clock,
		totp:          dep.Totp,
		rand:          dep.Rand,
		ins:           dep.Instrument,
		goroutine:     dep.Goroutine,
	}
	if s.rand == nil {
		s.rand = rand.Reader
	}

	meter := s.ins.Meter("challenge.usecase")

	var err error
	s.issuedCounter, err = meter.Int64Counter("custody.challenge.issued", metric.WithDescription("Number of challenges issued"))
	if err != nil {
		slog.Error("failed to create challenge issued counter", "error", err)
	}
	s.outcomeCounter, err = meter.Int64Counter("custody.challenge.outcomes", metric.WithDescription("Number of validation outcomes by reason"))
	if err != nil {
		slog.Error("failed to create challenge outcome counter", "error", err)
	}

	return s
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("challenge.usecase").Start(ctx, name)
}

func (s *Usecase) challengeTTL() time.Duration {
	if d := s.cfg.GetSecond("modules.challenge.ttl_seconds"); d != 0 {
		return d
	}
	return defaultTTL
}

func (s *Usecase) maxAttempts() int {
	if n := s.cfg.GetInt("modules.challenge.max_attempts"); n > 0 {
		return n
	}
	return defaultMaxAttempts
}

// consumedRetention is how long an accepted challenge stays readable so a
// replay reports AlreadyConsumed. A negative value removes it on accept.
func (s *Usecase) consumedRetention() time.Duration {
	if d := s.cfg.GetSecond("modules.challenge.consumed_retention_seconds"); d != 0 {
		return d
	}
	return defaultConsumedRetention
}

func (s *Usecase) skew() int {
	if s.totp == nil {
		return defaultSkew
	}
	return int(s.totp.Skew())
}

func (s *Usecase) countOutcome(ctx context.Context, out *entity.Outcome) {
	if s.outcomeCounter == nil {
		return
	}
	s.outcomeCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("accepted", out.Accepted),
		attribute.String("reason", out.Reason.String()),
	))
}

// audit publishes ev in the background with retry. A failed publish is
// logged and never changes the result returned to the caller.
func (s *Usecase) audit(ctx context.Context, ev ChallengeAuditEvent) {
	if s.repoMessaging == nil {
		return
	}

	ev.EventID = s.uid.Generate()
	ev.CorrelationID = instrument.GetCorrelationID(ctx)

	s.goroutine.Go(ctx, func(ctx context.Context) error {
		b := retry.NewFibonacci(100 * time.Millisecond)
		b = retry.WithCappedDuration(2*time.Second, b)
		b = retry.WithMaxRetries(3, b)
		err := retry.Do(ctx, b, func(ctx context.Context) error {
			if err := s.repoMessaging.PublishChallengeAudit(ctx, ev); err != nil {
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to publish challenge audit event", "challenge_id", ev.ChallengeID, "type", ev.Type, "error", err)
		}
		return err
	})
}
