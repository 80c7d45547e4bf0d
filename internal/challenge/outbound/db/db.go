// Package db is the Postgres secret provider. Guardian TOTP seeds and
// transaction contextual secrets are stored sealed and opened per request.
package db

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shandysiswandi/gocustody/internal/challenge/entity"
	"github.com/shandysiswandi/gocustody/internal/pkg/instrument"
	"github.com/shandysiswandi/gocustody/internal/pkg/otp"
	"github.com/shandysiswandi/gocustody/internal/pkg/seal"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Schema creates the tables the provider reads.
//
//go:embed schema.sql
var Schema string

// StatusAwaitingApproval is the only transaction status that serves a
// contextual secret.
const StatusAwaitingApproval = "AWAITING_APPROVAL"

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type DB struct {
	conn      querier
	encryptor seal.Encryptor
	totp      otp.OTP
	ins       instrument.Instrumentation
}

func NewDB(conn querier, encryptor seal.Encryptor, totp otp.OTP, ins instrument.Instrumentation) *DB {
	return &DB{conn: conn, encryptor: encryptor, totp: totp, ins: ins}
}

func (s *DB) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.ErrSecretNotFound
	}
	return fmt.Errorf("%w: %w", entity.ErrSecretProviderUnavailable, err)
}

func (s *DB) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("challenge.outbound.db").Start(ctx, name)
}

func (s *DB) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, entity.ErrSecretNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
