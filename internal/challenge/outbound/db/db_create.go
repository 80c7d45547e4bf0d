package db

import (
	"context"
	"fmt"

	"github.com/shandysiswandi/gocustody/internal/pkg/seal"
)

const upsertGuardian = `
INSERT INTO custody_guardians (id, role, totp_secret, is_active)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE
SET role = EXCLUDED.role, totp_secret = EXCLUDED.totp_secret, is_active = EXCLUDED.is_active, updated_at = now()
`

const upsertTransactionSecret = `
INSERT INTO custody_transaction_secrets (transaction_id, secret, status)
VALUES ($1, $2, $3)
ON CONFLICT (transaction_id) DO UPDATE
SET secret = EXCLUDED.secret, status = EXCLUDED.status, updated_at = now()
`

// Guardian is a row written by SeedGuardian.
type Guardian struct {
	ID       string
	Role     string
	TOTPSeed string // base32
	IsActive bool
}

// TransactionSecret is a row written by SeedTransactionSecret.
type TransactionSecret struct {
	TransactionID string
	Secret        []byte
	Status        string
}

// Migrate creates the provider tables when missing.
func (s *DB) Migrate(ctx context.Context) (err error) {
	ctx, span := s.startSpan(ctx, "Migrate")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, Schema)
	return s.mapError(err)
}

// SeedGuardian seals the guardian's seed and upserts the row. Enrollment
// lives elsewhere; this serves fixtures and local setups.
func (s *DB) SeedGuardian(ctx context.Context, g Guardian) (err error) {
	ctx, span := s.startSpan(ctx, "SeedGuardian")
	defer func() { s.endSpan(span, err) }()

	sealed, err := s.encryptor.Encrypt([]byte(g.TOTPSeed), seal.Scope{Subject: g.ID, Purpose: seal.PurposeTOTPSeed})
	if err != nil {
		return fmt.Errorf("seal totp seed: %w", err)
	}

	_, err = s.conn.Exec(ctx, upsertGuardian, g.ID, g.Role, sealed, g.IsActive)
	return s.mapError(err)
}

// SeedTransactionSecret seals the contextual secret and upserts the row.
func (s *DB) SeedTransactionSecret(ctx context.Context, ts TransactionSecret) (err error) {
	ctx, span := s.startSpan(ctx, "SeedTransactionSecret")
	defer func() { s.endSpan(span, err) }()

	sealed, err := s.encryptor.Encrypt(ts.Secret, seal.Scope{Subject: ts.TransactionID, Purpose: seal.PurposeContextualSecret})
	if err != nil {
		return fmt.Errorf("seal contextual secret: %w", err)
	}

	_, err = s.conn.Exec(ctx, upsertTransactionSecret, ts.TransactionID, sealed, ts.Status)
	return s.mapError(err)
}
