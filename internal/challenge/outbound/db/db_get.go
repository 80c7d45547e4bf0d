package db

import (
	"context"
	"fmt"
	"time"

	"github.com/shandysiswandi/gocustody/internal/challenge/entity"
	"github.com/shandysiswandi/gocustody/internal/pkg/seal"
)

const queryGuardianSeed = `
SELECT totp_secret
FROM custody_guardians
WHERE id = $1 AND is_active
`

const queryTransactionSecret = `
SELECT secret
FROM custody_transaction_secrets
WHERE transaction_id = $1 AND status = $2
`

// GetTOTPCode returns the guardian's TOTP code for the window offset steps
// away from the one containing at. An unknown or inactive guardian yields
// entity.ErrSecretNotFound.
func (s *DB) GetTOTPCode(ctx context.Context, guardianID string, at time.Time, offset int) (code string, err error) {
	ctx, span := s.startSpan(ctx, "GetTOTPCode")
	defer func() { s.endSpan(span, err) }()

	var sealed []byte
	if err = s.conn.QueryRow(ctx, queryGuardianSeed, guardianID).Scan(&sealed); err != nil {
		return "", s.mapError(err)
	}

	seed, err := s.encryptor.Decrypt(sealed, seal.Scope{Subject: guardianID, Purpose: seal.PurposeTOTPSeed})
	if err != nil {
		return "", fmt.Errorf("%w: open totp seed: %w", entity.ErrSecretUnreadable, err)
	}

	code, err = s.totp.GenerateCodeAt(string(seed), at, offset)
	if err != nil {
		return "", fmt.Errorf("%w: totp code: %w", entity.ErrSecretUnreadable, err)
	}
	return code, nil
}

// GetContextualSecret returns the transaction's contextual secret while the
// transaction is awaiting approval; otherwise entity.ErrSecretNotFound.
func (s *DB) GetContextualSecret(ctx context.Context, transactionID string) (secret []byte, err error) {
	ctx, span := s.startSpan(ctx, "GetContextualSecret")
	defer func() { s.endSpan(span, err) }()

	var sealed []byte
	if err = s.conn.QueryRow(ctx, queryTransactionSecret, transactionID, StatusAwaitingApproval).Scan(&sealed); err != nil {
		return nil, s.mapError(err)
	}

	secret, err = s.encryptor.Decrypt(sealed, seal.Scope{Subject: transactionID, Purpose: seal.PurposeContextualSecret})
	if err != nil {
		return nil, fmt.Errorf("%w: open contextual secret: %w", entity.ErrSecretUnreadable, err)
	}
	return secret, nil
}
