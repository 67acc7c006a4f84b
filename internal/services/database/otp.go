// Package database provides database access for the Edumate platform.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"edumate-api/internal/models"
)

// maxOTPAttempts caps wrong guesses before a code is invalidated.
const maxOTPAttempts = 5

// OTPRepository stores phone verification codes.
type OTPRepository struct {
	db *DB
}

// NewOTPRepository creates a new OTP repository.
func NewOTPRepository(db *DB) *OTPRepository {
	return &OTPRepository{db: db}
}

// Save stores a fresh code for the phone, replacing any previous one and
// resetting the attempt counter.
func (r *OTPRepository) Save(ctx context.Context, phone, code string, expiry time.Duration) error {
	query := `
		INSERT INTO otp_codes (phone, code, expires_at, attempts, created_at)
		VALUES ($1, $2, $3, 0, now())
		ON CONFLICT (phone) DO UPDATE SET
			code = EXCLUDED.code,
			expires_at = EXCLUDED.expires_at,
			attempts = 0,
			created_at = EXCLUDED.created_at`

	_, err := r.db.ExecContext(ctx, query, phone, code, time.Now().UTC().Add(expiry))
	if err != nil {
		return fmt.Errorf("failed to save OTP code: %w", err)
	}
	return nil
}

// Verify checks a submitted code. A match consumes the code; a mismatch
// increments the attempt counter and invalidates the code once the cap is
// reached.
func (r *OTPRepository) Verify(ctx context.Context, phone, code string) error {
	var stored string
	var expiresAt time.Time
	var attempts int

	err := r.db.QueryRowContext(ctx,
		"SELECT code, expires_at, attempts FROM otp_codes WHERE phone = $1",
		phone,
	).Scan(&stored, &expiresAt, &attempts)
	if err == pgx.ErrNoRows {
		return models.ErrOTPExpired
	}
	if err != nil {
		return fmt.Errorf("failed to look up OTP code: %w", err)
	}

	if time.Now().UTC().After(expiresAt) || attempts >= maxOTPAttempts {
		_, _ = r.db.ExecContext(ctx, "DELETE FROM otp_codes WHERE phone = $1", phone)
		return models.ErrOTPExpired
	}

	if stored != code {
		_, _ = r.db.ExecContext(ctx,
			"UPDATE otp_codes SET attempts = attempts + 1 WHERE phone = $1", phone)
		return models.ErrOTPCodeMismatch
	}

	if _, err := r.db.ExecContext(ctx, "DELETE FROM otp_codes WHERE phone = $1", phone); err != nil {
		return fmt.Errorf("failed to consume OTP code: %w", err)
	}
	return nil
}
