package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

var ErrHandoffNotFound = errors.New("handoff code expired or already used")

// InsertHandoffCode stores a serialized session behind a single-use code.
func (r *Repository) InsertHandoffCode(ctx context.Context, code string, session []byte, expiresAt, now time.Time) error {
	if _, err := r.pool.Exec(ctx, `
		INSERT INTO handoff_codes (code, session, expires_at, created_at)
		VALUES ($1, $2::jsonb, $3, $4)
	`, code, string(session), expiresAt, now); err != nil {
		return fmt.Errorf("insert handoff code: %w", err)
	}
	return nil
}

// RedeemHandoffCode consumes a code and returns its session payload. The
// DELETE ... RETURNING makes redemption atomic: a concurrent second redeem
// finds no row.
func (r *Repository) RedeemHandoffCode(ctx context.Context, code string, now time.Time) ([]byte, error) {
	var session []byte
	err := r.pool.QueryRow(ctx, `
		DELETE FROM handoff_codes
		WHERE code = $1 AND expires_at > $2
		RETURNING session
	`, code, now).Scan(&session)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrHandoffNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redeem handoff code: %w", err)
	}
	return session, nil
}

// PurgeExpiredHandoffCodes clears codes past their TTL. Called periodically;
// correctness does not depend on it because redemption checks expiry itself.
func (r *Repository) PurgeExpiredHandoffCodes(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM handoff_codes WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("purge handoff codes: %w", err)
	}
	return tag.RowsAffected(), nil
}
