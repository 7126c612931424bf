package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/lexsuite/praksa-auth/internal/auth/domain"
	"github.com/lexsuite/praksa-auth/internal/auth/store"
)

type sessionProofsRepo struct {
	db dbtx
}

func (r *sessionProofsRepo) CreateSessionProof(ctx context.Context, p domain.SessionProof) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session_proofs (id, user_id, token_hash, expires_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.UserID, p.TokenHash, p.ExpiresAt.UTC(),
	)
	return err
}

// RedeemSessionProof stamps redeemed_at on the matching live proof and
// returns it. Redeeming twice, or after expiry, yields ErrNotFound; the
// conditional UPDATE makes the first caller the only winner.
func (r *sessionProofsRepo) RedeemSessionProof(ctx context.Context, tokenHash string, at time.Time) (domain.SessionProof, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE session_proofs
		SET redeemed_at = ?
		WHERE token_hash = ? AND redeemed_at IS NULL AND expires_at > ?`,
		at.UTC(), tokenHash, at.UTC(),
	)
	if err != nil {
		return domain.SessionProof{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.SessionProof{}, err
	}
	if n == 0 {
		return domain.SessionProof{}, store.ErrNotFound
	}

	var (
		p          domain.SessionProof
		redeemedAt sql.NullTime
	)
	err = r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, created_at, expires_at, redeemed_at
		FROM session_proofs WHERE token_hash = ?`,
		tokenHash,
	).Scan(&p.ID, &p.UserID, &p.TokenHash, &p.CreatedAt, &p.ExpiresAt, &redeemedAt)
	if err != nil {
		return domain.SessionProof{}, mapNotFound(err)
	}
	p.RedeemedAt = mapNullTimePtr(redeemedAt)
	return p, nil
}

func (r *sessionProofsRepo) DeleteExpiredSessionProofs(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM session_proofs WHERE expires_at <= ?`, time.Now().UTC())
	return err
}
