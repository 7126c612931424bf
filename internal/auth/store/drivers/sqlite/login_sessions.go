package sqlite

import (
	"context"
	"time"

	"github.com/lexsuite/praksa-auth/internal/auth/domain"
)

type loginSessionsRepo struct {
	db dbtx
}

func (r *loginSessionsRepo) CreateLoginSession(ctx context.Context, s domain.LoginSession) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO login_sessions (id, user_id, attempts, expires_at) VALUES (?, ?, ?, ?)`,
		s.ID, s.UserID, s.Attempts, s.ExpiresAt.UTC(),
	)
	return err
}

func (r *loginSessionsRepo) GetLoginSession(ctx context.Context, id string) (domain.LoginSession, error) {
	var s domain.LoginSession
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, attempts, created_at, expires_at
		FROM login_sessions
		WHERE id = ? AND expires_at > ?`,
		id, time.Now().UTC(),
	).Scan(&s.ID, &s.UserID, &s.Attempts, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		return domain.LoginSession{}, mapNotFound(err)
	}
	return s, nil
}

func (r *loginSessionsRepo) IncrementLoginSessionAttempts(ctx context.Context, id string) (domain.LoginSession, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE login_sessions SET attempts = attempts + 1 WHERE id = ?`, id)
	if err := requireRow(res, err); err != nil {
		return domain.LoginSession{}, err
	}
	return r.GetLoginSession(ctx, id)
}

func (r *loginSessionsRepo) DeleteLoginSession(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM login_sessions WHERE id = ?`, id)
	return err
}

func (r *loginSessionsRepo) DeleteExpiredLoginSessions(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM login_sessions WHERE expires_at <= ?`, time.Now().UTC())
	return err
}
