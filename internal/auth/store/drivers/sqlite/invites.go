package sqlite

import (
	"context"
	"time"

	"github.com/lexsuite/praksa-auth/internal/auth/domain"
)

type invitesRepo struct {
	db dbtx
}

func (r *invitesRepo) CreateInvite(ctx context.Context, inv domain.Invite) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO invites (id, org_id, user_id, token_hash, created_by, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.OrgID, inv.UserID, inv.TokenHash, inv.CreatedBy, inv.ExpiresAt.UTC(),
	)
	return err
}

func (r *invitesRepo) GetActiveInviteByTokenHash(ctx context.Context, hash string) (domain.Invite, error) {
	var inv domain.Invite
	err := r.db.QueryRowContext(ctx, `
		SELECT id, org_id, user_id, token_hash, created_by, expires_at, used, created_at, updated_at
		FROM invites
		WHERE token_hash = ? AND used = FALSE AND expires_at > ?`,
		hash, time.Now().UTC(),
	).Scan(&inv.ID, &inv.OrgID, &inv.UserID, &inv.TokenHash, &inv.CreatedBy,
		&inv.ExpiresAt, &inv.Used, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return domain.Invite{}, mapNotFound(err)
	}
	return inv, nil
}

func (r *invitesRepo) MarkInviteUsed(ctx context.Context, inviteID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE invites SET used = TRUE, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND used = FALSE`,
		inviteID,
	)
	return requireRow(res, err)
}

func (r *invitesRepo) DeleteExpiredInvites(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM invites WHERE expires_at <= ? AND used = FALSE`, time.Now().UTC())
	return err
}
