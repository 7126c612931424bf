package sqlite

import (
	"context"
	"database/sql"

	"github.com/lexsuite/praksa-auth/internal/auth/domain"
)

type activityRepo struct {
	db dbtx
}

func (r *activityRepo) CreateActivityEntry(ctx context.Context, e domain.ActivityEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO activity_log (id, org_id, user_id, event, context, detail, ip_address)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OrgID, mapOptionalString(e.UserID), e.Event, e.Context, e.Detail, e.IPAddress,
	)
	return err
}

func (r *activityRepo) ListRecentActivity(ctx context.Context, orgID string, limit int) ([]domain.ActivityEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, org_id, user_id, event, context, detail, ip_address, created_at
		FROM activity_log
		WHERE org_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		orgID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.ActivityEntry
	for rows.Next() {
		var (
			e      domain.ActivityEntry
			userID sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.OrgID, &userID, &e.Event, &e.Context, &e.Detail, &e.IPAddress, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.UserID = mapNullStringPtr(userID)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
