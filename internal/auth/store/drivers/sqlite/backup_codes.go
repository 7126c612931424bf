package sqlite

import (
	"context"
	"time"

	"github.com/lexsuite/praksa-auth/pkg/idx"
)

type backupCodesRepo struct {
	db dbtx
}

func (r *backupCodesRepo) CreateBackupCode(ctx context.Context, userID, codeHash string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO backup_codes (id, user_id, code_hash) VALUES (?, ?, ?)`,
		idx.New().String(), userID, codeHash,
	)
	return err
}

// ConsumeBackupCode spends the matching unconsumed code. The WHERE clause
// includes consumed_at IS NULL, so when two requests race over the same code
// only one UPDATE touches a row.
func (r *backupCodesRepo) ConsumeBackupCode(ctx context.Context, userID, codeHash string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE backup_codes
		SET consumed_at = ?
		WHERE user_id = ? AND code_hash = ? AND consumed_at IS NULL`,
		at.UTC(), userID, codeHash,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *backupCodesRepo) DeleteAllBackupCodes(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM backup_codes WHERE user_id = ?`, userID)
	return err
}

func (r *backupCodesRepo) CountUnconsumedBackupCodes(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM backup_codes WHERE user_id = ? AND consumed_at IS NULL`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
