package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/lexsuite/praksa-auth/internal/auth/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, email, display_name, password_hash, role, org_id, is_active,
	two_factor_secret, two_factor_enabled, two_factor_verified_at, created_at, updated_at`

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u          domain.User
		hash       sql.NullString
		secret     sql.NullString
		verifiedAt sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.DisplayName, &hash, &u.Role, &u.OrgID, &u.Active,
		&secret, &u.TwoFactorEnabled, &verifiedAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.PasswordHash = mapNullStringPtr(hash)
	u.TwoFactorSecret = mapNullStringPtr(secret)
	u.TwoFactorVerifiedAt = mapNullTimePtr(verifiedAt)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	// email column is COLLATE NOCASE, so the comparison is case-insensitive
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, password_hash, role, org_id, is_active,
			two_factor_secret, two_factor_enabled, two_factor_verified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.DisplayName, mapOptionalString(u.PasswordHash), u.Role, u.OrgID,
		u.Active, mapOptionalString(u.TwoFactorSecret), u.TwoFactorEnabled,
		mapOptionalTime(u.TwoFactorVerifiedAt),
	)
	return err
}

func (r *usersRepo) ActivateWithPassword(ctx context.Context, userID, displayName, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET display_name = ?, password_hash = ?, is_active = TRUE, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		displayName, passwordHash, userID,
	)
	return requireRow(res, err)
}

func (r *usersRepo) SetActive(ctx context.Context, userID string, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		active, userID,
	)
	return requireRow(res, err)
}

func (r *usersRepo) UpdateTwoFactorSecret(ctx context.Context, userID, secret string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET two_factor_secret = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		secret, userID,
	)
	return requireRow(res, err)
}

func (r *usersRepo) EnableTwoFactor(ctx context.Context, userID string, verifiedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET two_factor_enabled = TRUE, two_factor_verified_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		verifiedAt.UTC(), userID,
	)
	return requireRow(res, err)
}

func (r *usersRepo) DisableTwoFactor(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET two_factor_secret = NULL, two_factor_enabled = FALSE, two_factor_verified_at = NULL,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		userID,
	)
	return requireRow(res, err)
}
