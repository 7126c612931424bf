package sqlite

import (
	"context"

	"github.com/lexsuite/praksa-auth/internal/auth/domain"
)

type organizationsRepo struct {
	db dbtx
}

func (r *organizationsRepo) GetOrganizationByID(ctx context.Context, id string) (domain.Organization, error) {
	var org domain.Organization
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at FROM organizations WHERE id = ?`, id,
	).Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return domain.Organization{}, mapNotFound(err)
	}
	return org, nil
}

func (r *organizationsRepo) CreateOrganization(ctx context.Context, org domain.Organization) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO organizations (id, name) VALUES (?, ?)`, org.ID, org.Name)
	return err
}
