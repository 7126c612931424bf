package service

import (
	"context"
	"fmt"

	"github.com/lexsuite/praksa-auth/internal/auth/domain"
	"github.com/lexsuite/praksa-auth/internal/auth/store"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

// ActivityService serves the read side of the audit log.
type ActivityService struct {
	Store store.Store
}

// ListRecent returns the newest audit entries for an organization, newest
// first. A non-positive limit falls back to the default; the cap keeps a
// single request from dragging the whole log over the wire.
func (s *ActivityService) ListRecent(ctx context.Context, orgID string, limit int) ([]domain.ActivityEntry, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}

	entries, err := s.Store.Activity().ListRecentActivity(ctx, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	if entries == nil {
		entries = []domain.ActivityEntry{}
	}
	return entries, nil
}
