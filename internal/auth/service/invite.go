package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lexsuite/praksa-auth/internal/auth/domain"
	"github.com/lexsuite/praksa-auth/internal/auth/store"
	"github.com/lexsuite/praksa-auth/pkg/cryptox"
	"github.com/lexsuite/praksa-auth/pkg/idx"
	"github.com/lexsuite/praksa-auth/pkg/slogx"
)

// DefaultInviteTTL is how long an invite link stays redeemable.
const DefaultInviteTTL = 7 * 24 * time.Hour

var (
	ErrInvalidInviteRequest = errors.New("invalid invite request")
	ErrInvalidRole          = errors.New("invalid role")
	ErrInviteNotFound       = errors.New("invite not found or expired")
	ErrEmailAlreadyTaken    = errors.New("email already registered")
	ErrWeakPassword         = errors.New("password too short")
)

// minPasswordLength applies when an invited user sets their first password.
const minPasswordLength = 10

type InviteService struct {
	Store store.Store
}

// MintInvite creates a pending member account and an invite token for it.
// The account has no password and stays inactive until the invite is
// accepted. Returns the raw token; only its fingerprint is stored.
func (s *InviteService) MintInvite(ctx context.Context, orgID, email, role, createdBy string) (string, error) {
	log := slogx.FromContext(ctx)

	email = strings.TrimSpace(email)
	if orgID == "" || email == "" || !strings.Contains(email, "@") {
		return "", ErrInvalidInviteRequest
	}

	switch role {
	case domain.RoleAdmin, domain.RoleLawyer, domain.RoleStaff:
	default:
		log.Warn("attempted to create invite with invalid role",
			slog.String("role", role),
		)
		return "", ErrInvalidRole
	}

	if _, err := s.Store.Users().GetUserByEmail(ctx, email); err == nil {
		return "", ErrEmailAlreadyTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("failed to check email availability: %w", err)
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", fmt.Errorf("failed to generate invite token: %w", err)
	}

	userID := idx.New().String()
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		user := domain.User{
			ID:     userID,
			Email:  email,
			Role:   role,
			OrgID:  orgID,
			Active: false,
		}
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			return fmt.Errorf("failed to create pending user: %w", err)
		}

		invite := domain.Invite{
			ID:        idx.New().String(),
			OrgID:     orgID,
			UserID:    userID,
			TokenHash: cryptox.FingerprintToken(token),
			CreatedBy: createdBy,
			ExpiresAt: time.Now().Add(DefaultInviteTTL),
		}
		if err := tx.Invites().CreateInvite(ctx, invite); err != nil {
			return fmt.Errorf("failed to create invite: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logActivity(ctx, orgID, createdBy, domain.ActivityInviteCreated, "invited "+email)
	log.Info("invite minted",
		slog.String("org_id", orgID),
		slog.String("created_by", createdBy),
	)
	return token, nil
}

// AcceptInvite redeems an invite token, sets the member's first password,
// and activates the account.
func (s *InviteService) AcceptInvite(ctx context.Context, token, displayName, password string) (domain.Identity, error) {
	if token == "" || password == "" {
		return domain.Identity{}, ErrInvalidInviteRequest
	}
	if len(password) < minPasswordLength {
		return domain.Identity{}, ErrWeakPassword
	}

	invite, err := s.Store.Invites().GetActiveInviteByTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Identity{}, ErrInviteNotFound
		}
		return domain.Identity{}, fmt.Errorf("failed to look up invite: %w", err)
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("failed to hash password: %w", err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		// MarkInviteUsed is conditional on used = FALSE, so a raced
		// double acceptance fails here and rolls back.
		if err := tx.Invites().MarkInviteUsed(ctx, invite.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInviteNotFound
			}
			return fmt.Errorf("failed to mark invite used: %w", err)
		}
		if err := tx.Users().ActivateWithPassword(ctx, invite.UserID, displayName, hash); err != nil {
			return fmt.Errorf("failed to activate user: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Identity{}, err
	}

	user, err := s.Store.Users().GetUserByID(ctx, invite.UserID)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("failed to load activated user: %w", err)
	}

	s.logActivity(ctx, invite.OrgID, user.ID, domain.ActivityInviteAccepted, "")
	return user.Identity(), nil
}

func (s *InviteService) logActivity(ctx context.Context, orgID, userID, event, detail string) {
	entry := domain.ActivityEntry{
		ID:     idx.New().String(),
		OrgID:  orgID,
		UserID: &userID,
		Event:  event,
		Detail: detail,
	}
	if err := s.Store.Activity().CreateActivityEntry(ctx, entry); err != nil {
		slogx.FromContext(ctx).Warn("failed to record activity entry",
			"event", event, "error", err)
	}
}
