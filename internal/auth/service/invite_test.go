package service

import (
	"context"
	"testing"

	"github.com/lexsuite/praksa-auth/internal/auth/domain"
	"github.com/lexsuite/praksa-auth/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestInviteLifecycle(t *testing.T) {
	ctx := context.Background()

	newInviteService := func(t *testing.T) (*InviteService, domain.Organization, domain.User) {
		t.Helper()
		svc := &InviteService{Store: newTestStore(t)}
		admin := seedUser(t, svc.Store, testUserOpts{password: "correct-horse-battery"})
		org, err := svc.Store.Organizations().GetOrganizationByID(ctx, admin.OrgID)
		require.NoError(t, err)
		return svc, org, admin
	}

	t.Run("mint creates a pending passwordless account", func(t *testing.T) {
		svc, org, admin := newInviteService(t)

		token, err := svc.MintInvite(ctx, org.ID, "novi@test.hr", domain.RoleStaff, admin.ID)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		pending, err := svc.Store.Users().GetUserByEmail(ctx, "novi@test.hr")
		require.NoError(t, err)
		require.False(t, pending.Active)
		require.Nil(t, pending.PasswordHash)
		require.Equal(t, domain.RoleStaff, pending.Role)
	})

	t.Run("mint rejects bad input", func(t *testing.T) {
		svc, org, admin := newInviteService(t)

		_, err := svc.MintInvite(ctx, org.ID, "nije-email", domain.RoleStaff, admin.ID)
		require.ErrorIs(t, err, ErrInvalidInviteRequest)

		_, err = svc.MintInvite(ctx, org.ID, "novi@test.hr", "superuser", admin.ID)
		require.ErrorIs(t, err, ErrInvalidRole)

		_, err = svc.MintInvite(ctx, org.ID, admin.Email, domain.RoleStaff, admin.ID)
		require.ErrorIs(t, err, ErrEmailAlreadyTaken)
	})

	t.Run("accept activates the account exactly once", func(t *testing.T) {
		svc, org, admin := newInviteService(t)

		token, err := svc.MintInvite(ctx, org.ID, "novi@test.hr", domain.RoleLawyer, admin.ID)
		require.NoError(t, err)

		identity, err := svc.AcceptInvite(ctx, token, "Novi Odvjetnik", "vrlo-tajna-lozinka")
		require.NoError(t, err)
		require.Equal(t, "novi@test.hr", identity.Email)
		require.Equal(t, org.ID, identity.OrgID)

		activated, err := svc.Store.Users().GetUserByID(ctx, identity.ID)
		require.NoError(t, err)
		require.True(t, activated.Active)
		require.NotNil(t, activated.PasswordHash)

		_, err = svc.AcceptInvite(ctx, token, "Netko Drugi", "druga-dugacka-lozinka")
		require.ErrorIs(t, err, ErrInviteNotFound)
	})

	t.Run("accept enforces password length", func(t *testing.T) {
		svc, org, admin := newInviteService(t)

		token, err := svc.MintInvite(ctx, org.ID, "novi@test.hr", domain.RoleStaff, admin.ID)
		require.NoError(t, err)

		_, err = svc.AcceptInvite(ctx, token, "Novi", "kratka")
		require.ErrorIs(t, err, ErrWeakPassword)
	})

	t.Run("accept rejects unknown tokens", func(t *testing.T) {
		svc, _, _ := newInviteService(t)

		_, err := svc.AcceptInvite(ctx, idx.New().String(), "Nitko", "vrlo-tajna-lozinka")
		require.ErrorIs(t, err, ErrInviteNotFound)
	})
}
