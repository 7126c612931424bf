package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lexsuite/praksa-auth/internal/auth/domain"
	"github.com/lexsuite/praksa-auth/internal/auth/store"
	"github.com/lexsuite/praksa-auth/internal/auth/store/drivers/sqlite"
	"github.com/lexsuite/praksa-auth/pkg/cryptox"
	"github.com/lexsuite/praksa-auth/pkg/idx"
	"github.com/lexsuite/praksa-auth/pkg/otpx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "praksa-auth-test")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

type testUserOpts struct {
	password   string
	inactive   bool
	totpSecret string
	enabled    bool
}

func seedUser(t *testing.T, st store.Store, opts testUserOpts) domain.User {
	t.Helper()
	ctx := context.Background()

	org := domain.Organization{ID: idx.New().String(), Name: "Odvjetnički ured Test"}
	require.NoError(t, st.Organizations().CreateOrganization(ctx, org))

	user := domain.User{
		ID:          idx.New().String(),
		Email:       "ana@test.hr",
		DisplayName: "Ana Testić",
		Role:        domain.RoleLawyer,
		OrgID:       org.ID,
		Active:      !opts.inactive,
	}
	if opts.password != "" {
		hash, err := cryptox.HashPassword(opts.password)
		require.NoError(t, err)
		user.PasswordHash = &hash
	}
	if opts.totpSecret != "" {
		user.TwoFactorSecret = &opts.totpSecret
		user.TwoFactorEnabled = opts.enabled
		if opts.enabled {
			now := time.Now()
			user.TwoFactorVerifiedAt = &now
		}
	}
	require.NoError(t, st.Users().CreateUser(ctx, user))
	return user
}

func newTOTPSecret(t *testing.T) string {
	t.Helper()

	key, err := otpx.GenerateSecret("ana@test.hr", "praksa-test")
	require.NoError(t, err)
	return key.Secret
}

func entriesForEvent(t *testing.T, st store.Store, orgID, event string) []domain.ActivityEntry {
	t.Helper()

	entries, err := st.Activity().ListRecentActivity(context.Background(), orgID, 100)
	require.NoError(t, err)

	var matched []domain.ActivityEntry
	for _, e := range entries {
		if e.Event == event {
			matched = append(matched, e)
		}
	}
	return matched
}
