package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lexsuite/praksa-auth/internal/auth/domain"
	"github.com/lexsuite/praksa-auth/internal/auth/store"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func newTwoFactorService(t *testing.T) *TwoFactorService {
	t.Helper()
	return &TwoFactorService{Store: newTestStore(t), Issuer: "praksa-test"}
}

func openLoginSession(t *testing.T, st store.Store, userID string) string {
	t.Helper()

	session := domain.LoginSession{
		ID:        "01TESTSESSION" + userID[:10],
		UserID:    userID,
		ExpiresAt: time.Now().Add(LoginSessionTTL),
	}
	require.NoError(t, st.LoginSessions().CreateLoginSession(context.Background(), session))
	return session.ID
}

func TestEnroll(t *testing.T) {
	t.Run("stores secret without enabling", func(t *testing.T) {
		svc := newTwoFactorService(t)
		user := seedUser(t, svc.Store, testUserOpts{password: "correct-horse-battery"})

		resp, err := svc.Enroll(context.Background(), user.ID)
		require.NoError(t, err)
		require.NotEmpty(t, resp.Secret)
		require.True(t, strings.HasPrefix(resp.URL, "otpauth://totp/"))
		require.NotEmpty(t, resp.QRCode)
		require.Equal(t, user.Email, resp.Account)

		stored, err := svc.Store.Users().GetUserByID(context.Background(), user.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.TwoFactorSecret)
		require.Equal(t, resp.Secret, *stored.TwoFactorSecret)
		require.False(t, stored.TwoFactorEnabled)
		require.Nil(t, stored.TwoFactorVerifiedAt)
	})

	t.Run("re-enrolling replaces an unverified secret", func(t *testing.T) {
		svc := newTwoFactorService(t)
		user := seedUser(t, svc.Store, testUserOpts{password: "correct-horse-battery"})

		first, err := svc.Enroll(context.Background(), user.ID)
		require.NoError(t, err)
		second, err := svc.Enroll(context.Background(), user.ID)
		require.NoError(t, err)
		require.NotEqual(t, first.Secret, second.Secret)
	})

	t.Run("rejected once enabled", func(t *testing.T) {
		svc := newTwoFactorService(t)
		user := seedUser(t, svc.Store, testUserOpts{
			password: "correct-horse-battery", totpSecret: newTOTPSecret(t), enabled: true,
		})

		_, err := svc.Enroll(context.Background(), user.ID)
		require.ErrorIs(t, err, ErrTwoFactorEnabled)
	})
}

func TestVerifySession(t *testing.T) {
	t.Run("first verification enables and issues backup codes", func(t *testing.T) {
		svc := newTwoFactorService(t)
		secret := newTOTPSecret(t)
		user := seedUser(t, svc.Store, testUserOpts{
			password: "correct-horse-battery", totpSecret: secret,
		})

		code, err := totp.GenerateCode(secret, time.Now())
		require.NoError(t, err)

		codes, err := svc.VerifySession(context.Background(), user.ID, code)
		require.NoError(t, err)
		require.Len(t, codes, 8)
		for _, c := range codes {
			require.Len(t, c, 8)
			require.Equal(t, strings.ToUpper(c), c)
		}

		stored, err := svc.Store.Users().GetUserByID(context.Background(), user.ID)
		require.NoError(t, err)
		require.True(t, stored.TwoFactorEnabled)
		require.NotNil(t, stored.TwoFactorVerifiedAt)

		remaining, err := svc.Store.BackupCodes().CountUnconsumedBackupCodes(context.Background(), user.ID)
		require.NoError(t, err)
		require.Equal(t, 8, remaining)

		require.Len(t, entriesForEvent(t, svc.Store, user.OrgID, domain.ActivityTwoFactorEnabled), 1)
		require.Len(t, entriesForEvent(t, svc.Store, user.OrgID, domain.ActivityTwoFactorSuccess), 1)
	})

	t.Run("later verifications return no codes", func(t *testing.T) {
		svc := newTwoFactorService(t)
		secret := newTOTPSecret(t)
		user := seedUser(t, svc.Store, testUserOpts{
			password: "correct-horse-battery", totpSecret: secret, enabled: true,
		})

		code, err := totp.GenerateCode(secret, time.Now())
		require.NoError(t, err)

		codes, err := svc.VerifySession(context.Background(), user.ID, code)
		require.NoError(t, err)
		require.Nil(t, codes)
	})

	t.Run("error taxonomy", func(t *testing.T) {
		svc := newTwoFactorService(t)
		secret := newTOTPSecret(t)
		user := seedUser(t, svc.Store, testUserOpts{
			password: "correct-horse-battery", totpSecret: secret, enabled: true,
		})

		_, err := svc.VerifySession(context.Background(), user.ID, "")
		require.ErrorIs(t, err, ErrMissingCode)

		_, err = svc.VerifySession(context.Background(), user.ID, "12 345")
		require.ErrorIs(t, err, ErrInvalidCodeFormat)

		_, err = svc.VerifySession(context.Background(), user.ID, "000000")
		require.ErrorIs(t, err, ErrInvalidCode)

		_, err = svc.VerifySession(context.Background(), "01UNKNOWNUSER0000000000000", "123456")
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("not configured", func(t *testing.T) {
		svc := newTwoFactorService(t)
		user := seedUser(t, svc.Store, testUserOpts{password: "correct-horse-battery"})

		_, err := svc.VerifySession(context.Background(), user.ID, "123456")
		require.ErrorIs(t, err, ErrTwoFactorNotConfigured)
	})
}

func TestVerifyLogin(t *testing.T) {
	t.Run("valid code mints a proof and destroys the session", func(t *testing.T) {
		svc := newTwoFactorService(t)
		secret := newTOTPSecret(t)
		user := seedUser(t, svc.Store, testUserOpts{
			password: "correct-horse-battery", totpSecret: secret, enabled: true,
		})
		sessionID := openLoginSession(t, svc.Store, user.ID)

		code, err := totp.GenerateCode(secret, time.Now())
		require.NoError(t, err)

		proof, verified, err := svc.VerifyLogin(context.Background(), sessionID, code)
		require.NoError(t, err)
		require.NotEmpty(t, proof)
		require.Equal(t, user.ID, verified.ID)

		_, err = svc.Store.LoginSessions().GetLoginSession(context.Background(), sessionID)
		require.ErrorIs(t, err, store.ErrNotFound)

		require.Len(t, entriesForEvent(t, svc.Store, user.OrgID, domain.ActivityTwoFactorSuccess), 1)
	})

	t.Run("unknown session", func(t *testing.T) {
		svc := newTwoFactorService(t)

		_, _, err := svc.VerifyLogin(context.Background(), "01NOSUCHSESSION0000000000", "123456")
		require.ErrorIs(t, err, ErrSessionExpired)
	})

	t.Run("wrong code increments attempts and redacts the audit detail", func(t *testing.T) {
		svc := newTwoFactorService(t)
		secret := newTOTPSecret(t)
		user := seedUser(t, svc.Store, testUserOpts{
			password: "correct-horse-battery", totpSecret: secret, enabled: true,
		})
		sessionID := openLoginSession(t, svc.Store, user.ID)

		_, _, err := svc.VerifyLogin(context.Background(), sessionID, "123456")
		require.ErrorIs(t, err, ErrInvalidCode)

		session, err := svc.Store.LoginSessions().GetLoginSession(context.Background(), sessionID)
		require.NoError(t, err)
		require.Equal(t, 1, session.Attempts)

		failures := entriesForEvent(t, svc.Store, user.OrgID, domain.ActivityTwoFactorFailed)
		require.Len(t, failures, 1)
		require.Equal(t, "code 12****", failures[0].Detail)
		require.NotContains(t, failures[0].Detail, "123456")
	})

	t.Run("fifth failure destroys the session", func(t *testing.T) {
		svc := newTwoFactorService(t)
		secret := newTOTPSecret(t)
		user := seedUser(t, svc.Store, testUserOpts{
			password: "correct-horse-battery", totpSecret: secret, enabled: true,
		})
		sessionID := openLoginSession(t, svc.Store, user.ID)

		for i := 0; i < MaxAttempts-1; i++ {
			_, _, err := svc.VerifyLogin(context.Background(), sessionID, "000000")
			require.ErrorIs(t, err, ErrInvalidCode)
		}

		_, _, err := svc.VerifyLogin(context.Background(), sessionID, "000000")
		require.ErrorIs(t, err, ErrTooManyAttempts)

		// A correct code no longer helps; the session is gone.
		code, err := totp.GenerateCode(secret, time.Now())
		require.NoError(t, err)
		_, _, err = svc.VerifyLogin(context.Background(), sessionID, code)
		require.ErrorIs(t, err, ErrSessionExpired)
	})
}

func TestBackupCodes(t *testing.T) {
	enableWithCodes := func(t *testing.T, svc *TwoFactorService) (domain.User, []string) {
		t.Helper()
		secret := newTOTPSecret(t)
		user := seedUser(t, svc.Store, testUserOpts{
			password: "correct-horse-battery", totpSecret: secret,
		})
		code, err := totp.GenerateCode(secret, time.Now())
		require.NoError(t, err)
		codes, err := svc.VerifySession(context.Background(), user.ID, code)
		require.NoError(t, err)
		return user, codes
	}

	t.Run("backup code verifies once and only once", func(t *testing.T) {
		svc := newTwoFactorService(t)
		user, codes := enableWithCodes(t, svc)

		_, err := svc.VerifySession(context.Background(), user.ID, codes[0])
		require.NoError(t, err)
		require.Len(t, entriesForEvent(t, svc.Store, user.OrgID, domain.ActivityBackupCodeUsed), 1)

		_, err = svc.VerifySession(context.Background(), user.ID, codes[0])
		require.ErrorIs(t, err, ErrInvalidCode)
	})

	t.Run("backup codes match case-insensitively", func(t *testing.T) {
		svc := newTwoFactorService(t)
		user, codes := enableWithCodes(t, svc)

		_, err := svc.VerifySession(context.Background(), user.ID, strings.ToLower(codes[1]))
		require.NoError(t, err)
	})

	t.Run("concurrent submissions of one code produce a single winner", func(t *testing.T) {
		svc := newTwoFactorService(t)
		user, codes := enableWithCodes(t, svc)

		const workers = 8
		var wg sync.WaitGroup
		results := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.VerifySession(context.Background(), user.ID, codes[2])
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var wins int
		for err := range results {
			if err == nil {
				wins++
			} else {
				require.ErrorIs(t, err, ErrInvalidCode)
			}
		}
		require.Equal(t, 1, wins)
	})

	t.Run("regenerate replaces the whole set", func(t *testing.T) {
		svc := newTwoFactorService(t)
		user, oldCodes := enableWithCodes(t, svc)

		// A backup code counts as a currently-valid code for proving
		// possession.
		newCodes, err := svc.RegenerateBackupCodes(context.Background(), user.ID, oldCodes[3])
		require.NoError(t, err)
		require.Len(t, newCodes, 8)
		require.NotEqual(t, oldCodes, newCodes)

		_, err = svc.VerifySession(context.Background(), user.ID, oldCodes[0])
		require.ErrorIs(t, err, ErrInvalidCode)

		_, err = svc.VerifySession(context.Background(), user.ID, newCodes[0])
		require.NoError(t, err)
	})

	t.Run("regenerate requires enabled two-factor", func(t *testing.T) {
		svc := newTwoFactorService(t)
		user := seedUser(t, svc.Store, testUserOpts{password: "correct-horse-battery"})

		_, err := svc.RegenerateBackupCodes(context.Background(), user.ID, "123456")
		require.ErrorIs(t, err, ErrTwoFactorNotConfigured)
	})
}

func TestDisable(t *testing.T) {
	t.Run("valid code disables and wipes codes", func(t *testing.T) {
		svc := newTwoFactorService(t)
		secret := newTOTPSecret(t)
		user := seedUser(t, svc.Store, testUserOpts{
			password: "correct-horse-battery", totpSecret: secret, enabled: true,
		})

		code, err := totp.GenerateCode(secret, time.Now())
		require.NoError(t, err)
		require.NoError(t, svc.Disable(context.Background(), user.ID, code))

		stored, err := svc.Store.Users().GetUserByID(context.Background(), user.ID)
		require.NoError(t, err)
		require.False(t, stored.TwoFactorEnabled)
		require.Nil(t, stored.TwoFactorSecret)
		require.Nil(t, stored.TwoFactorVerifiedAt)

		remaining, err := svc.Store.BackupCodes().CountUnconsumedBackupCodes(context.Background(), user.ID)
		require.NoError(t, err)
		require.Zero(t, remaining)
	})

	t.Run("wrong code leaves two-factor on", func(t *testing.T) {
		svc := newTwoFactorService(t)
		user := seedUser(t, svc.Store, testUserOpts{
			password: "correct-horse-battery", totpSecret: newTOTPSecret(t), enabled: true,
		})

		err := svc.Disable(context.Background(), user.ID, "000000")
		require.ErrorIs(t, err, ErrInvalidCode)

		stored, err := svc.Store.Users().GetUserByID(context.Background(), user.ID)
		require.NoError(t, err)
		require.True(t, stored.TwoFactorEnabled)
	})
}
