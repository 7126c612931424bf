package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lexsuite/praksa-auth/internal/auth/domain"
	"github.com/lexsuite/praksa-auth/internal/auth/store"
	"github.com/lexsuite/praksa-auth/pkg/cryptox"
	"github.com/lexsuite/praksa-auth/pkg/idx"
	"github.com/lexsuite/praksa-auth/pkg/otpx"
	"github.com/lexsuite/praksa-auth/pkg/slogx"
)

const (
	// MaxAttempts is the cap on failed code submissions per login session.
	// Reaching it destroys the session; the client must log in again.
	MaxAttempts = 5

	qrSizePixels = 256
)

var (
	ErrMissingCode            = errors.New("missing verification code")
	ErrInvalidCodeFormat      = errors.New("malformed verification code")
	ErrTwoFactorNotConfigured = errors.New("two-factor not configured")
	ErrTwoFactorEnabled       = errors.New("two-factor already enabled")
	ErrInvalidCode            = errors.New("invalid verification code")
	ErrUserNotFound           = errors.New("user not found")
	ErrSessionExpired         = errors.New("login session expired")
	ErrTooManyAttempts        = errors.New("too many failed attempts")
)

// Verification methods reported by verifyEither.
const (
	methodTOTP       = "totp"
	methodBackupCode = "backup_code"
)

// TwoFactorService owns TOTP enrollment, code verification in both the
// login flow and the authenticated session flow, and backup-code lifecycle.
type TwoFactorService struct {
	Store  store.Store
	Issuer string // issuer label shown in authenticator apps
}

// Enroll generates a fresh TOTP secret for the user and returns the
// provisioning URL plus a QR rendering. Two-factor stays off until the user
// proves possession by verifying a code.
func (s *TwoFactorService) Enroll(ctx context.Context, userID string) (domain.EnrollResponse, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.EnrollResponse{}, ErrUserNotFound
		}
		return domain.EnrollResponse{}, fmt.Errorf("failed to load user: %w", err)
	}
	if user.TwoFactorEnabled {
		return domain.EnrollResponse{}, ErrTwoFactorEnabled
	}

	key, err := otpx.GenerateSecret(user.Email, s.Issuer)
	if err != nil {
		return domain.EnrollResponse{}, fmt.Errorf("failed to generate TOTP secret: %w", err)
	}

	// Re-enrolling before the first verification replaces the secret.
	if err := s.Store.Users().UpdateTwoFactorSecret(ctx, userID, key.Secret); err != nil {
		return domain.EnrollResponse{}, fmt.Errorf("failed to store TOTP secret: %w", err)
	}

	png, err := otpx.QRCodePNG(key.URL, qrSizePixels)
	if err != nil {
		return domain.EnrollResponse{}, fmt.Errorf("failed to render QR code: %w", err)
	}

	return domain.EnrollResponse{
		Secret:  key.Secret,
		URL:     key.URL,
		QRCode:  png,
		Issuer:  s.Issuer,
		Account: user.Email,
	}, nil
}

// VerifyLogin checks a code submitted during the login flow, identified by
// the transient login-session ID. On success the pending session is
// destroyed and a single-use proof token is minted for the credential
// authenticator. On failure the attempt counter climbs; the fifth failure
// destroys the session.
func (s *TwoFactorService) VerifyLogin(ctx context.Context, sessionID, code string) (string, domain.User, error) {
	session, err := s.Store.LoginSessions().GetLoginSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", domain.User{}, ErrSessionExpired
		}
		return "", domain.User{}, fmt.Errorf("failed to load login session: %w", err)
	}

	user, err := s.Store.Users().GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", domain.User{}, ErrUserNotFound
		}
		return "", domain.User{}, fmt.Errorf("failed to load user: %w", err)
	}

	method, verr := s.verifyEither(ctx, user, code)
	if verr != nil {
		if errors.Is(verr, ErrInvalidCode) {
			return "", domain.User{}, s.recordLoginFailure(ctx, session, user, code)
		}
		return "", domain.User{}, verr
	}

	proofToken, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", domain.User{}, fmt.Errorf("failed to generate proof token: %w", err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.LoginSessions().DeleteLoginSession(ctx, session.ID); err != nil {
			return fmt.Errorf("failed to delete login session: %w", err)
		}
		proof := domain.SessionProof{
			ID:        idx.New().String(),
			UserID:    user.ID,
			TokenHash: cryptox.FingerprintToken(proofToken),
			ExpiresAt: time.Now().Add(ProofTTL),
		}
		if err := tx.SessionProofs().CreateSessionProof(ctx, proof); err != nil {
			return fmt.Errorf("failed to create session proof: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", domain.User{}, err
	}

	s.logVerification(ctx, user, domain.ActivityContextLogin, method, "")
	return proofToken, user, nil
}

// VerifySession checks a code for an already-authenticated user. The first
// successful verification after enrollment flips two-factor on, stamps the
// verification time, and hands back freshly generated backup codes; later
// calls re-confirm possession and return no codes.
func (s *TwoFactorService) VerifySession(ctx context.Context, userID, code string) ([]string, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	method, verr := s.verifyEither(ctx, user, code)
	if verr != nil {
		if errors.Is(verr, ErrInvalidCode) {
			s.logActivity(ctx, user, domain.ActivityTwoFactorFailed, domain.ActivityContextSession, "code "+redactCode(code))
		}
		return nil, verr
	}

	if user.TwoFactorEnabled {
		s.logVerification(ctx, user, domain.ActivityContextSession, method, "")
		return nil, nil
	}

	// First verification: enable and issue backup codes atomically.
	codes, err := s.enableWithBackupCodes(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	s.logVerification(ctx, user, domain.ActivityContextSession, method, "")
	s.logActivity(ctx, user, domain.ActivityTwoFactorEnabled, domain.ActivityContextSession, "")
	return codes, nil
}

// RegenerateBackupCodes replaces every backup code for the user. The caller
// must prove possession with a currently-valid code. Old codes, consumed or
// not, stop working immediately.
func (s *TwoFactorService) RegenerateBackupCodes(ctx context.Context, userID, code string) ([]string, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.TwoFactorEnabled {
		return nil, ErrTwoFactorNotConfigured
	}

	if _, err := s.verifyEither(ctx, user, code); err != nil {
		return nil, err
	}

	codes, err := otpx.GenerateBackupCodes(otpx.DefaultBackupCodeCount)
	if err != nil {
		return nil, fmt.Errorf("failed to generate backup codes: %w", err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, userID); err != nil {
			return fmt.Errorf("failed to clear backup codes: %w", err)
		}
		return storeBackupCodes(ctx, tx, userID, codes)
	})
	if err != nil {
		return nil, err
	}

	s.logActivity(ctx, user, domain.ActivityBackupCodesRegenerate, domain.ActivityContextSession, "")
	return codes, nil
}

// Disable turns two-factor off. The caller must prove possession with a
// currently-valid code; the secret and all backup codes are discarded.
func (s *TwoFactorService) Disable(ctx context.Context, userID, code string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to load user: %w", err)
	}
	if !user.TwoFactorEnabled {
		return ErrTwoFactorNotConfigured
	}

	if _, err := s.verifyEither(ctx, user, code); err != nil {
		return err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().DisableTwoFactor(ctx, userID); err != nil {
			return fmt.Errorf("failed to disable two-factor: %w", err)
		}
		if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, userID); err != nil {
			return fmt.Errorf("failed to clear backup codes: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logActivity(ctx, user, domain.ActivityTwoFactorDisabled, domain.ActivityContextSession, "")
	return nil
}

// verifyEither validates a submitted code against the user's TOTP secret
// first, then against the unconsumed backup codes. TOTP goes first so a
// six-digit code never burns a backup code. Backup consumption is a
// conditional update; concurrent submissions of the same code produce
// exactly one winner.
func (s *TwoFactorService) verifyEither(ctx context.Context, user domain.User, code string) (string, error) {
	if code == "" {
		return "", ErrMissingCode
	}
	code = otpx.NormalizeCode(code)
	if !otpx.ValidFormat(code) {
		return "", ErrInvalidCodeFormat
	}
	if user.TwoFactorSecret == nil || *user.TwoFactorSecret == "" {
		return "", ErrTwoFactorNotConfigured
	}

	if otpx.VerifyCode(*user.TwoFactorSecret, code) {
		return methodTOTP, nil
	}

	if otpx.IsBackupCodeFormat(code) && user.TwoFactorEnabled {
		ok, err := s.Store.BackupCodes().ConsumeBackupCode(ctx, user.ID, cryptox.FingerprintToken(code), time.Now())
		if err != nil {
			return "", fmt.Errorf("failed to consume backup code: %w", err)
		}
		if ok {
			return methodBackupCode, nil
		}
	}

	return "", ErrInvalidCode
}

// recordLoginFailure bumps the attempt counter, audits the failure with the
// submitted code redacted, and tears the session down at the cap.
func (s *TwoFactorService) recordLoginFailure(ctx context.Context, session domain.LoginSession, user domain.User, code string) error {
	s.logActivity(ctx, user, domain.ActivityTwoFactorFailed, domain.ActivityContextLogin, "code "+redactCode(code))

	updated, err := s.Store.LoginSessions().IncrementLoginSessionAttempts(ctx, session.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSessionExpired
		}
		return fmt.Errorf("failed to record failed attempt: %w", err)
	}
	if updated.Attempts >= MaxAttempts {
		if err := s.Store.LoginSessions().DeleteLoginSession(ctx, session.ID); err != nil {
			slogx.FromContext(ctx).Warn("failed to delete exhausted login session",
				"session_id", session.ID, "error", err)
		}
		return ErrTooManyAttempts
	}
	return ErrInvalidCode
}

func (s *TwoFactorService) enableWithBackupCodes(ctx context.Context, userID string) ([]string, error) {
	codes, err := otpx.GenerateBackupCodes(otpx.DefaultBackupCodeCount)
	if err != nil {
		return nil, fmt.Errorf("failed to generate backup codes: %w", err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().EnableTwoFactor(ctx, userID, time.Now()); err != nil {
			return fmt.Errorf("failed to enable two-factor: %w", err)
		}
		if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, userID); err != nil {
			return fmt.Errorf("failed to clear stale backup codes: %w", err)
		}
		return storeBackupCodes(ctx, tx, userID, codes)
	})
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func storeBackupCodes(ctx context.Context, tx store.Tx, userID string, codes []string) error {
	for _, code := range codes {
		hash := cryptox.FingerprintToken(code)
		if err := tx.BackupCodes().CreateBackupCode(ctx, userID, hash); err != nil {
			return fmt.Errorf("failed to store backup code: %w", err)
		}
	}
	return nil
}

func (s *TwoFactorService) logVerification(ctx context.Context, user domain.User, contextTag, method, detail string) {
	s.logActivity(ctx, user, domain.ActivityTwoFactorSuccess, contextTag, detail)
	if method == methodBackupCode {
		s.logActivity(ctx, user, domain.ActivityBackupCodeUsed, contextTag, "")
	}
}

// logActivity appends an audit entry. Failures are logged and swallowed so
// auditing never blocks verification.
func (s *TwoFactorService) logActivity(ctx context.Context, user domain.User, event, contextTag, detail string) {
	entry := domain.ActivityEntry{
		ID:      idx.New().String(),
		OrgID:   user.OrgID,
		UserID:  &user.ID,
		Event:   event,
		Context: contextTag,
		Detail:  detail,
	}
	if err := s.Store.Activity().CreateActivityEntry(ctx, entry); err != nil {
		slogx.FromContext(ctx).Warn("failed to record activity entry",
			"event", event, "error", err)
	}
}

// redactCode keeps the first two characters of a submitted code and masks
// the rest, so audit entries never contain a replayable value.
func redactCode(code string) string {
	if len(code) <= 2 {
		return "**"
	}
	return code[:2] + "****"
}
