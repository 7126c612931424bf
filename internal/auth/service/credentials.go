package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lexsuite/praksa-auth/internal/auth/domain"
	"github.com/lexsuite/praksa-auth/internal/auth/store"
	"github.com/lexsuite/praksa-auth/pkg/cryptox"
	"github.com/lexsuite/praksa-auth/pkg/idx"
	"github.com/lexsuite/praksa-auth/pkg/jwtx"
	"github.com/lexsuite/praksa-auth/pkg/slogx"
)

const (
	// LoginSessionTTL bounds the window between password check and second
	// factor. After this the client starts over.
	LoginSessionTTL = 5 * time.Minute

	// ProofTTL bounds the handoff between a verified second factor and
	// session issuance. The frontend redeems it immediately.
	ProofTTL = 60 * time.Second
)

var (
	ErrMissingCredentials = errors.New("missing email or password")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeactivated = errors.New("account deactivated")
)

// TwoFactorRequiredError signals that the password checked out but a second
// factor is still needed. It carries the transient login-session ID the
// client must echo back with the code.
type TwoFactorRequiredError struct {
	SessionID string
	Methods   []string
}

func (e *TwoFactorRequiredError) Error() string {
	return "two-factor verification required"
}

// LoginResult is a fully-issued session.
type LoginResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	User      domain.Identity `json:"user"`
}

// CredentialService authenticates email/password pairs and issues session
// tokens. Users with two-factor enabled get a TwoFactorRequiredError instead
// of a token; they come back through AuthorizeVerified with a proof token.
type CredentialService struct {
	Store      store.Store
	Signer     jwtx.Signer
	Issuer     string
	SessionTTL time.Duration
}

func (s *CredentialService) sessionTTL() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return jwtx.DefaultSessionTTL
}

// Authorize validates an email/password pair. On success it either issues a
// session token or, for two-factor users, opens a pending login session and
// returns *TwoFactorRequiredError.
//
// Unknown emails and wrong passwords both come back as
// ErrInvalidCredentials; the two cases are indistinguishable to the caller.
// The active check runs after password verification so a deactivation
// message never leaks whether a password was correct.
func (s *CredentialService) Authorize(ctx context.Context, email, password string) (LoginResult, error) {
	if email == "" || password == "" {
		return LoginResult{}, ErrMissingCredentials
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("failed to look up user: %w", err)
	}

	// Invitation-pending accounts have no password and can never log in.
	if user.PasswordHash == nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err := cryptox.VerifyPassword(password, *user.PasswordHash); err != nil {
		s.logActivity(ctx, user.OrgID, &user.ID, domain.ActivityLoginFailed, "", "wrong password")
		return LoginResult{}, ErrInvalidCredentials
	}

	if !user.Active {
		return LoginResult{}, ErrAccountDeactivated
	}

	if user.TwoFactorEnabled {
		session := domain.LoginSession{
			ID:        idx.New().String(),
			UserID:    user.ID,
			ExpiresAt: time.Now().Add(LoginSessionTTL),
		}
		if err := s.Store.LoginSessions().CreateLoginSession(ctx, session); err != nil {
			return LoginResult{}, fmt.Errorf("failed to create login session: %w", err)
		}
		return LoginResult{}, &TwoFactorRequiredError{
			SessionID: session.ID,
			Methods:   []string{"totp", "backup_code"},
		}
	}

	result, err := s.issueSession(user, []string{jwtx.AMRPassword})
	if err != nil {
		return LoginResult{}, err
	}
	s.logActivity(ctx, user.OrgID, &user.ID, domain.ActivityLoginSuccess, "", "")
	return result, nil
}

// AuthorizeVerified finishes a two-factor login. The proof token was minted
// by the verification step and is good exactly once; the redemption is a
// conditional update, so a replayed proof fails even under concurrency.
func (s *CredentialService) AuthorizeVerified(ctx context.Context, email, proofToken string) (LoginResult, error) {
	if email == "" || proofToken == "" {
		return LoginResult{}, ErrMissingCredentials
	}

	proof, err := s.Store.SessionProofs().RedeemSessionProof(ctx, cryptox.FingerprintToken(proofToken), time.Now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("failed to redeem session proof: %w", err)
	}

	user, err := s.Store.Users().GetUserByID(ctx, proof.UserID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("failed to load user: %w", err)
	}

	// The proof must belong to the account the client claims to be.
	if !strings.EqualFold(user.Email, email) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if !user.Active {
		return LoginResult{}, ErrAccountDeactivated
	}

	result, err := s.issueSession(user, []string{jwtx.AMRPassword, jwtx.AMRMFA})
	if err != nil {
		return LoginResult{}, err
	}
	s.logActivity(ctx, user.OrgID, &user.ID, domain.ActivityLoginSuccess, domain.ActivityContextLogin, "")
	return result, nil
}

func (s *CredentialService) issueSession(user domain.User, amr []string) (LoginResult, error) {
	now := time.Now()
	claims := jwtx.NewSessionClaims(
		user.ID, idx.New().String(), user.OrgID, user.Role, user.Email, user.DisplayName,
		amr, s.Issuer, s.sessionTTL(), now,
	)
	token, err := s.Signer.Sign(claims)
	if err != nil {
		return LoginResult{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return LoginResult{
		Token:     token,
		ExpiresAt: now.Add(s.sessionTTL()),
		User:      user.Identity(),
	}, nil
}

// logActivity appends an audit entry. Auditing is best-effort; a write
// failure is logged but never fails the authentication it describes.
func (s *CredentialService) logActivity(ctx context.Context, orgID string, userID *string, event, contextTag, detail string) {
	entry := domain.ActivityEntry{
		ID:      idx.New().String(),
		OrgID:   orgID,
		UserID:  userID,
		Event:   event,
		Context: contextTag,
		Detail:  detail,
	}
	if err := s.Store.Activity().CreateActivityEntry(ctx, entry); err != nil {
		slogx.FromContext(ctx).Warn("failed to record activity entry",
			"event", event, "error", err)
	}
}
