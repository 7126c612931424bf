package store

import (
	"context"
	"errors"
	"time"

	"github.com/lexsuite/praksa-auth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today,
// postgres later) implement it. Sub-repositories keep concerns tidy and make
// it obvious which operations may run inside a transaction.
type Store interface {
	Users() Users
	Organizations() Organizations
	BackupCodes() BackupCodes
	LoginSessions() LoginSessions
	SessionProofs() SessionProofs
	Activity() Activity
	Invites() Invites

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST Commit() or Rollback().
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing when fn returns
	// nil and rolling back otherwise. Prefer this over Tx directly.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases underlying resources.
	Close() error

	// Ping verifies the database connection is alive.
	Ping(ctx context.Context) error
}

// Tx is a transaction-scoped store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is the login-path lookup. Email matching is
	// case-insensitive.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	CreateUser(ctx context.Context, u domain.User) error

	// ActivateWithPassword sets the password hash, display name, and flips
	// is_active for an invitation-pending account.
	ActivateWithPassword(ctx context.Context, userID, displayName, passwordHash string) error

	// SetActive soft-(de)activates an account.
	SetActive(ctx context.Context, userID string, active bool) error

	// UpdateTwoFactorSecret stores the TOTP secret without enabling 2FA.
	UpdateTwoFactorSecret(ctx context.Context, userID, secret string) error

	// EnableTwoFactor flips two_factor_enabled and stamps
	// two_factor_verified_at.
	EnableTwoFactor(ctx context.Context, userID string, verifiedAt time.Time) error

	// DisableTwoFactor clears the secret, the enabled flag, and the
	// verification timestamp.
	DisableTwoFactor(ctx context.Context, userID string) error
}

type Organizations interface {
	GetOrganizationByID(ctx context.Context, id string) (domain.Organization, error)
	CreateOrganization(ctx context.Context, org domain.Organization) error
}

type BackupCodes interface {
	// CreateBackupCode stores one hashed code for a user.
	CreateBackupCode(ctx context.Context, userID, codeHash string) error

	// ConsumeBackupCode atomically marks the matching unconsumed code as
	// consumed. Returns false when no unconsumed code matched, including
	// when a concurrent request consumed it first.
	ConsumeBackupCode(ctx context.Context, userID, codeHash string, at time.Time) (bool, error)

	// DeleteAllBackupCodes removes every code for a user (regenerate or
	// disable).
	DeleteAllBackupCodes(ctx context.Context, userID string) error

	// CountUnconsumedBackupCodes returns how many codes remain usable.
	CountUnconsumedBackupCodes(ctx context.Context, userID string) (int, error)
}

type LoginSessions interface {
	CreateLoginSession(ctx context.Context, s domain.LoginSession) error

	// GetLoginSession returns a pending login session by its token, only
	// while unexpired.
	GetLoginSession(ctx context.Context, id string) (domain.LoginSession, error)

	// IncrementLoginSessionAttempts bumps the failure counter and returns
	// the updated session.
	IncrementLoginSessionAttempts(ctx context.Context, id string) (domain.LoginSession, error)

	DeleteLoginSession(ctx context.Context, id string) error
	DeleteExpiredLoginSessions(ctx context.Context) error
}

type SessionProofs interface {
	CreateSessionProof(ctx context.Context, p domain.SessionProof) error

	// RedeemSessionProof atomically marks the proof redeemed and returns
	// it. ErrNotFound when the hash is unknown, expired, or was already
	// redeemed; a proof is good exactly once.
	RedeemSessionProof(ctx context.Context, tokenHash string, at time.Time) (domain.SessionProof, error)

	DeleteExpiredSessionProofs(ctx context.Context) error
}

type Activity interface {
	// CreateActivityEntry appends one audit record. The log is append-only.
	CreateActivityEntry(ctx context.Context, e domain.ActivityEntry) error

	// ListRecentActivity returns the newest entries for an organization.
	ListRecentActivity(ctx context.Context, orgID string, limit int) ([]domain.ActivityEntry, error)
}

type Invites interface {
	CreateInvite(ctx context.Context, inv domain.Invite) error

	// GetActiveInviteByTokenHash returns a not-used, not-expired invite.
	GetActiveInviteByTokenHash(ctx context.Context, hash string) (domain.Invite, error)

	MarkInviteUsed(ctx context.Context, inviteID string) error
	DeleteExpiredInvites(ctx context.Context) error
}
