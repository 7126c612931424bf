package domain

import "time"

// Role values assignable within an organization.
const (
	RoleAdmin  = "admin"
	RoleLawyer = "lawyer"
	RoleStaff  = "staff"
)

type User struct {
	ID          string
	Email       string
	DisplayName string
	// PasswordHash is the argon2id PHC string. Nil for invitation-pending
	// accounts that have not set a password yet.
	PasswordHash *string
	Role         string
	OrgID        string
	// Active is flipped to false to soft-deactivate; the auth core never
	// hard-deletes users.
	Active bool

	// TwoFactorSecret is the base32 TOTP secret, nil until enrollment.
	// Invariant: TwoFactorEnabled implies TwoFactorSecret != nil.
	TwoFactorSecret  *string
	TwoFactorEnabled bool
	// TwoFactorVerifiedAt is stamped on the first successful verification.
	TwoFactorVerifiedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity is the sanitized view of an authenticated user handed to the
// session layer. It never carries password hashes or 2FA secrets.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"name"`
	OrgID       string `json:"organizationId"`
	Role        string `json:"role"`
}

// Identity returns the sanitized view of u.
func (u User) Identity() Identity {
	return Identity{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		OrgID:       u.OrgID,
		Role:        u.Role,
	}
}
