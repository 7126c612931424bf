package domain

import "time"

// Invite brings a new member into an organization. Minting an invite also
// creates the pending user row (inactive, no password); acceptance sets the
// password and activates the account.
type Invite struct {
	ID        string
	OrgID     string
	UserID    string // the pending user created alongside the invite
	TokenHash string
	CreatedBy string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
