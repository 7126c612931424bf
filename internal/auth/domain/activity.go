package domain

import "time"

// Activity event types recorded by the auth core.
const (
	ActivityLoginSuccess          = "LOGIN_SUCCESS"
	ActivityLoginFailed           = "LOGIN_FAILED"
	ActivityTwoFactorSuccess      = "2FA_VERIFICATION_SUCCESS"
	ActivityTwoFactorFailed       = "2FA_VERIFICATION_FAILED"
	ActivityBackupCodeUsed        = "2FA_BACKUP_CODE_USED"
	ActivityTwoFactorEnabled      = "2FA_ENABLED"
	ActivityTwoFactorDisabled     = "2FA_DISABLED"
	ActivityBackupCodesRegenerate = "BACKUP_CODES_REGENERATED"
	ActivityInviteCreated         = "INVITE_CREATED"
	ActivityInviteAccepted        = "INVITE_ACCEPTED"
)

// Activity context tags distinguishing where a 2FA verification happened.
const (
	ActivityContextLogin   = "login"
	ActivityContextSession = "session"
)

// ActivityEntry is an append-only audit record of an authentication event.
// Entries are never mutated or deleted.
type ActivityEntry struct {
	ID     string  `json:"id"`
	OrgID  string  `json:"organizationId"`
	UserID *string `json:"userId,omitempty"`
	Event  string  `json:"eventType"`
	// Context tags where the event happened ("login", "session").
	Context   string    `json:"context,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	IPAddress string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}
