package domain

import "time"

// LoginSession is the pending state between a successful password check and
// the second-factor verification. Its ID is the transient sessionId the
// client must echo back; no cookie exists yet at this point.
type LoginSession struct {
	ID        string
	UserID    string
	// Attempts counts failed code submissions; the session is destroyed
	// once the cap is reached.
	Attempts  int
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionProof is a short-lived, single-use token minted after a successful
// login-flow verification and redeemed exactly once by the credential
// authenticator to issue the real session. It replaces any notion of a
// reserved sentinel password.
type SessionProof struct {
	ID         string
	UserID     string
	TokenHash  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	RedeemedAt *time.Time
}

// BackupCode is one single-use recovery code, stored hashed. Consumption is
// a conditional update on ConsumedAt so a code can never validate twice.
type BackupCode struct {
	ID         string
	UserID     string
	CodeHash   string
	CreatedAt  time.Time
	ConsumedAt *time.Time
}

// EnrollResponse is returned when a user starts TOTP enrollment.
type EnrollResponse struct {
	Secret  string // base32 secret for manual entry
	URL     string // otpauth:// provisioning URL
	QRCode  []byte // PNG rendering of the URL
	Issuer  string
	Account string
}

// TwoFactorChallenge is returned from login when a second factor is
// required before a session can be issued.
type TwoFactorChallenge struct {
	TwoFactorRequired bool     `json:"two_factor_required"` // always true
	SessionID         string   `json:"session_id"`
	Methods           []string `json:"methods"`
}
