package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is the default lifetime for session tokens. Short-lived;
// the practice-management frontend re-authenticates rather than refreshing.
const DefaultSessionTTL = 8 * time.Hour

// Authentication Method Reference values carried in the "amr" claim.
//
//	"pwd": password authentication
//	"otp": a one-time TOTP code was verified
//	"mfa": a second factor (TOTP or backup code) was verified
const (
	AMRPassword = "pwd"
	AMROTP      = "otp"
	AMRMFA      = "mfa"
)

// Claims are the session-token claims for an authenticated practice user.
type Claims struct {
	jwt.RegisteredClaims

	// SID is the session ID, stable across the login handshake.
	SID string `json:"sid,omitempty"`

	// OrgID is the tenant (organization) the user belongs to.
	OrgID string `json:"org,omitempty"`

	// Role within the organization (admin, lawyer, staff).
	Role string `json:"role,omitempty"`

	// Email of the authenticated user.
	Email string `json:"email,omitempty"`

	// DisplayName is the user-facing name.
	DisplayName string `json:"name,omitempty"`

	// AMR records how the user authenticated, e.g. ["pwd","mfa"].
	AMR []string `json:"amr,omitempty"`
}

// NewSessionClaims builds minimally-correct session claims.
func NewSessionClaims(
	subject, sid, orgID, role, email, displayName string,
	amr []string,
	issuer string,
	ttl time.Duration,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		SID:         sid,
		OrgID:       orgID,
		Role:        role,
		Email:       email,
		DisplayName: displayName,
		AMR:         amr,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks the issuer when an expectation is configured.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't used
// before it is valid (nbf).
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}
	return nil
}
