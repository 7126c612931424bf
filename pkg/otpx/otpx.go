// Package otpx wraps RFC 6238 TOTP generation and verification plus the
// single-use backup-code format used alongside it. Everything here is pure:
// persistence and single-use accounting belong to the caller.
package otpx

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// DefaultBackupCodeCount is how many backup codes a user receives.
	DefaultBackupCodeCount = 8

	// backupCodeBytes yields 8 hex characters per code.
	backupCodeBytes = 4

	totpDigits = 6
	totpPeriod = 30

	// skewSteps tolerates ±2 periods (±60s) of clock drift between the
	// authenticator app and the server.
	skewSteps = 2
)

// Key is a freshly generated TOTP secret together with its otpauth:// URL
// for authenticator-app provisioning.
type Key struct {
	Secret string // base32, no padding
	URL    string // otpauth://totp/Issuer:Account?...
}

// GenerateSecret creates a cryptographically random TOTP secret labelled
// with the given account (user email) and issuer (tenant / service name).
func GenerateSecret(account, issuer string) (Key, error) {
	k, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      totpPeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return Key{}, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	return Key{Secret: k.Secret(), URL: k.URL()}, nil
}

// QRCodePNG renders the otpauth URL as a PNG QR code of size x size pixels.
// Rendering failures are generic errors, nothing security-relevant leaks.
func QRCodePNG(otpauthURL string, size int) ([]byte, error) {
	k, err := otp.NewKeyFromURL(otpauthURL)
	if err != nil {
		return nil, fmt.Errorf("qr generation failed: %w", err)
	}

	img, err := k.Image(size, size)
	if err != nil {
		return nil, fmt.Errorf("qr generation failed: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("qr generation failed: %w", err)
	}
	return buf.Bytes(), nil
}

// VerifyCode checks a submitted code against the secret at the current time.
func VerifyCode(secret, code string) bool {
	return VerifyCodeAt(secret, code, time.Now())
}

// VerifyCodeAt checks a submitted code against the secret at time t, with a
// tolerance window of ±2 steps to absorb clock drift.
func VerifyCodeAt(secret, code string, t time.Time) bool {
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), secret, t, totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      skewSteps,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// GenerateBackupCodes returns n single-use codes, 8 uppercase hex characters
// each, from a cryptographically secure source. Duplicate draws are
// re-rolled so the set is always distinct.
func GenerateBackupCodes(n int) ([]string, error) {
	if n <= 0 {
		n = DefaultBackupCodeCount
	}

	codes := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	for len(codes) < n {
		raw := make([]byte, backupCodeBytes)
		if _, err := rand.Read(raw); err != nil {
			return nil, fmt.Errorf("failed to generate backup code: %w", err)
		}
		code := strings.ToUpper(hex.EncodeToString(raw))
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}

	return codes, nil
}

// NormalizeCode trims whitespace and uppercases, since backup codes are
// matched case-insensitively.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidFormat reports whether code looks like a 6-digit TOTP code or an
// 8-character alphanumeric backup code.
func ValidFormat(code string) bool {
	code = strings.TrimSpace(code)

	switch len(code) {
	case totpDigits:
		for _, r := range code {
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	case 8:
		for _, r := range code {
			switch {
			case r >= '0' && r <= '9':
			case r >= 'a' && r <= 'z':
			case r >= 'A' && r <= 'Z':
			default:
				return false
			}
		}
		return true
	default:
		return false
	}
}

// IsBackupCodeFormat reports whether the code has backup-code shape rather
// than TOTP shape. Callers still try TOTP first: a live code always takes
// priority over consuming a backup code.
func IsBackupCodeFormat(code string) bool {
	return ValidFormat(code) && len(strings.TrimSpace(code)) == 8
}
