package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
)

// Signer signs session claims into compact JWTs.
type Signer interface {
	Sign(Claims) (string, error)
}

// Verifier validates a JWT and returns its claims if legitimate.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// Keypair is an Ed25519 signing keypair implementing both Signer and
// Verifier. The service generates an ephemeral keypair at startup: sessions
// do not survive a restart, which is acceptable for this deployment.
type Keypair struct {
	priv   ed25519.PrivateKey
	pub    ed25519.PublicKey
	issuer string
}

// GenerateKeypair creates a fresh Ed25519 keypair bound to the issuer.
func GenerateKeypair(issuer string) (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("jwtx: generate ed25519 key: %w", err)
	}
	return &Keypair{priv: priv, pub: pub, issuer: issuer}, nil
}

// Sign turns claims into a signed compact JWT.
func (k *Keypair) Sign(claims Claims) (string, error) {
	if k.priv == nil {
		return "", errors.New("jwtx: nil signing key")
	}
	t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return t.SignedString(k.priv)
}

// Verify parses and validates a compact JWT, enforcing the EdDSA algorithm,
// the signature, issuer, and time-based claims.
func (k *Keypair) Verify(token string) (Claims, error) {
	var claims Claims

	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, ErrAlgMismatch
		}
		return k.pub, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, ErrMalformed
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSig
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return Claims{}, ErrNotYetValid
		default:
			return Claims{}, err
		}
	}
	if !parsed.Valid {
		return Claims{}, ErrInvalidSig
	}

	if err := claims.ValidateIssuer(k.issuer); err != nil {
		return Claims{}, err
	}

	return claims, nil
}
