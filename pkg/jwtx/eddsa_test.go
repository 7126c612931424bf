package jwtx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignAndVerifyRoundTrip(t *testing.T) {
	kp, err := GenerateKeypair("praksa-auth")
	require.NoError(t, err)

	claims := NewSessionClaims(
		"user-1", "sess-1", "org-1", "lawyer",
		"ana@kancelarija.hr", "Ana Anić",
		[]string{AMRPassword, AMRMFA},
		"praksa-auth",
		time.Hour,
		time.Now(),
	)

	token, err := kp.Sign(claims)
	require.NoError(t, err)

	got, err := kp.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", got.Subject)
	require.Equal(t, "org-1", got.OrgID)
	require.Equal(t, "lawyer", got.Role)
	require.Equal(t, []string{AMRPassword, AMRMFA}, got.AMR)
	require.NoError(t, got.ValidateExpiry())
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	a, err := GenerateKeypair("praksa-auth")
	require.NoError(t, err)
	b, err := GenerateKeypair("praksa-auth")
	require.NoError(t, err)

	claims := NewSessionClaims(
		"user-1", "sess-1", "org-1", "staff",
		"ana@kancelarija.hr", "Ana",
		nil, "praksa-auth", time.Hour, time.Now(),
	)
	token, err := a.Sign(claims)
	require.NoError(t, err)

	_, err = b.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	kp, err := GenerateKeypair("praksa-auth")
	require.NoError(t, err)

	claims := NewSessionClaims(
		"user-1", "sess-1", "org-1", "staff",
		"ana@kancelarija.hr", "Ana",
		nil, "praksa-auth", time.Minute, time.Now().Add(-time.Hour),
	)
	token, err := kp.Sign(claims)
	require.NoError(t, err)

	_, err = kp.Verify(token)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	kp, err := GenerateKeypair("praksa-auth")
	require.NoError(t, err)

	claims := NewSessionClaims(
		"user-1", "sess-1", "org-1", "staff",
		"ana@kancelarija.hr", "Ana",
		nil, "someone-else", time.Hour, time.Now(),
	)
	token, err := kp.Sign(claims)
	require.NoError(t, err)

	_, err = kp.Verify(token)
	require.ErrorIs(t, err, ErrIssuer)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	kp, err := GenerateKeypair("praksa-auth")
	require.NoError(t, err)

	_, err = kp.Verify("not.a.jwt")
	require.Error(t, err)
}
