package cryptox

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Run("produces url-safe tokens of the right entropy", func(t *testing.T) {
		tok, err := GenerateToken(TokenSize256)
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(tok)
		require.NoError(t, err)
		require.Len(t, raw, TokenSize256)
	})

	t.Run("rejects non-positive sizes", func(t *testing.T) {
		_, err := GenerateToken(0)
		require.Error(t, err)
		_, err = GenerateToken(-1)
		require.Error(t, err)
	})

	t.Run("successive tokens differ", func(t *testing.T) {
		a, err := GenerateToken(TokenSize128)
		require.NoError(t, err)
		b, err := GenerateToken(TokenSize128)
		require.NoError(t, err)
		require.NotEqual(t, a, b)
	})
}

func TestFingerprintToken(t *testing.T) {
	fp := FingerprintToken("opaque-value")

	require.Equal(t, fp, FingerprintToken("opaque-value"), "fingerprints are deterministic")
	require.NotEqual(t, fp, FingerprintToken("other-value"))

	raw, err := base64.RawURLEncoding.DecodeString(fp)
	require.NoError(t, err)
	require.Len(t, raw, 32, "SHA-256 digest")
}
