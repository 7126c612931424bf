package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	require.Equal(t, "praksa-auth", cfg.Issuer)
	require.Equal(t, 8*time.Hour, cfg.SessionTTL)
	require.Equal(t, "auth.db", cfg.DatabaseFile)
	require.Equal(t, 8080, cfg.Port)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("AUTH_ISSUER", "lexsuite-prod")
	t.Setenv("AUTH_SESSION_TTL", "2h")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_FORMAT", "text")

	cfg := LoadConfig()
	require.Equal(t, "lexsuite-prod", cfg.Issuer)
	require.Equal(t, 2*time.Hour, cfg.SessionTTL)
	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, "text", cfg.LogFormat)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	valid := LoadConfig()

	t.Run("rejects empty issuer", func(t *testing.T) {
		cfg := valid
		cfg.Issuer = ""
		require.Error(t, cfg.Validate())
	})

	t.Run("rejects non-positive session ttl", func(t *testing.T) {
		cfg := valid
		cfg.SessionTTL = 0
		require.Error(t, cfg.Validate())
	})

	t.Run("rejects out-of-range port", func(t *testing.T) {
		cfg := valid
		cfg.Port = 70000
		require.Error(t, cfg.Validate())
	})

	t.Run("rejects unknown log format", func(t *testing.T) {
		cfg := valid
		cfg.LogFormat = "yaml"
		require.Error(t, cfg.Validate())
	})

	t.Run("reports every problem at once", func(t *testing.T) {
		cfg := valid
		cfg.Issuer = ""
		cfg.Port = -1
		err := cfg.Validate()
		require.Error(t, err)
		require.Contains(t, err.Error(), "AUTH_ISSUER")
		require.Contains(t, err.Error(), "PORT")
	})
}
