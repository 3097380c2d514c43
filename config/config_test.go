package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "http://localhost:8080", cfg.Issuer)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.RedisAddr)
	assert.True(t, cfg.RotateRefreshTokens)
	assert.False(t, cfg.AllowPlainPKCE)

	assert.Equal(t, 10*time.Minute, cfg.AuthCodeTTL())
	assert.Equal(t, 10*time.Minute, cfg.PendingAuthTTL())
	assert.Equal(t, time.Hour, cfg.AccessTokenTTL())
	assert.Equal(t, 30*24*time.Hour, cfg.RefreshTokenTTL())
	assert.Equal(t, 15*time.Minute, cfg.SweepInterval())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("ROTATE_REFRESH_TOKENS", "false")
	t.Setenv("ALLOW_PLAIN_PKCE", "true")
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "5")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.False(t, cfg.RotateRefreshTokens)
	assert.True(t, cfg.AllowPlainPKCE)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL())
}
