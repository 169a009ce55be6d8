package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := decode(newViper())
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, "id", cfg.Locale)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, 10*time.Second, cfg.Session.RefreshInterval)
	assert.Equal(t, "ngrok-skip-browser-warning", cfg.API.BypassHeader)
	assert.Equal(t, 10, cfg.Listing.PageSize)
	assert.Equal(t, 15*time.Minute, cfg.Security.JWTAccessTTL)
	assert.False(t, cfg.IsProduction())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AFFCONSOLE_ENVIRONMENT", "production")
	t.Setenv("AFFCONSOLE_API_BASEURL", "https://example.test/api")
	t.Setenv("AFFCONSOLE_SESSION_REFRESHINTERVAL", "5m")
	t.Setenv("AFFCONSOLE_ALLOWCORSORIGINS", "https://a.test,https://b.test")

	cfg, err := decode(newViper())
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "https://example.test/api", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Minute, cfg.Session.RefreshInterval)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.AllowCORSOrigins)
}

func TestRefreshIntervalFloor(t *testing.T) {
	t.Setenv("AFFCONSOLE_SESSION_REFRESHINTERVAL", "100ms")

	cfg, err := decode(newViper())
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.Session.RefreshInterval)
}

func TestInvalidEnvironment(t *testing.T) {
	t.Setenv("AFFCONSOLE_ENVIRONMENT", "staging")

	_, err := decode(newViper())
	require.Error(t, err)
}
