package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPepper = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	// Clear any env vars that might interfere with defaults.
	os.Unsetenv("HTTP_LISTEN_ADDR")
	os.Unsetenv("LOG_LEVEL")
	os.Unsetenv("SESSION_TTL")
	os.Unsetenv("LOGIN_MAX_ATTEMPTS")
	os.Unsetenv("DB_RETRY_MAX_ATTEMPTS")

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, ":8080", cfg.HTTPListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 5, cfg.LoginMaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.LoginWindow)
	assert.Equal(t, 5, cfg.RegistrationMaxAttempts)
	assert.Equal(t, time.Hour, cfg.RegistrationWindow)
	assert.Equal(t, 3, cfg.RetryMaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.RetryBaseDelay)
	assert.Equal(t, 5*time.Second, cfg.RetryMaxDelay)
	assert.Equal(t, "google", cfg.OAuth.Name)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_LISTEN_ADDR", ":9999")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("LOGIN_MAX_ATTEMPTS", "10")
	t.Setenv("CORS_ORIGINS", "https://a.test, https://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.HTTPListenAddr)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10, cfg.LoginMaxAttempts)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORSOrigins)
}

func TestLoad_RedirectURLDerivedFromBaseURL(t *testing.T) {
	t.Setenv("BASE_URL", "https://app.test")
	os.Unsetenv("GOOGLE_REDIRECT_URL")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://app.test/api/auth/google/callback", cfg.OAuth.RedirectURL)
}

func TestValidate_MissingRequired(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "PASSWORD_PEPPER")
}

func TestValidate_ShortPepper(t *testing.T) {
	cfg := &Config{DatabaseURL: "postgres://localhost/platform", PasswordPepper: "too short"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PASSWORD_PEPPER")
}

func TestValidate_OK(t *testing.T) {
	cfg := &Config{DatabaseURL: "postgres://localhost/platform", PasswordPepper: validPepper}
	require.NoError(t, cfg.Validate())
}
