package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServerConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/pipeline")

	cfg, err := NewServerConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "Registered", cfg.DefaultStatusName)
	assert.Equal(t, "Imported from spreadsheet", cfg.FallbackDescription)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.False(t, cfg.EmailTestMode)
}

func TestNewServerConfig_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cfg, err := NewServerConfig()
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestNewServerConfig_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/pipeline")
	t.Setenv("PORT", "9000")
	t.Setenv("DEFAULT_STATUS_NAME", "Screening")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("EMAIL_TEST_MODE", "true")
	t.Setenv("EMAIL_TEST_RECIPIENT", "qa@example.com")

	cfg, err := NewServerConfig()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "Screening", cfg.DefaultStatusName)
	assert.Equal(t, "smtp.example.com", cfg.SMTPHost)
	assert.Equal(t, 2525, cfg.SMTPPort)
	assert.True(t, cfg.EmailTestMode)
	assert.Equal(t, "qa@example.com", cfg.TestRecipient)
}

func TestNewServerConfig_InvalidPort(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/pipeline")
	t.Setenv("PORT", "not-a-number")

	cfg, err := NewServerConfig()
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid PORT")
}

func TestNewServerConfig_PortOutOfRange(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/pipeline")
	t.Setenv("PORT", "70000")

	cfg, err := NewServerConfig()
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "PORT out of range")
}

func TestNewServerConfig_TestModeNeedsRecipient(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/pipeline")
	t.Setenv("EMAIL_TEST_MODE", "true")
	t.Setenv("EMAIL_TEST_RECIPIENT", "")

	cfg, err := NewServerConfig()
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "EMAIL_TEST_RECIPIENT")
}
