package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 60*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 5*time.Minute, cfg.RefreshThreshold)
	assert.Equal(t, 15*time.Minute, cfg.ActivityWindow)
	assert.Equal(t, 60*time.Second, cfg.CheckInterval)
	assert.Equal(t, 60*time.Second, cfg.HandoffTTL)
	assert.False(t, cfg.DemoMode)
}

func TestLoadRequiresWebhookSecret(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsWideActivityWindow(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET", "s3cret")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("ACTIVITY_WINDOW", "30m")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET", "s3cret")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("ACTIVITY_WINDOW", "20m")
	t.Setenv("DEMO_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 20*time.Minute, cfg.ActivityWindow)
	assert.True(t, cfg.DemoMode)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET", "s3cret")
	t.Setenv("REFRESH_THRESHOLD", "soon")

	_, err := Load()
	require.Error(t, err)
}
