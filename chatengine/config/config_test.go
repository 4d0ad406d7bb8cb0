package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := DefaultEngineConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 700*time.Millisecond, cfg.MinTypingDelay())
	assert.Equal(t, 4*time.Second, cfg.MaxTypingDelay())
	assert.Equal(t, 40*time.Millisecond, cfg.TypingDelayPerChar())
	assert.Equal(t, 2*time.Minute, cfg.IdleCheckInMin())
	assert.Equal(t, 5*time.Minute, cfg.IdleCheckInMax())
	assert.Equal(t, 60, cfg.NotificationBudget)
	assert.Equal(t, 2*time.Second, cfg.NotificationDismiss())
	assert.Equal(t, "messenger_session_v1", cfg.StorageKey)
}

func TestValidateRejectsBadBounds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EngineConfig)
	}{
		{"max below min typing", func(c *EngineConfig) { c.MaxTypingDelayMs = c.MinTypingDelayMs - 1 }},
		{"negative per-char", func(c *EngineConfig) { c.TypingDelayPerCharMs = -1 }},
		{"negative pause", func(c *EngineConfig) { c.SegmentPauseBaseMs = -1 }},
		{"idle max below min", func(c *EngineConfig) { c.IdleCheckInMaxMs = c.IdleCheckInMinMs - 1 }},
		{"tiny notification budget", func(c *EngineConfig) { c.NotificationBudget = 3 }},
		{"zero dismiss", func(c *EngineConfig) { c.NotificationDismissMs = 0 }},
		{"empty storage key", func(c *EngineConfig) { c.StorageKey = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultEngineConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
