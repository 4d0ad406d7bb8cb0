// Package config provides engine configuration - calibrated pacing and
// scheduling constants only.
//
// This module contains ONLY configuration relevant to the orchestration
// core: typing cadence, idle scheduling windows, notification display
// budgets, and the durable storage key. Narrative content (contacts,
// seeded histories, trigger phrases) lives in the script package;
// infrastructure configuration (database paths, boundary endpoints)
// belongs to the embedding application.
package config

import (
	"fmt"
	"time"
)

// EngineConfig holds the engine's calibrated constants.
type EngineConfig struct {
	// Typing cadence
	MinTypingDelayMs     int `json:"min_typing_delay_ms"`
	MaxTypingDelayMs     int `json:"max_typing_delay_ms"`
	TypingDelayPerCharMs int `json:"typing_delay_per_char_ms"`

	// Pause between consecutive text segments: base plus uniform jitter.
	SegmentPauseBaseMs   int `json:"segment_pause_base_ms"`
	SegmentPauseJitterMs int `json:"segment_pause_jitter_ms"`

	// Idle check-in window
	IdleCheckInMinMs int `json:"idle_check_in_min_ms"`
	IdleCheckInMaxMs int `json:"idle_check_in_max_ms"`

	// Notifications
	NotificationBudget    int `json:"notification_budget"`
	NotificationDismissMs int `json:"notification_dismiss_ms"`

	// Persistence
	StorageKey string `json:"storage_key"`

	// Logging
	LogLevel string `json:"log_level"`
}

// DefaultEngineConfig returns an EngineConfig with the calibrated
// defaults.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		MinTypingDelayMs:     700,
		MaxTypingDelayMs:     4000,
		TypingDelayPerCharMs: 40,

		SegmentPauseBaseMs:   300,
		SegmentPauseJitterMs: 400,

		IdleCheckInMinMs: int(2 * time.Minute / time.Millisecond),
		IdleCheckInMaxMs: int(5 * time.Minute / time.Millisecond),

		NotificationBudget:    60,
		NotificationDismissMs: 2000,

		StorageKey: "messenger_session_v1",

		LogLevel: "info",
	}
}

// Validate checks internal consistency.
func (c *EngineConfig) Validate() error {
	if c.MinTypingDelayMs < 0 || c.MaxTypingDelayMs < c.MinTypingDelayMs {
		return fmt.Errorf("typing delay bounds invalid: min=%d max=%d", c.MinTypingDelayMs, c.MaxTypingDelayMs)
	}
	if c.TypingDelayPerCharMs < 0 {
		return fmt.Errorf("typing delay per char must be non-negative, got %d", c.TypingDelayPerCharMs)
	}
	if c.SegmentPauseBaseMs < 0 || c.SegmentPauseJitterMs < 0 {
		return fmt.Errorf("segment pause invalid: base=%d jitter=%d", c.SegmentPauseBaseMs, c.SegmentPauseJitterMs)
	}
	if c.IdleCheckInMinMs <= 0 || c.IdleCheckInMaxMs < c.IdleCheckInMinMs {
		return fmt.Errorf("idle window invalid: min=%d max=%d", c.IdleCheckInMinMs, c.IdleCheckInMaxMs)
	}
	if c.NotificationBudget <= 3 {
		return fmt.Errorf("notification budget too small: %d", c.NotificationBudget)
	}
	if c.NotificationDismissMs <= 0 {
		return fmt.Errorf("notification dismiss must be positive, got %d", c.NotificationDismissMs)
	}
	if c.StorageKey == "" {
		return fmt.Errorf("storage key must not be empty")
	}
	return nil
}

// MinTypingDelay returns the lower typing delay clamp.
func (c *EngineConfig) MinTypingDelay() time.Duration {
	return time.Duration(c.MinTypingDelayMs) * time.Millisecond
}

// MaxTypingDelay returns the upper typing delay clamp.
func (c *EngineConfig) MaxTypingDelay() time.Duration {
	return time.Duration(c.MaxTypingDelayMs) * time.Millisecond
}

// TypingDelayPerChar returns the per-character typing rate.
func (c *EngineConfig) TypingDelayPerChar() time.Duration {
	return time.Duration(c.TypingDelayPerCharMs) * time.Millisecond
}

// SegmentPauseBase returns the fixed part of the inter-segment pause.
func (c *EngineConfig) SegmentPauseBase() time.Duration {
	return time.Duration(c.SegmentPauseBaseMs) * time.Millisecond
}

// SegmentPauseJitter returns the uniform-random part of the
// inter-segment pause.
func (c *EngineConfig) SegmentPauseJitter() time.Duration {
	return time.Duration(c.SegmentPauseJitterMs) * time.Millisecond
}

// IdleCheckInMin returns the lower idle window bound.
func (c *EngineConfig) IdleCheckInMin() time.Duration {
	return time.Duration(c.IdleCheckInMinMs) * time.Millisecond
}

// IdleCheckInMax returns the upper idle window bound.
func (c *EngineConfig) IdleCheckInMax() time.Duration {
	return time.Duration(c.IdleCheckInMaxMs) * time.Millisecond
}

// NotificationDismiss returns the auto-dismiss duration.
func (c *EngineConfig) NotificationDismiss() time.Duration {
	return time.Duration(c.NotificationDismissMs) * time.Millisecond
}
