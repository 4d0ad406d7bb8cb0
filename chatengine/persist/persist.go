// Package persist snapshots engine state into a keyed storage slot and
// restores it on startup.
//
// Key concepts:
//   - Storage: the minimal slot abstraction (get/set/remove one string
//     value under one key). Implementations live in chatengine/storage.
//   - Document: the versioned JSON shape written to the slot.
//   - Gateway: wires a conversation store and trust machine to a
//     Storage, writing a snapshot after settling mutations and reading
//     one back with field level tolerance.
//
// Restore never fails the engine: a missing slot, unreadable JSON, or
// a corrupt field all degrade to defaults for the affected field while
// the rest of the document is honored.
package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/skullsystem/messenger/chatengine/codec"
	"github.com/skullsystem/messenger/chatengine/conversation"
	"github.com/skullsystem/messenger/chatengine/trust"
)

// DocumentVersion identifies the current snapshot shape.
const DocumentVersion = 1

// Storage is a keyed string-slot store.
type Storage interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes the value for key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes the slot for key. Removing an absent key is not
	// an error.
	Remove(ctx context.Context, key string) error
}

// Logger is the minimal logging interface the gateway needs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// =============================================================================
// Document
// =============================================================================

// ThreadRecord is one thread's persisted state.
type ThreadRecord struct {
	Messages     []conversation.Message `json:"messages"`
	Unread       int                    `json:"unreadCount"`
	LastActivity codec.Timestamp        `json:"lastActivity"`
	Responsive   bool                   `json:"responsive"`
}

// Document is the versioned snapshot shape.
type Document struct {
	Version                 int                                      `json:"version"`
	Threads                 map[conversation.ThreadID]ThreadRecord   `json:"threads"`
	Trust                   trust.State                              `json:"trustState"`
	AgentSessionInitialized bool                                     `json:"agentSessionInitialized"`
	UIState                 map[string]any                           `json:"uiState,omitempty"`
	SavedAt                 codec.Timestamp                          `json:"savedAt"`
}

// RestoredState is the tolerant decode of a Document. Fields that were
// absent or corrupt carry their zero value and the engine seeds
// defaults for them.
type RestoredState struct {
	Threads                 map[conversation.ThreadID]ThreadRecord
	Trust                   trust.State
	AgentSessionInitialized bool
	UIState                 map[string]any
}

// decodeDocument unmarshals field by field so one corrupt field never
// discards the rest of the snapshot.
func decodeDocument(raw string, logger Logger) (*RestoredState, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("snapshot is not a JSON object: %w", err)
	}

	st := &RestoredState{Trust: trust.StateGuarded}

	if v, ok := fields["threads"]; ok {
		if err := json.Unmarshal(v, &st.Threads); err != nil {
			st.Threads = nil
			if logger != nil {
				logger.Warn("snapshot_field_unreadable", "field", "threads", "error", err.Error())
			}
		}
	}
	if v, ok := fields["trustState"]; ok {
		var s trust.State
		if err := json.Unmarshal(v, &s); err != nil || !s.Valid() {
			if logger != nil {
				logger.Warn("snapshot_field_unreadable", "field", "trustState")
			}
		} else {
			st.Trust = s
		}
	}
	if v, ok := fields["agentSessionInitialized"]; ok {
		if err := json.Unmarshal(v, &st.AgentSessionInitialized); err != nil {
			st.AgentSessionInitialized = false
			if logger != nil {
				logger.Warn("snapshot_field_unreadable", "field", "agentSessionInitialized")
			}
		}
	}
	if v, ok := fields["uiState"]; ok {
		if err := json.Unmarshal(v, &st.UIState); err != nil {
			st.UIState = nil
			if logger != nil {
				logger.Warn("snapshot_field_unreadable", "field", "uiState")
			}
		}
	}
	return st, nil
}

// =============================================================================
// Gateway
// =============================================================================

// Gateway mediates between the engine's live state and a Storage slot.
//
// Writes are suppressed until MarkLoaded is called, so the snapshot
// writes triggered by restore-time seeding never clobber the slot with
// a half-restored document.
type Gateway struct {
	storage Storage
	key     string
	logger  Logger

	loaded atomic.Bool
}

// NewGateway creates a Gateway writing to the given slot key.
func NewGateway(storage Storage, key string, logger Logger) *Gateway {
	return &Gateway{storage: storage, key: key, logger: logger}
}

// Loaded reports whether the initial restore has completed.
func (g *Gateway) Loaded() bool {
	return g.loaded.Load()
}

// MarkLoaded enables snapshot writes. Called once restore is done.
func (g *Gateway) MarkLoaded() {
	g.loaded.Store(true)
}

// Load reads and tolerantly decodes the snapshot slot. A missing slot
// returns (nil, nil); a storage error is returned as-is so the caller
// can decide to degrade.
func (g *Gateway) Load(ctx context.Context) (*RestoredState, error) {
	raw, ok, err := g.storage.Get(ctx, g.key)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %q: %w", g.key, err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	st, err := decodeDocument(raw, g.logger)
	if err != nil {
		if g.logger != nil {
			g.logger.Warn("snapshot_unreadable", "key", g.key, "error", err.Error())
		}
		return nil, nil
	}
	return st, nil
}

// Snapshot serializes the given state and writes it to the slot. A
// write before MarkLoaded is a no-op; a storage failure is logged and
// swallowed, persistence is best effort.
func (g *Gateway) Snapshot(ctx context.Context, threads map[conversation.ThreadID]conversation.ThreadSnapshot, trustState trust.State, sessionInit bool, uiState map[string]any) {
	if !g.loaded.Load() {
		return
	}

	doc := Document{
		Version:                 DocumentVersion,
		Threads:                 make(map[conversation.ThreadID]ThreadRecord, len(threads)),
		Trust:                   trustState,
		AgentSessionInitialized: sessionInit,
		UIState:                 uiState,
		SavedAt:                 codec.At(time.Now().UTC()),
	}
	for id, snap := range threads {
		doc.Threads[id] = ThreadRecord{
			Messages:     snap.Messages,
			Unread:       snap.Unread,
			LastActivity: codec.At(snap.LastActivity),
			Responsive:   snap.Responsive,
		}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		if g.logger != nil {
			g.logger.Error("snapshot_encode_failed", "error", err.Error())
		}
		return
	}
	if err := g.storage.Set(ctx, g.key, string(data)); err != nil {
		if g.logger != nil {
			g.logger.Warn("snapshot_write_failed", "key", g.key, "error", err.Error())
		}
		return
	}
	if g.logger != nil {
		g.logger.Debug("snapshot_written", "key", g.key, "bytes", len(data))
	}
}

// Reset deletes the snapshot slot.
func (g *Gateway) Reset(ctx context.Context) error {
	if err := g.storage.Remove(ctx, g.key); err != nil {
		return fmt.Errorf("remove snapshot %q: %w", g.key, err)
	}
	return nil
}
