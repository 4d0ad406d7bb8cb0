package persist

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skullsystem/messenger/chatengine/codec"
	"github.com/skullsystem/messenger/chatengine/conversation"
	"github.com/skullsystem/messenger/chatengine/trust"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// slotStore is a minimal Storage for gateway tests.
type slotStore struct {
	slots     map[string]string
	getErr    error
	setErr    error
	setCalls  int
	removeErr error
}

func newSlotStore() *slotStore {
	return &slotStore{slots: make(map[string]string)}
}

func (s *slotStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s.getErr != nil {
		return "", false, s.getErr
	}
	v, ok := s.slots[key]
	return v, ok, nil
}

func (s *slotStore) Set(ctx context.Context, key, value string) error {
	s.setCalls++
	if s.setErr != nil {
		return s.setErr
	}
	s.slots[key] = value
	return nil
}

func (s *slotStore) Remove(ctx context.Context, key string) error {
	if s.removeErr != nil {
		return s.removeErr
	}
	delete(s.slots, key)
	return nil
}

func sampleThreads() map[conversation.ThreadID]conversation.ThreadSnapshot {
	return map[conversation.ThreadID]conversation.ThreadSnapshot{
		conversation.ThreadSubject34: {
			Messages: []conversation.Message{
				{ID: "msg_1", Sender: conversation.SenderUser, Text: "hello", Timestamp: codec.Now(), IsSeen: true},
				{ID: "msg_2", Sender: conversation.SenderAgent, Text: "who is this?", Timestamp: codec.Now()},
			},
			Unread:       1,
			LastActivity: time.Now().UTC(),
			Responsive:   true,
		},
	}
}

// =============================================================================
// SNAPSHOT
// =============================================================================

func TestSnapshotSuppressedBeforeLoad(t *testing.T) {
	store := newSlotStore()
	g := NewGateway(store, "k", nil)

	g.Snapshot(context.Background(), sampleThreads(), trust.StateGuarded, false, nil)
	assert.Equal(t, 0, store.setCalls)

	g.MarkLoaded()
	g.Snapshot(context.Background(), sampleThreads(), trust.StateGuarded, false, nil)
	assert.Equal(t, 1, store.setCalls)
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := newSlotStore()
	g := NewGateway(store, "k", nil)
	g.MarkLoaded()

	g.Snapshot(context.Background(), sampleThreads(), trust.StateTrusting, true, map[string]any{"activeApp": "messenger"})

	restored, err := g.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, restored)

	assert.Equal(t, trust.StateTrusting, restored.Trust)
	assert.True(t, restored.AgentSessionInitialized)
	assert.Equal(t, "messenger", restored.UIState["activeApp"])

	rec, ok := restored.Threads[conversation.ThreadSubject34]
	require.True(t, ok)
	require.Len(t, rec.Messages, 2)
	assert.Equal(t, "hello", rec.Messages[0].Text)
	assert.Equal(t, 1, rec.Unread)
	assert.True(t, rec.Responsive)
}

func TestSnapshotWriteFailureIsSwallowed(t *testing.T) {
	store := newSlotStore()
	store.setErr = errors.New("disk full")
	g := NewGateway(store, "k", nil)
	g.MarkLoaded()

	// Must not panic or surface the error.
	g.Snapshot(context.Background(), sampleThreads(), trust.StateGuarded, false, nil)
	assert.Equal(t, 1, store.setCalls)
}

// =============================================================================
// LOAD
// =============================================================================

func TestLoadMissingSlot(t *testing.T) {
	g := NewGateway(newSlotStore(), "k", nil)
	restored, err := g.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, restored)
}

func TestLoadStorageError(t *testing.T) {
	store := newSlotStore()
	store.getErr = errors.New("io error")
	g := NewGateway(store, "k", nil)

	_, err := g.Load(context.Background())
	assert.Error(t, err)
}

func TestLoadGarbageDegradesToNil(t *testing.T) {
	store := newSlotStore()
	store.slots["k"] = "{{{not json"
	g := NewGateway(store, "k", nil)

	restored, err := g.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, restored)
}

func TestLoadToleratesCorruptFields(t *testing.T) {
	store := newSlotStore()
	doc := map[string]any{
		"version":                 1,
		"trustState":              12345, // wrong type
		"agentSessionInitialized": true,
		"threads": map[string]any{
			"subject34": map[string]any{
				"messages": []any{
					map[string]any{"id": "msg_1", "sender": "user", "text": "hi", "is_seen": true},
				},
				"unreadCount": 0,
				"responsive":  true,
			},
		},
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	store.slots["k"] = string(raw)

	g := NewGateway(store, "k", nil)
	restored, err := g.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, restored)

	// Corrupt field falls back, healthy fields survive.
	assert.Equal(t, trust.StateGuarded, restored.Trust)
	assert.True(t, restored.AgentSessionInitialized)
	require.Contains(t, restored.Threads, conversation.ThreadSubject34)
	assert.Equal(t, "hi", restored.Threads[conversation.ThreadSubject34].Messages[0].Text)
}

func TestLoadRejectsInvalidTrustValue(t *testing.T) {
	store := newSlotStore()
	store.slots["k"] = `{"version":1,"trustState":"paranoid"}`
	g := NewGateway(store, "k", nil)

	restored, err := g.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, trust.StateGuarded, restored.Trust)
}

// =============================================================================
// RESET
// =============================================================================

func TestReset(t *testing.T) {
	store := newSlotStore()
	g := NewGateway(store, "k", nil)
	g.MarkLoaded()
	g.Snapshot(context.Background(), sampleThreads(), trust.StateGuarded, false, nil)
	require.Contains(t, store.slots, "k")

	require.NoError(t, g.Reset(context.Background()))
	assert.NotContains(t, store.slots, "k")
}
