package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skullsystem/messenger/chatengine/codec"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func agentMsg(text string) Message {
	return Message{
		ID:        NewMessageID(),
		Sender:    SenderAgent,
		Text:      text,
		Timestamp: codec.Now(),
	}
}

func userMsg(text string) Message {
	return Message{
		ID:        NewMessageID(),
		Sender:    SenderUser,
		Text:      text,
		Timestamp: codec.Now(),
		IsSeen:    true,
	}
}

// =============================================================================
// UNREAD ACCOUNTING
// =============================================================================

func TestAppendCountsUnseenNonUserMessages(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.Append(ThreadSubject34, agentMsg("hello")))
	require.NoError(t, s.Append(ThreadSubject34, agentMsg("again")))
	require.NoError(t, s.Append(ThreadSubject34, userMsg("hi")))

	assert.Equal(t, 2, s.UnreadCount(ThreadSubject34))
}

func TestFocusMarksMessagesSeen(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Append(ThreadSubject34, agentMsg("hello")))
	require.Equal(t, 1, s.UnreadCount(ThreadSubject34))

	require.NoError(t, s.Focus(ThreadSubject34))

	assert.Equal(t, 0, s.UnreadCount(ThreadSubject34))
	for _, m := range s.Messages(ThreadSubject34) {
		assert.True(t, m.IsSeen)
	}
	assert.True(t, s.IsFocused(ThreadSubject34))
}

func TestAppendToFocusedThreadStillCountsUnseen(t *testing.T) {
	// Seen is decided by the writer at append time; the store only
	// recounts. An unseen append lands unread even while focused.
	s := NewStore()
	require.NoError(t, s.Focus(ThreadSubject34))

	msg := agentMsg("while open")
	msg.IsSeen = true
	require.NoError(t, s.Append(ThreadSubject34, msg))
	assert.Equal(t, 0, s.UnreadCount(ThreadSubject34))

	require.NoError(t, s.Append(ThreadSubject34, agentMsg("unseen")))
	assert.Equal(t, 1, s.UnreadCount(ThreadSubject34))
}

func TestBlurClearsFocus(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Focus(ThreadSubject34))
	s.Blur()
	assert.False(t, s.IsFocused(ThreadSubject34))
	assert.Equal(t, ThreadID(""), s.Focused())
}

func TestUnknownThread(t *testing.T) {
	s := NewStore()
	err := s.Append(ThreadID("bogus"), agentMsg("x"))
	require.Error(t, err)
	var unknownErr *UnknownThreadError
	assert.ErrorAs(t, err, &unknownErr)
}

// =============================================================================
// PENDING RESOLUTION
// =============================================================================

func TestReplacePendingKeepsPositionAndID(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Append(ThreadSubject34, agentMsg("first")))

	pending := agentMsg("")
	pending.IsPending = true
	require.NoError(t, s.Append(ThreadSubject34, pending))
	require.NoError(t, s.Append(ThreadSubject34, agentMsg("third")))

	resolved := Message{Sender: SenderAgent, Text: "resolved", Timestamp: codec.Now()}
	require.NoError(t, s.ReplacePending(ThreadSubject34, pending.ID, resolved))

	msgs := s.Messages(ThreadSubject34)
	require.Len(t, msgs, 3)
	assert.Equal(t, "resolved", msgs[1].Text)
	assert.Equal(t, pending.ID, msgs[1].ID)
	assert.False(t, msgs[1].IsPending)
}

func TestReplacePendingMissingMessage(t *testing.T) {
	s := NewStore()
	err := s.ReplacePending(ThreadSubject34, "msg_missing", agentMsg("x"))
	var noSuchErr *NoSuchMessageError
	assert.ErrorAs(t, err, &noSuchErr)
}

func TestRemoveMessage(t *testing.T) {
	s := NewStore()
	m := agentMsg("transient")
	require.NoError(t, s.Append(ThreadSubject34, m))
	require.NoError(t, s.RemoveMessage(ThreadSubject34, m.ID))

	assert.Empty(t, s.Messages(ThreadSubject34))
	assert.Equal(t, 0, s.UnreadCount(ThreadSubject34))
}

func TestClearPending(t *testing.T) {
	s := NewStore()
	p1 := agentMsg("")
	p1.IsPending = true
	p2 := agentMsg("")
	p2.IsPending = true
	require.NoError(t, s.Append(ThreadSubject34, p1))
	require.NoError(t, s.Append(ThreadSubject34, agentMsg("keep")))
	require.NoError(t, s.Append(ThreadSubject34, p2))

	removed := s.ClearPending(ThreadSubject34, SenderAgent)
	assert.Equal(t, 2, removed)

	msgs := s.Messages(ThreadSubject34)
	require.Len(t, msgs, 1)
	assert.Equal(t, "keep", msgs[0].Text)
}

// =============================================================================
// SEEDING AND RESET
// =============================================================================

func TestSeedReplacesWholesaleAndRecounts(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Append(ThreadRelocation, agentMsg("old")))

	seeded := []Message{userMsg("sent"), {
		ID:        NewMessageID(),
		Sender:    SenderRelocationUnit,
		Text:      "on my way",
		Timestamp: codec.Now(),
	}}
	require.NoError(t, s.Seed(ThreadRelocation, seeded, false))

	msgs := s.Messages(ThreadRelocation)
	require.Len(t, msgs, 2)
	assert.Equal(t, 1, s.UnreadCount(ThreadRelocation))
	assert.False(t, s.IsResponsive(ThreadRelocation))
}

func TestResetEmptiesEveryThread(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Append(ThreadSubject34, agentMsg("x")))
	require.NoError(t, s.Focus(ThreadSubject34))

	s.Reset()

	for _, id := range AllThreadIDs() {
		assert.Empty(t, s.Messages(id))
		assert.Equal(t, 0, s.UnreadCount(id))
	}
	assert.Equal(t, ThreadID(""), s.Focused())
}

// =============================================================================
// PROJECTIONS
// =============================================================================

func TestLastActivityAdvancesWithAppends(t *testing.T) {
	s := NewStore()
	assert.True(t, s.LastActivity(ThreadSubject34).IsZero())

	require.NoError(t, s.Append(ThreadSubject34, agentMsg("x")))
	assert.False(t, s.LastActivity(ThreadSubject34).IsZero())

	past := time.Now().Add(-time.Hour)
	old := agentMsg("older")
	old.Timestamp = codec.At(past)
	before := s.LastActivity(ThreadSubject34)
	require.NoError(t, s.Append(ThreadSubject34, old))
	assert.Equal(t, before, s.LastActivity(ThreadSubject34))
}

func TestAgentTallySkipsPendingAndErrors(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Append(ThreadSubject34, agentMsg("one")))
	require.NoError(t, s.Append(ThreadSubject34, agentMsg("two")))

	img := Message{ID: NewMessageID(), Sender: SenderAgent, ImageRef: "data:image/png;base64,xx", Timestamp: codec.Now()}
	require.NoError(t, s.Append(ThreadSubject34, img))

	pending := agentMsg("")
	pending.IsPending = true
	require.NoError(t, s.Append(ThreadSubject34, pending))

	errMsg := agentMsg("boom")
	errMsg.IsError = true
	require.NoError(t, s.Append(ThreadSubject34, errMsg))

	texts, images := s.AgentTally(ThreadSubject34)
	assert.Equal(t, 2, texts)
	assert.Equal(t, 1, images)
}

func TestMessagesReturnsCopy(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Append(ThreadSubject34, agentMsg("x")))

	msgs := s.Messages(ThreadSubject34)
	msgs[0].Text = "mutated"

	assert.Equal(t, "x", s.Messages(ThreadSubject34)[0].Text)
}

// =============================================================================
// OBSERVERS
// =============================================================================

func TestObserverReceivesCommittedMutations(t *testing.T) {
	s := NewStore()
	var got []Mutation
	s.OnMutation(func(m Mutation) {
		got = append(got, m)
	})

	m := agentMsg("x")
	require.NoError(t, s.Append(ThreadSubject34, m))
	require.NoError(t, s.Focus(ThreadSubject34))

	require.Len(t, got, 2)
	assert.Equal(t, MutationAppend, got[0].Kind)
	assert.Equal(t, m.ID, got[0].MessageID)
	assert.Equal(t, MutationFocus, got[1].Kind)
}

func TestObserverMayReadStore(t *testing.T) {
	s := NewStore()
	var unreadAt int
	s.OnMutation(func(m Mutation) {
		unreadAt = s.UnreadCount(ThreadSubject34)
	})
	require.NoError(t, s.Append(ThreadSubject34, agentMsg("x")))
	assert.Equal(t, 1, unreadAt)
}
