package script

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skullsystem/messenger/chatengine/conversation"
)

func TestNextHourETA(t *testing.T) {
	now := time.Date(2026, 8, 30, 14, 23, 45, 0, time.UTC)
	assert.Equal(t, "15:00", NextHourETA(now))

	onTheHour := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, "15:00", NextHourETA(onTheHour))
}

func TestRelocationSeedHistory(t *testing.T) {
	now := time.Date(2026, 8, 30, 14, 23, 0, 0, time.UTC)
	msgs := RelocationSeedHistory(now)
	require.Len(t, msgs, 2)

	assert.Equal(t, conversation.SenderUser, msgs[0].Sender)
	assert.True(t, msgs[0].IsSeen)

	assert.Equal(t, conversation.SenderRelocationUnit, msgs[1].Sender)
	assert.False(t, msgs[1].IsSeen)
	assert.Contains(t, msgs[1].Text, "15:00")
	assert.NotContains(t, msgs[1].Text, DynamicNextHourToken)

	// Timestamps read as an hour-old exchange.
	assert.True(t, msgs[0].Timestamp.Time().Before(msgs[1].Timestamp.Time()))
	assert.True(t, msgs[1].Timestamp.Time().Before(now))
}

func TestContactsRoster(t *testing.T) {
	contacts := Contacts()
	require.Len(t, contacts, 4)

	assert.Equal(t, conversation.AgentThread, contacts[0].ID)
	assert.True(t, contacts[0].Responsive)

	responsive := 0
	for _, c := range contacts {
		if c.Responsive {
			responsive++
		}
	}
	assert.Equal(t, 1, responsive, "only the agent answers")
}

func TestContactByID(t *testing.T) {
	c, ok := ContactByID(conversation.ThreadRelocation)
	require.True(t, ok)
	assert.Equal(t, RelocationUnitName, c.Name)

	_, ok = ContactByID(conversation.ThreadID("bogus"))
	assert.False(t, ok)
}

func TestTypingPlaceholderNamesAgent(t *testing.T) {
	assert.True(t, strings.HasPrefix(TypingPlaceholder, AgentProfileName))
}

func TestTrustKeywordsNonEmpty(t *testing.T) {
	require.NotEmpty(t, TrustKeywords)
	for _, k := range TrustKeywords {
		assert.NotEmpty(t, strings.TrimSpace(k))
	}
}

func TestIdleCheckInMessagesNonEmpty(t *testing.T) {
	require.NotEmpty(t, IdleCheckInMessages)
}
