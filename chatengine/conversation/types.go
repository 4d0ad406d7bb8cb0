// Package conversation provides the conversation store - the engine's
// central data model.
//
// Key concepts:
//   - ThreadID: the closed set of conversation targets
//   - Message: one chat entry, including transient typing placeholders
//   - Store: per-thread message lists with enforced unread accounting
package conversation

import (
	"github.com/google/uuid"

	"github.com/skullsystem/messenger/chatengine/codec"
)

// =============================================================================
// Thread Identifiers
// =============================================================================

// ThreadID identifies one conversation target. The set is fixed at
// compile time; there is exactly one reactive agent thread, the rest
// carry static pre-authored content.
type ThreadID string

const (
	// ThreadSubject34 is the reactive agent thread.
	ThreadSubject34 ThreadID = "subject34"
	// ThreadRelocation is a static thread seeded with the relocation
	// unit exchange.
	ThreadRelocation ThreadID = "relocation"
	// ThreadSubject32 is a static, empty archival thread.
	ThreadSubject32 ThreadID = "subject32"
	// ThreadSubject33 is a static, empty archival thread.
	ThreadSubject33 ThreadID = "subject33"
)

// AgentThread is the one thread backed by the external agent boundary.
const AgentThread = ThreadSubject34

// AllThreadIDs returns every known thread identifier in display order.
func AllThreadIDs() []ThreadID {
	return []ThreadID{ThreadSubject34, ThreadRelocation, ThreadSubject32, ThreadSubject33}
}

// Valid reports whether id names a known thread.
func (id ThreadID) Valid() bool {
	switch id {
	case ThreadSubject34, ThreadRelocation, ThreadSubject32, ThreadSubject33:
		return true
	}
	return false
}

// =============================================================================
// Senders
// =============================================================================

// Sender identifies who authored a message.
type Sender string

const (
	// SenderUser is the player.
	SenderUser Sender = "user"
	// SenderAgent is the simulated remote party on the agent thread.
	SenderAgent Sender = "agent"
	// SenderRelocationUnit authors the seeded relocation thread.
	SenderRelocationUnit Sender = "relocation_unit"
	// SenderSystem authors injected error and notice messages.
	SenderSystem Sender = "system"
)

// =============================================================================
// Messages
// =============================================================================

// Message is a single chat entry.
//
// A message with IsPending set is a transient placeholder (typing
// indicator or in-flight image); it is removed or replaced in place,
// never left behind once resolved.
type Message struct {
	ID        string          `json:"id"`
	Sender    Sender          `json:"sender"`
	Text      string          `json:"text,omitempty"`
	ImageRef  string          `json:"image_ref,omitempty"`
	Timestamp codec.Timestamp `json:"timestamp"`
	IsPending bool            `json:"is_pending,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
	IsSeen    bool            `json:"is_seen"`
}

// NewMessageID returns a fresh collision-safe message identifier.
func NewMessageID() string {
	return "msg_" + uuid.New().String()[:16]
}

// CountsAsUnread reports whether the message contributes to its
// thread's unread count.
func (m Message) CountsAsUnread() bool {
	return !m.IsSeen && m.Sender != SenderUser
}
