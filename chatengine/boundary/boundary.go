// Package boundary defines the contracts for the external
// conversational agent: session construction, message exchange, and
// image generation.
//
// The engine treats all three as opaque, potentially failing,
// asynchronous calls. Responses come back as a tagged result so the
// error-handling layer can branch explicitly instead of probing
// optional fields.
package boundary

import (
	"context"

	"github.com/skullsystem/messenger/chatengine/conversation"
)

// =============================================================================
// Conversation History
// =============================================================================

// Role identifies who authored a history turn.
type Role string

const (
	// RoleUser marks turns authored by the player.
	RoleUser Role = "user"
	// RoleModel marks turns authored by the agent.
	RoleModel Role = "model"
)

// Turn is one entry of the agent's conversation context.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// HistoryFromMessages converts a stored agent-thread message list into
// boundary history turns.
//
// Pending placeholders, errors, image-only messages, and system
// notices are excluded: only finalized text from the user and the
// agent participates in the conversation context. The restore path
// uses this same conversion so a rehydrated session continues the
// conversation coherently.
func HistoryFromMessages(msgs []conversation.Message) []Turn {
	turns := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		if m.Text == "" || m.IsPending || m.IsError {
			continue
		}
		switch m.Sender {
		case conversation.SenderUser:
			turns = append(turns, Turn{Role: RoleUser, Text: m.Text})
		case conversation.SenderAgent:
			turns = append(turns, Turn{Role: RoleModel, Text: m.Text})
		}
	}
	return turns
}

// =============================================================================
// Tagged Result
// =============================================================================

// ResultKind discriminates boundary response outcomes.
type ResultKind string

const (
	// ResultOK carries usable response text.
	ResultOK ResultKind = "ok"
	// ResultBlocked indicates the response was blocked or cut short,
	// with a reason when the boundary supplied one.
	ResultBlocked ResultKind = "blocked"
	// ResultEmpty indicates the boundary returned no usable text.
	ResultEmpty ResultKind = "empty"
)

// Result is the tagged outcome of one boundary exchange.
type Result struct {
	Kind   ResultKind
	Text   string
	Reason string
}

// OK builds a successful result.
func OK(text string) *Result {
	return &Result{Kind: ResultOK, Text: text}
}

// Blocked builds a blocked result with an optional reason.
func Blocked(reason string) *Result {
	return &Result{Kind: ResultBlocked, Reason: reason}
}

// Empty builds an empty result.
func Empty() *Result {
	return &Result{Kind: ResultEmpty}
}

// =============================================================================
// Contracts
// =============================================================================

// Session is one live conversation with the external agent.
type Session interface {
	// Send delivers user text and returns the agent's tagged response.
	// A returned error means the call itself failed (network, runtime);
	// a non-OK Result means the call succeeded but produced no usable
	// text.
	Send(ctx context.Context, text string) (*Result, error)
}

// Provider constructs sessions and generates images.
type Provider interface {
	// StartSession opens a conversation primed with a system
	// instruction and optional prior history.
	StartSession(ctx context.Context, systemInstruction string, history []Turn) (Session, error)

	// GenerateImage renders an image for an embedded directive prompt.
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}
