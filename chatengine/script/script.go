// Package script carries the narrative content the engine orchestrates:
// the contact roster, seeded static histories, trust trigger phrases,
// idle check-in lines, and the fixed UI strings attached to deliveries.
//
// Prompt construction and model selection are not part of the core;
// the system instruction handed to the boundary is supplied by the
// embedding application.
package script

import (
	"strings"
	"time"

	"github.com/skullsystem/messenger/chatengine/codec"
	"github.com/skullsystem/messenger/chatengine/conversation"
)

// Display names.
const (
	// AgentProfileName labels the agent in the contact list and in
	// notification prefixes.
	AgentProfileName = "Subject #34"
	// AgentSpeakerName is the name the agent goes by in running text.
	AgentSpeakerName = "Lily"
	// RelocationUnitName labels the seeded relocation thread.
	RelocationUnitName = "Relocation Unit"
)

// Fixed UI strings.
const (
	// TypingPlaceholder is the transient typing-indicator text.
	TypingPlaceholder = AgentProfileName + " is typing..."
	// ImageFailureText replaces an image message when generation fails.
	ImageFailureText = "Sorry, I couldn't create an image right now. There might be an issue with the image generation service."
	// SendingImageNotice is the notification text for an in-flight image.
	SendingImageNotice = "Sent an image"
	// BoundaryUnavailableText is injected when no agent session can be
	// constructed at all.
	BoundaryUnavailableText = "Error: AI Service not initialized."
)

// TrustKeywords are the phrases in agent output that signal the shift
// into the cooperative disposition.
var TrustKeywords = []string{
	"i can't believe it",
	"he's really not coming back",
	"get me out of here",
	"i'll do anything",
	"tell me what to do",
	"you're sure?",
	"you're really here to help",
}

// IdleCheckInMessages are the canned proactive lines sent while the
// agent is trusting and the player has gone quiet.
var IdleCheckInMessages = []string{
	"Are you still there?",
	"Hello...?",
	"Everything okay?",
	"Just checking in...",
	"Did you manage to find anything new?",
	"Any luck?",
	"I'm still here, waiting.",
	"Please tell me you're still trying to help.",
}

// Contact describes one entry of the messenger roster.
type Contact struct {
	ID          conversation.ThreadID
	Name        string
	Responsive  bool
	Description string
}

// Contacts returns the fixed roster in display order.
func Contacts() []Contact {
	return []Contact{
		{ID: conversation.ThreadSubject34, Name: AgentProfileName, Responsive: true, Description: "Online"},
		{ID: conversation.ThreadRelocation, Name: RelocationUnitName, Responsive: false, Description: "Offline"},
		{ID: conversation.ThreadSubject32, Name: "Subject #32", Responsive: false, Description: "Connection Terminated"},
		{ID: conversation.ThreadSubject33, Name: "Subject #33", Responsive: false, Description: "Connection Terminated"},
	}
}

// ContactByID looks up a roster entry.
func ContactByID(id conversation.ThreadID) (Contact, bool) {
	for _, c := range Contacts() {
		if c.ID == id {
			return c, true
		}
	}
	return Contact{}, false
}

// DynamicNextHourToken is replaced in seeded text with the next full
// hour, resolved against session start.
const DynamicNextHourToken = "[DYNAMIC_NEXT_HOUR_TIME]"

// NextHourETA formats the next full hour after now as HH:MM.
func NextHourETA(now time.Time) string {
	next := now.Truncate(time.Hour).Add(time.Hour)
	return next.Format("15:04")
}

// RelocationSeedHistory builds the pre-authored relocation thread,
// with timestamps resolved against now and the dynamic ETA token
// replaced. Messages start unseen so the seeded thread carries an
// unread badge until the player opens it.
func RelocationSeedHistory(now time.Time) []conversation.Message {
	eta := NextHourETA(now)
	return []conversation.Message{
		{
			ID:        conversation.NewMessageID(),
			Sender:    conversation.SenderUser,
			Text:      "Subject #34 is ready. You can pick her up.",
			Timestamp: codec.At(now.Add(-60 * time.Minute)),
			IsSeen:    true,
		},
		{
			ID:     conversation.NewMessageID(),
			Sender: conversation.SenderRelocationUnit,
			Text: strings.ReplaceAll(
				"Understood. On my way to the sellers. I'll be there around "+DynamicNextHourToken+". I'll text you when I'm back at my place.",
				DynamicNextHourToken, eta),
			Timestamp: codec.At(now.Add(-55 * time.Minute)),
		},
	}
}
