// Package events provides the engine's in-memory event fan-out.
//
// The engine publishes lifecycle and mutation events; the persistence
// trigger, metrics recording, and UI collaborators subscribe. Delivery
// is synchronous and in registration order, preserving the engine's
// cooperative single-event-loop model - there is no cross-goroutine
// fan-out here.
package events

import (
	"context"
	"log"
	"sync"

	"github.com/skullsystem/messenger/chatengine/conversation"
	"github.com/skullsystem/messenger/chatengine/trust"
)

// Event is the protocol for all bus events.
type Event interface {
	// Kind returns the event's routing key.
	Kind() string
}

// Handler consumes events. A handler error is logged and does not stop
// other handlers.
type Handler func(ctx context.Context, e Event) error

// Bus is a synchronous in-memory event bus.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]Handler
	all         []Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe registers a handler for one event kind.
func (b *Bus) Subscribe(kind string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[kind] = append(b.subscribers[kind], h)
}

// SubscribeAll registers a handler for every event.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

// Publish delivers an event to all matching handlers, in registration
// order, on the caller's goroutine.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.all)+len(b.subscribers[e.Kind()]))
	handlers = append(handlers, b.all...)
	handlers = append(handlers, b.subscribers[e.Kind()]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, e); err != nil {
			log.Printf("event handler failed for %s: %v", e.Kind(), err)
		}
	}
}

// =============================================================================
// Event Types
// =============================================================================

// Event kinds.
const (
	KindMessageAppended   = "message_appended"
	KindThreadFocused     = "thread_focused"
	KindTrustChanged      = "trust_changed"
	KindDeliveryStarted   = "delivery_started"
	KindDeliveryFinished  = "delivery_finished"
	KindIdleCheckIn       = "idle_check_in"
	KindNotificationShown = "notification_shown"
	KindSnapshotWritten   = "snapshot_written"
)

// MessageAppended is published after a message lands in a thread.
type MessageAppended struct {
	Thread    conversation.ThreadID
	MessageID string
	Sender    conversation.Sender
}

// Kind implements the Event interface.
func (e *MessageAppended) Kind() string { return KindMessageAppended }

// ThreadFocused is published when the user switches threads.
type ThreadFocused struct {
	Thread conversation.ThreadID
}

// Kind implements the Event interface.
func (e *ThreadFocused) Kind() string { return KindThreadFocused }

// TrustChanged is published on a trust state transition.
type TrustChanged struct {
	State trust.State
}

// Kind implements the Event interface.
func (e *TrustChanged) Kind() string { return KindTrustChanged }

// DeliveryStarted is published when a pacer run begins.
type DeliveryStarted struct {
	Segments int
}

// Kind implements the Event interface.
func (e *DeliveryStarted) Kind() string { return KindDeliveryStarted }

// DeliveryFinished is published when a pacer run ends.
type DeliveryFinished struct {
	Status string // "success", "error", "cancelled"
}

// Kind implements the Event interface.
func (e *DeliveryFinished) Kind() string { return KindDeliveryFinished }

// IdleCheckIn is published when the idle scheduler delivers a
// proactive message.
type IdleCheckIn struct {
	Text string
}

// Kind implements the Event interface.
func (e *IdleCheckIn) Kind() string { return KindIdleCheckIn }

// NotificationShown is published when a notification becomes current.
type NotificationShown struct {
	Text string
}

// Kind implements the Event interface.
func (e *NotificationShown) Kind() string { return KindNotificationShown }

// SnapshotWritten is published after a successful durable write.
type SnapshotWritten struct {
	Key string
}

// Kind implements the Event interface.
func (e *SnapshotWritten) Kind() string { return KindSnapshotWritten }
