// Package notify serializes cross-thread alerts into a strict FIFO,
// single-visible-at-a-time presentation queue.
//
// There is no priority and no de-duplication: duplicate texts may
// queue back to back. A displayed notification auto-dismisses after a
// fixed duration unless dismissed earlier by user action; either way,
// dismissal immediately promotes the next queued item.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skullsystem/messenger/chatengine/conversation"
)

// Notification is one queued alert.
type Notification struct {
	ID           string
	Text         string
	TargetThread conversation.ThreadID
	TargetApp    string
}

func newNotificationID() string {
	return "notif_" + uuid.New().String()[:16]
}

// ChangeHandler observes the current notification slot. It receives
// the newly displayed notification, or nil when the slot empties with
// nothing queued behind it.
type ChangeHandler func(*Notification)

// Queue is the notification presentation queue. It owns at most one
// auto-dismiss timer at a time.
type Queue struct {
	mu           sync.Mutex
	budget       int
	dismissAfter time.Duration
	pending      []Notification
	current      *Notification
	timer        *time.Timer
	closed       bool

	handlerMu sync.RWMutex
	onChange  []ChangeHandler
}

// NewQueue creates a queue with the given display budget (visible
// characters) and auto-dismiss duration.
func NewQueue(budget int, dismissAfter time.Duration) *Queue {
	return &Queue{budget: budget, dismissAfter: dismissAfter}
}

// OnChange registers an observer for current-slot changes.
func (q *Queue) OnChange(h ChangeHandler) {
	q.handlerMu.Lock()
	defer q.handlerMu.Unlock()
	q.onChange = append(q.onChange, h)
}

// Enqueue appends a notification. The text is prefixed with
// "sourceLabel: " when a label is given and truncated to the display
// budget with a trailing ellipsis marker.
func (q *Queue) Enqueue(text, sourceLabel string, thread conversation.ThreadID, app string) {
	full := text
	if sourceLabel != "" {
		full = sourceLabel + ": " + text
	}
	n := Notification{
		ID:           newNotificationID(),
		Text:         truncate(full, q.budget),
		TargetThread: thread,
		TargetApp:    app,
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, n)
	shown := q.promoteLocked()
	q.mu.Unlock()

	if shown != nil {
		q.fire(shown)
	}
}

// Current returns a copy of the displayed notification, or nil.
func (q *Queue) Current() *Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current == nil {
		return nil
	}
	n := *q.current
	return &n
}

// Pending returns the number of queued, not-yet-displayed items.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Dismiss clears the displayed notification (user action or timeout)
// and immediately promotes the next queued item.
func (q *Queue) Dismiss() {
	q.mu.Lock()
	if q.current == nil {
		q.mu.Unlock()
		return
	}
	q.stopTimerLocked()
	q.current = nil
	shown := q.promoteLocked()
	q.mu.Unlock()

	q.fire(shown)
}

// dismissIf dismisses only if the given notification is still the one
// displayed. Guards against a stale auto-dismiss timer firing after a
// manual dismissal already promoted the next item.
func (q *Queue) dismissIf(id string) {
	q.mu.Lock()
	if q.current == nil || q.current.ID != id {
		q.mu.Unlock()
		return
	}
	q.stopTimerLocked()
	q.current = nil
	shown := q.promoteLocked()
	q.mu.Unlock()

	q.fire(shown)
}

// Reset drops the displayed notification and everything queued.
func (q *Queue) Reset() {
	q.mu.Lock()
	q.stopTimerLocked()
	hadCurrent := q.current != nil
	q.current = nil
	q.pending = nil
	q.mu.Unlock()

	if hadCurrent {
		q.fire(nil)
	}
}

// Shutdown cancels the dismiss timer and refuses further enqueues.
// Safe to call more than once.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	q.stopTimerLocked()
	q.current = nil
	q.pending = nil
	q.closed = true
	q.mu.Unlock()
}

// promoteLocked displays the queue head if the slot is free. Returns
// the newly shown notification, or nil if nothing changed.
func (q *Queue) promoteLocked() *Notification {
	if q.current != nil || len(q.pending) == 0 || q.closed {
		return nil
	}
	head := q.pending[0]
	q.pending = q.pending[1:]
	q.current = &head
	q.timer = time.AfterFunc(q.dismissAfter, func() { q.dismissIf(head.ID) })
	shown := head
	return &shown
}

func (q *Queue) stopTimerLocked() {
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
}

func (q *Queue) fire(n *Notification) {
	q.handlerMu.RLock()
	handlers := make([]ChangeHandler, len(q.onChange))
	copy(handlers, q.onChange)
	q.handlerMu.RUnlock()

	for _, h := range handlers {
		h(n)
	}
}

// truncate limits text to budget visible characters, appending an
// ellipsis marker when anything was cut.
func truncate(text string, budget int) string {
	runes := []rune(text)
	if len(runes) <= budget {
		return text
	}
	if budget <= 0 {
		return ""
	}
	if budget <= 3 {
		return string(runes[:budget])
	}
	return string(runes[:budget-3]) + "..."
}
