package conversation

import (
	"fmt"
	"sync"
	"time"
)

// =============================================================================
// Mutations
// =============================================================================

// MutationKind classifies a store mutation for observers.
type MutationKind string

const (
	// MutationAppend indicates a message was appended.
	MutationAppend MutationKind = "append"
	// MutationReplace indicates a pending message was resolved in place.
	MutationReplace MutationKind = "replace"
	// MutationRemove indicates a transient message was removed.
	MutationRemove MutationKind = "remove"
	// MutationFocus indicates the focused thread changed.
	MutationFocus MutationKind = "focus"
	// MutationSeed indicates a thread's contents were replaced wholesale.
	MutationSeed MutationKind = "seed"
	// MutationReset indicates the store returned to its empty state.
	MutationReset MutationKind = "reset"
)

// Mutation describes one committed store change.
type Mutation struct {
	Thread    ThreadID
	Kind      MutationKind
	MessageID string
}

// MutationObserver receives committed mutations. Observers run after
// the store lock is released and may read the store freely.
type MutationObserver func(Mutation)

// =============================================================================
// Errors
// =============================================================================

// UnknownThreadError is returned for thread identifiers outside the
// closed set.
type UnknownThreadError struct {
	Thread ThreadID
}

func (e *UnknownThreadError) Error() string {
	return fmt.Sprintf("unknown thread: %s", string(e.Thread))
}

// NoSuchMessageError is returned when a replace or remove targets a
// message that is not present.
type NoSuchMessageError struct {
	Thread    ThreadID
	MessageID string
}

func (e *NoSuchMessageError) Error() string {
	return fmt.Sprintf("no message %s in thread %s", e.MessageID, string(e.Thread))
}

// =============================================================================
// Store
// =============================================================================

type threadState struct {
	messages     []Message
	lastActivity time.Time
	unread       int
	responsive   bool
}

// ThreadSnapshot is a deep copy of one thread's state, used by the
// persistence gateway and by read-only projections.
type ThreadSnapshot struct {
	Messages     []Message
	Unread       int
	LastActivity time.Time
	Responsive   bool
}

// Store holds every thread's message list and enforces the unread
// invariant on each mutation: a thread's unread count always equals
// the number of unseen non-user messages it contains.
//
// At most one thread is focused at a time ("" means none). Focus only
// affects seen/unread accounting and notification routing; it never
// blocks mutations on other threads.
type Store struct {
	mu      sync.RWMutex
	threads map[ThreadID]*threadState
	focused ThreadID

	obsMu     sync.RWMutex
	observers []MutationObserver
}

// NewStore creates an empty store with every known thread present.
func NewStore() *Store {
	s := &Store{threads: make(map[ThreadID]*threadState, len(AllThreadIDs()))}
	for _, id := range AllThreadIDs() {
		s.threads[id] = &threadState{}
	}
	return s
}

// OnMutation registers an observer for committed mutations.
func (s *Store) OnMutation(obs MutationObserver) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, obs)
}

func (s *Store) notify(m Mutation) {
	s.obsMu.RLock()
	observers := make([]MutationObserver, len(s.observers))
	copy(observers, s.observers)
	s.obsMu.RUnlock()

	for _, obs := range observers {
		obs(m)
	}
}

func recount(st *threadState) {
	n := 0
	for _, m := range st.messages {
		if m.CountsAsUnread() {
			n++
		}
	}
	st.unread = n
}

// =============================================================================
// Write Operations
// =============================================================================

// Append adds a message to the end of a thread and advances the
// thread's last-activity instant.
func (s *Store) Append(id ThreadID, msg Message) error {
	s.mu.Lock()
	st, ok := s.threads[id]
	if !ok {
		s.mu.Unlock()
		return &UnknownThreadError{Thread: id}
	}
	st.messages = append(st.messages, msg)
	if at := msg.Timestamp.Time(); at.After(st.lastActivity) {
		st.lastActivity = at
	}
	recount(st)
	s.mu.Unlock()

	s.notify(Mutation{Thread: id, Kind: MutationAppend, MessageID: msg.ID})
	return nil
}

// ReplacePending resolves a pending message in place, keeping its
// position in the thread. The replacement keeps the original ID.
func (s *Store) ReplacePending(id ThreadID, messageID string, replacement Message) error {
	s.mu.Lock()
	st, ok := s.threads[id]
	if !ok {
		s.mu.Unlock()
		return &UnknownThreadError{Thread: id}
	}
	found := false
	for i := range st.messages {
		if st.messages[i].ID == messageID {
			replacement.ID = messageID
			st.messages[i] = replacement
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return &NoSuchMessageError{Thread: id, MessageID: messageID}
	}
	if at := replacement.Timestamp.Time(); at.After(st.lastActivity) {
		st.lastActivity = at
	}
	recount(st)
	s.mu.Unlock()

	s.notify(Mutation{Thread: id, Kind: MutationReplace, MessageID: messageID})
	return nil
}

// RemoveMessage deletes a message by ID. Only transient placeholders
// are ever removed in practice.
func (s *Store) RemoveMessage(id ThreadID, messageID string) error {
	s.mu.Lock()
	st, ok := s.threads[id]
	if !ok {
		s.mu.Unlock()
		return &UnknownThreadError{Thread: id}
	}
	found := false
	for i := range st.messages {
		if st.messages[i].ID == messageID {
			st.messages = append(st.messages[:i], st.messages[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return &NoSuchMessageError{Thread: id, MessageID: messageID}
	}
	recount(st)
	s.mu.Unlock()

	s.notify(Mutation{Thread: id, Kind: MutationRemove, MessageID: messageID})
	return nil
}

// ClearPending removes every pending placeholder from the given sender
// in a thread. Used when a delivery fails mid-flight.
func (s *Store) ClearPending(id ThreadID, sender Sender) int {
	s.mu.Lock()
	st, ok := s.threads[id]
	if !ok {
		s.mu.Unlock()
		return 0
	}
	kept := st.messages[:0]
	removed := 0
	for _, m := range st.messages {
		if m.IsPending && m.Sender == sender {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	st.messages = kept
	recount(st)
	s.mu.Unlock()

	if removed > 0 {
		s.notify(Mutation{Thread: id, Kind: MutationRemove})
	}
	return removed
}

// Focus marks a thread as the one the user is looking at. Every
// non-user message in it becomes seen and its unread count drops to
// zero immediately.
func (s *Store) Focus(id ThreadID) error {
	s.mu.Lock()
	st, ok := s.threads[id]
	if !ok {
		s.mu.Unlock()
		return &UnknownThreadError{Thread: id}
	}
	s.focused = id
	for i := range st.messages {
		if st.messages[i].Sender != SenderUser {
			st.messages[i].IsSeen = true
		}
	}
	recount(st)
	s.mu.Unlock()

	s.notify(Mutation{Thread: id, Kind: MutationFocus})
	return nil
}

// Blur clears the focused thread.
func (s *Store) Blur() {
	s.mu.Lock()
	s.focused = ""
	s.mu.Unlock()
}

// Seed replaces a thread's contents wholesale. Used at session start
// for static threads and by the restore path. Unread accounting is
// recomputed from the message seen flags, never trusted from outside.
func (s *Store) Seed(id ThreadID, msgs []Message, responsive bool) error {
	s.mu.Lock()
	st, ok := s.threads[id]
	if !ok {
		s.mu.Unlock()
		return &UnknownThreadError{Thread: id}
	}
	st.messages = make([]Message, len(msgs))
	copy(st.messages, msgs)
	st.responsive = responsive
	st.lastActivity = time.Time{}
	for _, m := range st.messages {
		if at := m.Timestamp.Time(); at.After(st.lastActivity) {
			st.lastActivity = at
		}
	}
	recount(st)
	s.mu.Unlock()

	s.notify(Mutation{Thread: id, Kind: MutationSeed})
	return nil
}

// SetLastActivity advances a thread's last-activity instant if the
// given instant is later than the one derived from its messages.
func (s *Store) SetLastActivity(id ThreadID, at time.Time) {
	s.mu.Lock()
	if st, ok := s.threads[id]; ok && at.After(st.lastActivity) {
		st.lastActivity = at
	}
	s.mu.Unlock()
}

// Reset returns every thread to its empty state and clears focus.
func (s *Store) Reset() {
	s.mu.Lock()
	for _, st := range s.threads {
		*st = threadState{}
	}
	s.focused = ""
	s.mu.Unlock()

	s.notify(Mutation{Kind: MutationReset})
}

// =============================================================================
// Read Operations
// =============================================================================

// Focused returns the focused thread, or "" when none is open.
func (s *Store) Focused() ThreadID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.focused
}

// IsFocused reports whether the given thread is currently focused.
func (s *Store) IsFocused(id ThreadID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.focused == id
}

// Messages returns a copy of a thread's message list.
func (s *Store) Messages(id ThreadID) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.threads[id]
	if !ok {
		return nil
	}
	out := make([]Message, len(st.messages))
	copy(out, st.messages)
	return out
}

// LastMessage returns the final message of a thread, if any.
func (s *Store) LastMessage(id ThreadID) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.threads[id]
	if !ok || len(st.messages) == 0 {
		return Message{}, false
	}
	return st.messages[len(st.messages)-1], true
}

// UnreadCount returns a thread's unread count.
func (s *Store) UnreadCount(id ThreadID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.threads[id]; ok {
		return st.unread
	}
	return 0
}

// LastActivity returns the instant of a thread's most recent activity,
// or the zero instant for a thread that has never seen any.
func (s *Store) LastActivity(id ThreadID) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.threads[id]; ok {
		return st.lastActivity
	}
	return time.Time{}
}

// IsResponsive reports whether proactive and interactive behavior is
// enabled for a thread.
func (s *Store) IsResponsive(id ThreadID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.threads[id]; ok {
		return st.responsive
	}
	return false
}

// AgentTally counts resolved text and image messages from the agent in
// a thread. Feeds the thread-summary status line.
func (s *Store) AgentTally(id ThreadID) (texts, images int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.threads[id]
	if !ok {
		return 0, 0
	}
	for _, m := range st.messages {
		if m.Sender != SenderAgent || m.IsPending {
			continue
		}
		if m.ImageRef != "" {
			images++
		} else if m.Text != "" && !m.IsError {
			texts++
		}
	}
	return texts, images
}

// Export returns a deep copy of every thread, keyed by thread ID.
func (s *Store) Export() map[ThreadID]ThreadSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[ThreadID]ThreadSnapshot, len(s.threads))
	for id, st := range s.threads {
		msgs := make([]Message, len(st.messages))
		copy(msgs, st.messages)
		out[id] = ThreadSnapshot{
			Messages:     msgs,
			Unread:       st.unread,
			LastActivity: st.lastActivity,
			Responsive:   st.responsive,
		}
	}
	return out
}
