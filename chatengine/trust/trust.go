// Package trust tracks the agent's relationship disposition.
//
// The machine has two states and exactly one transition:
//
//	guarded -> trusting
//
// The transition is triggered by keyword detection in full agent
// responses and is never reversed during normal operation. Entering
// the trusting state arms the idle scheduler; it has no other
// externally visible effect.
package trust

import (
	"fmt"
	"strings"
	"sync"
)

// State represents the agent's disposition.
type State string

const (
	// StateGuarded is the initial, suspicious disposition.
	StateGuarded State = "guarded"
	// StateTrusting is the terminal, cooperative disposition.
	StateTrusting State = "trusting"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State]map[State]bool{
	StateGuarded:  {StateTrusting: true},
	StateTrusting: {},
}

// IsValidTransition checks if a state transition is valid.
func IsValidTransition(from, to State) bool {
	if targets, ok := validTransitions[from]; ok {
		return targets[to]
	}
	return false
}

// Valid reports whether s names a known state.
func (s State) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

// ChangeHandler observes state transitions.
type ChangeHandler func(State)

// Machine is the trust state machine. Safe for concurrent use.
type Machine struct {
	mu       sync.RWMutex
	state    State
	keywords []string

	handlerMu sync.RWMutex
	handlers  []ChangeHandler
}

// NewMachine creates a guarded machine watching for the given trigger
// phrases. Matching is case-insensitive substring containment.
func NewMachine(keywords []string) *Machine {
	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}
	return &Machine{state: StateGuarded, keywords: lowered}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// OnChange registers a transition observer.
func (m *Machine) OnChange(h ChangeHandler) {
	m.handlerMu.Lock()
	defer m.handlerMu.Unlock()
	m.handlers = append(m.handlers, h)
}

// Observe scans one full agent response for trigger phrases and
// reports whether it caused a transition. The scan is skipped entirely
// once the machine is already trusting.
func (m *Machine) Observe(raw string) bool {
	m.mu.Lock()
	if m.state == StateTrusting {
		m.mu.Unlock()
		return false
	}
	lowered := strings.ToLower(raw)
	matched := false
	for _, k := range m.keywords {
		if strings.Contains(lowered, k) {
			matched = true
			break
		}
	}
	if !matched {
		m.mu.Unlock()
		return false
	}
	m.state = StateTrusting
	m.mu.Unlock()

	m.fire(StateTrusting)
	return true
}

// Restore reinstates a persisted state during session rehydration.
func (m *Machine) Restore(s State) error {
	if !s.Valid() {
		return fmt.Errorf("invalid trust state: %q", string(s))
	}
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
	return nil
}

// Reset returns the machine to guarded. Session teardown only; the
// modeled domain has no reverse transition.
func (m *Machine) Reset() {
	m.mu.Lock()
	m.state = StateGuarded
	m.mu.Unlock()
}

func (m *Machine) fire(s State) {
	m.handlerMu.RLock()
	handlers := make([]ChangeHandler, len(m.handlers))
	copy(handlers, m.handlers)
	m.handlerMu.RUnlock()

	for _, h := range handlers {
		h(s)
	}
}
