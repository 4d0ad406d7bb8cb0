// Package idle schedules the agent's proactive check-in messages.
//
// While the trust state is trusting, the agent thread is not
// mid-delivery, and the external boundary is available, exactly one
// wake-up is kept armed, computed from the agent thread's last
// activity plus a uniform-random interval. Every change to those
// inputs invalidates and recomputes the wake-up.
package idle

import (
	"math/rand"
	"sync"
	"time"
)

// Logger is the minimal logging interface the scheduler needs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Inputs are the preconditions the recompute rule evaluates.
type Inputs struct {
	// Trusting is true once the trust machine has transitioned.
	Trusting bool
	// Delivering is true while a pacer run is in flight.
	Delivering bool
	// BoundaryReady is true when the external boundary is available.
	BoundaryReady bool
	// LastActivity is the agent thread's most recent activity; zero
	// when the thread has never seen any.
	LastActivity time.Time
}

// Scheduler owns the zero-or-one pending idle wake-up.
type Scheduler struct {
	mu     sync.Mutex
	min    time.Duration
	max    time.Duration
	timer  *time.Timer
	armed  bool
	fire   func()
	logger Logger

	rng *rand.Rand
	now func() time.Time
}

// NewScheduler creates a disarmed scheduler. fire runs on the timer
// goroutine when a wake-up elapses; the callee is expected to re-check
// its own preconditions before acting.
func NewScheduler(min, max time.Duration, fire func(), logger Logger) *Scheduler {
	return &Scheduler{
		min:    min,
		max:    max,
		fire:   fire,
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}
}

// Recompute cancels any outstanding wake-up and, if the preconditions
// hold, arms a fresh one. Returns the armed wait, or zero when nothing
// was scheduled.
//
// An overdue wait (the interval already elapsed before recompute) is
// not scheduled: the check-in stays silent until the next qualifying
// recompute trigger.
func (s *Scheduler) Recompute(in Inputs) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()

	if !in.Trusting || in.Delivering || !in.BoundaryReady {
		return 0
	}

	interval := s.min + time.Duration(s.rng.Int63n(int64(s.max-s.min)+1))
	var wait time.Duration
	if in.LastActivity.IsZero() {
		// First check-in after becoming trusting, independent of history.
		wait = interval
	} else {
		wait = in.LastActivity.Add(interval).Sub(s.now())
	}
	if wait <= 0 {
		if s.logger != nil {
			s.logger.Debug("idle_check_in_overdue", "overdue_by", (-wait).String())
		}
		return 0
	}

	s.armed = true
	s.timer = time.AfterFunc(wait, func() {
		s.mu.Lock()
		s.armed = false
		s.timer = nil
		s.mu.Unlock()
		s.fire()
	})
	if s.logger != nil {
		s.logger.Debug("idle_check_in_armed", "wait", wait.String())
	}
	return wait
}

// Cancel invalidates any pending wake-up. Safe to call redundantly.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

// Armed reports whether a wake-up is pending.
func (s *Scheduler) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed
}

func (s *Scheduler) cancelLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.armed = false
}
