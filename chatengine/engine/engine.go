// Package engine composes the chat orchestration core: conversation
// store, trust machine, delivery pacer, idle scheduler, notification
// queue, and persistence gateway behind one facade.
//
// Key concepts:
//   - Single agent thread: only one contact is backed by the AI
//     boundary; the rest of the roster is scripted or silent.
//   - Settling writes: durable snapshots happen after mutations that
//     leave the conversation in a presentable state, never for
//     transient typing placeholders alone.
//   - Re-entrancy: one delivery run at a time; a send during delivery
//     is rejected before anything is appended.
//
// The engine is transport-agnostic. A browser shell, a TUI, or a test
// drives it through exported methods and observes it through the event
// bus and read-only projections.
package engine

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/skullsystem/messenger/chatengine/boundary"
	"github.com/skullsystem/messenger/chatengine/codec"
	"github.com/skullsystem/messenger/chatengine/config"
	"github.com/skullsystem/messenger/chatengine/conversation"
	"github.com/skullsystem/messenger/chatengine/events"
	"github.com/skullsystem/messenger/chatengine/idle"
	"github.com/skullsystem/messenger/chatengine/notify"
	"github.com/skullsystem/messenger/chatengine/observability"
	"github.com/skullsystem/messenger/chatengine/pacer"
	"github.com/skullsystem/messenger/chatengine/persist"
	"github.com/skullsystem/messenger/chatengine/script"
	"github.com/skullsystem/messenger/chatengine/segment"
	"github.com/skullsystem/messenger/chatengine/trust"
	"github.com/skullsystem/messenger/chatengine/uistate"
)

// responseFailureText is injected as an error bubble when the boundary
// call itself fails.
const responseFailureText = "Error: Could not get a response."

// Logger is the minimal logging interface the engine needs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Params configures an Engine.
type Params struct {
	Logger  Logger
	Config  *config.EngineConfig
	Storage persist.Storage

	// Provider is the AI boundary. Nil runs the engine degraded: the
	// roster works, the agent thread reports the boundary unavailable.
	Provider boundary.Provider

	// SystemInstruction is handed to the boundary when the agent
	// session starts.
	SystemInstruction string
}

// Engine is the orchestration facade.
type Engine struct {
	logger   Logger
	cfg      *config.EngineConfig
	provider boundary.Provider
	sysInstr string

	store   *conversation.Store
	trust   *trust.Machine
	queue   *notify.Queue
	pacer   *pacer.Pacer
	idle    *idle.Scheduler
	gateway *persist.Gateway
	bus     *events.Bus

	// mu guards the fields below. Never held across calls into the
	// store, pacer, queue, or gateway.
	mu            sync.Mutex
	started       bool
	session       boundary.Session
	sessionInit   bool
	sessionFailed bool
	ui            uistate.Map
	statusLine    string

	rngMu sync.Mutex
	rng   *rand.Rand

	deliverWG sync.WaitGroup
	baseCtx   context.Context
	cancel    context.CancelFunc
}

// New wires an Engine from its parts. Call Start before use.
func New(p Params) *Engine {
	cfg := p.Config
	if cfg == nil {
		cfg = config.DefaultEngineConfig()
	} else if err := cfg.Validate(); err != nil {
		if p.Logger != nil {
			p.Logger.Warn("invalid_config", "error", err.Error())
		}
		cfg = config.DefaultEngineConfig()
	}

	e := &Engine{
		logger:     p.Logger,
		cfg:        cfg,
		provider:   p.Provider,
		sysInstr:   p.SystemInstruction,
		store:      conversation.NewStore(),
		trust:      trust.NewMachine(script.TrustKeywords),
		queue:      notify.NewQueue(cfg.NotificationBudget, cfg.NotificationDismiss()),
		gateway:    persist.NewGateway(p.Storage, cfg.StorageKey, p.Logger),
		bus:        events.NewBus(),
		statusLine: "Online",
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	e.pacer = pacer.New(pacer.Params{
		Store:            e.store,
		Queue:            e.queue,
		Provider:         p.Provider,
		Config:           cfg,
		Logger:           p.Logger,
		NotifyLabel:      script.AgentProfileName,
		SpeakerName:      script.AgentSpeakerName,
		TypingText:       script.TypingPlaceholder,
		SendingImageText: script.SendingImageNotice,
		ImageFailureText: script.ImageFailureText,
		OnStatus:         e.setStatusLine,
		OnStateChange:    func(bool) { e.recomputeIdle() },
	})
	e.idle = idle.NewScheduler(cfg.IdleCheckInMin(), cfg.IdleCheckInMax(), e.fireIdleCheckIn, p.Logger)

	return e
}

// Bus exposes the engine's event bus for observers.
func (e *Engine) Bus() *events.Bus {
	return e.bus
}

// =============================================================================
// Lifecycle
// =============================================================================

// Start restores persisted state (or seeds the opening scenario),
// wires the snapshot trigger, and arms the idle scheduler. Idempotent;
// a second call is a no-op.
//
// A restore failure never aborts startup: the engine degrades to the
// freshly seeded scenario and logs what was lost.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = true
	e.baseCtx, e.cancel = context.WithCancel(context.Background())
	e.mu.Unlock()

	restored, err := e.gateway.Load(ctx)
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("restore_failed", "error", err.Error())
		}
		restored = nil
	}

	if restored != nil && len(restored.Threads) > 0 {
		e.rehydrate(restored)
	} else {
		e.seedScenario(time.Now().UTC())
	}

	e.mu.Lock()
	sessionInit := e.sessionInit
	e.mu.Unlock()
	if sessionInit {
		if err := e.ensureSession(ctx); err != nil && e.logger != nil {
			e.logger.Warn("session_replay_failed", "error", err.Error())
		}
	}

	// Snapshot on settling mutations only. Transient placeholder
	// inserts settle with the replace or remove that resolves them.
	// Agent-thread mutations also move the last-activity timestamp, so
	// the idle window is re-armed from the new instant.
	e.store.OnMutation(func(m conversation.Mutation) {
		switch m.Kind {
		case conversation.MutationAppend, conversation.MutationReplace,
			conversation.MutationRemove, conversation.MutationFocus,
			conversation.MutationSeed:
			e.snapshot()
			if m.Thread == conversation.AgentThread {
				e.recomputeIdle()
			}
		}
	})
	e.trust.OnChange(func(s trust.State) {
		observability.RecordTrustTransition()
		e.bus.Publish(context.Background(), &events.TrustChanged{State: s})
		e.recomputeIdle()
		e.snapshot()
	})
	e.queue.OnChange(func(n *notify.Notification) {
		if n != nil {
			observability.RecordNotification()
			e.bus.Publish(context.Background(), &events.NotificationShown{Text: n.Text})
		}
	})

	e.gateway.MarkLoaded()
	e.recomputeIdle()
	if e.logger != nil {
		e.logger.Info("engine_started", "restored", restored != nil, "trust", string(e.trust.State()))
	}
	return nil
}

// seedScenario installs the opening state: roster responsiveness and
// the pre-authored relocation thread.
func (e *Engine) seedScenario(now time.Time) {
	for _, c := range script.Contacts() {
		var msgs []conversation.Message
		if c.ID == conversation.ThreadRelocation {
			msgs = script.RelocationSeedHistory(now)
		}
		if err := e.store.Seed(c.ID, msgs, c.Responsive); err != nil && e.logger != nil {
			e.logger.Error("seed_failed", "thread", string(c.ID), "error", err.Error())
		}
	}
}

// rehydrate applies a restored snapshot to the live state.
func (e *Engine) rehydrate(restored *persist.RestoredState) {
	for _, c := range script.Contacts() {
		rec, ok := restored.Threads[c.ID]
		if !ok {
			if err := e.store.Seed(c.ID, nil, c.Responsive); err != nil && e.logger != nil {
				e.logger.Error("seed_failed", "thread", string(c.ID), "error", err.Error())
			}
			continue
		}
		if err := e.store.Seed(c.ID, rec.Messages, rec.Responsive); err != nil {
			if e.logger != nil {
				e.logger.Error("rehydrate_failed", "thread", string(c.ID), "error", err.Error())
			}
			continue
		}
		if at := rec.LastActivity.Time(); !at.IsZero() {
			e.store.SetLastActivity(c.ID, at)
		}
	}
	if err := e.trust.Restore(restored.Trust); err != nil && e.logger != nil {
		e.logger.Warn("trust_restore_failed", "state", string(restored.Trust))
	}
	e.mu.Lock()
	e.sessionInit = restored.AgentSessionInitialized
	e.ui = uistate.Map(restored.UIState)
	e.mu.Unlock()
}

// Shutdown cancels timers and in-flight deliveries, waits for them,
// and writes a final snapshot.
func (e *Engine) Shutdown(ctx context.Context) {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	e.idle.Cancel()
	e.deliverWG.Wait()
	e.queue.Shutdown()
	e.snapshot()
	if e.logger != nil {
		e.logger.Info("engine_stopped")
	}
}

// Reset discards all state and reseeds the opening scenario. The
// durable slot is removed so a later restart also starts fresh.
func (e *Engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	e.idle.Cancel()
	e.deliverWG.Wait()

	e.mu.Lock()
	e.baseCtx, e.cancel = context.WithCancel(context.Background())
	e.session = nil
	e.sessionInit = false
	e.sessionFailed = false
	e.ui = nil
	e.statusLine = "Online"
	e.mu.Unlock()

	e.queue.Reset()
	e.trust.Reset()
	e.store.Reset()
	e.seedScenario(time.Now().UTC())

	if err := e.gateway.Reset(ctx); err != nil {
		return &EngineError{Message: "reset storage", Cause: err}
	}
	if e.logger != nil {
		e.logger.Info("engine_reset")
	}
	return nil
}

// =============================================================================
// Navigation
// =============================================================================

// SwitchThread focuses a thread, marking its messages seen. Focusing
// the agent thread lazily constructs the AI session on first entry.
func (e *Engine) SwitchThread(ctx context.Context, id conversation.ThreadID) error {
	if !e.isStarted() {
		return &NotStartedError{}
	}
	if err := e.store.Focus(id); err != nil {
		return err
	}
	e.bus.Publish(ctx, &events.ThreadFocused{Thread: id})

	if id == conversation.AgentThread {
		if err := e.ensureSession(ctx); err != nil {
			e.noteSessionFailure()
		}
	}
	return nil
}

// Blur clears thread focus, e.g. when the messaging app closes.
func (e *Engine) Blur() {
	e.store.Blur()
}

// ensureSession constructs the agent session once, replaying the
// surviving thread history so a restored conversation resumes with
// context.
func (e *Engine) ensureSession(ctx context.Context) error {
	e.mu.Lock()
	if e.session != nil {
		e.mu.Unlock()
		return nil
	}
	provider := e.provider
	sysInstr := e.sysInstr
	e.mu.Unlock()

	if provider == nil {
		return NewSessionInitError(nil)
	}

	history := boundary.HistoryFromMessages(e.store.Messages(conversation.AgentThread))
	start := time.Now()
	sess, err := provider.StartSession(ctx, sysInstr, history)
	observability.RecordBoundaryCall("start_session", callStatus(err), int(time.Since(start).Milliseconds()))
	if err != nil {
		if e.logger != nil {
			e.logger.Error("session_init_failed", "error", err.Error())
		}
		return NewSessionInitError(err)
	}

	e.mu.Lock()
	e.session = sess
	e.sessionInit = true
	e.sessionFailed = false
	e.mu.Unlock()

	if e.logger != nil {
		e.logger.Info("session_initialized", "history_turns", len(history))
	}
	e.snapshot()
	e.recomputeIdle()
	return nil
}

// noteSessionFailure surfaces a failed session construction in the
// agent thread, once, as an error bubble.
func (e *Engine) noteSessionFailure() {
	e.mu.Lock()
	already := e.sessionFailed
	e.sessionFailed = true
	e.mu.Unlock()
	if already {
		return
	}
	e.appendSystemError(script.BoundaryUnavailableText)
}

// =============================================================================
// Sending
// =============================================================================

// SendMessage appends the player's message to a thread and, when the
// thread is the live agent, runs the request/response exchange and
// starts the paced delivery of the reply.
//
// A send to the agent thread while a delivery is in flight is rejected
// up front: nothing is appended and DeliveryBusyError is returned.
// Other threads accept messages regardless of delivery state.
func (e *Engine) SendMessage(ctx context.Context, id conversation.ThreadID, text string) error {
	if !e.isStarted() {
		return &NotStartedError{}
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return &EmptyMessageError{}
	}
	if id == conversation.AgentThread && e.pacer.Delivering() {
		return NewDeliveryBusyError(id)
	}

	userMsg := conversation.Message{
		ID:        conversation.NewMessageID(),
		Sender:    conversation.SenderUser,
		Text:      trimmed,
		Timestamp: codec.Now(),
		IsSeen:    true,
	}
	if err := e.store.Append(id, userMsg); err != nil {
		return err
	}
	e.bus.Publish(ctx, &events.MessageAppended{Thread: id, MessageID: userMsg.ID, Sender: userMsg.Sender})

	// Unresponsive contacts accept messages and never answer.
	if id != conversation.AgentThread || !e.store.IsResponsive(id) {
		return nil
	}

	if err := e.ensureSession(ctx); err != nil {
		e.noteSessionFailure()
		return nil
	}
	e.mu.Lock()
	sess := e.session
	e.mu.Unlock()

	start := time.Now()
	res, err := sess.Send(ctx, trimmed)
	observability.RecordBoundaryCall("send", callStatus(err), int(time.Since(start).Milliseconds()))
	if err != nil {
		if e.logger != nil {
			e.logger.Error("boundary_send_failed", "error", err.Error())
		}
		e.store.ClearPending(conversation.AgentThread, conversation.SenderAgent)
		e.appendSystemError(responseFailureText)
		return nil
	}

	switch res.Kind {
	case boundary.ResultOK:
		e.trust.Observe(res.Text)
		segs := segment.Split(res.Text)
		if len(segs) == 0 {
			e.appendSystemError(responseFailureText)
			return nil
		}
		e.bus.Publish(ctx, &events.DeliveryStarted{Segments: len(segs)})
		e.deliverAsync(segs)
	case boundary.ResultBlocked:
		reason := res.Reason
		if reason == "" {
			reason = "content policy"
		}
		e.appendSystemError("Message blocked: " + reason)
	case boundary.ResultEmpty:
		e.appendSystemError(responseFailureText)
	}
	return nil
}

// deliverAsync runs one pacer delivery on its own goroutine so the
// send call returns as soon as the exchange settles.
func (e *Engine) deliverAsync(segs []segment.Segment) {
	e.mu.Lock()
	ctx := e.baseCtx
	e.mu.Unlock()

	for _, s := range segs {
		observability.RecordSegment(string(s.Kind))
	}

	e.deliverWG.Add(1)
	go func() {
		defer e.deliverWG.Done()
		start := time.Now()
		err := e.pacer.Deliver(ctx, segs)
		status := "success"
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			status = "cancelled"
		default:
			status = "error"
		}
		observability.RecordDelivery(status, int(time.Since(start).Milliseconds()))
		e.bus.Publish(context.Background(), &events.DeliveryFinished{Status: status})
		e.recomputeIdle()
	}()
}

// appendSystemError drops an error bubble into the agent thread and
// raises a notification when the thread is not in view.
func (e *Engine) appendSystemError(text string) {
	seen := e.store.IsFocused(conversation.AgentThread)
	msg := conversation.Message{
		ID:        conversation.NewMessageID(),
		Sender:    conversation.SenderSystem,
		Text:      text,
		Timestamp: codec.Now(),
		IsError:   true,
		IsSeen:    seen,
	}
	if err := e.store.Append(conversation.AgentThread, msg); err != nil {
		if e.logger != nil {
			e.logger.Error("append_failed", "error", err.Error())
		}
		return
	}
	if !seen {
		e.queue.Enqueue(text, script.AgentProfileName, conversation.AgentThread, "")
	}
}

// =============================================================================
// Idle check-ins
// =============================================================================

// fireIdleCheckIn runs on the scheduler's timer goroutine. The window
// preconditions are re-checked here: the world may have changed since
// the wake-up was armed.
func (e *Engine) fireIdleCheckIn() {
	if !e.isStarted() {
		return
	}
	if e.trust.State() != trust.StateTrusting || e.pacer.Delivering() {
		e.recomputeIdle()
		return
	}
	e.mu.Lock()
	ready := e.session != nil
	e.mu.Unlock()
	if !ready {
		e.recomputeIdle()
		return
	}

	e.rngMu.Lock()
	line := script.IdleCheckInMessages[e.rng.Intn(len(script.IdleCheckInMessages))]
	e.rngMu.Unlock()

	seen := e.store.IsFocused(conversation.AgentThread)
	msg := conversation.Message{
		ID:        conversation.NewMessageID(),
		Sender:    conversation.SenderAgent,
		Text:      line,
		Timestamp: codec.Now(),
		IsSeen:    seen,
	}
	if err := e.store.Append(conversation.AgentThread, msg); err != nil {
		if e.logger != nil {
			e.logger.Error("idle_check_in_append_failed", "error", err.Error())
		}
		return
	}
	if !seen {
		e.queue.Enqueue(line, script.AgentProfileName, conversation.AgentThread, "")
	}

	observability.RecordIdleCheckIn()
	e.bus.Publish(context.Background(), &events.IdleCheckIn{Text: line})
	if e.logger != nil {
		e.logger.Debug("idle_check_in_fired", "seen", seen)
	}
	e.recomputeIdle()
}

// recomputeIdle re-evaluates the idle window against the live state.
func (e *Engine) recomputeIdle() {
	if !e.isStarted() {
		return
	}
	e.mu.Lock()
	ready := e.session != nil
	e.mu.Unlock()
	e.idle.Recompute(idle.Inputs{
		Trusting:      e.trust.State() == trust.StateTrusting,
		Delivering:    e.pacer.Delivering(),
		BoundaryReady: ready,
		LastActivity:  e.store.LastActivity(conversation.AgentThread),
	})
}

// =============================================================================
// Notifications
// =============================================================================

// ClickNotification dismisses the current notification, focuses its
// target thread, and returns that thread so the shell can navigate.
func (e *Engine) ClickNotification(ctx context.Context) (conversation.ThreadID, bool) {
	n := e.queue.Current()
	if n == nil {
		return "", false
	}
	e.queue.Dismiss()
	target := n.TargetThread
	if target == "" {
		target = conversation.AgentThread
	}
	if err := e.SwitchThread(ctx, target); err != nil && e.logger != nil {
		e.logger.Warn("notification_navigation_failed", "thread", string(target), "error", err.Error())
	}
	return target, true
}

// DismissNotification drops the current notification without
// navigating.
func (e *Engine) DismissNotification() {
	e.queue.Dismiss()
}

// CurrentNotification returns the notification on display, if any.
func (e *Engine) CurrentNotification() *notify.Notification {
	return e.queue.Current()
}

// =============================================================================
// Projections
// =============================================================================

// Messages returns a copy of a thread's messages.
func (e *Engine) Messages(id conversation.ThreadID) []conversation.Message {
	return e.store.Messages(id)
}

// UnreadCount returns a thread's unread badge count.
func (e *Engine) UnreadCount(id conversation.ThreadID) int {
	return e.store.UnreadCount(id)
}

// TrustState returns the current trust disposition.
func (e *Engine) TrustState() trust.State {
	return e.trust.State()
}

// Delivering reports whether a paced delivery is in flight.
func (e *Engine) Delivering() bool {
	return e.pacer.Delivering()
}

// StatusLine returns the agent thread's header line.
func (e *Engine) StatusLine() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusLine
}

// RosterEntry is one contact with its live thread projection.
type RosterEntry struct {
	Contact     script.Contact
	Unread      int
	LastMessage string
}

// Roster returns the contact list with live unread counts and
// last-message previews.
func (e *Engine) Roster() []RosterEntry {
	contacts := script.Contacts()
	out := make([]RosterEntry, 0, len(contacts))
	for _, c := range contacts {
		entry := RosterEntry{Contact: c, Unread: e.store.UnreadCount(c.ID)}
		if last, ok := e.store.LastMessage(c.ID); ok {
			entry.LastMessage = last.Text
		}
		out = append(out, entry)
	}
	return out
}

// UIState returns the opaque shell state carried through snapshots.
func (e *Engine) UIState() uistate.Map {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ui.Clone()
}

// SetUIState replaces the shell state and persists it.
func (e *Engine) SetUIState(m uistate.Map) {
	e.mu.Lock()
	e.ui = m.Clone()
	e.mu.Unlock()
	e.snapshot()
}

// =============================================================================
// Internals
// =============================================================================

func (e *Engine) isStarted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started
}

func (e *Engine) setStatusLine(s string) {
	e.mu.Lock()
	e.statusLine = s
	e.mu.Unlock()
}

// snapshot writes the durable document. Best effort; the gateway
// swallows write failures and suppresses writes until restore is done.
func (e *Engine) snapshot() {
	e.mu.Lock()
	sessionInit := e.sessionInit
	ui := e.ui.Clone()
	e.mu.Unlock()

	if !e.gateway.Loaded() {
		return
	}
	e.gateway.Snapshot(context.Background(), e.store.Export(), e.trust.State(), sessionInit, ui)
	observability.RecordSnapshot("success")
	e.bus.Publish(context.Background(), &events.SnapshotWritten{Key: e.cfg.StorageKey})
}

func callStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
