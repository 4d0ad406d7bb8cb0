// Package testutil provides shared test utilities and mocks for the
// chat engine tests.
//
// All mocks in this package are designed for testing engine components
// in isolation without requiring a live AI boundary.
package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/skullsystem/messenger/chatengine/boundary"
)

// =============================================================================
// MOCK SESSION
// =============================================================================

// MockSession implements boundary.Session for testing.
// Configure responses by message prefix or use Default.
type MockSession struct {
	// Responses maps message prefixes to results.
	// First matching prefix wins.
	Responses map[string]*boundary.Result

	// Default is returned when no prefix matches.
	Default *boundary.Result

	// Delay simulates model latency.
	Delay time.Duration

	// Err causes Send to return this error.
	Err error

	// Calls records every sent message for assertion.
	Calls []string

	mu sync.Mutex
}

// NewMockSession creates a MockSession with a plain default reply.
func NewMockSession() *MockSession {
	return &MockSession{
		Responses: make(map[string]*boundary.Result),
		Default:   boundary.OK("ok"),
	}
}

// Send implements boundary.Session.
func (m *MockSession) Send(ctx context.Context, text string) (*boundary.Result, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, text)
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for prefix, res := range m.Responses {
		if strings.HasPrefix(text, prefix) {
			return res, nil
		}
	}
	return m.Default, nil
}

// WithResponse adds a prefix-based reply.
func (m *MockSession) WithResponse(prefix string, res *boundary.Result) *MockSession {
	m.Responses[prefix] = res
	return m
}

// CallCount returns the number of Send calls (thread-safe).
func (m *MockSession) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// SentMessages returns a copy of every sent message.
func (m *MockSession) SentMessages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Calls))
	copy(out, m.Calls)
	return out
}

// =============================================================================
// MOCK PROVIDER
// =============================================================================

// MockProvider implements boundary.Provider for testing.
type MockProvider struct {
	// Session is returned by StartSession.
	Session *MockSession

	// StartErr causes StartSession to fail.
	StartErr error

	// ImageData is returned by GenerateImage.
	ImageData []byte

	// ImageErr causes GenerateImage to fail.
	ImageErr error

	// StartCalls records StartSession invocations.
	StartCalls []StartCall

	// ImageCalls records every generation prompt.
	ImageCalls []string

	mu sync.Mutex
}

// StartCall records one StartSession invocation for assertion.
type StartCall struct {
	SystemInstruction string
	History           []boundary.Turn
}

// NewMockProvider creates a MockProvider wrapping a fresh MockSession.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Session:   NewMockSession(),
		ImageData: []byte("png-bytes"),
	}
}

// StartSession implements boundary.Provider.
func (m *MockProvider) StartSession(ctx context.Context, systemInstruction string, history []boundary.Turn) (boundary.Session, error) {
	m.mu.Lock()
	m.StartCalls = append(m.StartCalls, StartCall{SystemInstruction: systemInstruction, History: history})
	m.mu.Unlock()

	if m.StartErr != nil {
		return nil, m.StartErr
	}
	return m.Session, nil
}

// GenerateImage implements boundary.Provider.
func (m *MockProvider) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	m.mu.Lock()
	m.ImageCalls = append(m.ImageCalls, prompt)
	m.mu.Unlock()

	if m.ImageErr != nil {
		return nil, m.ImageErr
	}
	return m.ImageData, nil
}

// StartCallCount returns the number of StartSession calls (thread-safe).
func (m *MockProvider) StartCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.StartCalls)
}

// =============================================================================
// RECORDING LOGGER
// =============================================================================

// LogEntry is one captured log call.
type LogEntry struct {
	Level string
	Msg   string
	Kv    []any
}

// RecordingLogger captures log calls for assertion. Satisfies the
// Logger interfaces declared across the engine packages.
type RecordingLogger struct {
	mu      sync.Mutex
	Entries []LogEntry
}

func (l *RecordingLogger) record(level, msg string, kv []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, LogEntry{Level: level, Msg: msg, Kv: kv})
}

func (l *RecordingLogger) Debug(msg string, keysAndValues ...any) {
	l.record("debug", msg, keysAndValues)
}

func (l *RecordingLogger) Info(msg string, keysAndValues ...any) {
	l.record("info", msg, keysAndValues)
}

func (l *RecordingLogger) Warn(msg string, keysAndValues ...any) {
	l.record("warn", msg, keysAndValues)
}

func (l *RecordingLogger) Error(msg string, keysAndValues ...any) {
	l.record("error", msg, keysAndValues)
}

// Has reports whether a log entry with the given message was recorded.
func (l *RecordingLogger) Has(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.Entries {
		if e.Msg == msg {
			return true
		}
	}
	return false
}
