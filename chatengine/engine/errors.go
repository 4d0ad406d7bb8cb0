package engine

import (
	"fmt"

	"github.com/skullsystem/messenger/chatengine/conversation"
)

// =============================================================================
// EXCEPTIONS
// =============================================================================

// EngineError is the base error type for engine errors.
type EngineError struct {
	Message string
	Cause   error
}

func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *EngineError) Unwrap() error {
	return e.Cause
}

// NotStartedError is raised when an operation runs before Start.
type NotStartedError struct{}

func (e *NotStartedError) Error() string {
	return "engine has not been started"
}

// DeliveryBusyError is raised when a send arrives while a delivery
// run is in flight.
type DeliveryBusyError struct {
	Thread conversation.ThreadID
}

func (e *DeliveryBusyError) Error() string {
	return fmt.Sprintf("delivery in progress on thread %s", string(e.Thread))
}

// NewDeliveryBusyError creates a new DeliveryBusyError.
func NewDeliveryBusyError(thread conversation.ThreadID) *DeliveryBusyError {
	return &DeliveryBusyError{Thread: thread}
}

// EmptyMessageError is raised when a send carries no visible text.
type EmptyMessageError struct{}

func (e *EmptyMessageError) Error() string {
	return "message text is empty"
}

// SessionInitError is raised when the agent session cannot be
// constructed.
type SessionInitError struct {
	Cause error
}

func (e *SessionInitError) Error() string {
	return fmt.Sprintf("agent session initialization failed: %v", e.Cause)
}

func (e *SessionInitError) Unwrap() error {
	return e.Cause
}

// NewSessionInitError creates a new SessionInitError.
func NewSessionInitError(cause error) *SessionInitError {
	return &SessionInitError{Cause: cause}
}
