package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes every caller can observe. Match
// with errors.Is; the structured variants below add context and still
// satisfy errors.Is against their sentinel.
var (
	// ErrNotFound reports that no aggregate is stored under the given id.
	ErrNotFound = errors.New("order not found")

	// ErrInvalidStateTransition reports that the aggregate is not in the
	// state the requested transition requires.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrValidationFailed reports that the business validator rejected the
	// transition.
	ErrValidationFailed = errors.New("transition validation failed")

	// ErrConcurrencyConflict reports that the stored version advanced
	// between load and save. The whole transition is safe to retry from a
	// fresh read; the engine does not retry on its own.
	ErrConcurrencyConflict = errors.New("concurrent modification detected")

	// ErrPublishFailed reports that the event batch could not be handed to
	// the transport after the state change already committed. The business
	// effect is real and must not be re-applied.
	ErrPublishFailed = errors.New("event publish failed")

	// ErrUnsupportedEventKind reports a domain event with no envelope
	// mapping. Unreachable for the closed set of known kinds; treated as a
	// programming error, not a recoverable condition.
	ErrUnsupportedEventKind = errors.New("unsupported event kind")
)

// StateTransitionError carries the observed vs. required state for an
// invalid transition attempt.
type StateTransitionError struct {
	OrderID    string
	Transition string
	Expected   OrderState
	Actual     OrderState
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition %s for order %s: expected %s but was %s",
		e.Transition, e.OrderID, e.Expected, e.Actual)
}

func (e *StateTransitionError) Unwrap() error { return ErrInvalidStateTransition }

// ValidationError carries the validator's failure reason.
type ValidationError struct {
	Transition string
	Reason     string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("transition validation failed for %s", e.Transition)
	}
	return e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

// PublishError wraps a transport failure that occurred after the transition
// committed. It is surfaced distinctly so callers retry only the publish,
// never the state change.
type PublishError struct {
	TraceID string
	Err     error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("event publish failed (trace %s): %v", e.TraceID, e.Err)
}

func (e *PublishError) Unwrap() error { return ErrPublishFailed }
