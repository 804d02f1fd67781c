package event

import (
	"errors"
	"fmt"
)

// Sentinel errors for the event bus.
var (
	// ErrNotCancellable is returned when cancelling an event whose variant is not cancellable.
	ErrNotCancellable = errors.New("event is not cancellable")

	// ErrInvalidListener is wrapped by every ValidationError.
	ErrInvalidListener = errors.New("invalid event listener")

	// ErrInvalidSubscriber is returned when a subscriber has no usable identity.
	ErrInvalidSubscriber = errors.New("invalid subscriber")

	// ErrUnknownPriority is returned when parsing an unrecognised priority name.
	ErrUnknownPriority = errors.New("unknown priority")

	// ErrHandlerPanic is matched by errors.Is for recovered handler panics.
	ErrHandlerPanic = errors.New("handler panicked")

	// ErrUnknownEvent is returned by Catalog lookups for unregistered names.
	ErrUnknownEvent = errors.New("unknown event")
)

// IllegalStateError reports an operation that is not valid in the current state,
// such as cancelling a non-cancellable event.
type IllegalStateError struct {
	// Op describes the rejected operation.
	Op string

	// Err is the underlying sentinel.
	Err error
}

// Error implements the error interface.
func (e *IllegalStateError) Error() string {
	return "illegal state: " + e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *IllegalStateError) Unwrap() error {
	return e.Err
}

// ValidationError reports a listener that cannot be bound at registration time.
type ValidationError struct {
	// Subscriber is the type name of the subscriber being registered.
	Subscriber string

	// Listener is the label of the offending listener.
	Listener string

	// Reason describes what is wrong.
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event listener %s on %s: %s", e.Listener, e.Subscriber, e.Reason)
}

// Is allows errors.Is to match ValidationError with ErrInvalidListener.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidListener
}

// HandlerError wraps a failure raised by a listener during Post.
// It is logged by the bus and never returned to the publisher.
type HandlerError struct {
	// ListenerID is the unique id assigned at registration.
	ListenerID string

	// Listener is the listener label.
	Listener string

	// Subscriber is the type name of the owning subscriber.
	Subscriber string

	// Event is the name of the event being dispatched.
	Event string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return "handler " + e.Listener + " (" + e.Subscriber + ") failed on " + e.Event + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// PanicError wraps a recovered panic value as an error.
type PanicError struct {
	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Is allows errors.Is to match PanicError with ErrHandlerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}
