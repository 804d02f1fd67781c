package event

import (
	"fmt"
	"strings"
)

// Priority determines listener execution order.
// Lower ranks execute first; Monitor always runs last.
type Priority int

const (
	// PriorityLowest runs first.
	PriorityLowest Priority = iota

	// PriorityLow runs after Lowest.
	PriorityLow

	// PriorityNormal is the default priority.
	PriorityNormal

	// PriorityHigh runs after Normal.
	PriorityHigh

	// PriorityHighest is the last priority allowed to change the outcome of an event.
	PriorityHighest

	// PriorityMonitor is for observers that need the final cancellation state.
	// Monitor listeners should not modify the event.
	PriorityMonitor
)

var priorityNames = [...]string{"LOWEST", "LOW", "NORMAL", "HIGH", "HIGHEST", "MONITOR"}

// String returns the upper-case priority name.
func (p Priority) String() string {
	if p < PriorityLowest || p > PriorityMonitor {
		return fmt.Sprintf("Priority(%d)", int(p))
	}
	return priorityNames[p]
}

// Rank returns the integer sort key for the priority.
func (p Priority) Rank() int {
	return int(p)
}

// Valid reports whether p is one of the six defined priorities.
func (p Priority) Valid() bool {
	return p >= PriorityLowest && p <= PriorityMonitor
}

// ParsePriority parses a priority name (case-insensitive).
func ParsePriority(s string) (Priority, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range priorityNames {
		if n == name {
			return Priority(i), nil
		}
	}
	return PriorityNormal, fmt.Errorf("%w: %q", ErrUnknownPriority, s)
}

// Stats contains event bus statistics.
type Stats struct {
	// EventsPosted is the total number of Post calls that found at least one listener.
	EventsPosted uint64

	// HandlersInvoked is the total number of listener invocations.
	HandlersInvoked uint64

	// HandlersSkipped is the number of listeners skipped because the event was cancelled.
	HandlersSkipped uint64

	// HandlerErrors is the number of listeners that returned errors.
	HandlerErrors uint64

	// HandlerPanics is the number of listeners that panicked.
	HandlerPanics uint64

	// Listeners is the current number of registered listeners.
	Listeners int

	// Subscribers is the current number of registered subscribers.
	Subscribers int
}

// Observer receives dispatch notifications from a Bus.
// Implementations are called on the publisher's goroutine and must not block.
type Observer interface {
	// EventPosted is called once per Post that has listeners.
	EventPosted(name string, listeners int)

	// HandlerInvoked is called after each listener invocation, successful or not.
	HandlerInvoked(name string)

	// HandlerSkipped is called when a listener is skipped because the event is cancelled.
	HandlerSkipped(name string)

	// HandlerFailed is called when a listener returns an error or panics.
	HandlerFailed(name string, panicked bool)

	// ListenersChanged is called after registration changes the listener count.
	ListenersChanged(count int)
}

// nopObserver discards notifications.
type nopObserver struct{}

func (nopObserver) EventPosted(string, int)    {}
func (nopObserver) HandlerInvoked(string)      {}
func (nopObserver) HandlerSkipped(string)      {}
func (nopObserver) HandlerFailed(string, bool) {}
func (nopObserver) ListenersChanged(int)       {}
