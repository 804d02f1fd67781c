package event

import (
	"fmt"
	"reflect"
)

// ListenerConfig contains configuration for a listener.
type ListenerConfig struct {
	// Priority determines execution order (lower ranks execute first).
	Priority Priority

	// ReceiveCancelled delivers the event even after a listener cancelled it.
	ReceiveCancelled bool

	// Label identifies the listener in logs and errors.
	// Defaults to "<subscriber type>#<index>".
	Label string
}

// DefaultListenerConfig returns a default listener configuration.
func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		Priority:         PriorityNormal,
		ReceiveCancelled: false,
	}
}

// ListenerOption is a function that configures a listener.
type ListenerOption func(*ListenerConfig)

// WithPriority sets the listener priority.
func WithPriority(p Priority) ListenerOption {
	return func(c *ListenerConfig) {
		c.Priority = p
	}
}

// ReceiveCancelled makes the listener run even when the event is already cancelled.
func ReceiveCancelled() ListenerOption {
	return func(c *ListenerConfig) {
		c.ReceiveCancelled = true
	}
}

// WithLabel sets the label used for the listener in logs.
func WithLabel(label string) ListenerOption {
	return func(c *ListenerConfig) {
		c.Label = label
	}
}

// Listener binds a handler function to exactly one concrete event type.
// Listeners are validated when their subscriber is registered, not when built.
type Listener struct {
	eventType reflect.Type
	invoke    func(Event) error
	config    ListenerConfig
}

// On binds fn to events of concrete type E.
func On[E Event](fn func(E), opts ...ListenerOption) Listener {
	var invoke func(Event) error
	if fn != nil {
		invoke = func(e Event) error {
			fn(e.(E))
			return nil
		}
	}
	return newListener(TypeOf[E](), invoke, opts)
}

// Listen binds fn to events of concrete type E.
// A non-nil error from fn is logged by the bus as a handler failure.
func Listen[E Event](fn func(E) error, opts ...ListenerOption) Listener {
	var invoke func(Event) error
	if fn != nil {
		invoke = func(e Event) error {
			return fn(e.(E))
		}
	}
	return newListener(TypeOf[E](), invoke, opts)
}

// Dynamic binds fn to events whose runtime type is t.
// It is used where the event type is only known at run time, such as script mods.
func Dynamic(t reflect.Type, fn func(Event) error, opts ...ListenerOption) Listener {
	return newListener(t, fn, opts)
}

func newListener(t reflect.Type, invoke func(Event) error, opts []ListenerOption) Listener {
	config := DefaultListenerConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return Listener{
		eventType: t,
		invoke:    invoke,
		config:    config,
	}
}

// EventType returns the declared event type.
func (l Listener) EventType() reflect.Type {
	return l.eventType
}

// Config returns the listener configuration.
func (l Listener) Config() ListenerConfig {
	return l.config
}

// validate returns a non-empty reason when the listener cannot be registered.
func (l Listener) validate() string {
	t := l.eventType
	switch {
	case l.invoke == nil:
		return "handler is nil"
	case t == nil:
		return "no event type declared"
	case t.Kind() == reflect.Interface:
		return fmt.Sprintf("declared type %s is an interface, not a concrete event type", t)
	case t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct:
		return fmt.Sprintf("declared type %s is not a pointer to an event struct", t)
	case !t.Implements(eventIface):
		return fmt.Sprintf("declared type %s does not implement event.Event", t)
	case t == baseType || t == cancellableType:
		return fmt.Sprintf("declared type %s is an event base type, not a concrete event", t)
	case !l.config.Priority.Valid():
		return fmt.Sprintf("unknown priority %d", int(l.config.Priority))
	}
	return ""
}

// Subscriber is implemented by components that contribute listeners to a bus.
// The subscriber must be a non-nil pointer; its address is its identity.
type Subscriber interface {
	// Listeners returns the listeners to register.
	// It is called once per successful Register.
	Listeners() []Listener
}

// ListenerSet is a Subscriber built from an explicit list of listeners.
type ListenerSet struct {
	listeners []Listener
}

// NewListenerSet creates a subscriber holding the given listeners.
func NewListenerSet(listeners ...Listener) *ListenerSet {
	return &ListenerSet{listeners: listeners}
}

// Add appends listeners to the set.
// Listeners added after the set is registered take effect on the next Register.
func (s *ListenerSet) Add(listeners ...Listener) *ListenerSet {
	s.listeners = append(s.listeners, listeners...)
	return s
}

// Listeners implements Subscriber.
func (s *ListenerSet) Listeners() []Listener {
	out := make([]Listener, len(s.listeners))
	copy(out, s.listeners)
	return out
}
