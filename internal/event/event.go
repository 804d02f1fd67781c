package event

import (
	"reflect"
)

// Event is implemented by every postable event.
//
// Concrete events are pointer-to-struct types that embed Base or Cancellable:
//
//	type PlayerJoinEvent struct {
//	    event.Cancellable
//	    Player string
//	}
//
// The unexported method keeps the interface closed to those two embeddings.
type Event interface {
	// Name returns the identifying label of the event.
	Name() string

	// IsCancellable reports whether the event variant supports cancellation.
	IsCancellable() bool

	// IsCancelled reports whether a listener cancelled the event.
	IsCancelled() bool

	// SetCancelled sets the cancellation flag.
	// It fails with an IllegalStateError on non-cancellable variants.
	SetCancelled(cancelled bool) error

	// Cancel is shorthand for SetCancelled(true).
	Cancel() error

	base() *Base
}

// Base is the embeddable core of a non-cancellable event.
// The zero value is ready to use and takes its name from the concrete type.
type Base struct {
	name      string
	cancelled bool
}

// Named returns a Base with an explicit event name.
func Named(name string) Base {
	return Base{name: name}
}

// Name returns the event name.
// For a zero Base this is empty until the event is posted or passed to
// NameOf; use NameOf when the name is needed before posting.
func (b *Base) Name() string {
	return b.name
}

// IsCancellable returns false.
func (b *Base) IsCancellable() bool {
	return false
}

// IsCancelled returns the cancellation flag.
func (b *Base) IsCancelled() bool {
	return b.cancelled
}

// SetCancelled always fails: Base events cannot be cancelled.
func (b *Base) SetCancelled(bool) error {
	return &IllegalStateError{Op: cancelOp(b.name), Err: ErrNotCancellable}
}

// cancelOp names the failed operation. A Base cannot see the type embedding
// it, so an unnamed event reads as such until Post or NameOf fills the name.
func cancelOp(name string) string {
	if name == "" {
		return "cancel unnamed event"
	}
	return "cancel event " + name
}

// Cancel always fails: Base events cannot be cancelled.
func (b *Base) Cancel() error {
	return b.SetCancelled(true)
}

func (b *Base) base() *Base {
	return b
}

// Cancellable is the embeddable core of an event that listeners may cancel.
type Cancellable struct {
	Base
}

// NamedCancellable returns a Cancellable with an explicit event name.
func NamedCancellable(name string) Cancellable {
	return Cancellable{Base: Named(name)}
}

// IsCancellable returns true.
func (c *Cancellable) IsCancellable() bool {
	return true
}

// SetCancelled sets the cancellation flag.
func (c *Cancellable) SetCancelled(cancelled bool) error {
	c.cancelled = cancelled
	return nil
}

// Cancel marks the event as cancelled.
func (c *Cancellable) Cancel() error {
	return c.SetCancelled(true)
}

var (
	eventIface      = reflect.TypeOf((*Event)(nil)).Elem()
	baseType        = reflect.TypeOf((*Base)(nil))
	cancellableType = reflect.TypeOf((*Cancellable)(nil))
)

// NameOf returns the event name, falling back to the simple name of the
// concrete type when no explicit name was given. The fallback is stored on
// the event so later Name calls agree.
func NameOf(e Event) string {
	if e == nil {
		return ""
	}
	b := e.base()
	if b.name == "" {
		b.name = simpleName(reflect.TypeOf(e))
	}
	return b.name
}

// TypeOf returns the registry key for events of type E.
func TypeOf[E Event]() reflect.Type {
	return reflect.TypeOf((*E)(nil)).Elem()
}

// simpleName returns the unqualified type name, ignoring pointer indirection.
func simpleName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
