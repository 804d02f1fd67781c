// Package event provides the in-process event bus for Sledge mods.
//
// Mods register listeners bound to concrete event types and receive events in
// a deterministic, priority-ordered, cancellation-aware sequence. Delivery is
// synchronous: Post runs every eligible listener on the caller's goroutine
// and returns the same event instance.
//
// # Architecture
//
//	                ┌──────────────────────────────────────────┐
//	                │                   Bus                     │
//	                │  - Register / Unregister (by identity)    │
//	                │  - Post (exact-type dispatch)             │
//	                └──────────────────────────────────────────┘
//	                                  │
//	       ┌──────────────────────────┼──────────────────────────┐
//	       ▼                          ▼                          ▼
//	┌──────────────┐         ┌─────────────────┐        ┌─────────────────┐
//	│  Discovery   │         │    Registry     │        │    Executor     │
//	│ - Listeners()│         │ - per-type COW  │        │ - panic recover │
//	│ - validation │         │   snapshots     │        │ - timing        │
//	└──────────────┘         └─────────────────┘        └─────────────────┘
//
// # Events
//
// An event is a pointer to a struct embedding Base or Cancellable:
//
//	type PlayerJoinEvent struct {
//	    event.Cancellable
//	    Player string
//	}
//
// A zero base takes the concrete type's simple name ("PlayerJoinEvent") the
// first time it is posted. Use Named or NamedCancellable to set one
// explicitly. Cancelling a Base event fails with an IllegalStateError.
//
// # Priority Ordering
//
// Listeners execute in ascending priority:
//
//	LOWEST < LOW < NORMAL < HIGH < HIGHEST < MONITOR
//
// Ties run in registration order. MONITOR is for observers that should see
// the final cancellation state without influencing it.
//
// # Cancellation
//
// Once a listener cancels an event, later listeners are skipped unless they
// were registered with ReceiveCancelled.
//
// # Basic Usage
//
//	bus := event.NewBus("server", event.WithLogger(logger))
//
//	listeners := event.NewListenerSet(
//	    event.On(func(e *PlayerJoinEvent) {
//	        if banned(e.Player) {
//	            _ = e.Cancel()
//	        }
//	    }, event.WithPriority(event.PriorityHigh)),
//	    event.On(func(e *PlayerJoinEvent) {
//	        audit(e.Player, e.IsCancelled())
//	    }, event.WithPriority(event.PriorityMonitor), event.ReceiveCancelled()),
//	)
//	if err := bus.Register(listeners); err != nil {
//	    return err
//	}
//
//	e := event.Post(bus, &PlayerJoinEvent{Player: "steve"})
//	if e.IsCancelled() {
//	    // refuse the connection
//	}
//
// # Subscribers
//
// Any pointer type implementing Subscriber can be registered. Its address is
// its identity: registering it again is a no-op and Unregister removes all of
// its listeners across every event type.
// Pointers to zero-size types are rejected, since distinct instances may
// share one address.
//
//	type Greeter struct{ greeted int }
//
//	func (g *Greeter) Listeners() []event.Listener {
//	    return []event.Listener{
//	        event.On(g.onJoin),
//	    }
//	}
//
// # Exact-Type Dispatch
//
// Listeners are keyed by the concrete runtime type of the event. A listener
// is never invoked for a different type, even one that embeds its declared
// type.
//
// # Error Handling
//
// Register returns a *ValidationError when a listener is bound to an
// interface, a base type, or a non-event type; no listener of that subscriber
// is registered. A listener that returns an error or panics during Post is
// logged and reported to the Observer and error handler hooks; the remaining
// listeners still run and Post never fails.
//
// # Thread Safety
//
// Registration and dispatch may run concurrently. Dispatch reads an immutable
// snapshot without locking; a Post that already took its snapshot may still
// invoke a listener whose subscriber is being unregistered. A listener that
// blocks stalls the Post that invoked it.
package event
