package event

import (
	"log/slog"
	"reflect"
	"sync/atomic"

	"github.com/sledgemc/sledge/internal/event/dispatch"
)

// DefaultBusName is the name of a bus created without one.
const DefaultBusName = "default"

// Bus dispatches events to listeners registered for their exact concrete type.
//
// Register, Unregister and Post are safe to call concurrently. Post runs
// listeners on the calling goroutine, one after another, in ascending
// priority order.
type Bus struct {
	name     string
	registry *Registry
	executor *dispatch.Executor
	config   busConfig
	logger   *slog.Logger

	// Stats
	eventsPosted    atomic.Uint64
	handlersInvoked atomic.Uint64
	handlersSkipped atomic.Uint64
	handlerErrors   atomic.Uint64
	handlerPanics   atomic.Uint64
}

// NewBus creates a new event bus with the given name and options.
// An empty name selects DefaultBusName.
func NewBus(name string, opts ...BusOption) *Bus {
	if name == "" {
		name = DefaultBusName
	}

	config := defaultBusConfig()
	for _, opt := range opts {
		opt(&config)
	}

	return &Bus{
		name:     name,
		registry: NewRegistry(),
		executor: dispatch.NewExecutor(),
		config:   config,
		logger:   config.logger.With("bus", name),
	}
}

// Name returns the bus name.
func (b *Bus) Name() string {
	return b.name
}

// Register adds every listener of sub to the bus.
//
// Registering a subscriber that is already registered is a no-op. All of the
// subscriber's listeners are validated before any is inserted, so a
// ValidationError leaves the bus unchanged.
func (b *Bus) Register(sub Subscriber) error {
	owner, ownerName, err := identify(sub)
	if err != nil {
		return err
	}
	if b.registry.Contains(owner) {
		return nil
	}

	entries, err := discover(sub, ownerName)
	if err != nil {
		return err
	}

	// A concurrent Register of the same subscriber may have won the race.
	if !b.registry.Add(owner, entries) {
		return nil
	}

	count := b.registry.Count()
	b.config.observer.ListenersChanged(count)
	b.logger.Debug("subscriber registered",
		"subscriber", ownerName,
		"listeners", len(entries),
		"total", count)
	return nil
}

// Unregister removes every listener owned by sub.
// It returns false if sub was not registered.
func (b *Bus) Unregister(sub Subscriber) bool {
	owner, ownerName, err := identify(sub)
	if err != nil {
		return false
	}

	removed := b.registry.Remove(owner)
	if removed < 0 {
		return false
	}

	count := b.registry.Count()
	b.config.observer.ListenersChanged(count)
	b.logger.Debug("subscriber unregistered",
		"subscriber", ownerName,
		"listeners", removed,
		"total", count)
	return true
}

// IsRegistered reports whether sub is currently registered.
func (b *Bus) IsRegistered(sub Subscriber) bool {
	owner, _, err := identify(sub)
	if err != nil {
		return false
	}
	return b.registry.Contains(owner)
}

// Post delivers e to the listeners registered for its concrete type and
// returns the same instance.
//
// Listeners run in priority order. Once the event is cancelled, listeners
// that did not opt into ReceiveCancelled are skipped. A listener that
// returns an error or panics is logged and the remaining listeners still run;
// the failure is never returned to the caller.
func (b *Bus) Post(e Event) Event {
	if isNil(e) {
		return e
	}

	entries := b.registry.EntriesFor(reflect.TypeOf(e))
	if len(entries) == 0 {
		return e
	}

	name := NameOf(e)
	b.eventsPosted.Add(1)
	b.config.observer.EventPosted(name, len(entries))

	for _, entry := range entries {
		if e.IsCancelled() && !entry.receiveCancelled {
			b.handlersSkipped.Add(1)
			b.config.observer.HandlerSkipped(name)
			continue
		}

		result := b.executor.Execute(e, entry)
		b.handlersInvoked.Add(1)
		b.config.observer.HandlerInvoked(name)

		if !result.OK() {
			b.reportFailure(name, entry, result)
		}
		if b.config.slowThreshold > 0 && result.Duration >= b.config.slowThreshold {
			b.logger.Warn("slow event handler",
				"event", name,
				"listener", entry.label,
				"subscriber", entry.ownerName,
				"duration", result.Duration)
		}
	}

	return e
}

// Post is the typed form of Bus.Post, returning the event as its concrete type.
func Post[E Event](b *Bus, e E) E {
	b.Post(e)
	return e
}

// reportFailure logs a failed handler invocation and notifies hooks.
func (b *Bus) reportFailure(name string, entry *Entry, result dispatch.Result) {
	herr := &HandlerError{
		ListenerID: entry.id,
		Listener:   entry.label,
		Subscriber: entry.ownerName,
		Event:      name,
		Err:        result.Err,
	}

	attrs := []any{
		"event", name,
		"listener", entry.label,
		"listener_id", entry.id,
		"subscriber", entry.ownerName,
		"priority", entry.priority.String(),
	}

	panicked := result.Outcome == dispatch.Panicked
	if panicked {
		b.handlerPanics.Add(1)
		herr.Err = &PanicError{Value: result.Panic, Stack: string(result.Stack)}
		b.logger.Error("event handler panicked",
			append(attrs, "panic", result.Panic, "stack", string(result.Stack))...)
	} else {
		b.handlerErrors.Add(1)
		b.logger.Error("event handler failed", append(attrs, "error", result.Err)...)
	}
	b.config.observer.HandlerFailed(name, panicked)

	if b.config.errorHandler != nil {
		func() {
			defer func() {
				_ = recover()
			}()
			b.config.errorHandler(herr)
		}()
	}
}

// ListenerCount returns the number of listeners across all event types.
func (b *Bus) ListenerCount() int {
	return b.registry.Count()
}

// EntriesFor returns the ordered listener entries for the exact type t.
// The returned slice must not be modified.
func (b *Bus) EntriesFor(t reflect.Type) []*Entry {
	return b.registry.EntriesFor(t)
}

// Registry returns the bus registry for diagnostics.
func (b *Bus) Registry() *Registry {
	return b.registry
}

// Stats returns current bus statistics.
func (b *Bus) Stats() Stats {
	return Stats{
		EventsPosted:    b.eventsPosted.Load(),
		HandlersInvoked: b.handlersInvoked.Load(),
		HandlersSkipped: b.handlersSkipped.Load(),
		HandlerErrors:   b.handlerErrors.Load(),
		HandlerPanics:   b.handlerPanics.Load(),
		Listeners:       b.registry.Count(),
		Subscribers:     b.registry.Subscribers(),
	}
}

// isNil reports whether e is nil or a typed nil pointer.
func isNil(e Event) bool {
	if e == nil {
		return true
	}
	v := reflect.ValueOf(e)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
