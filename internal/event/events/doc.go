// Package events defines the built-in events the Sledge host posts on its bus.
//
// Events are grouped by their source:
//
//   - Mod events: a mod finished initializing, all mods are ready
//   - Config events: a file in the config directory changed
//   - Schedule events: a configured cron schedule fired
//   - Lifecycle events: the host is about to shut down
//
// Every event is a pointer-to-struct embedding event.Base or
// event.Cancellable, so listeners bind to it by its concrete type:
//
//	bus.Register(event.NewListenerSet(
//	    event.On(func(e *events.ModLoadedEvent) {
//	        logger.Info("mod loaded", "mod", e.ModID)
//	    }),
//	))
//
// Fields carry json tags because script mods read and write events through
// their JSON form.
package events

import "github.com/sledgemc/sledge/internal/event"

// Register adds all built-in event types to the catalog.
func Register(c *event.Catalog) error {
	return c.Add(
		&ModLoadedEvent{},
		&ModsReadyEvent{},
		&ConfigChangedEvent{},
		&ScheduledEvent{},
		&ShutdownEvent{},
	)
}
