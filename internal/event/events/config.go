package events

import "github.com/sledgemc/sledge/internal/event"

// ConfigChangedEvent is posted when a file in the config directory changes.
// Cancelling it asks the host not to reload its own configuration.
type ConfigChangedEvent struct {
	event.Cancellable

	// Path is the absolute path of the changed file.
	Path string `json:"path"`

	// Op is the file operation: "create", "write", "remove" or "rename".
	Op string `json:"op"`
}
