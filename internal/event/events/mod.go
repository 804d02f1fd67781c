package events

import "github.com/sledgemc/sledge/internal/event"

// ModSource indicates how a mod was provided to the host.
type ModSource string

// Mod sources.
const (
	ModSourceBuiltin ModSource = "builtin"
	ModSourceScript  ModSource = "script"
)

// ModLoadedEvent is posted after a mod's initializer returned successfully.
type ModLoadedEvent struct {
	event.Base

	// ModID is the unique mod identifier.
	ModID string `json:"mod_id"`

	// Version is the mod version from its manifest, empty for builtin mods.
	Version string `json:"version,omitempty"`

	// Source tells whether the mod is linked into the host or a script.
	Source ModSource `json:"source"`

	// Path is the mod directory for script mods.
	Path string `json:"path,omitempty"`
}

// ModsReadyEvent is posted once every eligible mod has been initialized.
type ModsReadyEvent struct {
	event.Base

	// Loaded lists mod ids in initialization order.
	Loaded []string `json:"loaded"`

	// Failed maps mod ids to the error that stopped their initialization.
	Failed map[string]string `json:"failed,omitempty"`

	// Skipped lists mods whose environment does not match the host.
	Skipped []string `json:"skipped,omitempty"`
}
