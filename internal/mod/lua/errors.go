package lua

import "errors"

// Errors for script mods.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when a script call exceeds its timeout.
	ErrExecutionTimeout = errors.New("lua execution timeout")

	// ErrEventExpired is raised when a script uses an event object after its
	// handler returned.
	ErrEventExpired = errors.New("event is no longer being dispatched")

	// ErrNotLoading is raised when sledge.on is called after the mod loaded.
	ErrNotLoading = errors.New("listeners can only be added while the mod loads")
)
