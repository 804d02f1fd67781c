package events

import (
	"time"

	"github.com/sledgemc/sledge/internal/event"
)

// ScheduledEvent is posted each time a configured schedule fires.
type ScheduledEvent struct {
	event.Base

	// Schedule is the configured schedule name.
	Schedule string `json:"schedule"`

	// FiredAt is when the schedule fired.
	FiredAt time.Time `json:"fired_at"`
}

// ShutdownEvent is posted when the host is asked to stop.
// A listener may cancel it to veto a non-forced shutdown.
type ShutdownEvent struct {
	event.Cancellable

	// Reason describes why the host is stopping (e.g. "signal: interrupt").
	Reason string `json:"reason"`

	// Forced shutdowns proceed even when the event is cancelled.
	Forced bool `json:"forced"`
}
