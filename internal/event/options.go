package event

import (
	"io"
	"log/slog"
	"time"
)

// BusOption configures an event Bus.
type BusOption func(*busConfig)

// busConfig contains configuration for the event bus.
type busConfig struct {
	// logger receives handler failure reports.
	logger *slog.Logger

	// observer receives dispatch notifications.
	observer Observer

	// errorHandler is called for every handler failure after it is logged.
	errorHandler func(*HandlerError)

	// slowThreshold enables a warning for listeners running at least this long.
	slowThreshold time.Duration
}

// defaultBusConfig returns the default configuration.
func defaultBusConfig() busConfig {
	return busConfig{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer: nopObserver{},
	}
}

// WithLogger sets the logger used to report handler failures.
func WithLogger(l *slog.Logger) BusOption {
	return func(c *busConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver sets the dispatch observer, typically a metrics collector.
func WithObserver(o Observer) BusOption {
	return func(c *busConfig) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithErrorHandler sets a callback invoked for each handler failure.
// The callback runs on the publisher's goroutine; a panic in it is recovered.
func WithErrorHandler(h func(*HandlerError)) BusOption {
	return func(c *busConfig) {
		c.errorHandler = h
	}
}

// WithSlowThreshold logs a warning for every listener invocation that takes
// at least d. Zero disables the check.
func WithSlowThreshold(d time.Duration) BusOption {
	return func(c *busConfig) {
		c.slowThreshold = d
	}
}
