package api

import (
	"errors"

	"github.com/sledgemc/sledge/internal/event"
)

// API errors.
var (
	// ErrAlreadyInitialized is returned by a second Initializer.Init call.
	ErrAlreadyInitialized = errors.New("api already initialized")

	// ErrNotInitialized is returned when the API is requested before Init.
	ErrNotInitialized = errors.New("api not initialized yet")

	// ErrUnknownEnvironment is returned when parsing an unrecognised environment.
	ErrUnknownEnvironment = errors.New("unknown environment")

	// ErrInvalidOptions is returned when Init options are incomplete.
	ErrInvalidOptions = errors.New("invalid api options")
)

// illegalState wraps err the same way the event package reports state violations.
func illegalState(op string, err error) error {
	return &event.IllegalStateError{Op: op, Err: err}
}
