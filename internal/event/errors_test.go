package event

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	err := &ValidationError{Subscriber: "*mod.Greeter", Listener: "onJoin", Reason: "handler is nil"}

	assert.Equal(t, "invalid event listener onJoin on *mod.Greeter: handler is nil", err.Error())
	assert.True(t, errors.Is(err, ErrInvalidListener))
}

func TestHandlerError(t *testing.T) {
	inner := errors.New("boom")
	err := &HandlerError{ListenerID: "id", Listener: "onJoin", Subscriber: "*mod.Greeter", Event: "PlayerJoin", Err: inner}

	assert.Equal(t, "handler onJoin (*mod.Greeter) failed on PlayerJoin: boom", err.Error())
	assert.ErrorIs(t, err, inner)
}

func TestPanicError(t *testing.T) {
	err := &PanicError{Value: "oops"}

	assert.Equal(t, "panic: oops", err.Error())
	assert.ErrorIs(t, err, ErrHandlerPanic)
	assert.ErrorIs(t, &HandlerError{Err: err}, ErrHandlerPanic)
}

func TestIllegalStateError(t *testing.T) {
	err := &IllegalStateError{Op: "cancel event X", Err: ErrNotCancellable}

	assert.Equal(t, "illegal state: cancel event X: event is not cancellable", err.Error())
	assert.ErrorIs(t, err, ErrNotCancellable)
}
