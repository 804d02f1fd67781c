package dispatch

import "time"

// Handler is a single listener invocation target.
type Handler interface {
	Handle(event any) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(event any) error

// Handle implements Handler.
func (f HandlerFunc) Handle(event any) error {
	return f(event)
}

// Outcome classifies a handler invocation.
type Outcome uint8

const (
	// OK means the handler returned nil.
	OK Outcome = iota

	// Failed means the handler returned an error.
	Failed

	// Panicked means the handler panicked and was recovered.
	Panicked
)

var outcomeNames = [...]string{"ok", "error", "panic"}

// String returns "ok", "error" or "panic".
func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// Result describes one handler invocation.
type Result struct {
	Outcome Outcome

	// Err is the returned error when Outcome is Failed.
	Err error

	// Panic and Stack are set when Outcome is Panicked.
	Panic any
	Stack []byte

	Duration time.Duration
}

// OK reports whether the handler returned without error or panic.
func (r Result) OK() bool {
	return r.Outcome == OK
}
