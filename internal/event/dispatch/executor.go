package dispatch

import (
	"runtime/debug"
	"time"
)

// Executor invokes handlers on the calling goroutine, times them and turns
// panics into results.
type Executor struct {
	now func() time.Time
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithClock replaces the clock used for Result.Duration.
func WithClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}

// NewExecutor creates an executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs h with event. It never panics.
func (e *Executor) Execute(event any, h Handler) (result Result) {
	start := e.now()
	defer func() {
		if r := recover(); r != nil {
			result = Result{
				Outcome: Panicked,
				Panic:   r,
				Stack:   debug.Stack(),
			}
		}
		result.Duration = e.now().Sub(start)
	}()

	if err := h.Handle(event); err != nil {
		return Result{Outcome: Failed, Err: err}
	}
	return Result{Outcome: OK}
}
