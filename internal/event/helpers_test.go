package event

import (
	"bytes"
	"log/slog"
	"sync"
)

// ExampleEvent is a plain, non-cancellable test event.
type ExampleEvent struct {
	Base
	Flag string
}

// DerivedEvent embeds ExampleEvent to check exact-type dispatch.
type DerivedEvent struct {
	ExampleEvent
}

// GuardEvent is a cancellable test event that records listener calls.
type GuardEvent struct {
	Cancellable
	Calls []string
}

// recorder is a Subscriber with a configurable listener list.
type recorder struct {
	listeners []Listener
}

func (r *recorder) Listeners() []Listener {
	return r.listeners
}

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger() (*slog.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

// appendCall returns a listener for GuardEvent that records name.
func appendCall(name string, opts ...ListenerOption) Listener {
	return On(func(e *GuardEvent) {
		e.Calls = append(e.Calls, name)
	}, opts...)
}
