// Package schedule posts ScheduledEvents on the bus from cron schedules.
//
// Specs use the six-field cron format with seconds, plus the usual
// descriptors:
//
//	0 */5 * * * *   every five minutes
//	@every 30s      every thirty seconds
//	@daily          at midnight
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	cronv3 "github.com/robfig/cron/v3"

	"github.com/sledgemc/sledge/internal/event"
	"github.com/sledgemc/sledge/internal/event/events"
	"github.com/sledgemc/sledge/internal/logging"
)

// Schedule errors.
var (
	// ErrInvalidSpec is returned for specs cron cannot parse.
	ErrInvalidSpec = errors.New("invalid schedule spec")

	// ErrDuplicateSchedule is returned when a name is added twice.
	ErrDuplicateSchedule = errors.New("schedule already exists")

	// ErrUnknownSchedule is returned for names that were never added.
	ErrUnknownSchedule = errors.New("unknown schedule")
)

// Option configures a Scheduler.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	location *time.Location
	now      func() time.Time
}

// WithLogger sets the scheduler logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithLocation sets the time zone schedules are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}

// WithClock sets the clock used for FiredAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Scheduler fires named cron schedules into the bus.
type Scheduler struct {
	cron   *cronv3.Cron
	bus    *event.Bus
	logger *slog.Logger
	now    func() time.Time

	mu  sync.Mutex
	ids map[string]cronv3.EntryID
}

// New creates a stopped scheduler posting to bus.
func New(bus *event.Bus, opts ...Option) *Scheduler {
	o := options{
		logger:   logging.Discard(),
		location: time.Local,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger.With("component", "scheduler")
	cl := cronLogger{logger}
	return &Scheduler{
		cron: cronv3.New(
			cronv3.WithSeconds(),
			cronv3.WithLocation(o.location),
			cronv3.WithLogger(cl),
			cronv3.WithChain(cronv3.Recover(cl), cronv3.SkipIfStillRunning(cl)),
		),
		bus:    bus,
		logger: logger,
		now:    o.now,
		ids:    make(map[string]cronv3.EntryID),
	}
}

// Add registers a schedule. Each firing posts a ScheduledEvent named after it.
func (s *Scheduler) Add(name, spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateSchedule, name)
	}

	id, err := s.cron.AddFunc(spec, func() { s.fire(name) })
	if err != nil {
		return fmt.Errorf("%w: %s %q: %v", ErrInvalidSpec, name, spec, err)
	}
	s.ids[name] = id
	s.logger.Debug("schedule added", "schedule", name, "spec", spec)
	return nil
}

// Remove deletes a schedule. It returns false if the name is unknown.
func (s *Scheduler) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.ids[name]
	if !ok {
		return false
	}
	s.cron.Remove(id)
	delete(s.ids, name)
	return true
}

// Names returns the registered schedule names in sorted order.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.ids))
	for name := range s.ids {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Next returns the next activation of a schedule. It is zero until Start.
func (s *Scheduler) Next(name string) (time.Time, error) {
	s.mu.Lock()
	id, ok := s.ids[name]
	s.mu.Unlock()

	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s", ErrUnknownSchedule, name)
	}
	return s.cron.Entry(id).Next, nil
}

// Fire posts the schedule's event immediately, outside its cron timing.
func (s *Scheduler) Fire(name string) (*events.ScheduledEvent, error) {
	s.mu.Lock()
	_, ok := s.ids[name]
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSchedule, name)
	}
	return s.fire(name), nil
}

func (s *Scheduler) fire(name string) *events.ScheduledEvent {
	e := event.Post(s.bus, &events.ScheduledEvent{
		Schedule: name,
		FiredAt:  s.now(),
	})
	s.logger.Log(context.Background(), logging.LevelTrace, "schedule fired", "schedule", name)
	return e
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler. The returned context is done once running
// firings have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// cronLogger adapts slog to cron's logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Log(context.Background(), logging.LevelTrace, msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
