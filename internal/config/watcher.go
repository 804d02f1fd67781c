package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sledgemc/sledge/internal/event"
	"github.com/sledgemc/sledge/internal/event/events"
	"github.com/sledgemc/sledge/internal/logging"
)

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long a path must be quiet before its change is posted.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithWatcherLogger sets the logger for watch errors.
func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// OnChange registers a callback that receives each posted event after all
// listeners have run, e.g. to reload the host config unless cancelled.
func OnChange(fn func(*events.ConfigChangedEvent)) WatcherOption {
	return func(w *Watcher) {
		w.onChange = fn
	}
}

// WatcherStats holds watcher counters.
type WatcherStats struct {
	WatchedPaths int
	Pending      int
	Posted       int64
	Errors       int64
}

// Watcher posts a ConfigChangedEvent on the bus whenever a file in a watched
// directory is created, written, removed or renamed. Rapid changes to the same
// file are coalesced into a single event.
type Watcher struct {
	mu sync.Mutex

	watcher  *fsnotify.Watcher
	bus      *event.Bus
	logger   *slog.Logger
	delay    time.Duration
	onChange func(*events.ConfigChangedEvent)

	paths   map[string]bool
	pending map[string]*pendingChange

	posted atomic.Int64
	errs   atomic.Int64

	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

type pendingChange struct {
	op    fsnotify.Op
	timer *time.Timer
}

// NewWatcher creates a watcher posting to bus and starts its event loop.
func NewWatcher(bus *event.Bus, opts ...WatcherOption) (*Watcher, error) {
	if bus == nil {
		return nil, errors.New("config watcher requires a bus")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher: fsw,
		bus:     bus,
		logger:  logging.Discard(),
		delay:   DefaultWatchDebounce,
		paths:   make(map[string]bool),
		pending: make(map[string]*pendingChange),
		closeCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "config-watcher")

	w.wg.Add(1)
	go w.processLoop()

	return w, nil
}

// Watch starts watching a directory. Watching it twice is a no-op.
func (w *Watcher) Watch(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if w.paths[abs] {
		return nil
	}
	if _, err := os.Stat(abs); err != nil {
		return err
	}
	if err := w.watcher.Add(abs); err != nil {
		return err
	}
	w.paths[abs] = true
	return nil
}

// Close stops the watcher and drops pending changes.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	for path, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	w.wg.Wait()
	return w.watcher.Close()
}

// Stats returns watcher counters.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return WatcherStats{
		WatchedPaths: len(w.paths),
		Pending:      len(w.pending),
		Posted:       w.posted.Load(),
		Errors:       w.errs.Load(),
	}
}

// Flush posts all pending changes immediately.
func (w *Watcher) Flush() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path, p := range w.pending {
		p.timer.Stop()
		paths = append(paths, path)
	}
	w.mu.Unlock()

	for _, path := range paths {
		w.fire(path)
	}
}

func (w *Watcher) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case fsEvent, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(fsEvent)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.errs.Add(1)
			w.logger.Warn("config watch error", "error", err)
		}
	}
}

func (w *Watcher) handle(fsEvent fsnotify.Event) {
	if fsEvent.Op == fsnotify.Chmod || fsEvent.Op == 0 {
		return
	}
	if base := filepath.Base(fsEvent.Name); base == "" || base[0] == '.' {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	path := fsEvent.Name
	if p, ok := w.pending[path]; ok {
		p.op |= fsEvent.Op
		p.timer.Reset(w.delay)
		return
	}

	w.pending[path] = &pendingChange{
		op: fsEvent.Op,
		timer: time.AfterFunc(w.delay, func() {
			w.fire(path)
		}),
	}
}

func (w *Watcher) fire(path string) {
	w.mu.Lock()
	p, ok := w.pending[path]
	if !ok || w.closed {
		w.mu.Unlock()
		return
	}
	delete(w.pending, path)
	w.mu.Unlock()

	e := event.Post(w.bus, &events.ConfigChangedEvent{
		Path: path,
		Op:   opName(path, p.op),
	})
	w.posted.Add(1)
	w.logger.Debug("config changed", "path", path, "op", e.Op, "cancelled", e.IsCancelled())

	if w.onChange != nil {
		w.onChange(e)
	}
}

// opName reduces a coalesced fsnotify op to a single operation. Whether the
// file still exists decides between the create/write and remove/rename pairs,
// so an editor's rename-and-replace save reads as a write.
func opName(path string, op fsnotify.Op) string {
	_, err := os.Stat(path)
	exists := err == nil

	switch {
	case exists && op.Has(fsnotify.Create) && !op.Has(fsnotify.Remove) && !op.Has(fsnotify.Rename):
		return "create"
	case exists:
		return "write"
	case op.Has(fsnotify.Rename) && !op.Has(fsnotify.Remove):
		return "rename"
	default:
		return "remove"
	}
}
