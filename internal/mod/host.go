package mod

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/sledgemc/sledge/internal/api"
	"github.com/sledgemc/sledge/internal/event"
	"github.com/sledgemc/sledge/internal/event/events"
	"github.com/sledgemc/sledge/internal/logging"
)

// ScriptLoader turns a script mod manifest into an initializer.
type ScriptLoader interface {
	Load(m *Manifest) (Initializer, error)
}

// ScriptLoaderFunc adapts a function to ScriptLoader.
type ScriptLoaderFunc func(m *Manifest) (Initializer, error)

// Load implements ScriptLoader.
func (f ScriptLoaderFunc) Load(m *Manifest) (Initializer, error) {
	return f(m)
}

// Container is what the host records in the API for each loaded mod.
type Container struct {
	ID          string
	Version     string
	Source      events.ModSource
	Manifest    *Manifest
	Initializer Initializer
	LoadTime    time.Duration
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithBuiltin adds mods linked into the host. They initialize first, in the
// order given.
func WithBuiltin(inits ...Initializer) HostOption {
	return func(h *Host) {
		h.builtins = append(h.builtins, inits...)
	}
}

// WithScriptLoader sets the loader for script mods found in the mods dir.
func WithScriptLoader(l ScriptLoader) HostOption {
	return func(h *Host) {
		h.scripts = l
	}
}

// WithHostLogger sets the host logger.
func WithHostLogger(l *slog.Logger) HostOption {
	return func(h *Host) {
		if l != nil {
			h.logger = l
		}
	}
}

// Host discovers, orders and initializes mods.
type Host struct {
	api      *api.API
	builtins []Initializer
	scripts  ScriptLoader
	logger   *slog.Logger

	mu     sync.Mutex
	loaded bool
	mods   []*Container
	ready  *events.ModsReadyEvent
}

// NewHost creates a host for the given API.
func NewHost(a *api.API, opts ...HostOption) *Host {
	h := &Host{
		api:    a,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "mods")
	return h
}

// Load initializes builtin mods, then the eligible script mods in dependency
// order, and posts ModsReadyEvent. A failing mod does not stop the others;
// its error is reported in the returned event. Load runs once.
func (h *Host) Load(ctx context.Context) (*events.ModsReadyEvent, error) {
	h.mu.Lock()
	if h.loaded {
		h.mu.Unlock()
		return nil, ErrAlreadyLoaded
	}
	h.loaded = true
	h.mu.Unlock()

	ready := &events.ModsReadyEvent{Failed: make(map[string]string)}
	fail := func(id string, err error) {
		ready.Failed[id] = err.Error()
		h.logger.Error("mod failed", "mod", id, "error", err)
	}

	builtinIDs := make(map[string]bool, len(h.builtins))
	for _, in := range h.builtins {
		id := IDOf(in)
		if builtinIDs[id] {
			fail(id, fmt.Errorf("%w: builtin %s", ErrDuplicateMod, id))
			continue
		}
		builtinIDs[id] = true

		c := &Container{ID: id, Source: events.ModSourceBuiltin, Initializer: in}
		if err := h.initialize(c); err != nil {
			fail(id, err)
			continue
		}
		ready.Loaded = append(ready.Loaded, id)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	found, err := Discover(ctx, h.api.ModsDir())
	if err != nil {
		return nil, err
	}
	for _, dir := range sortedErrKeys(found.Invalid) {
		h.logger.Warn("invalid mod", "dir", dir, "error", found.Invalid[dir])
		fail(dir, found.Invalid[dir])
	}

	plan := Resolve(found.Manifests, h.api.Environment(), ready.Loaded)
	for _, m := range plan.Skipped {
		h.logger.Info("mod skipped", "mod", m.ID, "environment", m.Env(), "host", h.api.Environment())
		ready.Skipped = append(ready.Skipped, m.ID)
	}
	for _, id := range sortedErrKeys(plan.Failed) {
		fail(id, plan.Failed[id])
	}

	for _, m := range plan.Order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := h.loadScript(m); err != nil {
			fail(m.ID, err)
			continue
		}
		ready.Loaded = append(ready.Loaded, m.ID)
	}

	if len(ready.Failed) == 0 {
		ready.Failed = nil
	}
	h.mu.Lock()
	h.ready = ready
	h.mu.Unlock()

	event.Post(h.api.Bus(), ready)
	h.logger.Info("mods ready", "loaded", len(ready.Loaded), "failed", len(ready.Failed), "skipped", len(ready.Skipped))
	return ready, nil
}

func (h *Host) loadScript(m *Manifest) error {
	for _, dep := range m.Dependencies {
		if !h.api.IsModLoaded(dep) {
			return fmt.Errorf("%w: %s requires %s, which did not load", ErrDependencyNotFound, m.ID, dep)
		}
	}
	if h.scripts == nil {
		return ErrNoScriptLoader
	}

	in, err := h.scripts.Load(m)
	if err != nil {
		return fmt.Errorf("load script: %w", err)
	}

	return h.initialize(&Container{
		ID:          m.ID,
		Version:     m.Version,
		Source:      events.ModSourceScript,
		Manifest:    m,
		Initializer: in,
	})
}

// initialize runs the initializer, records the mod and posts ModLoadedEvent.
func (h *Host) initialize(c *Container) error {
	start := time.Now()
	if err := safeInit(c.Initializer, h.api); err != nil {
		return err
	}
	c.LoadTime = time.Since(start)

	h.api.RegisterMod(c.ID, c)
	h.mu.Lock()
	h.mods = append(h.mods, c)
	h.mu.Unlock()

	loaded := &events.ModLoadedEvent{
		ModID:   c.ID,
		Version: c.Version,
		Source:  c.Source,
	}
	if c.Manifest != nil {
		loaded.Path = c.Manifest.Dir()
	}
	event.Post(h.api.Bus(), loaded)

	h.logger.Info("mod loaded", "mod", c.ID, "source", c.Source, "duration", c.LoadTime)
	return nil
}

func safeInit(in Initializer, a *api.API) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrInitializerPanic, r, debug.Stack())
		}
	}()
	return in.OnInitialize(a)
}

// Mods returns the loaded mods in initialization order.
func (h *Host) Mods() []*Container {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*Container(nil), h.mods...)
}

// Ready returns the ModsReadyEvent posted by Load, or nil before Load.
func (h *Host) Ready() *events.ModsReadyEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ready
}

// Close releases mods in reverse initialization order. Initializers that
// implement io.Closer are closed; errors are joined.
func (h *Host) Close() error {
	h.mu.Lock()
	mods := h.mods
	h.mods = nil
	h.mu.Unlock()

	var errs []error
	for i := len(mods) - 1; i >= 0; i-- {
		if c, ok := mods[i].Initializer.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", mods[i].ID, err))
			}
		}
	}
	return errors.Join(errs...)
}

func sortedErrKeys(m map[string]error) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
