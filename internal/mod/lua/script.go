package lua

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/sledgemc/sledge/internal/api"
	"github.com/sledgemc/sledge/internal/event"
	"github.com/sledgemc/sledge/internal/logging"
	"github.com/sledgemc/sledge/internal/mod"
)

// Script is a script mod. Running its entrypoint collects the listeners
// declared with sledge.on; the Script then registers itself on the bus as
// their subscriber.
type Script struct {
	manifest  *mod.Manifest
	catalog   *event.Catalog
	logger    *slog.Logger
	stateOpts []StateOption

	mu        sync.Mutex
	state     *State
	bus       *event.Bus
	listeners []event.Listener
	loading   bool
}

// NewScript creates a script mod for the manifest. Event names used by the
// script resolve through catalog.
func NewScript(m *mod.Manifest, catalog *event.Catalog, logger *slog.Logger, opts ...StateOption) *Script {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Script{
		manifest:  m,
		catalog:   catalog,
		logger:    logger.With("mod", m.ID),
		stateOpts: opts,
	}
}

// ModID returns the manifest id.
func (s *Script) ModID() string {
	return s.manifest.ID
}

// OnInitialize runs the entrypoint and registers the declared listeners.
func (s *Script) OnInitialize(a *api.API) error {
	state := NewState(s.stateOpts...)
	if err := state.with(func(L *lua.LState) error {
		registerEventType(L)
		L.SetGlobal("sledge", s.module(L, a))
		L.SetGlobal("print", L.NewFunction(s.print))
		return nil
	}); err != nil {
		_ = state.Close()
		return err
	}

	s.loading = true
	err := state.DoFile(s.manifest.EntrypointPath())
	s.loading = false
	if err != nil {
		_ = state.Close()
		return fmt.Errorf("run %s: %w", s.manifest.Entrypoint, err)
	}

	s.mu.Lock()
	s.state = state
	s.bus = a.Bus()
	s.mu.Unlock()

	if err := a.Bus().Register(s); err != nil {
		_ = s.Close()
		return err
	}
	s.logger.Debug("script loaded", "listeners", len(s.Listeners()))
	return nil
}

// Listeners implements event.Subscriber.
func (s *Script) Listeners() []event.Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.Listener(nil), s.listeners...)
}

// Close unregisters the script's listeners and releases its state.
func (s *Script) Close() error {
	s.mu.Lock()
	bus, state := s.bus, s.state
	s.bus, s.state = nil, nil
	s.mu.Unlock()

	if bus != nil {
		bus.Unregister(s)
	}
	if state != nil {
		return state.Close()
	}
	return nil
}

func (s *Script) module(L *lua.LState, a *api.API) *lua.LTable {
	isModLoaded := func(L *lua.LState) int {
		L.Push(lua.LBool(a.IsModLoaded(L.CheckString(1))))
		return 1
	}

	m := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"on":            s.on,
		"log":           s.log,
		"events":        s.events,
		"is_mod_loaded": isModLoaded,
	})
	L.SetField(m, "mod_id", lua.LString(s.manifest.ID))
	L.SetField(m, "version", lua.LString(s.manifest.Version))
	L.SetField(m, "environment", lua.LString(a.Environment().String()))
	L.SetField(m, "minecraft_version", lua.LString(a.MinecraftVersion()))
	L.SetField(m, "loader_version", lua.LString(a.LoaderVersion()))
	return m
}

// on implements sledge.on(eventName, fn [, {priority=, receive_cancelled=}]).
func (s *Script) on(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)
	opts := L.OptTable(3, nil)

	if !s.loading {
		L.RaiseError("%s", ErrNotLoading)
		return 0
	}

	t, err := s.catalog.Lookup(name)
	if err != nil {
		L.RaiseError("%s", err)
		return 0
	}

	s.mu.Lock()
	n := len(s.listeners)
	s.mu.Unlock()

	listenerOpts := []event.ListenerOption{
		event.WithLabel(fmt.Sprintf("%s:%s#%d", s.manifest.ID, name, n)),
	}
	if opts != nil {
		if p, ok := opts.RawGetString("priority").(lua.LString); ok {
			priority, err := event.ParsePriority(string(p))
			if err != nil {
				L.RaiseError("%s", err)
				return 0
			}
			listenerOpts = append(listenerOpts, event.WithPriority(priority))
		}
		if lua.LVAsBool(opts.RawGetString("receive_cancelled")) {
			listenerOpts = append(listenerOpts, event.ReceiveCancelled())
		}
	}

	s.mu.Lock()
	s.listeners = append(s.listeners, event.Dynamic(t, s.handler(fn), listenerOpts...))
	s.mu.Unlock()
	return 0
}

// handler calls fn with an event object valid for the duration of the call.
func (s *Script) handler(fn *lua.LFunction) func(event.Event) error {
	return func(e event.Event) error {
		s.mu.Lock()
		state := s.state
		s.mu.Unlock()
		if state == nil {
			return ErrStateClosed
		}

		return state.with(func(L *lua.LState) error {
			h := &eventHandle{e: e}
			defer func() { h.e = nil }()
			return L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, newEventValue(L, h))
		})
	}
}

// log implements sledge.log(level, msg [, fields]).
func (s *Script) log(L *lua.LState) int {
	level := logging.ParseLevel(L.CheckString(1))
	msg := L.CheckString(2)

	var attrs []any
	if fields := L.OptTable(3, nil); fields != nil {
		kv, _ := toGo(fields).(map[string]any)
		keys := make([]string, 0, len(kv))
		for k := range kv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			attrs = append(attrs, k, kv[k])
		}
	}

	s.logger.Log(context.Background(), level, msg, attrs...)
	return 0
}

func (s *Script) print(L *lua.LState) int {
	parts := make([]string, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	s.logger.Info(strings.Join(parts, "\t"))
	return 0
}

// events implements sledge.events(), returning the known event names.
func (s *Script) events(L *lua.LState) int {
	t := L.NewTable()
	for _, name := range s.catalog.Names() {
		t.Append(lua.LString(name))
	}
	L.Push(t)
	return 1
}
