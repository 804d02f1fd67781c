package mod

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sledgemc/sledge/internal/api"
	"github.com/sledgemc/sledge/internal/event"
	"github.com/sledgemc/sledge/internal/event/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// journal records lifecycle events posted by the host.
type journal struct {
	mu     sync.Mutex
	loaded []string
	ready  []*events.ModsReadyEvent
}

func (j *journal) Listeners() []event.Listener {
	return []event.Listener{
		event.On(func(e *events.ModLoadedEvent) {
			j.mu.Lock()
			defer j.mu.Unlock()
			j.loaded = append(j.loaded, string(e.Source)+":"+e.ModID)
		}),
		event.On(func(e *events.ModsReadyEvent) {
			j.mu.Lock()
			defer j.mu.Unlock()
			j.ready = append(j.ready, e)
		}),
	}
}

// scriptStub is an initializer standing in for a Lua script.
type scriptStub struct {
	id     string
	err    error
	closed *[]string
}

func (s *scriptStub) OnInitialize(*api.API) error { return s.err }
func (s *scriptStub) ModID() string               { return s.id }
func (s *scriptStub) Close() error {
	*s.closed = append(*s.closed, s.id)
	return nil
}

func newTestAPI(t *testing.T, env api.Environment) (*api.API, *journal) {
	t.Helper()
	bus := event.NewBus("test")
	j := &journal{}
	require.NoError(t, bus.Register(j))

	a, err := api.NewInitializer().Init(api.Options{
		Environment: env,
		GameDir:     t.TempDir(),
		Bus:         bus,
	})
	require.NoError(t, err)
	return a, j
}

func TestHost_Load(t *testing.T) {
	a, j := newTestAPI(t, api.ServerMode)

	writeMod(t, a.ModsDir(), "addon", ManifestTOML, "id = \"addon\"\nversion = \"1.0.0\"\ndependencies = [\"core\"]\n")
	writeMod(t, a.ModsDir(), "hud", ManifestTOML, "id = \"hud\"\nversion = \"1.0.0\"\nenvironment = \"client\"\n")
	writeMod(t, a.ModsDir(), "base", ManifestJSON, `{"id": "base", "version": "0.3.0"}`)

	var order []string
	var closed []string
	builtin := Func("core", func(got *api.API) error {
		assert.Same(t, a, got)
		order = append(order, "core")
		return nil
	})
	scripts := ScriptLoaderFunc(func(m *Manifest) (Initializer, error) {
		order = append(order, m.ID)
		return &scriptStub{id: m.ID, closed: &closed}, nil
	})

	h := NewHost(a, WithBuiltin(builtin), WithScriptLoader(scripts))
	ready, err := h.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"core", "addon", "base"}, order)
	assert.Equal(t, []string{"core", "addon", "base"}, ready.Loaded)
	assert.Equal(t, []string{"hud"}, ready.Skipped)
	assert.Empty(t, ready.Failed)

	assert.True(t, a.IsModLoaded("core"))
	assert.True(t, a.IsModLoaded("addon"))
	assert.False(t, a.IsModLoaded("hud"))

	c, ok := a.Mod("base")
	require.True(t, ok)
	container := c.(*Container)
	assert.Equal(t, "0.3.0", container.Version)
	assert.Equal(t, events.ModSourceScript, container.Source)

	assert.Equal(t, []string{"builtin:core", "script:addon", "script:base"}, j.loaded)
	require.Len(t, j.ready, 1)
	assert.Same(t, ready, j.ready[0])
	assert.Same(t, ready, h.Ready())
	assert.Len(t, h.Mods(), 3)

	require.NoError(t, h.Close())
	assert.Equal(t, []string{"base", "addon"}, closed)
}

func TestHost_LoadTwice(t *testing.T) {
	a, _ := newTestAPI(t, api.DualMode)
	h := NewHost(a)

	_, err := h.Load(context.Background())
	require.NoError(t, err)

	_, err = h.Load(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyLoaded)
}

func TestHost_FailuresAreIsolated(t *testing.T) {
	a, j := newTestAPI(t, api.DualMode)

	writeMod(t, a.ModsDir(), "bad", ManifestTOML, "id = \"bad\"\nversion = \"1.0.0\"\n")
	writeMod(t, a.ModsDir(), "dependent", ManifestTOML, "id = \"dependent\"\nversion = \"1.0.0\"\ndependencies = [\"bad\"]\n")
	writeMod(t, a.ModsDir(), "good", ManifestTOML, "id = \"good\"\nversion = \"1.0.0\"\n")
	writeMod(t, a.ModsDir(), "broken", ManifestTOML, "id = \n")

	var closed []string
	scripts := ScriptLoaderFunc(func(m *Manifest) (Initializer, error) {
		s := &scriptStub{id: m.ID, closed: &closed}
		if m.ID == "bad" {
			s.err = errors.New("boom")
		}
		return s, nil
	})

	h := NewHost(a,
		WithBuiltin(
			Func("panicky", func(*api.API) error { panic("oh no") }),
			Func("failing", func(*api.API) error { return errors.New("nope") }),
			Func("fine", func(*api.API) error { return nil }),
		),
		WithScriptLoader(scripts),
	)
	ready, err := h.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"fine", "good"}, ready.Loaded)
	assert.Contains(t, ready.Failed["panicky"], "panicked")
	assert.Equal(t, "nope", ready.Failed["failing"])
	assert.Equal(t, "boom", ready.Failed["bad"])
	assert.Contains(t, ready.Failed["dependent"], "did not load")
	assert.Len(t, ready.Failed, 5)

	assert.Equal(t, []string{"builtin:fine", "script:good"}, j.loaded)
}

func TestHost_DuplicateBuiltin(t *testing.T) {
	a, _ := newTestAPI(t, api.DualMode)

	calls := 0
	core := func(*api.API) error {
		calls++
		return nil
	}
	h := NewHost(a, WithBuiltin(Func("core", core), Func("core", core)))

	ready, err := h.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"core"}, ready.Loaded)
	assert.Contains(t, ready.Failed["core"], "duplicate")
}

func TestHost_NoScriptLoader(t *testing.T) {
	a, _ := newTestAPI(t, api.DualMode)
	writeMod(t, a.ModsDir(), "lonely", ManifestTOML, "id = \"lonely\"\nversion = \"1.0.0\"\n")

	ready, err := NewHost(a).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ErrNoScriptLoader.Error(), ready.Failed["lonely"])
}

func TestHost_Cancelled(t *testing.T) {
	a, j := newTestAPI(t, api.DualMode)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHost(a).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, j.ready)
}

func TestHost_ReadyListenerCanQueryHost(t *testing.T) {
	a, _ := newTestAPI(t, api.DualMode)
	h := NewHost(a, WithBuiltin(Func("core", func(*api.API) error { return nil })))

	var seen []*Container
	require.NoError(t, a.Bus().Register(event.NewListenerSet(
		event.On(func(*events.ModsReadyEvent) { seen = h.Mods() }),
	)))

	_, err := h.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, "core", seen[0].ID)
}
