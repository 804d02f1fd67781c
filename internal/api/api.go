// Package api provides the context object the host hands to every mod.
//
// The API is built once by an Initializer owned by the host's bootstrap code
// and passed explicitly to mod initializers; there is no package-level
// instance.
package api

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sledgemc/sledge/internal/event"
)

// Options configures the API.
type Options struct {
	// Environment is the side the host runs on.
	Environment Environment

	// GameDir is the game root; mods and config live below it.
	GameDir string

	// MinecraftVersion is the game version the host was started for.
	MinecraftVersion string

	// LoaderVersion is the Sledge version.
	LoaderVersion string

	// Bus is the process-wide event bus.
	Bus *event.Bus
}

// API exposes paths, environment and the event bus to mods.
type API struct {
	environment      Environment
	gameDir          string
	modsDir          string
	configDir        string
	minecraftVersion string
	loaderVersion    string
	bus              *event.Bus

	mu   sync.RWMutex
	mods map[string]any
}

// Initializer builds the API exactly once.
type Initializer struct {
	mu  sync.Mutex
	api *API
}

// NewInitializer creates an initializer for the host's bootstrap code.
func NewInitializer() *Initializer {
	return &Initializer{}
}

// Init builds the API. A second call fails with ErrAlreadyInitialized.
func (i *Initializer) Init(opts Options) (*API, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.api != nil {
		return nil, illegalState("init api", ErrAlreadyInitialized)
	}

	a, err := newAPI(opts)
	if err != nil {
		return nil, err
	}
	i.api = a
	return a, nil
}

// API returns the initialized API or ErrNotInitialized.
func (i *Initializer) API() (*API, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.api == nil {
		return nil, illegalState("get api", ErrNotInitialized)
	}
	return i.api, nil
}

// IsInitialized reports whether Init succeeded.
func (i *Initializer) IsInitialized() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.api != nil
}

func newAPI(opts Options) (*API, error) {
	if opts.Bus == nil {
		return nil, fmt.Errorf("%w: bus is required", ErrInvalidOptions)
	}
	if opts.GameDir == "" {
		return nil, fmt.Errorf("%w: game dir is required", ErrInvalidOptions)
	}
	if _, err := opts.Environment.MarshalText(); err != nil {
		return nil, err
	}

	gameDir := filepath.Clean(opts.GameDir)
	return &API{
		environment:      opts.Environment,
		gameDir:          gameDir,
		modsDir:          filepath.Join(gameDir, "mods"),
		configDir:        filepath.Join(gameDir, "config"),
		minecraftVersion: opts.MinecraftVersion,
		loaderVersion:    opts.LoaderVersion,
		bus:              opts.Bus,
		mods:             make(map[string]any),
	}, nil
}

// Environment returns the side the host runs on.
func (a *API) Environment() Environment {
	return a.environment
}

// IsClient reports whether the host is a client.
func (a *API) IsClient() bool {
	return a.environment == ClientMode
}

// IsServer reports whether the host is a dedicated server.
func (a *API) IsServer() bool {
	return a.environment == ServerMode
}

// GameDir returns the game root directory.
func (a *API) GameDir() string {
	return a.gameDir
}

// ModsDir returns <game dir>/mods.
func (a *API) ModsDir() string {
	return a.modsDir
}

// ConfigDir returns <game dir>/config.
func (a *API) ConfigDir() string {
	return a.configDir
}

// MinecraftVersion returns the game version.
func (a *API) MinecraftVersion() string {
	return a.minecraftVersion
}

// LoaderVersion returns the Sledge version.
func (a *API) LoaderVersion() string {
	return a.loaderVersion
}

// Bus returns the event bus.
func (a *API) Bus() *event.Bus {
	return a.bus
}

// RegisterMod records a loaded mod. It is called by the mod host.
func (a *API) RegisterMod(id string, container any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mods[id] = container
}

// IsModLoaded reports whether a mod with the given id was loaded.
func (a *API) IsModLoaded(id string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.mods[id]
	return ok
}

// Mod returns the container registered for id.
func (a *API) Mod(id string) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	m, ok := a.mods[id]
	return m, ok
}

// ModIDs returns the ids of all loaded mods in sorted order.
func (a *API) ModIDs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	ids := make([]string, 0, len(a.mods))
	for id := range a.mods {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
