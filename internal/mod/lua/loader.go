package lua

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/sledgemc/sledge/internal/event"
	"github.com/sledgemc/sledge/internal/logging"
	"github.com/sledgemc/sledge/internal/mod"
)

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger that scripts write to.
func WithLogger(l *slog.Logger) LoaderOption {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// WithStateOptions sets options applied to every script state.
func WithStateOptions(opts ...StateOption) LoaderOption {
	return func(ld *Loader) {
		ld.stateOpts = append(ld.stateOpts, opts...)
	}
}

// Loader creates Script initializers for the mod host.
type Loader struct {
	catalog   *event.Catalog
	logger    *slog.Logger
	stateOpts []StateOption
}

// NewLoader creates a loader resolving event names through catalog.
func NewLoader(catalog *event.Catalog, opts ...LoaderOption) *Loader {
	l := &Loader{
		catalog: catalog,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "scripts")
	return l
}

// Load implements mod.ScriptLoader.
func (l *Loader) Load(m *mod.Manifest) (mod.Initializer, error) {
	info, err := os.Stat(m.EntrypointPath())
	if err != nil {
		return nil, fmt.Errorf("entrypoint %s: %w", m.Entrypoint, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("entrypoint %s is a directory", m.Entrypoint)
	}
	return NewScript(m, l.catalog, l.logger, l.stateOpts...), nil
}

var _ mod.ScriptLoader = (*Loader)(nil)
