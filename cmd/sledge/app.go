package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/sledgemc/sledge/internal/api"
	"github.com/sledgemc/sledge/internal/config"
	"github.com/sledgemc/sledge/internal/event"
	"github.com/sledgemc/sledge/internal/event/events"
	"github.com/sledgemc/sledge/internal/metrics"
	"github.com/sledgemc/sledge/internal/mod"
	"github.com/sledgemc/sledge/internal/mod/lua"
	"github.com/sledgemc/sledge/internal/schedule"
)

// app wires the bus, the mod host and the optional services together.
type app struct {
	opts   options
	logger *slog.Logger

	collector *metrics.Collector
	bus       *event.Bus
	api       *api.API
	host      *mod.Host
	scheduler *schedule.Scheduler
	watcher   *config.Watcher
	metrics   *metrics.Server

	errs chan error

	mu        sync.Mutex
	cfg       *config.Config
	schedules map[string]string
}

func newApp(cfg *config.Config, opts options, logger *slog.Logger) (*app, error) {
	a := &app{
		opts:      opts,
		logger:    logger,
		cfg:       cfg,
		errs:      make(chan error, 1),
		schedules: make(map[string]string),
		collector: metrics.NewCollector(),
	}

	slow, err := cfg.SlowHandlerThreshold()
	if err != nil {
		return nil, err
	}
	a.bus = event.NewBus(cfg.BusName,
		event.WithLogger(logger),
		event.WithObserver(a.collector),
		event.WithSlowThreshold(slow),
	)

	a.api, err = api.NewInitializer().Init(api.Options{
		Environment:      cfg.HostEnvironment(),
		GameDir:          cfg.GameDir,
		MinecraftVersion: cfg.MinecraftVersion,
		LoaderVersion:    version,
		Bus:              a.bus,
	})
	if err != nil {
		return nil, err
	}

	catalog := event.NewCatalog()
	if err := events.Register(catalog); err != nil {
		return nil, fmt.Errorf("registering built-in events: %w", err)
	}

	a.host = mod.NewHost(a.api,
		mod.WithBuiltin(mod.Func("sledge", a.onInitialize)),
		mod.WithScriptLoader(lua.NewLoader(catalog, lua.WithLogger(logger))),
		mod.WithHostLogger(logger),
	)

	a.scheduler = schedule.New(a.bus, schedule.WithLogger(logger))
	return a, nil
}

// onInitialize is the built-in core mod. It records the final state of
// lifecycle events after every other mod had its say.
func (a *app) onInitialize(x *api.API) error {
	return x.Bus().Register(event.NewListenerSet(
		event.On(func(e *events.ShutdownEvent) {
			a.logger.Debug("shutdown requested", "reason", e.Reason, "forced", e.Forced, "cancelled", e.IsCancelled())
		}, event.WithPriority(event.PriorityMonitor), event.ReceiveCancelled(), event.WithLabel("sledge:ShutdownEvent")),
		event.On(func(e *events.ConfigChangedEvent) {
			if e.IsCancelled() {
				a.logger.Info("config reload suppressed by a mod", "path", e.Path)
			}
		}, event.WithPriority(event.PriorityMonitor), event.ReceiveCancelled(), event.WithLabel("sledge:ConfigChangedEvent")),
	))
}

// start loads mods and starts the services enabled in the config.
func (a *app) start(ctx context.Context) error {
	if _, err := a.host.Load(ctx); err != nil {
		return err
	}

	a.mu.Lock()
	cfg := a.cfg
	err := a.syncSchedules(cfg.Schedules)
	a.mu.Unlock()
	if err != nil {
		return err
	}
	a.scheduler.Start()

	if cfg.WatchConfig {
		if err := a.startWatcher(cfg); err != nil {
			return err
		}
	}

	if cfg.MetricsAddr != "" {
		a.metrics = metrics.NewServer(cfg.MetricsAddr, a.collector.Registry(), metrics.WithServerLogger(a.logger))
		go func() {
			if err := a.metrics.Start(ctx); err != nil {
				select {
				case a.errs <- err:
				default:
				}
			}
		}()
	}
	return nil
}

func (a *app) startWatcher(cfg *config.Config) error {
	debounce, err := cfg.Debounce()
	if err != nil {
		return err
	}

	a.watcher, err = config.NewWatcher(a.bus,
		config.WithDebounce(debounce),
		config.WithWatcherLogger(a.logger),
		config.OnChange(a.onConfigChanged),
	)
	if err != nil {
		return err
	}

	dirs := []string{a.api.ConfigDir()}
	if a.opts.ConfigPath != "" {
		dirs = append(dirs, filepath.Dir(a.opts.ConfigPath))
	}
	for _, dir := range dirs {
		if err := a.watcher.Watch(dir); err != nil {
			a.logger.Warn("cannot watch config directory", "dir", dir, "error", err)
		}
	}
	return nil
}

// onConfigChanged reloads the host config when its own file changed and no
// listener cancelled the event.
func (a *app) onConfigChanged(e *events.ConfigChangedEvent) {
	if e.IsCancelled() || a.opts.ConfigPath == "" || e.Op == "remove" {
		return
	}
	want, err := filepath.Abs(a.opts.ConfigPath)
	if err != nil || want != e.Path {
		return
	}
	if err := a.reload(); err != nil {
		a.logger.Error("config reload failed", "path", e.Path, "error", err)
	}
}

// reload re-reads the config file and applies the schedule changes.
// Other keys take effect on restart.
func (a *app) reload() error {
	cfg, err := readConfig(a.opts.ConfigPath, a.opts.Overrides)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.syncSchedules(cfg.Schedules); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger.Info("config reloaded", "path", a.opts.ConfigPath, "schedules", len(cfg.Schedules))
	return nil
}

// syncSchedules makes the scheduler match list. Caller holds a.mu.
func (a *app) syncSchedules(list []config.Schedule) error {
	want := make(map[string]string, len(list))
	for _, s := range list {
		want[s.Name] = s.Spec
	}

	for name, spec := range a.schedules {
		if want[name] != spec {
			a.scheduler.Remove(name)
			delete(a.schedules, name)
		}
	}

	var errs []error
	for _, s := range list {
		if _, ok := a.schedules[s.Name]; ok {
			continue
		}
		if err := a.scheduler.Add(s.Name, s.Spec); err != nil {
			errs = append(errs, err)
			continue
		}
		a.schedules[s.Name] = s.Spec
	}
	return errors.Join(errs...)
}

// requestShutdown posts a ShutdownEvent. It returns false when a listener
// vetoed a non-forced shutdown.
func (a *app) requestShutdown(reason string, forced bool) bool {
	e := event.Post(a.bus, &events.ShutdownEvent{Reason: reason, Forced: forced})
	if e.IsCancelled() && !forced {
		a.logger.Warn("shutdown vetoed by a mod, signal again to force", "reason", reason)
		return false
	}
	a.logger.Info("shutting down", "reason", reason, "forced", forced)
	return true
}

// close stops the services and releases the mods.
func (a *app) close() {
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			a.logger.Warn("closing config watcher", "error", err)
		}
	}
	<-a.scheduler.Stop().Done()
	if err := a.host.Close(); err != nil {
		a.logger.Warn("closing mods", "error", err)
	}
}
