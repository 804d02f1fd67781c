package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sledgemc/sledge/internal/config"
	"github.com/sledgemc/sledge/internal/event/events"
	"github.com/sledgemc/sledge/internal/logging"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// newTestApp builds and starts an app for a game dir.
func newTestApp(t *testing.T, opts options) *app {
	t.Helper()
	cfg, err := loadConfig(&opts)
	require.NoError(t, err)

	a, err := newApp(cfg, opts, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(a.close)
	require.NoError(t, a.start(t.Context()))
	return a
}

func TestParseFlags(t *testing.T) {
	var stdout, stderr bytes.Buffer
	opts, err := parseFlags([]string{
		"-c", "server.toml",
		"-log-level", "debug",
		"-watch-config", "true",
		"-environment", "server",
	}, &stdout, &stderr)
	require.NoError(t, err)

	assert.Equal(t, "server.toml", opts.ConfigPath)
	assert.Equal(t, map[string]string{
		"log_level":    "debug",
		"watch_config": "true",
		"environment":  "server",
	}, opts.Overrides)
}

func TestParseFlags_Errors(t *testing.T) {
	var stdout, stderr bytes.Buffer

	_, err := parseFlags([]string{"extra"}, &stdout, &stderr)
	assert.ErrorContains(t, err, "unexpected arguments")

	_, err = parseFlags([]string{"-no-such-flag"}, &stdout, &stderr)
	assert.Error(t, err)

	_, err = parseFlags([]string{"-version"}, &stdout, &stderr)
	assert.ErrorIs(t, err, errHelp)
	assert.Contains(t, stdout.String(), "Sledge dev")
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, run([]string{"-v"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Commit:")
}

func TestRun_InvalidConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{"-environment", "moon"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "environment")
}

func TestLoadConfig_Overrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sledge.toml")
	writeFile(t, path, "log_level = \"warn\"\nenvironment = \"client\"\n")

	opts := options{ConfigPath: path, Overrides: map[string]string{"environment": "server"}}
	cfg, err := loadConfig(&opts)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "server", cfg.Environment)

	opts.Overrides["watch_config"] = "maybe"
	_, err = loadConfig(&opts)
	var verr *config.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestApp_ShutdownVeto(t *testing.T) {
	game := t.TempDir()
	writeFile(t, filepath.Join(game, "mods", "veto", "sledge.mod.toml"), "id = \"veto\"\nversion = \"1.0.0\"\n")
	writeFile(t, filepath.Join(game, "mods", "veto", "main.lua"), `
sledge.on("ShutdownEvent", function(e)
  if not e:get("forced") then
    e:cancel()
  end
end)
`)

	a := newTestApp(t, options{Overrides: map[string]string{"game_dir": game}})

	assert.True(t, a.api.IsModLoaded("sledge"))
	assert.True(t, a.api.IsModLoaded("veto"))
	assert.Equal(t, []string{"sledge", "veto"}, a.host.Ready().Loaded)

	assert.False(t, a.requestShutdown("signal: interrupt", false))
	assert.True(t, a.requestShutdown("signal: interrupt", true))
}

func TestApp_ShutdownWithoutMods(t *testing.T) {
	a := newTestApp(t, options{Overrides: map[string]string{"game_dir": t.TempDir()}})
	assert.True(t, a.requestShutdown("test", false))
}

func TestApp_ReloadSchedules(t *testing.T) {
	game := t.TempDir()
	path := filepath.Join(game, "sledge.toml")
	writeFile(t, path, `
[[schedules]]
name = "autosave"
spec = "@every 1h"

[[schedules]]
name = "backup"
spec = "@daily"
`)

	a := newTestApp(t, options{ConfigPath: path, Overrides: map[string]string{"game_dir": game}})
	assert.Equal(t, []string{"autosave", "backup"}, a.scheduler.Names())

	writeFile(t, path, `
[[schedules]]
name = "autosave"
spec = "@every 30m"

[[schedules]]
name = "restart"
spec = "0 0 4 * * *"
`)
	require.NoError(t, a.reload())
	assert.Equal(t, []string{"autosave", "restart"}, a.scheduler.Names())
	assert.Equal(t, "@every 30m", a.schedules["autosave"])

	writeFile(t, path, "schedules = [{ name = \"bad\", spec = \"whenever\" }]\n")
	assert.Error(t, a.reload())
}

func TestApp_ConfigChangeIgnored(t *testing.T) {
	game := t.TempDir()
	path := filepath.Join(game, "sledge.toml")
	writeFile(t, path, "schedules = [{ name = \"a\", spec = \"@hourly\" }]\n")

	a := newTestApp(t, options{ConfigPath: path, Overrides: map[string]string{"game_dir": game}})
	writeFile(t, path, "schedules = [{ name = \"b\", spec = \"@hourly\" }]\n")

	abs, err := filepath.Abs(path)
	require.NoError(t, err)

	cancelled := &events.ConfigChangedEvent{Path: abs, Op: "write"}
	require.NoError(t, cancelled.Cancel())
	a.onConfigChanged(cancelled)
	a.onConfigChanged(&events.ConfigChangedEvent{Path: filepath.Join(game, "other.toml"), Op: "write"})
	assert.Equal(t, []string{"a"}, a.scheduler.Names())

	a.onConfigChanged(&events.ConfigChangedEvent{Path: abs, Op: "write"})
	assert.Equal(t, []string{"b"}, a.scheduler.Names())
}

func TestApp_WatchesConfigFile(t *testing.T) {
	game := t.TempDir()
	path := filepath.Join(game, "config", "sledge.toml")
	writeFile(t, path, "watch_config = true\nwatch_debounce = \"20ms\"\n")

	a := newTestApp(t, options{ConfigPath: path, Overrides: map[string]string{"game_dir": game}})
	require.NotNil(t, a.watcher)
	assert.Empty(t, a.scheduler.Names())

	writeFile(t, path, "watch_config = true\nwatch_debounce = \"20ms\"\nschedules = [{ name = \"tick\", spec = \"@every 1h\" }]\n")

	require.Eventually(t, func() bool {
		names := a.scheduler.Names()
		return len(names) == 1 && names[0] == "tick"
	}, 3*time.Second, 20*time.Millisecond)
}
