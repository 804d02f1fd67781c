// Package config loads the Sledge host configuration.
//
// The configuration is read from sledge.toml or sledge.yaml. Every key has a
// default, so a missing file is not an error. Command line flags are applied
// on top of the file with Set.
//
//	game_dir          = "."
//	environment       = "server"
//	minecraft_version = "1.21.1"
//	log_level         = "info"
//	log_format        = "text"
//	metrics_addr      = ":9464"
//	bus_name          = "default"
//	watch_config      = true
//	watch_debounce    = "250ms"
//	slow_handler      = "50ms"
//
//	[[schedules]]
//	name = "autosave"
//	spec = "0 */5 * * * *"
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sledgemc/sledge/internal/api"
	"github.com/sledgemc/sledge/internal/event"
	"github.com/sledgemc/sledge/internal/logging"
)

// Default values.
const (
	DefaultGameDir          = "."
	DefaultMinecraftVersion = "1.21.1"
	DefaultLogLevel         = "info"
	DefaultWatchDebounce    = 250 * time.Millisecond
)

// Schedule is a named cron schedule.
type Schedule struct {
	Name string `toml:"name" yaml:"name"`
	Spec string `toml:"spec" yaml:"spec"`
}

// Config is the host configuration.
type Config struct {
	GameDir          string     `toml:"game_dir" yaml:"game_dir"`
	Environment      string     `toml:"environment" yaml:"environment"`
	MinecraftVersion string     `toml:"minecraft_version" yaml:"minecraft_version"`
	LogLevel         string     `toml:"log_level" yaml:"log_level"`
	LogFormat        string     `toml:"log_format" yaml:"log_format"`
	MetricsAddr      string     `toml:"metrics_addr" yaml:"metrics_addr"`
	BusName          string     `toml:"bus_name" yaml:"bus_name"`
	WatchConfig      bool       `toml:"watch_config" yaml:"watch_config"`
	WatchDebounce    string     `toml:"watch_debounce" yaml:"watch_debounce"`
	SlowHandler      string     `toml:"slow_handler" yaml:"slow_handler"`
	Schedules        []Schedule `toml:"schedules" yaml:"schedules"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		GameDir:          DefaultGameDir,
		Environment:      api.DualMode.String(),
		MinecraftVersion: DefaultMinecraftVersion,
		LogLevel:         DefaultLogLevel,
		LogFormat:        string(logging.FormatText),
		BusName:          event.DefaultBusName,
		WatchDebounce:    DefaultWatchDebounce.String(),
	}
}

// Keys returns the scalar keys accepted by Set.
func Keys() []string {
	return []string{
		"game_dir",
		"environment",
		"minecraft_version",
		"log_level",
		"log_format",
		"metrics_addr",
		"bus_name",
		"watch_config",
		"watch_debounce",
		"slow_handler",
	}
}

// Set assigns a scalar key from its string form.
func (c *Config) Set(key, value string) error {
	switch key {
	case "game_dir":
		c.GameDir = value
	case "environment":
		c.Environment = value
	case "minecraft_version":
		c.MinecraftVersion = value
	case "log_level":
		c.LogLevel = value
	case "log_format":
		c.LogFormat = value
	case "metrics_addr":
		c.MetricsAddr = value
	case "bus_name":
		c.BusName = value
	case "watch_config":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return &ValidationError{Key: key, Value: value, Message: "must be a boolean"}
		}
		c.WatchConfig = b
	case "watch_debounce":
		c.WatchDebounce = value
	case "slow_handler":
		c.SlowHandler = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return nil
}

// Validate checks every key and reports the first invalid one.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.GameDir) == "" {
		return &ValidationError{Key: "game_dir", Value: c.GameDir, Message: "must not be empty"}
	}
	if _, err := api.ParseEnvironment(c.Environment); err != nil {
		return &ValidationError{Key: "environment", Value: c.Environment, Message: "must be client, server or dual"}
	}
	if !validLevel(c.LogLevel) {
		return &ValidationError{Key: "log_level", Value: c.LogLevel, Message: "must be trace, debug, info, warn or error"}
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		return &ValidationError{Key: "log_format", Value: c.LogFormat, Message: "must be text or json"}
	}
	if strings.TrimSpace(c.BusName) == "" {
		return &ValidationError{Key: "bus_name", Value: c.BusName, Message: "must not be empty"}
	}
	if _, err := c.Debounce(); err != nil {
		return &ValidationError{Key: "watch_debounce", Value: c.WatchDebounce, Message: "must be a positive duration"}
	}
	if _, err := c.SlowHandlerThreshold(); err != nil {
		return &ValidationError{Key: "slow_handler", Value: c.SlowHandler, Message: "must be a duration, zero or empty to disable"}
	}

	seen := make(map[string]bool, len(c.Schedules))
	for i, s := range c.Schedules {
		if strings.TrimSpace(s.Name) == "" {
			return &ValidationError{Key: fmt.Sprintf("schedules[%d].name", i), Value: s.Name, Message: "must not be empty"}
		}
		if seen[s.Name] {
			return &ValidationError{Key: fmt.Sprintf("schedules[%d].name", i), Value: s.Name, Message: "is duplicated"}
		}
		seen[s.Name] = true
		if strings.TrimSpace(s.Spec) == "" {
			return &ValidationError{Key: fmt.Sprintf("schedules[%d].spec", i), Value: s.Spec, Message: "must not be empty"}
		}
	}
	return nil
}

// HostEnvironment returns the parsed environment. Call Validate first.
func (c *Config) HostEnvironment() api.Environment {
	env, _ := api.ParseEnvironment(c.Environment)
	return env
}

// Format returns the parsed log format. Call Validate first.
func (c *Config) Format() logging.Format {
	f, _ := logging.ParseFormat(c.LogFormat)
	return f
}

// Debounce returns the parsed watcher debounce delay.
func (c *Config) Debounce() (time.Duration, error) {
	if c.WatchDebounce == "" {
		return DefaultWatchDebounce, nil
	}
	d, err := time.ParseDuration(c.WatchDebounce)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("non-positive duration %s", d)
	}
	return d, nil
}

// SlowHandlerThreshold returns the duration above which a listener is logged
// as slow. Zero means disabled.
func (c *Config) SlowHandlerThreshold() (time.Duration, error) {
	if c.SlowHandler == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.SlowHandler)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", d)
	}
	return d, nil
}

func validLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error":
		return true
	default:
		return false
	}
}
