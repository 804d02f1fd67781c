// Package main is the entry point for the Sledge mod host.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sledgemc/sledge/internal/config"
	"github.com/sledgemc/sledge/internal/logging"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// errHelp is returned by parseFlags after printing usage or version.
var errHelp = errors.New("help requested")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stdout, stderr)
	if err != nil {
		if errors.Is(err, errHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	cfg, err := loadConfig(&opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.Format(), stderr)
	logger.Info("starting sledge", "version", version, "commit", commit, "environment", cfg.Environment)

	a, err := newApp(cfg, opts, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return 1
	}
	defer a.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.start(ctx); err != nil {
		logger.Error("failed to start", "error", err)
		return 1
	}

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	vetoed := false
	for {
		select {
		case sig := <-signals:
			if a.requestShutdown("signal: "+sig.String(), vetoed) {
				return 0
			}
			vetoed = true
		case err := <-a.errs:
			logger.Error("service failed", "error", err)
			return 1
		}
	}
}

// options holds command line settings.
type options struct {
	ConfigPath string
	Overrides  map[string]string
}

func parseFlags(args []string, stdout, stderr io.Writer) (options, error) {
	opts := options{Overrides: make(map[string]string)}
	var showVersion bool

	fs := flag.NewFlagSet("sledge", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file")
	fs.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	fs.BoolVar(&showVersion, "version", false, "Show version information")
	fs.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	// Each config key doubles as a flag, e.g. -log-level debug.
	keys := make(map[string]string)
	for _, key := range config.Keys() {
		name := strings.ReplaceAll(key, "_", "-")
		keys[name] = key
		fs.String(name, "", fmt.Sprintf("Override %s from the config file", key))
	}

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Sledge - event-driven mod host\n\n")
		fmt.Fprintf(stderr, "Usage: sledge [options]\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  sledge                          Load ./sledge.toml if present\n")
		fmt.Fprintf(stderr, "  sledge -c server.yaml           Use a specific config file\n")
		fmt.Fprintf(stderr, "  sledge -environment server      Run as a dedicated server\n")
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return opts, errHelp
		}
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	if showVersion {
		fmt.Fprintf(stdout, "Sledge %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return opts, errHelp
	}

	fs.Visit(func(f *flag.Flag) {
		if key, ok := keys[f.Name]; ok {
			opts.Overrides[key] = f.Value.String()
		}
	})
	return opts, nil
}

// loadConfig reads the config file and applies flag overrides.
// The resolved file path is stored back into opts for reloads.
func loadConfig(opts *options) (*config.Config, error) {
	if opts.ConfigPath == "" {
		opts.ConfigPath = config.Find(".")
	}
	return readConfig(opts.ConfigPath, opts.Overrides)
}

func readConfig(path string, overrides map[string]string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	for key, value := range overrides {
		if err := cfg.Set(key, value); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
