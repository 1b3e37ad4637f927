// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

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

	"github.com/ManuGH/templatesvc/internal/config"
	"github.com/ManuGH/templatesvc/internal/daemon"
	"github.com/ManuGH/templatesvc/internal/log"
	"github.com/ManuGH/templatesvc/internal/version"
	"github.com/rs/zerolog"
)

// cliOptions are the process-level flags.
type cliOptions struct {
	configPath  string
	bufferSize  int
	bufferSet   bool
	verbose     bool
	showVersion bool
}

const usageText = `Usage:
  templatesvc [-f config.yaml] [-s buffer-size] [-v]
  templatesvc config validate [-f config.yaml]
  templatesvc config dump [-f config.yaml] [--format=yaml|json]

Renders template files whenever one of their trigger variables changes.

Flags:
`

func main() {
	if len(os.Args) > 1 && os.Args[1] == "config" {
		os.Exit(runConfigCLI(os.Args[2:], os.Stdout, os.Stderr))
	}
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// parseFlags parses the daemon command line. flag.ErrHelp is returned for -h.
func parseFlags(args []string, stderr io.Writer) (cliOptions, error) {
	var opts cliOptions

	fs := flag.NewFlagSet("templatesvc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usageText)
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.configPath, "f", "", "path to config file (YAML or JSON)")
	fs.IntVar(&opts.bufferSize, "s", 0, "render buffer size in bytes (overrides config)")
	fs.BoolVar(&opts.verbose, "v", false, "verbose (debug) logging")
	fs.BoolVar(&opts.showVersion, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return opts, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "s" {
			opts.bufferSet = true
		}
	})
	if opts.bufferSet && opts.bufferSize <= 0 {
		return opts, fmt.Errorf("invalid buffer size %d: must be positive", opts.bufferSize)
	}
	return opts, nil
}

// loadConfig loads the configuration and applies command line overrides.
func loadConfig(opts cliOptions) (config.Config, error) {
	cfg, err := config.NewLoader(strings.TrimSpace(opts.configPath), version.Version).Load()
	if err != nil {
		return config.Config{}, err
	}
	if opts.bufferSet {
		cfg.Render.BufferSize = opts.bufferSize
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// run is the daemon entry point. It returns the process exit status: 0 for
// -h and -version, 1 after a signal or a fatal error, 2 for usage errors.
func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if opts.showVersion {
		fmt.Fprintln(stdout, version.String())
		return 0
	}

	// Safe defaults until config is loaded
	level := "info"
	if opts.verbose {
		level = "debug"
	}
	log.Configure(log.Config{
		Level:   level,
		Service: "templatesvc",
		Version: version.Version,
	})
	logger := log.WithComponent("main")

	cfg, err := loadConfig(opts)
	if err != nil {
		logger.Error().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", opts.configPath).
			Msg("failed to load configuration")
		return 1
	}

	log.Configure(log.Config{
		Level:   cfg.Log.Level,
		Service: "templatesvc",
		Version: cfg.Version,
	})
	logger = log.Derive(func(c *zerolog.Context) {
		*c = c.Str(log.FieldComponent, "main").Str("config_path", opts.configPath)
	})

	if len(cfg.Templates) == 0 {
		logger.Warn().
			Str("event", "config.empty").
			Msg("no templates configured; waiting for signals only")
	}
	logger.Info().
		Str("event", "config.loaded").
		Str("path", opts.configPath).
		Int("templates", len(cfg.Templates)).
		Int("buffer_size", cfg.Render.BufferSize).
		Str("store", cfg.Store.Kind).
		Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := daemon.Bootstrap(ctx, cfg, daemon.Options{})
	if err != nil {
		logger.Error().
			Err(err).
			Str("event", "startup.failed").
			Msg("failed to start")
		return 1
	}

	if err := app.Run(ctx); err != nil {
		if errors.Is(err, daemon.ErrTerminated) {
			logger.Info().Str("event", "shutdown.signal").Msg("stopped by signal")
			return 1
		}
		logger.Error().Err(err).Str("event", "daemon.failed").Msg("daemon failed")
		return 1
	}
	return 0
}
