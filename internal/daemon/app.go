// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/templatesvc/internal/watch"
	"github.com/rs/zerolog"
)

// App owns the long-lived runtime lifecycle (template file watcher) and
// delegates the event loop and ops server to Manager.
type App struct {
	logger  zerolog.Logger
	manager Manager
	watcher *watch.Sources
}

// NewApp creates a new App orchestrator. watcher may be nil.
func NewApp(logger zerolog.Logger, manager Manager, watcher *watch.Sources) *App {
	return &App{
		logger:  logger,
		manager: manager,
		watcher: watcher,
	}
}

// Manager returns the lifecycle manager.
func (a *App) Manager() Manager { return a.manager }

// Run blocks until ctx is cancelled or a fatal error occurs. Cancellation of
// ctx is reported as ErrTerminated once shutdown has completed.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	if a.watcher != nil {
		g.Go(func() error {
			if err := a.watcher.Run(gctx); err != nil {
				a.logger.Warn().
					Err(err).
					Str("event", "watch.failed").
					Msg("template watcher stopped")
			}
			return nil
		})
	}

	// Main loop lifecycle. The watcher stops with it.
	g.Go(func() error {
		defer cancel()
		return a.manager.Start(gctx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if ctx.Err() != nil {
		a.logger.Info().Str("event", "daemon.terminated").Msg("terminated by signal")
		return ErrTerminated
	}
	return nil
}
