// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultShutdownTimeout bounds the whole shutdown sequence.
const DefaultShutdownTimeout = 10 * time.Second

// ShutdownHook is a function that performs cleanup during graceful shutdown.
// Hooks are executed in reverse registration order (LIFO).
type ShutdownHook func(ctx context.Context) error

// Manager manages the daemon lifecycle: the event loop, the ops server and
// ordered resource release.
type Manager interface {
	// Start runs the event loop and blocks until ctx is cancelled or the loop fails
	Start(ctx context.Context) error

	// Shutdown stops the loop and the ops server and runs the shutdown hooks
	Shutdown(ctx context.Context) error

	// RegisterShutdownHook registers a function to be called during shutdown
	RegisterShutdownHook(name string, hook ShutdownHook)
}

type manager struct {
	deps            Deps
	shutdownTimeout time.Duration

	opsServer *http.Server
	opsAddr   string

	loopCancel context.CancelFunc
	loopDone   chan struct{}

	shutdownHooks []namedHook

	started  bool
	stopping bool
	mu       sync.Mutex

	logger zerolog.Logger
}

type namedHook struct {
	name string
	hook ShutdownHook
}

// NewManager creates a new daemon manager with the given dependencies.
func NewManager(deps Deps) (Manager, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	return &manager{
		deps:            deps,
		shutdownTimeout: DefaultShutdownTimeout,
		logger:          deps.Logger.With().Str("component", "manager").Logger(),
		shutdownHooks:   make([]namedHook, 0),
	}, nil
}

// Start starts the ops server and the event loop and blocks until ctx is
// cancelled or one of them fails. Either way the shutdown sequence runs
// before Start returns.
func (m *manager) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("start context is nil")
	}

	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("manager already started")
	}
	m.started = true
	loopCtx, cancel := context.WithCancel(ctx)
	m.loopCancel = cancel
	m.loopDone = make(chan struct{})
	m.mu.Unlock()

	m.logger.Info().
		Str("ops_listen", m.deps.OpsAddr).
		Msg("Starting daemon manager")

	errChan := make(chan error, 2)

	shutdown := func() error {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.shutdownTimeout)
		defer cancel()
		return m.Shutdown(shutdownCtx)
	}

	fail := func(err error) error {
		m.logger.Error().Err(err).Msg("Component failed, initiating shutdown")
		if shutdownErr := shutdown(); shutdownErr != nil {
			return fmt.Errorf("component failure and shutdown failure: %w", errors.Join(err, shutdownErr))
		}
		return err
	}

	if m.deps.OpsHandler != nil && m.deps.OpsAddr != "" {
		if err := m.startOpsServer(errChan); err != nil {
			close(m.loopDone)
			return fail(fmt.Errorf("failed to start ops server: %w", err))
		}
	}

	go func() {
		defer close(m.loopDone)
		if err := m.deps.Loop.Run(loopCtx); err != nil {
			errChan <- fmt.Errorf("event loop: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		return fail(err)
	case <-m.loopDone:
		// The loop reports its error before it is done.
		select {
		case err := <-errChan:
			return fail(err)
		default:
		}
		return shutdown()
	case <-ctx.Done():
		m.logger.Info().Msg("Shutdown signal received")
		return shutdown()
	}
}

// startOpsServer binds the listener synchronously so a bad address fails
// startup instead of surfacing later.
func (m *manager) startOpsServer(errChan chan<- error) error {
	ln, err := net.Listen("tcp", m.deps.OpsAddr)
	if err != nil {
		return err
	}
	addr := ln.Addr().String()
	srv := &http.Server{
		Handler:           m.deps.OpsHandler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	m.mu.Lock()
	m.opsAddr = addr
	m.opsServer = srv
	m.mu.Unlock()

	go func() {
		m.logger.Info().
			Str("addr", addr).
			Msg("Ops server listening")

		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error().
				Err(err).
				Str("event", "ops.server.failed").
				Msg("Ops server failed")
			errChan <- fmt.Errorf("ops server: %w", err)
		}
	}()
	return nil
}

func (m *manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("shutdown context is nil")
	}

	m.mu.Lock()
	if m.stopping {
		m.mu.Unlock()
		return nil
	}
	if !m.started {
		m.mu.Unlock()
		return ErrManagerNotStarted
	}
	m.stopping = true
	hooks := append([]namedHook(nil), m.shutdownHooks...)
	opsServer := m.opsServer
	m.mu.Unlock()

	m.logger.Info().Msg("Shutting down daemon manager")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.shutdownTimeout)
	defer cancel()

	var errs []error

	// The loop owns every template resource; it must be idle before the
	// hooks release them.
	m.loopCancel()
	select {
	case <-m.loopDone:
	case <-shutdownCtx.Done():
		errs = append(errs, fmt.Errorf("event loop did not stop: %w", shutdownCtx.Err()))
	}

	if opsServer != nil {
		m.logger.Debug().Msg("Shutting down ops server")
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("ops server shutdown: %w", err))
		}
	}

	m.logger.Debug().Int("hooks", len(hooks)).Msg("Executing shutdown hooks")
	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]
		hookStart := time.Now()
		if err := hook.hook(shutdownCtx); err != nil {
			m.logger.Error().
				Err(err).
				Str("hook", hook.name).
				Dur("duration", time.Since(hookStart)).
				Msg("Shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", hook.name, err))
		} else {
			m.logger.Debug().
				Str("hook", hook.name).
				Dur("duration", time.Since(hookStart)).
				Msg("Shutdown hook completed")
		}
	}

	if len(errs) > 0 {
		m.logger.Error().
			Int("error_count", len(errs)).
			Msg("Shutdown completed with errors")
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	m.logger.Info().Msg("Daemon manager stopped cleanly")
	return nil
}

// OpsAddr returns the bound ops server address, empty until Start has bound it.
func (m *manager) OpsAddr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opsAddr
}

// RegisterShutdownHook registers a cleanup function to be called during shutdown.
// Hooks are executed in reverse registration order (LIFO).
func (m *manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.shutdownHooks = append(m.shutdownHooks, namedHook{
		name: name,
		hook: hook,
	})
	m.logger.Debug().Str("hook", name).Msg("Registered shutdown hook")
}
