// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon wires the configured components together and manages the
// process lifecycle.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/templatesvc/internal/config"
	"github.com/ManuGH/templatesvc/internal/delivery"
	"github.com/ManuGH/templatesvc/internal/dispatch"
	"github.com/ManuGH/templatesvc/internal/health"
	"github.com/ManuGH/templatesvc/internal/log"
	"github.com/ManuGH/templatesvc/internal/mq"
	"github.com/ManuGH/templatesvc/internal/renderbuf"
	"github.com/ManuGH/templatesvc/internal/subscription"
	"github.com/ManuGH/templatesvc/internal/telemetry"
	"github.com/ManuGH/templatesvc/internal/templates"
	"github.com/ManuGH/templatesvc/internal/varstore"
	"github.com/ManuGH/templatesvc/internal/watch"
	"github.com/rs/zerolog"
)

// Options overrides components Bootstrap would otherwise build from config.
type Options struct {
	// Store replaces the configured variable store. Bootstrap takes ownership
	// and closes it on shutdown.
	Store varstore.Store
	// Transport replaces the configured message queue transport.
	Transport mq.Transport
	// Logger defaults to the "daemon" component logger.
	Logger *zerolog.Logger
}

// Bootstrap opens every resource described by cfg and returns an App ready
// to run. Only a store that cannot be opened is fatal; template, buffer and
// subscription problems are logged and the affected templates stay inert.
func Bootstrap(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := log.WithComponent("daemon")
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	// Resources opened so far, released in reverse order if a later step fails.
	var cleanup []func(context.Context) error
	fail := func(err error) (*App, error) {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultShutdownTimeout)
		defer cancel()
		var errs []error
		for i := len(cleanup) - 1; i >= 0; i-- {
			errs = append(errs, cleanup[i](closeCtx))
		}
		if cerr := errors.Join(errs...); cerr != nil {
			logger.Warn().Err(cerr).Msg("cleanup after failed bootstrap")
		}
		return nil, err
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "templatesvc",
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Telemetry initialization failed, continuing without tracing")
		tp = &telemetry.Provider{}
	}
	cleanup = append(cleanup, tp.Shutdown)

	store := opts.Store
	if store == nil {
		store, err = openStore(ctx, cfg, logger)
		if err != nil {
			return fail(fmt.Errorf("open variable store: %w", err))
		}
	}
	cleanup = append(cleanup, func(context.Context) error { return store.Close() })

	bufName := cfg.Render.BufferName
	if bufName == "" {
		bufName = fmt.Sprintf("templatesvc_%d", time.Now().Unix())
	}
	buf, err := renderbuf.Create(bufName, cfg.Render.BufferSize)
	if err != nil {
		return fail(fmt.Errorf("create render buffer: %w", err))
	}
	cleanup = append(cleanup, func(context.Context) error { return buf.Close() })

	registry, err := templates.Build(cfg.Templates)
	if err != nil {
		return fail(fmt.Errorf("build templates: %w", err))
	}
	cleanup = append(cleanup, func(context.Context) error { return registry.Close() })
	logger.Info().
		Int("templates", registry.Len()).
		Int("buffer_size", buf.Size()).
		Str("buffer", buf.Name()).
		Msg("templates loaded")

	report, err := subscription.RegisterAll(ctx, store, registry.Triggers(), logger)
	if err != nil {
		logger.Warn().
			Err(err).
			Int("subscribed", report.Subscribed).
			Strs("failed", report.Failed).
			Msg("some triggers could not be subscribed")
	}

	transport := opts.Transport
	if transport == nil {
		transport = newTransport(cfg, store, logger)
	}
	envelope, err := mq.NewEnvelope(cfg.Queue.Envelope, cfg.Queue.Source)
	if err != nil {
		return fail(fmt.Errorf("queue envelope: %w", err))
	}

	deliverer := delivery.NewService(
		&delivery.Stream{Lookup: store, Logger: log.WithComponent("delivery.fd")},
		&delivery.Queue{
			Lookup:    store,
			Buffer:    buf,
			Transport: transport,
			Envelope:  envelope,
			Logger:    log.WithComponent("delivery.mq"),
		},
	)

	var watcher *watch.Sources
	var changes <-chan string
	if cfg.WatchTemplates {
		watcher, err = watch.NewSources(registry.Sources(), 0)
		if err != nil {
			logger.Warn().Err(err).Str("event", "watch.start_failed").Msg("template watcher disabled")
			watcher = nil
		} else {
			changes = watcher.Changes()
			cleanup = append(cleanup, func(context.Context) error { return watcher.Close() })
		}
	}

	dispatcher, err := dispatch.New(dispatch.Options{
		Registry:  registry,
		Store:     store,
		Deliverer: deliverer,
		Sources:   changes,
		Logger:    log.WithComponent("dispatch"),
	})
	if err != nil {
		return fail(fmt.Errorf("create dispatcher: %w", err))
	}

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewStoreChecker(store, 2*time.Second))
	hm.RegisterChecker(health.NewTemplatesChecker(registry.Sources))
	hm.RegisterChecker(health.NewSubscriptionChecker(report.Failed))
	health.PerformStartupChecks(cfg)

	mgr, err := NewManager(Deps{
		Logger:     logger,
		Loop:       dispatcher,
		OpsHandler: NewOpsHandler(hm, cfg.HTTP.RateLimit),
		OpsAddr:    cfg.HTTP.ListenAddr,
	})
	if err != nil {
		return fail(err)
	}

	// LIFO: templates close first, telemetry flushes last.
	mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	mgr.RegisterShutdownHook("variable_store", func(context.Context) error { return store.Close() })
	mgr.RegisterShutdownHook("render_buffer", func(context.Context) error { return buf.Close() })
	mgr.RegisterShutdownHook("templates", func(context.Context) error { return registry.Close() })

	return NewApp(logger, mgr, watcher), nil
}

func openStore(ctx context.Context, cfg config.Config, logger zerolog.Logger) (varstore.Store, error) {
	switch cfg.Store.Kind {
	case "memory":
		logger.Warn().Msg("using in-process variable store; no external writer can trigger templates")
		return varstore.NewMemory(256), nil
	default:
		rs, err := varstore.OpenRedis(ctx, varstore.RedisConfig{
			Addr:                   cfg.Redis.Addr,
			Password:               cfg.Redis.Password,
			DB:                     cfg.Redis.DB,
			ConfigureNotifications: cfg.Redis.ConfigureNotifications,
		}, log.WithComponent("varstore"))
		if err != nil {
			return nil, err
		}
		return rs, nil
	}
}

// newTransport shares the store's Redis connection when there is one.
func newTransport(cfg config.Config, store varstore.Store, logger zerolog.Logger) mq.Transport {
	rs, ok := store.(*varstore.Redis)
	if !ok {
		logger.Warn().Msg("no redis connection, message queue templates deliver in-process")
		return mq.NewMemory()
	}
	return mq.NewRedisTransport(rs.Client(), mq.RedisOptions{
		Mode:         mq.Mode(cfg.Queue.Mode),
		StreamMaxLen: cfg.Queue.StreamMaxLen,
	})
}
