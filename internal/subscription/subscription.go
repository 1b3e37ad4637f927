// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package subscription registers modify notifications for trigger variables.
package subscription

import (
	"context"
	"fmt"

	"github.com/ManuGH/templatesvc/internal/log"
	"github.com/ManuGH/templatesvc/internal/metrics"
	"github.com/ManuGH/templatesvc/internal/status"
	"github.com/ManuGH/templatesvc/internal/templates"
	"github.com/ManuGH/templatesvc/internal/varstore"
	"github.com/rs/zerolog"
)

// Report summarizes a RegisterAll pass.
type Report struct {
	Subscribed int
	// Failed lists trigger names that could not be resolved or subscribed,
	// in the order they were attempted.
	Failed []string
}

// RegisterAll resolves every trigger to a store handle and subscribes it.
//
// Every entry is attempted. A failing entry keeps an invalid handle and never
// fires; the other entries are unaffected. The returned error is the last
// failure encountered, nil only when every entry was subscribed.
func RegisterAll(ctx context.Context, store varstore.Store, triggers []*templates.TriggerVar, logger zerolog.Logger) (Report, error) {
	var (
		rep     Report
		lastErr error
		// handles already subscribed in this pass; shared variables are
		// subscribed once but every TriggerVar receives the handle
		done = make(map[varstore.Handle]error)
	)

	for _, tv := range triggers {
		if tv == nil || tv.Name == "" {
			lastErr = fmt.Errorf("subscribe trigger: %w", status.ErrInvalidArgument)
			continue
		}

		h, err := store.Resolve(ctx, tv.Name)
		if err != nil {
			lastErr = fmt.Errorf("resolve trigger %q: %w", tv.Name, err)
			rep.Failed = append(rep.Failed, tv.Name)
			logFailure(logger, tv.Name, "resolve", lastErr)
			continue
		}

		serr, seen := done[h]
		if !seen {
			serr = store.Subscribe(ctx, h)
			done[h] = serr
		}
		if serr != nil {
			lastErr = fmt.Errorf("subscribe trigger %q: %w", tv.Name, serr)
			rep.Failed = append(rep.Failed, tv.Name)
			logFailure(logger, tv.Name, "subscribe", lastErr)
			continue
		}

		tv.Handle = h
		rep.Subscribed++
		logger.Debug().
			Str(log.FieldEvent, "subscription.ok").
			Str(log.FieldTrigger, tv.Name).
			Stringer(log.FieldHandle, h).
			Msg("subscribed to trigger variable")
	}

	metrics.RecordSubscriptions(rep.Subscribed, len(rep.Failed))
	return rep, lastErr
}

func logFailure(logger zerolog.Logger, name, stage string, err error) {
	logger.Warn().
		Err(err).
		Str(log.FieldEvent, "subscription."+stage+"_failed").
		Str(log.FieldTrigger, name).
		Str(log.FieldStatus, status.Label(err)).
		Int(log.FieldErrno, int(status.Errno(err))).
		Msg("trigger variable will never fire")
}
