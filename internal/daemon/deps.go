// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
)

// Loop is the blocking event loop run by the Manager.
type Loop interface {
	Run(ctx context.Context) error
}

// Deps contains dependencies required by the daemon Manager.
type Deps struct {
	// Logger is the structured logger for the daemon
	Logger zerolog.Logger

	// Loop is the notification dispatcher
	Loop Loop

	// OpsHandler serves /metrics, /healthz and /readyz (optional)
	OpsHandler http.Handler

	// OpsAddr is the listen address of the ops server; empty disables it
	OpsAddr string
}

// Validate checks if the dependencies are valid.
func (d *Deps) Validate() error {
	if d.Logger.GetLevel() == zerolog.Disabled {
		return ErrMissingLogger
	}
	if d.Loop == nil {
		return ErrMissingDispatcher
	}
	return nil
}
