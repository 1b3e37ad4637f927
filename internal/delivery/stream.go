// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package delivery

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ManuGH/templatesvc/internal/render"
	"github.com/ManuGH/templatesvc/internal/status"
	"github.com/ManuGH/templatesvc/internal/templates"
	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
)

const targetPerm = 0o644

// Stream renders a template directly into its destination file.
type Stream struct {
	Lookup render.Lookup
	Logger zerolog.Logger
}

// Deliver renders t.Source into t.Target.
//
// A destination held open by a keep_open template is reused; otherwise it is
// opened here, truncated unless t.Append is set, and closed again after the
// render. The source is always closed.
func (s *Stream) Deliver(ctx context.Context, t *templates.Template) (int64, error) {
	if t == nil || s.Lookup == nil {
		return 0, status.ErrInvalidArgument
	}

	src, err := openSource(t.Source)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			s.Logger.Debug().Err(cerr).Str("path", t.Source).Msg("close template source")
		}
	}()

	if t.Atomic {
		return s.deliverAtomic(ctx, t, src)
	}

	if t.Output == nil {
		flags := os.O_WRONLY | os.O_CREATE
		if t.Append {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		// #nosec G304 -- destinations come from the operator's configuration
		f, err := os.OpenFile(t.Target, flags, targetPerm)
		if err != nil {
			return 0, fmt.Errorf("open destination %s: %w: %w", t.Target, status.ErrNotFound, err)
		}
		t.Output = f
	}

	n, err := render.ToSink(ctx, s.Lookup, src, t.Output)

	// A failed write leaves the descriptor in an unknown state; reopen next time.
	if !t.KeepOpen || errors.Is(err, status.ErrTransport) {
		if cerr := t.Output.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close destination %s: %w: %w", t.Target, status.ErrTransport, cerr)
		}
		t.Output = nil
	}
	return n, err
}

// deliverAtomic renders into a pending file and renames it over the target,
// so readers never observe a partially written document.
func (s *Stream) deliverAtomic(ctx context.Context, t *templates.Template, src *os.File) (int64, error) {
	pending, err := renameio.NewPendingFile(t.Target,
		renameio.WithPermissions(targetPerm),
		renameio.WithExistingPermissions(),
	)
	if err != nil {
		return 0, fmt.Errorf("create pending file for %s: %w: %w", t.Target, status.ErrNotFound, err)
	}
	defer func() {
		if cerr := pending.Cleanup(); cerr != nil {
			s.Logger.Debug().Err(cerr).Str("path", t.Target).Msg("cleanup pending file")
		}
	}()

	n, err := render.ToSink(ctx, s.Lookup, src, pending)
	if err != nil {
		return n, err
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return n, fmt.Errorf("replace %s: %w: %w", t.Target, status.ErrTransport, err)
	}
	return n, nil
}

func openSource(path string) (*os.File, error) {
	// #nosec G304 -- template sources come from the operator's configuration
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open template %s: %w: %w", path, status.ErrNotFound, err)
	}
	return f, nil
}
