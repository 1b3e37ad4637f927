// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package watch reports changes to template source files.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/ManuGH/templatesvc/internal/log"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce coalesces the burst of events editors produce on save.
const DefaultDebounce = 250 * time.Millisecond

// Sources watches a fixed set of template files. The parent directories are
// watched so that files replaced by rename (editors, atomic writers) are
// still reported.
type Sources struct {
	watcher  *fsnotify.Watcher
	paths    map[string]struct{}
	debounce time.Duration
	changes  chan string
	logger   zerolog.Logger
}

// NewSources starts watching paths. debounce <= 0 selects DefaultDebounce.
func NewSources(paths []string, debounce time.Duration) (*Sources, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	s := &Sources{
		watcher:  w,
		paths:    make(map[string]struct{}, len(paths)),
		debounce: debounce,
		changes:  make(chan string),
		logger:   log.WithComponent("watch"),
	}
	dirs := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		s.paths[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return s, nil
}

// Changes delivers the path of each changed template source, as originally
// configured in absolute form. It is closed when Run returns.
func (s *Sources) Changes() <-chan string { return s.changes }

// Close releases the watcher without running it. Run also closes it.
func (s *Sources) Close() error {
	return s.watcher.Close()
}

// Run processes filesystem events until ctx is done or the watcher fails.
func (s *Sources) Run(ctx context.Context) error {
	defer close(s.changes)
	defer func() { _ = s.watcher.Close() }()

	s.logger.Info().
		Str(log.FieldEvent, "watch.started").
		Int("files", len(s.paths)).
		Msg("watching template sources for changes")

	var (
		pending = make(map[string]struct{})
		timer   *time.Timer
		fire    <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Str(log.FieldEvent, "watch.stopped").Msg("template watcher stopped")
			return nil

		case ev, ok := <-s.watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			path := filepath.Clean(ev.Name)
			if _, tracked := s.paths[path]; !tracked {
				continue
			}
			s.logger.Debug().
				Str(log.FieldEvent, "watch.file_changed").
				Str(log.FieldPath, path).
				Str("op", ev.Op.String()).
				Msg("template source changed")

			pending[path] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(s.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(s.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			for _, path := range sortedKeys(pending) {
				select {
				case s.changes <- path:
				case <-ctx.Done():
					return nil
				}
			}
			pending = make(map[string]struct{})

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error().
				Err(err).
				Str(log.FieldEvent, "watch.error").
				Msg("template watcher error")
		}
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
