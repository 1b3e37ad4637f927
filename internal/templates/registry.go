// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package templates

import (
	"errors"
	"path/filepath"
)

// Registry owns every configured template for the lifetime of the service.
type Registry struct {
	// stored in registration order, iterated newest first
	items []*Template
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers t.
func (r *Registry) Add(t *Template) {
	r.items = append(r.items, t)
}

// Len returns the number of templates.
func (r *Registry) Len() int { return len(r.items) }

// All returns the templates most-recently-configured first.
func (r *Registry) All() []*Template {
	out := make([]*Template, 0, len(r.items))
	for i := len(r.items) - 1; i >= 0; i-- {
		out = append(out, r.items[i])
	}
	return out
}

// Triggers returns every trigger variable of every template, in scan order.
func (r *Registry) Triggers() []*TriggerVar {
	var out []*TriggerVar
	for _, t := range r.All() {
		out = append(out, t.Triggers...)
	}
	return out
}

// BySource returns the templates rendered from the given source file.
// Relative and absolute spellings of the same path match.
func (r *Registry) BySource(path string) []*Template {
	path = canonical(path)
	var out []*Template
	for _, t := range r.All() {
		if canonical(t.Source) == path {
			out = append(out, t)
		}
	}
	return out
}

// Sources returns the distinct template source paths in absolute form.
func (r *Registry) Sources() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range r.All() {
		p := canonical(t.Source)
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// OpenHandles counts templates currently holding a destination open.
func (r *Registry) OpenHandles() int {
	n := 0
	for _, t := range r.items {
		if t.Output != nil || t.Queue != nil {
			n++
		}
	}
	return n
}

// Close releases every open destination. It is best-effort: all templates are
// visited and the failures are joined.
func (r *Registry) Close() error {
	var errs []error
	for _, t := range r.items {
		if err := t.CloseHandles(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func canonical(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
