// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package templates

import (
	"fmt"

	"github.com/ManuGH/templatesvc/internal/config"
)

// Build creates a registry from configured template entries. Trigger handles
// stay unresolved; subscription setup fills them in.
func Build(entries []config.TemplateConfig) (*Registry, error) {
	reg := NewRegistry()
	for i, e := range entries {
		t := &Template{
			Source:   e.Template,
			Target:   e.Target,
			Kind:     ParseKind(e.Type),
			TypeName: e.Type,
			KeepOpen: e.KeepOpen,
			Append:   e.Append,
			Atomic:   e.Atomic,
		}
		for _, name := range e.Trigger {
			if _, err := t.AddTrigger(name); err != nil {
				return nil, fmt.Errorf("config[%d]: %w", i, err)
			}
		}
		reg.Add(t)
	}
	return reg, nil
}
