// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ManuGH/templatesvc/internal/config"
	"github.com/ManuGH/templatesvc/internal/log"
)

// PerformStartupChecks inspects file destinations before the loop starts.
// Problems are returned as warnings: a bad destination only affects the
// templates that use it, and it may become usable later.
func PerformStartupChecks(cfg config.Config) []string {
	logger := log.WithComponent("startup-check")
	var warnings []string

	for i, t := range cfg.Templates {
		if t.Type != "" && t.Type != "fd" {
			continue
		}
		if w := checkTargetDir(t.Target); w != "" {
			warnings = append(warnings, fmt.Sprintf("config[%d]: %s", i, w))
		}
	}

	for _, w := range warnings {
		logger.Warn().Str("event", "startup.check_warning").Msg(w)
	}
	if len(warnings) == 0 {
		logger.Debug().Str("event", "startup.checks_passed").Msg("all startup checks passed")
	}
	return warnings
}

func checkTargetDir(target string) string {
	dir := filepath.Dir(target)
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("destination directory does not exist: %s", dir)
		}
		return fmt.Sprintf("destination directory %s: %v", dir, err)
	}
	if !info.IsDir() {
		return fmt.Sprintf("destination parent is not a directory: %s", dir)
	}
	return ""
}
