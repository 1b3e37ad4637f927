// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// Pinger is satisfied by the variable store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreChecker reports whether the variable store connection is alive. The
// service cannot receive notifications without it, so failure is unhealthy.
type StoreChecker struct {
	store   Pinger
	timeout time.Duration
}

// NewStoreChecker creates a checker that pings store with the given timeout.
func NewStoreChecker(store Pinger, timeout time.Duration) *StoreChecker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &StoreChecker{store: store, timeout: timeout}
}

func (c *StoreChecker) Name() string { return "variable_store" }

func (c *StoreChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.store.Ping(ctx); err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Error:   err.Error(),
			Message: "variable store unreachable",
		}
	}
	return CheckResult{Status: StatusHealthy, Message: "connected"}
}

// TemplatesChecker reports missing template sources. Deliveries of those
// templates fail but the service keeps running, so they only degrade it.
type TemplatesChecker struct {
	sources func() []string
}

// NewTemplatesChecker creates a checker over the configured template sources.
func NewTemplatesChecker(sources func() []string) *TemplatesChecker {
	return &TemplatesChecker{sources: sources}
}

func (c *TemplatesChecker) Name() string { return "template_sources" }

func (c *TemplatesChecker) Check(_ context.Context) CheckResult {
	var missing []string
	paths := c.sources()
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return CheckResult{
			Status:  StatusDegraded,
			Error:   "unreadable: " + strings.Join(missing, ", "),
			Message: fmt.Sprintf("%d of %d template sources unavailable", len(missing), len(paths)),
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("%d template sources readable", len(paths)),
	}
}

// SubscriptionChecker reports trigger variables that never resolved.
type SubscriptionChecker struct {
	failed []string
}

// NewSubscriptionChecker records the result of subscription setup.
func NewSubscriptionChecker(failed []string) *SubscriptionChecker {
	return &SubscriptionChecker{failed: append([]string(nil), failed...)}
}

func (c *SubscriptionChecker) Name() string { return "subscriptions" }

func (c *SubscriptionChecker) Check(_ context.Context) CheckResult {
	if len(c.failed) > 0 {
		return CheckResult{
			Status:  StatusDegraded,
			Error:   "unresolved: " + strings.Join(c.failed, ", "),
			Message: "some trigger variables can never fire",
		}
	}
	return CheckResult{Status: StatusHealthy, Message: "all triggers subscribed"}
}
