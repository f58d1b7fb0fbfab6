// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package turn

import (
	"time"

	"golang.org/x/time/rate"
)

// DefaultDebounce is the minimum time between two store flushes of a turn.
const DefaultDebounce = 50 * time.Millisecond

// Clock returns the current time. Tests inject a fake one.
type Clock func() time.Time

// =============================================================================
// DEBOUNCER
// =============================================================================

// Debouncer gates flushes so that at least one interval separates any two of
// them. It is a token bucket of size one; the window of the first flush
// starts when the debouncer is created.
//
// Not safe for concurrent use.
type Debouncer struct {
	limiter  *rate.Limiter
	interval time.Duration
	now      Clock
}

// NewDebouncer creates a debouncer. An interval <= 0 allows every flush.
func NewDebouncer(interval time.Duration, now Clock) *Debouncer {
	if now == nil {
		now = time.Now
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	d := &Debouncer{
		limiter:  rate.NewLimiter(limit, 1),
		interval: interval,
		now:      now,
	}
	d.limiter.AllowN(now(), 1)
	return d
}

// Ready reports whether a flush may happen now and, if so, starts the next
// window.
func (d *Debouncer) Ready() bool {
	return d.limiter.AllowN(d.now(), 1)
}

// Interval returns the configured minimum spacing.
func (d *Debouncer) Interval() time.Duration {
	return d.interval
}
