// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// TURN STATS
// =============================================================================

// TurnStats holds statistics collected for one streaming turn.
type TurnStats struct {
	TurnID    string
	SessionID string
	Model     string
	StartedAt time.Time

	// TTFT is the time from turn start to the first fragment.
	// Zero when no fragment arrived.
	TTFT     time.Duration
	Duration time.Duration

	Fragments int // fragments received from the transport
	Flushes   int // store mutations, including the final one
	Bytes     int // accumulated response size in bytes

	// Error is the failure text, empty on success.
	Error string
}

// Failed returns true if the turn ended with an error.
func (s TurnStats) Failed() bool {
	return s.Error != ""
}

// FormatDuration formats a duration for status displays.
func FormatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}

// String returns a compact one-line summary.
func (s TurnStats) String() string {
	out := fmt.Sprintf("ttft %s | %s | %d frags | %d flushes",
		FormatDuration(s.TTFT), FormatDuration(s.Duration), s.Fragments, s.Flushes)
	if s.Failed() {
		out += " | failed"
	}
	return out
}

// =============================================================================
// RECORDER
// =============================================================================

// Recorder receives the statistics of every finished turn.
type Recorder interface {
	Record(ctx context.Context, stats TurnStats) error
}

// NopRecorder discards everything.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(context.Context, TurnStats) error { return nil }

// =============================================================================
// SUMMARY
// =============================================================================

// Summary aggregates a set of turns.
type Summary struct {
	Turns       int
	Failed      int
	Fragments   int
	Bytes       int
	AvgTTFT     time.Duration
	AvgDuration time.Duration
}

// Summarize aggregates stats. Turns without a first fragment are excluded
// from the TTFT average.
func Summarize(stats []TurnStats) Summary {
	var sum Summary
	var ttftTotal, durTotal time.Duration
	ttftCount := 0

	for _, s := range stats {
		sum.Turns++
		if s.Failed() {
			sum.Failed++
		}
		sum.Fragments += s.Fragments
		sum.Bytes += s.Bytes
		durTotal += s.Duration
		if s.TTFT > 0 {
			ttftTotal += s.TTFT
			ttftCount++
		}
	}

	if sum.Turns > 0 {
		sum.AvgDuration = durTotal / time.Duration(sum.Turns)
	}
	if ttftCount > 0 {
		sum.AvgTTFT = ttftTotal / time.Duration(ttftCount)
	}
	return sum
}
