// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// =============================================================================
// SPINNER ANIMATIONS
// =============================================================================

// SpinnerConfig holds the configuration for a spinner animation.
type SpinnerConfig struct {
	Frames []string
	FPS    int
}

// PendingSpinner fills an assistant message that has no text yet.
var PendingSpinner = SpinnerConfig{
	Frames: []string{"●○○", "●●○", "●●●", "○●●", "○○●", "○○○"},
	FPS:    6,
}

// Duration returns the duration of each frame.
func (s SpinnerConfig) Duration() time.Duration {
	if s.FPS <= 0 {
		return time.Second
	}
	return time.Second / time.Duration(s.FPS)
}

// Spinner converts the config for use with the bubbles spinner.
func (s SpinnerConfig) Spinner() spinner.Spinner {
	return spinner.Spinner{Frames: s.Frames, FPS: s.Duration()}
}

// PendingPlaceholder is the static form of PendingSpinner, used when the
// view is rendered outside of an animation (tests, plain output).
const PendingPlaceholder = "●●●"
