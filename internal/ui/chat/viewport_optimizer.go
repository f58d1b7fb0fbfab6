// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file implements the check that keeps the message history from being
// re-rendered when nothing in the conversation changed. Spinner ticks and
// key presses redraw the screen many times per second; only store mutations
// move the conversation version.
package chat

// =============================================================================
// VIEWPORT OPTIMIZER
// =============================================================================

// ViewportOptimizer remembers the conversation version and width the
// history was last rendered for. It is used from the update loop only.
type ViewportOptimizer struct {
	version uint64
	width   int
	valid   bool

	rebuilds uint64
	skips    uint64
}

// NewViewportOptimizer creates an optimizer that forces the first render.
func NewViewportOptimizer() *ViewportOptimizer {
	return &ViewportOptimizer{}
}

// ShouldRebuild reports whether the history must be rendered again for the
// given conversation version and width, and records the answer.
func (vo *ViewportOptimizer) ShouldRebuild(version uint64, width int) bool {
	if vo.valid && vo.version == version && vo.width == width {
		vo.skips++
		return false
	}
	vo.version = version
	vo.width = width
	vo.valid = true
	vo.rebuilds++
	return true
}

// Invalidate forces the next ShouldRebuild to return true.
func (vo *ViewportOptimizer) Invalidate() {
	vo.valid = false
}

// Version returns the conversation version of the last rebuild.
func (vo *ViewportOptimizer) Version() uint64 {
	return vo.version
}

// Stats returns how many refreshes rebuilt the history and how many reused it.
func (vo *ViewportOptimizer) Stats() (rebuilds, skips uint64) {
	return vo.rebuilds, vo.skips
}
