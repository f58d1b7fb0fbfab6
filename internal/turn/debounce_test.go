// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package turn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer_WindowStartsAtCreation(t *testing.T) {
	clock := newFakeClock()
	d := NewDebouncer(50*time.Millisecond, clock.Now)

	assert.False(t, d.Ready())

	clock.Advance(30 * time.Millisecond)
	assert.False(t, d.Ready())

	clock.Advance(30 * time.Millisecond)
	assert.True(t, d.Ready())
	assert.False(t, d.Ready())

	clock.Advance(40 * time.Millisecond)
	assert.False(t, d.Ready())

	clock.Advance(20 * time.Millisecond)
	assert.True(t, d.Ready())
}

func TestDebouncer_LongGapAllowsOnlyOne(t *testing.T) {
	clock := newFakeClock()
	d := NewDebouncer(50*time.Millisecond, clock.Now)

	clock.Advance(10 * time.Second)
	assert.True(t, d.Ready())
	assert.False(t, d.Ready())
}

func TestDebouncer_ZeroIntervalAlwaysReady(t *testing.T) {
	d := NewDebouncer(0, nil)
	for i := 0; i < 10; i++ {
		assert.True(t, d.Ready())
	}
	assert.Equal(t, time.Duration(0), d.Interval())
}
