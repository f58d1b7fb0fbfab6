// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package turn

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/cloud"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/telemetry"
)

// fakeStreamer replays fragments and then returns err.
// If block is set it waits for it (or ctx) before returning.
type fakeStreamer struct {
	fragments []string
	err       error
	block     chan struct{}
	panicWith any

	mu       sync.Mutex
	requests []cloud.ChatRequest
}

func (f *fakeStreamer) Stream(ctx context.Context, request cloud.ChatRequest, onFragment cloud.FragmentFunc) error {
	f.mu.Lock()
	f.requests = append(f.requests, request)
	f.mu.Unlock()

	for _, fragment := range f.fragments {
		onFragment(fragment)
	}
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func (f *fakeStreamer) lastRequest(t *testing.T) cloud.ChatRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

// fakeClock only moves when told to.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// captureRecorder keeps every recorded TurnStats.
type captureRecorder struct {
	mu    sync.Mutex
	stats []telemetry.TurnStats
}

func (r *captureRecorder) Record(_ context.Context, s telemetry.TurnStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = append(r.stats, s)
	return nil
}

type harness struct {
	conv     *model.Conversation
	clock    *fakeClock
	recorder *captureRecorder
	ctrl     *Controller
}

func newHarness(streamer Streamer, maxMessages int) *harness {
	h := &harness{
		conv:     model.NewConversation(maxMessages),
		clock:    newFakeClock(),
		recorder: &captureRecorder{},
	}
	pipeline := NewPipeline(streamer,
		WithModel("test-model"),
		WithDebounce(50*time.Millisecond),
		WithClock(h.clock.Now),
		WithRecorder(h.recorder),
		WithLogger(zerolog.Nop()),
	)
	h.ctrl = NewController(h.conv, pipeline, zerolog.Nop())
	return h
}

// run consumes tr to completion, advancing the clock by step before every
// event is handled.
func (h *harness) run(t *testing.T, tr *Turn, step time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		ev, err := tr.Next(ctx)
		require.NoError(t, err)
		h.clock.Advance(step)
		if h.ctrl.Handle(tr, ev) {
			return
		}
	}
}

func (h *harness) content(t *testing.T, id int64) string {
	t.Helper()
	msg := h.conv.FindMutable(id)
	require.NotNil(t, msg)
	return msg.Content
}
