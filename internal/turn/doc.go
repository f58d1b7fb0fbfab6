// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package turn runs one request/response cycle between the user and the
// completions API.
//
// A turn starts when the Controller accepts a submission. The Pipeline runs
// the blocking HTTP stream on a worker goroutine and hands every fragment to
// the consumer through an unbounded FIFO Queue, followed by exactly one
// terminal event. The consumer (the Bubble Tea update loop, or Drain for
// headless use) feeds each event back into Controller.Handle, which
// accumulates the text and writes it into the conversation store at a
// bounded rate.
//
// # Key Types
//
//   - Controller: Idle/Running state machine and single writer of the store
//   - Pipeline: starts turns against a Streamer
//   - Turn: one in-flight cycle (queue, accumulator, debouncer, stats)
//   - Event: a fragment or the terminal result
//   - Queue: unbounded single-producer/single-consumer event FIFO
//   - Debouncer: minimum-interval gate for store flushes
//
// # Usage
//
//	pipeline := turn.NewPipeline(client, turn.WithDebounce(50*time.Millisecond))
//	ctrl := turn.NewController(conv, pipeline, log)
//	t, ok := ctrl.Submit(ctx, "Hello")
//	if ok {
//	    err := ctrl.Drain(ctx, t)
//	}
//
// # Goroutines
//
// Only the worker goroutine runs concurrently; it touches nothing but the
// queue. Controller, Conversation and Turn accumulator state belong to the
// consumer goroutine.
package turn
