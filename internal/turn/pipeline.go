// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package turn

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jeranaias/rigchat/internal/cloud"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/telemetry"
)

// Streamer performs one streaming completion. *cloud.Client implements it.
type Streamer interface {
	Stream(ctx context.Context, request cloud.ChatRequest, onFragment cloud.FragmentFunc) error
}

// =============================================================================
// PIPELINE
// =============================================================================

// Pipeline starts turns against a Streamer.
type Pipeline struct {
	streamer Streamer
	model    string
	interval time.Duration
	now      Clock
	log      zerolog.Logger
	recorder telemetry.Recorder
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithModel sets the model name sent with every request. Empty leaves the
// choice to the streamer.
func WithModel(name string) PipelineOption {
	return func(p *Pipeline) { p.model = name }
}

// WithDebounce sets the minimum interval between store flushes.
func WithDebounce(d time.Duration) PipelineOption {
	return func(p *Pipeline) { p.interval = d }
}

// WithClock replaces time.Now for debouncing and statistics.
func WithClock(now Clock) PipelineOption {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(log zerolog.Logger) PipelineOption {
	return func(p *Pipeline) { p.log = log.With().Str("component", "turn").Logger() }
}

// WithRecorder sets where finished turn statistics go.
func WithRecorder(r telemetry.Recorder) PipelineOption {
	return func(p *Pipeline) {
		if r != nil {
			p.recorder = r
		}
	}
}

// NewPipeline creates a pipeline with a 50ms debounce and no recorder.
func NewPipeline(streamer Streamer, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		streamer: streamer,
		interval: DefaultDebounce,
		now:      time.Now,
		log:      zerolog.Nop(),
		recorder: telemetry.NopRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Model returns the configured model name.
func (p *Pipeline) Model() string {
	return p.model
}

// Start launches a turn for target. history is a value copy of the log up to
// (not including) the target message; it is converted to the request before
// the worker starts, so the caller may keep mutating the store.
func (p *Pipeline) Start(ctx context.Context, history []model.Message, target int64) *Turn {
	request := cloud.ChatRequest{
		Model:    p.model,
		Messages: toChatMessages(history),
		Stream:   true,
	}

	t := &Turn{
		ID:       uuid.NewString(),
		Target:   target,
		queue:    NewQueue(),
		debounce: NewDebouncer(p.interval, p.now),
		pipeline: p,
		done:     make(chan struct{}),
	}
	t.stats = telemetry.TurnStats{
		TurnID:    t.ID,
		Model:     p.model,
		StartedAt: p.now(),
	}

	p.log.Debug().
		Str("turn", t.ID).
		Int64("target", target).
		Int("history", len(request.Messages)).
		Msg("turn started")

	go p.run(ctx, t, request)
	return t
}

// run is the worker goroutine. It only touches the queue.
func (p *Pipeline) run(ctx context.Context, t *Turn, request cloud.ChatRequest) {
	defer close(t.done)
	defer t.queue.Close()

	err := p.stream(ctx, t, request)
	t.queue.Push(Event{Done: true, Err: err})
}

// stream runs the streamer and turns a panic into an error so the terminal
// event is always sent.
func (p *Pipeline) stream(ctx context.Context, t *Turn, request cloud.ChatRequest) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stream panicked: %v", r)
		}
	}()
	return p.streamer.Stream(ctx, request, func(fragment string) {
		t.queue.Push(Event{Fragment: fragment})
	})
}

func toChatMessages(history []model.Message) []cloud.ChatMessage {
	out := make([]cloud.ChatMessage, 0, len(history))
	for _, msg := range history {
		out = append(out, cloud.ChatMessage{Role: msg.Role.String(), Content: msg.Content})
	}
	return out
}

// =============================================================================
// TURN
// =============================================================================

// Turn is one in-flight request/response cycle.
// Everything except the queue belongs to the consumer goroutine.
type Turn struct {
	ID     string
	Target int64

	queue    *Queue
	debounce *Debouncer
	pipeline *Pipeline
	done     chan struct{}

	acc      strings.Builder
	detached bool // target vanished; no more flushes
	finished bool
	err      error
	stats    telemetry.TurnStats
}

// Next blocks until the next event of this turn or ctx is done.
func (t *Turn) Next(ctx context.Context) (Event, error) {
	return t.queue.Next(ctx)
}

// Text returns everything accumulated so far.
func (t *Turn) Text() string {
	return t.acc.String()
}

// Finished reports whether the turn has been released.
func (t *Turn) Finished() bool {
	return t.finished
}

// Err returns the terminal error, nil on success or while running.
func (t *Turn) Err() error {
	return t.err
}

// Stats returns the statistics collected so far.
func (t *Turn) Stats() telemetry.TurnStats {
	return t.stats
}

// Wait blocks until the worker goroutine has exited.
func (t *Turn) Wait() {
	<-t.done
}

// accept accumulates one fragment.
func (t *Turn) accept(fragment string) {
	if t.stats.Fragments == 0 {
		t.stats.TTFT = t.pipeline.now().Sub(t.stats.StartedAt)
	}
	t.stats.Fragments++
	t.acc.WriteString(fragment)
}

// finish closes the statistics and hands them to the recorder.
func (t *Turn) finish(err error) {
	t.finished = true
	t.err = err
	t.stats.Duration = t.pipeline.now().Sub(t.stats.StartedAt)
	t.stats.Bytes = t.acc.Len()
	if err != nil {
		t.stats.Error = err.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if recErr := t.pipeline.recorder.Record(ctx, t.stats); recErr != nil {
		t.pipeline.log.Warn().Err(recErr).Str("turn", t.ID).Msg("failed to record turn stats")
	}
}
