// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package turn

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/telemetry"
)

// NoTarget is the Target of an inactive TurnState.
const NoTarget int64 = -1

// State is the controller state.
type State int

const (
	Idle State = iota
	Running
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// TurnState describes the active turn, if any.
type TurnState struct {
	Active bool
	Target int64
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller gates submissions and applies turn events to the conversation.
// It is the single writer of the conversation store and must only be used
// from the consumer goroutine.
type Controller struct {
	conv     *model.Conversation
	ids      *model.IDSequence
	pipeline *Pipeline
	log      zerolog.Logger

	state       State
	turn        TurnState
	active      *Turn
	transitions int

	lastStats telemetry.TurnStats
	hasStats  bool
}

// NewController creates an idle controller over conv.
func NewController(conv *model.Conversation, pipeline *Pipeline, log zerolog.Logger) *Controller {
	return &Controller{
		conv:     conv,
		ids:      model.NewIDSequence(),
		pipeline: pipeline,
		log:      log.With().Str("component", "controller").Logger(),
		state:    Idle,
		turn:     TurnState{Target: NoTarget},
	}
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// TurnState returns the active turn description.
func (c *Controller) TurnState() TurnState {
	return c.turn
}

// Active returns the running turn, or nil.
func (c *Controller) Active() *Turn {
	return c.active
}

// Transitions returns how many turns went Idle -> Running -> Idle.
func (c *Controller) Transitions() int {
	return c.transitions
}

// LastStats returns the statistics of the most recently finished turn.
func (c *Controller) LastStats() (telemetry.TurnStats, bool) {
	return c.lastStats, c.hasStats
}

// Conversation returns the store the controller writes to.
func (c *Controller) Conversation() *model.Conversation {
	return c.conv
}

// Submit starts a turn for text.
//
// Text is trimmed and NFC normalized. Blank text is rejected and a submit
// while a turn is running is ignored; both return false without touching the
// store.
func (c *Controller) Submit(ctx context.Context, text string) (*Turn, bool) {
	text = norm.NFC.String(strings.TrimSpace(text))
	if text == "" {
		return nil, false
	}
	if c.state == Running {
		c.log.Debug().Int64("target", c.turn.Target).Msg("submit ignored, turn in flight")
		return nil, false
	}

	userID := c.ids.Next()
	if err := c.conv.Append(model.NewMessage(userID, model.RoleUser, text)); err != nil {
		c.log.Error().Err(err).Msg("failed to append user message")
		return nil, false
	}
	assistantID := c.ids.Next()
	if err := c.conv.Append(model.NewMessage(assistantID, model.RoleAssistant, "")); err != nil {
		c.log.Error().Err(err).Msg("failed to append assistant placeholder")
		return nil, false
	}

	c.state = Running
	c.turn = TurnState{Active: true, Target: assistantID}

	t := c.pipeline.Start(ctx, c.conv.HistoryBefore(assistantID), assistantID)
	c.active = t
	return t, true
}

// Handle applies one event of t. It returns true once t is finished.
//
// Fragments are accumulated immediately and flushed into the store when the
// debouncer allows it. The terminal event triggers one unconditional flush of
// the full text, the error notice (if any) and the release of the turn.
func (c *Controller) Handle(t *Turn, ev Event) (done bool) {
	if t == nil || t.finished {
		return true
	}

	if !ev.Done {
		t.accept(ev.Fragment)
		if t.debounce.Ready() {
			c.flush(t)
		}
		return false
	}

	defer c.release(t, ev.Err)

	c.flush(t)
	if ev.Err != nil {
		c.appendErrorNotice(t, ev.Err)
	}
	return true
}

// Drain consumes t until its terminal event. It blocks and is meant for
// headless callers; the TUI drives Handle from its update loop instead.
//
// A non-nil return means the consumer gave up (ctx done); the turn has been
// released either way. The turn's own outcome is t.Err().
func (c *Controller) Drain(ctx context.Context, t *Turn) error {
	for {
		ev, err := t.Next(ctx)
		if err != nil {
			c.Abort(t, err)
			return err
		}
		if c.Handle(t, ev) {
			return nil
		}
	}
}

// Abort releases t after its consumer went away. Text accumulated so far is
// kept in the store.
func (c *Controller) Abort(t *Turn, cause error) {
	if t == nil || t.finished {
		return
	}
	c.log.Warn().Err(cause).Str("turn", t.ID).Msg("turn consumer stopped")
	defer c.release(t, cause)
	c.flush(t)
}

// flush writes the full accumulated text into the target message.
func (c *Controller) flush(t *Turn) {
	if t.detached {
		return
	}
	if err := c.conv.SetContent(t.Target, t.acc.String()); err != nil {
		t.detached = true
		c.logStoreError(t, err)
		return
	}
	t.stats.Flushes++
}

// appendErrorNotice appends "Error: ..." to the target, after a blank line
// when the target already has content.
func (c *Controller) appendErrorNotice(t *Turn, cause error) {
	msg := c.conv.FindMutable(t.Target)
	if msg == nil {
		c.logStoreError(t, model.ErrMessageNotFound)
		return
	}
	notice := "Error: " + cause.Error()
	if msg.Content != "" {
		notice = "\n\n" + notice
	}
	if err := c.conv.AppendContent(t.Target, notice); err != nil {
		c.logStoreError(t, err)
	}
}

// release returns the controller to Idle. It runs deferred so a failed
// store update cannot keep the turn lock.
func (c *Controller) release(t *Turn, cause error) {
	if t.finished {
		return
	}
	t.finish(cause)

	if c.active == t {
		c.active = nil
		c.state = Idle
		c.turn = TurnState{Target: NoTarget}
		c.transitions++
	}
	c.lastStats = t.Stats()
	c.hasStats = true

	ev := c.log.Debug()
	if cause != nil {
		ev = c.log.Warn().Err(cause)
	}
	ev.Str("turn", t.ID).
		Int("fragments", t.stats.Fragments).
		Int("flushes", t.stats.Flushes).
		Dur("ttft", t.stats.TTFT).
		Dur("duration", t.stats.Duration).
		Msg("turn finished")
}

func (c *Controller) logStoreError(t *Turn, err error) {
	if errors.Is(err, model.ErrMessageNotFound) {
		c.log.Warn().Str("turn", t.ID).Int64("target", t.Target).Msg("turn target no longer in conversation")
		return
	}
	c.log.Error().Err(err).Str("turn", t.ID).Msg("failed to update conversation")
}
