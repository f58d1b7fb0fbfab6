// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/cloud"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/turn"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// fakeStreamer delivers fragments, optionally after block is closed, and then
// returns err.
type fakeStreamer struct {
	fragments []string
	err       error
	block     chan struct{}
}

func (s *fakeStreamer) Stream(ctx context.Context, _ cloud.ChatRequest, onFragment cloud.FragmentFunc) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	for _, f := range s.fragments {
		onFragment(f)
	}
	return s.err
}

func newTestModel(t *testing.T, s *fakeStreamer) Model {
	t.Helper()
	pipeline := turn.NewPipeline(s, turn.WithDebounce(0))
	ctrl := turn.NewController(model.NewConversation(model.DefaultMaxMessages), pipeline, zerolog.Nop())

	m := New(t.Context(), ctrl, styles.NewTheme(styles.ModeDark),
		WithMarkdown(false),
		WithModelName("gpt-5-mini"),
	)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok, "Update returned %T", next)
	return out, cmd
}

func typeAndSubmit(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	m.SetInputValue(text)
	return update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

// drain feeds the turn's events through the update loop until it finishes.
func drain(t *testing.T, m Model, tr *turn.Turn) Model {
	t.Helper()
	for i := 0; !tr.Finished(); i++ {
		require.Less(t, i, 1000, "turn did not finish")
		msg := WaitForTurnEvent(t.Context(), tr)()
		m, _ = update(t, m, msg)
	}
	return m
}

// =============================================================================
// SUBMISSION
// =============================================================================

func TestSubmit_StartsTurnAndClearsInput(t *testing.T) {
	s := &fakeStreamer{fragments: []string{"Hi"}, block: make(chan struct{})}
	m := newTestModel(t, s)

	m, cmd := typeAndSubmit(t, m, "hello")
	require.NotNil(t, cmd)

	assert.Empty(t, m.InputValue())
	assert.Equal(t, turn.Running, m.Controller().State())

	msgs := m.Controller().Conversation().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.True(t, msgs[1].IsEmpty())

	view := m.View()
	assert.Contains(t, view, "hello")
	assert.Contains(t, view, styles.PendingSpinner.Frames[0])
	assert.Contains(t, view, "running")

	close(s.block)
	m = drain(t, m, m.Controller().Active())
	assert.Equal(t, turn.Idle, m.Controller().State())
}

func TestSubmit_BlankIgnored(t *testing.T) {
	m := newTestModel(t, &fakeStreamer{})

	m, cmd := typeAndSubmit(t, m, "   ")
	assert.Nil(t, cmd)
	assert.Equal(t, "   ", m.InputValue())
	assert.Zero(t, m.Controller().Conversation().Len())
}

func TestSubmit_WhileRunningKeepsInput(t *testing.T) {
	s := &fakeStreamer{fragments: []string{"ok"}, block: make(chan struct{})}
	m := newTestModel(t, s)

	m, _ = typeAndSubmit(t, m, "first")
	tr := m.Controller().Active()
	require.NotNil(t, tr)

	m, cmd := typeAndSubmit(t, m, "second")
	assert.Nil(t, cmd)
	assert.Equal(t, "second", m.InputValue(), "rejected input is kept")
	assert.Equal(t, 2, m.Controller().Conversation().Len())

	close(s.block)
	m = drain(t, m, tr)
	assert.Equal(t, "second", m.InputValue())
}

// =============================================================================
// TURN EVENTS
// =============================================================================

func TestTurn_ReplyRendered(t *testing.T) {
	m := newTestModel(t, &fakeStreamer{fragments: []string{"Hello", " world"}})

	m, _ = typeAndSubmit(t, m, "hi")
	m = drain(t, m, m.Controller().Active())

	view := m.View()
	assert.Contains(t, view, "Hello world")
	assert.Contains(t, view, "You")
	assert.Contains(t, view, "AI")
	assert.Contains(t, view, "idle")
	assert.Contains(t, view, "last: ")
	assert.NotContains(t, view, styles.PendingSpinner.Frames[0])
}

func TestTurn_ErrorNoticeRendered(t *testing.T) {
	m := newTestModel(t, &fakeStreamer{err: errors.New("boom")})

	m, _ = typeAndSubmit(t, m, "hi")
	m = drain(t, m, m.Controller().Active())

	assert.Contains(t, m.View(), "Error: boom")
	assert.Equal(t, turn.Idle, m.Controller().State())

	stats, ok := m.Controller().LastStats()
	require.True(t, ok)
	assert.True(t, stats.Failed())
}

func TestTurn_WaitErrorAbortsTurn(t *testing.T) {
	s := &fakeStreamer{block: make(chan struct{})}
	m := newTestModel(t, s)

	m, _ = typeAndSubmit(t, m, "hi")
	tr := m.Controller().Active()
	require.NotNil(t, tr)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	msg := WaitForTurnEvent(ctx, tr)()
	require.IsType(t, TurnWaitErrorMsg{}, msg)

	m, _ = update(t, m, msg)
	assert.Equal(t, turn.Idle, m.Controller().State())
	assert.True(t, tr.Finished())

	close(s.block)
	tr.Wait()
}

// =============================================================================
// RENDERING
// =============================================================================

func TestViewport_RebuildOnlyOnVersionChange(t *testing.T) {
	s := &fakeStreamer{fragments: []string{"x"}, block: make(chan struct{})}
	m := newTestModel(t, s)

	m, _ = typeAndSubmit(t, m, "hi")
	version := m.RenderedVersion()
	assert.Equal(t, m.Controller().Conversation().Version(), version)

	rebuilds, skips := m.RenderStats()
	for range 3 {
		m, _ = update(t, m, spinner.TickMsg{})
	}
	rebuilds2, skips2 := m.RenderStats()
	assert.Equal(t, rebuilds, rebuilds2, "spinner ticks must not re-render the history")
	assert.Equal(t, skips+3, skips2)
	assert.Equal(t, version, m.RenderedVersion())

	close(s.block)
	m = drain(t, m, m.Controller().Active())
	rebuilds3, _ := m.RenderStats()
	assert.Greater(t, rebuilds3, rebuilds2)
}

func TestView_FillsTerminal(t *testing.T) {
	m := newTestModel(t, &fakeStreamer{fragments: []string{strings.Repeat("long line ", 50)}})
	m, _ = typeAndSubmit(t, m, "hi")
	m = drain(t, m, m.Controller().Active())

	view := m.View()
	assert.Equal(t, 30, lipgloss.Height(view))
	assert.LessOrEqual(t, lipgloss.Width(view), 100)
}

func TestView_BeforeResize(t *testing.T) {
	pipeline := turn.NewPipeline(&fakeStreamer{})
	ctrl := turn.NewController(model.NewConversation(0), pipeline, zerolog.Nop())
	m := New(t.Context(), ctrl, styles.NewTheme(styles.ModeLight))
	assert.Equal(t, "Loading...", m.View())
}

func TestView_MarkdownRendering(t *testing.T) {
	pipeline := turn.NewPipeline(&fakeStreamer{fragments: []string{"# Title\n\nsome **bold** text"}}, turn.WithDebounce(0))
	ctrl := turn.NewController(model.NewConversation(0), pipeline, zerolog.Nop())
	m := New(t.Context(), ctrl, styles.NewTheme(styles.ModeDark), WithMarkdown(true))
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

	m, _ = typeAndSubmit(t, m, "hi")
	m = drain(t, m, m.Controller().Active())

	view := m.View()
	assert.Contains(t, view, "Title")
	assert.Contains(t, view, "bold")
	assert.NotContains(t, view, "**bold**")
}

// =============================================================================
// KEYS
// =============================================================================

func TestQuitKey(t *testing.T) {
	m := newTestModel(t, &fakeStreamer{})

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestTypingGoesToInput(t *testing.T) {
	m := newTestModel(t, &fakeStreamer{})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hey")})
	assert.Equal(t, "hey", m.InputValue())
}

func TestShortHelpText(t *testing.T) {
	help := DefaultKeyMap().shortHelpText()
	assert.Contains(t, help, "Enter send")
	assert.Contains(t, help, "C-c quit")
}
