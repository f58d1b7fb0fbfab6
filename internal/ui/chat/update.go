// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file contains the update loop: keys, resizes and turn events.
package chat

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/rigchat/internal/turn"
)

// Layout heights of the fixed parts of the view.
const (
	headerHeight    = 1
	inputAreaHeight = 3 // rounded border around one line
	statusBarHeight = 1
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TurnEventMsg:
		return m.handleTurnEvent(msg)

	case TurnWaitErrorMsg:
		m.log.Warn().Err(msg.Err).Str("turn", msg.Turn.ID).Msg("stopped waiting for turn events")
		m.ctrl.Abort(msg.Turn, msg.Err)
		m.syncViewport()
		return m, nil

	case spinner.TickMsg:
		if !m.pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.syncViewport()
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	m.viewport.Width = max(msg.Width, 1)
	m.viewport.Height = max(msg.Height-headerHeight-inputAreaHeight-statusBarHeight, 1)

	// border (2) + padding (2) + prompt (2) + trailing cursor (1)
	m.input.Width = max(msg.Width-7, 10)

	m.theme.SetSize(msg.Width, msg.Height)

	if m.markdown {
		m.renderer = m.newRenderer(m.contentWidth())
	}

	// A new renderer wraps differently even at the same width.
	m.optimizer.Invalidate()
	m.syncViewport()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Submit):
		return m.submit()

	case key.Matches(msg, m.keyMap.Top):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keyMap.Bottom):
		m.viewport.GotoBottom()
		return m, nil
	}

	for _, b := range m.keyMap.scrollBindings() {
		if key.Matches(msg, b) {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit hands the input to the controller. The input is only cleared when
// the submission was accepted, so text typed during a running turn is kept.
func (m Model) submit() (tea.Model, tea.Cmd) {
	t, ok := m.ctrl.Submit(m.ctx, m.input.Value())
	if !ok {
		return m, nil
	}
	m.input.Reset()
	m.syncViewport()
	m.viewport.GotoBottom()
	return m, tea.Batch(WaitForTurnEvent(m.ctx, t), m.spinner.Tick)
}

func (m Model) handleTurnEvent(msg TurnEventMsg) (tea.Model, tea.Cmd) {
	done := m.ctrl.Handle(msg.Turn, msg.Event)
	m.syncViewport()
	if done {
		return m, nil
	}
	return m, WaitForTurnEvent(m.ctx, msg.Turn)
}

// =============================================================================
// VIEWPORT
// =============================================================================

// syncViewport refreshes the viewport content. The message history is only
// re-rendered when the conversation version moved since the last build.
func (m *Model) syncViewport() {
	if m.optimizer.ShouldRebuild(m.conv.Version(), m.width) {
		m.history, m.pending = m.renderMessages()
	}

	atBottom := m.viewport.AtBottom()
	content := m.history
	if m.pending {
		content += m.renderPending(m.spinner.View())
	}
	m.viewport.SetContent(content)
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m Model) contentWidth() int {
	// bubble border (1) + padding (1) + margin
	return max(m.width-4, 20)
}

func (m Model) newRenderer(width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.theme.GlamourStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		m.log.Warn().Err(err).Msg("markdown renderer unavailable; showing plain text")
		return nil
	}
	return r
}

// isRunning reports whether a turn is in flight.
func (m Model) isRunning() bool {
	return m.ctrl.State() == turn.Running
}
