// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file contains all rendering logic for the chat view:
// header + messages (viewport) + input + status bar.
package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// MAIN RENDER
// =============================================================================

func (m Model) renderChat() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderInput(),
		m.renderStatusBar(),
	)
}

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("rigchat")
	if m.modelName != "" {
		title += "  " + m.theme.HeaderModel.Render(m.modelName)
	}
	return m.theme.Header.Width(m.width).MaxHeight(headerHeight).Render(title)
}

func (m Model) renderInput() string {
	return m.theme.InputContainer.Width(max(m.width-2, 1)).Render(m.input.View())
}

// =============================================================================
// MESSAGES
// =============================================================================

// renderMessages renders the whole log. A trailing empty assistant message is
// left out and reported as pending; the caller draws it with the spinner.
func (m Model) renderMessages() (string, bool) {
	msgs := m.conv.Messages()
	if len(msgs) == 0 {
		return m.theme.ShortcutDesc.Render("Type a message and press Enter."), false
	}

	var b strings.Builder
	pending := false
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.renderLabel(msg.Role))
		b.WriteString("\n")

		if i == len(msgs)-1 && msg.Role == model.RoleAssistant && msg.IsEmpty() {
			pending = true
			continue
		}
		b.WriteString(m.renderBody(msg))
	}
	return b.String(), pending
}

func (m Model) renderLabel(role model.Role) string {
	if role == model.RoleUser {
		return m.theme.UserLabel.Render(role.DisplayName())
	}
	return m.theme.AssistantLabel.Render(role.DisplayName())
}

func (m Model) renderBody(msg model.Message) string {
	width := m.contentWidth()

	if msg.Role == model.RoleUser {
		return m.theme.UserBubble.Width(width).Render(msg.Content)
	}

	content := msg.Content
	if m.renderer != nil {
		out, err := m.renderer.Render(content)
		if err == nil {
			return m.theme.AssistantBubble.Render(strings.Trim(out, "\n"))
		}
		m.log.Debug().Err(err).Int64("message", msg.ID).Msg("markdown render failed")
	}
	return m.theme.AssistantBubble.Width(width).Render(content)
}

// renderPending draws the placeholder of an assistant message with no text.
func (m Model) renderPending(frame string) string {
	return m.theme.AssistantBubble.Render(frame)
}

// =============================================================================
// STATUS BAR
// =============================================================================

// renderStatusBar shows the turn state, the last turn's statistics and the
// key help, truncated to the terminal width.
func (m Model) renderStatusBar() string {
	var state string
	if m.isRunning() {
		state = m.theme.StatusRunning.Render("running")
	} else {
		state = m.theme.StatusIdle.Render("idle")
	}

	var parts []string
	if stats, ok := m.ctrl.LastStats(); ok {
		parts = append(parts, "last: "+stats.String())
	}
	parts = append(parts, m.keyMap.shortHelpText())

	// padding (2) + state + separator (3)
	room := m.width - 2 - lipgloss.Width(state) - 3
	rest := util.TruncateWidth(strings.Join(parts, " | "), max(room, 0))

	line := state
	if rest != "" {
		line += " | " + m.theme.StatusStats.Render(rest)
	}
	return m.theme.StatusBar.Width(m.width).MaxHeight(statusBarHeight).Render(line)
}
