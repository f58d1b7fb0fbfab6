// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file defines the chat Model: construction, the Bubble Tea interface
// and accessors used by main and the tests.
package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/turn"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model of the chat view. It runs on the Bubble Tea
// event loop, which is the only goroutine that touches the controller and
// the conversation.
type Model struct {
	ctx  context.Context
	ctrl *turn.Controller
	conv *model.Conversation
	log  zerolog.Logger

	theme  *styles.Theme
	keyMap KeyMap

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	markdown bool
	renderer *glamour.TermRenderer

	modelName string
	width     int
	height    int

	// Rendered history, rebuilt only when the conversation version moves.
	history   string
	pending   bool // last message is an empty assistant placeholder
	optimizer *ViewportOptimizer
}

// Option configures a Model.
type Option func(*Model)

// WithMarkdown enables glamour rendering of assistant messages.
func WithMarkdown(enabled bool) Option {
	return func(m *Model) { m.markdown = enabled }
}

// WithModelName sets the model name shown in the header.
func WithModelName(name string) Option {
	return func(m *Model) { m.modelName = name }
}

// WithLogger sets the view logger.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Model) { m.log = log.With().Str("component", "ui").Logger() }
}

// New creates a chat model driving ctrl. ctx bounds every turn started from
// the view; cancelling it aborts the in-flight request.
func New(ctx context.Context, ctrl *turn.Controller, theme *styles.Theme, opts ...Option) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message..."
	ti.CharLimit = 16384
	ti.PromptStyle = theme.InputPrompt
	ti.PlaceholderStyle = theme.InputPlaceholder
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	sp := spinner.New()
	sp.Spinner = styles.PendingSpinner.Spinner()
	sp.Style = theme.Pending

	m := Model{
		ctx:      ctx,
		ctrl:     ctrl,
		conv:     ctrl.Conversation(),
		log:      zerolog.Nop(),
		theme:    theme,
		keyMap:   DefaultKeyMap(),
		input:    ti,
		viewport: vp,
		spinner:   sp,
		markdown:  true,
		optimizer: NewViewportOptimizer(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// View renders the complete chat view.
func (m Model) View() string {
	return m.renderChat()
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Controller returns the turn controller.
func (m Model) Controller() *turn.Controller {
	return m.ctrl
}

// InputValue returns the current input text.
func (m Model) InputValue() string {
	return m.input.Value()
}

// SetInputValue replaces the input text.
func (m *Model) SetInputValue(s string) {
	m.input.SetValue(s)
}

// ModelName returns the model name shown in the header.
func (m Model) ModelName() string {
	return m.modelName
}

// RenderedVersion returns the conversation version the viewport was last
// built from.
func (m Model) RenderedVersion() uint64 {
	return m.optimizer.Version()
}

// RenderStats returns how many viewport refreshes re-rendered the history
// and how many reused it.
func (m Model) RenderStats() (rebuilds, skips uint64) {
	return m.optimizer.Stats()
}
