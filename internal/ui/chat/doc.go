// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the interactive chat view of rigchat.

The view is a Bubble Tea model on top of a turn.Controller. The Bubble Tea
event loop is the consumer goroutine: it is the only code that submits
turns, applies turn events and reads the conversation.

# Key Components

## Model (model.go)

Holds the input box, the scrollback viewport, the pending spinner and an
optional glamour renderer for assistant messages.

## Update Loop (update.go)

  - Enter submits the input; it is cleared only when the controller accepted
    the submission.
  - WaitForTurnEvent blocks in a tea.Cmd on the turn queue and returns the
    event as a TurnEventMsg; the loop re-arms it until the terminal event.
  - Scroll keys go to the viewport, everything else to the input.

## View Rendering (view.go)

Header, messages, input box and a status bar with the turn state and the
statistics of the last turn. The message history is re-rendered only when
the conversation version moved (viewport_optimizer.go); an assistant
message with no text yet is drawn as a spinner.

# Usage

	theme := styles.NewTheme(cfg.UI.Theme)
	m := chat.New(ctx, ctrl, theme, chat.WithModelName(cfg.API.Model))
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
*/
package chat
