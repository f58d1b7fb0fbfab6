// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file defines the Bubble Tea messages that carry turn events from the
// worker's queue into the update loop.
package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/rigchat/internal/turn"
)

// =============================================================================
// TURN MESSAGES
// =============================================================================

// TurnEventMsg delivers one queued event of a turn.
type TurnEventMsg struct {
	Turn  *turn.Turn
	Event turn.Event
}

// TurnWaitErrorMsg reports that waiting on a turn's queue failed: the view
// context ended or the queue closed without a terminal event.
type TurnWaitErrorMsg struct {
	Turn *turn.Turn
	Err  error
}

// WaitForTurnEvent blocks in a Bubble Tea command until the next event of t.
// The update loop re-arms it after every non-terminal event.
func WaitForTurnEvent(ctx context.Context, t *turn.Turn) tea.Cmd {
	return func() tea.Msg {
		ev, err := t.Next(ctx)
		if err != nil {
			return TurnWaitErrorMsg{Turn: t, Err: err}
		}
		return TurnEventMsg{Turn: t, Event: ev}
	}
}
