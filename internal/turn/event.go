// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package turn

// Event is one item delivered from the worker to the consumer.
// Exactly one event per turn has Done set; it is always the last one.
type Event struct {
	Fragment string
	Done     bool
	Err      error // terminal result, only meaningful when Done
}

// IsTerminal reports whether this is the final event of the turn.
func (e Event) IsTerminal() bool {
	return e.Done
}
