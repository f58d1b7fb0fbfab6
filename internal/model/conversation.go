// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"fmt"
)

// DefaultMaxMessages is the retention cap of a conversation log.
// Kept even so that eviction always removes whole turns.
const DefaultMaxMessages = 200

// ErrMessageNotFound is returned when a mutation targets an id that is not
// (or no longer) in the log.
var ErrMessageNotFound = errors.New("message not found")

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is the ordered, size-bounded conversation log.
//
// Insertion order is conversation order and ids are strictly increasing.
// After every Append, while the log exceeds its cap the two oldest entries
// are removed, so a User/Assistant pair is never split.
type Conversation struct {
	messages []Message
	max      int
	version  uint64
	hooks    []func()
}

// NewConversation creates an empty log with the given cap.
// Caps below 2 fall back to DefaultMaxMessages; odd caps are rounded up.
func NewConversation(maxMessages int) *Conversation {
	if maxMessages < 2 {
		maxMessages = DefaultMaxMessages
	}
	if maxMessages%2 != 0 {
		maxMessages++
	}
	return &Conversation{
		messages: make([]Message, 0, 16),
		max:      maxMessages,
	}
}

// OnChange registers a hook called after every mutation.
// Hooks run synchronously on the caller's goroutine.
func (c *Conversation) OnChange(fn func()) {
	if fn != nil {
		c.hooks = append(c.hooks, fn)
	}
}

// =============================================================================
// MUTATION
// =============================================================================

// Append adds msg at the end of the log and applies retention.
// The id is supplied by the caller and must be greater than every id already
// present.
func (c *Conversation) Append(msg Message) error {
	if n := len(c.messages); n > 0 && msg.ID <= c.messages[n-1].ID {
		return fmt.Errorf("append message %d: id not after %d", msg.ID, c.messages[n-1].ID)
	}
	c.messages = append(c.messages, msg)
	c.pruneOldMessages()
	c.changed()
	return nil
}

// FindMutable returns a pointer to the message with the given id, or nil.
// The pointer is only valid until the next Append.
func (c *Conversation) FindMutable(id int64) *Message {
	i := c.indexOf(id)
	if i < 0 {
		return nil
	}
	return &c.messages[i]
}

// SetContent replaces the content of message id.
func (c *Conversation) SetContent(id int64, content string) error {
	msg := c.FindMutable(id)
	if msg == nil {
		return fmt.Errorf("set content of %d: %w", id, ErrMessageNotFound)
	}
	msg.Content = content
	c.changed()
	return nil
}

// AppendContent appends text to the content of message id.
func (c *Conversation) AppendContent(id int64, text string) error {
	msg := c.FindMutable(id)
	if msg == nil {
		return fmt.Errorf("append content to %d: %w", id, ErrMessageNotFound)
	}
	msg.Content += text
	c.changed()
	return nil
}

// =============================================================================
// READS
// =============================================================================

// Len returns the number of messages in the log.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// MaxMessages returns the retention cap.
func (c *Conversation) MaxMessages() int {
	return c.max
}

// Version increases on every mutation. Renderers compare it to skip
// rebuilding unchanged views.
func (c *Conversation) Version() uint64 {
	return c.version
}

// Messages returns a copy of the log.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// HistoryBefore returns a copy of every message that precedes id.
// If id is not present the whole log is returned.
func (c *Conversation) HistoryBefore(id int64) []Message {
	end := c.indexOf(id)
	if end < 0 {
		end = len(c.messages)
	}
	out := make([]Message, end)
	copy(out, c.messages[:end])
	return out
}

// Last returns the most recent message, or false if the log is empty.
func (c *Conversation) Last() (Message, bool) {
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// =============================================================================
// INTERNAL
// =============================================================================

// indexOf binary searches the id; ids are strictly increasing.
func (c *Conversation) indexOf(id int64) int {
	lo, hi := 0, len(c.messages)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if c.messages[mid].ID < id {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(c.messages) && c.messages[lo].ID == id {
		return lo
	}
	return -1
}

// pruneOldMessages drops the oldest turn while the log is over its cap.
func (c *Conversation) pruneOldMessages() {
	for len(c.messages) > c.max {
		n := copy(c.messages, c.messages[2:])
		clear(c.messages[n:])
		c.messages = c.messages[:n]
	}
}

func (c *Conversation) changed() {
	c.version++
	for _, fn := range c.hooks {
		fn()
	}
}
