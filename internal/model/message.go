// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the wire name of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "AI"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single entry in the conversation log.
// Content is mutable only through the owning Conversation.
type Message struct {
	ID        int64
	Role      Role
	Content   string
	CreatedAt time.Time
}

// NewMessage creates a message with a caller-allocated id.
func NewMessage(id int64, role Role, content string) Message {
	return Message{
		ID:        id,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// IsEmpty returns true if the message has no content yet.
func (m Message) IsEmpty() bool {
	return m.Content == ""
}

// =============================================================================
// ID SEQUENCE
// =============================================================================

// IDSequence hands out strictly increasing message ids starting at 0.
// It is not safe for concurrent use; the submit path owns it.
type IDSequence struct {
	next int64
}

// NewIDSequence creates a sequence whose first id is 0.
func NewIDSequence() *IDSequence {
	return &IDSequence{}
}

// Next returns the next id.
func (s *IDSequence) Next() int64 {
	id := s.next
	s.next++
	return id
}

// Peek returns the id Next would return, without consuming it.
func (s *IDSequence) Peek() int64 {
	return s.next
}
