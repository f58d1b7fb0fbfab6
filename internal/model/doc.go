// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the conversation log and its messages.
//
// # Key Types
//
//   - Message: one entry of the log (id, role, mutable content)
//   - Role: user or assistant
//   - Conversation: ordered, size-bounded log with a single writer
//   - IDSequence: monotonic id allocator used by the turn controller
//
// # Ownership
//
// A Conversation has no locks. It belongs to the goroutine that runs the UI
// update loop; the turn pipeline mutates it only from that goroutine and the
// renderer reads it from the same place, so a render never observes a
// message halfway through a mutation.
//
// # Usage
//
//	conv := model.NewConversation(model.DefaultMaxMessages)
//	ids := model.NewIDSequence()
//	conv.Append(model.NewMessage(ids.Next(), model.RoleUser, "Hello"))
//	conv.Append(model.NewMessage(ids.Next(), model.RoleAssistant, ""))
package model
