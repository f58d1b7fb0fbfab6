// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Headless single-turn command.
//
// Command: ask <prompt>
//
// Examples:
//
//	rigchat ask "What is the capital of France?"
//	git diff | rigchat ask -
//
// The reply is written to stdout as the conversation is flushed, so the
// output follows the same debounce as the chat view. A failed turn ends with
// the error notice and exit status 1.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/rigchat/internal/turn"
)

// MaxStdinPrompt bounds a prompt read from stdin.
const MaxStdinPrompt = 1 << 20

// ReadPrompt returns prompt, or the contents of r when prompt is "-".
func ReadPrompt(prompt string, r io.Reader) (string, error) {
	if prompt != "-" {
		return prompt, nil
	}
	data, err := io.ReadAll(io.LimitReader(r, MaxStdinPrompt))
	if err != nil {
		return "", fmt.Errorf("failed to read prompt from stdin: %w", err)
	}
	return string(data), nil
}

// RunAsk submits prompt through ctrl, writes the reply to out as it is
// flushed into the conversation, and waits for the turn to end.
func RunAsk(ctx context.Context, ctrl *turn.Controller, prompt string, out io.Writer) error {
	conv := ctrl.Conversation()

	var (
		target   = turn.NoTarget
		written  int
		lastByte byte
		writeErr error
	)
	// Flushes only ever extend the target's content, so the unwritten part
	// is always the suffix after what has been written.
	conv.OnChange(func() {
		if target == turn.NoTarget || writeErr != nil {
			return
		}
		msg := conv.FindMutable(target)
		if msg == nil || len(msg.Content) <= written {
			return
		}
		delta := msg.Content[written:]
		if _, writeErr = io.WriteString(out, delta); writeErr != nil {
			return
		}
		written = len(msg.Content)
		lastByte = delta[len(delta)-1]
	})

	t, ok := ctrl.Submit(ctx, prompt)
	if !ok {
		if strings.TrimSpace(prompt) == "" {
			return NewUsageError("prompt is empty", "rigchat ask <prompt>")
		}
		return errors.New("a turn is already running")
	}
	target = t.Target

	if err := ctrl.Drain(ctx, t); err != nil {
		return err
	}

	if written > 0 && lastByte != '\n' && writeErr == nil {
		_, writeErr = io.WriteString(out, "\n")
	}
	if t.Err() != nil {
		return fmt.Errorf("%w: %w", ErrTurnFailed, t.Err())
	}
	if writeErr != nil {
		return fmt.Errorf("failed to write reply: %w", writeErr)
	}
	return nil
}
