// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// STREAMING TYPES
// =============================================================================

// doneSentinel is the payload that ends a completion stream.
var doneSentinel = []byte("[DONE]")

// StreamChunk represents a single decoded `data:` payload.
type StreamChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
			Role    string `json:"role,omitempty"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// GetContent returns the content of the first choice's delta.
func (c *StreamChunk) GetContent() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return ""
}

// GetFinishReason returns the finish reason of the first choice, if any.
func (c *StreamChunk) GetFinishReason() string {
	if len(c.Choices) > 0 && c.Choices[0].FinishReason != nil {
		return *c.Choices[0].FinishReason
	}
	return ""
}

// FragmentFunc receives one content fragment. It is called on the goroutine
// that runs Stream, in arrival order.
type FragmentFunc func(fragment string)

// StreamError is a read failure after the response headers arrived.
// Fragments delivered before the failure remain valid.
type StreamError struct {
	Delivered int // fragments handed to the caller before the failure
	Err       error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Delivered > 0 {
		return fmt.Sprintf("stream interrupted after %d fragments: %v", e.Delivered, e.Err)
	}
	return fmt.Sprintf("stream interrupted: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader reads a server-sent-events body one line at a time.
// Lines have no length limit.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{
		reader: bufio.NewReader(r),
	}
}

// ReadLine returns the next line without its trailing CR/LF.
// A final unterminated line is returned together with io.EOF.
func (s *SSEReader) ReadLine() ([]byte, error) {
	line, err := s.reader.ReadBytes('\n')
	return bytes.TrimRight(line, "\r\n"), err
}

// dataPayload extracts the payload of a `data:` line. Any other line
// (event:, id:, retry:, comments, blanks) reports ok == false.
func dataPayload(line []byte) (payload []byte, ok bool) {
	rest, found := bytes.CutPrefix(line, []byte("data:"))
	if !found {
		return nil, false
	}
	rest = bytes.TrimPrefix(rest, []byte(" "))
	return rest, true
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// Stream performs a streaming chat completion and calls onFragment for each
// non-empty content delta, in order.
//
// It returns nil when the server sends [DONE] or closes the body cleanly.
// Request, connection and status failures are returned before any fragment
// is delivered; a broken body is returned as *StreamError.
func (c *Client) Stream(ctx context.Context, request ChatRequest, onFragment FragmentFunc) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	request.Stream = true
	if request.Model == "" {
		request.Model = c.model
	}
	if c.systemPrompt != "" && (len(request.Messages) == 0 || request.Messages[0].Role != "system") {
		request.Messages = append([]ChatMessage{NewSystemMessage(c.systemPrompt)}, request.Messages...)
	}

	bodyBytes, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	c.log.Debug().
		Str("model", request.Model).
		Int("messages", len(request.Messages)).
		Str("key", c.KeyFingerprint()).
		Msg("stream request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("stream response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return handleErrorResponse(resp)
	}

	return c.processStream(ctx, resp.Body, onFragment)
}

// processStream reads the SSE body until [DONE], EOF or an error.
func (c *Client) processStream(ctx context.Context, body io.Reader, onFragment FragmentFunc) error {
	reader := NewSSEReader(body)
	delivered := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, readErr := reader.ReadLine()

		if payload, ok := dataPayload(line); ok {
			if bytes.Equal(bytes.TrimSpace(payload), doneSentinel) {
				return nil
			}
			if fragment := c.decodeFragment(payload); fragment != "" {
				delivered++
				if onFragment != nil {
					onFragment(fragment)
				}
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			return &StreamError{Delivered: delivered, Err: readErr}
		}
	}
}

// decodeFragment returns the content delta of one payload. Payloads that do
// not decode are skipped.
func (c *Client) decodeFragment(payload []byte) string {
	if len(bytes.TrimSpace(payload)) == 0 {
		return ""
	}
	var chunk StreamChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		c.log.Debug().
			Err(err).
			Str("payload", util.TruncateRunes(string(payload), 120)).
			Msg("skipping undecodable stream line")
		return ""
	}
	return chunk.GetContent()
}
