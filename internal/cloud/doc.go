// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud talks to an OpenAI-compatible chat completions API.
//
// Only the streaming endpoint is used. The response body is read line by
// line as server-sent events; every non-empty content delta is handed to the
// caller as soon as its line has been decoded.
//
// # Key Types
//
//   - Client: HTTP client bound to one API key, base URL and default model
//   - ChatMessage, ChatRequest: request wire format
//   - StreamChunk: one decoded `data:` payload
//   - SSEReader: line reader over the response body
//   - APIError, StreamError: typed failures (non-2xx status, broken stream)
//
// # Usage
//
//	client := cloud.NewClient(apiKey).WithModel("gpt-5-mini")
//	err := client.Stream(ctx, cloud.ChatRequest{
//	    Messages: []cloud.ChatMessage{cloud.NewUserMessage("Hello")},
//	}, func(fragment string) {
//	    fmt.Print(fragment)
//	})
//
// Stream blocks until the server sends `[DONE]`, closes the body, the
// context is canceled or the connection breaks. Fragments delivered before
// a failure remain valid.
//
// # Security
//
// The API key is sent only in the Authorization header and never logged;
// logs carry a short SHA-256 fingerprint instead. Requests require TLS 1.2+.
package cloud
