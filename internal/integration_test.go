// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package internal provides end-to-end tests for the rigchat turn stack.
//
// These tests drive a real cloud.Client against an httptest SSE server and
// verify:
//   - Fragment streaming into the conversation
//   - Error notices after partial replies and HTTP failures
//   - Turn journal recording
//   - History sent with follow-up turns
package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/cloud"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/telemetry"
	"github.com/jeranaias/rigchat/internal/turn"
)

// =============================================================================
// TEST UTILITIES
// =============================================================================

// completionServer replies to each request with the next scripted body. It
// records the decoded requests it saw.
type completionServer struct {
	*httptest.Server

	mu       sync.Mutex
	bodies   []string
	status   int
	requests []cloud.ChatRequest
}

func newCompletionServer(t *testing.T, bodies ...string) *completionServer {
	t.Helper()
	s := &completionServer{bodies: bodies, status: http.StatusOK}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *completionServer) serve(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var req cloud.ChatRequest
	_ = json.Unmarshal(raw, &req)

	s.mu.Lock()
	s.requests = append(s.requests, req)
	var body string
	if len(s.bodies) > 0 {
		body, s.bodies = s.bodies[0], s.bodies[1:]
	}
	status := s.status
	s.mu.Unlock()

	if status != http.StatusOK {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, body)
}

func (s *completionServer) Requests() []cloud.ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]cloud.ChatRequest(nil), s.requests...)
}

// sse builds an event stream body with one content delta per fragment.
func sse(done bool, fragments ...string) string {
	var b strings.Builder
	for _, f := range fragments {
		delta, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{{"delta": map[string]string{"content": f}}},
		})
		fmt.Fprintf(&b, "data: %s\n\n", delta)
	}
	if done {
		b.WriteString("data: [DONE]\n\n")
	}
	return b.String()
}

type stack struct {
	conv     *model.Conversation
	ctrl     *turn.Controller
	recorder telemetry.Recorder
}

func newStack(t *testing.T, server *completionServer, recorder telemetry.Recorder) stack {
	t.Helper()
	client := cloud.NewClient("sk-test").
		WithBaseURL(server.URL).
		WithModel("gpt-5-mini")
	pipeline := turn.NewPipeline(client,
		turn.WithModel("gpt-5-mini"),
		turn.WithDebounce(0),
		turn.WithLogger(zerolog.Nop()),
		turn.WithRecorder(recorder),
	)
	conv := model.NewConversation(model.DefaultMaxMessages)
	return stack{
		conv:     conv,
		ctrl:     turn.NewController(conv, pipeline, zerolog.Nop()),
		recorder: recorder,
	}
}

func (s stack) ask(t *testing.T, prompt string) *turn.Turn {
	t.Helper()
	tr, ok := s.ctrl.Submit(t.Context(), prompt)
	require.True(t, ok, "submit %q rejected", prompt)
	require.NoError(t, s.ctrl.Drain(t.Context(), tr))
	return tr
}

// =============================================================================
// END-TO-END TURNS
// =============================================================================

func TestEndToEnd_StreamedReply(t *testing.T) {
	server := newCompletionServer(t, sse(true, "Hel", "lo", " there"))
	s := newStack(t, server, telemetry.NopRecorder{})

	tr := s.ask(t, "hi")
	require.NoError(t, tr.Err())

	msgs := s.conv.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Hello there", msgs[1].Content)

	assert.Equal(t, turn.Idle, s.ctrl.State())
	assert.Equal(t, 3, tr.Stats().Fragments)
}

func TestEndToEnd_EOFWithoutDone(t *testing.T) {
	server := newCompletionServer(t, sse(false, "partial", " but fine"))
	s := newStack(t, server, telemetry.NopRecorder{})

	tr := s.ask(t, "hi")
	assert.NoError(t, tr.Err())

	last, ok := s.conv.Last()
	require.True(t, ok)
	assert.Equal(t, "partial but fine", last.Content)
}

func TestEndToEnd_FollowUpSendsHistory(t *testing.T) {
	server := newCompletionServer(t,
		sse(true, "Paris"),
		sse(true, "About 2.1 million"),
	)
	s := newStack(t, server, telemetry.NopRecorder{})

	s.ask(t, "Capital of France?")
	s.ask(t, "Population?")

	reqs := server.Requests()
	require.Len(t, reqs, 2)

	first := reqs[0]
	assert.True(t, first.Stream)
	assert.Equal(t, "gpt-5-mini", first.Model)
	require.Len(t, first.Messages, 1)
	assert.Equal(t, "Capital of France?", first.Messages[0].Content)

	second := reqs[1].Messages
	require.Len(t, second, 3, "placeholder must not be sent")
	assert.Equal(t, "user", second[0].Role)
	assert.Equal(t, "assistant", second[1].Role)
	assert.Equal(t, "Paris", second[1].Content)
	assert.Equal(t, "Population?", second[2].Content)

	assert.Equal(t, 4, s.conv.Len())
}

func TestEndToEnd_HTTPErrorBecomesNotice(t *testing.T) {
	server := newCompletionServer(t, `{"error":{"message":"invalid api key","type":"invalid_request_error"}}`)
	server.status = http.StatusUnauthorized
	s := newStack(t, server, telemetry.NopRecorder{})

	tr := s.ask(t, "hi")
	require.Error(t, tr.Err())
	assert.ErrorIs(t, tr.Err(), cloud.ErrAuthFailed)

	last, ok := s.conv.Last()
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(last.Content, "Error: "), "got %q", last.Content)
	assert.Contains(t, last.Content, "invalid api key")
	assert.Equal(t, turn.Idle, s.ctrl.State())
}

func TestEndToEnd_MalformedChunkIgnored(t *testing.T) {
	body := sse(false, "A") + "data: {not json}\n\n" + ": keep-alive\n\n" + sse(true, "B")
	server := newCompletionServer(t, body)
	s := newStack(t, server, telemetry.NopRecorder{})

	tr := s.ask(t, "hi")
	require.NoError(t, tr.Err())

	last, _ := s.conv.Last()
	assert.Equal(t, "AB", last.Content)
}

// =============================================================================
// TELEMETRY
// =============================================================================

func TestEndToEnd_JournalRecordsTurns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "turns.db")
	journal, err := telemetry.OpenJournal(path, "session-e2e")
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })

	server := newCompletionServer(t, sse(true, "one", "two"), `boom`)
	s := newStack(t, server, journal)

	s.ask(t, "first")
	server.mu.Lock()
	server.status = http.StatusInternalServerError
	server.mu.Unlock()
	s.ask(t, "second")

	count, err := journal.Count(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	recent, err := journal.Recent(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	summary := telemetry.Summarize(recent)
	assert.Equal(t, 2, summary.Turns)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.Fragments)
}

// =============================================================================
// CONCURRENCY
// =============================================================================

// Independent conversations share nothing but the HTTP transport.
func TestConcurrency_IndependentControllers(t *testing.T) {
	const workers = 8

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			server := newCompletionServer(t, sse(true, "reply ", fmt.Sprint(i)))
			s := newStack(t, server, telemetry.NopRecorder{})

			tr, ok := s.ctrl.Submit(t.Context(), fmt.Sprintf("question %d", i))
			if !ok {
				errs <- fmt.Errorf("worker %d: submit rejected", i)
				return
			}
			if err := s.ctrl.Drain(t.Context(), tr); err != nil {
				errs <- fmt.Errorf("worker %d: %w", i, err)
				return
			}
			last, _ := s.conv.Last()
			if want := fmt.Sprintf("reply %d", i); last.Content != want {
				errs <- fmt.Errorf("worker %d: got %q, want %q", i, last.Content, want)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}
