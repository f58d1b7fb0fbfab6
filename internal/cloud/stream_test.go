// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sseServer serves body verbatim as an event stream.
func sseServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

// collect streams from server and returns the fragments in order.
func collect(t *testing.T, client *Client) ([]string, error) {
	t.Helper()
	var fragments []string
	err := client.Stream(context.Background(), ChatRequest{
		Messages: []ChatMessage{NewUserMessage("hi")},
	}, func(f string) {
		fragments = append(fragments, f)
	})
	return fragments, err
}

func delta(content string) string {
	return `data: {"choices":[{"delta":{"content":"` + content + `"},"finish_reason":null}]}` + "\n\n"
}

func TestSSEReader_ReadLine(t *testing.T) {
	reader := NewSSEReader(strings.NewReader("data: a\r\n\nlast"))

	line, err := reader.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "data: a", string(line))

	line, err = reader.ReadLine()
	require.NoError(t, err)
	assert.Empty(t, line)

	line, err = reader.ReadLine()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "last", string(line))
}

func TestSSEReader_LongLine(t *testing.T) {
	long := strings.Repeat("x", 256*1024)
	reader := NewSSEReader(strings.NewReader(long + "\n"))
	line, err := reader.ReadLine()
	require.NoError(t, err)
	assert.Len(t, line, len(long))
}

func TestDataPayload(t *testing.T) {
	tests := []struct {
		line    string
		payload string
		ok      bool
	}{
		{"data: {}", "{}", true},
		{"data:{}", "{}", true},
		{"data:  x", " x", true},
		{"data: [DONE]", "[DONE]", true},
		{"event: message", "", false},
		{": keep-alive", "", false},
		{"id: 7", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		payload, ok := dataPayload([]byte(tt.line))
		assert.Equal(t, tt.ok, ok, tt.line)
		assert.Equal(t, tt.payload, string(payload), tt.line)
	}
}

func TestStream_DeliversFragmentsInOrder(t *testing.T) {
	server := sseServer(t,
		`data: {"choices":[{"delta":{"role":"assistant"},"finish_reason":null}]}`+"\n\n"+
			delta("Hel")+
			delta("lo")+
			`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`+"\n\n"+
			"data: [DONE]\n\n")

	fragments, err := collect(t, NewClient("sk-test").WithBaseURL(server.URL))
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo"}, fragments)
}

func TestStream_DoneEndsStreamEvenWithTrailingData(t *testing.T) {
	server := sseServer(t, delta("A")+"data: [DONE]\n\n"+delta("B"))

	fragments, err := collect(t, NewClient("sk-test").WithBaseURL(server.URL))
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, fragments)
}

func TestStream_SkipsMalformedLines(t *testing.T) {
	var logs bytes.Buffer
	logger := zerolog.New(&logs).Level(zerolog.DebugLevel)

	server := sseServer(t,
		delta("A")+
			"data: {not json\n\n"+
			delta("B")+
			"data: [DONE]\n\n")

	fragments, err := collect(t, NewClient("sk-test").WithBaseURL(server.URL).WithLogger(logger))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, fragments)
	assert.Contains(t, logs.String(), "skipping undecodable stream line")
	assert.Contains(t, logs.String(), "{not json")
}

func TestStream_IgnoresNonDataFraming(t *testing.T) {
	server := sseServer(t,
		": keep-alive\n"+
			"event: completion\n"+
			"id: 1\n"+
			"retry: 1000\n"+
			"\n"+
			delta("ok")+
			"data:\n\n"+
			"data: [DONE]\n")

	fragments, err := collect(t, NewClient("sk-test").WithBaseURL(server.URL))
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, fragments)
}

func TestStream_EOFWithoutDoneIsSuccess(t *testing.T) {
	server := sseServer(t, delta("A")+delta("B"))

	fragments, err := collect(t, NewClient("sk-test").WithBaseURL(server.URL))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, fragments)
}

func TestStream_EmptyBody(t *testing.T) {
	server := sseServer(t, "")

	fragments, err := collect(t, NewClient("sk-test").WithBaseURL(server.URL))
	require.NoError(t, err)
	assert.Empty(t, fragments)
}

func TestProcessStream_ReadErrorKeepsDeliveredFragments(t *testing.T) {
	readErr := errors.New("connection reset by peer")
	body := io.MultiReader(
		strings.NewReader(delta("Hel")+delta("lo")),
		iotest.ErrReader(readErr),
	)

	var fragments []string
	err := NewClient("sk-test").processStream(context.Background(), body, func(f string) {
		fragments = append(fragments, f)
	})

	assert.Equal(t, []string{"Hel", "lo"}, fragments)
	var streamErr *StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, 2, streamErr.Delivered)
	assert.ErrorIs(t, err, readErr)
	assert.Equal(t, "stream interrupted after 2 fragments: connection reset by peer", err.Error())
}

func TestProcessStream_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := NewClient("sk-test").processStream(ctx, strings.NewReader(delta("A")), func(string) { called = true })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestStreamError(t *testing.T) {
	err := &StreamError{Err: io.ErrUnexpectedEOF}
	assert.Equal(t, "stream interrupted: unexpected EOF", err.Error())
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestStreamChunk_Accessors(t *testing.T) {
	var empty StreamChunk
	assert.Equal(t, "", empty.GetContent())
	assert.Equal(t, "", empty.GetFinishReason())
}
