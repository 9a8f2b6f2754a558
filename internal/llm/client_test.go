package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgrlabs/agentcore/internal/research"
)

func TestClientCompleteDecodesFunctionCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)

		fmt.Fprint(w, `{
			"choices": [{
				"message": {"role": "assistant", "function_call": {"name": "reasoning", "arguments": "{\"task_completed\":false}"}},
				"finish_reason": "function_call"
			}],
			"usage": {"total_tokens": 123}
		}`)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "test-key", "gpt-test", "")
	require.NoError(t, err)

	resp, err := c.Complete(context.Background(), CompletionRequest{
		Messages: []research.Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Message.FunctionCall)
	assert.Equal(t, "reasoning", resp.Message.FunctionCall.Name)
	assert.Equal(t, 123, resp.TotalTokens)
}

func TestClientCompleteReturnsErrorOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, "rate limited")
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "test-key", "gpt-test", "")
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), CompletionRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestClientStreamForwardsChunksAndAccumulatesContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.True(t, req.Stream)
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, "json_schema", req.ResponseFormat.Type)

		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"{\\\"a\\\":\"},\"finish_reason\":null,\"logprobs\":null}]}\n\n")
		flusher.Flush()
		fmt.Fprint(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"1}\"},\"finish_reason\":null,\"logprobs\":null}]}\n\n")
		flusher.Flush()
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "test-key", "gpt-test", "")
	require.NoError(t, err)

	var forwarded []StreamChunk
	content, err := c.Stream(context.Background(), CompletionRequest{
		Messages: []research.Message{{Role: "user", Content: "hi"}},
	}, map[string]any{"type": "object"}, func(chunk StreamChunk) {
		forwarded = append(forwarded, chunk)
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, content)
	assert.Len(t, forwarded, 2)
}
