package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgrlabs/agentcore/internal/research"
	"github.com/sgrlabs/agentcore/internal/schema"
)

func TestToolCallingAdapterTwoCallSequence(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			assert.Len(t, req.Functions, 1)
			assert.Equal(t, reasoningFunctionName, req.Functions[0].Name)
			fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","function_call":{"name":"reasoning",`+
				`"arguments":"{\"reasoning_steps\":[\"a\",\"b\"],\"current_situation\":\"x\",\"plan_status\":\"y\",`+
				`\"enough_data\":false,\"remaining_steps\":[\"z\"],\"task_completed\":false}"}},`+
				`"finish_reason":"function_call"}],"usage":{"total_tokens":10}}`)
			return
		}

		assert.Equal(t, "auto", req.FunctionCall)
		require.Len(t, req.Messages, 3, "should carry the original message plus the reasoning transcript pair")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","function_call":{"name":"web_search",`+
			`"arguments":"{\"query\":\"golang\"}"}},"finish_reason":"function_call"}],"usage":{"total_tokens":5}}`)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "key", "model", "")
	require.NoError(t, err)
	adapter := &ToolCallingAdapter{Client: client}

	step, err := adapter.NextStep(context.Background(), []research.Message{{Role: "user", Content: "go"}},
		[]schema.ToolSpec{{Name: "web_search", Description: "search", Args: &webSearchArgs{}}}, nil)
	require.NoError(t, err)

	assert.Equal(t, "web_search", step.ToolName)
	assert.JSONEq(t, `{"query":"golang"}`, string(step.Arguments))
	assert.Equal(t, []string{"a", "b"}, step.Reasoning.ReasoningSteps)
	require.Len(t, step.Transcript, 2)
	assert.Equal(t, "assistant", step.Transcript[0].Role)
	assert.Equal(t, "function", step.Transcript[1].Role)
	assert.Equal(t, reasoningFunctionName, step.Transcript[1].Name)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestToolCallingAdapterFallsBackToFinalAnswerOnContentOnly(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","function_call":{"name":"reasoning",`+
				`"arguments":"{\"reasoning_steps\":[\"a\",\"b\"],\"current_situation\":\"x\",\"plan_status\":\"y\",`+
				`\"enough_data\":true,\"remaining_steps\":[\"z\"],\"task_completed\":true}"}},`+
				`"finish_reason":"function_call"}],"usage":{}}`)
			return
		}
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"the final answer text"},`+
			`"finish_reason":"stop"}],"usage":{}}`)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "key", "model", "")
	require.NoError(t, err)
	adapter := &ToolCallingAdapter{Client: client}

	step, err := adapter.NextStep(context.Background(), []research.Message{{Role: "user", Content: "go"}}, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "final_answer", step.ToolName)
	var args map[string]any
	require.NoError(t, json.Unmarshal(step.Arguments, &args))
	assert.Equal(t, "the final answer text", args["answer"])
	assert.Equal(t, "completed", args["status"])
}
