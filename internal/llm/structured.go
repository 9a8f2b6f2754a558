package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sgrlabs/agentcore/internal/research"
	"github.com/sgrlabs/agentcore/internal/schema"
)

// StructuredAdapter is the structured-output/streaming strategy: a single
// combined call asks the model to fill the reasoning-plus-tool-union
// schema in one response_format-constrained response, streamed chunk by
// chunk as it arrives.
type StructuredAdapter struct {
	Client *Client
}

// NextStep implements Adapter.
func (a *StructuredAdapter) NextStep(ctx context.Context, messages []research.Message, tools []schema.ToolSpec, sink Sink) (NextStep, error) {
	respSchema, err := schema.BuildNextStep(tools)
	if err != nil {
		return NextStep{}, err
	}

	content, err := a.Client.Stream(ctx, CompletionRequest{Messages: messages}, respSchema, func(c StreamChunk) {
		if sink == nil {
			return
		}
		sink.AddRawChunk(c)
	})
	if err != nil {
		return NextStep{}, fmt.Errorf("structured adapter: %w", err)
	}

	if err := schema.Validate(respSchema, []byte(content)); err != nil {
		return NextStep{}, fmt.Errorf("structured adapter: %w", err)
	}

	var reasoning research.ReasoningSnapshot
	if err := json.Unmarshal([]byte(content), &reasoning); err != nil {
		return NextStep{}, fmt.Errorf("structured adapter: parse reasoning: %w", err)
	}

	var envelope struct {
		Function json.RawMessage `json:"function"`
	}
	if err := json.Unmarshal([]byte(content), &envelope); err != nil || envelope.Function == nil {
		return NextStep{}, fmt.Errorf("structured adapter: response missing required function field")
	}

	var disc struct {
		ToolName string `json:"tool_name_discriminator"`
	}
	if err := json.Unmarshal(envelope.Function, &disc); err != nil || disc.ToolName == "" {
		return NextStep{}, fmt.Errorf("structured adapter: response missing tool_name_discriminator")
	}

	return NextStep{Reasoning: reasoning, ToolName: disc.ToolName, Arguments: envelope.Function}, nil
}
