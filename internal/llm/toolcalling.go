package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sgrlabs/agentcore/internal/research"
	"github.com/sgrlabs/agentcore/internal/schema"
)

// ToolCallingAdapter is the legacy function-calling strategy: two
// non-streaming calls per iteration. The first forces a standalone
// "reasoning" function so the reasoning block is captured on its own, the
// second offers every allowed action tool with function_call="auto".
type ToolCallingAdapter struct {
	Client *Client
}

const reasoningFunctionName = "reasoning"

// NextStep implements Adapter. It never streams; sink is accepted only to
// satisfy the interface and is never invoked.
func (a *ToolCallingAdapter) NextStep(ctx context.Context, messages []research.Message, tools []schema.ToolSpec, sink Sink) (NextStep, error) {
	reasoningSchema, err := schema.ReasoningBlockSchema()
	if err != nil {
		return NextStep{}, fmt.Errorf("tool-calling adapter: %w", err)
	}

	reasoningResp, err := a.Client.Complete(ctx, CompletionRequest{
		Messages: messages,
		Functions: []Function{{
			Name:        reasoningFunctionName,
			Description: "Record step-by-step reasoning about the current research situation before acting.",
			Parameters:  reasoningSchema,
		}},
		FunctionCall: map[string]string{"name": reasoningFunctionName},
	})
	if err != nil {
		return NextStep{}, fmt.Errorf("tool-calling adapter: reasoning call: %w", err)
	}
	if reasoningResp.Message.FunctionCall == nil {
		return NextStep{}, fmt.Errorf("tool-calling adapter: model did not return the forced reasoning call")
	}

	if err := schema.Validate(reasoningSchema, []byte(reasoningResp.Message.FunctionCall.Arguments)); err != nil {
		return NextStep{}, fmt.Errorf("tool-calling adapter: reasoning arguments: %w", err)
	}

	var reasoning research.ReasoningSnapshot
	if err := json.Unmarshal([]byte(reasoningResp.Message.FunctionCall.Arguments), &reasoning); err != nil {
		return NextStep{}, fmt.Errorf("tool-calling adapter: parse reasoning arguments: %w", err)
	}

	resultJSON, err := json.MarshalIndent(reasoning, "", "  ")
	if err != nil {
		return NextStep{}, fmt.Errorf("tool-calling adapter: encode reasoning result: %w", err)
	}

	transcript := []research.Message{
		{
			Role:         "assistant",
			FunctionCall: reasoningResp.Message.FunctionCall,
		},
		{
			Role:    "function",
			Name:    reasoningFunctionName,
			Content: string(resultJSON),
		},
	}

	actionFunctions := make([]Function, 0, len(tools))
	argSchemas := make(map[string]map[string]any, len(tools))
	for _, t := range tools {
		paramSchema, err := schema.ArgsSchema(t.Args)
		if err != nil {
			return NextStep{}, fmt.Errorf("tool-calling adapter: schema for %s: %w", t.Name, err)
		}
		actionFunctions = append(actionFunctions, Function{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  paramSchema,
		})
		argSchemas[t.Name] = paramSchema
	}

	actionMessages := append(append([]research.Message{}, messages...), transcript...)
	actionResp, err := a.Client.Complete(ctx, CompletionRequest{
		Messages:     actionMessages,
		Functions:    actionFunctions,
		FunctionCall: "auto",
	})
	if err != nil {
		return NextStep{}, fmt.Errorf("tool-calling adapter: action call: %w", err)
	}

	if actionResp.Message.FunctionCall != nil {
		name := actionResp.Message.FunctionCall.Name
		if argSchema, ok := argSchemas[name]; ok {
			if err := schema.Validate(argSchema, []byte(actionResp.Message.FunctionCall.Arguments)); err != nil {
				return NextStep{}, fmt.Errorf("tool-calling adapter: %s arguments: %w", name, err)
			}
		}
		return NextStep{
			Reasoning:  reasoning,
			ToolName:   name,
			Arguments:  json.RawMessage(actionResp.Message.FunctionCall.Arguments),
			Transcript: transcript,
		}, nil
	}

	if actionResp.Message.Content != "" {
		fallback, err := json.Marshal(map[string]any{
			"reasoning":       "No tool call returned; treating the model's final message as the answer.",
			"completed_steps": []string{},
			"answer":          actionResp.Message.Content,
			"status":          "completed",
		})
		if err != nil {
			return NextStep{}, fmt.Errorf("tool-calling adapter: encode fallback final answer: %w", err)
		}
		return NextStep{
			Reasoning:  reasoning,
			ToolName:   "final_answer",
			Arguments:  fallback,
			Transcript: transcript,
		}, nil
	}

	return NextStep{}, fmt.Errorf("tool-calling adapter: model returned neither a function call nor content")
}
