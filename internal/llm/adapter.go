package llm

import (
	"context"
	"encoding/json"

	"github.com/sgrlabs/agentcore/internal/research"
	"github.com/sgrlabs/agentcore/internal/schema"
)

// NextStep is the parsed outcome of one reason-then-select round trip: the
// reasoning snapshot plus the chosen tool's name and raw JSON arguments.
type NextStep struct {
	Reasoning research.ReasoningSnapshot
	ToolName  string
	Arguments json.RawMessage

	// Transcript holds messages an adapter appended to the conversation as
	// part of resolving this step, beyond the final selection the agent
	// loop appends itself — populated only by the legacy strategy's
	// separate forced reasoning call.
	Transcript []research.Message
}

// Sink receives stream events emitted while an adapter resolves a next
// step. *stream.Generator satisfies it.
type Sink interface {
	AddChunkFromStr(content string)
	AddRawChunk(c StreamChunk)
}

// Adapter resolves one agent-loop iteration's next step against an LLM
// backend. Two strategies implement it: StructuredAdapter (a single
// combined streaming call) and ToolCallingAdapter (two non-streaming
// calls: force "reasoning", then select an action with function_call=auto).
type Adapter interface {
	NextStep(ctx context.Context, messages []research.Message, tools []schema.ToolSpec, sink Sink) (NextStep, error)
}
