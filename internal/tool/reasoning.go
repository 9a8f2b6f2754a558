package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sgrlabs/agentcore/internal/research"
)

func init() {
	Register("reasoning", func(Deps) Tool { return &ReasoningTool{} })
}

// ReasoningArgs is the argument schema for ReasoningTool.
type ReasoningArgs struct {
	ReasoningSteps   []string `json:"reasoning_steps" jsonschema:"required,minItems=2,maxItems=3,description=Step-by-step reasoning (brief, 1 sentence each)"`
	CurrentSituation string   `json:"current_situation" jsonschema:"required,maxLength=300,description=Current research situation (2-3 sentences MAX)"`
	PlanStatus       string   `json:"plan_status" jsonschema:"required,maxLength=150,description=Status of current plan (1 sentence)"`
	EnoughData       bool     `json:"enough_data" jsonschema:"description=Sufficient data collected for comprehensive report?"`
	RemainingSteps   []string `json:"remaining_steps" jsonschema:"required,minItems=1,maxItems=3,description=1-3 remaining steps (brief, action-oriented)"`
	TaskCompleted    bool     `json:"task_completed" jsonschema:"required,description=Is the research task finished?"`
}

// ReasoningTool records the agent's reasoning about its current research
// state ahead of selecting a next action. The loop invokes it only in an
// iteration where the model selects it; it never ends the loop by itself.
type ReasoningTool struct{}

func (t *ReasoningTool) Name() string { return "reasoning" }

func (t *ReasoningTool) Description() string {
	return "Determine the next reasoning step with adaptive planning. Keep all text fields concise and focused."
}

func (t *ReasoningTool) ArgsPrototype() any { return &ReasoningArgs{} }

func (t *ReasoningTool) Invoke(_ context.Context, rc *research.Context, raw json.RawMessage) (string, error) {
	var args ReasoningArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("reasoning: decode args: %w", err)
	}
	rc.SetReasoning(&research.ReasoningSnapshot{
		ReasoningSteps:   args.ReasoningSteps,
		CurrentSituation: args.CurrentSituation,
		PlanStatus:       args.PlanStatus,
		EnoughData:       args.EnoughData,
		RemainingSteps:   args.RemainingSteps,
		TaskCompleted:    args.TaskCompleted,
	})
	out, err := json.MarshalIndent(args, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
