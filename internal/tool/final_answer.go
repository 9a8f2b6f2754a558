package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sgrlabs/agentcore/internal/research"
)

func init() {
	Register("final_answer", func(Deps) Tool { return &FinalAnswerTool{} })
}

// FinalAnswerArgs is the argument schema for FinalAnswerTool.
type FinalAnswerArgs struct {
	Reasoning      string   `json:"reasoning" jsonschema:"required,description=Why task is now complete and how answer was verified"`
	CompletedSteps []string `json:"completed_steps" jsonschema:"required,minItems=1,maxItems=5,description=Summary of completed steps including verification"`
	Answer         string   `json:"answer" jsonschema:"required,description=Comprehensive final answer with EXACT factual details (dates, numbers, names)"`
	Status         string   `json:"status" jsonschema:"required,enum=completed,enum=failed,description=Task completion status"`
}

// FinalAnswerTool finalizes the research task and ends agent execution.
// Selecting it is what the agent loop treats as the terminal action.
type FinalAnswerTool struct{}

func (t *FinalAnswerTool) Name() string { return "final_answer" }

func (t *FinalAnswerTool) Description() string {
	return "Finalize the research task and complete agent execution after all steps are done."
}

func (t *FinalAnswerTool) ArgsPrototype() any { return &FinalAnswerArgs{} }

func (t *FinalAnswerTool) Invoke(_ context.Context, rc *research.Context, raw json.RawMessage) (string, error) {
	var args FinalAnswerArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("final_answer: decode args: %w", err)
	}
	var state research.AgentState
	switch args.Status {
	case "completed":
		state = research.StateCompleted
	case "failed":
		state = research.StateFailed
	default:
		return "", fmt.Errorf("final_answer: invalid status %q", args.Status)
	}
	rc.Finalize(state, args.Answer)
	out, err := json.MarshalIndent(args, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
