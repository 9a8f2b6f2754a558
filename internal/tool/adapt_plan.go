package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sgrlabs/agentcore/internal/research"
)

func init() {
	Register("adapt_plan", func(Deps) Tool { return &AdaptPlanTool{} })
}

// AdaptPlanArgs is the argument schema for AdaptPlanTool.
type AdaptPlanArgs struct {
	Reasoning    string   `json:"reasoning" jsonschema:"required,description=Why plan needs adaptation based on new data"`
	OriginalGoal string   `json:"original_goal" jsonschema:"required,description=Original research goal"`
	NewGoal      string   `json:"new_goal" jsonschema:"required,description=Updated research goal"`
	PlanChanges  []string `json:"plan_changes" jsonschema:"required,minItems=1,maxItems=3,description=Specific changes made to plan"`
	NextSteps    []string `json:"next_steps" jsonschema:"required,minItems=2,maxItems=4,description=Updated remaining steps"`
}

// AdaptPlanTool revises the research plan based on new findings.
type AdaptPlanTool struct{}

func (t *AdaptPlanTool) Name() string { return "adapt_plan" }

func (t *AdaptPlanTool) Description() string {
	return "Adapt the research plan based on new findings."
}

func (t *AdaptPlanTool) ArgsPrototype() any { return &AdaptPlanArgs{} }

func (t *AdaptPlanTool) Invoke(_ context.Context, _ *research.Context, raw json.RawMessage) (string, error) {
	var args AdaptPlanArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("adapt_plan: decode args: %w", err)
	}
	out, err := json.MarshalIndent(struct {
		OriginalGoal string   `json:"original_goal"`
		NewGoal      string   `json:"new_goal"`
		PlanChanges  []string `json:"plan_changes"`
		NextSteps    []string `json:"next_steps"`
	}{args.OriginalGoal, args.NewGoal, args.PlanChanges, args.NextSteps}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
