package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sgrlabs/agentcore/internal/research"
)

func init() {
	Register("generate_plan", func(Deps) Tool { return &GeneratePlanTool{} })
}

// GeneratePlanArgs is the argument schema for GeneratePlanTool.
type GeneratePlanArgs struct {
	Reasoning        string   `json:"reasoning" jsonschema:"required,description=Justification for research approach"`
	ResearchGoal     string   `json:"research_goal" jsonschema:"required,description=Primary research objective"`
	PlannedSteps     []string `json:"planned_steps" jsonschema:"required,minItems=3,maxItems=4,description=List of 3-4 planned steps"`
	SearchStrategies []string `json:"search_strategies" jsonschema:"required,minItems=2,maxItems=3,description=Information search strategies"`
}

// GeneratePlanTool splits a complex request into a manageable research
// plan. Useful as the first tool call once enough context exists.
type GeneratePlanTool struct{}

func (t *GeneratePlanTool) Name() string { return "generate_plan" }

func (t *GeneratePlanTool) Description() string {
	return "Generate a research plan, splitting a complex request into manageable steps."
}

func (t *GeneratePlanTool) ArgsPrototype() any { return &GeneratePlanArgs{} }

func (t *GeneratePlanTool) Invoke(_ context.Context, _ *research.Context, raw json.RawMessage) (string, error) {
	var args GeneratePlanArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("generate_plan: decode args: %w", err)
	}
	out, err := json.MarshalIndent(struct {
		ResearchGoal     string   `json:"research_goal"`
		PlannedSteps     []string `json:"planned_steps"`
		SearchStrategies []string `json:"search_strategies"`
	}{args.ResearchGoal, args.PlannedSteps, args.SearchStrategies}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
