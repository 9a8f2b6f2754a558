// Package schema builds the JSON schemas the structured-output LLM adapter
// forces the model into: a discriminated union over whichever subset of
// tools the agent loop currently allows as its next step.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	validate "github.com/santhosh-tekuri/jsonschema/v5"
)

var reflector = &jsonschema.Reflector{
	RequiredFromJSONSchemaTags: true,
	ExpandedStruct:             true,
	DoNotReference:             true,
}

// ToolSpec is the schema-relevant metadata of a tool: its wire name,
// description, and a pointer to the zero value of its argument struct.
type ToolSpec struct {
	Name        string
	Description string
	Args        any
}

// ArgsSchema reflects a Go argument struct into a plain object schema
// (type/properties/required/additionalProperties only — no $schema/$id),
// suitable for embedding as a function's "parameters" schema.
func ArgsSchema(args any) (map[string]any, error) {
	s := reflector.Reflect(args)
	m, err := toMap(s)
	if err != nil {
		return nil, fmt.Errorf("schema: reflect args: %w", err)
	}
	if m["type"] != "object" {
		return m, nil
	}
	out := map[string]any{"type": "object"}
	if props, ok := m["properties"]; ok {
		out["properties"] = props
	}
	if req, ok := m["required"]; ok {
		out["required"] = req
	}
	if ap, ok := m["additionalProperties"]; ok {
		out["additionalProperties"] = ap
	}
	return out, nil
}

func toMap(s *jsonschema.Schema) (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	delete(m, "$schema")
	delete(m, "$id")
	return m, nil
}

// discriminantSchema wraps a tool's argument schema with a literal
// tool_name_discriminator field fixed to a single enum value, mirroring the
// reference implementation's DiscriminantToolMixin: the model must echo the
// tool's own name back, which is what lets a downstream parser pick the
// right member of a union response.
func discriminantSchema(t ToolSpec) (map[string]any, error) {
	base, err := ArgsSchema(t.Args)
	if err != nil {
		return nil, err
	}
	props, _ := base["properties"].(map[string]any)
	if props == nil {
		props = map[string]any{}
	}
	props["tool_name_discriminator"] = map[string]any{
		"type":        "string",
		"enum":        []string{t.Name},
		"description": "Tool name discriminator",
	}
	base["properties"] = props

	required, _ := base["required"].([]any)
	base["required"] = append(required, "tool_name_discriminator")

	if t.Description != "" {
		base["description"] = t.Description
	}
	return base, nil
}

// BuildNextStepTools builds the discriminated-union parameter schema used to
// force the model to pick exactly one of the given tools as its next step.
// A single-tool toolset collapses to that tool's own discriminant schema —
// structured-output models are markedly less reliable at picking the right
// branch of a one-member union than at filling in a plain object, so the
// reference implementation special-cases it and this does too. Multiple
// tools compose under oneOf.
func BuildNextStepTools(tools []ToolSpec) (map[string]any, error) {
	if len(tools) == 0 {
		return nil, fmt.Errorf("schema: no tools supplied")
	}
	if len(tools) == 1 {
		return discriminantSchema(tools[0])
	}
	oneOf := make([]any, 0, len(tools))
	for _, t := range tools {
		v, err := discriminantSchema(t)
		if err != nil {
			return nil, err
		}
		oneOf = append(oneOf, v)
	}
	return map[string]any{"oneOf": oneOf}, nil
}

// nextStepReasoningFields is the reasoning block every next-step decision
// interleaves with its chosen tool, mirroring the reference's
// NextStepToolStub(ReasoningTool, function: T) — the same shape
// internal/tool.ReasoningArgs captures as its own standalone selectable
// tool for the legacy function-calling strategy.
type nextStepReasoningFields struct {
	ReasoningSteps   []string `json:"reasoning_steps" jsonschema:"required,minItems=2,maxItems=3,description=Step-by-step reasoning (brief, 1 sentence each)"`
	CurrentSituation string   `json:"current_situation" jsonschema:"required,maxLength=300,description=Current research situation (2-3 sentences MAX)"`
	PlanStatus       string   `json:"plan_status" jsonschema:"required,maxLength=150,description=Status of current plan (1 sentence)"`
	EnoughData       bool     `json:"enough_data" jsonschema:"description=Sufficient data collected for comprehensive report?"`
	RemainingSteps   []string `json:"remaining_steps" jsonschema:"required,minItems=1,maxItems=3,description=1-3 remaining steps (brief, action-oriented)"`
	TaskCompleted    bool     `json:"task_completed" jsonschema:"required,description=Is the research task finished?"`
}

// ReasoningBlockSchema returns the plain object schema for the reasoning
// block alone (the same fields BuildNextStep interleaves with the tool
// union), used by the legacy function-calling strategy's standalone forced
// "reasoning" function.
func ReasoningBlockSchema() (map[string]any, error) {
	return ArgsSchema(&nextStepReasoningFields{})
}

// BuildNextStep builds the full structured-output schema for one iteration
// of the agent loop: the reasoning block plus a "function" property holding
// the discriminated tool union from BuildNextStepTools. This is the schema
// passed as response_format to the structured-output LLM strategy.
func BuildNextStep(tools []ToolSpec) (map[string]any, error) {
	base, err := ArgsSchema(&nextStepReasoningFields{})
	if err != nil {
		return nil, fmt.Errorf("schema: reasoning fields: %w", err)
	}
	function, err := BuildNextStepTools(tools)
	if err != nil {
		return nil, err
	}

	props, _ := base["properties"].(map[string]any)
	if props == nil {
		props = map[string]any{}
	}
	props["function"] = function
	base["properties"] = props

	required, _ := base["required"].([]any)
	base["required"] = append(required, "function")
	return base, nil
}

// Validate checks raw against doc (a schema built by this package, e.g. via
// ArgsSchema or BuildNextStep), enforcing the field constraints doc carries
// — list lengths, string length bounds, enum membership — that the model's
// own JSON encoding never enforces on its own. A violation is returned as a
// plain error the LLM adapter surfaces as a recoverable step failure.
func Validate(doc map[string]any, raw []byte) error {
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("schema: marshal for validation: %w", err)
	}
	compiled, err := validate.CompileString("agentcore://step", string(docJSON))
	if err != nil {
		return fmt.Errorf("schema: compile: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("schema: decode for validation: %w", err)
	}
	if err := compiled.Validate(decoded); err != nil {
		return fmt.Errorf("schema: constraint violation: %w", err)
	}
	return nil
}
