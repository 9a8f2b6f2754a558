package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sgrlabs/agentcore/internal/research"
)

func init() {
	Register("clarification", func(Deps) Tool { return &ClarificationTool{} })
}

// ClarificationArgs is the argument schema for ClarificationTool.
type ClarificationArgs struct {
	Reasoning    string   `json:"reasoning" jsonschema:"required,maxLength=200,description=Why clarification is needed (1-2 sentences MAX)"`
	UnclearTerms []string `json:"unclear_terms" jsonschema:"required,minItems=1,maxItems=3,description=List of unclear terms (brief, 1-3 words each)"`
	Assumptions  []string `json:"assumptions" jsonschema:"required,minItems=2,maxItems=3,description=Possible interpretations (short, 1 sentence each)"`
	Questions    []string `json:"questions" jsonschema:"required,minItems=1,maxItems=3,description=Specific clarifying questions (short and direct)"`
}

// ClarificationTool asks the human for clarification when the request is
// ambiguous. Selecting it is what the agent loop treats as a request to
// suspend: the loop, not this tool, owns the suspend/resume state machine.
type ClarificationTool struct{}

func (t *ClarificationTool) Name() string { return "clarification" }

func (t *ClarificationTool) Description() string {
	return "Ask clarifying questions when facing an ambiguous request. Keep all fields concise."
}

func (t *ClarificationTool) ArgsPrototype() any { return &ClarificationArgs{} }

func (t *ClarificationTool) Invoke(_ context.Context, _ *research.Context, raw json.RawMessage) (string, error) {
	var args ClarificationArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("clarification: decode args: %w", err)
	}
	return strings.Join(args.Questions, "\n"), nil
}
