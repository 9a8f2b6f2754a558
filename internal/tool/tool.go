// Package tool defines the agent's action interface, a package-level
// registry of constructors, and the fixed toolkit: reasoning, clarification,
// plan generation/adaptation, web search, page extraction, report writing,
// and the final answer.
package tool

import (
	"context"
	"encoding/json"

	"github.com/sgrlabs/agentcore/internal/registry"
	"github.com/sgrlabs/agentcore/internal/research"
	"github.com/sgrlabs/agentcore/internal/schema"
)

// Tool is a single action the agent loop can select for its next step.
// Arguments arrive as the JSON object the LLM adapter returned for this
// tool; under the structured strategy it still carries the
// tool_name_discriminator field, which the argument structs ignore.
type Tool interface {
	Name() string
	Description() string
	ArgsPrototype() any
	Invoke(ctx context.Context, rc *research.Context, args json.RawMessage) (string, error)
}

// Spec returns the schema.ToolSpec for t, used when building the next-step
// union schema.
func Spec(t Tool) schema.ToolSpec {
	return schema.ToolSpec{Name: t.Name(), Description: t.Description(), Args: t.ArgsPrototype()}
}

// SearchClient is the search/extract provider WebSearchTool and
// ExtractPageContentTool call through. Implemented by internal/tool/tavily.
type SearchClient interface {
	Search(ctx context.Context, query string, maxResults int) ([]research.Source, error)
	Extract(ctx context.Context, urls []string) ([]research.Source, error)
}

// ReportWriter persists a finished report. Implemented by internal/report.
type ReportWriter interface {
	Write(title, content string, sources []research.Source) (path string, wordCount int, err error)
}

// Deps bundles the runtime collaborators tool constructors may need. Not
// every tool uses every field.
type Deps struct {
	Search            SearchClient
	Reports           ReportWriter
	ContentLimit      int
	DefaultMaxResults int
}

// Constructor builds a Tool instance given the shared runtime deps.
type Constructor func(Deps) Tool

var reg = registry.New[Constructor]()

// Register adds a tool constructor under name. Called from each tool file's
// package-level init, in place of a subclass hook.
func Register(name string, c Constructor) {
	_ = reg.Register(name, c)
}

// Names returns every registered tool name, sorted.
func Names() []string {
	return reg.Names()
}

// Build constructs the named tools, in the order given, returning any names
// that have no registered constructor.
func Build(names []string, d Deps) (tools []Tool, missing []string) {
	ctors, missing := reg.Resolve(names)
	tools = make([]Tool, 0, len(ctors))
	for _, c := range ctors {
		tools = append(tools, c(d))
	}
	return tools, missing
}
