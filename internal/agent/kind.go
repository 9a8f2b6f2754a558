package agent

import (
	"github.com/sgrlabs/agentcore/internal/llm"
	"github.com/sgrlabs/agentcore/internal/registry"
	"github.com/sgrlabs/agentcore/internal/tool"
)

// Kind bundles everything that differs between an agent definition's
// base_class: which llm.Adapter strategy it runs and, for the legacy
// tool-calling base class, which extra tool every instance of it carries
// regardless of its configured toolkit.
type Kind struct {
	// BuildAdapter constructs the llm.Adapter this kind resolves its next
	// step through, given the already-constructed LLM client.
	BuildAdapter func(*llm.Client) llm.Adapter

	// AugmentToolkit runs after the configured tool list is built, letting
	// a kind append tools every instance of it needs. Nil means no
	// augmentation.
	AugmentToolkit func(tools []tool.Tool) []tool.Tool
}

var kinds = registry.New[Kind]()

// RegisterKind adds the Kind k under name, called from each base
// class's own init in place of the subclass-registration hook the source
// uses.
func RegisterKind(name string, k Kind) {
	_ = kinds.Register(name, k)
}

// KindNames returns every registered base class name, sorted.
func KindNames() []string {
	return kinds.Names()
}

func resolveKind(name string) (Kind, bool) {
	return kinds.Get(name)
}

// KnownKind reports whether name is a registered base class, used by
// startup-time config validation to reject an unknown base_class before
// the server ever takes traffic.
func KnownKind(name string) bool {
	_, ok := resolveKind(name)
	return ok
}

func init() {
	RegisterKind("sgr_agent", Kind{
		BuildAdapter: func(c *llm.Client) llm.Adapter { return &llm.StructuredAdapter{Client: c} },
	})
	RegisterKind("sgr_tool_calling_agent", Kind{
		BuildAdapter: func(c *llm.Client) llm.Adapter { return &llm.ToolCallingAdapter{Client: c} },
		AugmentToolkit: func(tools []tool.Tool) []tool.Tool {
			built, _ := tool.Build([]string{"reasoning"}, tool.Deps{})
			return append(built, tools...)
		},
	})
}
