// Package agent implements the reason-select-act control loop described by
// the research runtime: a single Session type, parameterised by which
// llm.Adapter strategy it holds, replaces the source's per-base-class
// subclass chain (BaseAgent -> SGRAgent -> SGRToolCallingAgent) — the
// strategy difference is already fully captured by llm.Adapter.NextStep, so
// Go composition needs no second loop implementation.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sgrlabs/agentcore/internal/config"
	"github.com/sgrlabs/agentcore/internal/llm"
	"github.com/sgrlabs/agentcore/internal/logging"
	"github.com/sgrlabs/agentcore/internal/metrics"
	"github.com/sgrlabs/agentcore/internal/research"
	"github.com/sgrlabs/agentcore/internal/schema"
	"github.com/sgrlabs/agentcore/internal/stream"
	"github.com/sgrlabs/agentcore/internal/tool"
	"github.com/sgrlabs/agentcore/internal/tracing"
)

// ErrNotWaitingForClarification is returned by ProvideClarification when the
// session is not currently suspended; the clarifications_used counter is
// still incremented before this is returned, matching the idempotence
// property that any such call only affects that counter.
var ErrNotWaitingForClarification = fmt.Errorf("agent: session is not waiting for clarification")

// Session is one running (or finished) agent instance: its fixed identity
// and toolkit, its mutable conversation and research context, and the LLM
// adapter its loop drives.
type Session struct {
	ID           string
	DefName      string
	Task         string
	CreationTime time.Time
	Toolkit      []tool.Tool

	Context *research.Context
	Adapter llm.Adapter

	Execution config.ExecutionConfig
	Prompts   config.PromptsConfig
	LLM       config.LLMConfig

	toolByName map[string]tool.Tool

	convMu       sync.Mutex
	conversation []research.Message

	logMu sync.Mutex
	log   []LogEntry

	streamMu sync.RWMutex
	stream   *stream.Generator

	logger *slog.Logger

	// Metrics is optional; a nil value (the zero default) makes every
	// Record*/Set* call a no-op, so sessions created without a registry
	// (as in this package's own tests) never need a special case.
	Metrics *metrics.Metrics
}

// New builds a Session for def, resolving its base_class to a Kind
// (selecting the adapter strategy and any toolkit augmentation), and
// indexing toolkit by tool name for the act phase's dispatch.
func New(def *config.AgentDefinition, task string, toolkit []tool.Tool, client *llm.Client) (*Session, error) {
	kind, ok := resolveKind(def.BaseClass)
	if !ok {
		return nil, fmt.Errorf("agent: unknown base class %q", def.BaseClass)
	}
	if kind.AugmentToolkit != nil {
		toolkit = kind.AugmentToolkit(toolkit)
	}

	id := fmt.Sprintf("%s_%s", def.Name, uuid.New().String())
	byName := make(map[string]tool.Tool, len(toolkit))
	for _, t := range toolkit {
		byName[t.Name()] = t
	}

	return &Session{
		ID:           id,
		DefName:      def.Name,
		Task:         task,
		CreationTime: time.Now(),
		Toolkit:      toolkit,
		Context:      research.New(),
		Adapter:      kind.BuildAdapter(client),
		Execution:    def.Execution,
		Prompts:      def.Prompts,
		LLM:          def.LLM,
		toolByName:   byName,
		stream:       stream.New(id),
		logger:       logging.Component("agent").With("agent_id", id),
	}, nil
}

// CurrentStream returns the generator currently backing this session's SSE
// output. It changes across a clarification suspend/resume cycle, so
// callers must not cache it across an await point.
func (s *Session) CurrentStream() *stream.Generator {
	s.streamMu.RLock()
	defer s.streamMu.RUnlock()
	return s.stream
}

func (s *Session) attachStream(g *stream.Generator) {
	s.streamMu.Lock()
	s.stream = g
	s.streamMu.Unlock()
}

func (s *Session) appendMessage(m research.Message) {
	s.convMu.Lock()
	s.conversation = append(s.conversation, m)
	s.convMu.Unlock()
}

func (s *Session) snapshotConversation() []research.Message {
	s.convMu.Lock()
	defer s.convMu.Unlock()
	out := make([]research.Message, len(s.conversation))
	copy(out, s.conversation)
	return out
}

// ListItem is the projection GET /agents returns per session.
type ListItem struct {
	AgentID      string             `json:"agent_id"`
	Task         string             `json:"task"`
	State        research.AgentState `json:"state"`
	CreationTime time.Time          `json:"creation_time"`
}

// Summary returns this session's ListItem projection.
func (s *Session) Summary() ListItem {
	return ListItem{AgentID: s.ID, Task: s.Task, State: s.Context.State(), CreationTime: s.CreationTime}
}

// narrowToolset applies the budget-aware restrictions spec.md §4.5 step 2
// names, operating on the fixed toolkit in registration order.
func (s *Session) narrowToolset(iteration int) []tool.Tool {
	restricted := iteration >= s.Execution.MaxIterations
	clarificationsExhausted := s.Context.ClarificationsUsed() >= s.Execution.MaxClarifications
	searchesExhausted := s.Context.SearchesUsed() >= s.Execution.MaxSearches

	out := make([]tool.Tool, 0, len(s.Toolkit))
	for _, t := range s.Toolkit {
		name := t.Name()
		if restricted && name != "create_report" && name != "final_answer" && name != "reasoning" {
			continue
		}
		if clarificationsExhausted && name == "clarification" {
			continue
		}
		if searchesExhausted && name == "web_search" {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Run drives the reason-select-act loop until a terminal state is reached
// or ctx is cancelled. It always finalises the current SSE stream and
// writes the session log before returning, including on failure.
func (s *Session) Run(ctx context.Context) {
	s.logger.Info("starting research", "task", s.Task)
	s.Context.SetState(research.StateResearching)

	initial, err := renderInitialUserRequest(s.Prompts, s.Task)
	if err != nil {
		s.failAndFinish(fmt.Errorf("agent: render initial request: %w", err))
		return
	}
	s.appendMessage(research.Message{Role: "user", Content: initial})

	for {
		if s.Context.State().Terminal() {
			break
		}
		if !s.runIteration(ctx) {
			break
		}
		select {
		case <-ctx.Done():
			s.failAndFinish(ctx.Err())
			return
		default:
		}
	}

	s.finish()
}

// runIteration runs one reason/select/act cycle, returning false when the
// loop must stop (terminal state reached or an unrecoverable error).
// Clarification suspension blocks inside this call and returns true to
// continue the loop once resumed.
func (s *Session) runIteration(ctx context.Context) bool {
	iteration := s.Context.IncrementIteration()
	s.Metrics.RecordIteration(s.DefName)

	toolset := s.narrowToolset(iteration)
	specs := make([]schema.ToolSpec, 0, len(toolset))
	for _, t := range toolset {
		specs = append(specs, tool.Spec(t))
	}

	systemPrompt, err := renderSystemPrompt(s.Prompts, s.Toolkit)
	if err != nil {
		s.Context.Finalize(research.StateFailed, "")
		return false
	}
	messages := append([]research.Message{{Role: "system", Content: systemPrompt}}, s.snapshotConversation()...)

	llmCtx, llmSpan := tracing.Tracer("agentcore.agent").Start(ctx, tracing.SpanLLMRequest,
		trace.WithAttributes(
			attribute.String(tracing.AttrAgentID, s.ID),
			attribute.String(tracing.AttrLLMModel, s.LLM.Model),
		),
	)
	llmStart := time.Now()
	next, err := s.Adapter.NextStep(llmCtx, messages, specs, s.CurrentStream())
	s.Metrics.RecordLLMCall(s.LLM.Model, s.LLM.Strategy, time.Since(llmStart))
	if err != nil {
		llmSpan.RecordError(err)
		llmSpan.SetStatus(codes.Error, err.Error())
		llmSpan.End()
		s.logger.Error("reasoning phase failed", "iteration", iteration, "err", err)
		s.Metrics.RecordLLMError(s.LLM.Model, s.LLM.Strategy)
		s.logToolExecution(iteration, "", nil, "", fmt.Errorf("reasoning phase: %w", err))
		s.Context.Finalize(research.StateFailed, "")
		return false
	}
	llmSpan.SetStatus(codes.Ok, "success")
	llmSpan.End()
	for _, m := range next.Transcript {
		s.appendMessage(m)
	}

	s.Context.SetReasoning(&next.Reasoning)
	s.logReasoning(iteration, next.Reasoning)
	stepTokens := estimateTokens(systemPrompt) + estimateTokens(string(next.Arguments))
	s.Context.AddTokens(stepTokens)
	s.Metrics.RecordLLMTokens(s.LLM.Model, stepTokens)

	selected, ok := s.toolByName[next.ToolName]
	if !ok {
		s.logToolExecution(iteration, next.ToolName, next.Arguments, "", fmt.Errorf("unknown tool %q selected", next.ToolName))
		s.Context.Finalize(research.StateFailed, "")
		return false
	}

	callID := fmt.Sprintf("%d-action", iteration)
	s.appendMessage(research.Message{
		Role:         "assistant",
		FunctionCall: &research.FunctionCall{Name: next.ToolName, Arguments: string(next.Arguments)},
	})
	s.CurrentStream().AddToolCall(callID, next.ToolName, string(next.Arguments))

	toolCtx, toolSpan := tracing.Tracer("agentcore.agent").Start(ctx, tracing.SpanToolExecution,
		trace.WithAttributes(
			attribute.String(tracing.AttrAgentID, s.ID),
			attribute.String(tracing.AttrToolName, next.ToolName),
		),
	)
	toolStart := time.Now()
	result, invokeErr := selected.Invoke(toolCtx, s.Context, next.Arguments)
	s.Metrics.RecordToolCall(next.ToolName, time.Since(toolStart))
	s.logToolExecution(iteration, next.ToolName, next.Arguments, result, invokeErr)
	if invokeErr != nil {
		toolSpan.RecordError(invokeErr)
		toolSpan.SetStatus(codes.Error, invokeErr.Error())
		s.logger.Warn("tool invocation failed", "iteration", iteration, "tool", next.ToolName, "err", invokeErr)
		s.Metrics.RecordToolError(next.ToolName)
		result = fmt.Sprintf("Error: %s", invokeErr.Error())
	} else {
		toolSpan.SetStatus(codes.Ok, "success")
	}
	toolSpan.End()
	if next.ToolName == "web_search" {
		s.Metrics.RecordSearch(s.DefName)
	}
	s.appendMessage(research.Message{Role: "function", Name: next.ToolName, Content: result})
	s.CurrentStream().AddChunkFromStr(result + "\n")
	s.Context.AddTokens(estimateTokens(result))

	if next.ToolName == "clarification" {
		return s.suspendForClarification(ctx)
	}
	return true
}

// suspendForClarification finalises the current stream, blocks on the wake
// event, and returns once a new iteration can proceed (or ctx ends).
func (s *Session) suspendForClarification(ctx context.Context) bool {
	s.logger.Info("suspending for clarification")
	s.Context.SetState(research.StateWaitingForClarification)
	s.CurrentStream().Finish("stop", stream.Usage{TotalTokens: s.Context.TokensUsed()})
	s.Context.ResetClarificationWake()

	select {
	case <-s.Context.WaitClarification():
		return true
	case <-ctx.Done():
		s.Context.Finalize(research.StateFailed, "")
		return false
	}
}

// ProvideClarification resumes a suspended session: it always increments
// clarifications_used, but only appends the clarification message, swaps in
// a fresh stream, and wakes the loop when the session is actually
// WaitingForClarification. It returns the generator the caller's HTTP
// response should drain, or ErrNotWaitingForClarification if the session
// was not suspended.
func (s *Session) ProvideClarification(clarifications string) (*stream.Generator, error) {
	s.Context.IncrementClarifications()
	s.Metrics.RecordClarification(s.DefName)
	if s.Context.State() != research.StateWaitingForClarification {
		return nil, ErrNotWaitingForClarification
	}

	msg, err := renderClarificationResponse(s.Prompts, clarifications)
	if err != nil {
		return nil, fmt.Errorf("agent: render clarification response: %w", err)
	}
	s.appendMessage(research.Message{Role: "user", Content: msg})

	fresh := stream.New(s.ID)
	s.attachStream(fresh)
	s.Context.SetState(research.StateResearching)
	s.Context.FireClarificationWake()
	return fresh, nil
}

func (s *Session) failAndFinish(err error) {
	s.logToolExecution(s.Context.Iteration(), "", nil, "", err)
	s.Context.Finalize(research.StateFailed, "")
	s.finish()
}

func (s *Session) finish() {
	reason := "stop"
	if s.Context.State() == research.StateFailed || s.Context.State() == research.StateError {
		reason = "error"
	}
	s.logger.Info("research finished", "state", s.Context.State(), "reason", reason)
	s.Metrics.RecordCompletion(s.DefName, string(s.Context.State()))
	s.CurrentStream().Finish(reason, stream.Usage{TotalTokens: s.Context.TokensUsed()})
	if err := s.saveLog(s.Execution.LogsDir); err != nil {
		s.logger.Error("failed to write session log", "err", err)
	}
}
