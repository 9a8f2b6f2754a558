package agent

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgrlabs/agentcore/internal/config"
	"github.com/sgrlabs/agentcore/internal/llm"
	"github.com/sgrlabs/agentcore/internal/report"
	"github.com/sgrlabs/agentcore/internal/research"
	"github.com/sgrlabs/agentcore/internal/schema"
	"github.com/sgrlabs/agentcore/internal/stream"
	"github.com/sgrlabs/agentcore/internal/tool"
)

// scriptedAdapter replays a fixed sequence of NextStep results, one per
// call, ignoring the messages/tools it is given; the last result repeats if
// the loop calls past the end of the script.
type scriptedAdapter struct {
	mu     sync.Mutex
	script []llm.NextStep
	calls  int
}

func (a *scriptedAdapter) NextStep(context.Context, []research.Message, []schema.ToolSpec, llm.Sink) (llm.NextStep, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx := a.calls
	if idx >= len(a.script) {
		idx = len(a.script) - 1
	}
	a.calls++
	return a.script[idx], nil
}

func argsOf(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func drain(g *stream.Generator) [][]byte {
	var frames [][]byte
	for f := range g.Frames() {
		frames = append(frames, f)
	}
	return frames
}

func testExecution() config.ExecutionConfig {
	return config.ExecutionConfig{
		MaxIterations:     3,
		MaxSteps:          6,
		MaxClarifications: 1,
		MaxSearches:       2,
		LogsDir:           "",
	}
}

type fakeSearchClient struct{}

func (fakeSearchClient) Search(_ context.Context, query string, _ int) ([]research.Source, error) {
	return []research.Source{{URL: "https://" + query + ".example", Title: query}}, nil
}

func (fakeSearchClient) Extract(_ context.Context, urls []string) ([]research.Source, error) {
	out := make([]research.Source, 0, len(urls))
	for _, u := range urls {
		out = append(out, research.Source{URL: u, FullContent: "content for " + u})
	}
	return out, nil
}

func newTestSession(t *testing.T, baseClass string, toolNames []string, adapter llm.Adapter) *Session {
	t.Helper()
	dir := t.TempDir()
	deps := tool.Deps{Reports: report.New(dir), Search: fakeSearchClient{}, DefaultMaxResults: 10}
	toolkit, missing := tool.Build(toolNames, deps)
	require.Empty(t, missing)

	def := &config.AgentDefinition{
		Name:      "researcher",
		BaseClass: baseClass,
		Execution: testExecution(),
	}
	def.Execution.LogsDir = dir

	s, err := New(def, "find X", toolkit, nil)
	require.NoError(t, err)
	s.Adapter = adapter
	return s
}

func TestStraightThroughResearch(t *testing.T) {
	script := []llm.NextStep{
		{Reasoning: research.ReasoningSnapshot{}, ToolName: "web_search", Arguments: argsOf(t, tool.WebSearchArgs{Reasoning: "r", Query: "X"})},
		{Reasoning: research.ReasoningSnapshot{}, ToolName: "web_search", Arguments: argsOf(t, tool.WebSearchArgs{Reasoning: "r", Query: "Y"})},
		{Reasoning: research.ReasoningSnapshot{}, ToolName: "final_answer", Arguments: argsOf(t, tool.FinalAnswerArgs{
			Reasoning: "done", CompletedSteps: []string{"s"}, Answer: "done", Status: "completed",
		})},
	}
	adapter := &scriptedAdapter{script: script}
	s := newTestSession(t, "sgr_agent", []string{"reasoning", "web_search", "final_answer"}, adapter)

	done := make(chan struct{})
	var frames [][]byte
	go func() {
		frames = drain(s.CurrentStream())
		close(done)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Run(ctx)
	<-done

	assert.Equal(t, 3, s.Context.Iteration())
	assert.Equal(t, 2, s.Context.SearchesUsed())
	assert.Equal(t, research.StateCompleted, s.Context.State())
	assert.Equal(t, "done", s.Context.ExecutionResult())

	toolCallFrames := 0
	for _, f := range frames {
		if strings.Contains(string(f), `"tool_calls"`) {
			toolCallFrames++
		}
	}
	assert.Equal(t, 3, toolCallFrames)
	assert.Contains(t, string(frames[len(frames)-1]), "[DONE]")
}

func TestClarificationRoundTrip(t *testing.T) {
	script := []llm.NextStep{
		{Reasoning: research.ReasoningSnapshot{}, ToolName: "clarification", Arguments: argsOf(t, tool.ClarificationArgs{
			Reasoning: "ambiguous", UnclearTerms: []string{"X"}, Assumptions: []string{"a", "b"}, Questions: []string{"Which year?", "Which country?"},
		})},
		{Reasoning: research.ReasoningSnapshot{}, ToolName: "final_answer", Arguments: argsOf(t, tool.FinalAnswerArgs{
			Reasoning: "done", CompletedSteps: []string{"s"}, Answer: "2024, Russia", Status: "completed",
		})},
	}
	adapter := &scriptedAdapter{script: script}
	s := newTestSession(t, "sgr_agent", []string{"reasoning", "clarification", "final_answer"}, adapter)

	runDone := make(chan struct{})
	ctx := context.Background()
	go func() {
		s.Run(ctx)
		close(runDone)
	}()

	firstFrames := drain(s.CurrentStream())
	assert.Contains(t, string(firstFrames[len(firstFrames)-1]), "[DONE]")

	require.Eventually(t, func() bool {
		return s.Context.State() == research.StateWaitingForClarification
	}, time.Second, 10*time.Millisecond)

	newGen, err := s.ProvideClarification("2024, Russia")
	require.NoError(t, err)
	require.NotNil(t, newGen)

	secondFrames := drain(newGen)
	assert.Contains(t, string(secondFrames[len(secondFrames)-1]), "[DONE]")

	<-runDone
	assert.Equal(t, research.StateCompleted, s.Context.State())
	assert.Equal(t, 1, s.Context.ClarificationsUsed())
}

func TestProvideClarificationWhenNotWaitingIsNoOpButCountsIt(t *testing.T) {
	s := newTestSession(t, "sgr_agent", []string{"reasoning", "final_answer"}, &scriptedAdapter{})
	_, err := s.ProvideClarification("anything")
	assert.ErrorIs(t, err, ErrNotWaitingForClarification)
	assert.Equal(t, 1, s.Context.ClarificationsUsed())
}

func TestSearchBudgetExhaustionNarrowsToolset(t *testing.T) {
	s := newTestSession(t, "sgr_agent", []string{"reasoning", "web_search", "final_answer"}, &scriptedAdapter{})
	s.Execution.MaxSearches = 1
	s.Context.RecordSearch(research.SearchResult{Query: "q"})

	narrowed := s.narrowToolset(1)
	for _, tl := range narrowed {
		assert.NotEqual(t, "web_search", tl.Name())
	}
}

func TestNarrowToolsetAtMaxIterationsKeepsOnlyTerminalTools(t *testing.T) {
	s := newTestSession(t, "sgr_tool_calling_agent", []string{"web_search", "clarification", "final_answer", "create_report"}, &scriptedAdapter{})
	s.Execution.MaxIterations = 2

	narrowed := s.narrowToolset(2)
	names := make(map[string]bool)
	for _, tl := range narrowed {
		names[tl.Name()] = true
	}
	assert.True(t, names["final_answer"])
	assert.True(t, names["create_report"])
	assert.True(t, names["reasoning"], "tool-calling kind keeps its auto-appended reasoning tool")
	assert.False(t, names["web_search"])
	assert.False(t, names["clarification"])
}

func TestMaxSearchesZeroNeverOffersWebSearch(t *testing.T) {
	s := newTestSession(t, "sgr_agent", []string{"reasoning", "web_search", "final_answer"}, &scriptedAdapter{})
	s.Execution.MaxSearches = 0

	narrowed := s.narrowToolset(1)
	for _, tl := range narrowed {
		assert.NotEqual(t, "web_search", tl.Name())
	}
}

func TestMalformedLLMOutputFailsSessionAndWritesLog(t *testing.T) {
	s := newTestSession(t, "sgr_agent", []string{"reasoning", "final_answer"}, &erroringAdapter{})

	done := make(chan struct{})
	go func() {
		drain(s.CurrentStream())
		close(done)
	}()

	s.Run(context.Background())
	<-done

	assert.Equal(t, research.StateFailed, s.Context.State())
	logs, err := filepath.Glob(filepath.Join(s.Execution.LogsDir, "*-log.json"))
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

type erroringAdapter struct{}

func (erroringAdapter) NextStep(context.Context, []research.Message, []schema.ToolSpec, llm.Sink) (llm.NextStep, error) {
	return llm.NextStep{}, errors.New("model did not emit the required function")
}

func TestConcurrentSessionsAreIndependent(t *testing.T) {
	makeScript := func(answer string) []llm.NextStep {
		return []llm.NextStep{
			{ToolName: "final_answer", Arguments: argsOf(t, tool.FinalAnswerArgs{
				Reasoning: "done", CompletedSteps: []string{"s"}, Answer: answer, Status: "completed",
			})},
		}
	}
	a := newTestSession(t, "sgr_agent", []string{"reasoning", "final_answer"}, &scriptedAdapter{script: makeScript("A-answer")})
	b := newTestSession(t, "sgr_agent", []string{"reasoning", "final_answer"}, &scriptedAdapter{script: makeScript("B-answer")})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); drain(a.CurrentStream()) }()
	go func() { defer wg.Done(); drain(b.CurrentStream()) }()

	var runWg sync.WaitGroup
	runWg.Add(2)
	go func() { defer runWg.Done(); a.Run(context.Background()) }()
	go func() { defer runWg.Done(); b.Run(context.Background()) }()
	runWg.Wait()
	wg.Wait()

	assert.Equal(t, "A-answer", a.Context.ExecutionResult())
	assert.Equal(t, "B-answer", b.Context.ExecutionResult())
	assert.NotEqual(t, a.ID, b.ID)
}
