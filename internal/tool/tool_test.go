package tool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgrlabs/agentcore/internal/research"
)

type fakeSearchClient struct {
	searchResults []research.Source
	extractResult []research.Source
}

func (f *fakeSearchClient) Search(context.Context, string, int) ([]research.Source, error) {
	return f.searchResults, nil
}

func (f *fakeSearchClient) Extract(context.Context, []string) ([]research.Source, error) {
	return f.extractResult, nil
}

type fakeReportWriter struct {
	path      string
	wordCount int
}

func (f *fakeReportWriter) Write(title, content string, sources []research.Source) (string, int, error) {
	return f.path, f.wordCount, nil
}

func TestBuiltinToolsAreRegistered(t *testing.T) {
	names := Names()
	for _, want := range []string{
		"reasoning", "clarification", "generate_plan", "adapt_plan",
		"web_search", "extract_page_content", "create_report", "final_answer",
	} {
		assert.Contains(t, names, want)
	}
}

func TestReasoningToolRecordsSnapshot(t *testing.T) {
	rc := research.New()
	rt := &ReasoningTool{}
	args := ReasoningArgs{
		ReasoningSteps:   []string{"step one", "step two"},
		CurrentSituation: "situation",
		PlanStatus:       "on track",
		RemainingSteps:   []string{"finish"},
		TaskCompleted:    false,
	}
	raw, err := json.Marshal(args)
	require.NoError(t, err)

	out, err := rt.Invoke(context.Background(), rc, raw)
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	snap := rc.Reasoning()
	require.NotNil(t, snap)
	assert.Equal(t, "situation", snap.CurrentSituation)
}

func TestClarificationToolJoinsQuestions(t *testing.T) {
	ct := &ClarificationTool{}
	args := ClarificationArgs{
		Reasoning:    "ambiguous",
		UnclearTerms: []string{"X"},
		Assumptions:  []string{"a", "b"},
		Questions:    []string{"What is X?", "When?"},
	}
	raw, _ := json.Marshal(args)

	out, err := ct.Invoke(context.Background(), research.New(), raw)
	require.NoError(t, err)
	assert.Equal(t, "What is X?\nWhen?", out)
}

func TestFinalAnswerToolFinalizesContext(t *testing.T) {
	rc := research.New()
	fa := &FinalAnswerTool{}
	args := FinalAnswerArgs{
		Reasoning:      "done",
		CompletedSteps: []string{"step"},
		Answer:         "42",
		Status:         "completed",
	}
	raw, _ := json.Marshal(args)

	_, err := fa.Invoke(context.Background(), rc, raw)
	require.NoError(t, err)
	assert.Equal(t, research.StateCompleted, rc.State())
	assert.Equal(t, "42", rc.ExecutionResult())
}

func TestFinalAnswerToolRejectsInvalidStatus(t *testing.T) {
	fa := &FinalAnswerTool{}
	raw, _ := json.Marshal(FinalAnswerArgs{Status: "nonsense"})

	_, err := fa.Invoke(context.Background(), research.New(), raw)
	assert.Error(t, err)
}

func TestWebSearchToolRecordsSourcesAndHistory(t *testing.T) {
	rc := research.New()
	search := &fakeSearchClient{searchResults: []research.Source{
		{URL: "https://a.example", Title: "A", Snippet: "snippet a"},
		{URL: "https://b.example", Title: "B", Snippet: "snippet b"},
	}}
	wt := &WebSearchTool{search: search, defaultMaxResults: 10}

	raw, _ := json.Marshal(WebSearchArgs{Reasoning: "why", Query: "golang concurrency"})
	out, err := wt.Invoke(context.Background(), rc, raw)
	require.NoError(t, err)
	assert.Contains(t, out, "golang concurrency")

	assert.Equal(t, 1, rc.SearchesUsed())
	assert.Equal(t, 2, rc.SourceCount())
}

func TestExtractPageContentToolPreservesSourceNumbers(t *testing.T) {
	rc := research.New()
	rc.UpsertSearchSource(research.Source{URL: "https://a.example", Title: "A"})

	search := &fakeSearchClient{extractResult: []research.Source{
		{URL: "https://a.example", FullContent: "full text here", CharCount: 14},
	}}
	et := &ExtractPageContentTool{search: search, contentLimit: 5000}

	raw, _ := json.Marshal(ExtractPageContentArgs{Reasoning: "why", URLs: []string{"https://a.example"}})
	out, err := et.Invoke(context.Background(), rc, raw)
	require.NoError(t, err)
	assert.Contains(t, out, "full text here")

	src, ok := rc.Source("https://a.example")
	require.True(t, ok)
	assert.Equal(t, 1, src.Number)
}

func TestCreateReportToolWritesAndSummarizes(t *testing.T) {
	rc := research.New()
	rc.UpsertSearchSource(research.Source{URL: "https://a.example", Title: "A"})
	writer := &fakeReportWriter{path: "/tmp/report.md", wordCount: 3}
	ct := &CreateReportTool{writer: writer}

	raw, _ := json.Marshal(CreateReportArgs{
		Title:      "Report",
		Content:    "some content",
		Confidence: "high",
	})
	out, err := ct.Invoke(context.Background(), rc, raw)
	require.NoError(t, err)
	assert.Contains(t, out, "/tmp/report.md")
	assert.Contains(t, out, `"sources_count": 1`)
}

func TestGeneratePlanToolExcludesReasoningFromOutput(t *testing.T) {
	gt := &GeneratePlanTool{}
	raw, _ := json.Marshal(GeneratePlanArgs{
		Reasoning:        "secret rationale",
		ResearchGoal:     "goal",
		PlannedSteps:     []string{"a", "b", "c"},
		SearchStrategies: []string{"x", "y"},
	})

	out, err := gt.Invoke(context.Background(), research.New(), raw)
	require.NoError(t, err)
	assert.NotContains(t, out, "secret rationale")
	assert.Contains(t, out, "goal")
}
