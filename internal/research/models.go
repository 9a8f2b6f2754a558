// Package research holds the mutable per-session state shared between the
// agent loop and tools: sources, search history, counters, and lifecycle
// state.
package research

import (
	"fmt"
	"sync"
	"time"
)

// Source is a single citable piece of evidence, deduplicated by URL.
type Source struct {
	Number      int    `json:"number"`
	Title       string `json:"title,omitempty"`
	URL         string `json:"url"`
	Snippet     string `json:"snippet,omitempty"`
	FullContent string `json:"full_content,omitempty"`
	CharCount   int    `json:"char_count,omitempty"`
}

func (s Source) String() string {
	title := s.Title
	if title == "" {
		title = "Untitled"
	}
	return fmt.Sprintf("[%d] %s - %s", s.Number, title, s.URL)
}

// SearchResult is one executed web search, appended to the session's search
// history.
type SearchResult struct {
	Query     string    `json:"query"`
	Answer    string    `json:"answer,omitempty"`
	Citations []Source  `json:"citations"`
	Timestamp time.Time `json:"timestamp"`
}

// AgentState is the lifecycle state of a research session.
type AgentState string

const (
	StateInited                 AgentState = "inited"
	StateResearching            AgentState = "researching"
	StateWaitingForClarification AgentState = "waiting_for_clarification"
	StateCompleted              AgentState = "completed"
	StateFailed                 AgentState = "failed"
	StateError                  AgentState = "error"
)

// Terminal reports whether s is one of the halting states.
func (s AgentState) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateError:
		return true
	default:
		return false
	}
}

// ReasoningSnapshot is the captured output of a reasoning step. It is never
// mutated after capture.
type ReasoningSnapshot struct {
	ReasoningSteps   []string `json:"reasoning_steps"`
	CurrentSituation string   `json:"current_situation"`
	PlanStatus       string   `json:"plan_status"`
	EnoughData       bool     `json:"enough_data"`
	RemainingSteps   []string `json:"remaining_steps"`
	TaskCompleted    bool     `json:"task_completed"`
}

// Context is the mutable per-session research state. The agent loop and its
// tools are its only normal mutators and run on a single goroutine, but the
// HTTP clarification endpoint reaches into state and the wake event from a
// different goroutine, so every field is guarded and reached only through
// methods — there is no exported field to read or write directly.
type Context struct {
	mu sync.Mutex

	state                AgentState
	iteration            int
	searchesUsed         int
	clarificationsUsed   int
	searches             []SearchResult
	sources              map[string]*Source
	sourceOrder          []string
	currentStepReasoning *ReasoningSnapshot
	executionResult      string
	tokensUsed           int

	clarificationCh chan struct{}
}

// New creates a Context with all counters at zero and state Inited.
func New() *Context {
	return &Context{
		state:           StateInited,
		sources:         make(map[string]*Source),
		clarificationCh: make(chan struct{}, 1),
	}
}

// State returns the current lifecycle state.
func (c *Context) State() AgentState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetState sets the lifecycle state.
func (c *Context) SetState(s AgentState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

// Iteration returns the current iteration count.
func (c *Context) Iteration() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.iteration
}

// IncrementIteration increments and returns the new iteration count.
func (c *Context) IncrementIteration() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.iteration++
	return c.iteration
}

// SearchesUsed returns the number of searches performed so far.
func (c *Context) SearchesUsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.searchesUsed
}

// RecordSearch appends a completed search to the history and increments the
// searches-used counter.
func (c *Context) RecordSearch(sr SearchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searches = append(c.searches, sr)
	c.searchesUsed++
}

// SearchHistory returns every search performed so far, in execution order.
func (c *Context) SearchHistory() []SearchResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SearchResult, len(c.searches))
	copy(out, c.searches)
	return out
}

// ClarificationsUsed returns the number of clarifications requested so far.
func (c *Context) ClarificationsUsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clarificationsUsed
}

// IncrementClarifications increments and returns the new clarification
// count.
func (c *Context) IncrementClarifications() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clarificationsUsed++
	return c.clarificationsUsed
}

// SetReasoning records the latest reasoning snapshot.
func (c *Context) SetReasoning(snap *ReasoningSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentStepReasoning = snap
}

// Reasoning returns the latest recorded reasoning snapshot, or nil if none
// has been recorded yet.
func (c *Context) Reasoning() *ReasoningSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentStepReasoning
}

// Finalize records the task's terminal state and its execution result in a
// single atomic step, used by the final-answer tool.
func (c *Context) Finalize(state AgentState, result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
	c.executionResult = result
}

// ExecutionResult returns the recorded final answer, if any.
func (c *Context) ExecutionResult() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.executionResult
}

// TokensUsed returns the running token estimate.
func (c *Context) TokensUsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokensUsed
}

// AddTokens adds n to the running token estimate.
func (c *Context) AddTokens(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokensUsed += n
}

// UpsertSearchSource inserts or looks up a source found by a web search,
// assigning it the next sequential number if it is new. Existing sources are
// left untouched (web search never overwrites full_content).
func (c *Context) UpsertSearchSource(src Source) Source {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.sources[src.URL]; ok {
		return *existing
	}
	src.Number = len(c.sources) + 1
	stored := src
	c.sources[src.URL] = &stored
	c.sourceOrder = append(c.sourceOrder, src.URL)
	return stored
}

// UpsertExtractedSource updates full_content for an existing URL (preserving
// its number) or inserts a new source with the next sequential number.
func (c *Context) UpsertExtractedSource(url, title, fullContent string, charCount int) Source {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.sources[url]; ok {
		existing.FullContent = fullContent
		existing.CharCount = charCount
		return *existing
	}
	src := Source{
		Number:      len(c.sources) + 1,
		Title:       title,
		URL:         url,
		FullContent: fullContent,
		CharCount:   charCount,
	}
	c.sources[url] = &src
	c.sourceOrder = append(c.sourceOrder, url)
	return src
}

// Source looks up a source by URL.
func (c *Context) Source(url string) (Source, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	src, ok := c.sources[url]
	if !ok {
		return Source{}, false
	}
	return *src, true
}

// Sources returns all sources in insertion order.
func (c *Context) Sources() []Source {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Source, 0, len(c.sourceOrder))
	for _, url := range c.sourceOrder {
		out = append(out, *c.sources[url])
	}
	return out
}

// SourceCount returns the number of distinct sources collected so far.
func (c *Context) SourceCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sources)
}

// ResetClarificationWake clears the one-shot wake event ahead of a
// suspension.
func (c *Context) ResetClarificationWake() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clarificationCh = make(chan struct{}, 1)
}

// FireClarificationWake fires the wake event, waking a blocked loop.
func (c *Context) FireClarificationWake() {
	c.mu.Lock()
	ch := c.clarificationCh
	c.mu.Unlock()
	select {
	case ch <- struct{}{}:
	default:
	}
}

// WaitClarification returns the current wake channel without blocking; a
// receive on it blocks until the wake event fires.
func (c *Context) WaitClarification() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clarificationCh
}

// StateProjection is the read-only view returned by the HTTP state
// endpoint, excluding searches, sources, and the wake event.
type StateProjection struct {
	State                AgentState         `json:"state"`
	Iteration            int                `json:"iteration"`
	SearchesUsed         int                `json:"searches_used"`
	ClarificationsUsed   int                `json:"clarifications_used"`
	CurrentStepReasoning *ReasoningSnapshot `json:"current_step_reasoning,omitempty"`
	ExecutionResult      string             `json:"execution_result,omitempty"`
	TokensUsed           int                `json:"tokens_used"`
}

// Projection returns the pure-function state projection for the HTTP state
// endpoint.
func (c *Context) Projection() StateProjection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return StateProjection{
		State:                c.state,
		Iteration:            c.iteration,
		SearchesUsed:         c.searchesUsed,
		ClarificationsUsed:   c.clarificationsUsed,
		CurrentStepReasoning: c.currentStepReasoning,
		ExecutionResult:      c.executionResult,
		TokensUsed:           c.tokensUsed,
	}
}
