package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgrlabs/agentcore/internal/agent"
	"github.com/sgrlabs/agentcore/internal/config"
)

func testDef(name string) *config.AgentDefinition {
	return &config.AgentDefinition{
		Name:      name,
		BaseClass: "sgr_agent",
		Tools:     []string{"reasoning", "final_answer"},
		LLM:       config.LLMConfig{BaseURL: "http://127.0.0.1:0", Model: "test-model"},
		Execution: config.ExecutionConfig{
			MaxSteps: 1, MaxIterations: 1, MaxClarifications: 1, MaxSearches: 1,
			LogsDir: "", ReportsDir: "",
		},
	}
}

func TestCreateUnknownAgentErrors(t *testing.T) {
	r := New(context.Background(), map[string]*config.AgentDefinition{}, nil)
	defer r.Close()
	_, err := r.Create("nope", "task")
	assert.Error(t, err)
}

func TestCreateUnknownToolErrors(t *testing.T) {
	def := testDef("researcher")
	def.Tools = []string{"not_a_real_tool"}
	r := New(context.Background(), map[string]*config.AgentDefinition{"researcher": def}, nil)
	defer r.Close()
	_, err := r.Create("researcher", "task")
	assert.Error(t, err)
}

func TestCreateRegistersAndListsSession(t *testing.T) {
	dir := t.TempDir()
	def := testDef("researcher")
	def.Execution.LogsDir = dir
	def.Execution.ReportsDir = dir

	r := New(context.Background(), map[string]*config.AgentDefinition{"researcher": def}, nil)
	defer r.Close()

	s, err := r.Create("researcher", "find X")
	require.NoError(t, err)
	require.NotNil(t, s)

	got, ok := r.Get(s.ID)
	assert.True(t, ok)
	assert.Equal(t, s.ID, got.ID)

	list := r.List()
	require.Len(t, list, 1)
	assert.Equal(t, s.ID, list[0].AgentID)
	assert.Equal(t, "find X", list[0].Task)

	drainStream(s)
}

func TestGetUnknownSessionNotFound(t *testing.T) {
	r := New(context.Background(), map[string]*config.AgentDefinition{}, nil)
	defer r.Close()
	_, ok := r.Get("does-not-exist")
	assert.False(t, ok)
}

func TestEvictOnceRemovesExpiredButKeepsFresh(t *testing.T) {
	dir := t.TempDir()
	def := testDef("researcher")
	def.Execution.LogsDir = dir
	def.Execution.ReportsDir = dir
	def.Execution.SessionTTL = time.Hour

	r := New(context.Background(), map[string]*config.AgentDefinition{"researcher": def}, nil)
	defer r.Close()

	s, err := r.Create("researcher", "find X")
	require.NoError(t, err)
	drainStream(s)
	fresh, err := r.Create("researcher", "find Y")
	require.NoError(t, err)
	drainStream(fresh)

	r.mu.Lock()
	r.entries[s.ID].lastSeen = time.Now().Add(-2 * time.Hour)
	r.mu.Unlock()

	r.evictOnce(time.Hour)

	_, ok := r.Get(s.ID)
	assert.False(t, ok)
	_, ok = r.Get(fresh.ID)
	assert.True(t, ok)
}

// drainStream consumes a just-created session's stream to completion so its
// background Run goroutine is free to finish rather than blocking forever
// on a send into an unconsumed generator.
func drainStream(s *agent.Session) {
	for range s.CurrentStream().Frames() {
	}
}
