package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sgrlabs/agentcore/internal/research"
)

// LogEntry is one record of a session's step log, tagged by StepType.
// Reasoning and tool_execution records share the envelope but populate
// different fields, mirroring the reference's two differently-shaped dict
// literals appended to the same list.
type LogEntry struct {
	StepNumber int       `json:"step_number"`
	Timestamp  string    `json:"timestamp"`
	StepType   string    `json:"step_type"`

	AgentReasoning *research.ReasoningSnapshot `json:"agent_reasoning,omitempty"`

	ToolName           string          `json:"tool_name,omitempty"`
	AgentToolContext   json.RawMessage `json:"agent_tool_context,omitempty"`
	ToolExecutionError string          `json:"agent_tool_execution_error,omitempty"`
	ToolExecutionResult string         `json:"agent_tool_execution_result,omitempty"`
}

func (s *Session) logReasoning(step int, snap research.ReasoningSnapshot) {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	s.log = append(s.log, LogEntry{
		StepNumber:     step,
		Timestamp:      time.Now().Format(time.RFC3339),
		StepType:       "reasoning",
		AgentReasoning: &snap,
	})
}

func (s *Session) logToolExecution(step int, toolName string, args json.RawMessage, result string, execErr error) {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	entry := LogEntry{
		StepNumber:       step,
		Timestamp:        time.Now().Format(time.RFC3339),
		StepType:         "tool_execution",
		ToolName:         toolName,
		AgentToolContext: args,
	}
	if execErr != nil {
		entry.ToolExecutionError = execErr.Error()
	} else {
		entry.ToolExecutionResult = result
	}
	s.log = append(s.log, entry)
}

// sessionLogModel is the model_config record written into the session log,
// excluding api_key and proxy as the external interface requires.
type sessionLogModel struct {
	BaseURL     string  `json:"base_url"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Strategy    string  `json:"strategy"`
}

type sessionLogFile struct {
	ID       string          `json:"id"`
	Model    sessionLogModel `json:"model_config"`
	Task     string          `json:"task"`
	Toolkit  []string        `json:"toolkit"`
	Log      []LogEntry      `json:"log"`
}

// saveLog writes the session's full step log to dir, named
// YYYYMMDD-HHMMSS-<agent_id>-log.json.
func (s *Session) saveLog(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("agent: create logs dir: %w", err)
	}

	toolNames := make([]string, 0, len(s.Toolkit))
	for _, t := range s.Toolkit {
		toolNames = append(toolNames, t.Name())
	}

	s.logMu.Lock()
	logCopy := make([]LogEntry, len(s.log))
	copy(logCopy, s.log)
	s.logMu.Unlock()

	out := sessionLogFile{
		ID: s.ID,
		Model: sessionLogModel{
			BaseURL:     s.LLM.BaseURL,
			Model:       s.LLM.Model,
			MaxTokens:   s.LLM.MaxTokens,
			Temperature: s.LLM.Temperature,
			Strategy:    s.LLM.Strategy,
		},
		Task:    s.Task,
		Toolkit: toolNames,
		Log:     logCopy,
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("agent: marshal log: %w", err)
	}

	name := fmt.Sprintf("%s-%s-log.json", time.Now().Format("20060102-150405"), s.ID)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("agent: write log %s: %w", path, err)
	}
	return nil
}
