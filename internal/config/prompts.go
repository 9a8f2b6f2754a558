package config

import (
	"fmt"
	"os"
)

// PromptsConfig names the three prompt templates an agent renders: the
// system prompt (given the toolkit), the initial user request wrapper
// (given the task), and the clarification-response wrapper (given the
// clarification text). Each has an inline string override, a file path,
// and an in-binary fallback so the server runs with no prompt files
// present.
type PromptsConfig struct {
	SystemPromptFile          string `yaml:"system_prompt_file"`
	InitialUserRequestFile    string `yaml:"initial_user_request_file"`
	ClarificationResponseFile string `yaml:"clarification_response_file"`
	SystemPromptStr          string `yaml:"system_prompt_str"`
	InitialUserRequestStr    string `yaml:"initial_user_request_str"`
	ClarificationResponseStr string `yaml:"clarification_response_str"`
}

const defaultSystemPromptTemplate = `You are a research agent. Today's date is {current_date}.

Use the available tools to research the user's task thoroughly before
answering. Always reason step by step before selecting a tool.

Available tools:
{available_tools}
`

const defaultInitialUserRequestTemplate = `{task}`

const defaultClarificationResponseTemplate = `The user has provided the following clarification:

{clarifications}

Continue the research task taking this into account.`

func mergePrompts(base, override PromptsConfig) PromptsConfig {
	out := base
	if override.SystemPromptFile != "" {
		out.SystemPromptFile = override.SystemPromptFile
	}
	if override.InitialUserRequestFile != "" {
		out.InitialUserRequestFile = override.InitialUserRequestFile
	}
	if override.ClarificationResponseFile != "" {
		out.ClarificationResponseFile = override.ClarificationResponseFile
	}
	if override.SystemPromptStr != "" {
		out.SystemPromptStr = override.SystemPromptStr
	}
	if override.InitialUserRequestStr != "" {
		out.InitialUserRequestStr = override.InitialUserRequestStr
	}
	if override.ClarificationResponseStr != "" {
		out.ClarificationResponseStr = override.ClarificationResponseStr
	}
	return out
}

func resolvePromptTemplate(inline, file, fallback string) (string, error) {
	if inline != "" {
		return inline, nil
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("config: read prompt file %s: %w", file, err)
		}
		return string(data), nil
	}
	return fallback, nil
}

// SystemPromptTemplate returns the raw system prompt template, still
// carrying its {current_date} and {available_tools} placeholders.
func (p PromptsConfig) SystemPromptTemplate() (string, error) {
	return resolvePromptTemplate(p.SystemPromptStr, p.SystemPromptFile, defaultSystemPromptTemplate)
}

// InitialUserRequestTemplate returns the raw initial-user-request template,
// still carrying its {task} placeholder.
func (p PromptsConfig) InitialUserRequestTemplate() (string, error) {
	return resolvePromptTemplate(p.InitialUserRequestStr, p.InitialUserRequestFile, defaultInitialUserRequestTemplate)
}

// ClarificationResponseTemplate returns the raw clarification-response
// template, still carrying its {clarifications} placeholder.
func (p PromptsConfig) ClarificationResponseTemplate() (string, error) {
	return resolvePromptTemplate(p.ClarificationResponseStr, p.ClarificationResponseFile, defaultClarificationResponseTemplate)
}
