package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMergesDefaultsIntoAgentDefinition(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "config.yaml", `
llm:
  api_key: global-key
execution:
  max_iterations: 12
agents:
  researcher:
    base_class: sgr_agent
    tools: [web_search, final_answer]
    search:
      tavily_api_key: tavily-key
`)

	cfg, err := Load(path, "")
	require.NoError(t, err)

	def, ok := cfg.Agents["researcher"]
	require.True(t, ok)
	assert.Equal(t, "researcher", def.Name)
	assert.Equal(t, "global-key", def.LLM.APIKey)
	assert.Equal(t, "gpt-4o-mini", def.LLM.Model, "unset fields fall back to the global default")
	assert.Equal(t, 12, def.Execution.MaxIterations)
	assert.Equal(t, 4, def.Execution.MaxSearches, "untouched execution fields keep the package default")
	require.NotNil(t, def.Search)
	assert.Equal(t, "tavily-key", def.Search.TavilyAPIKey)
	assert.Equal(t, "https://api.tavily.com", def.Search.TavilyAPIBaseURL)
}

func TestLoadRejectsAgentWithoutAPIKey(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "config.yaml", `
agents:
  researcher:
    base_class: sgr_agent
    tools: [final_answer]
`)
	_, err := Load(path, "")
	assert.ErrorContains(t, err, "API key")
}

func TestLoadRejectsSearchToolWithoutTavilyKey(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "config.yaml", `
llm:
  api_key: k
agents:
  researcher:
    base_class: sgr_agent
    tools: [web_search, final_answer]
`)
	_, err := Load(path, "")
	assert.ErrorContains(t, err, "search API key")
}

func TestLoadMergesExtraAgentsFileAdditively(t *testing.T) {
	dir := t.TempDir()
	main := writeYAML(t, dir, "config.yaml", `
llm:
  api_key: k
agents:
  researcher:
    base_class: sgr_agent
    tools: [final_answer]
`)
	extra := writeYAML(t, dir, "extra.yaml", `
agents:
  summarizer:
    base_class: sgr_agent
    tools: [final_answer]
`)

	cfg, err := Load(main, extra)
	require.NoError(t, err)
	assert.Contains(t, cfg.Agents, "researcher")
	assert.Contains(t, cfg.Agents, "summarizer")
}

func TestEnvOverrideWinsOverYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "config.yaml", `
llm:
  api_key: from-yaml
  model: gpt-4o-mini
agents:
  researcher:
    base_class: sgr_agent
    tools: [final_answer]
`)
	t.Setenv("SGR__LLM__API_KEY", "from-env")

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Agents["researcher"].LLM.APIKey)
}

func TestExpandEnvVarsSupportsDefaultAndBracedForms(t *testing.T) {
	t.Setenv("SGR_TEST_VAR", "hello")
	assert.Equal(t, "hello-world", expandEnvVars("${SGR_TEST_VAR}-world"))
	assert.Equal(t, "fallback", expandEnvVars("${SGR_TEST_MISSING:-fallback}"))
}

func TestPromptsConfigFallsBackToInBinaryDefault(t *testing.T) {
	p := PromptsConfig{}
	tmpl, err := p.SystemPromptTemplate()
	require.NoError(t, err)
	assert.Contains(t, tmpl, "{available_tools}")
}

func TestPromptsConfigPrefersInlineStringOverFile(t *testing.T) {
	p := PromptsConfig{SystemPromptStr: "inline prompt", SystemPromptFile: "/does/not/exist"}
	tmpl, err := p.SystemPromptTemplate()
	require.NoError(t, err)
	assert.Equal(t, "inline prompt", tmpl)
}
