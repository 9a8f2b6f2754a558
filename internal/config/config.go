// Package config builds the single configuration tree the server loads
// once at startup: global LLM/search/execution/prompt defaults plus a set
// of named agent definitions that override them.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sgrlabs/agentcore/internal/tracing"
)

// LLMConfig is the OpenAI-compatible backend an agent talks to.
type LLMConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	Proxy       string  `yaml:"proxy"`
	// Strategy is a label ("structured", "legacy") used in LLM metrics and
	// recorded in the session log. It does not select the
	// adapter: that is chosen by the definition's base_class.
	Strategy string `yaml:"strategy"`
}

// SearchConfig is the Tavily search/extract provider's credentials and
// per-tool limits. Nil on a definition means the agent has no search tool
// wired (its tools list must not name web_search/extract_page_content).
type SearchConfig struct {
	TavilyAPIKey     string `yaml:"tavily_api_key"`
	TavilyAPIBaseURL string `yaml:"tavily_api_base_url"`
	MaxResults       int    `yaml:"max_results"`
	MaxPages         int    `yaml:"max_pages"`
	ContentLimit     int    `yaml:"content_limit"`
}

// ExecutionConfig bounds one agent's control loop.
type ExecutionConfig struct {
	MaxSteps          int    `yaml:"max_steps"`
	MaxClarifications int    `yaml:"max_clarifications"`
	MaxIterations     int    `yaml:"max_iterations"`
	MaxSearches       int    `yaml:"max_searches"`
	MCPContextLimit   int    `yaml:"mcp_context_limit"`
	LogsDir           string `yaml:"logs_dir"`
	ReportsDir        string `yaml:"reports_dir"`
	// SessionTTL feeds the registry's eviction: the registry uses the largest
	// SessionTTL across all definitions and evicts any session, running or
	// not, that has not been created or looked up within it. Zero on every
	// definition means no eviction, matching the reference's lack of it.
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// AgentDefinition names one agent class, its tools, and its config
// overrides. Any zero-valued override field falls back to the global
// default of the same name at resolution time (see mergeDefinition).
type AgentDefinition struct {
	Name      string          `yaml:"name"`
	BaseClass string          `yaml:"base_class"`
	Tools     []string        `yaml:"tools"`
	LLM       LLMConfig       `yaml:"llm"`
	Search    *SearchConfig   `yaml:"search"`
	Execution ExecutionConfig `yaml:"execution"`
	Prompts   PromptsConfig   `yaml:"prompts"`
}

// ServerConfig is the HTTP listener's address.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Config is the fully resolved, global configuration tree.
type Config struct {
	LLM       LLMConfig                  `yaml:"llm"`
	Search    *SearchConfig              `yaml:"search"`
	Execution ExecutionConfig            `yaml:"execution"`
	Prompts   PromptsConfig              `yaml:"prompts"`
	Server    ServerConfig               `yaml:"server"`
	Tracing   tracing.Config             `yaml:"tracing"`
	Agents    map[string]*AgentDefinition `yaml:"agents"`
}

// Default returns a Config with every field at the reference's documented
// default.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			MaxTokens:   8000,
			Temperature: 0.4,
			Strategy:    "structured",
		},
		Search: &SearchConfig{
			TavilyAPIBaseURL: "https://api.tavily.com",
			MaxResults:       10,
			MaxPages:         5,
			ContentLimit:     1500,
		},
		Execution: ExecutionConfig{
			MaxSteps:          6,
			MaxClarifications: 3,
			MaxIterations:     10,
			MaxSearches:       4,
			MCPContextLimit:   15000,
			LogsDir:           "logs",
			ReportsDir:        "reports",
		},
		Prompts: PromptsConfig{},
		Server:  ServerConfig{Host: "0.0.0.0", Port: 8010},
		Tracing: tracing.Config{Enabled: false, Exporter: "otlp", SamplingRate: 1, ServiceName: "agentcore"},
		Agents:  map[string]*AgentDefinition{},
	}
}

// Load builds a Config: defaults, then configPath's YAML (if non-empty),
// then extraAgentsPath's YAML merged on top (agents only, additive), then
// SGR__-prefixed environment variable overrides. `${VAR}` / `${VAR:-def}`
// references inside string fields are expanded against the process
// environment (after loading any `.env`/`.env.local` file) before
// unmarshalling.
func Load(configPath, extraAgentsPath string) (*Config, error) {
	loadDotEnv()

	cfg := Default()

	if configPath != "" {
		if err := mergeYAMLFile(cfg, configPath); err != nil {
			return nil, err
		}
	}

	if extraAgentsPath != "" {
		extra := &Config{}
		if err := mergeYAMLFile(extra, extraAgentsPath); err != nil {
			return nil, err
		}
		for name, def := range extra.Agents {
			if _, exists := cfg.Agents[name]; exists {
				fmt.Fprintf(os.Stderr, "config: agent %q from %s overrides an existing definition\n", name, extraAgentsPath)
			}
			cfg.Agents[name] = def
		}
	}

	applyEnvOverrides(cfg)

	for name, def := range cfg.Agents {
		def.Name = name
		resolveDefinition(cfg, def)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mergeYAMLFile(into *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	expanded := expandEnvVars(string(raw))
	if err := yaml.Unmarshal([]byte(expanded), into); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// resolveDefinition overlays the global LLM/search/execution/prompts
// defaults underneath a definition's own overrides, mirroring
// AgentDefinition.default_config_override_validator: the definition wins
// field-by-field wherever it set a non-zero value.
func resolveDefinition(cfg *Config, def *AgentDefinition) {
	def.LLM = mergeLLM(cfg.LLM, def.LLM)
	def.Execution = mergeExecution(cfg.Execution, def.Execution)
	def.Prompts = mergePrompts(cfg.Prompts, def.Prompts)
	if def.Search == nil {
		def.Search = cfg.Search
	} else if cfg.Search != nil {
		merged := mergeSearch(*cfg.Search, *def.Search)
		def.Search = &merged
	}
}

func mergeLLM(base, override LLMConfig) LLMConfig {
	out := base
	if override.APIKey != "" {
		out.APIKey = override.APIKey
	}
	if override.BaseURL != "" {
		out.BaseURL = override.BaseURL
	}
	if override.Model != "" {
		out.Model = override.Model
	}
	if override.MaxTokens != 0 {
		out.MaxTokens = override.MaxTokens
	}
	if override.Temperature != 0 {
		out.Temperature = override.Temperature
	}
	if override.Proxy != "" {
		out.Proxy = override.Proxy
	}
	if override.Strategy != "" {
		out.Strategy = override.Strategy
	}
	return out
}

func mergeExecution(base, override ExecutionConfig) ExecutionConfig {
	out := base
	if override.MaxSteps != 0 {
		out.MaxSteps = override.MaxSteps
	}
	if override.MaxClarifications != 0 {
		out.MaxClarifications = override.MaxClarifications
	}
	if override.MaxIterations != 0 {
		out.MaxIterations = override.MaxIterations
	}
	if override.MaxSearches != 0 {
		out.MaxSearches = override.MaxSearches
	}
	if override.MCPContextLimit != 0 {
		out.MCPContextLimit = override.MCPContextLimit
	}
	if override.LogsDir != "" {
		out.LogsDir = override.LogsDir
	}
	if override.ReportsDir != "" {
		out.ReportsDir = override.ReportsDir
	}
	if override.SessionTTL != 0 {
		out.SessionTTL = override.SessionTTL
	}
	return out
}

func mergeSearch(base, override SearchConfig) SearchConfig {
	out := base
	if override.TavilyAPIKey != "" {
		out.TavilyAPIKey = override.TavilyAPIKey
	}
	if override.TavilyAPIBaseURL != "" {
		out.TavilyAPIBaseURL = override.TavilyAPIBaseURL
	}
	if override.MaxResults != 0 {
		out.MaxResults = override.MaxResults
	}
	if override.MaxPages != 0 {
		out.MaxPages = override.MaxPages
	}
	if override.ContentLimit != 0 {
		out.ContentLimit = override.ContentLimit
	}
	return out
}

// validate enforces every startup-fatal check this package can make without
// importing internal/agent or internal/tool (both import internal/config,
// so a dependency back from here would cycle). The base_class/tool-name
// checks that do need those registries run separately, as
// session.ValidateDefinitions, called right after Load returns.
func validate(cfg *Config) error {
	for name, def := range cfg.Agents {
		if def.LLM.APIKey == "" {
			return fmt.Errorf("config: agent %q: LLM API key is not provided", name)
		}
		if len(def.Tools) == 0 {
			return fmt.Errorf("config: agent %q: tools are not provided", name)
		}
		if def.Search != nil && def.Search.TavilyAPIKey == "" {
			for _, t := range def.Tools {
				if t == "web_search" || t == "extract_page_content" {
					return fmt.Errorf("config: agent %q: search API key is not provided", name)
				}
			}
		}
		if _, err := def.Prompts.SystemPromptTemplate(); err != nil {
			return fmt.Errorf("config: agent %q: %w", name, err)
		}
		if _, err := def.Prompts.InitialUserRequestTemplate(); err != nil {
			return fmt.Errorf("config: agent %q: %w", name, err)
		}
		if _, err := def.Prompts.ClarificationResponseTemplate(); err != nil {
			return fmt.Errorf("config: agent %q: %w", name, err)
		}
	}
	return nil
}
