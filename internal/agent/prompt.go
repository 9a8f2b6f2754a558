package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/sgrlabs/agentcore/internal/config"
	"github.com/sgrlabs/agentcore/internal/tool"
)

func renderSystemPrompt(prompts config.PromptsConfig, toolkit []tool.Tool) (string, error) {
	tmpl, err := prompts.SystemPromptTemplate()
	if err != nil {
		return "", fmt.Errorf("agent: system prompt: %w", err)
	}
	var descriptions strings.Builder
	for _, t := range toolkit {
		fmt.Fprintf(&descriptions, "- %s: %s\n", t.Name(), t.Description())
	}
	r := strings.NewReplacer(
		"{current_date}", time.Now().Format("2006-01-02"),
		"{available_tools}", descriptions.String(),
	)
	return r.Replace(tmpl), nil
}

func renderInitialUserRequest(prompts config.PromptsConfig, task string) (string, error) {
	tmpl, err := prompts.InitialUserRequestTemplate()
	if err != nil {
		return "", fmt.Errorf("agent: initial user request: %w", err)
	}
	return strings.ReplaceAll(tmpl, "{task}", task), nil
}

func renderClarificationResponse(prompts config.PromptsConfig, clarifications string) (string, error) {
	tmpl, err := prompts.ClarificationResponseTemplate()
	if err != nil {
		return "", fmt.Errorf("agent: clarification response: %w", err)
	}
	return strings.ReplaceAll(tmpl, "{clarifications}", clarifications), nil
}
