package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sgrlabs/agentcore/internal/research"
)

func init() {
	Register("create_report", func(d Deps) Tool { return &CreateReportTool{writer: d.Reports} })
}

// CreateReportArgs is the argument schema for CreateReportTool.
type CreateReportArgs struct {
	Reasoning              string `json:"reasoning" jsonschema:"required,description=Why ready to create report now"`
	Title                  string `json:"title" jsonschema:"required,description=Report title"`
	UserRequestLanguageRef string `json:"user_request_language_reference" jsonschema:"required,description=Copy of original user request to ensure language consistency"`
	Content                string `json:"content" jsonschema:"required,description=Comprehensive research report with inline citations [1] [2] [3] after every factual claim"`
	Confidence             string `json:"confidence" jsonschema:"required,enum=high,enum=medium,enum=low,description=Confidence in findings"`
}

// CreateReportTool writes a comprehensive cited report to disk as the final
// step of research, returning a JSON summary of what was written.
type CreateReportTool struct {
	writer ReportWriter
}

func (t *CreateReportTool) Name() string { return "create_report" }

func (t *CreateReportTool) Description() string {
	return "Create a comprehensive detailed report with citations as a final step of research. " +
		"Every factual claim in content must have inline citations [1], [2], [3]."
}

func (t *CreateReportTool) ArgsPrototype() any { return &CreateReportArgs{} }

func (t *CreateReportTool) Invoke(_ context.Context, rc *research.Context, raw json.RawMessage) (string, error) {
	var args CreateReportArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("create_report: decode args: %w", err)
	}

	path, wordCount, err := t.writer.Write(args.Title, args.Content, rc.Sources())
	if err != nil {
		return "", fmt.Errorf("create_report: %w", err)
	}

	out, err := json.MarshalIndent(map[string]any{
		"title":         args.Title,
		"content":       args.Content,
		"confidence":    args.Confidence,
		"sources_count": rc.SourceCount(),
		"word_count":    wordCount,
		"filepath":      path,
	}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
