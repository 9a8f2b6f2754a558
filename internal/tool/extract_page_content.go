package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sgrlabs/agentcore/internal/research"
)

func init() {
	Register("extract_page_content", func(d Deps) Tool {
		limit := d.ContentLimit
		if limit <= 0 {
			limit = 5000
		}
		return &ExtractPageContentTool{search: d.Search, contentLimit: limit}
	})
}

// ExtractPageContentArgs is the argument schema for ExtractPageContentTool.
type ExtractPageContentArgs struct {
	Reasoning string   `json:"reasoning" jsonschema:"required,description=Why extract these specific pages"`
	URLs      []string `json:"urls" jsonschema:"required,minItems=1,maxItems=5,description=List of URLs to extract full content from"`
}

// ExtractPageContentTool extracts full detailed content from specific web
// pages found by a prior web search, merging results into the session's
// existing sources so citation numbers stay stable.
type ExtractPageContentTool struct {
	search       SearchClient
	contentLimit int
}

func (t *ExtractPageContentTool) Name() string { return "extract_page_content" }

func (t *ExtractPageContentTool) Description() string {
	return "Extract full detailed content from specific web pages found by a prior web search."
}

func (t *ExtractPageContentTool) ArgsPrototype() any { return &ExtractPageContentArgs{} }

func (t *ExtractPageContentTool) Invoke(ctx context.Context, rc *research.Context, raw json.RawMessage) (string, error) {
	var args ExtractPageContentArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("extract_page_content: decode args: %w", err)
	}

	extracted, err := t.search.Extract(ctx, args.URLs)
	if err != nil {
		return "", fmt.Errorf("extract_page_content: %w", err)
	}
	byURL := make(map[string]research.Source, len(extracted))
	for _, src := range extracted {
		byURL[src.URL] = src
	}
	for _, url := range args.URLs {
		if src, ok := byURL[url]; ok {
			rc.UpsertExtractedSource(url, src.Title, src.FullContent, src.CharCount)
		}
	}

	var b strings.Builder
	b.WriteString("Extracted Page Content:\n\n")
	for _, url := range args.URLs {
		src, ok := rc.Source(url)
		if !ok {
			continue
		}
		if src.FullContent == "" {
			fmt.Fprintf(&b, "%s\n*Failed to extract content*\n\n", src.String())
			continue
		}
		content := src.FullContent
		if len(content) > t.contentLimit {
			content = content[:t.contentLimit]
		}
		fmt.Fprintf(&b, "%s\n\n**Full Content:**\n%s\n\n*[Content length: %d characters]*\n\n---\n\n",
			src.String(), content, len(content))
	}
	return b.String(), nil
}
