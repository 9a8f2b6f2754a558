package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sgrlabs/agentcore/internal/research"
)

func init() {
	Register("web_search", func(d Deps) Tool {
		max := d.DefaultMaxResults
		if max <= 0 || max > 10 {
			max = 10
		}
		return &WebSearchTool{search: d.Search, defaultMaxResults: max}
	})
}

// WebSearchArgs is the argument schema for WebSearchTool.
type WebSearchArgs struct {
	Reasoning  string `json:"reasoning" jsonschema:"required,description=Why this search is needed and what to expect"`
	Query      string `json:"query" jsonschema:"required,description=Search query in same language as user request"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"minimum=1,maximum=10,description=Maximum results"`
}

// WebSearchTool searches the web for real-time information via the
// configured SearchClient and records results into the session's source
// list and search history.
type WebSearchTool struct {
	search            SearchClient
	defaultMaxResults int
}

func (t *WebSearchTool) Name() string { return "web_search" }

func (t *WebSearchTool) Description() string {
	return "Search the web for real-time information about any topic. Returns page titles, URLs, and short snippets."
}

func (t *WebSearchTool) ArgsPrototype() any { return &WebSearchArgs{} }

func (t *WebSearchTool) Invoke(ctx context.Context, rc *research.Context, raw json.RawMessage) (string, error) {
	var args WebSearchArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("web_search: decode args: %w", err)
	}
	maxResults := args.MaxResults
	if maxResults <= 0 {
		maxResults = t.defaultMaxResults
	}

	found, err := t.search.Search(ctx, args.Query, maxResults)
	if err != nil {
		return "", fmt.Errorf("web_search: %w", err)
	}

	sources := make([]research.Source, 0, len(found))
	for _, src := range found {
		sources = append(sources, rc.UpsertSearchSource(src))
	}

	rc.RecordSearch(research.SearchResult{
		Query:     args.Query,
		Citations: sources,
		Timestamp: time.Now(),
	})

	var b strings.Builder
	fmt.Fprintf(&b, "Search Query: %s\n\n", args.Query)
	b.WriteString("Search Results (titles, links, short snippets):\n\n")
	for _, src := range sources {
		snippet := src.Snippet
		if len(snippet) > 100 {
			snippet = snippet[:100] + "..."
		}
		fmt.Fprintf(&b, "%s\n%s\n\n", src.String(), snippet)
	}
	return b.String(), nil
}
