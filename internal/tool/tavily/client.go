// Package tavily is a hand-rolled client for the Tavily search and extract
// APIs. No official Go SDK exists, so it is built directly on net/http.
package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sgrlabs/agentcore/internal/research"
)

const (
	defaultBaseURL  = "https://api.tavily.com"
	httpTimeout     = 30 * time.Second
	maxSuccessBody  = 5 << 20
	maxErrBody      = 1 << 20
	maxErrBodyShown = 300
)

// Client is a Tavily search/extract client. It satisfies tool.SearchClient.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// New creates a Client. baseURL defaults to the public Tavily API when empty
// (injectable for tests).
func New(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{apiKey: apiKey, baseURL: baseURL, http: &http.Client{}}
}

// String omits the API key, so the client is safe to log or print.
func (c *Client) String() string {
	return fmt.Sprintf("tavily.Client{baseURL: %q}", c.baseURL)
}

type searchRequest struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type searchResponse struct {
	Answer  string         `json:"answer,omitempty"`
	Results []searchResult `json:"results"`
}

type searchResult struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	Content    string `json:"content"`
	RawContent string `json:"raw_content,omitempty"`
}

// Search queries Tavily and returns its results as sources. Number is left
// zero here; numbers are assigned later by research.Context.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]research.Source, error) {
	if maxResults <= 0 {
		maxResults = 5
	}
	body := searchRequest{
		APIKey:            c.apiKey,
		Query:             query,
		MaxResults:        maxResults,
		IncludeRawContent: false,
	}
	var resp searchResponse
	if err := c.post(ctx, "/search", body, &resp); err != nil {
		return nil, err
	}

	sources := make([]research.Source, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.URL == "" {
			continue
		}
		src := research.Source{Title: r.Title, URL: r.URL, Snippet: r.Content}
		if r.RawContent != "" {
			src.FullContent = r.RawContent
			src.CharCount = len(r.RawContent)
		}
		sources = append(sources, src)
	}
	return sources, nil
}

type extractRequest struct {
	APIKey string   `json:"api_key"`
	URLs   []string `json:"urls"`
}

type extractResponse struct {
	Results []extractResult `json:"results"`
	Failed  []any           `json:"failed_results,omitempty"`
}

type extractResult struct {
	URL        string `json:"url"`
	RawContent string `json:"raw_content"`
}

// Extract fetches full page content for the given URLs via the Tavily
// Extract API.
func (c *Client) Extract(ctx context.Context, urls []string) ([]research.Source, error) {
	var resp extractResponse
	if err := c.post(ctx, "/extract", extractRequest{APIKey: c.apiKey, URLs: urls}, &resp); err != nil {
		return nil, err
	}

	sources := make([]research.Source, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.URL == "" {
			continue
		}
		title := r.URL
		if i := strings.LastIndex(r.URL, "/"); i >= 0 && i+1 < len(r.URL) {
			title = r.URL[i+1:]
		}
		if title == "" {
			title = "Extracted Content"
		}
		sources = append(sources, research.Source{
			Title:       title,
			URL:         r.URL,
			FullContent: r.RawContent,
			CharCount:   len(r.RawContent),
		})
	}
	return sources, nil
}

func (c *Client) post(ctx context.Context, path string, reqBody, respBody any) error {
	// SECURITY: bodyBytes carries the plaintext API key. Never log it.
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("tavily: encode request: %w", err)
	}

	httpCtx, cancel := context.WithTimeout(ctx, httpTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(httpCtx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("tavily: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("tavily: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		msg := strings.TrimSpace(string(raw))
		if len(msg) > maxErrBodyShown {
			msg = msg[:maxErrBodyShown]
		}
		return fmt.Errorf("tavily: HTTP %d: %s", resp.StatusCode, msg)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxSuccessBody)).Decode(respBody); err != nil {
		return fmt.Errorf("tavily: decode response: %w", err)
	}
	return nil
}
