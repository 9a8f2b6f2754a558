// Package llm is the hand-rolled HTTP client for an OpenAI-compatible
// chat-completions endpoint, and the two interchangeable adapter strategies
// built on top of it: structured-output streaming and legacy
// function-calling.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sgrlabs/agentcore/internal/research"
	"github.com/sgrlabs/agentcore/internal/stream"
)

// StreamChunk is the wire shape of one upstream chat.completion.chunk
// event — the same shape this service emits to its own clients, so the
// forwarding path (Design Note "add_chunk rewriting the model field") can
// reuse a single type.
type StreamChunk = stream.Chunk

// Client is a hand-rolled HTTP client for any OpenAI-compatible
// chat-completions endpoint. No SDK is used, matching the reference stack's
// own choice to build its LLM HTTP clients directly on net/http.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

// NewClient creates a Client talking to baseURL (e.g.
// "https://api.openai.com/v1") as model, authenticating with apiKey.
// proxyURL may be empty.
func NewClient(baseURL, apiKey, model, proxyURL string) (*Client, error) {
	transport := &http.Transport{}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("llm: parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(u)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    &http.Client{Transport: transport, Timeout: 120 * time.Second},
	}, nil
}

// Function describes one callable function for the legacy function-calling
// strategy's "functions" request field.
type Function struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

// CompletionRequest is the adapter-facing request shape; Client translates
// it into the wire chatRequest.
type CompletionRequest struct {
	Messages     []research.Message
	Functions    []Function
	FunctionCall any
	Temperature  *float64
}

// CompletionResult is the adapter-facing response of a non-streaming call.
type CompletionResult struct {
	Message     research.Message
	TotalTokens int
}

type chatRequest struct {
	Model          string              `json:"model"`
	Messages       []research.Message  `json:"messages"`
	Stream         bool                `json:"stream,omitempty"`
	StreamOptions  *streamOptionsWire  `json:"stream_options,omitempty"`
	ResponseFormat *responseFormatWire `json:"response_format,omitempty"`
	Functions      []Function          `json:"functions,omitempty"`
	FunctionCall   any                 `json:"function_call,omitempty"`
	Temperature    *float64            `json:"temperature,omitempty"`
}

type streamOptionsWire struct {
	IncludeUsage bool `json:"include_usage"`
}

type responseFormatWire struct {
	Type       string         `json:"type"`
	JSONSchema jsonSchemaWire `json:"json_schema"`
}

type jsonSchemaWire struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict bool           `json:"strict"`
}

type chatResponse struct {
	Choices []struct {
		Message      research.Message `json:"message"`
		FinishReason string           `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

func (c *Client) post(ctx context.Context, wire chatRequest) (*http.Response, error) {
	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("llm: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm: request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, fmt.Errorf("llm: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return resp, nil
}

// Complete performs a single non-streaming chat-completions call, used by
// the legacy function-calling strategy's two calls (the forced reasoning call
// and the action call with function_call "auto").
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	resp, err := c.post(ctx, chatRequest{
		Model:        c.model,
		Messages:     req.Messages,
		Functions:    req.Functions,
		FunctionCall: req.FunctionCall,
		Temperature:  req.Temperature,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("llm: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("llm: response carried no choices")
	}
	return &CompletionResult{Message: out.Choices[0].Message, TotalTokens: out.Usage.TotalTokens}, nil
}

// Stream performs a streaming chat-completions call constrained to
// respSchema via response_format, invoking sink for every chunk event, and
// returns the accumulated delta.content once the stream ends.
//
// The SSE body is read with bufio.Reader.ReadBytes rather than
// bufio.Scanner, since Scanner's default 64KB line buffer can truncate a
// single large structured-output line.
func (c *Client) Stream(ctx context.Context, req CompletionRequest, respSchema map[string]any, sink func(StreamChunk)) (string, error) {
	resp, err := c.post(ctx, chatRequest{
		Model:         c.model,
		Messages:      req.Messages,
		Stream:        true,
		StreamOptions: &streamOptionsWire{IncludeUsage: true},
		ResponseFormat: &responseFormatWire{
			Type:       "json_schema",
			JSONSchema: jsonSchemaWire{Name: "next_step", Schema: respSchema, Strict: true},
		},
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	var content strings.Builder
readLoop:
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		line, readErr := reader.ReadBytes('\n')
		trimmed := bytes.TrimSpace(line)
		if bytes.HasPrefix(trimmed, []byte("data: ")) {
			data := trimmed[len("data: "):]
			if string(data) == "[DONE]" {
				break readLoop
			}
			var chunk StreamChunk
			if jsonErr := json.Unmarshal(data, &chunk); jsonErr == nil {
				if sink != nil {
					sink(chunk)
				}
				if len(chunk.Choices) > 0 {
					content.WriteString(chunk.Choices[0].Delta.Content)
				}
			}
		}

		if readErr != nil {
			if readErr == io.EOF {
				break readLoop
			}
			return "", fmt.Errorf("llm: read stream: %w", readErr)
		}
	}
	return content.String(), nil
}
