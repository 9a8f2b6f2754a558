// Package stream implements the SSE chunk multiplexer: every session owns
// one Generator, which turns LLM stream events and synthetic tool-call/final
// events into OpenAI chat-completion-chunk frames and makes them available to
// a draining HTTP response writer.
package stream

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"
)

// Delta is the incremental content of one chunk's single choice.
type Delta struct {
	Role      string     `json:"role,omitempty"`
	Content   string     `json:"content,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall is one entry of a chunk's delta.tool_calls array.
type ToolCall struct {
	Index    int         `json:"index"`
	ID       string      `json:"id,omitempty"`
	Type     string      `json:"type,omitempty"`
	Function *ToolCallFn `json:"function,omitempty"`
}

// ToolCallFn is the function payload of a ToolCall.
type ToolCallFn struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// Choice is the single choice object every chunk carries.
type Choice struct {
	Index        int             `json:"index"`
	Delta        Delta           `json:"delta"`
	FinishReason *string         `json:"finish_reason"`
	Logprobs     json.RawMessage `json:"logprobs"`
}

// Usage is the token-usage block attached to the final chunk.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Chunk is one chat.completion.chunk frame.
type Chunk struct {
	ID                string   `json:"id"`
	Object            string   `json:"object"`
	Created           int64    `json:"created"`
	Model             string   `json:"model"`
	SystemFingerprint string   `json:"system_fingerprint"`
	Choices           []Choice `json:"choices"`
	Usage             *Usage   `json:"usage,omitempty"`
}

// Generator is a single-producer, single-consumer SSE frame queue. The
// producer is the agent loop (and the LLM adapter running inside it); the
// consumer is the HTTP response writer draining Frames().
type Generator struct {
	sessionID   string
	fingerprint string
	created     int64
	frames      chan []byte
	finishOnce  sync.Once
}

// New creates a Generator for a session, fixing its id, fingerprint, and
// creation timestamp for the lifetime of the stream.
func New(sessionID string) *Generator {
	return &Generator{
		sessionID:   sessionID,
		fingerprint: "fp_" + randHex(4),
		created:     time.Now().Unix(),
		frames:      make(chan []byte, 64),
	}
}

func randHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func (g *Generator) chunkID() string {
	return "chatcmpl-" + randHex(16)
}

func (g *Generator) emit(c Chunk) {
	c.ID = g.chunkID()
	c.Object = "chat.completion.chunk"
	c.Created = g.created
	c.Model = g.sessionID
	c.SystemFingerprint = g.fingerprint

	data, err := json.Marshal(c)
	if err != nil {
		return
	}
	frame := append([]byte("data: "), data...)
	frame = append(frame, '\n', '\n')
	g.frames <- frame
}

// AddChunkFromStr emits a content-delta chunk carrying plain assistant text.
func (g *Generator) AddChunkFromStr(content string) {
	g.emit(Chunk{Choices: []Choice{{
		Delta: Delta{Role: "assistant", Content: content},
	}}})
}

// AddToolCall emits a synthetic tool-call chunk announcing the tool the
// agent loop selected for this iteration.
func (g *Generator) AddToolCall(id, name, argumentsJSON string) {
	g.emit(Chunk{Choices: []Choice{{
		Delta: Delta{ToolCalls: []ToolCall{{
			Index: 0,
			ID:    id,
			Type:  "function",
			Function: &ToolCallFn{
				Name:      name,
				Arguments: argumentsJSON,
			},
		}}},
	}}})
}

// AddRawChunk forwards an LLM-originated chunk, rewriting its model field to
// the session id so any chunk alone is enough to recover the agent
// identifier.
func (g *Generator) AddRawChunk(raw Chunk) {
	raw.Model = g.sessionID
	g.emit(raw)
}

// Finish emits the final chunk (finish_reason + usage block), the literal
// "data: [DONE]\n\n" terminator line, then closes the frame channel so a
// range over Frames() ends right after the terminator. Finish is
// idempotent: calling it more than once only has effect the first time.
func (g *Generator) Finish(reason string, usage Usage) {
	g.finishOnce.Do(func() {
		r := reason
		g.emit(Chunk{
			Choices: []Choice{{FinishReason: &r}},
			Usage:   &usage,
		})
		g.frames <- []byte("data: [DONE]\n\n")
		close(g.frames)
	})
}

// Frames returns the channel of SSE-framed bytes the HTTP handler drains,
// in enqueue order, closed right after the [DONE] terminator has been sent.
func (g *Generator) Frames() <-chan []byte {
	return g.frames
}
