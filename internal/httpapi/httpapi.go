// Package httpapi is the OpenAI-compatible HTTP boundary: request/response
// DTOs, the chat-completions/clarification routing logic, and the chi
// router wiring every endpoint together.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sgrlabs/agentcore/internal/agent"
	"github.com/sgrlabs/agentcore/internal/logging"
	"github.com/sgrlabs/agentcore/internal/metrics"
	"github.com/sgrlabs/agentcore/internal/research"
	"github.com/sgrlabs/agentcore/internal/session"
	"github.com/sgrlabs/agentcore/internal/stream"
	"github.com/sgrlabs/agentcore/internal/tracing"
)

// APIError is a handled failure mapped straight to an HTTP status and a
// {"error": message} JSON body.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

func badRequest(msg string) *APIError { return &APIError{Status: http.StatusBadRequest, Message: msg} }
func notFound(msg string) *APIError   { return &APIError{Status: http.StatusNotFound, Message: msg} }
func conflict(msg string) *APIError   { return &APIError{Status: http.StatusConflict, Message: msg} }

// chatMessage is one entry of a chat-completions request's messages array.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionRequest is the body of POST /v1/chat/completions.
type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type clarificationRequest struct {
	Clarifications string `json:"clarifications"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type modelEntry struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

type modelsResponse struct {
	Object string       `json:"object"`
	Data   []modelEntry `json:"data"`
}

type agentListResponse struct {
	Agents []agent.ListItem `json:"agents"`
	Total  int              `json:"total"`
}

type agentStateResponse struct {
	AgentID      string `json:"agent_id"`
	Task         string `json:"task"`
	SourcesCount int    `json:"sources_count"`
	research.StateProjection
}

// server holds the shared collaborators every handler closes over.
type server struct {
	registry *session.Registry
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewRouter builds the chi router implementing every endpoint spec.md §4.7
// names, instrumented with the shared metrics registry.
func NewRouter(reg *session.Registry, m *metrics.Metrics) http.Handler {
	s := &server{registry: reg, metrics: m, logger: logging.Component("httpapi")}

	r := chi.NewRouter()
	r.Use(s.instrument)

	r.Get("/health", s.health)
	r.Get("/v1/models", s.models)
	r.Get("/agents", s.listAgents)
	r.Get("/agents/{id}/state", s.agentState)
	r.Post("/agents/{id}/provide_clarification", s.provideClarificationEndpoint)
	r.Post("/v1/chat/completions", s.chatCompletions)
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) { m.Handler().ServeHTTP(w, req) })

	return r
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Service: "agentcore"})
}

func (s *server) models(w http.ResponseWriter, _ *http.Request) {
	defs := s.registry.Definitions()
	data := make([]modelEntry, 0, len(defs))
	for _, name := range sortedKeys(defs) {
		data = append(data, modelEntry{ID: name, Object: "model", Created: 1234567890, OwnedBy: "agentcore"})
	}
	writeJSON(w, http.StatusOK, modelsResponse{Object: "list", Data: data})
}

func (s *server) listAgents(w http.ResponseWriter, _ *http.Request) {
	list := s.registry.List()
	writeJSON(w, http.StatusOK, agentListResponse{Agents: list, Total: len(list)})
}

func (s *server) agentState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, ok := s.registry.Get(id)
	if !ok {
		writeError(w, notFound("agent not found"))
		return
	}
	writeJSON(w, http.StatusOK, agentStateResponse{
		AgentID:         sess.ID,
		Task:            sess.Task,
		SourcesCount:    sess.Context.SourceCount(),
		StateProjection: sess.Context.Projection(),
	})
}

func (s *server) provideClarificationEndpoint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req clarificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, badRequest("invalid request body"))
		return
	}
	s.logger.Info("providing clarification", "agent_id", id)
	gen, apiErr := s.resumeClarification(id, req.Clarifications)
	if apiErr != nil {
		s.logger.Error("clarification failed", "agent_id", id, "err", apiErr.Message)
		writeError(w, apiErr)
		return
	}
	streamSSE(w, gen, id, "")
}

// resumeClarification looks up id and calls ProvideClarification, mapping
// the session layer's errors onto the HTTP kinds spec.md §7 names: unknown
// id is 404, a session not currently waiting is 409.
func (s *server) resumeClarification(id, clarifications string) (*stream.Generator, *APIError) {
	sess, ok := s.registry.Get(id)
	if !ok {
		return nil, notFound("agent not found")
	}
	gen, err := sess.ProvideClarification(clarifications)
	if err != nil {
		if errors.Is(err, agent.ErrNotWaitingForClarification) {
			return nil, conflict("agent is not waiting for clarification")
		}
		return nil, &APIError{Status: http.StatusInternalServerError, Message: err.Error()}
	}
	return gen, nil
}

// isAgentID reports whether model looks like a live agent id rather than a
// definition name, matching the reference's loose heuristic exactly.
func isAgentID(model string) bool {
	return len(model) > 20 && containsByte(model, '_')
}

func containsByte(s string, b byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return true
		}
	}
	return false
}

func extractUserContent(messages []chatMessage) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content, true
		}
	}
	return "", false
}

func (s *server) chatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, badRequest("invalid request body"))
		return
	}
	if !req.Stream {
		writeError(w, &APIError{Status: http.StatusNotImplemented, Message: "only streaming responses are supported; set stream=true"})
		return
	}

	content, ok := extractUserContent(req.Messages)
	if !ok {
		writeError(w, badRequest("no user message found in request"))
		return
	}

	if isAgentID(req.Model) {
		if sess, found := s.registry.Get(req.Model); found && sess.Context.State() == research.StateWaitingForClarification {
			gen, apiErr := s.resumeClarification(req.Model, content)
			if apiErr != nil {
				writeError(w, apiErr)
				return
			}
			streamSSE(w, gen, req.Model, req.Model)
			return
		}
	}

	if _, ok := s.registry.Definitions()[req.Model]; !ok {
		writeError(w, badRequest("invalid model '"+req.Model+"'"))
		return
	}

	sess, err := s.registry.Create(req.Model, content)
	if err != nil {
		writeError(w, badRequest(err.Error()))
		return
	}
	s.logger.Info("created agent", "model", req.Model, "agent_id", sess.ID)
	streamSSE(w, sess.CurrentStream(), sess.ID, req.Model)
}

// streamSSE drains gen to completion, writing each frame as it arrives and
// flushing after every write so the client sees incremental chunks.
func streamSSE(w http.ResponseWriter, gen *stream.Generator, agentID, agentModel string) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Agent-ID", agentID)
	if agentModel != "" {
		h.Set("X-Agent-Model", agentModel)
	}
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	for frame := range gen.Frames() {
		_, _ = w.Write(frame)
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err *APIError) {
	writeJSON(w, err.Status, map[string]string{"error": err.Message})
}

// instrument wraps every request with the HTTP request-count/duration
// metrics, reading the matched chi route pattern so path labels don't
// explode per agent id.
func (s *server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := tracing.Tracer("agentcore.httpapi").Start(r.Context(), tracing.SpanHTTPRequest,
			trace.WithAttributes(
				attribute.String(tracing.AttrHTTPMethod, r.Method),
				attribute.String(tracing.AttrHTTPRoute, r.URL.Path),
			),
		)
		defer span.End()

		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r.WithContext(ctx))

		pattern := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		span.SetAttributes(attribute.Int(tracing.AttrStatusCode, rw.status))
		s.metrics.RecordHTTPRequest(r.Method, pattern, rw.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
