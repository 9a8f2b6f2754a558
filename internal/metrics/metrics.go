// Package metrics exposes the Prometheus counters and histograms for the
// server's agent loop, LLM calls, tools, and HTTP surface.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "agentcore"

// Metrics is the process-wide set of registered series. A nil *Metrics is
// safe to call every Record/Set method on (all become no-ops), so callers
// never need a feature-flag branch around instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	agentIterations     *prometheus.CounterVec
	agentSearches       *prometheus.CounterVec
	agentClarifications *prometheus.CounterVec
	agentActive         *prometheus.GaugeVec
	agentCompletions    *prometheus.CounterVec

	llmCallDuration *prometheus.HistogramVec
	llmTokens       *prometheus.CounterVec
	llmErrors       *prometheus.CounterVec

	toolCalls        *prometheus.CounterVec
	toolCallDuration *prometheus.HistogramVec
	toolErrors       *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New builds a Metrics with every series registered against a fresh
// registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.agentIterations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "agent", Name: "iterations_total",
		Help: "Total number of reason-select-act iterations run",
	}, []string{"agent_name"})

	m.agentSearches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "agent", Name: "searches_total",
		Help: "Total number of web_search tool invocations",
	}, []string{"agent_name"})

	m.agentClarifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "agent", Name: "clarifications_total",
		Help: "Total number of clarification round trips",
	}, []string{"agent_name"})

	m.agentActive = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "agent", Name: "active_sessions",
		Help: "Number of sessions not yet in a terminal state",
	}, []string{"agent_name"})

	m.agentCompletions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "agent", Name: "completions_total",
		Help: "Total number of sessions reaching a terminal state, by state",
	}, []string{"agent_name", "state"})

	m.llmCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "llm", Name: "call_duration_seconds",
		Help:    "LLM chat-completions call duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"model", "strategy"})

	m.llmTokens = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "llm", Name: "tokens_total",
		Help: "Total estimated tokens consumed",
	}, []string{"model"})

	m.llmErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "llm", Name: "errors_total",
		Help: "Total number of LLM call/parse errors",
	}, []string{"model", "strategy"})

	m.toolCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "tool", Name: "calls_total",
		Help: "Total number of tool invocations",
	}, []string{"tool_name"})

	m.toolCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "tool", Name: "call_duration_seconds",
		Help:    "Tool execution duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"tool_name"})

	m.toolErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "tool", Name: "errors_total",
		Help: "Total number of tool invocation errors",
	}, []string{"tool_name"})

	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "http", Name: "requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	m.registry.MustRegister(
		m.agentIterations, m.agentSearches, m.agentClarifications, m.agentActive, m.agentCompletions,
		m.llmCallDuration, m.llmTokens, m.llmErrors,
		m.toolCalls, m.toolCallDuration, m.toolErrors,
		m.httpRequests, m.httpDuration,
	)
	return m
}

func (m *Metrics) RecordIteration(agentName string) {
	if m == nil {
		return
	}
	m.agentIterations.WithLabelValues(agentName).Inc()
}

func (m *Metrics) RecordSearch(agentName string) {
	if m == nil {
		return
	}
	m.agentSearches.WithLabelValues(agentName).Inc()
}

func (m *Metrics) RecordClarification(agentName string) {
	if m == nil {
		return
	}
	m.agentClarifications.WithLabelValues(agentName).Inc()
}

func (m *Metrics) SetActiveSessions(agentName string, n int) {
	if m == nil {
		return
	}
	m.agentActive.WithLabelValues(agentName).Set(float64(n))
}

func (m *Metrics) RecordCompletion(agentName, state string) {
	if m == nil {
		return
	}
	m.agentCompletions.WithLabelValues(agentName, state).Inc()
}

func (m *Metrics) RecordLLMCall(model, strategy string, d time.Duration) {
	if m == nil {
		return
	}
	m.llmCallDuration.WithLabelValues(model, strategy).Observe(d.Seconds())
}

func (m *Metrics) RecordLLMTokens(model string, n int) {
	if m == nil {
		return
	}
	m.llmTokens.WithLabelValues(model).Add(float64(n))
}

func (m *Metrics) RecordLLMError(model, strategy string) {
	if m == nil {
		return
	}
	m.llmErrors.WithLabelValues(model, strategy).Inc()
}

func (m *Metrics) RecordToolCall(toolName string, d time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(toolName).Inc()
	m.toolCallDuration.WithLabelValues(toolName).Observe(d.Seconds())
}

func (m *Metrics) RecordToolError(toolName string) {
	if m == nil {
		return
	}
	m.toolErrors.WithLabelValues(toolName).Inc()
}

func (m *Metrics) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, statusClass(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func statusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
