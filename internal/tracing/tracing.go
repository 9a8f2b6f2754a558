// Package tracing wires OpenTelemetry spans around the agent loop's LLM
// calls and tool invocations and around the HTTP boundary, mirroring the
// teacher's pkg/observability tracer: disabled by default (a no-op
// provider), an OTLP/gRPC or stdout exporter when enabled.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Span and attribute names, matching hector's pkg/observability/constants.go
// scaled down to this server's own call sites.
const (
	SpanAgentIteration = "agent.iteration"
	SpanLLMRequest     = "agent.llm_request"
	SpanToolExecution  = "agent.tool_execution"
	SpanHTTPRequest    = "http.request"

	AttrAgentName  = "agent.name"
	AttrAgentID    = "agent.id"
	AttrLLMModel   = "llm.model"
	AttrLLMTokens  = "llm.tokens"
	AttrToolName   = "tool.name"
	AttrHTTPMethod = "http.method"
	AttrHTTPRoute  = "http.route"
	AttrStatusCode = "http.status_code"
)

// Config controls whether tracing is enabled and where spans are exported,
// the YAML-configurable counterpart of hector's TracerConfig.
type Config struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"` // "otlp" or "stdout"
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
	ServiceName  string  `yaml:"service_name"`
}

// Init installs the global TracerProvider per cfg and returns a shutdown
// func the caller must run on process exit to flush any pending spans.
// Disabled (the zero value) installs a no-op provider, so every Tracer call
// site below costs nothing when tracing isn't configured.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("tracing: build exporter: %w", err)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "agentcore"
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("tracing: build resource: %w", err)
	}

	rate := cfg.SamplingRate
	if rate <= 0 {
		rate = 1
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(rate)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "stdout":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "otlp", "":
		return otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.Endpoint), otlptracegrpc.WithInsecure())
	default:
		return nil, fmt.Errorf("unsupported exporter %q", cfg.Exporter)
	}
}

// Tracer returns a named tracer from the globally installed provider.
func Tracer(name string) trace.Tracer { return otel.Tracer(name) }
