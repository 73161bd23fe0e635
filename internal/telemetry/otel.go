// Package telemetry wires OpenTelemetry tracing for the pipeline.
// Grounded on the teacher's telemetry/otel.go (OTelProvider: resource
// construction, exporter setup, batched span processor, graceful
// shutdown) but narrowed to tracing only and retargeted at OTLP/gRPC
// with a stdout fallback for local runs, per this module's go.mod.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Provider owns the process's tracer and its shutdown hook.
type Provider struct {
	tracer   trace.Tracer
	shutdown func(context.Context) error
}

// NewStdoutProvider builds a Provider that writes spans to stdout, for
// local runs and tests where no collector is available.
func NewStdoutProvider(serviceName string) (*Provider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("creating stdout trace exporter: %w", err)
	}
	return newProvider(serviceName, sdktrace.NewBatchSpanProcessor(exporter))
}

// NewOTLPProvider builds a Provider that exports spans to an OTLP/gRPC
// collector at endpoint (e.g. "localhost:4317").
func NewOTLPProvider(ctx context.Context, serviceName, endpoint string) (*Provider, error) {
	if endpoint == "" {
		endpoint = "localhost:4317"
	}
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP/gRPC trace exporter for %s: %w", endpoint, err)
	}
	return newProvider(serviceName, sdktrace.NewBatchSpanProcessor(exporter))
}

func newProvider(serviceName string, processor sdktrace.SpanProcessor) (*Provider, error) {
	if serviceName == "" {
		return nil, fmt.Errorf("service name cannot be empty")
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String("0.1.0"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("building telemetry resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(processor),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &Provider{
		tracer: tp.Tracer(serviceName),
		shutdown: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	}, nil
}

// Shutdown flushes and tears down the provider. Callers should defer it
// with a bounded-timeout context.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.shutdown == nil {
		return nil
	}
	return p.shutdown(ctx)
}

// StartStageSpan starts a span named for one of the seven pipeline
// stages, tagging it with the run ID for correlation.
func (p *Provider) StartStageSpan(ctx context.Context, runID, stage string) (context.Context, trace.Span) {
	if p == nil || p.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return p.tracer.Start(ctx, "pipeline.stage."+stage,
		trace.WithAttributes(
			attribute.String("run_id", runID),
			attribute.String("stage", stage),
		),
	)
}

// RecordStageOutcome annotates span with elapsed duration and an error,
// if any, without panicking when span is a no-op.
func RecordStageOutcome(span trace.Span, start time.Time, err error) {
	span.SetAttributes(attribute.Int64("duration_ms", time.Since(start).Milliseconds()))
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

// NoopProvider returns a Provider whose spans are all no-ops, for tests
// and for runs with telemetry disabled.
func NoopProvider() *Provider {
	return &Provider{tracer: otel.Tracer("noop"), shutdown: func(context.Context) error { return nil }}
}
