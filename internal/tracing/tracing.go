// Package tracing configures OpenTelemetry trace export for the agent.
//
// Spans are emitted for each agent run, each model call, and each tool
// execution, then shipped over OTLP/gRPC to a collector such as
// Phoenix. When tracing is disabled the provider is a no-op and span
// creation costs almost nothing.
package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/mcnewcp/phda-logger/internal/buildinfo"
)

// tracerName identifies this instrumentation library in exported spans.
const tracerName = "github.com/mcnewcp/phda-logger"

// Config controls trace export.
type Config struct {
	// Enabled turns span export on. When false, Setup installs a no-op
	// provider.
	Enabled bool

	// Endpoint is the OTLP/gRPC collector address, host:port.
	Endpoint string

	// Project names the trace project in the collector UI.
	Project string
}

// Provider wraps the configured tracer provider and owns its shutdown.
type Provider struct {
	tp       trace.TracerProvider
	shutdown func(context.Context) error
}

// Setup installs a tracer provider according to cfg and registers it as
// the global provider. Call Shutdown on the returned Provider before
// process exit to flush buffered spans.
func Setup(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return &Provider{tp: tp, shutdown: func(context.Context) error { return nil }}, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing: create OTLP exporter: %w", err)
	}

	res, err := sdkresource.Merge(sdkresource.Default(), sdkresource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.Project),
		semconv.ServiceVersion(buildinfo.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("tracing: build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return &Provider{tp: tp, shutdown: tp.Shutdown}, nil
}

// Tracer returns the tracer for agent instrumentation.
func (p *Provider) Tracer() trace.Tracer {
	return p.tp.Tracer(tracerName)
}

// Shutdown flushes and stops the provider. It bounds the flush with its
// own timeout so a dead collector cannot hang process exit.
func (p *Provider) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.shutdown(ctx)
}
