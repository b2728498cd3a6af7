package telemetry

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Provider bundles a tracer from the tracer provider that NewProvider
// installs globally, and the shutdown hook the caller must run before exit.
// The orchestrator does not start spans from it.
type Provider struct {
	Tracer   trace.Tracer
	shutdown func(context.Context) error
}

// NewProvider builds a TracerProvider. When TRIAGE_OTLP_ENDPOINT is set it
// exports over OTLP/gRPC to that collector; otherwise it falls back to a
// stdout exporter, which keeps `go run ./cmd/demo` self-contained with no
// external collector required.
func NewProvider(ctx context.Context, serviceName string) (*Provider, error) {
	var exporter sdktrace.SpanExporter
	var err error

	if endpoint := os.Getenv("TRIAGE_OTLP_ENDPOINT"); endpoint != "" {
		exporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithTimeout(5*time.Second),
		)
		if err != nil {
			return nil, fmt.Errorf("creating otlp exporter: %w", err)
		}
	} else {
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("creating stdout exporter: %w", err)
		}
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(newResource(serviceName)),
	)
	otel.SetTracerProvider(tp)

	return &Provider{
		Tracer:   tp.Tracer(serviceName),
		shutdown: tp.Shutdown,
	}, nil
}

// Shutdown flushes and closes the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.shutdown == nil {
		return nil
	}
	return p.shutdown(ctx)
}
