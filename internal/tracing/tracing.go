// Package tracing installs the process-wide otel TracerProvider that
// internal/executor's span around every readiness evaluation pass reports
// into, generalizing yungbote-neurobridge-backend's otel/sdk +
// otlptracehttp wiring (it ships spans to a collector) down to a stdout
// exporter, since this process has no collector endpoint to hand it.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Setup installs a TracerProvider as the otel global and returns a shutdown
// func the caller must run before exit to flush pending spans. When enabled
// is false it installs nothing and leaves otel's default no-op global
// provider in place, so
// executor.Evaluate's tracer.Start calls stay cheap in the common case.
func Setup(ctx context.Context, serviceName string, enabled bool) (func(context.Context) error, error) {
	if !enabled {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("build stdout trace exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", serviceName),
	))
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
