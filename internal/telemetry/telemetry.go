// Package telemetry wires the process-wide OpenTelemetry TracerProvider.
// No exporter is configured by default (spec.md §1 excludes dashboards);
// callers needing traces shipped somewhere attach a span processor to the
// *sdktrace.TracerProvider returned by Init.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Init installs a TracerProvider as the global default and returns it so
// callers can register exporters or shut it down cleanly.
func Init(serviceName string) *sdktrace.TracerProvider {
	res := resource.NewSchemaless(semconv.ServiceName(serviceName))
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp
}

// Tracer returns the package tracer components should use for spans.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// Shutdown flushes and stops the tracer provider.
func Shutdown(ctx context.Context, tp *sdktrace.TracerProvider) error {
	return tp.Shutdown(ctx)
}
