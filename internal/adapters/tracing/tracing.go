// Package tracing bootstraps OpenTelemetry tracing, carried over from the
// teacher's internal/adapters/tracing almost unchanged — a stdout exporter
// is enough to demonstrate spans around Dialogue Manager.Process, tool
// invocation, and relationship updates without standing up a collector.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/trace"
)

// InitTracer installs a global TracerProvider for serviceName and returns
// its Shutdown func.
func InitTracer(serviceName string) (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
