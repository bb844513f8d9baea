// Package telemetry holds small helpers for optional OpenTelemetry wiring in
// domain services.
package telemetry

import (
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Scope is the instrumentation scope name for kart-store instruments.
const Scope = "github.com/xenking/kart-store"

// Providers bundles the providers a service instruments itself with.
type Providers struct {
	Tracer trace.TracerProvider
	Meter  metric.MeterProvider
}

// Noop returns providers that record nothing.
func Noop() Providers {
	return Providers{
		Tracer: tracenoop.NewTracerProvider(),
		Meter:  metricnoop.NewMeterProvider(),
	}
}

// Counter creates an Int64Counter, falling back to a no-op instrument when
// the provider rejects the definition.
func Counter(m metric.Meter, name, desc string) metric.Int64Counter {
	c, err := m.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		return metricnoop.Int64Counter{}
	}
	return c
}
