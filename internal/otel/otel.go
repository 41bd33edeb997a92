// Package otel installs the global tracer provider and propagator.
package otel

import (
	"context"

	"github.com/corray333/backend-labs/checkout/internal/config"
	"github.com/corray333/backend-labs/checkout/internal/jaeger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// OtelController owns the tracer provider.
type OtelController struct {
	traceProvider *sdktrace.TracerProvider
}

// MustInitOtel installs a provider exporting to Jaeger. With tracing disabled spans are
// still created and propagated but never exported.
func MustInitOtel(cfg config.TracingConfig) *OtelController {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(cfg.ServiceName),
		)),
	}
	if cfg.Enabled {
		opts = append(opts, sdktrace.WithBatcher(jaeger.MustNewJaeger(cfg.Endpoint)))
	}

	tp := sdktrace.NewTracerProvider(opts...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &OtelController{
		traceProvider: tp,
	}
}

// Shutdown flushes pending spans.
func (o *OtelController) Shutdown(ctx context.Context) error {
	return o.traceProvider.Shutdown(ctx)
}
