package jaeger

import (
	"fmt"

	"go.opentelemetry.io/otel/exporters/jaeger"
)

// DefaultEndpoint is the collector endpoint of the compose deployment.
const DefaultEndpoint = "http://jaeger:14268/api/traces"

// NewExporter creates a Jaeger collector exporter for endpoint.
func NewExporter(endpoint string) (*jaeger.Exporter, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(
		jaeger.WithEndpoint(endpoint),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create jaeger exporter: %w", err)
	}

	return exp, nil
}

// MustNewJaeger creates the exporter or panics.
func MustNewJaeger(endpoint string) *jaeger.Exporter {
	exp, err := NewExporter(endpoint)
	if err != nil {
		panic(err)
	}

	return exp
}
