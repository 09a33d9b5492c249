//
// # Licensing
//
// This file is part of the GAuth project and is licensed under the Apache License 2.0.
// It incorporates code and concepts from:
//   - OAuth 2.0 and OpenID Connect (Apache 2.0 License)
//   - Model Context Protocol (MIT License)
// See the LICENSE file in the project root for details.

// Package tokentracing provides OpenTelemetry spans around the token
// service's column-store round trips.
package tokentracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Config configures the tracer's resource attributes.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// Provider wraps an OpenTelemetry tracer provider scoped to the token
// service.
type Provider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewProvider builds a Provider that exports spans to stdout. A real
// deployment would swap stdouttrace for an OTLP exporter; the service
// only depends on the trace.Tracer interface either way.
func NewProvider(cfg Config) (*Provider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("tokentracing: create exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", cfg.ServiceVersion),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("tokentracing: create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(provider)

	return &Provider{
		provider: provider,
		tracer:   provider.Tracer(cfg.ServiceName),
	}, nil
}

// Span keys attached to a store round-trip span.
const (
	AttributeTokenID = attribute.Key("tokensvc.token.id")
	AttributeMethod  = attribute.Key("tokensvc.store.method")
)

// StartStoreSpan starts a span named after a column-store method
// (Put, Get, Touch).
func (p *Provider) StartStoreSpan(ctx context.Context, method string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "tokensvc.store."+method,
		trace.WithAttributes(AttributeMethod.String(method)))
}

// Shutdown flushes and stops the tracer provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.provider.Shutdown(ctx)
}
