// Package tracing wires OpenTelemetry spans around index fetches, metadata
// lookups, downloads and database work. Without a collector endpoint the
// spans stay in-process and cost next to nothing.
package tracing

import (
	"context"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "romart"

// Config selects where spans are exported.
type Config struct {
	Endpoint string // OTLP gRPC collector as host:port; empty disables export
	Insecure bool   // plaintext gRPC
	Version  string // reported as service.version
}

// FromEnv builds a Config from OTEL_EXPORTER_OTLP_ENDPOINT. An https://
// endpoint uses TLS; a bare host:port or http:// endpoint does not.
func FromEnv(version string) Config {
	endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	cfg := Config{Version: version, Insecure: true}
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		cfg.Endpoint = strings.TrimPrefix(endpoint, "https://")
		cfg.Insecure = false
	case strings.HasPrefix(endpoint, "http://"):
		cfg.Endpoint = strings.TrimPrefix(endpoint, "http://")
	default:
		cfg.Endpoint = endpoint
	}
	cfg.Endpoint = strings.TrimSuffix(cfg.Endpoint, "/")
	return cfg
}

// Enabled reports whether spans leave the process.
func (c Config) Enabled() bool {
	return c.Endpoint != ""
}

var tracer trace.Tracer

// Setup installs a batching OTLP tracer provider when cfg is enabled. The
// returned function flushes pending spans and must run before exit.
func Setup(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if !cfg.Enabled() {
		tracer = otel.Tracer(serviceName)
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	attrs := []attribute.KeyValue{semconv.ServiceName(serviceName)}
	if cfg.Version != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.Version))
	}
	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	tracer = tp.Tracer(serviceName)
	return tp.Shutdown, nil
}

// Tracer falls back to the global provider until Setup has run.
func Tracer() trace.Tracer {
	if tracer == nil {
		return otel.Tracer(serviceName)
	}
	return tracer
}

func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

func WithAttributes(attrs ...attribute.KeyValue) trace.SpanStartOption {
	return trace.WithAttributes(attrs...)
}

// RecordError marks span failed with err. Nil spans and nil errors are
// ignored so callers can defer it unconditionally.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func SetSpanOK(span trace.Span) {
	if span == nil {
		return
	}
	span.SetStatus(codes.Ok, "")
}

func AddSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span == nil {
		return
	}
	span.SetAttributes(attrs...)
}
