// Package exporters provides factory functions for creating OpenTelemetry exporters.
package exporters

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option configures an exporter.
type Option func(*settings)

type settings struct {
	endpoint string
	insecure bool
	headers  map[string]string
	writer   io.Writer
}

// WithEndpoint sets the collector endpoint. A scheme of http:// implies an
// insecure connection; any path is dropped.
func WithEndpoint(endpoint string) Option {
	return func(s *settings) { s.endpoint = endpoint }
}

// WithInsecure disables transport security for OTLP exporters.
func WithInsecure(insecure bool) Option {
	return func(s *settings) { s.insecure = insecure }
}

// WithHeaders sets headers sent with every OTLP export, typically the
// collector's authorization or connection string.
func WithHeaders(headers map[string]string) Option {
	return func(s *settings) { s.headers = headers }
}

// WithWriter sets the destination of stdout exporters.
func WithWriter(w io.Writer) Option {
	return func(s *settings) { s.writer = w }
}

func newSettings(opts []Option) *settings {
	s := &settings{writer: os.Stdout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// hostPort strips the scheme and path from s.endpoint.
func (s *settings) hostPort() (string, bool) {
	endpoint := s.endpoint
	insecure := s.insecure
	if trimmed, ok := strings.CutPrefix(endpoint, "http://"); ok {
		endpoint = trimmed
		insecure = true
	} else if trimmed, ok := strings.CutPrefix(endpoint, "https://"); ok {
		endpoint = trimmed
	}
	if idx := strings.Index(endpoint, "/"); idx != -1 {
		endpoint = endpoint[:idx]
	}
	return endpoint, insecure
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// NewTracingExporter creates a trace span exporter based on the exporter name.
// Supported exporters: stdout, otlp, otlphttp, jaeger, none
func NewTracingExporter(ctx context.Context, name string, opts ...Option) (sdktrace.SpanExporter, error) {
	s := newSettings(opts)

	switch name {
	case "stdout":
		return stdouttrace.New(stdouttrace.WithWriter(s.writer))

	case "otlp":
		if s.endpoint == "" && firstEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT") == "" {
			return nil, fmt.Errorf("OTLP endpoint not configured: set tracing endpoint, OTEL_EXPORTER_OTLP_ENDPOINT or OTEL_EXPORTER_OTLP_TRACES_ENDPOINT")
		}
		return otlptracegrpc.New(ctx, grpcTraceOptions(s)...)

	case "otlphttp":
		if s.endpoint == "" && firstEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT") == "" {
			return nil, fmt.Errorf("OTLP HTTP endpoint not configured: set tracing endpoint, OTEL_EXPORTER_OTLP_ENDPOINT or OTEL_EXPORTER_OTLP_TRACES_ENDPOINT")
		}
		var httpOpts []otlptracehttp.Option
		if s.endpoint != "" {
			endpoint, insecure := s.hostPort()
			httpOpts = append(httpOpts, otlptracehttp.WithEndpoint(endpoint))
			if insecure {
				httpOpts = append(httpOpts, otlptracehttp.WithInsecure())
			}
		}
		if len(s.headers) > 0 {
			httpOpts = append(httpOpts, otlptracehttp.WithHeaders(s.headers))
		}
		return otlptracehttp.New(ctx, httpOpts...)

	case "jaeger":
		// Jaeger ingests OTLP natively.
		if s.endpoint == "" {
			s.endpoint = os.Getenv("OTEL_EXPORTER_JAEGER_ENDPOINT")
		}
		if s.endpoint == "" {
			return nil, fmt.Errorf("Jaeger endpoint not configured: set tracing endpoint or OTEL_EXPORTER_JAEGER_ENDPOINT")
		}
		return otlptracegrpc.New(ctx, grpcTraceOptions(s)...)

	case "none", "":
		return stdouttrace.New(stdouttrace.WithWriter(io.Discard))

	default:
		return nil, fmt.Errorf("unknown exporter: %q", name)
	}
}

func grpcTraceOptions(s *settings) []otlptracegrpc.Option {
	var opts []otlptracegrpc.Option
	if s.endpoint != "" {
		endpoint, insecure := s.hostPort()
		opts = append(opts, otlptracegrpc.WithEndpoint(endpoint))
		if insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
	} else if s.insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	if len(s.headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(s.headers))
	}
	return opts
}

// NewMetricsReader creates a metrics reader based on the exporter name.
// Supported exporters: stdout, otlp, prometheus, none
func NewMetricsReader(ctx context.Context, name string, opts ...Option) (sdkmetric.Reader, error) {
	s := newSettings(opts)

	switch name {
	case "stdout":
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(s.writer))
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout metrics exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil

	case "otlp":
		if s.endpoint == "" && firstEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_METRICS_ENDPOINT") == "" {
			return nil, fmt.Errorf("OTLP metrics endpoint not configured: set OTEL_EXPORTER_OTLP_ENDPOINT or OTEL_EXPORTER_OTLP_METRICS_ENDPOINT")
		}
		var grpcOpts []otlpmetricgrpc.Option
		if s.endpoint != "" {
			endpoint, insecure := s.hostPort()
			grpcOpts = append(grpcOpts, otlpmetricgrpc.WithEndpoint(endpoint))
			if insecure {
				grpcOpts = append(grpcOpts, otlpmetricgrpc.WithInsecure())
			}
		}
		if len(s.headers) > 0 {
			grpcOpts = append(grpcOpts, otlpmetricgrpc.WithHeaders(s.headers))
		}
		exp, err := otlpmetricgrpc.New(ctx, grpcOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil

	case "prometheus":
		// Registers with the default prometheus registry, served by promhttp.
		exp, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		return exp, nil

	case "none", "":
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(io.Discard))
		if err != nil {
			return nil, err
		}
		return sdkmetric.NewPeriodicReader(exp), nil

	default:
		return nil, fmt.Errorf("unknown metrics exporter: %q", name)
	}
}
