package observe

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/httpinsights/outcome"
)

// Unknown is recorded for request values that cannot be determined.
const Unknown = "unknown"

// Span attribute keys not covered by semconv.
const (
	AttrExtraFields     = attribute.Key("extra_fields")
	AttrOtelStatusCode  = attribute.Key("otel.status_code")
	AttrOtelStatusDesc  = attribute.Key("otel.status_description")
	AttrRequestCanceled = attribute.Key("http.request.canceled")
)

// ExceptionEventName is the name of span events carrying failures.
const ExceptionEventName = "exception"

// Values of the otel.status_code attribute.
const (
	StatusCodeOK    = "OK"
	StatusCodeError = "ERROR"
)

// RequestMeta describes an inbound request for telemetry purposes.
// It is built once per request and not modified after the span starts,
// except for Route which may be resolved late.
type RequestMeta struct {
	Method        string
	URL           string
	ClientAddress string
	Route         string
	Fields        map[string]string
}

// SpanName returns the span name for the request.
// Format: "<method> <route>", or "<method>" when the route is unknown.
func (m RequestMeta) SpanName() string {
	if m.Route == "" || m.Route == Unknown {
		return m.Method
	}
	return m.Method + " " + m.Route
}

// ExtraFields returns the field-mapper output as indented JSON.
func (m RequestMeta) ExtraFields() string {
	if m.Fields == nil {
		return outcome.Serialize(map[string]string{})
	}
	return outcome.Serialize(m.Fields)
}

// SpanResult is the final state recorded on a request span.
type SpanResult struct {
	StatusCode  int
	OK          bool
	Description string
}

// Tracer wraps OpenTelemetry tracing with request-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Ordering: RecordException calls precede EndSpan for the same span.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a server span for the request.
	StartSpan(ctx context.Context, meta RequestMeta) (context.Context, trace.Span)

	// RecordException attaches a failure event to the span.
	RecordException(span trace.Span, ev outcome.Event)

	// EndSpan records the final status attributes and ends the span.
	EndSpan(span trace.Span, res SpanResult)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// newTracer creates a new Tracer wrapping the given OpenTelemetry tracer.
func newTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a server span with the request metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta RequestMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		semconv.HTTPRequestMethodKey.String(meta.Method),
		semconv.URLFull(meta.URL),
		semconv.ClientAddress(meta.ClientAddress),
		semconv.HTTPRoute(meta.Route),
		AttrExtraFields.String(meta.ExtraFields()),
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// RecordException adds an "exception" event carrying the failure kind,
// message and backtrace.
func (t *tracerImpl) RecordException(span trace.Span, ev outcome.Event) {
	span.AddEvent(ExceptionEventName, trace.WithAttributes(
		semconv.ExceptionType(ev.Kind),
		semconv.ExceptionMessage(ev.Message),
		semconv.ExceptionStacktrace(ev.Backtrace),
	))
}

// EndSpan records the response status, the OTel status and, for errors,
// the status description, then ends the span.
func (t *tracerImpl) EndSpan(span trace.Span, res SpanResult) {
	span.SetAttributes(semconv.HTTPResponseStatusCode(res.StatusCode))
	if res.OK {
		span.SetAttributes(AttrOtelStatusCode.String(StatusCodeOK))
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetAttributes(
			AttrOtelStatusCode.String(StatusCodeError),
			AttrOtelStatusDesc.String(res.Description),
		)
		span.SetStatus(codes.Error, "HTTP "+strconv.Itoa(res.StatusCode))
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

// newNoopTracer creates a no-op tracer.
func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta RequestMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) RecordException(span trace.Span, ev outcome.Event) {}

func (t *noopTracer) EndSpan(span trace.Span, res SpanResult) {
	span.End()
}
