package observe

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonwraymond/httpinsights/outcome"
)

// Readier is implemented by handlers that can report whether they are able
// to accept requests.
type Readier interface {
	Ready(ctx context.Context) error
}

// Middleware wraps HTTP handlers with request tracing, outcome
// classification, metrics and logging.
//
// Contract:
//   - Concurrency: a Middleware is immutable after construction and safe for
//     concurrent use.
//   - Context: the request span is active in the handler's context.
//   - Errors: handler panics are recovered and answered; failures are
//     recorded, never returned.
//   - Ownership: response bodies reach the client byte for byte.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger

	noop        bool
	fieldMapper FieldMapper
	panicMapper PanicMapper
	success     outcome.SuccessFunc
	decoder     outcome.Decoder
	route       RouteResolver
	propagator  propagation.TextMapPropagator
}

// NewMiddleware creates a new Middleware with the given observability components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger, opts ...Option) *Middleware {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = &noopMetrics{}
	}
	if logger == nil {
		logger = &noopLogger{}
	}

	m := &Middleware{
		tracer:      tracer,
		metrics:     metrics,
		logger:      logger,
		panicMapper: DefaultPanicMapper,
		decoder:     outcome.DefaultDecoder(),
		route:       ChiRoute,
		propagator:  otel.GetTextMapPropagator(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MiddlewareFromObserver creates a Middleware from an Observer.
// This is a convenience function for common use cases.
func MiddlewareFromObserver(obs Observer, opts ...Option) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	tracer := newTracer(obs.Tracer())

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(tracer, metrics, obs.Logger(), opts...), nil
}

// Wrap instruments next. Its signature fits chi's Router.Use.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return m.Handler(next)
}

// Handler instruments next, keeping access to its readiness.
func (m *Middleware) Handler(next http.Handler) *Handler {
	return &Handler{mw: m, next: next}
}

func (m *Middleware) isSuccess(status int) bool {
	return outcome.IsSuccess(status, m.success)
}

// Handler is an instrumented http.Handler.
type Handler struct {
	mw   *Middleware
	next http.Handler
}

// Ready returns the wrapped handler's readiness error unchanged, or nil when
// it does not implement Readier.
func (h *Handler) Ready(ctx context.Context) error {
	if r, ok := h.next.(Readier); ok {
		return r.Ready(ctx)
	}
	return nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m := h.mw
	if m.noop {
		h.next.ServeHTTP(w, r)
		return
	}

	meta := newRequestMeta(r, m.route, m.fieldMapper)
	ctx := m.propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := m.tracer.StartSpan(ctx, meta)
	start := time.Now()

	rec := newResponseRecorder(w, m.isSuccess)
	req := r.WithContext(ctx)
	fault := serve(h.next, rec, req)

	// Routers fill in the matched template while dispatching; a mounted
	// sub-router only exposes the parent's wildcard at entry.
	if route := resolveRoute(m.route, req); route != Unknown && route != meta.Route {
		meta.Route = route
		span.SetName(meta.SpanName())
		span.SetAttributes(semconv.HTTPRoute(route))
	}

	logger := m.logger.With(
		Field{Key: "http.request.method", Value: meta.Method},
		Field{Key: "http.route", Value: meta.Route},
		Field{Key: "url.full", Value: meta.URL},
		Field{Key: "client.address", Value: meta.ClientAddress},
	)

	var synthesized []byte
	if fault != nil {
		m.emit(ctx, span, logger, outcome.PanicEvent(fault.Payload, string(fault.Stack)))
		if fault.Abort() {
			m.abort(ctx, span, meta, rec, fault, start)
			return
		}
		var status int
		status, synthesized = faultResponse(m.panicMapper, fault)
		if !rec.replace(status, "application/json", synthesized) {
			logger.Warn(ctx, "panic after response was committed; status kept",
				Field{Key: "http.response.status_code", Value: rec.Status()},
			)
		}
	}

	rec.finalize()
	o := m.classify(ctx, span, logger, rec, fault, synthesized)
	if err := rec.commit(); err != nil {
		logger.Debug(ctx, "write response", Field{Key: "error", Value: err.Error()})
	}

	if r.Context().Err() != nil {
		span.SetAttributes(AttrRequestCanceled.Bool(true))
	}
	m.tracer.EndSpan(span, SpanResult{
		StatusCode:  o.Status,
		OK:          o.Success,
		Description: o.Serialized,
	})

	duration := time.Since(start)
	m.metrics.RecordRequest(ctx, meta, o.Status, duration, !o.Success)
	logger.Debug(ctx, "request completed",
		Field{Key: "http.response.status_code", Value: o.Status},
		Field{Key: "duration_ms", Value: float64(duration) / float64(time.Millisecond)},
	)
}

// classify settles the outcome of a finished request and emits the failure
// event for failures that reach the client as such.
func (m *Middleware) classify(ctx context.Context, span trace.Span, logger Logger, rec *responseRecorder, fault *Fault, synthesized []byte) outcome.Outcome {
	status := rec.Status()

	// A panic after a success was committed cannot change the response.
	if fault != nil && rec.Committed() {
		return outcome.Failure(status, m.decoder.Decode(synthesized))
	}

	var body []byte
	if !rec.Committed() {
		body = rec.Body()
	}
	o := outcome.Classify(status, body, m.success, m.decoder)
	if ev, failed := o.Event(); failed {
		if len(body) > 0 && o.Fallback {
			logger.Debug(ctx, "failure body did not decode; using default payload",
				Field{Key: "http.response.status_code", Value: status},
			)
		}
		m.emit(ctx, span, logger, ev)
	}
	return o
}

// emit records ev on the span and logs it.
func (m *Middleware) emit(ctx context.Context, span trace.Span, logger Logger, ev outcome.Event) {
	m.tracer.RecordException(span, ev)
	logger.Error(ctx, "exception",
		Field{Key: "exception.type", Value: ev.Kind},
		Field{Key: "exception.message", Value: ev.Message},
		Field{Key: "exception.stacktrace", Value: ev.Backtrace},
	)
}

// abort closes out a request whose handler panicked with
// http.ErrAbortHandler and re-raises it so net/http drops the connection.
func (m *Middleware) abort(ctx context.Context, span trace.Span, meta RequestMeta, rec *responseRecorder, fault *Fault, start time.Time) {
	status := rec.Status()
	m.tracer.EndSpan(span, SpanResult{
		StatusCode:  status,
		Description: outcome.Serialize(&outcome.Problem{Message: fault.Payload}),
	})
	m.metrics.RecordRequest(ctx, meta, status, time.Since(start), true)
	panic(fault.Value)
}
