package observe

import (
	"go.opentelemetry.io/otel/propagation"

	"github.com/jonwraymond/httpinsights/outcome"
)

// Option configures a Middleware.
type Option func(*Middleware)

// WithNoop disables all instrumentation; requests pass through untouched.
func WithNoop(noop bool) Option {
	return func(m *Middleware) {
		m.noop = noop
	}
}

// WithFieldMapper sets the mapper whose output is recorded as extra_fields.
func WithFieldMapper(mapper FieldMapper) Option {
	return func(m *Middleware) {
		m.fieldMapper = mapper
	}
}

// WithPanicMapper sets how recovered panics become responses.
// Defaults to DefaultPanicMapper.
func WithPanicMapper(mapper PanicMapper) Option {
	return func(m *Middleware) {
		if mapper != nil {
			m.panicMapper = mapper
		}
	}
}

// WithSuccessFilter overrides which statuses count as success.
// Defaults to outcome.DefaultSuccess.
func WithSuccessFilter(filter outcome.SuccessFunc) Option {
	return func(m *Middleware) {
		m.success = filter
	}
}

// WithDecoder sets the decoder for failure bodies.
// Defaults to outcome.DefaultDecoder.
func WithDecoder(dec outcome.Decoder) Option {
	return func(m *Middleware) {
		if dec != nil {
			m.decoder = dec
		}
	}
}

// WithRouteResolver sets how the matched route is found.
// Defaults to ChiRoute.
func WithRouteResolver(resolve RouteResolver) Option {
	return func(m *Middleware) {
		if resolve != nil {
			m.route = resolve
		}
	}
}

// WithPropagator sets the propagator used to continue incoming traces.
// Defaults to the global OpenTelemetry propagator.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(m *Middleware) {
		if p != nil {
			m.propagator = p
		}
	}
}
