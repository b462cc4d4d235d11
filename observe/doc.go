// Package observe instruments net/http handlers with OpenTelemetry.
//
// An [Observer] owns the tracer and meter providers and the logger for a
// process; build one with [NewObserver] and shut it down once on exit.
// [Middleware] wraps handlers: each request gets a server span, panics in
// the handler are recovered and answered with a JSON error, and every
// response is classified with the outcome package. Failure responses are
// held back until the handler returns so their body can be decoded into an
// error payload, then sent to the client unchanged.
//
// Attributes recorded on every request span:
//
//	http.request.method, url.full, client.address, http.route, extra_fields
//	http.response.status_code, otel.status_code
//	otel.status_description (failures only)
//
// Failures also produce an "exception" span event and an error log entry.
package observe
