// Package auth identifies the caller of an HTTP request.
//
// Authenticators verify bearer JWTs (static HMAC keys or a JWKS endpoint) and
// API keys. Middleware stores the resulting Identity in the request context
// and annotates the active server span with enduser.id and enduser.role, so
// traced requests carry who made them. Rejected requests are answered with a
// JSON problem body that the instrumentation middleware records as a
// classified failure.
package auth
