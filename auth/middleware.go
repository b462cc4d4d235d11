package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonwraymond/httpinsights/outcome"
)

// Middleware authenticates requests before they reach the wrapped handler.
//
// Contract:
//   - Concurrency: a Middleware is immutable after construction and safe for
//     concurrent use.
//   - Context: the caller's Identity is available from the handler's context
//     via IdentityFromContext.
//   - Errors: rejections are answered with 401, undecidable requests with
//     503; both carry a JSON outcome.Problem body.
type Middleware struct {
	authn     Authenticator
	optional  bool
	challenge string
}

// Option configures a Middleware.
type Option func(*Middleware)

// WithOptional lets requests without credentials through as
// AnonymousIdentity. Requests with bad credentials are still rejected.
func WithOptional(optional bool) Option {
	return func(m *Middleware) {
		m.optional = optional
	}
}

// WithChallenge sets the WWW-Authenticate value sent with 401 responses.
// Defaults to "Bearer".
func WithChallenge(challenge string) Option {
	return func(m *Middleware) {
		if challenge != "" {
			m.challenge = challenge
		}
	}
}

// NewMiddleware creates an authentication middleware.
func NewMiddleware(authn Authenticator, opts ...Option) *Middleware {
	m := &Middleware{
		authn:     authn,
		challenge: "Bearer",
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Wrap authenticates requests to next. Its signature fits chi's Router.Use.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return m.Handler(next)
}

// Handler authenticates requests to next, keeping access to its readiness.
func (m *Middleware) Handler(next http.Handler) *Handler {
	return &Handler{mw: m, next: next}
}

// Handler is an authenticating http.Handler.
type Handler struct {
	mw   *Middleware
	next http.Handler
}

// Ready returns the wrapped handler's readiness, or nil when it has none.
func (h *Handler) Ready(ctx context.Context) error {
	if r, ok := h.next.(interface{ Ready(context.Context) error }); ok {
		return r.Ready(ctx)
	}
	return nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m := h.mw

	if !m.authn.Supports(r) {
		if !m.optional {
			m.reject(w, ErrMissingCredentials)
			return
		}
		h.next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), AnonymousIdentity())))
		return
	}

	id, err := m.authn.Authenticate(r)
	if err != nil {
		m.reject(w, err)
		return
	}

	Annotate(r.Context(), id)
	h.next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
}

func (m *Middleware) reject(w http.ResponseWriter, err error) {
	status := http.StatusServiceUnavailable
	if IsRejection(err) {
		status = http.StatusUnauthorized
		w.Header().Set("WWW-Authenticate", m.challenge)
	}

	body, _ := json.Marshal(&outcome.Problem{Status: status, Message: err.Error()})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Annotate records id on the span active in ctx as enduser.id and
// enduser.role. Anonymous identities are not recorded.
func Annotate(ctx context.Context, id *Identity) {
	if id == nil || id.IsAnonymous() {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(semconv.EnduserID(id.Principal))
	if len(id.Roles) > 0 {
		span.SetAttributes(semconv.EnduserRole(strings.Join(id.Roles, ",")))
	}
}
