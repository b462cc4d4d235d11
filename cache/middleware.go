package cache

import (
	"bytes"
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonwraymond/httpinsights/outcome"
)

// HeaderName is the response header reporting HIT or MISS.
const HeaderName = "X-Cache"

// AttrCacheHit is the span attribute recording whether a request was served
// from the cache.
const AttrCacheHit = attribute.Key("http.response.cache_hit")

// Middleware serves safe requests from a Cache.
//
// Contract:
//   - Concurrency: a Middleware is immutable after construction and safe for
//     concurrent use.
//   - Errors: key and storage failures fall back to calling the handler.
//   - Ownership: responses stream to the client while being recorded.
type Middleware struct {
	cache   Cache
	keyer   Keyer
	policy  Policy
	skip    SkipRule
	success outcome.SuccessFunc
}

// Option configures a Middleware.
type Option func(*Middleware)

// WithSkipRule overrides which requests bypass the cache.
// Defaults to DefaultSkipRule.
func WithSkipRule(rule SkipRule) Option {
	return func(m *Middleware) {
		if rule != nil {
			m.skip = rule
		}
	}
}

// WithSuccessFilter overrides which statuses may be stored.
// Defaults to outcome.DefaultSuccess.
func WithSuccessFilter(filter outcome.SuccessFunc) Option {
	return func(m *Middleware) {
		m.success = filter
	}
}

// NewMiddleware creates a caching middleware. A nil keyer means
// NewDefaultKeyer().
func NewMiddleware(c Cache, keyer Keyer, policy Policy, opts ...Option) (*Middleware, error) {
	if c == nil {
		return nil, ErrNilCache
	}
	if keyer == nil {
		keyer = NewDefaultKeyer()
	}
	if policy.MaxBodyBytes <= 0 {
		policy.MaxBodyBytes = DefaultPolicy().MaxBodyBytes
	}

	m := &Middleware{
		cache:  c,
		keyer:  keyer,
		policy: policy,
		skip:   DefaultSkipRule,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Wrap caches responses of next. Its signature fits chi's Router.Use.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return m.Handler(next)
}

// Handler caches responses of next, keeping access to its readiness.
func (m *Middleware) Handler(next http.Handler) *Handler {
	return &Handler{mw: m, next: next}
}

// Handler is a caching http.Handler.
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
	if !m.policy.ShouldCache() || m.skip(r) {
		h.next.ServeHTTP(w, r)
		return
	}

	ctx := r.Context()
	key, err := m.keyer.Key(r)
	if err != nil {
		h.next.ServeHTTP(w, r)
		return
	}

	span := trace.SpanFromContext(ctx)
	if resp, ok := m.cache.Get(ctx, key); ok {
		span.SetAttributes(AttrCacheHit.Bool(true))
		serve(w, r, resp)
		return
	}
	span.SetAttributes(AttrCacheHit.Bool(false))

	body := &limitedBuffer{limit: m.policy.MaxBodyBytes}
	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
	ww.Tee(body)
	ww.Header().Set(HeaderName, "MISS")

	h.next.ServeHTTP(ww, r)

	status := ww.Status()
	if status == 0 {
		status = http.StatusOK
	}
	if body.overflow || !m.storable(status) {
		return
	}
	ttl, ok := responseTTL(ww.Header())
	if !ok {
		return
	}

	header := ww.Header().Clone()
	header.Del(HeaderName)
	_ = m.cache.Set(ctx, key, &Response{
		Status: status,
		Header: header,
		Body:   bytes.Clone(body.buf.Bytes()),
	}, m.policy.EffectiveTTL(ttl))
}

func (m *Middleware) storable(status int) bool {
	return status >= http.StatusOK &&
		status != http.StatusPartialContent &&
		outcome.IsSuccess(status, m.success)
}

func serve(w http.ResponseWriter, r *http.Request, resp *Response) {
	dst := w.Header()
	for k, v := range resp.Header {
		dst[k] = append([]string(nil), v...)
	}
	dst.Set(HeaderName, "HIT")
	w.WriteHeader(resp.Status)
	if r.Method != http.MethodHead {
		_, _ = w.Write(resp.Body)
	}
}

// limitedBuffer records up to limit bytes and gives up, discarding what it
// holds, once more arrive. Writes never fail.
type limitedBuffer struct {
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if b.overflow {
		return len(p), nil
	}
	if b.buf.Len()+len(p) > b.limit {
		b.overflow = true
		b.buf = bytes.Buffer{}
		return len(p), nil
	}
	return b.buf.Write(p)
}
