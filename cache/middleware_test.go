package cache

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// counting answers with status and body and counts how often it ran.
type counting struct {
	calls  atomic.Int32
	status int
	body   string
	header map[string]string
}

func (c *counting) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	c.calls.Add(1)
	for k, v := range c.header {
		w.Header().Set(k, v)
	}
	if c.status != 0 {
		w.WriteHeader(c.status)
	}
	_, _ = w.Write([]byte(c.body))
}

func newHandler(t *testing.T, next http.Handler, policy Policy, opts ...Option) *Handler {
	t.Helper()
	m, err := NewMiddleware(NewMemoryCache(0), nil, policy, opts...)
	if err != nil {
		t.Fatalf("NewMiddleware() error = %v", err)
	}
	return m.Handler(next)
}

func do(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestNewMiddleware_NilCache(t *testing.T) {
	if _, err := NewMiddleware(nil, nil, DefaultPolicy()); !errors.Is(err, ErrNilCache) {
		t.Errorf("NewMiddleware(nil) error = %v, want ErrNilCache", err)
	}
}

func TestMiddleware_MissThenHit(t *testing.T) {
	next := &counting{body: "items", header: map[string]string{"Content-Type": "text/plain"}}
	h := newHandler(t, next, DefaultPolicy())

	first := do(h, http.MethodGet, "/items")
	if got := first.Header().Get(HeaderName); got != "MISS" {
		t.Errorf("first %s = %q, want MISS", HeaderName, got)
	}

	second := do(h, http.MethodGet, "/items")
	if got := second.Header().Get(HeaderName); got != "HIT" {
		t.Errorf("second %s = %q, want HIT", HeaderName, got)
	}
	if second.Code != http.StatusOK || second.Body.String() != "items" {
		t.Errorf("hit = %d %q, want 200 items", second.Code, second.Body.String())
	}
	if got := second.Header().Get("Content-Type"); got != "text/plain" {
		t.Errorf("Content-Type = %q, want text/plain", got)
	}
	if got := next.calls.Load(); got != 1 {
		t.Errorf("handler called %d times, want 1", got)
	}
}

func TestMiddleware_FailuresNotStored(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"server error", http.StatusInternalServerError},
		{"not found", http.StatusNotFound},
		{"partial content", http.StatusPartialContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := http.StatusText(tt.status)
			next := &counting{status: tt.status, body: body}
			h := newHandler(t, next, DefaultPolicy())

			for i := 0; i < 2; i++ {
				rec := do(h, http.MethodGet, "/x")
				if rec.Code != tt.status || rec.Body.String() != body {
					t.Errorf("response = %d %q, want %d %q", rec.Code, rec.Body.String(), tt.status, body)
				}
			}
			if got := next.calls.Load(); got != 2 {
				t.Errorf("handler called %d times, want 2", got)
			}
		})
	}
}

func TestMiddleware_SuccessFilter(t *testing.T) {
	next := &counting{status: http.StatusAccepted, body: "queued"}
	h := newHandler(t, next, DefaultPolicy(), WithSuccessFilter(func(status int) bool {
		return status == http.StatusOK
	}))

	do(h, http.MethodGet, "/jobs")
	do(h, http.MethodGet, "/jobs")
	if got := next.calls.Load(); got != 2 {
		t.Errorf("handler called %d times, want 2 for a filtered status", got)
	}
}

func TestMiddleware_ResponseCacheControl(t *testing.T) {
	tests := []struct {
		name         string
		cacheControl string
		wantCalls    int32
	}{
		{"no directive", "", 1},
		{"max-age", "max-age=60", 1},
		{"no-store", "no-store", 2},
		{"private", "private", 2},
		{"max-age zero", "max-age=0", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := &counting{body: "ok"}
			if tt.cacheControl != "" {
				next.header = map[string]string{"Cache-Control": tt.cacheControl}
			}
			h := newHandler(t, next, DefaultPolicy())

			do(h, http.MethodGet, "/")
			do(h, http.MethodGet, "/")
			if got := next.calls.Load(); got != tt.wantCalls {
				t.Errorf("handler called %d times, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestMiddleware_MaxAgeExpires(t *testing.T) {
	next := &counting{body: "ok"}
	h := newHandler(t, next, Policy{DefaultTTL: time.Minute, MaxTTL: 10 * time.Millisecond})

	do(h, http.MethodGet, "/")
	time.Sleep(20 * time.Millisecond)
	do(h, http.MethodGet, "/")

	if got := next.calls.Load(); got != 2 {
		t.Errorf("handler called %d times, want 2 after MaxTTL", got)
	}
}

func TestMiddleware_Bypass(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		method string
	}{
		{"post", DefaultPolicy(), http.MethodPost},
		{"no-cache policy", NoCachePolicy(), http.MethodGet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := &counting{body: "ok"}
			h := newHandler(t, next, tt.policy)

			rec := do(h, tt.method, "/")
			do(h, tt.method, "/")

			if got := rec.Header().Get(HeaderName); got != "" {
				t.Errorf("%s = %q, want none on bypass", HeaderName, got)
			}
			if got := next.calls.Load(); got != 2 {
				t.Errorf("handler called %d times, want 2", got)
			}
		})
	}
}

func TestMiddleware_CustomSkipRule(t *testing.T) {
	next := &counting{body: "ok"}
	h := newHandler(t, next, DefaultPolicy(), WithSkipRule(func(r *http.Request) bool {
		return strings.HasPrefix(r.URL.Path, "/live")
	}))

	do(h, http.MethodGet, "/live/feed")
	do(h, http.MethodGet, "/live/feed")
	if got := next.calls.Load(); got != 2 {
		t.Errorf("handler called %d times, want 2", got)
	}
}

func TestMiddleware_OversizedBodyNotStored(t *testing.T) {
	next := &counting{body: strings.Repeat("x", 64)}
	h := newHandler(t, next, Policy{DefaultTTL: time.Minute, MaxBodyBytes: 16})

	rec := do(h, http.MethodGet, "/big")
	if rec.Body.Len() != 64 {
		t.Errorf("client got %d bytes, want 64", rec.Body.Len())
	}
	do(h, http.MethodGet, "/big")
	if got := next.calls.Load(); got != 2 {
		t.Errorf("handler called %d times, want 2", got)
	}
}

func TestMiddleware_HeadHitHasNoBody(t *testing.T) {
	next := &counting{body: "payload"}
	h := newHandler(t, next, DefaultPolicy())

	do(h, http.MethodHead, "/doc")
	rec := do(h, http.MethodHead, "/doc")

	if got := rec.Header().Get(HeaderName); got != "HIT" {
		t.Errorf("%s = %q, want HIT", HeaderName, got)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("HEAD hit wrote %q", rec.Body.String())
	}
}

func TestMiddleware_RecordsCacheHitOnSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	h := newHandler(t, &counting{body: "ok"}, DefaultPolicy())
	serve := func() {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		ctx, span := tp.Tracer("test").Start(r.Context(), "GET /")
		h.ServeHTTP(httptest.NewRecorder(), r.WithContext(ctx))
		span.End()
	}
	serve()
	serve()

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	for i, want := range []bool{false, true} {
		found := false
		for _, kv := range spans[i].Attributes() {
			if kv.Key == AttrCacheHit {
				found = true
				if kv.Value.AsBool() != want {
					t.Errorf("span %d %s = %v, want %v", i, AttrCacheHit, kv.Value.AsBool(), want)
				}
			}
		}
		if !found {
			t.Errorf("span %d missing %s", i, AttrCacheHit)
		}
	}
}

type readyNext struct {
	http.Handler
	err error
}

func (r readyNext) Ready(context.Context) error { return r.err }

func TestHandler_Ready(t *testing.T) {
	errDown := errors.New("down")
	m, _ := NewMiddleware(NewMemoryCache(0), nil, DefaultPolicy())

	if err := m.Handler(readyNext{Handler: &counting{}, err: errDown}).Ready(context.Background()); !errors.Is(err, errDown) {
		t.Errorf("Ready() = %v, want %v", err, errDown)
	}
	if err := m.Handler(&counting{}).Ready(context.Background()); err != nil {
		t.Errorf("Ready() = %v, want nil", err)
	}
}

func TestLimitedBuffer(t *testing.T) {
	b := &limitedBuffer{limit: 4}

	if n, err := b.Write([]byte("ab")); n != 2 || err != nil {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	if n, err := b.Write([]byte("cde")); n != 3 || err != nil {
		t.Fatalf("Write() past limit = %d, %v", n, err)
	}
	if !b.overflow || b.buf.Len() != 0 {
		t.Errorf("overflow = %v len = %d, want true 0", b.overflow, b.buf.Len())
	}
}
