package observe

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// FieldMapper derives extra telemetry fields from a request. It sees the
// request line and headers and must not read the body.
type FieldMapper func(r *http.Request) map[string]string

// RouteResolver returns the matched route template of a request, or "" when
// none is known.
type RouteResolver func(r *http.Request) string

// ChiRoute resolves the route from chi's routing context, falling back to
// the pattern matched by http.ServeMux. chi fills its pattern while
// dispatching, so the result may only be known after the handler ran.
func ChiRoute(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return ServeMuxRoute(r)
}

// ServeMuxRoute resolves the route from the pattern matched by
// http.ServeMux, without its method and host parts.
func ServeMuxRoute(r *http.Request) string {
	p := r.Pattern
	if p == "" {
		return ""
	}
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[i:]
	}
	return p
}

// ClientAddress returns the first entry of X-Forwarded-For, or Unknown when
// the header is absent or blank.
func ClientAddress(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	first, _, _ := strings.Cut(xff, ",")
	if first = strings.TrimSpace(first); first != "" {
		return first
	}
	return Unknown
}

// FullURL reconstructs the absolute URL of a server request.
func FullURL(r *http.Request) string {
	if r.URL.IsAbs() {
		return r.URL.String()
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	host := r.Host
	if host == "" {
		host = r.URL.Host
	}
	return scheme + "://" + host + r.URL.RequestURI()
}

func resolveRoute(resolve RouteResolver, r *http.Request) string {
	if route := resolve(r); route != "" {
		return route
	}
	return Unknown
}

func newRequestMeta(r *http.Request, resolve RouteResolver, mapper FieldMapper) RequestMeta {
	meta := RequestMeta{
		Method:        r.Method,
		URL:           FullURL(r),
		ClientAddress: ClientAddress(r),
		Route:         resolveRoute(resolve, r),
	}
	if mapper != nil {
		meta.Fields = mapper(r)
	}
	return meta
}
