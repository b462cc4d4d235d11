package observe

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
)

// HeaderFields records the named request headers, keyed by their lowercase
// names. Missing headers are skipped.
func HeaderFields(names ...string) FieldMapper {
	return func(r *http.Request) map[string]string {
		out := make(map[string]string, len(names))
		for _, name := range names {
			if v := r.Header.Get(name); v != "" {
				out[strings.ToLower(name)] = v
			}
		}
		return out
	}
}

// RequestIDField records the request id assigned by chi's RequestID
// middleware under key.
func RequestIDField(key string) FieldMapper {
	return func(r *http.Request) map[string]string {
		if id := middleware.GetReqID(r.Context()); id != "" {
			return map[string]string{key: id}
		}
		return nil
	}
}

// BearerClaimFields records selected claims of a bearer JWT as
// "claim.<name>" fields.
//
// The token signature is NOT verified; authentication must happen
// elsewhere. Claims are informational only.
func BearerClaimFields(claims ...string) FieldMapper {
	parser := jwt.NewParser()
	return func(r *http.Request) map[string]string {
		auth := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || raw == "" {
			return nil
		}

		mc := jwt.MapClaims{}
		if _, _, err := parser.ParseUnverified(strings.TrimSpace(raw), mc); err != nil {
			return nil
		}

		out := make(map[string]string, len(claims))
		for _, name := range claims {
			v, ok := mc[name]
			if !ok || v == nil {
				continue
			}
			out["claim."+name] = fmt.Sprint(v)
		}
		return out
	}
}

// CombineFieldMappers merges the output of several mappers. Later mappers
// win on key collisions.
func CombineFieldMappers(mappers ...FieldMapper) FieldMapper {
	return func(r *http.Request) map[string]string {
		out := make(map[string]string)
		for _, m := range mappers {
			if m == nil {
				continue
			}
			for k, v := range m(r) {
				out[k] = v
			}
		}
		return out
	}
}
