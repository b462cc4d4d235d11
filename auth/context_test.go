package auth

import (
	"context"
	"net/http"
	"testing"
)

func TestContextAccessors(t *testing.T) {
	full := &Identity{Principal: "alice", TenantID: "acme", Roles: []string{"admin"}}

	tests := []struct {
		name          string
		ctx           context.Context
		wantIdentity  *Identity
		wantPrincipal string
		wantTenant    string
	}{
		{"empty", context.Background(), nil, "", ""},
		{"identity", WithIdentity(context.Background(), full), full, "alice", "acme"},
		{"anonymous", WithIdentity(context.Background(), AnonymousIdentity()), nil, "anonymous", ""},
		{"nil identity", WithIdentity(context.Background(), nil), nil, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantIdentity != nil && IdentityFromContext(tt.ctx) != tt.wantIdentity {
				t.Errorf("IdentityFromContext() = %v, want %v", IdentityFromContext(tt.ctx), tt.wantIdentity)
			}
			if got := PrincipalFromContext(tt.ctx); got != tt.wantPrincipal {
				t.Errorf("PrincipalFromContext() = %q, want %q", got, tt.wantPrincipal)
			}
			if got := TenantIDFromContext(tt.ctx); got != tt.wantTenant {
				t.Errorf("TenantIDFromContext() = %q, want %q", got, tt.wantTenant)
			}
		})
	}
}

func TestMiddleware_StoresIdentityInRequestContext(t *testing.T) {
	var got *Identity
	next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = IdentityFromContext(r.Context())
	})

	NewMiddleware(newKeyAuthenticator()).Handler(next).ServeHTTP(nopWriter{}, request(map[string]string{"X-API-Key": "valid-key"}))

	if got == nil || got.TenantID != "tenant-1" || got.Method != MethodAPIKey {
		t.Errorf("identity = %+v, want tenant-1 via api_key", got)
	}
}

type nopWriter struct{}

func (nopWriter) Header() http.Header         { return http.Header{} }
func (nopWriter) Write(b []byte) (int, error) { return len(b), nil }
func (nopWriter) WriteHeader(int)             {}
