package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// BenchmarkAPIKeyAuthenticator_Authenticate measures API key validation.
func BenchmarkAPIKeyAuthenticator_Authenticate(b *testing.B) {
	a := NewAPIKeyAuthenticator(APIKeyConfig{}, newTestKeyStore())
	req := request(map[string]string{"X-API-Key": "valid-key"})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = a.Authenticate(req)
	}
}

// BenchmarkHashAPIKey measures key hashing.
func BenchmarkHashAPIKey(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = HashAPIKey("example-key-test-12345")
	}
}

// BenchmarkJWTAuthenticator_Authenticate measures HS256 verification.
func BenchmarkJWTAuthenticator_Authenticate(b *testing.B) {
	a := NewJWTAuthenticator(JWTConfig{RolesClaim: "roles"}, NewStaticKeyProvider(testSecret))
	token, _ := NewHMACToken(testSecret, "bench", time.Hour, map[string]any{"roles": []string{"a", "b"}})
	req := request(map[string]string{"Authorization": "Bearer " + token})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = a.Authenticate(req)
	}
}

// BenchmarkCompositeAuthenticator_Authenticate measures fallthrough to the
// second authenticator.
func BenchmarkCompositeAuthenticator_Authenticate(b *testing.B) {
	c := NewCompositeAuthenticator(
		NewJWTAuthenticator(JWTConfig{}, NewStaticKeyProvider(testSecret)),
		NewAPIKeyAuthenticator(APIKeyConfig{}, newTestKeyStore()),
	)
	req := request(map[string]string{"X-API-Key": "valid-key"})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Authenticate(req)
	}
}

// BenchmarkMiddleware_ServeHTTP measures an authenticated request end to end.
func BenchmarkMiddleware_ServeHTTP(b *testing.B) {
	h := NewMiddleware(NewAPIKeyAuthenticator(APIKeyConfig{}, newTestKeyStore())).Handler(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }),
	)
	req := request(map[string]string{"X-API-Key": "valid-key"})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
}
