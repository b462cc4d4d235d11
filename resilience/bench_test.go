package resilience

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// BenchmarkCircuitBreaker_Admit_Closed measures the happy path.
func BenchmarkCircuitBreaker_Admit_Closed(b *testing.B) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:  100,
		ResetTimeout: time.Minute,
	})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		done, _ := cb.Admit(ctx)
		done(http.StatusOK)
	}
}

// BenchmarkCircuitBreaker_Admit_Open measures rejection cost.
func BenchmarkCircuitBreaker_Admit_Open(b *testing.B) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:  1,
		ResetTimeout: time.Hour,
	})
	ctx := context.Background()
	done, _ := cb.Admit(ctx)
	done(http.StatusInternalServerError)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = cb.Admit(ctx)
	}
}

// BenchmarkRateLimiter_Allow measures token consumption.
func BenchmarkRateLimiter_Allow(b *testing.B) {
	rl := NewRateLimiter(RateLimiterConfig{
		Rate:  1e9,
		Burst: 1 << 20,
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = rl.Allow()
	}
}

// BenchmarkBulkhead_Admit measures slot acquisition and release.
func BenchmarkBulkhead_Admit(b *testing.B) {
	bh := NewBulkhead(BulkheadConfig{MaxConcurrent: 100})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		done, _ := bh.Admit(ctx)
		done(http.StatusOK)
	}
}

// BenchmarkBulkhead_Admit_Parallel measures contention.
func BenchmarkBulkhead_Admit_Parallel(b *testing.B) {
	bh := NewBulkhead(BulkheadConfig{MaxConcurrent: 1000, MaxWait: time.Second})
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			done, err := bh.Admit(ctx)
			if err == nil {
				done(http.StatusOK)
			}
		}
	})
}

// BenchmarkGuard_ServeHTTP measures a chained guard in front of a trivial handler.
func BenchmarkGuard_ServeHTTP(b *testing.B) {
	gate := Chain(
		NewRateLimiter(RateLimiterConfig{Rate: 1e9, Burst: 1 << 20}),
		NewBulkhead(BulkheadConfig{MaxConcurrent: 100}),
		NewCircuitBreaker(CircuitBreakerConfig{}),
	)
	guard := Protect(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), gate)
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		guard.ServeHTTP(httptest.NewRecorder(), req)
	}
}
