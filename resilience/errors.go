package resilience

import (
	"net/http"
	"time"
)

// Rejection is the error a gate returns when it turns a request away. It
// carries the response a Guard answers with.
type Rejection struct {
	// Status is the HTTP status of the answer.
	Status int
	// RetryAfter is advertised in the Retry-After header when positive.
	RetryAfter time.Duration

	msg string
}

func (r *Rejection) Error() string { return r.msg }

// Temporary reports whether the gate expects to admit again within
// RetryAfter.
func (r *Rejection) Temporary() bool { return r.RetryAfter > 0 }

var (
	ErrCircuitOpen = &Rejection{
		Status: http.StatusServiceUnavailable,
		msg:    "resilience: circuit breaker is open",
	}

	ErrRateLimitExceeded = &Rejection{
		Status:     http.StatusTooManyRequests,
		RetryAfter: time.Second,
		msg:        "resilience: rate limit exceeded",
	}

	ErrBulkheadFull = &Rejection{
		Status: http.StatusServiceUnavailable,
		msg:    "resilience: bulkhead at capacity",
	}
)
