package cache

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrNilCache   = errors.New("cache: cache is nil")
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
)

// Response is a stored HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Cache stores responses by key.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Context: methods should honor cancellation/deadlines where applicable.
//   - Errors: Get never errors; it returns (nil, false) on miss.
//   - Ownership: callers must not modify a Response after Set or one
//     returned by Get.
type Cache interface {
	// Get retrieves a stored response. Returns (nil, false) on miss.
	Get(ctx context.Context, key string) (*Response, bool)

	// Set stores a response with the given TTL. TTL<=0 means no caching.
	Set(ctx context.Context, key string, resp *Response, ttl time.Duration) error

	// Delete removes a stored response. Idempotent: no error on miss.
	Delete(ctx context.Context, key string) error
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
