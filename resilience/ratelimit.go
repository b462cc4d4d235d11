package resilience

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig configures the rate limiter.
type RateLimiterConfig struct {
	// Rate is the number of requests allowed per second.
	// Default: 100
	Rate float64

	// Burst is the maximum burst size.
	// Default: 10
	Burst int

	// WaitOnLimit makes Admit wait for a token instead of rejecting.
	WaitOnLimit bool

	// MaxWait is the maximum time to wait for a token.
	// Default: 1 second
	MaxWait time.Duration
}

// RateLimiter admits requests from a token bucket.
type RateLimiter struct {
	config  RateLimiterConfig
	limiter *rate.Limiter
}

// NewRateLimiter creates a new rate limiter with a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = 100
	}
	if config.Burst <= 0 {
		config.Burst = 10
	}
	if config.MaxWait <= 0 {
		config.MaxWait = time.Second
	}

	return &RateLimiter{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(config.Rate), config.Burst),
	}
}

// Allow reports whether a request may proceed now, consuming a token if so.
func (rl *RateLimiter) Allow() bool {
	return rl.limiter.Allow()
}

// Wait blocks until a token is available, for at most MaxWait.
// Returns ErrRateLimitExceeded when no token arrives in time, or the context
// error if ctx ended first.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	wctx, cancel := context.WithTimeout(ctx, rl.config.MaxWait)
	defer cancel()

	if err := rl.limiter.Wait(wctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrRateLimitExceeded
	}
	return nil
}

// Admit takes a token, waiting for one when WaitOnLimit is set.
func (rl *RateLimiter) Admit(ctx context.Context) (func(int), error) {
	if rl.config.WaitOnLimit {
		if err := rl.Wait(ctx); err != nil {
			return nil, err
		}
	} else if !rl.Allow() {
		return nil, ErrRateLimitExceeded
	}
	return func(int) {}, nil
}

// Ready reports ErrRateLimitExceeded while the bucket is empty.
func (rl *RateLimiter) Ready(context.Context) error {
	if rl.Tokens() < 1 {
		return ErrRateLimitExceeded
	}
	return nil
}

// Tokens returns the current number of available tokens.
func (rl *RateLimiter) Tokens() float64 {
	return rl.limiter.Tokens()
}
