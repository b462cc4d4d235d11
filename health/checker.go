package health

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Status is the state a check reports. Statuses are ordered: a larger value
// is worse, so the overall state of a set of checks is its maximum.
type Status int

const (
	StatusHealthy Status = iota
	// StatusDegraded still accepts traffic and answers 200.
	StatusDegraded
	// StatusUnhealthy fails readiness and answers 503.
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// HTTPStatus returns the code the health endpoints answer with for s.
func (s Status) HTTPStatus() int {
	if s >= StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// Result is what a single check reports.
type Result struct {
	Status  Status
	Message string
	// Details is rendered as-is by DetailedHandler.
	Details map[string]any

	// Duration and Timestamp are filled in by the Aggregator when unset.
	Duration  time.Duration
	Timestamp time.Time

	// Error is the cause of an unhealthy or degraded result, if any.
	Error error
}

func Healthy(message string) Result {
	return Result{
		Status:    StatusHealthy,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func Degraded(message string) Result {
	return Result{
		Status:    StatusDegraded,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func Unhealthy(message string, err error) Result {
	return Result{
		Status:    StatusUnhealthy,
		Message:   message,
		Error:     err,
		Timestamp: time.Now(),
	}
}

// WithDetails returns a copy of r carrying details.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Checker is one named check registered with an Aggregator.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

func (f *CheckerFunc) Name() string { return f.name }

func (f *CheckerFunc) Check(ctx context.Context) Result { return f.fn(ctx) }

// Readier is implemented by the instrumented pipeline and every layer that
// can turn requests away.
type Readier interface {
	Ready(ctx context.Context) error
}

// temporary is implemented by readiness errors that clear on their own,
// such as an empty rate limit bucket.
type temporary interface {
	Temporary() bool
}

// ReadyChecker turns a Readier into a Checker. A temporary error reports
// degraded, any other error reports unhealthy. The error is kept unchanged
// in Result.Error.
func ReadyChecker(name string, r Readier) Checker {
	return NewCheckerFunc(name, func(ctx context.Context) Result {
		err := r.Ready(ctx)
		if err == nil {
			return Healthy("ready")
		}

		if isTemporary(err) {
			res := Degraded(err.Error())
			res.Error = err
			return res
		}
		return Unhealthy(err.Error(), err)
	})
}

// isTemporary reports whether every error joined in err is temporary.
func isTemporary(err error) bool {
	switch e := err.(type) {
	case temporary:
		return e.Temporary()
	case interface{ Unwrap() []error }:
		errs := e.Unwrap()
		for _, err := range errs {
			if !isTemporary(err) {
				return false
			}
		}
		return len(errs) > 0
	}
	if next := errors.Unwrap(err); next != nil {
		return isTemporary(next)
	}
	return false
}
