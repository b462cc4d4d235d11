package resilience

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/jonwraymond/httpinsights/outcome"
)

// NotServed is passed to a done func when an admitted request never reached
// the handler, for example because a later gate in a Chain rejected it.
const NotServed = 0

// Gate decides whether a request may proceed.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Admit returns a done func that the caller calls exactly once with the
//     final response status, or NotServed.
//   - Ready reports the rejection Admit would currently return, if any.
type Gate interface {
	Admit(ctx context.Context) (done func(status int), err error)
	Ready(ctx context.Context) error
}

type chain []Gate

// Chain combines gates. A request is admitted only when every gate admits
// it, in order; gates that admitted it before a rejection see NotServed.
func Chain(gates ...Gate) Gate {
	return chain(gates)
}

func (c chain) Admit(ctx context.Context) (func(int), error) {
	dones := make([]func(int), 0, len(c))
	finish := func(status int) {
		for i := len(dones) - 1; i >= 0; i-- {
			dones[i](status)
		}
	}
	for _, g := range c {
		done, err := g.Admit(ctx)
		if err != nil {
			finish(NotServed)
			return nil, err
		}
		dones = append(dones, done)
	}
	return finish, nil
}

func (c chain) Ready(ctx context.Context) error {
	var errs []error
	for _, g := range c {
		if err := g.Ready(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Guard is an http.Handler that admits requests through a Gate.
type Guard struct {
	next http.Handler
	gate Gate
}

// Protect wraps next so that every request passes gate first.
func Protect(next http.Handler, gate Gate) *Guard {
	return &Guard{next: next, gate: gate}
}

func (g *Guard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	done, err := g.gate.Admit(r.Context())
	if err != nil {
		reject(w, err)
		return
	}

	// A panicking handler is reported as a server failure.
	status := http.StatusInternalServerError
	defer func() { done(status) }()

	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
	g.next.ServeHTTP(ww, r)

	status = ww.Status()
	if status == 0 {
		status = http.StatusOK
	}
}

// Ready reports the gate's readiness, then that of the wrapped handler when
// it has one.
func (g *Guard) Ready(ctx context.Context) error {
	if err := g.gate.Ready(ctx); err != nil {
		return err
	}
	if rd, ok := g.next.(interface{ Ready(context.Context) error }); ok {
		return rd.Ready(ctx)
	}
	return nil
}

// RejectStatus returns the HTTP status used to answer a rejection: the
// Rejection's own status, or 503 for any other admission error.
func RejectStatus(err error) int {
	var rej *Rejection
	if errors.As(err, &rej) && rej.Status != 0 {
		return rej.Status
	}
	return http.StatusServiceUnavailable
}

func reject(w http.ResponseWriter, err error) {
	status := RejectStatus(err)
	body, _ := json.Marshal(&outcome.Problem{Status: status, Message: err.Error()})

	w.Header().Set("Content-Type", "application/json")
	var rej *Rejection
	if errors.As(err, &rej) && rej.RetryAfter > 0 {
		secs := int(math.Ceil(rej.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
