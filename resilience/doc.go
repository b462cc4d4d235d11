// Package resilience provides admission control for HTTP handlers.
//
// A Gate decides whether a request may proceed and learns how it ended:
//
//   - CircuitBreaker stops admitting requests after repeated server
//     failures and admits trial requests after a timeout.
//   - RateLimiter admits requests at a steady rate with bursts.
//   - Bulkhead limits the number of requests served at once.
//
// Gates compose with Chain and are applied with Protect. Rejected requests
// are answered with a JSON problem body that observe.Middleware decodes
// into the request span:
//
//	guard := resilience.Protect(api, resilience.Chain(
//	    resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{MaxFailures: 5}),
//	    resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 64}),
//	))
//	handler := mw.Handler(guard)
//
// Every gate, and the Guard itself, reports readiness through Ready, so an
// open circuit or a full bulkhead shows up on the readiness endpoint.
package resilience
