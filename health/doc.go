// Package health reports whether an instrumented service can take traffic.
//
// A Checker reports the Status of one component: Healthy, Degraded or
// Unhealthy. An Aggregator runs a set of checkers concurrently and combines
// their results. Any value with a Ready(ctx) error method, such as an
// instrumented observe.Handler or a resilience limiter, is adapted with
// ReadyChecker.
//
// # Basic Usage
//
//	agg := health.NewAggregator()
//	agg.Register("api", health.ReadyChecker("api", handler))
//	agg.Register("collector", collectorCheck)
//
//	results := agg.CheckAll(ctx)
//	overall := agg.OverallStatus(results)
//
// The Aggregator is itself a Readier, so it can gate another component.
//
// # HTTP Endpoints
//
// RegisterHandlers mounts the health endpoints on a chi router:
//
//	/healthz        liveness, always 200
//	/readyz         readiness, 503 when any check is unhealthy
//	/health         detailed JSON report
//	/health/{name}  a single check
package health
