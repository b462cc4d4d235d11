// Command insights-demo serves a small catalog API behind the full request
// pipeline: tracing, authentication, admission control and response caching.
//
// Configuration comes from INSIGHTS_* variables (see observe.ConfigFromEnv)
// or, when INSIGHTS_CONFIG names a file, from YAML. Demo-specific settings:
//
//	INSIGHTS_ADDR          listen address (default :8080)
//	INSIGHTS_JWT_SECRET    HMAC secret for bearer tokens; secretref: allowed
//	INSIGHTS_JWKS_URL      JWKS endpoint, used instead of the secret
//	INSIGHTS_API_KEY       accepted X-API-Key value; secretref: allowed
//	INSIGHTS_AUTH_REQUIRED reject anonymous requests
//	INSIGHTS_SECRETS_DIR   base directory of the file secret provider
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/httpinsights/auth"
	"github.com/jonwraymond/httpinsights/cache"
	"github.com/jonwraymond/httpinsights/health"
	"github.com/jonwraymond/httpinsights/observe"
	"github.com/jonwraymond/httpinsights/outcome"
	"github.com/jonwraymond/httpinsights/resilience"
	"github.com/jonwraymond/httpinsights/secret"
)

type demoConfig struct {
	Addr         string        `env:"ADDR" envDefault:":8080"`
	ConfigFile   string        `env:"CONFIG"`
	JWTSecret    string        `env:"JWT_SECRET"`
	JWKSURL      string        `env:"JWKS_URL"`
	APIKey       string        `env:"API_KEY"`
	AuthRequired bool          `env:"AUTH_REQUIRED"`
	SecretsDir   string        `env:"SECRETS_DIR"`
	RateLimit    float64       `env:"RATE_LIMIT" envDefault:"50"`
	MaxInFlight  int           `env:"MAX_IN_FLIGHT" envDefault:"32"`
	CacheTTL     time.Duration `env:"CACHE_TTL" envDefault:"30s"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "insights-demo:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var demo demoConfig
	if err := env.ParseWithOptions(&demo, env.Options{Prefix: observe.EnvPrefix}); err != nil {
		return fmt.Errorf("demo config: %w", err)
	}

	resolver, err := secret.DefaultRegistry.Resolver(true, map[string]map[string]any{
		"env":  nil,
		"file": {"dir": demo.SecretsDir},
	})
	if err != nil {
		return err
	}
	defer resolver.Close()

	cfg, err := loadConfig(demo.ConfigFile)
	if err != nil {
		return err
	}
	if cfg, err = cfg.Resolve(ctx, resolver); err != nil {
		return err
	}

	obs, err := observe.NewObserver(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(sctx)
	}()
	defer obs.Recover(ctx)
	logger := obs.Logger()

	authn, err := newAuthenticator(ctx, resolver, demo)
	if err != nil {
		return err
	}

	instrument, err := observe.MiddlewareFromObserver(obs,
		observe.WithFieldMapper(observe.CombineFieldMappers(
			observe.RequestIDField("request_id"),
			observe.HeaderFields("User-Agent", "X-Tenant-ID"),
			observe.BearerClaimFields("sub", "iss"),
		)),
	)
	if err != nil {
		return err
	}

	responses, err := cache.NewMiddleware(
		cache.NewMemoryCache(1000),
		cache.NewDefaultKeyer("Accept", "X-Tenant-ID"),
		cache.Policy{DefaultTTL: demo.CacheTTL, MaxTTL: 10 * time.Minute},
	)
	if err != nil {
		return err
	}

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		OnStateChange: func(from, to resilience.State) {
			logger.Warn(ctx, "circuit breaker state changed",
				observe.Field{Key: "from", Value: from.String()},
				observe.Field{Key: "to", Value: to.String()},
			)
		},
	})
	gate := resilience.Chain(
		resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: demo.RateLimit, Burst: 20}),
		resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: demo.MaxInFlight, MaxWait: 100 * time.Millisecond}),
		breaker,
	)

	api := instrument.Handler(
		auth.NewMiddleware(authn, auth.WithOptional(!demo.AuthRequired)).Handler(
			resilience.Protect(responses.Handler(newCatalog()), gate),
		),
	)

	checks := health.NewAggregator()
	checks.Register("api", health.ReadyChecker("api", api))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	health.RegisterHandlers(r, checks)
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/api", api)

	srv := &http.Server{
		Addr:              demo.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info(ctx, "listening", observe.Field{Key: "addr", Value: demo.Addr})
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

func loadConfig(path string) (observe.Config, error) {
	if path != "" {
		return observe.LoadConfig(path)
	}
	return observe.ConfigFromEnv()
}

// newAuthenticator builds the configured authenticators. With none
// configured every request is anonymous.
func newAuthenticator(ctx context.Context, resolver *secret.Resolver, demo demoConfig) (auth.Authenticator, error) {
	cfgs := make(map[string]map[string]any)

	switch {
	case demo.JWKSURL != "":
		cfgs["jwt"] = map[string]any{"jwks_url": demo.JWKSURL, "roles_claim": "roles"}
	case demo.JWTSecret != "":
		key, err := resolver.ResolveValue(ctx, demo.JWTSecret)
		if err != nil {
			return nil, fmt.Errorf("jwt secret: %w", err)
		}
		cfgs["jwt"] = map[string]any{"secret": key, "roles_claim": "roles"}
	}

	if demo.APIKey != "" {
		key, err := resolver.ResolveValue(ctx, demo.APIKey)
		if err != nil {
			return nil, fmt.Errorf("api key: %w", err)
		}
		cfgs["api_key"] = map[string]any{
			"keys": []any{map[string]any{"id": "demo", "key": key, "principal": "demo-client"}},
		}
	}

	return auth.DefaultRegistry.Composite(cfgs)
}

type item struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int    `json:"price_cents"`
}

var items = map[string]item{
	"1": {ID: "1", Name: "kettle", Price: 2599},
	"2": {ID: "2", Name: "teapot", Price: 1850},
}

// newCatalog returns the demo API. /panic exercises panic recovery and
// unknown items answer with a JSON problem.
func newCatalog() http.Handler {
	r := chi.NewRouter()

	r.Get("/items", func(w http.ResponseWriter, _ *http.Request) {
		list := make([]item, 0, len(items))
		for _, id := range []string{"1", "2"} {
			list = append(list, items[id])
		}
		writeJSON(w, http.StatusOK, list)
	})

	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		it, ok := items[chi.URLParam(r, "id")]
		if !ok {
			writeJSON(w, http.StatusNotFound, outcome.Problem{Status: http.StatusNotFound, Message: "item not found"})
			return
		}
		w.Header().Set("Cache-Control", "max-age=60")
		writeJSON(w, http.StatusOK, it)
	})

	r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
		id := auth.IdentityFromContext(r.Context())
		w.Header().Set("Cache-Control", "private")
		writeJSON(w, http.StatusOK, id)
	})

	r.Get("/panic", func(http.ResponseWriter, *http.Request) {
		panic("demo panic")
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
