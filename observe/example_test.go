package observe_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"

	"github.com/jonwraymond/httpinsights/observe"
)

func ExampleNewObserver() {
	cfg := observe.Config{
		ServiceName: "example-service",
		Version:     "1.0.0",
		Tracing:     observe.TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1},
		Metrics:     observe.MetricsConfig{Enabled: false},
		Logging:     observe.LoggingConfig{Enabled: false},
	}

	ctx := context.Background()
	obs, err := observe.NewObserver(ctx, cfg)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	defer func() {
		_ = obs.Shutdown(ctx)
	}()

	fmt.Println("Observer created successfully")
	// Output:
	// Observer created successfully
}

func ExampleNewObserver_validation() {
	cfg := observe.Config{
		ServiceName: "",
	}

	_, err := observe.NewObserver(context.Background(), cfg)
	if errors.Is(err, observe.ErrMissingServiceName) {
		fmt.Println("Caught: missing service name")
	}
	// Output:
	// Caught: missing service name
}

func ExampleConfig_Validate() {
	cfg := observe.Config{
		ServiceName: "my-service",
		Tracing: observe.TracingConfig{
			Enabled:   true,
			Exporter:  "otlphttp",
			SamplePct: 0.5,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  true,
			Exporter: "prometheus",
		},
	}

	if err := cfg.Validate(); err != nil {
		fmt.Println("Invalid:", err)
	} else {
		fmt.Println("Configuration is valid")
	}
	// Output:
	// Configuration is valid
}

func ExampleRequestMeta_SpanName() {
	meta := observe.RequestMeta{Method: "GET", Route: "/users/{id}"}
	fmt.Println(meta.SpanName())

	meta.Route = observe.Unknown
	fmt.Println(meta.SpanName())
	// Output:
	// GET /users/{id}
	// GET
}

func ExampleMiddleware_Wrap() {
	mw := observe.NewMiddleware(nil, nil, nil)

	r := chi.NewRouter()
	r.Use(mw.Wrap)
	r.Get("/explode", func(w http.ResponseWriter, r *http.Request) {
		panic("out of coffee")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/explode", nil))

	fmt.Println(rec.Code)
	fmt.Println(rec.Body.String())
	// Output:
	// 500
	// {"status":500,"message":"A panic occurred: out of coffee."}
}

func ExampleWithPanicMapper() {
	mw := observe.NewMiddleware(nil, nil, nil,
		observe.WithPanicMapper(func(payload string) (int, any) {
			return http.StatusServiceUnavailable, map[string]string{"error": payload}
		}),
	)

	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("maintenance")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	fmt.Println(rec.Code, rec.Body.String())
	// Output:
	// 503 {"error":"maintenance"}
}

func ExampleWithSuccessFilter() {
	mw := observe.NewMiddleware(nil, nil, nil,
		observe.WithSuccessFilter(func(status int) bool {
			return status < 400 || status == http.StatusNotFound
		}),
	)

	handler := mw.Wrap(http.NotFoundHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	fmt.Println(rec.Code)
	// Output:
	// 404
}

func ExampleClientAddress() {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	fmt.Println(observe.ClientAddress(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	fmt.Println(observe.ClientAddress(req))
	// Output:
	// unknown
	// 203.0.113.7
}

type warmingUp struct{}

func (warmingUp) ServeHTTP(w http.ResponseWriter, r *http.Request) {}

func (warmingUp) Ready(context.Context) error { return errors.New("cache warming") }

func ExampleHandler_Ready() {
	mw := observe.NewMiddleware(nil, nil, nil)
	h := mw.Handler(warmingUp{})

	fmt.Println(h.Ready(context.Background()))
	// Output:
	// cache warming
}
