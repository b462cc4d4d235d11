package observe

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*metricsImpl, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := newMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

// TestMetrics_RequestCounterIncrements verifies http.server.requests is incremented.
func TestMetrics_RequestCounterIncrements(t *testing.T) {
	m, reader := newTestMetrics(t)

	meta := RequestMeta{Method: "GET", Route: "/health"}
	m.RecordRequest(context.Background(), meta, 200, 100*time.Millisecond, false)

	found := findMetric(collect(t, reader), "http.server.requests")
	if found == nil {
		t.Fatal("http.server.requests metric not found")
	}

	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", found.Data)
	}
	if len(sum.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if sum.DataPoints[0].Value != 1 {
		t.Errorf("expected count 1, got %d", sum.DataPoints[0].Value)
	}
}

// TestMetrics_ErrorCounterOnSuccess verifies the error counter is not
// incremented for successes.
func TestMetrics_ErrorCounterOnSuccess(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordRequest(context.Background(), RequestMeta{Method: "GET", Route: "/"}, 204, 5*time.Millisecond, false)

	found := findMetric(collect(t, reader), "http.server.errors")
	if found == nil {
		// An instrument that never recorded may be omitted.
		return
	}
	sum, ok := found.Data.(metricdata.Sum[int64])
	if ok && len(sum.DataPoints) > 0 && sum.DataPoints[0].Value != 0 {
		t.Errorf("expected error count 0 on success, got %d", sum.DataPoints[0].Value)
	}
}

// TestMetrics_ErrorCounterOnFailure verifies the error counter on failures.
func TestMetrics_ErrorCounterOnFailure(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordRequest(context.Background(), RequestMeta{Method: "POST", Route: "/orders"}, 500, 5*time.Millisecond, true)

	found := findMetric(collect(t, reader), "http.server.errors")
	if found == nil {
		t.Fatal("http.server.errors metric not found")
	}
	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) == 0 {
		t.Fatalf("expected Sum[int64] data points, got %T", found.Data)
	}
	if sum.DataPoints[0].Value != 1 {
		t.Errorf("expected error count 1, got %d", sum.DataPoints[0].Value)
	}
}

// TestMetrics_DurationHistogram verifies durations are recorded in milliseconds.
func TestMetrics_DurationHistogram(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordRequest(context.Background(), RequestMeta{Method: "GET", Route: "/"}, 200, 250*time.Millisecond, false)

	found := findMetric(collect(t, reader), "http.server.duration_ms")
	if found == nil {
		t.Fatal("http.server.duration_ms metric not found")
	}
	hist, ok := found.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", found.Data)
	}
	if len(hist.DataPoints) == 0 {
		t.Fatal("no histogram data points")
	}
	if got := hist.DataPoints[0].Sum; got < 249 || got > 251 {
		t.Errorf("expected ~250ms, got %f", got)
	}
}

// TestMetrics_Attributes verifies the low-cardinality attribute set.
func TestMetrics_Attributes(t *testing.T) {
	m, reader := newTestMetrics(t)

	meta := RequestMeta{
		Method:        "GET",
		Route:         "/users/{id}",
		URL:           "http://example.com/users/42",
		ClientAddress: "203.0.113.9",
	}
	m.RecordRequest(context.Background(), meta, 404, time.Millisecond, true)

	found := findMetric(collect(t, reader), "http.server.requests")
	if found == nil {
		t.Fatal("http.server.requests metric not found")
	}
	sum := found.Data.(metricdata.Sum[int64])
	if len(sum.DataPoints) != 1 {
		t.Fatalf("expected 1 data point, got %d", len(sum.DataPoints))
	}
	attrs := sum.DataPoints[0].Attributes

	want := map[attribute.Key]string{
		"http.request.method":       "GET",
		"http.route":                "/users/{id}",
		"http.response.status_code": "404",
	}
	for key, val := range want {
		v, ok := attrs.Value(key)
		if !ok {
			t.Errorf("missing attribute %s", key)
			continue
		}
		if v.Emit() != val {
			t.Errorf("attribute %s = %q, want %q", key, v.Emit(), val)
		}
	}
	for _, key := range []attribute.Key{"url.full", "client.address"} {
		if attrs.HasValue(key) {
			t.Errorf("unexpected high-cardinality attribute %s", key)
		}
	}
}

// TestMetrics_ConcurrentRecording verifies concurrent records are all counted.
func TestMetrics_ConcurrentRecording(t *testing.T) {
	m, reader := newTestMetrics(t)

	const numGoroutines = 100
	meta := RequestMeta{Method: "GET", Route: "/"}

	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordRequest(context.Background(), meta, 200, time.Millisecond, false)
		}()
	}
	wg.Wait()

	found := findMetric(collect(t, reader), "http.server.requests")
	if found == nil {
		t.Fatal("http.server.requests metric not found")
	}
	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", found.Data)
	}
	if len(sum.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if sum.DataPoints[0].Value != numGoroutines {
		t.Errorf("expected count %d, got %d", numGoroutines, sum.DataPoints[0].Value)
	}
}

// findMetric searches for a metric by name in ResourceMetrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}
