package observability_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"reviewpulse/internal/adapters/observability"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()

	// record samples so counters are non-zero
	observability.ObserveHTTP("/test", "GET", 200, 12*time.Millisecond)
	observability.ObservePipeline("google_play", "fetched", 3)
	observability.ObservePipeline("google_play", "duplicate", 0) // no-op
	observability.ObserveInference(nil)

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, want := range []string{
		"reviewpulse_http_requests_total",
		"reviewpulse_pipeline_reviews_total",
		"reviewpulse_inference_calls_total",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in output", want)
		}
	}
	if strings.Contains(out, `outcome="duplicate"`) {
		t.Fatalf("zero-count observation must not create a series")
	}
}

// The scraper has no API mux; its /metrics is whatever Serve mounts. That
// handler must expose the pipeline collectors, not an empty registry.
func TestServedEndpointExposesPipelineCounters(t *testing.T) {
	observability.ObservePipeline("app_store", "persisted", 2)
	observability.ObserveSourceFailure("app_store")

	srv := httptest.NewServer(observability.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status: %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	out := string(body)
	for _, want := range []string{
		`reviewpulse_pipeline_reviews_total{outcome="persisted",source="app_store"} 2`,
		`reviewpulse_source_failures_total{source="app_store"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in served output", want)
		}
	}
}
