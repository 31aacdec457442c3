package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestMetrics_Usable verifies that all Prometheus metrics can be used without
// panic, ensuring label dimensions match usage across fetcher, http, and weather packages.
func TestMetrics_Usable(t *testing.T) {
	// Route uses path templates to avoid cardinality
	HTTPRequestsTotal.WithLabelValues("GET", "/weather/current", "2xx").Inc()
	HTTPRequestDuration.WithLabelValues("GET", "/weather/current").Observe(0.01)
	UpstreamCallsTotal.WithLabelValues("weather", "success").Inc()
	UpstreamCallsTotal.WithLabelValues("forecast", "error").Inc()
	UpstreamDuration.WithLabelValues("weather", "success").Observe(0.1)
	CacheHitsTotal.Inc()
	CacheMissesTotal.Inc()
	CacheWriteFailuresTotal.Inc()
	AlertsShownTotal.Inc()
	RateLimitDeniedTotal.Inc()
}

// TestStatusLabel verifies the status code to label mapping.
func TestStatusLabel(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "success"},
		{204, "success"},
		{404, "client_error"},
		{429, "client_error"},
		{500, "server_error"},
		{0, "error"},
	}
	for _, tt := range tests {
		if got := StatusLabel(tt.code); got != tt.want {
			t.Errorf("StatusLabel(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

// TestMetricsHandler_ServesPrometheusFormat verifies that MetricsHandler serves
// Prometheus text exposition format with correct HTTP status and metric output.
func TestMetricsHandler_ServesPrometheusFormat(t *testing.T) {
	handler := MetricsHandler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("MetricsHandler status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "httpRequestsTotal") {
		t.Error("MetricsHandler response should contain metric output")
	}
}
