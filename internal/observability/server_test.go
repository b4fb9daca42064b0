package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"live-interview-service/internal/observability/metrics"
)

func TestHandler(t *testing.T) {
	// Touch a metric so the default registry has something of ours to export.
	metrics.DefaultMetrics.RecordPoll()

	ready := false
	h := Handler(func() bool { return ready })

	tests := []struct {
		path     string
		wantCode int
		contains string
	}{
		{"/healthz", http.StatusOK, "ok"},
		{"/readyz", http.StatusServiceUnavailable, "not ready"},
		{"/metrics", http.StatusOK, "live_interview_transcription_polls_total"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.wantCode {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.wantCode)
			}
			if !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("GET %s body missing %q", tt.path, tt.contains)
			}
		})
	}

	ready = true
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /readyz when ready = %d, want 200", rec.Code)
	}
}
