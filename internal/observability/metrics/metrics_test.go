package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/footwear-qc/internal/core/domain"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	return string(body)
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"/v1/inspections":                 "/v1/inspections",
		"/v1/inspections/abc":             "/v1/inspections/{id}",
		"/v1/inspections/abc/verdict":     "/v1/inspections/{id}/verdict",
		"/v1/inspections/abc/defects":     "/v1/inspections/{id}/defects",
		"/v1/inspections/abc/defects/d-1": "/v1/inspections/{id}/defects/{defect_id}",
		"/v1/inspections/abc/report.pdf":  "/v1/inspections/{id}/report.pdf",
		"/v1/qc/evaluate":                 "/v1/qc/evaluate",
	}
	for in, want := range tests {
		if got := normalizePath(in); got != want {
			t.Fatalf("normalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHTTPMiddlewareRecordsRequestsAndVerdicts(t *testing.T) {
	m := NewHTTPServerMetrics("qc-api")
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/inspections/abc/verdict", nil))
	m.RecordVerdict("final", domain.DecisionReject)
	m.RecordRejected("rate_limited")

	body := scrape(t, m.Handler())
	for _, want := range []string{
		`qc_http_requests_total{method="GET",path="/v1/inspections/{id}/verdict",service="qc-api",status="418"} 1`,
		`qc_inspection_verdicts_total{decision="REJECT",service="qc-api",source="final"} 1`,
		`qc_http_rejected_total{reason="rate_limited",service="qc-api"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q:\n%s", want, body)
		}
	}
}

func TestWorkerMetrics(t *testing.T) {
	m := NewWorkerMetrics("qc-worker")
	m.StartInspection()
	m.FinishInspection(2*time.Second, errors.New("boom"))
	m.ObserveImageAnalysis(domain.ImageResultAbsent)
	m.ObserveReconciled(domain.DefectCounts{Minor: 2})
	m.ObserveQueueLag(-time.Second)

	body := scrape(t, m.Handler())
	for _, want := range []string{
		`qc_worker_inspection_process_total{service="qc-worker",status="error"} 1`,
		`qc_worker_image_analysis_total{service="qc-worker",status="absent"} 1`,
		`qc_worker_reconciled_defects_count{service="qc-worker",severity="minor"} 1`,
		`qc_worker_inspection_process_in_flight{service="qc-worker"} 0`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, `qc_worker_queue_lag_seconds_count{service="qc-worker"} 1`) {
		t.Fatalf("negative lag must be ignored")
	}
}
