package httpadapter

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kirillkom/footwear-qc/internal/config"
	"github.com/kirillkom/footwear-qc/internal/core/domain"
)

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestReconcileEndpointSuppressesAcrossBuckets(t *testing.T) {
	handler := newTestHandler(config.Config{})

	res := postJSON(t, handler, "/v1/qc/reconcile", `{
		"critical": ["Sole separation at toe"],
		"major": ["sole separation at toe 5mm", "Glue stain"],
		"minor": ["glue stain near heel", "loose thread"]
	}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var resp struct {
		Critical []string            `json:"critical"`
		Major    []string            `json:"major"`
		Minor    []string            `json:"minor"`
		Counts   domain.DefectCounts `json:"counts"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Critical) != 1 || len(resp.Major) != 1 {
		t.Fatalf("unexpected buckets %+v", resp)
	}
	if diff := cmp.Diff(domain.DefectCounts{Critical: 1, Major: 1, Minor: len(resp.Minor)}, resp.Counts); diff != "" {
		t.Fatalf("counts mismatch (-want +got):\n%s", diff)
	}
	if resp.Minor == nil {
		t.Fatalf("expected non-nil minor list")
	}
}

func TestEvaluateEndpointAcceptsNumericAndStringQuantity(t *testing.T) {
	deps := newTestDeps()
	handler := deps.handler(config.Config{})

	tests := []struct {
		body string
		want domain.Decision
	}{
		{`{"order_quantity": 500, "counts": {"critical": 0, "major": 6, "minor": 0}}`, domain.DecisionReject},
		{`{"order_quantity": "500", "counts": {"critical": 0, "major": 0, "minor": 10}}`, domain.DecisionRework},
		{`{"order_quantity": "2,000", "counts": {"critical": 0, "major": 7, "minor": 10}}`, domain.DecisionAccept},
		{`{"order_quantity": 50, "counts": {"critical": 1}}`, domain.DecisionReject},
	}
	for _, tt := range tests {
		res := postJSON(t, handler, "/v1/qc/evaluate", tt.body)
		if res.Code != http.StatusOK {
			t.Fatalf("evaluate %s: expected 200, got %d: %s", tt.body, res.Code, res.Body.String())
		}
		var verdict domain.Verdict
		if err := json.Unmarshal(res.Body.Bytes(), &verdict); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if verdict.Decision != tt.want {
			t.Fatalf("evaluate %s: decision = %s, want %s", tt.body, verdict.Decision, tt.want)
		}
	}
	if len(deps.metrics.verdicts) != len(tests) || !strings.HasPrefix(deps.metrics.verdicts[0], "adhoc:") {
		t.Fatalf("unexpected verdict metrics %v", deps.metrics.verdicts)
	}
}

func TestEvaluateEndpointFlagsMalformedQuantity(t *testing.T) {
	handler := newTestHandler(config.Config{})

	res := postJSON(t, handler, "/v1/qc/evaluate", `{"order_quantity": "about a thousand", "counts": {"major": 10}}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var verdict domain.Verdict
	if err := json.Unmarshal(res.Body.Bytes(), &verdict); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !verdict.QuantityFallback || verdict.SampleSize != "200" || verdict.Decision != domain.DecisionAccept {
		t.Fatalf("unexpected fallback verdict %+v", verdict)
	}
}

func TestEvaluateEndpointReconcilesDefectLists(t *testing.T) {
	handler := newTestHandler(config.Config{})

	res := postJSON(t, handler, "/v1/qc/evaluate", `{
		"order_quantity": 100,
		"defects": {"critical": [], "major": ["glue stain", "Glue stain"], "minor": []}
	}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var resp struct {
		domain.Verdict
		Defects struct {
			Major []string `json:"major"`
		} `json:"defects"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Counts.Major != 1 || len(resp.Defects.Major) != 1 || resp.Decision != domain.DecisionAccept {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestEvaluateEndpointRejectsNegativeCounts(t *testing.T) {
	handler := newTestHandler(config.Config{})

	res := postJSON(t, handler, "/v1/qc/evaluate", `{"order_quantity": 100, "counts": {"minor": -1}}`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestPlanEndpoint(t *testing.T) {
	handler := newTestHandler(config.Config{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/qc/plan?order_quantity=1200", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var resp planResponse
	if err := json.Unmarshal(res.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := domain.Limits{Critical: 0, Major: 5, Minor: 9}
	if resp.SampleSize != "80" || resp.Limits != want || resp.QuantityFallback {
		t.Fatalf("unexpected plan response %+v", resp)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/qc/plan", nil))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without order_quantity, got %d", res.Code)
	}
}

func TestOrderQuantityUnmarshal(t *testing.T) {
	tests := map[string]string{
		`"1,200"`: "1,200",
		`1200`:    "1200",
		`null`:    "",
	}
	for in, want := range tests {
		var q orderQuantity
		if err := json.Unmarshal([]byte(in), &q); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		if string(q) != want {
			t.Fatalf("unmarshal %s = %q, want %q", in, q, want)
		}
	}
	var q orderQuantity
	if err := json.Unmarshal([]byte(`{"n":1}`), &q); err == nil {
		t.Fatalf("expected error for object quantity")
	}
}
