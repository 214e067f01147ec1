package mcpadapter

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/footwear-qc/internal/core/aql"
	"github.com/kirillkom/footwear-qc/internal/core/domain"
	"github.com/kirillkom/footwear-qc/internal/core/usecase"
)

func callRequest(t *testing.T, name, arguments string) mcp.CallToolRequest {
	t.Helper()
	var req mcp.CallToolRequest
	payload := `{"method":"tools/call","params":{"name":"` + name + `","arguments":` + arguments + `}}`
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	return req
}

// resultText extracts the first text content and the error flag through the wire format.
func resultText(t *testing.T, result *mcp.CallToolResult) (string, bool) {
	t.Helper()
	raw, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("encode result: %v", err)
	}
	var wire struct {
		IsError bool `json:"isError"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(wire.Content) == 0 {
		t.Fatalf("expected content in result %s", raw)
	}
	return wire.Content[0].Text, wire.IsError
}

func newTestServer() *Server {
	return NewServer(usecase.NewQCUseCase(aql.DefaultPlan(), nil), "test")
}

func TestEvaluateLotTool(t *testing.T) {
	s := newTestServer()

	tests := []struct {
		args string
		want domain.Decision
	}{
		{`{"order_quantity":"300","critical":0,"major":1,"minor":5}`, domain.DecisionAccept},
		{`{"order_quantity":300,"major":2}`, domain.DecisionReject},
		{`{"order_quantity":"301","minor":10}`, domain.DecisionRework},
		{`{"order_quantity":"20000","critical":1}`, domain.DecisionReject},
	}
	for _, tt := range tests {
		result, err := s.handleEvaluate(context.Background(), callRequest(t, toolEvaluateLot, tt.args))
		if err != nil {
			t.Fatalf("handleEvaluate() error = %v", err)
		}
		text, isError := resultText(t, result)
		if isError {
			t.Fatalf("unexpected tool error for %s: %s", tt.args, text)
		}
		var verdict domain.Verdict
		if err := json.Unmarshal([]byte(text), &verdict); err != nil {
			t.Fatalf("decode verdict: %v", err)
		}
		if verdict.Decision != tt.want {
			t.Fatalf("evaluate %s = %s, want %s", tt.args, verdict.Decision, tt.want)
		}
	}
}

func TestEvaluateLotToolReportsNegativeCountAsToolError(t *testing.T) {
	s := newTestServer()

	result, err := s.handleEvaluate(context.Background(), callRequest(t, toolEvaluateLot, `{"order_quantity":"100","minor":-1}`))
	if err != nil {
		t.Fatalf("handleEvaluate() error = %v", err)
	}
	if _, isError := resultText(t, result); !isError {
		t.Fatalf("expected tool error for negative count")
	}
}

func TestReconcileDefectsTool(t *testing.T) {
	s := newTestServer()

	result, err := s.handleReconcile(context.Background(), callRequest(t, toolReconcileDefects,
		`{"critical":["Sole separation 5mm"],"major":["sole separation"],"minor":["scuffs","scuff marks"]}`))
	if err != nil {
		t.Fatalf("handleReconcile() error = %v", err)
	}
	text, isError := resultText(t, result)
	if isError {
		t.Fatalf("unexpected tool error: %s", text)
	}
	var out struct {
		Critical []string            `json:"critical"`
		Major    []string            `json:"major"`
		Minor    []string            `json:"minor"`
		Counts   domain.DefectCounts `json:"counts"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := domain.DefectCounts{Critical: 1, Major: 0, Minor: 1}
	if out.Counts != want || out.Major == nil {
		t.Fatalf("unexpected reconcile output %+v", out)
	}
}

func TestLookupPlanToolFallsBackForMalformedQuantity(t *testing.T) {
	s := newTestServer()

	result, err := s.handleLookupPlan(context.Background(), callRequest(t, toolLookupPlan, `{"order_quantity":"lots"}`))
	if err != nil {
		t.Fatalf("handleLookupPlan() error = %v", err)
	}
	text, _ := resultText(t, result)
	var out struct {
		SampleSize       string        `json:"sample_size"`
		Limits           domain.Limits `json:"limits"`
		QuantityFallback bool          `json:"quantity_fallback"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.QuantityFallback || out.SampleSize != "200" || out.Limits.Major != 10 || out.Limits.Minor != 14 {
		t.Fatalf("unexpected plan output %+v", out)
	}
}

func TestQuantityText(t *testing.T) {
	tests := map[string]string{
		`"1,200"`: "1,200",
		`1200`:    "1200",
		`null`:    "",
		``:        "",
	}
	for in, want := range tests {
		if got := quantityText(json.RawMessage(in)); got != want {
			t.Fatalf("quantityText(%q) = %q, want %q", in, got, want)
		}
	}
}
