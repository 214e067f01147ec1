package httpadapter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/kirillkom/footwear-qc/internal/core/aql"
	"github.com/kirillkom/footwear-qc/internal/core/defects"
	"github.com/kirillkom/footwear-qc/internal/core/domain"
)

// orderQuantity accepts either a JSON string or a JSON number.
type orderQuantity string

func (q *orderQuantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*q = ""
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*q = orderQuantity(text)
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("order_quantity must be a string or number")
	}
	*q = orderQuantity(number.String())
	return nil
}

type reconcileResponse struct {
	defects.RawDefects
	Counts domain.DefectCounts `json:"counts"`
}

func (rt *Router) reconcileDefects(w http.ResponseWriter, r *http.Request) {
	var req defects.RawDefects
	if !decodeJSON(w, r, &req) {
		return
	}
	out := rt.qc.ReconcileDefects(req)
	writeJSON(w, http.StatusOK, reconcileResponse{RawDefects: nonNilLists(out), Counts: out.Counts()})
}

type evaluateRequest struct {
	OrderQuantity orderQuantity       `json:"order_quantity"`
	Counts        domain.DefectCounts `json:"counts"`
	// Defects, when present, are reconciled and counted instead of Counts.
	Defects *defects.RawDefects `json:"defects"`
}

type evaluateResponse struct {
	domain.Verdict
	Defects *defects.RawDefects `json:"defects,omitempty"`
}

func (rt *Router) evaluateLot(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	counts := req.Counts
	var reconciled *defects.RawDefects
	if req.Defects != nil {
		out := nonNilLists(rt.qc.ReconcileDefects(*req.Defects))
		reconciled = &out
		counts = out.Counts()
	}

	verdict, err := rt.qc.EvaluateLot(string(req.OrderQuantity), counts)
	if err != nil {
		writeError(w, err)
		return
	}
	rt.recordVerdict("adhoc", verdict)
	writeJSON(w, http.StatusOK, evaluateResponse{Verdict: verdict, Defects: reconciled})
}

type planResponse struct {
	Row              aql.Row       `json:"row"`
	SampleSize       string        `json:"sample_size"`
	Limits           domain.Limits `json:"limits"`
	QuantityFallback bool          `json:"quantity_fallback"`
}

func (rt *Router) lookupPlan(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("order_quantity"))
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order_quantity is required"})
		return
	}
	row, parsed := rt.qc.LookupPlan(raw)
	writeJSON(w, http.StatusOK, planResponse{
		Row:              row,
		SampleSize:       row.SampleSizeLabel(),
		Limits:           row.Limits(),
		QuantityFallback: !parsed,
	})
}

func nonNilLists(raw defects.RawDefects) defects.RawDefects {
	for _, list := range []*[]string{&raw.Critical, &raw.Major, &raw.Minor} {
		if *list == nil {
			*list = []string{}
		}
	}
	return raw
}
