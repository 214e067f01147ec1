package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/footwear-qc/internal/config"
	"github.com/kirillkom/footwear-qc/internal/core/domain"
	"github.com/kirillkom/footwear-qc/internal/core/ports"
)

const multipartMemory = 8 << 20

// HTTPMetrics is the subset of the metrics registry the router reports to.
type HTTPMetrics interface {
	Handler() http.Handler
	Middleware(next http.Handler) http.Handler
	RecordRejected(reason string)
	RecordVerdict(source string, decision domain.Decision)
}

type Router struct {
	cfg         config.Config
	inspections ports.InspectionService
	review      ports.ReviewService
	reports     ports.ReportService
	qc          ports.QCService
	metrics     HTTPMetrics
	validator   *requestValidator
}

func NewRouter(
	cfg config.Config,
	inspections ports.InspectionService,
	review ports.ReviewService,
	reports ports.ReportService,
	qc ports.QCService,
	metrics HTTPMetrics,
) *Router {
	validator, err := newRequestValidator()
	if err != nil {
		// The document is embedded at build time.
		panic(err)
	}
	return &Router{
		cfg:         cfg,
		inspections: inspections,
		review:      review,
		reports:     reports,
		qc:          qc,
		metrics:     metrics,
		validator:   validator,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	mux.HandleFunc("POST /v1/inspections", rt.createInspection)
	mux.HandleFunc("GET /v1/inspections/{id}", rt.getInspection)
	mux.HandleFunc("GET /v1/inspections/{id}/verdict", rt.getVerdict)
	mux.HandleFunc("POST /v1/inspections/{id}/defects", rt.addDefect)
	mux.HandleFunc("PATCH /v1/inspections/{id}/defects/{defect_id}", rt.editDefect)
	mux.HandleFunc("DELETE /v1/inspections/{id}/defects/{defect_id}", rt.removeDefect)
	mux.HandleFunc("POST /v1/inspections/{id}/review/reset", rt.resetReview)
	mux.HandleFunc("GET /v1/inspections/{id}/report.pdf", rt.reportPDF)
	mux.HandleFunc("GET /v1/inspections/{id}/report.xlsx", rt.reportXLSX)

	mux.HandleFunc("POST /v1/qc/reconcile", rt.reconcileDefects)
	mux.HandleFunc("POST /v1/qc/evaluate", rt.evaluateLot)
	mux.HandleFunc("GET /v1/qc/plan", rt.lookupPlan)

	var handler http.Handler = mux
	handler = rt.validator.Middleware(handler)
	handler = backpressureMiddlewareWithHook(
		handler,
		rt.cfg.APIMaxInFlight,
		time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond,
		rt.rejectHook("overloaded"),
	)
	handler = rateLimitMiddleware(
		handler,
		newRateLimiter(rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst),
		rt.rejectHook("rate_limited"),
	)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) rejectHook(reason string) func() {
	if rt.metrics == nil {
		return nil
	}
	return func() { rt.metrics.RecordRejected(reason) }
}

func (rt *Router) recordVerdict(source string, verdict domain.Verdict) {
	if rt.metrics != nil {
		rt.metrics.RecordVerdict(source, verdict.Decision)
	}
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) createInspection(w http.ResponseWriter, r *http.Request) {
	maxUploadMB := rt.cfg.MaxUploadMB
	if maxUploadMB <= 0 {
		maxUploadMB = 64
	}
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxUploadMB)<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart form is required"})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	form := r.MultipartForm
	draft := domain.InspectionDraft{
		OrderNumber:   formValue(form, "order_number"),
		OrderQuantity: formValue(form, "order_quantity"),
		Style:         formValue(form, "style"),
		Factory:       formValue(form, "factory"),
		Client:        formValue(form, "client"),
		Inspector:     formValue(form, "inspector"),
	}

	headers := form.File["images"]
	angles := form.Value["angles"]
	uploads := make([]domain.ImageUpload, 0, len(headers))
	for i, header := range headers {
		file, err := header.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("open image %q: %v", header.Filename, err)})
			return
		}
		defer file.Close()

		angle := ""
		if i < len(angles) {
			angle = strings.TrimSpace(angles[i])
		}
		uploads = append(uploads, domain.ImageUpload{
			Filename: header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Angle:    angle,
			Body:     file,
		})
	}

	inspection, err := rt.inspections.Create(r.Context(), draft, uploads)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, inspection)
}

func formValue(form *multipart.Form, key string) string {
	values := form.Value[key]
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func (rt *Router) getInspection(w http.ResponseWriter, r *http.Request) {
	inspection, err := rt.inspections.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inspection)
}

func (rt *Router) getVerdict(w http.ResponseWriter, r *http.Request) {
	verdict, err := rt.review.Verdict(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	rt.recordVerdict("ai", verdict.AI)
	rt.recordVerdict("final", verdict.Final)
	writeJSON(w, http.StatusOK, verdict)
}

type addDefectRequest struct {
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

func (rt *Router) addDefect(w http.ResponseWriter, r *http.Request) {
	var req addDefectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	severity, err := domain.ParseSeverity(req.Severity)
	if err != nil {
		writeError(w, err)
		return
	}

	record, err := rt.review.AddDefect(r.Context(), r.PathValue("id"), severity, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

type editDefectRequest struct {
	Severity    *string `json:"severity"`
	Description *string `json:"description"`
}

func (rt *Router) editDefect(w http.ResponseWriter, r *http.Request) {
	var req editDefectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	edit := ports.DefectEdit{Description: req.Description}
	if req.Severity != nil {
		severity, err := domain.ParseSeverity(*req.Severity)
		if err != nil {
			writeError(w, err)
			return
		}
		edit.Severity = &severity
	}

	record, err := rt.review.EditDefect(r.Context(), r.PathValue("id"), r.PathValue("defect_id"), edit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (rt *Router) removeDefect(w http.ResponseWriter, r *http.Request) {
	if err := rt.review.RemoveDefect(r.Context(), r.PathValue("id"), r.PathValue("defect_id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) resetReview(w http.ResponseWriter, r *http.Request) {
	inspection, err := rt.review.ResetReview(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inspection)
}

func (rt *Router) reportPDF(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	data, err := rt.reports.RenderPDF(r.Context(), id, r.URL.Query()["lang"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeAttachment(w, "application/pdf", "inspection-"+id+".pdf", data)
}

func (rt *Router) reportXLSX(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	data, err := rt.reports.ExportWorkbook(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeAttachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "inspection-"+id+".xlsx", data)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
