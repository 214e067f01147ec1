package httpadapter

import (
	"context"
	"io"
	"net/http"

	"github.com/kirillkom/footwear-qc/internal/config"
	"github.com/kirillkom/footwear-qc/internal/core/aql"
	"github.com/kirillkom/footwear-qc/internal/core/domain"
	"github.com/kirillkom/footwear-qc/internal/core/ports"
	"github.com/kirillkom/footwear-qc/internal/core/usecase"
)

type inspectionServiceFake struct {
	err       error
	draft     domain.InspectionDraft
	uploads   []uploadedImage
	inspected *domain.Inspection
}

type uploadedImage struct {
	filename string
	mimeType string
	angle    string
	body     string
}

func (f *inspectionServiceFake) Create(_ context.Context, draft domain.InspectionDraft, images []domain.ImageUpload) (*domain.Inspection, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.draft = draft
	for _, img := range images {
		body, _ := io.ReadAll(img.Body)
		f.uploads = append(f.uploads, uploadedImage{filename: img.Filename, mimeType: img.MimeType, angle: img.Angle, body: string(body)})
	}
	return &domain.Inspection{ID: "insp-1", OrderNumber: draft.OrderNumber, Status: domain.InspectionUploaded}, nil
}

func (f *inspectionServiceFake) GetByID(_ context.Context, id string) (*domain.Inspection, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.inspected != nil {
		return f.inspected, nil
	}
	return &domain.Inspection{ID: id, Status: domain.InspectionReview}, nil
}

type reviewServiceFake struct {
	err         error
	verdict     *ports.InspectionVerdict
	addSeverity domain.Severity
	addText     string
	edit        ports.DefectEdit
	removed     string
}

func (f *reviewServiceFake) AddDefect(_ context.Context, _ string, severity domain.Severity, description string) (*domain.DefectRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.addSeverity = severity
	f.addText = description
	return &domain.DefectRecord{ID: "d-new", Severity: severity, Description: description, Source: domain.SourceManual}, nil
}

func (f *reviewServiceFake) EditDefect(_ context.Context, _ string, defectID string, edit ports.DefectEdit) (*domain.DefectRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.edit = edit
	return &domain.DefectRecord{ID: defectID, Severity: domain.SeverityMinor, Description: "edited", Source: domain.SourceAI}, nil
}

func (f *reviewServiceFake) RemoveDefect(_ context.Context, _ string, defectID string) error {
	if f.err != nil {
		return f.err
	}
	f.removed = defectID
	return nil
}

func (f *reviewServiceFake) ResetReview(_ context.Context, id string) (*domain.Inspection, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Inspection{ID: id, Status: domain.InspectionReview}, nil
}

func (f *reviewServiceFake) Verdict(_ context.Context, id string) (*ports.InspectionVerdict, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.verdict != nil {
		return f.verdict, nil
	}
	return &ports.InspectionVerdict{
		InspectionID: id,
		AI:           domain.Verdict{Decision: domain.DecisionReject},
		Final:        domain.Verdict{Decision: domain.DecisionAccept},
	}, nil
}

type reportServiceFake struct {
	err       error
	languages []string
}

func (f *reportServiceFake) RenderPDF(_ context.Context, _ string, languages []string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.languages = languages
	return []byte("%PDF-1.3 fake"), nil
}

func (f *reportServiceFake) ExportWorkbook(context.Context, string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("PK fake"), nil
}

type metricsFake struct {
	rejected []string
	verdicts []string
}

func (m *metricsFake) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("qc_fake 1\n"))
	})
}

func (m *metricsFake) Middleware(next http.Handler) http.Handler { return next }

func (m *metricsFake) RecordRejected(reason string) { m.rejected = append(m.rejected, reason) }

func (m *metricsFake) RecordVerdict(source string, decision domain.Decision) {
	m.verdicts = append(m.verdicts, source+":"+string(decision))
}

type testDeps struct {
	inspections *inspectionServiceFake
	review      *reviewServiceFake
	reports     *reportServiceFake
	metrics     *metricsFake
}

func newTestDeps() *testDeps {
	return &testDeps{
		inspections: &inspectionServiceFake{},
		review:      &reviewServiceFake{},
		reports:     &reportServiceFake{},
		metrics:     &metricsFake{},
	}
}

func (d *testDeps) handler(cfg config.Config) http.Handler {
	qc := usecase.NewQCUseCase(aql.DefaultPlan(), nil)
	return NewRouter(cfg, d.inspections, d.review, d.reports, qc, d.metrics).Handler()
}

func newTestHandler(cfg config.Config) http.Handler {
	return newTestDeps().handler(cfg)
}
