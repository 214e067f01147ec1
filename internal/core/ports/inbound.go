package ports

import (
	"context"

	"github.com/kirillkom/footwear-qc/internal/core/aql"
	"github.com/kirillkom/footwear-qc/internal/core/defects"
	"github.com/kirillkom/footwear-qc/internal/core/domain"
)

// InspectionService is the inbound contract for creating and reading inspections.
type InspectionService interface {
	Create(ctx context.Context, draft domain.InspectionDraft, images []domain.ImageUpload) (*domain.Inspection, error)
	GetByID(ctx context.Context, id string) (*domain.Inspection, error)
}

// InspectionProcessor is the inbound contract for asynchronous image analysis.
type InspectionProcessor interface {
	ProcessByID(ctx context.Context, inspectionID string) error
}

// DefectEdit carries optional changes to a reviewable defect.
type DefectEdit struct {
	Description *string
	Severity    *domain.Severity
}

// ReviewService mutates the reviewable defect copy and derives the live verdict.
type ReviewService interface {
	AddDefect(ctx context.Context, inspectionID string, severity domain.Severity, description string) (*domain.DefectRecord, error)
	EditDefect(ctx context.Context, inspectionID, defectID string, edit DefectEdit) (*domain.DefectRecord, error)
	RemoveDefect(ctx context.Context, inspectionID, defectID string) error
	ResetReview(ctx context.Context, inspectionID string) (*domain.Inspection, error)
	Verdict(ctx context.Context, inspectionID string) (*InspectionVerdict, error)
}

// InspectionVerdict pairs what the model found with what QC decided.
type InspectionVerdict struct {
	InspectionID string         `json:"inspection_id"`
	AI           domain.Verdict `json:"ai"`
	Final        domain.Verdict `json:"final"`
}

// ReportService renders downloadable inspection reports.
type ReportService interface {
	RenderPDF(ctx context.Context, inspectionID string, languages []string) ([]byte, error)
	ExportWorkbook(ctx context.Context, inspectionID string) ([]byte, error)
}

// QCService exposes the stateless reconciliation and AQL decision engine.
type QCService interface {
	ReconcileDefects(raw defects.RawDefects) defects.RawDefects
	EvaluateLot(orderQuantity string, counts domain.DefectCounts) (domain.Verdict, error)
	LookupPlan(orderQuantity string) (aql.Row, bool)
	Plan() aql.Plan
}
