package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/footwear-qc/internal/core/domain"
)

// InspectionRepository persists and reads inspection state.
type InspectionRepository interface {
	Create(ctx context.Context, inspection *domain.Inspection) error
	GetByID(ctx context.Context, id string) (*domain.Inspection, error)
	UpdateStatus(ctx context.Context, id string, status domain.InspectionStatus, errMessage string) error
	SaveAnalysis(ctx context.Context, id string, results []domain.ImageResult, aiDefects, reviewDefects domain.DefectBuckets) error
	// SaveReview fails with domain.ErrConflict when the row changed after expectedUpdatedAt.
	SaveReview(ctx context.Context, id string, reviewDefects domain.DefectBuckets, expectedUpdatedAt time.Time) error
}

// ObjectStorage stores uploaded photos.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes analysis requests.
type MessageQueue interface {
	PublishInspectionCreated(ctx context.Context, inspectionID string) error
	SubscribeInspectionCreated(ctx context.Context, handler func(context.Context, string) error) error
}

// VisionInspector asks a multimodal model for the defects visible in one photo.
type VisionInspector interface {
	InspectImage(ctx context.Context, image domain.InspectionImage, data []byte) (domain.ImageAnalysis, error)
}

// Translator renders English defect descriptions in another language,
// returning exactly one entry per input.
type Translator interface {
	Translate(ctx context.Context, texts []string, language string) ([]string, error)
}

// ReportRenderer typesets an inspection report document.
type ReportRenderer interface {
	Render(report domain.InspectionReport) ([]byte, error)
}

// WorkbookExporter writes an inspection report as a spreadsheet.
type WorkbookExporter interface {
	Export(report domain.InspectionReport) ([]byte, error)
}
