package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kirillkom/footwear-qc/internal/core/defects"
	"github.com/kirillkom/footwear-qc/internal/core/domain"
	"github.com/kirillkom/footwear-qc/internal/core/ports"
)

// AnalysisObserver receives per-image and per-inspection analysis outcomes.
type AnalysisObserver interface {
	ObserveImageAnalysis(status domain.ImageResultStatus)
	ObserveReconciled(counts domain.DefectCounts)
}

type noopAnalysisObserver struct{}

func (noopAnalysisObserver) ObserveImageAnalysis(domain.ImageResultStatus) {}
func (noopAnalysisObserver) ObserveReconciled(domain.DefectCounts)         {}

type AnalysisUseCase struct {
	repo       ports.InspectionRepository
	storage    ports.ObjectStorage
	inspector  ports.VisionInspector
	reconciler *defects.Reconciler
	observer   AnalysisObserver
	newID      func() string
}

func NewAnalysisUseCase(
	repo ports.InspectionRepository,
	storage ports.ObjectStorage,
	inspector ports.VisionInspector,
	reconciler *defects.Reconciler,
	observer AnalysisObserver,
) *AnalysisUseCase {
	if reconciler == nil {
		reconciler = defects.NewReconciler(defects.DefaultOptions())
	}
	if observer == nil {
		observer = noopAnalysisObserver{}
	}
	return &AnalysisUseCase{
		repo:       repo,
		storage:    storage,
		inspector:  inspector,
		reconciler: reconciler,
		observer:   observer,
		newID:      uuid.NewString,
	}
}

// ProcessByID runs analysis for an inspection that has not reached review yet.
// A redelivered message for a reviewed inspection is refused with
// domain.ErrConflict and leaves both defect buckets alone.
func (uc *AnalysisUseCase) ProcessByID(ctx context.Context, inspectionID string) error {
	const op = "process inspection"

	inspection, err := uc.repo.GetByID(ctx, inspectionID)
	if err != nil {
		return uc.fail(ctx, inspectionID, fmt.Errorf("fetch inspection by id: %w", err))
	}
	if inspection.Status == domain.InspectionReview {
		return domain.WrapError(domain.ErrConflict, op, fmt.Errorf("inspection is already in %s", domain.InspectionReview))
	}

	if err := uc.markStatus(ctx, inspectionID, domain.InspectionAnalyzing, ""); err != nil {
		return fmt.Errorf("set status=analyzing: %w", err)
	}

	if err := uc.analyze(ctx, inspection); err != nil {
		if domain.IsKind(err, domain.ErrConflict) {
			return err
		}
		return uc.fail(ctx, inspectionID, err)
	}

	if err := uc.markStatus(ctx, inspectionID, domain.InspectionReview, ""); err != nil {
		return fmt.Errorf("set status=review: %w", err)
	}
	return nil
}

func (uc *AnalysisUseCase) fail(ctx context.Context, inspectionID string, err error) error {
	if failErr := uc.markFailed(ctx, inspectionID, err); failErr != nil {
		return fmt.Errorf("%w; mark failed status: %v", err, failErr)
	}
	return err
}

func (uc *AnalysisUseCase) analyze(ctx context.Context, inspection *domain.Inspection) error {
	inspectionID := inspection.ID
	results := make([]domain.ImageResult, 0, len(inspection.Images))
	analyses := make([]*domain.ImageAnalysis, 0, len(inspection.Images))
	for _, image := range inspection.Images {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("analyze images: %w", err)
		}
		analysis, err := uc.analyzeImage(ctx, image)
		if err != nil {
			slog.Warn("image_analysis_absent",
				"inspection_id", inspectionID,
				"image_id", image.ID,
				"filename", image.Filename,
				"error", err.Error(),
			)
			results = append(results, domain.ImageResult{
				ImageID: image.ID,
				Status:  domain.ImageResultAbsent,
				Error:   err.Error(),
			})
			uc.observer.ObserveImageAnalysis(domain.ImageResultAbsent)
			analyses = append(analyses, nil)
			continue
		}
		results = append(results, domain.ImageResult{ImageID: image.ID, Status: domain.ImageResultOK})
		uc.observer.ObserveImageAnalysis(domain.ImageResultOK)
		analyses = append(analyses, analysis)
	}

	reconciled := uc.reconciler.Reconcile(defects.MergeAnalyses(analyses))
	aiDefects := defects.ToBuckets(reconciled, domain.SourceAI, uc.newID)
	uc.observer.ObserveReconciled(aiDefects.Counts())

	if err := uc.repo.SaveAnalysis(ctx, inspectionID, results, aiDefects, aiDefects.Clone()); err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return nil
}

func (uc *AnalysisUseCase) analyzeImage(ctx context.Context, image domain.InspectionImage) (*domain.ImageAnalysis, error) {
	rc, err := uc.storage.Open(ctx, image.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	analysis, err := uc.inspector.InspectImage(ctx, image, data)
	if err != nil {
		return nil, fmt.Errorf("inspect image: %w", err)
	}
	return &analysis, nil
}

func (uc *AnalysisUseCase) markStatus(ctx context.Context, inspectionID string, status domain.InspectionStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, inspectionID, status, errMessage)
}

// markFailed outlives a cancelled processing context so the row never stays in analyzing.
func (uc *AnalysisUseCase) markFailed(ctx context.Context, inspectionID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(context.WithoutCancel(ctx), inspectionID, domain.InspectionFailed, processErr.Error())
}
