package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kirillkom/footwear-qc/internal/core/aql"
	"github.com/kirillkom/footwear-qc/internal/core/defects"
	"github.com/kirillkom/footwear-qc/internal/core/domain"
	"github.com/kirillkom/footwear-qc/internal/core/ports"
)

type ReviewUseCase struct {
	repo  ports.InspectionRepository
	plan  aql.Plan
	newID func() string
}

func NewReviewUseCase(repo ports.InspectionRepository, plan aql.Plan) *ReviewUseCase {
	return &ReviewUseCase{
		repo:  repo,
		plan:  plan,
		newID: uuid.NewString,
	}
}

func (uc *ReviewUseCase) AddDefect(
	ctx context.Context,
	inspectionID string,
	severity domain.Severity,
	description string,
) (*domain.DefectRecord, error) {
	const op = "add defect"

	inspection, err := uc.loadReviewable(ctx, inspectionID, op)
	if err != nil {
		return nil, err
	}
	text, err := manualDescription(op, description)
	if err != nil {
		return nil, err
	}

	buckets := inspection.ReviewDefects.Clone()
	bucket := buckets.Bucket(severity)
	if bucket == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, op, fmt.Errorf("unknown severity %q", severity))
	}
	record := domain.DefectRecord{
		ID:          uc.newID(),
		Severity:    severity,
		Description: text,
		Source:      domain.SourceManual,
	}
	*bucket = append(*bucket, record)

	if err := uc.repo.SaveReview(ctx, inspectionID, buckets, inspection.UpdatedAt); err != nil {
		return nil, fmt.Errorf("save review defects: %w", err)
	}
	return &record, nil
}

// EditDefect rewrites a defect in place. Moving it to another severity removes
// it from its bucket and appends it to the target under a fresh ID.
func (uc *ReviewUseCase) EditDefect(
	ctx context.Context,
	inspectionID, defectID string,
	edit ports.DefectEdit,
) (*domain.DefectRecord, error) {
	const op = "edit defect"

	if edit.Description == nil && edit.Severity == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, op, errors.New("nothing to change"))
	}
	inspection, err := uc.loadReviewable(ctx, inspectionID, op)
	if err != nil {
		return nil, err
	}

	buckets := inspection.ReviewDefects.Clone()
	record, ok := buckets.Find(defectID)
	if !ok {
		return nil, domain.WrapError(domain.ErrDefectNotFound, op, fmt.Errorf("defect %q", defectID))
	}

	updated := record
	if edit.Description != nil {
		text, err := manualDescription(op, *edit.Description)
		if err != nil {
			return nil, err
		}
		updated.Description = text
	}

	if edit.Severity != nil && *edit.Severity != record.Severity {
		target := buckets.Bucket(*edit.Severity)
		if target == nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, op, fmt.Errorf("unknown severity %q", *edit.Severity))
		}
		removeRecord(buckets.Bucket(record.Severity), record.ID)
		updated.ID = uc.newID()
		updated.Severity = *edit.Severity
		*target = append(*target, updated)
	} else {
		replaceRecord(buckets.Bucket(record.Severity), updated)
	}

	if err := uc.repo.SaveReview(ctx, inspectionID, buckets, inspection.UpdatedAt); err != nil {
		return nil, fmt.Errorf("save review defects: %w", err)
	}
	return &updated, nil
}

func (uc *ReviewUseCase) RemoveDefect(ctx context.Context, inspectionID, defectID string) error {
	const op = "remove defect"

	inspection, err := uc.loadReviewable(ctx, inspectionID, op)
	if err != nil {
		return err
	}

	buckets := inspection.ReviewDefects.Clone()
	record, ok := buckets.Find(defectID)
	if !ok {
		return domain.WrapError(domain.ErrDefectNotFound, op, fmt.Errorf("defect %q", defectID))
	}
	removeRecord(buckets.Bucket(record.Severity), record.ID)

	if err := uc.repo.SaveReview(ctx, inspectionID, buckets, inspection.UpdatedAt); err != nil {
		return fmt.Errorf("save review defects: %w", err)
	}
	return nil
}

func (uc *ReviewUseCase) ResetReview(ctx context.Context, inspectionID string) (*domain.Inspection, error) {
	inspection, err := uc.loadReviewable(ctx, inspectionID, "reset review")
	if err != nil {
		return nil, err
	}

	inspection.ReviewDefects = inspection.AIDefects.Clone()
	if err := uc.repo.SaveReview(ctx, inspectionID, inspection.ReviewDefects, inspection.UpdatedAt); err != nil {
		return nil, fmt.Errorf("save review defects: %w", err)
	}
	return inspection, nil
}

func (uc *ReviewUseCase) Verdict(ctx context.Context, inspectionID string) (*ports.InspectionVerdict, error) {
	inspection, err := uc.loadReviewable(ctx, inspectionID, "compute verdict")
	if err != nil {
		return nil, err
	}
	return evaluateInspection(uc.plan, inspection)
}

func (uc *ReviewUseCase) loadReviewable(ctx context.Context, inspectionID, op string) (*domain.Inspection, error) {
	inspection, err := uc.repo.GetByID(ctx, inspectionID)
	if err != nil {
		return nil, err
	}
	if inspection.Status != domain.InspectionReview {
		return nil, domain.WrapError(domain.ErrConflict, op, fmt.Errorf("inspection is %s, not %s", inspection.Status, domain.InspectionReview))
	}
	return inspection, nil
}

func evaluateInspection(plan aql.Plan, inspection *domain.Inspection) (*ports.InspectionVerdict, error) {
	ai, err := plan.EvaluateLot(inspection.OrderQuantity, inspection.AIDefects.Counts())
	if err != nil {
		return nil, fmt.Errorf("evaluate ai defects: %w", err)
	}
	final, err := plan.EvaluateLot(inspection.OrderQuantity, inspection.ReviewDefects.Counts())
	if err != nil {
		return nil, fmt.Errorf("evaluate review defects: %w", err)
	}
	return &ports.InspectionVerdict{
		InspectionID: inspection.ID,
		AI:           ai,
		Final:        final,
	}, nil
}

func manualDescription(op, raw string) (string, error) {
	text := defects.Normalize(raw)
	if text == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, op, errors.New("defect description is empty"))
	}
	return text, nil
}

func removeRecord(bucket *[]domain.DefectRecord, id string) {
	out := (*bucket)[:0]
	for _, rec := range *bucket {
		if rec.ID != id {
			out = append(out, rec)
		}
	}
	*bucket = out
}

func replaceRecord(bucket *[]domain.DefectRecord, updated domain.DefectRecord) {
	for i := range *bucket {
		if (*bucket)[i].ID == updated.ID {
			(*bucket)[i] = updated
			return
		}
	}
}
