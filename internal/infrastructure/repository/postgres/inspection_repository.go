package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/footwear-qc/internal/core/domain"
)

type InspectionRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewInspectionRepository(db *sql.DB) *InspectionRepository {
	return &InspectionRepository{db: db, now: time.Now}
}

func (r *InspectionRepository) Create(ctx context.Context, inspection *domain.Inspection) error {
	images, err := json.Marshal(nonNilImages(inspection.Images))
	if err != nil {
		return fmt.Errorf("marshal images: %w", err)
	}
	results, err := json.Marshal(nonNilResults(inspection.ImageResults))
	if err != nil {
		return fmt.Errorf("marshal image results: %w", err)
	}
	ai, err := marshalBuckets(inspection.AIDefects)
	if err != nil {
		return err
	}
	review, err := marshalBuckets(inspection.ReviewDefects)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO inspections (
	id, order_number, order_quantity, style, factory, client, inspector, status,
	images, image_results, ai_defects, review_defects, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
`,
		inspection.ID, inspection.OrderNumber, inspection.OrderQuantity, inspection.Style,
		inspection.Factory, inspection.Client, inspection.Inspector, string(inspection.Status),
		images, results, ai, review, inspection.Error, inspection.CreatedAt, inspection.UpdatedAt,
	)
	if err != nil {
		return wrapDBError("insert inspection", err)
	}
	return nil
}

func (r *InspectionRepository) GetByID(ctx context.Context, id string) (*domain.Inspection, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, order_number, order_quantity, style, factory, client, inspector, status,
	images, image_results, ai_defects, review_defects, COALESCE(error_message, ''), created_at, updated_at
FROM inspections
WHERE id = $1
`, id)

	var (
		inspection                              domain.Inspection
		status                                  string
		imagesRaw, resultsRaw, aiRaw, reviewRaw []byte
	)
	err := row.Scan(
		&inspection.ID, &inspection.OrderNumber, &inspection.OrderQuantity, &inspection.Style,
		&inspection.Factory, &inspection.Client, &inspection.Inspector, &status,
		&imagesRaw, &resultsRaw, &aiRaw, &reviewRaw, &inspection.Error,
		&inspection.CreatedAt, &inspection.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrInspectionNotFound, "get inspection", fmt.Errorf("id=%s", id))
		}
		return nil, wrapDBError("scan inspection", err)
	}

	if err := json.Unmarshal(imagesRaw, &inspection.Images); err != nil {
		return nil, fmt.Errorf("unmarshal images: %w", err)
	}
	if err := json.Unmarshal(resultsRaw, &inspection.ImageResults); err != nil {
		return nil, fmt.Errorf("unmarshal image results: %w", err)
	}
	if inspection.AIDefects, err = unmarshalBuckets(aiRaw); err != nil {
		return nil, err
	}
	if inspection.ReviewDefects, err = unmarshalBuckets(reviewRaw); err != nil {
		return nil, err
	}
	inspection.Status = domain.InspectionStatus(status)
	return &inspection, nil
}

// UpdateStatus and SaveAnalysis belong to the analysis pipeline and never
// touch a row that already reached review.
func (r *InspectionRepository) UpdateStatus(ctx context.Context, id string, status domain.InspectionStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE inspections
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1 AND status <> 'review'
`, id, string(status), errMessage, r.now().UTC())
	if err != nil {
		return wrapDBError("update inspection status", err)
	}
	return r.ensureAffected(ctx, res, "update inspection status", id)
}

func (r *InspectionRepository) SaveAnalysis(
	ctx context.Context,
	id string,
	results []domain.ImageResult,
	aiDefects, reviewDefects domain.DefectBuckets,
) error {
	resultsJSON, err := json.Marshal(nonNilResults(results))
	if err != nil {
		return fmt.Errorf("marshal image results: %w", err)
	}
	ai, err := marshalBuckets(aiDefects)
	if err != nil {
		return err
	}
	review, err := marshalBuckets(reviewDefects)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE inspections
SET image_results = $2, ai_defects = $3, review_defects = $4, updated_at = $5
WHERE id = $1 AND status <> 'review'
`, id, resultsJSON, ai, review, r.now().UTC())
	if err != nil {
		return wrapDBError("save analysis", err)
	}
	return r.ensureAffected(ctx, res, "save analysis", id)
}

// SaveReview writes only if the row is unchanged since expectedUpdatedAt was
// read; a concurrent edit yields ErrConflict.
func (r *InspectionRepository) SaveReview(
	ctx context.Context,
	id string,
	reviewDefects domain.DefectBuckets,
	expectedUpdatedAt time.Time,
) error {
	review, err := marshalBuckets(reviewDefects)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE inspections
SET review_defects = $2, updated_at = $3
WHERE id = $1 AND updated_at = $4
`, id, review, r.now().UTC(), expectedUpdatedAt)
	if err != nil {
		return wrapDBError("save review", err)
	}
	return r.ensureAffected(ctx, res, "save review", id)
}

// ensureAffected tells a missing row apart from one whose guard rejected the write.
func (r *InspectionRepository) ensureAffected(ctx context.Context, res sql.Result, op, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM inspections WHERE id = $1)`, id).Scan(&exists); err != nil {
		return wrapDBError(op, err)
	}
	if exists {
		return domain.WrapError(domain.ErrConflict, op, fmt.Errorf("id=%s changed concurrently or is past analysis", id))
	}
	return domain.WrapError(domain.ErrInspectionNotFound, op, fmt.Errorf("id=%s", id))
}

func marshalBuckets(b domain.DefectBuckets) ([]byte, error) {
	out := domain.DefectBuckets{
		Critical: nonNilRecords(b.Critical),
		Major:    nonNilRecords(b.Major),
		Minor:    nonNilRecords(b.Minor),
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal defects: %w", err)
	}
	return data, nil
}

func unmarshalBuckets(raw []byte) (domain.DefectBuckets, error) {
	var b domain.DefectBuckets
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &b); err != nil {
			return domain.DefectBuckets{}, fmt.Errorf("unmarshal defects: %w", err)
		}
	}
	return domain.DefectBuckets{
		Critical: nonNilRecords(b.Critical),
		Major:    nonNilRecords(b.Major),
		Minor:    nonNilRecords(b.Minor),
	}, nil
}

func nonNilRecords(in []domain.DefectRecord) []domain.DefectRecord {
	if in == nil {
		return []domain.DefectRecord{}
	}
	return in
}

func nonNilImages(in []domain.InspectionImage) []domain.InspectionImage {
	if in == nil {
		return []domain.InspectionImage{}
	}
	return in
}

func nonNilResults(in []domain.ImageResult) []domain.ImageResult {
	if in == nil {
		return []domain.ImageResult{}
	}
	return in
}
