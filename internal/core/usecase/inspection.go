package usecase

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/footwear-qc/internal/core/domain"
	"github.com/kirillkom/footwear-qc/internal/core/ports"
)

const defaultMaxImages = 12

var supportedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
}

type InspectionUseCase struct {
	repo      ports.InspectionRepository
	storage   ports.ObjectStorage
	queue     ports.MessageQueue
	maxImages int
}

func NewInspectionUseCase(
	repo ports.InspectionRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	maxImages int,
) *InspectionUseCase {
	if maxImages <= 0 {
		maxImages = defaultMaxImages
	}
	return &InspectionUseCase{
		repo:      repo,
		storage:   storage,
		queue:     queue,
		maxImages: maxImages,
	}
}

func (uc *InspectionUseCase) Create(
	ctx context.Context,
	draft domain.InspectionDraft,
	uploads []domain.ImageUpload,
) (*domain.Inspection, error) {
	if err := uc.validate(draft, uploads); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	now := time.Now().UTC()

	images := make([]domain.InspectionImage, 0, len(uploads))
	for _, upload := range uploads {
		image := domain.InspectionImage{
			ID:       uuid.NewString(),
			Angle:    strings.TrimSpace(upload.Angle),
			Filename: upload.Filename,
			MimeType: resolveImageType(upload),
		}
		image.StoragePath = fmt.Sprintf("%s/%s_%s", id, image.ID, sanitizeFilename(upload.Filename))
		if err := uc.storage.Save(ctx, image.StoragePath, upload.Body); err != nil {
			return nil, fmt.Errorf("save image to object storage: %w", err)
		}
		images = append(images, image)
	}

	inspection := &domain.Inspection{
		ID:            id,
		OrderNumber:   strings.TrimSpace(draft.OrderNumber),
		OrderQuantity: strings.TrimSpace(draft.OrderQuantity),
		Style:         strings.TrimSpace(draft.Style),
		Factory:       strings.TrimSpace(draft.Factory),
		Client:        strings.TrimSpace(draft.Client),
		Inspector:     strings.TrimSpace(draft.Inspector),
		Status:        domain.InspectionUploaded,
		Images:        images,
		ImageResults:  []domain.ImageResult{},
		AIDefects:     emptyBuckets(),
		ReviewDefects: emptyBuckets(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := uc.repo.Create(ctx, inspection); err != nil {
		return nil, fmt.Errorf("create inspection: %w", err)
	}

	if err := uc.queue.PublishInspectionCreated(ctx, inspection.ID); err != nil {
		return nil, fmt.Errorf("publish analysis request: %w", err)
	}

	return inspection, nil
}

func (uc *InspectionUseCase) GetByID(ctx context.Context, id string) (*domain.Inspection, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get inspection", errors.New("inspection id is required"))
	}
	return uc.repo.GetByID(ctx, id)
}

func (uc *InspectionUseCase) validate(draft domain.InspectionDraft, uploads []domain.ImageUpload) error {
	if strings.TrimSpace(draft.OrderNumber) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "create inspection", errors.New("order_number is required"))
	}
	if len(uploads) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "create inspection", errors.New("at least one image is required"))
	}
	if len(uploads) > uc.maxImages {
		return domain.WrapError(domain.ErrInvalidInput, "create inspection", fmt.Errorf("at most %d images are allowed, got %d", uc.maxImages, len(uploads)))
	}
	for _, upload := range uploads {
		if upload.Body == nil {
			return domain.WrapError(domain.ErrInvalidInput, "create inspection", fmt.Errorf("image %q has no content", upload.Filename))
		}
		if _, ok := supportedImageTypes[resolveImageType(upload)]; !ok {
			return domain.WrapError(domain.ErrInvalidInput, "create inspection", fmt.Errorf("image %q: unsupported type %q", upload.Filename, upload.MimeType))
		}
	}
	return nil
}

func resolveImageType(upload domain.ImageUpload) string {
	mimeType := strings.ToLower(strings.TrimSpace(upload.MimeType))
	if parsed, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = parsed
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		switch strings.ToLower(filepath.Ext(upload.Filename)) {
		case ".jpg", ".jpeg":
			return "image/jpeg"
		case ".png":
			return "image/png"
		}
	}
	if mimeType == "image/jpg" {
		return "image/jpeg"
	}
	return mimeType
}

func emptyBuckets() domain.DefectBuckets {
	return domain.DefectBuckets{
		Critical: []domain.DefectRecord{},
		Major:    []domain.DefectRecord{},
		Minor:    []domain.DefectRecord{},
	}
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "image.bin"
	}
	return base
}
