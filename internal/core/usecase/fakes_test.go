package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/kirillkom/footwear-qc/internal/core/domain"
)

type statusCall struct {
	status domain.InspectionStatus
	errMsg string
}

type inspectionRepoFake struct {
	mu            sync.Mutex
	items         map[string]*domain.Inspection
	createErr     error
	getErr        error
	statusErr     error
	failStatusErr error
	saveErr       error
	statusCalls   []statusCall
	savedResults  []domain.ImageResult
	reviewSaves   int

	// beforeReviewSave runs ahead of the updated_at check, under the lock.
	beforeReviewSave func(item *domain.Inspection)
}

func newInspectionRepoFake(items ...*domain.Inspection) *inspectionRepoFake {
	f := &inspectionRepoFake{items: make(map[string]*domain.Inspection)}
	for _, item := range items {
		f.items[item.ID] = item
	}
	return f
}

func (f *inspectionRepoFake) Create(_ context.Context, inspection *domain.Inspection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	copied := *inspection
	f.items[inspection.ID] = &copied
	return nil
}

func (f *inspectionRepoFake) GetByID(_ context.Context, id string) (*domain.Inspection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	item, ok := f.items[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrInspectionNotFound, "get inspection", fmt.Errorf("id=%s", id))
	}
	copied := *item
	copied.AIDefects = item.AIDefects.Clone()
	copied.ReviewDefects = item.ReviewDefects.Clone()
	return &copied, nil
}

func (f *inspectionRepoFake) UpdateStatus(_ context.Context, id string, status domain.InspectionStatus, errMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	if status == domain.InspectionFailed && f.failStatusErr != nil {
		return f.failStatusErr
	}
	if f.statusErr != nil {
		return f.statusErr
	}
	if item, ok := f.items[id]; ok {
		if item.Status == domain.InspectionReview {
			return domain.WrapError(domain.ErrConflict, "update inspection status", fmt.Errorf("id=%s", id))
		}
		item.Status = status
		item.Error = errMessage
		touch(item)
	}
	return nil
}

func (f *inspectionRepoFake) SaveAnalysis(_ context.Context, id string, results []domain.ImageResult, ai, review domain.DefectBuckets) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	item, ok := f.items[id]
	if !ok {
		return domain.ErrInspectionNotFound
	}
	if item.Status == domain.InspectionReview {
		return domain.WrapError(domain.ErrConflict, "save analysis", fmt.Errorf("id=%s", id))
	}
	f.savedResults = results
	item.ImageResults = results
	item.AIDefects = ai
	item.ReviewDefects = review
	touch(item)
	return nil
}

func (f *inspectionRepoFake) SaveReview(_ context.Context, id string, review domain.DefectBuckets, expectedUpdatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	item, ok := f.items[id]
	if !ok {
		return domain.ErrInspectionNotFound
	}
	if f.beforeReviewSave != nil {
		f.beforeReviewSave(item)
	}
	if !item.UpdatedAt.Equal(expectedUpdatedAt) {
		return domain.WrapError(domain.ErrConflict, "save review", fmt.Errorf("id=%s", id))
	}
	f.reviewSaves++
	item.ReviewDefects = review.Clone()
	touch(item)
	return nil
}

// touch advances updated_at the way every real write does.
func touch(item *domain.Inspection) {
	item.UpdatedAt = item.UpdatedAt.Add(time.Second)
}

func (f *inspectionRepoFake) stored(id string) *domain.Inspection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id]
}

type storageFake struct {
	mu      sync.Mutex
	objects map[string][]byte
	saveErr error
	openErr map[string]error
}

func newStorageFake() *storageFake {
	return &storageFake{objects: make(map[string][]byte), openErr: make(map[string]error)}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = body
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.openErr[key]; err != nil {
		return nil, err
	}
	body, ok := f.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishInspectionCreated(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, id)
	return nil
}

func (f *queueFake) SubscribeInspectionCreated(context.Context, func(context.Context, string) error) error {
	return nil
}

// inspectorFake answers by image ID; IDs listed in errs fail.
type inspectorFake struct {
	results map[string]domain.ImageAnalysis
	errs    map[string]error
	calls   []string
}

func (f *inspectorFake) InspectImage(_ context.Context, image domain.InspectionImage, _ []byte) (domain.ImageAnalysis, error) {
	f.calls = append(f.calls, image.ID)
	if err := f.errs[image.ID]; err != nil {
		return domain.ImageAnalysis{}, err
	}
	return f.results[image.ID], nil
}

// racingInspector moves the inspection to review on its first call, standing
// in for a duplicate worker that finished first.
type racingInspector struct {
	repo *inspectionRepoFake
	id   string
	once sync.Once
}

func (f *racingInspector) InspectImage(context.Context, domain.InspectionImage, []byte) (domain.ImageAnalysis, error) {
	f.once.Do(func() {
		f.repo.mu.Lock()
		defer f.repo.mu.Unlock()
		f.repo.items[f.id].Status = domain.InspectionReview
	})
	return domain.ImageAnalysis{Minor: []string{"crease"}}, nil
}

type translatorFake struct {
	prefix string
	err    error
	short  bool
	calls  []string
}

func (f *translatorFake) Translate(_ context.Context, texts []string, language string) ([]string, error) {
	f.calls = append(f.calls, language)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]string, 0, len(texts))
	for _, text := range texts {
		out = append(out, f.prefix+text)
	}
	if f.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

type rendererFake struct {
	report domain.InspectionReport
	err    error
}

func (f *rendererFake) Render(report domain.InspectionReport) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.report = report
	return []byte("%PDF-fake"), nil
}

type exporterFake struct {
	report domain.InspectionReport
	err    error
}

func (f *exporterFake) Export(report domain.InspectionReport) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.report = report
	return []byte("xlsx"), nil
}

type observerFake struct {
	images map[domain.ImageResultStatus]int
	counts []domain.DefectCounts
}

func (f *observerFake) ObserveImageAnalysis(status domain.ImageResultStatus) {
	if f.images == nil {
		f.images = make(map[domain.ImageResultStatus]int)
	}
	f.images[status]++
}

func (f *observerFake) ObserveReconciled(counts domain.DefectCounts) {
	f.counts = append(f.counts, counts)
}

func reviewInspection(id, qty string, review domain.DefectBuckets) *domain.Inspection {
	return &domain.Inspection{
		ID:            id,
		OrderNumber:   "PO-1",
		OrderQuantity: qty,
		Status:        domain.InspectionReview,
		AIDefects:     review.Clone(),
		ReviewDefects: review.Clone(),
	}
}

func record(id string, severity domain.Severity, description string) domain.DefectRecord {
	return domain.DefectRecord{ID: id, Severity: severity, Description: description, Source: domain.SourceAI}
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}
