package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/kirillkom/footwear-qc/internal/core/aql"
	"github.com/kirillkom/footwear-qc/internal/core/domain"
	"github.com/kirillkom/footwear-qc/internal/core/ports"
)

const reportBaseLanguage = "en"

type ReportUseCase struct {
	repo             ports.InspectionRepository
	storage          ports.ObjectStorage
	translator       ports.Translator
	renderer         ports.ReportRenderer
	exporter         ports.WorkbookExporter
	plan             aql.Plan
	companyName      string
	defaultLanguages []string
	now              func() time.Time
}

func NewReportUseCase(
	repo ports.InspectionRepository,
	storage ports.ObjectStorage,
	translator ports.Translator,
	renderer ports.ReportRenderer,
	exporter ports.WorkbookExporter,
	plan aql.Plan,
	companyName string,
	defaultLanguages []string,
) *ReportUseCase {
	return &ReportUseCase{
		repo:             repo,
		storage:          storage,
		translator:       translator,
		renderer:         renderer,
		exporter:         exporter,
		plan:             plan,
		companyName:      companyName,
		defaultLanguages: defaultLanguages,
		now:              time.Now,
	}
}

func (uc *ReportUseCase) RenderPDF(ctx context.Context, inspectionID string, languages []string) ([]byte, error) {
	if len(languages) == 0 {
		languages = uc.defaultLanguages
	}
	tags, err := ParseLanguages(languages)
	if err != nil {
		return nil, err
	}

	report, err := uc.buildReport(ctx, inspectionID, "render report")
	if err != nil {
		return nil, err
	}
	report.Localized = uc.localize(ctx, report.Inspection.ReviewDefects, tags)
	report.Images = uc.loadImages(ctx, report.Inspection)

	data, err := uc.renderer.Render(*report)
	if err != nil {
		return nil, fmt.Errorf("render pdf report: %w", err)
	}
	return data, nil
}

func (uc *ReportUseCase) ExportWorkbook(ctx context.Context, inspectionID string) ([]byte, error) {
	report, err := uc.buildReport(ctx, inspectionID, "export workbook")
	if err != nil {
		return nil, err
	}
	report.Localized = []domain.LocalizedDefects{english(report.Inspection.ReviewDefects)}

	data, err := uc.exporter.Export(*report)
	if err != nil {
		return nil, fmt.Errorf("export workbook: %w", err)
	}
	return data, nil
}

func (uc *ReportUseCase) buildReport(ctx context.Context, inspectionID, op string) (*domain.InspectionReport, error) {
	inspection, err := uc.repo.GetByID(ctx, inspectionID)
	if err != nil {
		return nil, err
	}
	if inspection.Status != domain.InspectionReview {
		return nil, domain.WrapError(domain.ErrConflict, op, fmt.Errorf("inspection is %s, not %s", inspection.Status, domain.InspectionReview))
	}
	verdict, err := evaluateInspection(uc.plan, inspection)
	if err != nil {
		return nil, err
	}
	return &domain.InspectionReport{
		CompanyName:  uc.companyName,
		GeneratedAt:  uc.now().UTC(),
		Inspection:   *inspection,
		AIVerdict:    verdict.AI,
		FinalVerdict: verdict.Final,
	}, nil
}

// localize always yields English first, followed by each extra language in request order.
func (uc *ReportUseCase) localize(ctx context.Context, buckets domain.DefectBuckets, tags []language.Tag) []domain.LocalizedDefects {
	base := english(buckets)
	out := []domain.LocalizedDefects{base}

	for _, tag := range tags {
		code := tag.String()
		if code == reportBaseLanguage {
			continue
		}
		out = append(out, uc.translate(ctx, base, tag))
	}
	return out
}

func (uc *ReportUseCase) translate(ctx context.Context, base domain.LocalizedDefects, tag language.Tag) domain.LocalizedDefects {
	fallback := domain.LocalizedDefects{
		Language:     tag.String(),
		LanguageName: languageName(tag),
		Critical:     base.Critical,
		Major:        base.Major,
		Minor:        base.Minor,
	}

	texts := make([]string, 0, len(base.Critical)+len(base.Major)+len(base.Minor))
	texts = append(texts, base.Critical...)
	texts = append(texts, base.Major...)
	texts = append(texts, base.Minor...)
	if len(texts) == 0 {
		fallback.Translated = true
		return fallback
	}
	if uc.translator == nil {
		return fallback
	}

	translated, err := uc.translator.Translate(ctx, texts, tag.String())
	if err == nil && len(translated) != len(texts) {
		err = fmt.Errorf("translator returned %d entries for %d inputs", len(translated), len(texts))
	}
	if err != nil {
		slog.Warn("report_translation_fallback",
			"language", tag.String(),
			"error", err.Error(),
		)
		return fallback
	}

	c, m := len(base.Critical), len(base.Major)
	return domain.LocalizedDefects{
		Language:     tag.String(),
		LanguageName: languageName(tag),
		Critical:     translated[:c],
		Major:        translated[c : c+m],
		Minor:        translated[c+m:],
		Translated:   true,
	}
}

func (uc *ReportUseCase) loadImages(ctx context.Context, inspection domain.Inspection) []domain.ReportImage {
	images := make([]domain.ReportImage, 0, len(inspection.Images))
	for _, image := range inspection.Images {
		data, err := uc.readImage(ctx, image.StoragePath)
		if err != nil {
			slog.Warn("report_image_skipped",
				"inspection_id", inspection.ID,
				"image_id", image.ID,
				"error", err.Error(),
			)
			continue
		}
		images = append(images, domain.ReportImage{
			Angle:    image.Angle,
			Filename: image.Filename,
			MimeType: image.MimeType,
			Data:     data,
		})
	}
	return images
}

func (uc *ReportUseCase) readImage(ctx context.Context, key string) ([]byte, error) {
	rc, err := uc.storage.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func english(buckets domain.DefectBuckets) domain.LocalizedDefects {
	return domain.LocalizedDefects{
		Language:     reportBaseLanguage,
		LanguageName: languageName(language.English),
		Critical:     buckets.Descriptions(domain.SeverityCritical),
		Major:        buckets.Descriptions(domain.SeverityMajor),
		Minor:        buckets.Descriptions(domain.SeverityMinor),
		Translated:   true,
	}
}

// ParseLanguages accepts BCP 47 tags, possibly comma separated, and drops duplicates.
func ParseLanguages(raw []string) ([]language.Tag, error) {
	seen := make(map[string]struct{})
	tags := make([]language.Tag, 0, len(raw))
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			tag, err := language.Parse(part)
			if err != nil {
				return nil, domain.WrapError(domain.ErrInvalidInput, "parse report language", fmt.Errorf("%q: %w", part, err))
			}
			if _, ok := seen[tag.String()]; ok {
				continue
			}
			seen[tag.String()] = struct{}{}
			tags = append(tags, tag)
		}
	}
	return tags, nil
}

func languageName(tag language.Tag) string {
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return tag.String()
}
