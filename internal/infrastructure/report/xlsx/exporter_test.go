package xlsx

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/footwear-qc/internal/core/domain"
)

func TestExportWritesSummaryDefectsAndPhotos(t *testing.T) {
	ai := domain.DefectBuckets{
		Critical: []domain.DefectRecord{},
		Major:    []domain.DefectRecord{{ID: "d-1", Severity: domain.SeverityMajor, Description: "scuff on toe", Source: domain.SourceAI}},
		Minor:    []domain.DefectRecord{{ID: "d-2", Severity: domain.SeverityMinor, Description: "crease", Source: domain.SourceAI}},
	}
	review := domain.DefectBuckets{
		Critical: []domain.DefectRecord{{ID: "m-1", Severity: domain.SeverityCritical, Description: "broken heel", Source: domain.SourceManual}},
		Major:    []domain.DefectRecord{{ID: "d-1", Severity: domain.SeverityMajor, Description: "scuff on toe", Source: domain.SourceAI}},
		Minor:    []domain.DefectRecord{},
	}
	report := domain.InspectionReport{
		CompanyName: "Acme QC",
		GeneratedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Inspection: domain.Inspection{
			ID:            "insp-1",
			OrderNumber:   "PO-77",
			OrderQuantity: "1000",
			Images: []domain.InspectionImage{
				{ID: "img-1", Angle: "left", Filename: "a.jpg"},
				{ID: "img-2", Angle: "sole", Filename: "b.jpg"},
			},
			ImageResults: []domain.ImageResult{
				{ImageID: "img-1", Status: domain.ImageResultOK},
				{ImageID: "img-2", Status: domain.ImageResultAbsent, Error: "timeout"},
			},
			AIDefects:     ai,
			ReviewDefects: review,
		},
		AIVerdict:    domain.Verdict{Decision: domain.DecisionAccept, SampleSize: "80"},
		FinalVerdict: domain.Verdict{Decision: domain.DecisionReject, SampleSize: "80", Counts: domain.DefectCounts{Critical: 1, Major: 1}},
	}

	data, err := New().Export(report)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	if diff := cmp.Diff([]string{"Summary", "Defects", "Photos"}, f.GetSheetList()); diff != "" {
		t.Fatalf("sheet list mismatch (-want +got):\n%s", diff)
	}

	summary, err := f.GetRows("Summary")
	if err != nil {
		t.Fatalf("GetRows(Summary) error = %v", err)
	}
	values := make(map[string]string, len(summary))
	for _, row := range summary {
		if len(row) == 2 {
			values[row[0]] = row[1]
		}
	}
	if values["Order number"] != "PO-77" || values["Final decision"] != "REJECT" || values["AI decision"] != "ACCEPT" {
		t.Fatalf("unexpected summary values %v", values)
	}
	if values["QC critical"] != "1" {
		t.Fatalf("expected QC critical 1, got %q", values["QC critical"])
	}

	defects, err := f.GetRows("Defects")
	if err != nil {
		t.Fatalf("GetRows(Defects) error = %v", err)
	}
	want := [][]string{
		{"Severity", "Description", "Source", "In AI analysis", "In QC review", "Defect ID"},
		{"critical", "broken heel", "manual", "no", "yes", "m-1"},
		{"major", "scuff on toe", "ai", "yes", "yes", "d-1"},
		{"minor", "crease", "ai", "yes", "no", "d-2"},
	}
	if diff := cmp.Diff(want, defects); diff != "" {
		t.Fatalf("defects mismatch (-want +got):\n%s", diff)
	}

	photos, err := f.GetRows("Photos")
	if err != nil {
		t.Fatalf("GetRows(Photos) error = %v", err)
	}
	if len(photos) != 3 || photos[2][3] != "absent" || photos[2][4] != "timeout" {
		t.Fatalf("unexpected photos sheet %v", photos)
	}
}

func TestExportHandlesEmptyInspection(t *testing.T) {
	data, err := New().Export(domain.InspectionReport{})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected workbook bytes")
	}
}
