// Package xlsx exports inspection reports as Excel workbooks.
package xlsx

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/footwear-qc/internal/core/domain"
)

const (
	sheetSummary = "Summary"
	sheetDefects = "Defects"
	sheetPhotos  = "Photos"
)

type Exporter struct{}

func New() *Exporter {
	return &Exporter{}
}

func (e *Exporter) Export(report domain.InspectionReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, fmt.Errorf("rename summary sheet: %w", err)
	}
	for _, name := range []string{sheetDefects, sheetPhotos} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create %s sheet: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DCE0E6"}},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	steps := []func(*excelize.File, domain.InspectionReport, int) error{
		writeSummary,
		writeDefects,
		writePhotos,
	}
	for _, step := range steps {
		if err := step(f, report, header); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummary(f *excelize.File, report domain.InspectionReport, header int) error {
	inspection := report.Inspection
	rows := [][]any{
		{"Field", "Value"},
		{"Company", report.CompanyName},
		{"Inspection ID", inspection.ID},
		{"Order number", inspection.OrderNumber},
		{"Order quantity", inspection.OrderQuantity},
		{"Style", inspection.Style},
		{"Factory", inspection.Factory},
		{"Client", inspection.Client},
		{"Inspector", inspection.Inspector},
		{"Generated at", report.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
		{"Final decision", string(report.FinalVerdict.Decision)},
		{"Final reason", report.FinalVerdict.Reason},
		{"AI decision", string(report.AIVerdict.Decision)},
		{"AI reason", report.AIVerdict.Reason},
		{"Sample size", report.FinalVerdict.SampleSize},
		{"Quantity fallback", report.FinalVerdict.QuantityFallback},
		{"Limit critical", report.FinalVerdict.Limits.Critical},
		{"Limit major", report.FinalVerdict.Limits.Major},
		{"Limit minor", report.FinalVerdict.Limits.Minor},
		{"AI critical", report.AIVerdict.Counts.Critical},
		{"AI major", report.AIVerdict.Counts.Major},
		{"AI minor", report.AIVerdict.Counts.Minor},
		{"QC critical", report.FinalVerdict.Counts.Critical},
		{"QC major", report.FinalVerdict.Counts.Major},
		{"QC minor", report.FinalVerdict.Counts.Minor},
	}
	if err := writeRows(f, sheetSummary, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetSummary, "A1", "B1", header); err != nil {
		return fmt.Errorf("style summary header: %w", err)
	}
	if err := f.SetColWidth(sheetSummary, "A", "A", 20); err != nil {
		return fmt.Errorf("size summary column: %w", err)
	}
	if err := f.SetColWidth(sheetSummary, "B", "B", 70); err != nil {
		return fmt.Errorf("size summary column: %w", err)
	}
	return nil
}

// writeDefects lists every review defect, then AI findings QC removed.
func writeDefects(f *excelize.File, report domain.InspectionReport, header int) error {
	ai := report.Inspection.AIDefects
	review := report.Inspection.ReviewDefects

	rows := [][]any{{"Severity", "Description", "Source", "In AI analysis", "In QC review", "Defect ID"}}
	for _, severity := range domain.Severities {
		for _, rec := range *review.Bucket(severity) {
			_, inAI := ai.Find(rec.ID)
			rows = append(rows, []any{string(severity), rec.Description, string(rec.Source), yesNo(inAI), "yes", rec.ID})
		}
	}
	for _, severity := range domain.Severities {
		for _, rec := range *ai.Bucket(severity) {
			if _, kept := review.Find(rec.ID); kept {
				continue
			}
			rows = append(rows, []any{string(severity), rec.Description, string(rec.Source), "yes", "no", rec.ID})
		}
	}

	if err := writeRows(f, sheetDefects, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetDefects, "A1", "F1", header); err != nil {
		return fmt.Errorf("style defects header: %w", err)
	}
	if err := f.SetColWidth(sheetDefects, "B", "B", 60); err != nil {
		return fmt.Errorf("size defects column: %w", err)
	}
	if err := f.SetColWidth(sheetDefects, "F", "F", 38); err != nil {
		return fmt.Errorf("size defects column: %w", err)
	}
	if len(rows) > 1 {
		last, err := excelize.CoordinatesToCellName(6, len(rows))
		if err != nil {
			return fmt.Errorf("defects range: %w", err)
		}
		if err := f.AutoFilter(sheetDefects, "A1:"+last, nil); err != nil {
			return fmt.Errorf("defects filter: %w", err)
		}
	}
	return nil
}

func writePhotos(f *excelize.File, report domain.InspectionReport, header int) error {
	results := make(map[string]domain.ImageResult, len(report.Inspection.ImageResults))
	for _, result := range report.Inspection.ImageResults {
		results[result.ImageID] = result
	}

	rows := [][]any{{"Image ID", "Angle", "Filename", "Analysis", "Error"}}
	for _, image := range report.Inspection.Images {
		result, ok := results[image.ID]
		status := "pending"
		if ok {
			status = string(result.Status)
		}
		rows = append(rows, []any{image.ID, image.Angle, image.Filename, status, result.Error})
	}

	if err := writeRows(f, sheetPhotos, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetPhotos, "A1", "E1", header); err != nil {
		return fmt.Errorf("style photos header: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
