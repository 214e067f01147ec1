// Package pdf typesets inspection reports with fpdf.
package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"

	"github.com/kirillkom/footwear-qc/internal/core/domain"
)

const (
	fontFamilyCore = "Helvetica"
	fontFamilyUTF8 = "ReportSans"
	lineHeight     = 6.0
)

type Options struct {
	// FontPath is a TTF file used for both regular and bold text. Without it
	// the core Helvetica font is used and text is limited to cp1252.
	FontPath string
}

type Renderer struct {
	fontPath string
}

func New(opts Options) *Renderer {
	return &Renderer{fontPath: strings.TrimSpace(opts.FontPath)}
}

func (r *Renderer) Render(report domain.InspectionReport) ([]byte, error) {
	doc := r.newDocument(report)

	doc.summaryPage(report)
	for _, localized := range report.Localized {
		if localized.Language == "en" {
			continue
		}
		doc.localizedPage(localized)
	}
	if len(report.Images) > 0 {
		doc.photoPages(report.Images)
	}

	var buf bytes.Buffer
	if err := doc.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type document struct {
	pdf    *fpdf.Fpdf
	family string
	tr     func(string) string
}

func (r *Renderer) newDocument(report domain.InspectionReport) *document {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 18)
	pdf.AliasNbPages("")

	doc := &document{pdf: pdf, family: fontFamilyCore}
	if r.fontPath != "" {
		pdf.AddUTF8Font(fontFamilyUTF8, "", r.fontPath)
		pdf.AddUTF8Font(fontFamilyUTF8, "B", r.fontPath)
		pdf.AddUTF8Font(fontFamilyUTF8, "I", r.fontPath)
		doc.family = fontFamilyUTF8
		doc.tr = func(s string) string { return s }
	} else {
		doc.tr = pdf.UnicodeTranslatorFromDescriptor("")
	}

	title := "Inspection report " + report.Inspection.OrderNumber
	pdf.SetTitle(title, true)
	pdf.SetSubject("Footwear quality inspection", true)
	if report.CompanyName != "" {
		pdf.SetAuthor(report.CompanyName, true)
	}
	pdf.SetCreator("footwear-qc", true)
	pdf.SetCreationDate(report.GeneratedAt)

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		doc.font("I", 8)
		pdf.SetTextColor(120, 120, 120)
		footer := fmt.Sprintf("%s  |  inspection %s  |  page %d/{nb}", report.GeneratedAt.Format("2006-01-02 15:04 MST"), report.Inspection.ID, pdf.PageNo())
		pdf.CellFormat(0, 8, doc.tr(footer), "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})
	return doc
}

func (d *document) font(style string, size float64) {
	d.pdf.SetFont(d.family, style, size)
}

func (d *document) heading(text string) {
	d.font("B", 16)
	d.pdf.CellFormat(0, 10, d.tr(text), "", 1, "L", false, 0, "")
	d.pdf.Ln(2)
}

func (d *document) subheading(text string) {
	d.pdf.Ln(3)
	d.font("B", 12)
	d.pdf.SetFillColor(235, 238, 242)
	d.pdf.CellFormat(0, 8, d.tr(text), "", 1, "L", true, 0, "")
	d.pdf.Ln(1)
}

func (d *document) field(label, value string) {
	if strings.TrimSpace(value) == "" {
		value = "-"
	}
	d.font("B", 10)
	d.pdf.CellFormat(45, lineHeight, d.tr(label), "", 0, "L", false, 0, "")
	d.font("", 10)
	d.pdf.MultiCell(0, lineHeight, d.tr(value), "", "L", false)
}

func (d *document) bullets(items []string, empty string) {
	d.font("", 10)
	if len(items) == 0 {
		d.pdf.SetTextColor(120, 120, 120)
		d.pdf.MultiCell(0, lineHeight, d.tr(empty), "", "L", false)
		d.pdf.SetTextColor(0, 0, 0)
		return
	}
	for _, item := range items {
		d.pdf.CellFormat(6, lineHeight, "-", "", 0, "R", false, 0, "")
		d.pdf.MultiCell(0, lineHeight, d.tr(" "+capitalize(item)), "", "L", false)
	}
}

func (d *document) summaryPage(report domain.InspectionReport) {
	d.pdf.AddPage()
	inspection := report.Inspection

	if report.CompanyName != "" {
		d.font("", 10)
		d.pdf.SetTextColor(90, 90, 90)
		d.pdf.CellFormat(0, 5, d.tr(report.CompanyName), "", 1, "L", false, 0, "")
		d.pdf.SetTextColor(0, 0, 0)
	}
	d.heading("Footwear inspection report")

	d.field("Order number", inspection.OrderNumber)
	d.field("Order quantity", inspection.OrderQuantity)
	d.field("Style", inspection.Style)
	d.field("Factory", inspection.Factory)
	d.field("Client", inspection.Client)
	d.field("Inspector", inspection.Inspector)
	d.field("Photos", fmt.Sprintf("%d uploaded, %d analyzed", len(inspection.Images), countAnalyzed(inspection.ImageResults)))
	d.field("Generated", report.GeneratedAt.Format("2006-01-02 15:04 MST"))

	d.subheading("Final verdict")
	d.verdictBanner(report.FinalVerdict)
	d.field("Reason", report.FinalVerdict.Reason)
	d.field("Sample size", report.FinalVerdict.SampleSize)
	d.field("Acceptance limits", formatLimits(report.FinalVerdict.Limits))
	if report.FinalVerdict.QuantityFallback {
		d.field("Note", "Order quantity could not be read; the default sampling bracket was applied.")
	}
	d.field("AI verdict", fmt.Sprintf("%s: %s", report.AIVerdict.Decision, report.AIVerdict.Reason))

	d.subheading("Defects: AI findings vs QC review")
	d.comparisonTable(report)

	base := englishSection(report.Localized)
	for _, severity := range domain.Severities {
		items := sectionItems(base, severity)
		d.font("B", 11)
		d.pdf.Ln(2)
		d.pdf.CellFormat(0, 7, d.tr(fmt.Sprintf("%s (%d)", capitalize(string(severity)), len(items))), "", 1, "L", false, 0, "")
		d.bullets(items, "No defects recorded.")
	}
}

func (d *document) verdictBanner(verdict domain.Verdict) {
	r, g, b := decisionColor(verdict.Decision)
	d.pdf.SetFillColor(r, g, b)
	d.pdf.SetTextColor(255, 255, 255)
	d.font("B", 14)
	d.pdf.CellFormat(0, 11, d.tr(string(verdict.Decision)), "", 1, "C", true, 0, "")
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.Ln(2)
}

func (d *document) comparisonTable(report domain.InspectionReport) {
	widths := []float64{50, 40, 40, 50}
	headers := []string{"Severity", "AI", "QC review", "Limit"}

	d.font("B", 10)
	d.pdf.SetFillColor(220, 224, 230)
	for i, header := range headers {
		d.pdf.CellFormat(widths[i], 7, d.tr(header), "1", 0, "C", true, 0, "")
	}
	d.pdf.Ln(-1)

	ai := report.AIVerdict.Counts
	final := report.FinalVerdict.Counts
	limits := report.FinalVerdict.Limits
	rows := [][]string{
		{"Critical", fmt.Sprint(ai.Critical), fmt.Sprint(final.Critical), fmt.Sprint(limits.Critical)},
		{"Major", fmt.Sprint(ai.Major), fmt.Sprint(final.Major), fmt.Sprint(limits.Major)},
		{"Minor", fmt.Sprint(ai.Minor), fmt.Sprint(final.Minor), fmt.Sprint(limits.Minor)},
	}
	d.font("", 10)
	for _, row := range rows {
		for i, cell := range row {
			align := "C"
			if i == 0 {
				align = "L"
			}
			d.pdf.CellFormat(widths[i], 7, d.tr(cell), "1", 0, align, false, 0, "")
		}
		d.pdf.Ln(-1)
	}
}

func (d *document) localizedPage(localized domain.LocalizedDefects) {
	d.pdf.AddPage()
	d.heading(fmt.Sprintf("Defects (%s)", localized.LanguageName))
	if !localized.Translated {
		d.font("I", 10)
		d.pdf.SetTextColor(150, 80, 0)
		d.pdf.MultiCell(0, lineHeight, d.tr("Translation unavailable; English descriptions are shown."), "", "L", false)
		d.pdf.SetTextColor(0, 0, 0)
	}
	for _, severity := range domain.Severities {
		items := sectionItems(localized, severity)
		d.subheading(fmt.Sprintf("%s (%d)", capitalize(string(severity)), len(items)))
		d.bullets(items, "-")
	}
}

func countAnalyzed(results []domain.ImageResult) int {
	n := 0
	for _, result := range results {
		if result.Status == domain.ImageResultOK {
			n++
		}
	}
	return n
}

func englishSection(sections []domain.LocalizedDefects) domain.LocalizedDefects {
	for _, section := range sections {
		if section.Language == "en" {
			return section
		}
	}
	if len(sections) > 0 {
		return sections[0]
	}
	return domain.LocalizedDefects{}
}

func sectionItems(section domain.LocalizedDefects, severity domain.Severity) []string {
	switch severity {
	case domain.SeverityCritical:
		return section.Critical
	case domain.SeverityMajor:
		return section.Major
	default:
		return section.Minor
	}
}

func decisionColor(decision domain.Decision) (int, int, int) {
	switch decision {
	case domain.DecisionAccept:
		return 46, 125, 50
	case domain.DecisionRework:
		return 239, 108, 0
	default:
		return 198, 40, 40
	}
}

func formatLimits(limits domain.Limits) string {
	return fmt.Sprintf("critical %d, major %d, minor %d", limits.Critical, limits.Major, limits.Minor)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
