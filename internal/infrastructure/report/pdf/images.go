package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/kirillkom/footwear-qc/internal/core/domain"
)

const (
	photoColumns = 2
	photoGap     = 6.0
	photoMaxH    = 100.0
	captionH     = 6.0
)

// photoPages lays photos out in a two column grid. Every photo is re-encoded
// as an opaque JPEG so fpdf never sees interlaced or transparent PNGs.
func (d *document) photoPages(images []domain.ReportImage) {
	d.pdf.AddPage()
	d.heading("Photos")

	pageW, _ := d.pdf.GetPageSize()
	left, _, right, _ := d.pdf.GetMargins()
	cellW := (pageW - left - right - photoGap*(photoColumns-1)) / photoColumns

	col := 0
	rowTop := d.pdf.GetY()
	rowH := 0.0
	for i, img := range images {
		jpg, w, h, err := toJPEG(img.Data)
		if err != nil {
			slog.Warn("report_photo_skipped", "filename", img.Filename, "error", err.Error())
			continue
		}

		drawW, drawH := fit(float64(w), float64(h), cellW, photoMaxH)
		if col == 0 && d.pageBreakNeeded(rowTop, drawH+captionH) {
			d.pdf.AddPage()
			rowTop = d.pdf.GetY()
		}

		x := left + float64(col)*(cellW+photoGap)
		name := fmt.Sprintf("photo-%d", i)
		d.pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: "JPG"}, bytes.NewReader(jpg))
		d.pdf.ImageOptions(name, x, rowTop, drawW, drawH, false, fpdf.ImageOptions{ImageType: "JPG"}, 0, "")

		d.pdf.SetXY(x, rowTop+drawH+1)
		d.font("", 9)
		d.pdf.CellFormat(cellW, captionH-1, d.tr(caption(img)), "", 0, "L", false, 0, "")

		if drawH+captionH > rowH {
			rowH = drawH + captionH
		}
		col++
		if col == photoColumns {
			col = 0
			rowTop += rowH + photoGap
			rowH = 0
		}
	}
}

func (d *document) pageBreakNeeded(top, height float64) bool {
	_, pageH := d.pdf.GetPageSize()
	_, _, _, bottom := d.pdf.GetMargins()
	return top+height > pageH-bottom
}

func toJPEG(data []byte) ([]byte, int, int, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode image: %w", err)
	}
	bounds := src.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(canvas, bounds, src, bounds.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: 85}); err != nil {
		return nil, 0, 0, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), bounds.Dx(), bounds.Dy(), nil
}

func fit(w, h, maxW, maxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return maxW, maxH
	}
	scale := maxW / w
	if h*scale > maxH {
		scale = maxH / h
	}
	return w * scale, h * scale
}

func caption(img domain.ReportImage) string {
	parts := make([]string, 0, 2)
	if angle := strings.TrimSpace(img.Angle); angle != "" {
		parts = append(parts, capitalize(angle))
	}
	if img.Filename != "" {
		parts = append(parts, img.Filename)
	}
	return strings.Join(parts, ": ")
}
