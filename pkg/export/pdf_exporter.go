package export

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidth  = 190.0
	pdfRowHeight  = 7.0
	pdfFontFamily = "Helvetica"
)

// PDFExporter lays a Dataset out as a bordered table on A4 pages.
type PDFExporter struct {
	// Orientation is "P" or "L".
	Orientation string
}

// NewPDFExporter returns a portrait exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{Orientation: "P"}
}

// Render writes title, the table and any trailing notes. The header row repeats on each page.
func (e *PDFExporter) Render(data Dataset, title string, notes ...string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, errors.New("pdf needs at least one column")
	}
	pdf := gofpdf.New(e.Orientation, "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(false, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	widths := columnWidths(pdf, data, e.usableWidth(pdf))

	header := func() {
		pdf.SetFont(pdfFontFamily, "B", 10)
		for i, h := range data.Headers {
			pdf.CellFormat(widths[i], 8, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont(pdfFontFamily, "", 9)
	}

	pdf.AddPage()
	pdf.SetFillColor(230, 230, 230)
	if title != "" {
		pdf.SetFont(pdfFontFamily, "B", 14)
		pdf.CellFormat(0, 10, tr(title), "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, row := range data.Rows {
		if pdf.GetY()+pdfRowHeight > pageHeight-bottom {
			pdf.AddPage()
			header()
		}
		for i, h := range data.Headers {
			value := row[h]
			align := "L"
			if isNumeric(value) {
				align = "R"
			}
			pdf.CellFormat(widths[i], pdfRowHeight, tr(value), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(notes) > 0 {
		pdf.Ln(4)
		pdf.SetFont(pdfFontFamily, "B", 10)
		for _, note := range notes {
			pdf.CellFormat(0, 6, tr(note), "", 1, "L", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) usableWidth(pdf *gofpdf.Fpdf) float64 {
	if e.Orientation == "L" {
		w, _ := pdf.GetPageSize()
		left, _, right, _ := pdf.GetMargins()
		return w - left - right
	}
	return pdfPageWidth
}

// columnWidths shares total across columns in proportion to their widest cell.
func columnWidths(pdf *gofpdf.Fpdf, data Dataset, total float64) []float64 {
	pdf.SetFont(pdfFontFamily, "B", 10)
	natural := make([]float64, len(data.Headers))
	sum := 0.0
	for i, h := range data.Headers {
		w := pdf.GetStringWidth(h)
		for _, row := range data.Rows {
			if cw := pdf.GetStringWidth(row[h]); cw > w {
				w = cw
			}
		}
		natural[i] = w + 4
		sum += natural[i]
	}
	widths := make([]float64, len(natural))
	for i, w := range natural {
		widths[i] = total * w / sum
	}
	return widths
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
