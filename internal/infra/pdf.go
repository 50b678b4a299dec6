package infra

// pdf.go: dashboard export as an A4 PDF using go-pdf/fpdf.
// Layout: title, generation timestamp, one table row per product, totals line.

import (
	"bytes"
	"fmt"
	"time"

	"warehouse/internal/dto"

	"github.com/go-pdf/fpdf"
)

// DashboardPDF renders the dashboard table as a PDF document.
func DashboardPDF(d *dto.DashboardResponse, generatedAt time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 24

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 8, "Warehouse stock", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, "Generated "+generatedAt.Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	// ── Table ────────────────────────────────────────────────────────────────
	widths := []float64{12, 62, 20, 22, 22, 20, 28}
	pdf.SetFont("Helvetica", "B", 8)
	for i, h := range exportHeader {
		align := "R"
		if i == 1 || i == 2 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 6, h, "B", 0, align, false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for _, row := range d.Products {
		gram := ""
		if row.Gram != nil {
			gram = *row.Gram
		}
		title := row.Title
		if len(title) > 38 {
			title = title[:38]
		}
		pdf.CellFormat(widths[0], 5, fmt.Sprintf("%d", row.PID), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[1], 5, title, "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 5, gram, "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[3], 5, fmt.Sprintf("%d", row.ItemQuantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 5, row.Bundles.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[5], 5, row.ProductRate.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[6], 5, row.Value.StringFixed(2), "", 1, "R", false, 0, "")
	}

	// ── Totals ───────────────────────────────────────────────────────────────
	pdf.Ln(2)
	pdf.Line(12, pdf.GetY(), pageW-12, pdf.GetY())
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(contentW/2, 6, fmt.Sprintf("%d products, %d items", d.Summary.ProductCount, d.Summary.TotalItems), "", 0, "L", false, 0, "")
	pdf.CellFormat(contentW/2, 6, "Total value "+d.Summary.TotalValue.StringFixed(2), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render dashboard: %w", err)
	}
	return buf.Bytes(), nil
}
