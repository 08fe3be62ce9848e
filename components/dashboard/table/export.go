package table

import (
	"fmt"
	"io"

	"github.com/phpdave11/gofpdf"
)

const (
	pdfPageWidth = 277.0 // A4 landscape minus margins, in mm
	pdfRowHeight = 7.0
)

// ExportPDF writes the rows of view as a PDF table. Only the current page is
// exported; the table never fetches other pages on its own.
func ExportPDF(w io.Writer, title string, view View) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	cols := len(view.Headers)
	if cols == 0 {
		return fmt.Errorf("table: export requires at least one column")
	}
	width := pdfPageWidth / float64(cols)

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, header := range view.Headers {
		pdf.CellFormat(width, pdfRowHeight, header.Label, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	if len(view.Rows) == 0 {
		text := view.EmptyText
		if text == "" {
			text = defaultEmptyText
		}
		pdf.CellFormat(pdfPageWidth, pdfRowHeight, text, "1", 1, "C", false, 0, "")
	}
	for _, row := range view.Rows {
		for _, cell := range row.Cells {
			pdf.CellFormat(width, pdfRowHeight, truncate(pdf, cell.Text, width), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if view.Pagination.TotalPages > 0 {
		pdf.Ln(2)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d of %d (%d records)",
			view.Pagination.CurrentPage, view.Pagination.TotalPages, view.Pagination.TotalItems), "", 1, "R", false, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("table: build pdf: %w", err)
	}
	return pdf.Output(w)
}

func truncate(pdf *gofpdf.Fpdf, text string, width float64) string {
	limit := width - 2
	if pdf.GetStringWidth(text) <= limit {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
