package report

import (
	"io"

	"github.com/go-pdf/fpdf"
)

const (
	pdfMargin    = 10.0
	pdfRowHeight = 7.0
)

// PDFRenderer prints the header followed by the table.
type PDFRenderer struct{}

// Render implements Renderer.
func (PDFRenderer) Render(w io.Writer, header Header, r Report) error {
	orientation := "P"
	if len(r.Columns) > 5 {
		orientation = "L"
	}
	pdf := fpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 9, tr(header.Product), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, "Generated "+header.GeneratedAt.Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, tr(r.Title), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(r.Columns) == 0 {
		return pdf.Output(w)
	}
	pageWidth, _ := pdf.GetPageSize()
	colWidth := (pageWidth - 2*pdfMargin) / float64(len(r.Columns))

	printHeader := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for _, col := range r.Columns {
			pdf.CellFormat(colWidth, pdfRowHeight, fit(pdf, tr(col), colWidth), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
	}
	printHeader()

	_, pageHeight := pdf.GetPageSize()
	for _, row := range r.Rows {
		if pdf.GetY()+pdfRowHeight > pageHeight-pdfMargin {
			pdf.AddPage()
			printHeader()
		}
		for i := range r.Columns {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			pdf.CellFormat(colWidth, pdfRowHeight, fit(pdf, tr(value), colWidth), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	return pdf.Output(w)
}

// fit shortens text until it fits inside a cell of the given width.
func fit(pdf *fpdf.Fpdf, text string, width float64) string {
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
