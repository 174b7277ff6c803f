package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

const (
	pageWidth    = 190.0
	pageHeight   = 297.0
	topMargin    = 10.0
	titleHeight  = 10.0
	lineHeight   = 5.5
	summaryGap   = 4.0
	footerOffset = 15.0
)

// MaxLinesPerPage is the most listing lines that fit on an A4 page together
// with the title, the three summary lines and the footer.
const MaxLinesPerPage = 43

// WritePDF renders rep as an A4 document, one report page per PDF page.
func WritePDF(w io.Writer, rep Report) error {
	pdf, err := newPDF(rep)
	if err != nil {
		return err
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func newPDF(rep Report) (*fpdf.Fpdf, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("%s %s", rep.Title, rep.Date), true)
	pdf.SetMargins(topMargin, topMargin, topMargin)
	pdf.SetAutoPageBreak(false, topMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for i, page := range rep.Pages {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(pageWidth, titleHeight, tr(fmt.Sprintf("%s - %s", rep.Title, rep.Date)), "", 1, "C", false, 0, "")
		pdf.SetFont("Courier", "", 10)
		for _, line := range page {
			pdf.CellFormat(pageWidth, lineHeight, tr(line), "", 1, "L", false, 0, "")
		}
		if i == len(rep.Pages)-1 {
			pdf.Ln(summaryGap)
			pdf.SetFont("Helvetica", "", 11)
			for _, line := range rep.Summary {
				pdf.CellFormat(pageWidth, lineHeight, tr(line), "", 1, "L", false, 0, "")
			}
		}
		if y := pdf.GetY(); y > pageHeight-footerOffset {
			return nil, fmt.Errorf("page %d overflows into the footer (%.1fmm)", i+1, y)
		}
		pdf.SetY(-footerOffset)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(pageWidth, 10, fmt.Sprintf("Page %d of %d", i+1, len(rep.Pages)), "", 0, "C", false, 0, "")
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return pdf, nil
}
