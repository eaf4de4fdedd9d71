package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/pevans/newsscraper/articles"
)

// ArticlesPerPage is how many articles the PDF report prints before
// starting a new page.
const ArticlesPerPage = 5

// WritePDF writes items as a PDF report.
func WritePDF(w io.Writer, items []articles.Article, generatedAt time.Time) error {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(15, 13, 15)
	pdf.SetAutoPageBreak(true, 13)
	pdf.SetTitle(reportTitle, true)
	// Core fonts are cp1252; translate UTF-8 text before drawing it.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 24)
	pdf.CellFormat(0, 14, reportTitle, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Generated: "+generatedAt.Format(timestampLayout), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Total Articles: %d", len(items)), "", 1, "L", false, 0, "")
	pdf.Ln(8)

	for i := range items {
		a := &items[i]

		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 14)
		pdf.MultiCell(0, 7, tr(fmt.Sprintf("%d. %s", i+1, a.Title)), "", "L", false)
		pdf.Ln(2)

		if meta := metadata(a); len(meta) > 0 {
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr(strings.Join(meta, " | ")), "", "L", false)
			pdf.Ln(3)
		}

		if a.Summary != "" {
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr(a.Summary), "", "J", false)
			pdf.Ln(2)
		}

		pdf.SetFont("Helvetica", "U", 10)
		pdf.SetTextColor(0, 0, 238)
		pdf.CellFormat(0, 5, tr(a.URL), "", 1, "L", false, 0, a.URL)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(6)

		if (i+1)%ArticlesPerPage == 0 && i < len(items)-1 {
			pdf.AddPage()
		}
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to render PDF: %w", err)
	}
	return pdf.Output(w)
}
