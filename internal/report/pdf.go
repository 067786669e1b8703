package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	pdfMargin      = 14.0
	pdfRowHeight   = 8.0
	pdfTitleHeight = 10.0
	pdfTextHeight  = 6.0
	pdfSectionGap  = 6.0
	// Core fonts only cover cp1252; the translator prints other runes as ".".
	pdfFont = "Helvetica"
)

var pdfHeadFill = [3]int{41, 128, 185}

func formatRange(env Envelope) string {
	const layout = "Jan 2, 2006"
	return env.DateRange.From.Format(layout) + " - " + env.DateRange.To.Format(layout)
}

type pdfWriter struct {
	doc *fpdf.Fpdf
	tr  func(string) string
}

func newPDFWriter() *pdfWriter {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	doc.SetAutoPageBreak(true, pdfMargin)
	doc.AddPage()
	return &pdfWriter{doc: doc, tr: doc.UnicodeTranslatorFromDescriptor("")}
}

func renderPDF(env Envelope, l Layout, now time.Time) ([]byte, error) {
	w := newPDFWriter()
	doc := w.doc
	doc.SetCreationDate(now)
	doc.SetTitle(env.ReportTitle, true)
	doc.SetCreator("trackreport", true)

	w.text(20, "B", env.ReportTitle, 12)
	w.text(12, "", fmt.Sprintf("Project: %s (%s)", env.ProjectName, env.ProjectKey), 8)
	w.text(12, "", "Date Range: "+formatRange(env), 8)
	doc.Ln(6)

	w.text(14, "B", "Summary", 10)
	for _, fact := range l.Summary {
		w.text(12, "", fact.String(), 8)
	}

	for _, s := range l.Sections {
		w.section(s)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// section keeps its title on the same page as the first text line or the table header and
// first row.
func (w *pdfWriter) section(s Section) {
	need := pdfSectionGap + pdfTitleHeight
	if s.Text != "" {
		need += pdfTextHeight
	} else if s.Table != nil {
		need += 2 * pdfRowHeight
	}
	if !w.fits(need) {
		w.doc.AddPage()
	} else {
		w.doc.Ln(pdfSectionGap)
	}

	w.text(14, "B", s.Title, pdfTitleHeight)
	if s.Text != "" {
		w.doc.SetFont(pdfFont, "", 12)
		w.doc.MultiCell(0, pdfTextHeight, w.tr(s.Text), "", "L", false)
	}
	if s.Table != nil {
		w.table(*s.Table)
	}
}

func (w *pdfWriter) fits(h float64) bool {
	_, pageH := w.doc.GetPageSize()
	_, _, _, bottom := w.doc.GetMargins()
	return w.doc.GetY()+h <= pageH-bottom
}

func (w *pdfWriter) text(size float64, style, s string, height float64) {
	w.doc.SetFont(pdfFont, style, size)
	w.doc.CellFormat(0, height, w.tr(s), "", 1, "L", false, 0, "")
}

// table draws t with equal column widths, starting a new page when a row would not fit
// and repeating the header there.
func (w *pdfWriter) table(t Table) {
	if len(t.Columns) == 0 {
		return
	}

	pageW, _ := w.doc.GetPageSize()
	left, _, right, _ := w.doc.GetMargins()
	colW := (pageW - left - right) / float64(len(t.Columns))

	header := func() {
		w.doc.SetFont(pdfFont, "B", 10)
		w.doc.SetFillColor(pdfHeadFill[0], pdfHeadFill[1], pdfHeadFill[2])
		w.doc.SetTextColor(255, 255, 255)
		for _, c := range t.Columns {
			w.doc.CellFormat(colW, pdfRowHeight, w.tr(c), "1", 0, "L", true, 0, "")
		}
		w.doc.Ln(pdfRowHeight)
		w.doc.SetTextColor(0, 0, 0)
		w.doc.SetFont(pdfFont, "", 10)
	}

	if !w.fits(pdfRowHeight) {
		w.doc.AddPage()
	}
	header()

	for i, row := range t.Rows {
		if !w.fits(pdfRowHeight) {
			w.doc.AddPage()
			header()
		}
		fill := i%2 == 1
		if fill {
			w.doc.SetFillColor(245, 245, 245)
		}
		for col := range t.Columns {
			cell := ""
			if col < len(row) {
				cell = row[col]
			}
			w.doc.CellFormat(colW, pdfRowHeight, w.tr(cell), "1", 0, "L", fill, 0, "")
		}
		w.doc.Ln(pdfRowHeight)
	}
}
