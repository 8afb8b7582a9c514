package session

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

// ExportPDF writes the transcript as a PDF document, one block per turn
func ExportPDF(w io.Writer, title string, turns []Turn) error {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(15, 15, 15)
	doc.SetAutoPageBreak(true, 15)
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetTitle(title, true)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 16)
	doc.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")
	doc.Ln(4)

	if len(turns) == 0 {
		doc.SetFont("Helvetica", "I", 11)
		doc.CellFormat(0, 8, "No questions yet.", "", 1, "L", false, 0, "")
	}

	for i, turn := range turns {
		doc.SetFont("Helvetica", "B", 11)
		doc.MultiCell(0, 6, tr(fmt.Sprintf("Q%d: %s", i+1, turn.Question)), "", "L", false)
		doc.SetFont("Helvetica", "", 11)
		doc.MultiCell(0, 6, tr(turn.Answer), "", "L", false)
		if !turn.AskedAt.IsZero() {
			doc.SetFont("Helvetica", "I", 8)
			doc.CellFormat(0, 5, turn.AskedAt.Format("2006-01-02 15:04 MST"), "", 1, "R", false, 0, "")
		}
		doc.Ln(3)
	}

	return doc.Output(w)
}
