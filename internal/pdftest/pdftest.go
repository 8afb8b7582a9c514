// Package pdftest builds small PDF documents for tests.
package pdftest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"
)

// Build returns an uncompressed PDF with one page per entry of pages. Each
// line of a page's text is written as its own cell; an empty entry yields a
// blank page.
func Build(t testing.TB, pages ...string) []byte {
	t.Helper()

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetCompression(false)
	doc.SetFont("Helvetica", "", 12)
	for _, text := range pages {
		doc.AddPage()
		if text == "" {
			continue
		}
		for _, line := range strings.Split(text, "\n") {
			doc.CellFormat(0, 8, line, "", 1, "L", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("build pdf: %v", err)
	}
	return buf.Bytes()
}
