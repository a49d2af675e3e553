package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Letter is a printable single-document body with an optional letterhead.
type Letter struct {
	Letterhead string
	Body       string
	Footer     string
}

// PDFExporter renders letters into A4 PDF documents.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// RenderLetter lays out the letter body line by line, keeping blank lines as
// paragraph breaks.
func (e *PDFExporter) RenderLetter(letter Letter) ([]byte, error) {
	if strings.TrimSpace(letter.Body) == "" {
		return nil, fmt.Errorf("pdf requires a letter body")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	if letter.Letterhead != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(strings.ToUpper(letter.Letterhead)), "B", 1, "C", false, 0, "")
		pdf.Ln(6)
	}

	pdf.SetFont("Arial", "", 11)
	for _, line := range strings.Split(letter.Body, "\n") {
		if line == "" {
			pdf.Ln(4)
			continue
		}
		pdf.MultiCell(0, 6, tr(line), "", "L", false)
	}

	if letter.Footer != "" {
		pdf.Ln(8)
		pdf.SetFont("Arial", "I", 8)
		pdf.MultiCell(0, 5, tr(letter.Footer), "", "R", false)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
