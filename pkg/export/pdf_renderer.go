package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const pageWidth = 190.0

// PDFRenderer renders a Document into an A4 portrait PDF.
type PDFRenderer struct{}

// NewPDFRenderer constructs a PDF renderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render walks the document sections and produces PDF bytes.
func (r *PDFRenderer) Render(doc Document) ([]byte, error) {
	if doc.Title == "" && len(doc.Sections) == 0 {
		return nil, fmt.Errorf("pdf requires a title or at least one section")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if len(doc.Logo) > 0 {
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("letterhead-logo", opts, bytes.NewReader(doc.Logo))
		pdf.ImageOptions("letterhead-logo", 12, 12, 18, 18, false, opts, 0, "")
	}

	if doc.Title != "" {
		pdf.SetFont("Arial", "B", 16)
		pdf.CellFormat(0, 10, strings.ToUpper(doc.Title), "", 1, "C", false, 0, "")
	}
	if doc.Subtitle != "" {
		pdf.SetFont("Arial", "", 12)
		pdf.CellFormat(0, 7, doc.Subtitle, "", 1, "C", false, 0, "")
	}
	pdf.Ln(5)

	for _, section := range doc.Sections {
		if section.Heading != "" {
			pdf.SetFont("Arial", "B", 12)
			pdf.CellFormat(0, 8, section.Heading, "", 1, "", false, 0, "")
		}
		for _, block := range section.Blocks {
			switch b := block.(type) {
			case Paragraph:
				pdf.SetFont("Arial", "", 10)
				pdf.MultiCell(pageWidth, 5, b.Text, "", "", false)
				pdf.Ln(2)
			case Table:
				r.renderTable(pdf, b)
				pdf.Ln(3)
			case NumberedList:
				pdf.SetFont("Arial", "", 10)
				for i, item := range b.Items {
					pdf.MultiCell(pageWidth, 5, fmt.Sprintf("%s%d: %s", b.Prefix, i+1, item), "", "", false)
				}
				pdf.Ln(2)
			}
		}
		pdf.Ln(2)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *PDFRenderer) renderTable(pdf *gofpdf.Fpdf, table Table) {
	if len(table.Headers) == 0 {
		return
	}
	widths := columnWidths(len(table.Headers), table.WideCol)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(22, 160, 133)
	pdf.SetTextColor(255, 255, 255)
	for i, header := range table.Headers {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetTextColor(0, 0, 0)

	pdf.SetFont("Arial", "", 9)
	for _, row := range table.Rows {
		height := rowHeight(pdf, row, widths)
		x, y := pdf.GetXY()
		for i := range table.Headers {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			pdf.Rect(x, y, widths[i], height, "D")
			pdf.SetXY(x, y)
			pdf.MultiCell(widths[i], 5, value, "", "", false)
			x += widths[i]
		}
		pdf.SetXY(pdf.GetX(), y+height)
		pdf.SetX(10)
	}
}

// rowHeight measures the tallest wrapped cell so bordered rows line up.
func rowHeight(pdf *gofpdf.Fpdf, row []string, widths []float64) float64 {
	height := 5.0
	for i, value := range row {
		if i >= len(widths) {
			break
		}
		lines := pdf.SplitText(value, widths[i]-2)
		if h := float64(len(lines)) * 5.0; h > height {
			height = h
		}
	}
	return height
}

func columnWidths(count, wideCol int) []float64 {
	widths := make([]float64, count)
	if wideCol >= 0 && wideCol < count && count > 1 {
		wide := pageWidth / 2
		rest := (pageWidth - wide) / float64(count-1)
		for i := range widths {
			widths[i] = rest
		}
		widths[wideCol] = wide
		return widths
	}
	for i := range widths {
		widths[i] = pageWidth / float64(count)
	}
	return widths
}
