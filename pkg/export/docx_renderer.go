package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// DocxRenderer renders a Document into a minimal WordprocessingML (.docx)
// package. A docx file is a zip archive of XML parts; the few parts a
// word processor needs are emitted directly, which keeps the renderer free
// of any document library dependency.
type DocxRenderer struct{}

// NewDocxRenderer constructs a DOCX renderer.
func NewDocxRenderer() *DocxRenderer {
	return &DocxRenderer{}
}

const (
	docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Default Extension="png" ContentType="image/png"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

	docxRootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

	docxDocumentRelsWithLogo = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rIdLogo" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/logo.png"/>
</Relationships>`

	docxDocumentRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
</Relationships>`
)

// Render produces docx bytes for the document.
func (r *DocxRenderer) Render(doc Document) ([]byte, error) {
	if doc.Title == "" && len(doc.Sections) == 0 {
		return nil, fmt.Errorf("docx requires a title or at least one section")
	}

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)

	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", []byte(docxContentTypes)},
		{"_rels/.rels", []byte(docxRootRels)},
	}
	if len(doc.Logo) > 0 {
		parts = append(parts,
			struct {
				name string
				data []byte
			}{"word/_rels/document.xml.rels", []byte(docxDocumentRelsWithLogo)},
			struct {
				name string
				data []byte
			}{"word/media/logo.png", doc.Logo},
		)
	} else {
		parts = append(parts, struct {
			name string
			data []byte
		}{"word/_rels/document.xml.rels", []byte(docxDocumentRels)})
	}
	parts = append(parts, struct {
		name string
		data []byte
	}{"word/document.xml", r.documentXML(doc)})

	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("create docx part %s: %w", part.name, err)
		}
		if _, err := w.Write(part.data); err != nil {
			return nil, fmt.Errorf("write docx part %s: %w", part.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize docx: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *DocxRenderer) documentXML(doc Document) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><w:body>`)

	if len(doc.Logo) > 0 {
		writeLogoParagraph(&b)
	}
	if doc.Title != "" {
		writeParagraph(&b, strings.ToUpper(doc.Title), paragraphStyle{bold: true, size: 32, center: true})
	}
	if doc.Subtitle != "" {
		writeParagraph(&b, doc.Subtitle, paragraphStyle{size: 24, center: true})
	}
	writeParagraph(&b, "", paragraphStyle{})

	for _, section := range doc.Sections {
		if section.Heading != "" {
			writeParagraph(&b, section.Heading, paragraphStyle{bold: true, size: 26})
		}
		for _, block := range section.Blocks {
			switch blk := block.(type) {
			case Paragraph:
				writeParagraph(&b, blk.Text, paragraphStyle{})
			case Table:
				writeTable(&b, blk)
			case NumberedList:
				for i, item := range blk.Items {
					writeParagraph(&b, fmt.Sprintf("%s%d: %s", blk.Prefix, i+1, item), paragraphStyle{})
				}
			}
		}
		writeParagraph(&b, "", paragraphStyle{})
	}

	b.WriteString(`</w:body></w:document>`)
	return []byte(b.String())
}

type paragraphStyle struct {
	bold   bool
	size   int // half-points; 0 keeps the default
	center bool
}

func writeParagraph(b *strings.Builder, text string, style paragraphStyle) {
	b.WriteString(`<w:p>`)
	if style.center {
		b.WriteString(`<w:pPr><w:jc w:val="center"/></w:pPr>`)
	}
	if text != "" {
		b.WriteString(`<w:r>`)
		if style.bold || style.size > 0 {
			b.WriteString(`<w:rPr>`)
			if style.bold {
				b.WriteString(`<w:b/>`)
			}
			if style.size > 0 {
				fmt.Fprintf(b, `<w:sz w:val="%d"/>`, style.size)
			}
			b.WriteString(`</w:rPr>`)
		}
		b.WriteString(`<w:t xml:space="preserve">`)
		b.WriteString(escapeXML(text))
		b.WriteString(`</w:t></w:r>`)
	}
	b.WriteString(`</w:p>`)
}

func writeTable(b *strings.Builder, table Table) {
	if len(table.Headers) == 0 {
		return
	}
	b.WriteString(`<w:tbl><w:tblPr><w:tblW w:w="5000" w:type="pct"/><w:tblBorders>`)
	for _, edge := range []string{"top", "left", "bottom", "right", "insideH", "insideV"} {
		fmt.Fprintf(b, `<w:%s w:val="single" w:sz="4" w:space="0" w:color="auto"/>`, edge)
	}
	b.WriteString(`</w:tblBorders></w:tblPr>`)

	writeTableRow(b, table.Headers, true)
	for _, row := range table.Rows {
		cells := make([]string, len(table.Headers))
		copy(cells, row)
		writeTableRow(b, cells, false)
	}
	b.WriteString(`</w:tbl>`)
}

func writeTableRow(b *strings.Builder, cells []string, header bool) {
	b.WriteString(`<w:tr>`)
	for _, cell := range cells {
		b.WriteString(`<w:tc><w:tcPr><w:tcW w:w="0" w:type="auto"/></w:tcPr>`)
		writeParagraph(b, cell, paragraphStyle{bold: header})
		b.WriteString(`</w:tc>`)
	}
	b.WriteString(`</w:tr>`)
}

// writeLogoParagraph embeds the letterhead logo as an inline drawing.
// Extent values are EMUs; 648000 is 18mm square.
func writeLogoParagraph(b *strings.Builder) {
	b.WriteString(`<w:p><w:pPr><w:jc w:val="center"/></w:pPr><w:r><w:drawing>` +
		`<wp:inline distT="0" distB="0" distL="0" distR="0">` +
		`<wp:extent cx="648000" cy="648000"/>` +
		`<wp:docPr id="1" name="Logo"/>` +
		`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">` +
		`<pic:pic><pic:nvPicPr><pic:cNvPr id="1" name="Logo"/><pic:cNvPicPr/></pic:nvPicPr>` +
		`<pic:blipFill><a:blip r:embed="rIdLogo"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>` +
		`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="648000" cy="648000"/></a:xfrm>` +
		`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>` +
		`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>`)
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
