package export

// Document is a format-independent description of one rendered export.
// The syllabus layout is assembled once into this structure and each
// renderer (PDF, DOCX) walks it, so template changes happen in one place.
type Document struct {
	// Title and Subtitle form the institutional letterhead.
	Title    string
	Subtitle string
	// Logo holds optional PNG bytes for the letterhead. Nil means render
	// without branding artwork.
	Logo     []byte
	Sections []Section
}

// Section is a headed group of content blocks, rendered in order.
type Section struct {
	Heading string
	Blocks  []Block
}

// Block is one typed content unit inside a section.
type Block interface {
	isBlock()
}

// Paragraph is free-flowing long-form text.
type Paragraph struct {
	Text string
}

// Table is a bordered grid with a header row.
type Table struct {
	Headers []string
	Rows    [][]string
	// WideCol widens one column (long description text); -1 disables.
	WideCol int
}

// NumberedList renders items as "PREFIX1: item" lines, e.g. course
// outcomes as CO1..COn.
type NumberedList struct {
	Prefix string
	Items  []string
}

func (Paragraph) isBlock()    {}
func (Table) isBlock()        {}
func (NumberedList) isBlock() {}
