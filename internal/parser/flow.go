package parser

import (
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// Synthetic point sizes for formats that carry structure instead of fonts.
const (
	sizeTitle = 28
	sizeBody  = 11

	defaultLinesPerPage = 40
)

// headingSize maps a heading level (1-6) to a synthetic point size.
func headingSize(level int) float64 {
	switch level {
	case 1:
		return 24
	case 2:
		return 20
	case 3:
		return 16
	case 4:
		return 14
	case 5, 6:
		return 12
	}
	return sizeBody
}

// run is one styled piece of a flow line.
type run struct {
	text string
	size float64
	bold bool
}

// flowBuilder turns structural lines into spans, starting a new virtual
// page every linesPerPage lines.
type flowBuilder struct {
	linesPerPage int
	spans        []doctree.Span
	lines        int
}

func newFlowBuilder(linesPerPage int) *flowBuilder {
	if linesPerPage <= 0 {
		linesPerPage = defaultLinesPerPage
	}
	return &flowBuilder{linesPerPage: linesPerPage}
}

// addLine appends one line per non-empty text line in runs. Runs may contain
// newlines; each newline starts a new line with the same style.
func (b *flowBuilder) addLine(runs ...run) {
	var pending []run
	for _, r := range runs {
		parts := strings.Split(r.text, "\n")
		for i, p := range parts {
			if i > 0 {
				b.emit(pending)
				pending = nil
			}
			if strings.TrimSpace(p) != "" {
				pending = append(pending, run{text: p, size: r.size, bold: r.bold})
			}
		}
	}
	b.emit(pending)
}

// addText is addLine for a single style.
func (b *flowBuilder) addText(text string, size float64, bold bool) {
	b.addLine(run{text: text, size: size, bold: bold})
}

func (b *flowBuilder) emit(runs []run) {
	if len(runs) == 0 {
		return
	}
	page := b.lines/b.linesPerPage + 1
	b.lines++
	for _, r := range runs {
		b.spans = append(b.spans, doctree.Span{
			Text: r.text,
			Size: r.size,
			Bold: r.bold,
			Page: page,
			Line: b.lines,
		})
	}
}

func (b *flowBuilder) document() *doctree.Document {
	pages := 0
	if b.lines > 0 {
		pages = (b.lines-1)/b.linesPerPage + 1
	}
	return &doctree.Document{Spans: b.spans, PageCount: pages}
}
