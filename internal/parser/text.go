package parser

import (
	"bufio"
	"io"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// TextParser handles plain text files. Every line is body text.
type TextParser struct {
	LinesPerPage int
}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	b := newFlowBuilder(p.LinesPerPage)
	for scanner.Scan() {
		b.addText(scanner.Text(), sizeBody, false)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return b.document(), nil
}
