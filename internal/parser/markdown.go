package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark. ATX and setext
// headings get heading sizes; strong emphasis is bold.
type MarkdownParser struct {
	LinesPerPage int
}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	reader := text.NewReader(src)
	doc := md.Parser().Parse(reader)

	b := newFlowBuilder(p.LinesPerPage)
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			b.addText(string(node.Text(src)), headingSize(node.Level), true)
		case *ast.ThematicBreak:
			continue
		default:
			b.addLine(inlineRuns(n, src, false)...)
		}
	}

	return b.document(), nil
}

// inlineRuns collects the text of a goldmark node as styled runs. Block
// lines without inline children (code blocks) become body runs.
func inlineRuns(n ast.Node, src []byte, bold bool) []run {
	var runs []run

	if n.Type() == ast.TypeBlock && n.FirstChild() == nil {
		var buf bytes.Buffer
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		return []run{{text: strings.TrimRight(buf.String(), "\n"), size: sizeBody, bold: bold}}
	}

	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			t := string(node.Value(src))
			if node.HardLineBreak() || node.SoftLineBreak() {
				t += "\n"
			}
			runs = append(runs, run{text: t, size: sizeBody, bold: bold})
		case *ast.Emphasis:
			runs = append(runs, inlineRuns(node, src, bold || node.Level >= 2)...)
		default:
			runs = append(runs, inlineRuns(c, src, bold)...)
			if c.Type() == ast.TypeBlock {
				runs = append(runs, run{text: "\n", size: sizeBody, bold: bold})
			}
		}
	}
	return runs
}
