package parser

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
)

// wordGap is the horizontal gap, as a fraction of the font size, above
// which two glyph runs on a row are separated by a space.
const wordGap = 0.15

// PDFParser handles PDF files. It reads styled glyph runs with the Go
// library and falls back to unstyled pdftotext output if that fails.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "docoutline-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	doc, err := extractPDFSpans(tmpPath)
	if err != nil && p.FallbackPdftotext {
		doc, err = extractPdftotext(tmpPath)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf spans: %w", err)
	}
	return doc, nil
}

func extractPDFSpans(path string) (doc *doctree.Document, err error) {
	// The PDF library panics on some malformed inputs.
	defer func() {
		if rec := recover(); rec != nil {
			doc = nil
			err = fmt.Errorf("read pdf: %v", rec)
		}
	}()

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc = &doctree.Document{PageCount: reader.NumPage()}
	line := 0
	for i := 1; i <= doc.PageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		flags := fontFlags(page)
		for _, row := range rows {
			line++
			doc.Spans = append(doc.Spans, rowSpans(row.Content, flags, i, line)...)
		}
	}
	return doc, nil
}

// fontFlags maps each base font on the page to its descriptor flags.
func fontFlags(page pdflib.Page) map[string]int {
	flags := make(map[string]int)
	for _, name := range page.Fonts() {
		f := page.Font(name)
		flags[f.BaseFont()] = int(f.V.Key("FontDescriptor").Key("Flags").Int64())
	}
	return flags
}

// rowSpans merges consecutive glyphs of one row that share font and size.
func rowSpans(texts []pdflib.Text, flags map[string]int, page, line int) []doctree.Span {
	var spans []doctree.Span
	var cur *doctree.Span
	var end float64

	for _, t := range texts {
		if t.S == "" {
			continue
		}
		if cur != nil && cur.Fonts[0] == t.Font && cur.Size == t.FontSize {
			if t.X-end > t.FontSize*wordGap && !strings.HasSuffix(cur.Text, " ") && !strings.HasPrefix(t.S, " ") {
				cur.Text += " "
			}
			cur.Text += t.S
			end = t.X + t.W
			continue
		}
		spans = append(spans, doctree.Span{
			Text:      t.S,
			Size:      t.FontSize,
			Bold:      doctree.IsBold(flags[t.Font], t.Font),
			Fonts:     []string{t.Font},
			BaselineY: t.Y,
			Page:      page,
			Line:      line,
		})
		cur = &spans[len(spans)-1]
		end = t.X + t.W
	}
	return spans
}

// extractPdftotext produces one unstyled span per text line.
func extractPdftotext(path string) (*doctree.Document, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	return plainPages(string(out)), nil
}

// plainPages splits form-feed separated text into body-sized spans.
func plainPages(text string) *doctree.Document {
	pages := strings.Split(strings.TrimSuffix(text, "\f"), "\f")
	doc := &doctree.Document{PageCount: len(pages)}
	line := 0
	for i, page := range pages {
		for _, l := range strings.Split(page, "\n") {
			if strings.TrimSpace(l) == "" {
				continue
			}
			line++
			doc.Spans = append(doc.Spans, doctree.Span{
				Text: l,
				Size: sizeBody,
				Page: i + 1,
				Line: line,
			})
		}
	}
	return doc
}
