package outline

import (
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
	"github.com/dgallion1/docoutline/internal/normalize"
)

// GroupLines merges consecutive spans sharing a (page, line) pair into lines.
// A line takes the size of its last span and is bold if any span is bold.
// Lines whose normalized text is empty are dropped.
func GroupLines(spans []doctree.Span, lang string) []doctree.Line {
	var lines []doctree.Line
	var parts []string
	var cur doctree.Line
	open := false
	curLine := 0

	flush := func() {
		if !open {
			return
		}
		cur.Text = normalize.Normalize(strings.Join(parts, " "), lang)
		if cur.Text != "" {
			lines = append(lines, cur)
		}
		parts = parts[:0]
		open = false
	}

	for _, sp := range spans {
		if !open || sp.Page != cur.Page || sp.Line != curLine {
			flush()
			cur = doctree.Line{Page: sp.Page}
			curLine = sp.Line
			open = true
		}
		if t := normalize.Normalize(sp.Text, lang); t != "" {
			parts = append(parts, t)
		}
		cur.Size = sp.Size
		cur.Bold = cur.Bold || sp.Bold
	}
	flush()

	return lines
}

// GroupBlocks merges consecutive lines on the same page with the same
// FontKey into blocks. A page change always closes the current block.
func GroupBlocks(lines []doctree.Line) []doctree.Block {
	var blocks []doctree.Block
	var texts []string
	var cur doctree.Block

	flush := func() {
		if len(texts) == 0 {
			return
		}
		cur.Text = strings.Join(texts, " ")
		blocks = append(blocks, cur)
		texts = texts[:0]
	}

	for _, ln := range lines {
		key := ln.Key()
		if len(texts) > 0 && cur.Key == key && cur.Page == ln.Page {
			texts = append(texts, ln.Text)
			cur.Lines++
			continue
		}
		flush()
		cur = doctree.Block{Key: key, Page: ln.Page, Lines: 1}
		texts = append(texts, ln.Text)
	}
	flush()

	return blocks
}
