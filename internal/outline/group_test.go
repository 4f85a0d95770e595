package outline

import (
	"testing"

	"github.com/dgallion1/docoutline/internal/doctree"
)

func TestGroupLines_JoinsSpansOfOneLine(t *testing.T) {
	spans := []doctree.Span{
		{Text: "Chapter", Size: 12, Page: 1, Line: 1},
		{Text: " One ", Size: 16, Bold: true, Page: 1, Line: 1},
		{Text: "Next  line", Size: 10, Page: 1, Line: 2},
	}
	lines := GroupLines(spans, "en")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Text != "Chapter One" {
		t.Errorf("expected %q, got %q", "Chapter One", lines[0].Text)
	}
	if lines[0].Size != 16 {
		t.Errorf("expected size of last span (16), got %v", lines[0].Size)
	}
	if !lines[0].Bold {
		t.Error("expected line to be bold when any span is bold")
	}
	if lines[1].Text != "Next line" {
		t.Errorf("expected collapsed whitespace, got %q", lines[1].Text)
	}
}

func TestGroupLines_DropsEmptyLines(t *testing.T) {
	spans := []doctree.Span{
		{Text: "  ", Size: 12, Page: 1, Line: 1},
		{Text: "", Size: 12, Page: 1, Line: 2},
		{Text: "kept", Size: 12, Page: 1, Line: 3},
	}
	lines := GroupLines(spans, "en")
	if len(lines) != 1 || lines[0].Text != "kept" {
		t.Fatalf("expected only the non-empty line, got %+v", lines)
	}
}

func TestGroupLines_SameLineIDOnNewPageStartsNewLine(t *testing.T) {
	spans := []doctree.Span{
		{Text: "end of page one", Size: 12, Page: 1, Line: 1},
		{Text: "start of page two", Size: 12, Page: 2, Line: 1},
	}
	lines := GroupLines(spans, "en")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[1].Page != 2 {
		t.Errorf("expected second line on page 2, got %d", lines[1].Page)
	}
}

func TestGroupLines_RTLKeepsInternalSpacing(t *testing.T) {
	spans := []doctree.Span{{Text: " שלום   עולם ", Size: 12, Page: 1, Line: 1}}
	lines := GroupLines(spans, "he")
	if len(lines) != 1 || lines[0].Text != "שלום   עולם" {
		t.Fatalf("expected RTL spacing preserved, got %+v", lines)
	}
}

func TestGroupBlocks(t *testing.T) {
	lines := []doctree.Line{
		{Text: "Chapter 1", Size: 18, Bold: true, Page: 1},
		{Text: "Introduction", Size: 18.02, Bold: true, Page: 1},
		{Text: "Body", Size: 10, Page: 1},
		{Text: "More body", Size: 10, Page: 1},
		{Text: "Continued", Size: 10, Page: 2},
		{Text: "Bold run", Size: 10, Bold: true, Page: 2},
	}
	blocks := GroupBlocks(lines)

	want := []struct {
		text  string
		page  int
		lines int
	}{
		{"Chapter 1 Introduction", 1, 2},
		{"Body More body", 1, 2},
		{"Continued", 2, 1},
		{"Bold run", 2, 1},
	}
	if len(blocks) != len(want) {
		t.Fatalf("expected %d blocks, got %d: %+v", len(want), len(blocks), blocks)
	}
	for i, w := range want {
		if blocks[i].Text != w.text || blocks[i].Page != w.page || blocks[i].Lines != w.lines {
			t.Errorf("block %d: expected %+v, got %+v", i, w, blocks[i])
		}
	}
}

func TestGroupBlocks_Empty(t *testing.T) {
	if blocks := GroupBlocks(nil); len(blocks) != 0 {
		t.Errorf("expected no blocks, got %d", len(blocks))
	}
}
