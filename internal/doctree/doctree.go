package doctree

import (
	"math"
	"strconv"
	"strings"
)

// Document is the output of a document reader: styled spans in reading order.
type Document struct {
	Spans     []Span // Ordered by page, then line, then position within the line
	PageCount int    // Total pages (virtual pages for flow formats)
}

// Span is one styled run of text as produced by a document reader.
type Span struct {
	Text      string
	Size      float64
	Bold      bool
	Fonts     []string // Font family names contributing to the run
	BaselineY float64
	Page      int // 1-based
	Line      int // Reader-assigned rendering line id, unique within a page
}

// Line is the concatenation of spans sharing one rendering line.
type Line struct {
	Text string
	Size float64 // Size of the line's last span
	Bold bool    // True if any span is bold
	Page int
}

// Key returns the line's style identity.
func (l Line) Key() FontKey {
	return NewFontKey(l.Size, l.Bold)
}

// FontKey is the unit of style identity: size rounded to 0.1 plus boldness.
type FontKey struct {
	Size float64 `json:"size" yaml:"size"`
	Bold bool    `json:"bold" yaml:"bold"`
}

// NewFontKey rounds size to one decimal place.
func NewFontKey(size float64, bold bool) FontKey {
	return FontKey{Size: math.Round(size*10) / 10, Bold: bold}
}

func (k FontKey) String() string {
	s := trimFloat(k.Size)
	if k.Bold {
		return s + "-bold"
	}
	return s
}

// Block is a maximal run of consecutive same-style lines on one page.
type Block struct {
	Text  string
	Key   FontKey
	Page  int // Page of the first line
	Lines int
}

// Level is a symbolic heading level assigned by the level mapper.
type Level string

const (
	LevelTitle Level = "title"
	LevelH1    Level = "H1"
	LevelH2    Level = "H2"
	LevelH3    Level = "H3"
	LevelH4    Level = "H4"
)

// RankedLevels lists levels in the order they are handed out.
var RankedLevels = []Level{LevelTitle, LevelH1, LevelH2, LevelH3, LevelH4}

// HeadingLevels lists the levels that can appear in an outline.
var HeadingLevels = []Level{LevelH1, LevelH2, LevelH3, LevelH4}

// Heading is one accepted outline entry.
type Heading struct {
	Level Level  `json:"level" yaml:"level"`
	Text  string `json:"text" yaml:"text"`
	Page  int    `json:"page" yaml:"page"`
}

// Outline is the inferred title plus ordered headings.
type Outline struct {
	Title    string    `json:"title" yaml:"title"`
	Headings []Heading `json:"outline" yaml:"outline"`
}

// Bold flag bits from a PDF font descriptor.
const (
	FlagForceBold = 1 << 18
)

var boldMarkers = []string{"bold", "black", "heavy", "semibold", "demi"}

// IsBold reports whether a run is bold, either via the font descriptor flags
// or via a weight marker in the family name.
func IsBold(flags int, family string) bool {
	if flags&FlagForceBold != 0 {
		return true
	}
	f := strings.ToLower(family)
	for _, m := range boldMarkers {
		if strings.Contains(f, m) {
			return true
		}
	}
	return false
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
