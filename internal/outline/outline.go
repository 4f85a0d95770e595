// Package outline infers a document's title and leveled headings from styled
// text spans. The pipeline is: group spans into lines and blocks, rank font
// styles into levels, classify blocks, pick a title, assemble the result.
package outline

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
	"github.com/dgallion1/docoutline/internal/langdetect"
)

var (
	// ErrUnreadable means the document reader could not produce spans.
	ErrUnreadable = errors.New("document unreadable")

	// ErrEmpty means the document had no extractable text. The accompanying
	// result is a valid empty outline.
	ErrEmpty = errors.New("document has no extractable text")
)

const (
	// topFonts is the number of histogram rows reported in FontAnalysis.
	topFonts = 10

	// maxDetectBytes bounds the text handed to the language detector.
	maxDetectBytes = 64 << 10
)

// Result is the per-document output record.
type Result struct {
	doctree.Outline `yaml:",inline"`

	Language     string        `json:"language,omitempty" yaml:"language,omitempty"`
	FontAnalysis *FontAnalysis `json:"font_analysis,omitempty" yaml:"font_analysis,omitempty"`
	Statistics   *Statistics   `json:"statistics,omitempty" yaml:"statistics,omitempty"`
}

// FontAnalysis reports the style histogram and the level assignment.
type FontAnalysis struct {
	DetectedFonts []FontCount                       `json:"detected_fonts" yaml:"detected_fonts"`
	FontMapping   map[doctree.Level]doctree.FontKey `json:"font_mapping" yaml:"font_mapping"`
}

// Statistics are observational counters; they never influence classification.
type Statistics struct {
	TotalPages      int                   `json:"total_pages" yaml:"total_pages"`
	TotalHeadings   int                   `json:"total_headings" yaml:"total_headings"`
	HeadingsByLevel map[doctree.Level]int `json:"headings_by_level" yaml:"headings_by_level"`
}

// Assemble packages the title and headings, plus diagnostics when withStats is set.
func Assemble(title string, headings []doctree.Heading, lang string, h Histogram, lm LevelMap, pages int, withStats bool) *Result {
	if headings == nil {
		headings = []doctree.Heading{}
	}
	res := &Result{
		Outline:  doctree.Outline{Title: title, Headings: headings},
		Language: lang,
	}
	if !withStats {
		return res
	}

	byLevel := make(map[doctree.Level]int, len(doctree.HeadingLevels))
	for _, lvl := range doctree.HeadingLevels {
		byLevel[lvl] = 0
	}
	for _, hd := range headings {
		byLevel[hd.Level]++
	}

	fonts := h.ByFrequency(topFonts)
	if fonts == nil {
		fonts = []FontCount{}
	}
	res.FontAnalysis = &FontAnalysis{
		DetectedFonts: fonts,
		FontMapping:   lm.Mapping(),
	}
	res.Statistics = &Statistics{
		TotalPages:      pages,
		TotalHeadings:   len(headings),
		HeadingsByLevel: byLevel,
	}
	return res
}

// Engine runs the inference pipeline. An Engine holds only immutable
// configuration; every Infer call builds its own histogram, level map and
// dedup state, so one Engine may serve many goroutines.
type Engine struct {
	rules     *Rules
	detector  langdetect.Detector
	log       *slog.Logger
	withStats bool
}

// NewEngine creates an engine. A nil detector disables language detection.
func NewEngine(rules *Rules, detector langdetect.Detector, log *slog.Logger, withStats bool) *Engine {
	if rules == nil {
		rules = NewRules(DefaultRulesConfig())
	}
	if detector == nil {
		detector = langdetect.Fixed(langdetect.Unknown)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		rules:     rules,
		detector:  detector,
		log:       log,
		withStats: withStats,
	}
}

// Rules returns the engine's compiled rules.
func (e *Engine) Rules() *Rules {
	return e.rules
}

// Infer builds the outline for one document. A document without text yields
// an empty result together with ErrEmpty.
func (e *Engine) Infer(doc *doctree.Document) (*Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("infer outline: %w", ErrUnreadable)
	}

	lang := e.detector.Detect(rawText(doc.Spans))
	e.log.Debug("detected language", "language", lang)

	lines := GroupLines(doc.Spans, lang)
	blocks := GroupBlocks(lines)
	hist := BuildHistogram(blocks)
	lm := BuildLevelMap(hist)

	if len(blocks) == 0 {
		return Assemble("", nil, lang, hist, lm, doc.PageCount, e.withStats), ErrEmpty
	}
	if len(hist) < 2 {
		e.log.Info("low-signal document: fewer than two distinct styles", "styles", len(hist), "blocks", len(blocks))
	}

	c := Classify(blocks, lm, lang, e.rules)
	title := SelectTitle(c, blocks, e.rules)
	if len(c.Rejected) > 0 {
		e.log.Debug("classification rejections", "rejected", c.Rejected)
	}

	return Assemble(title, c.Headings, lang, hist, lm, doc.PageCount, e.withStats), nil
}

func rawText(spans []doctree.Span) string {
	var sb strings.Builder
	for _, sp := range spans {
		if sp.Text == "" {
			continue
		}
		if sb.Len() >= maxDetectBytes {
			break
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(sp.Text)
	}
	return sb.String()
}
