// Package langdetect wraps statistical language identification behind a
// contract that never fails: any problem degrades to Unknown.
package langdetect

import (
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"

	"github.com/dgallion1/docoutline/internal/normalize"
)

// Unknown is returned whenever a language cannot be determined.
const Unknown = "unknown"

const (
	defaultMinChars = 10
	defaultMaxChars = 4096
)

// Detector identifies the language of text. Implementations must be
// deterministic and must not panic past their own boundary.
type Detector interface {
	Detect(text string) string
}

// Whatlang detects languages with whatlanggo and reports ISO 639-1 codes.
type Whatlang struct {
	MinChars int // Cleaned texts shorter than this short-circuit to Unknown
	MaxChars int // Only this many leading runes are inspected
}

// NewWhatlang returns a detector with default thresholds.
func NewWhatlang() *Whatlang {
	return &Whatlang{MinChars: defaultMinChars, MaxChars: defaultMaxChars}
}

func (w *Whatlang) Detect(text string) (lang string) {
	defer func() {
		if r := recover(); r != nil {
			lang = Unknown
		}
	}()

	clean := normalize.ForDetection(text)
	minChars := w.MinChars
	if minChars <= 0 {
		minChars = defaultMinChars
	}
	if utf8.RuneCountInString(clean) < minChars {
		return Unknown
	}
	clean = truncateRunes(clean, w.MaxChars)

	info := whatlanggo.Detect(clean)
	code := info.Lang.Iso6391()
	if code == "" {
		return Unknown
	}
	return code
}

// Fixed always reports the same language. Useful when the caller already
// knows the document language or wants detection disabled.
type Fixed string

func (f Fixed) Detect(string) string {
	if f == "" {
		return Unknown
	}
	return string(f)
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		n = defaultMaxChars
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
