package outline

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/dgallion1/docoutline/internal/normalize"
)

// RulesConfig holds the tunable thresholds of the classifier.
type RulesConfig struct {
	// TitlePageWindow is the last page (1-based, inclusive) on which a title may appear.
	// Default: 2
	TitlePageWindow int

	// TitleMaxWords and TitleMaxChars bound title length (exclusive).
	// Default: 20 words, 150 characters
	TitleMaxWords int
	TitleMaxChars int

	// HeadingMaxWords and HeadingMaxChars reject longer blocks outright.
	// Default: 20 words, 200 characters
	HeadingMaxWords int
	HeadingMaxChars int

	// HeadingSoftChars is the length under which a heading is accepted
	// without a structural pattern match.
	// Default: 100
	HeadingSoftChars int

	// MaxHeadingsPerPage caps accepted headings per page.
	// Default: 5
	MaxHeadingsPerPage int

	// ExcludedKeywords reject any title or heading that contains one of them
	// (case-insensitive). Default: empty
	ExcludedKeywords []string
}

// DefaultRulesConfig returns the thresholds used when nothing is configured.
func DefaultRulesConfig() RulesConfig {
	return RulesConfig{
		TitlePageWindow:    2,
		TitleMaxWords:      20,
		TitleMaxChars:      150,
		HeadingMaxWords:    20,
		HeadingMaxChars:    200,
		HeadingSoftChars:   100,
		MaxHeadingsPerPage: 5,
	}
}

// Rules is the immutable, compiled form of RulesConfig. Build it once per
// engine with NewRules and share it freely between goroutines.
type Rules struct {
	cfg      RulesConfig
	excluded []string

	numbered    *regexp.Regexp
	chapter     *regexp.Regexp
	cjkChapter  *regexp.Regexp
	rtlNumbered *regexp.Regexp
	separator   *regexp.Regexp
}

// NewRules compiles cfg. Zero values fall back to the defaults.
func NewRules(cfg RulesConfig) *Rules {
	def := DefaultRulesConfig()
	if cfg.TitlePageWindow <= 0 {
		cfg.TitlePageWindow = def.TitlePageWindow
	}
	if cfg.TitleMaxWords <= 0 {
		cfg.TitleMaxWords = def.TitleMaxWords
	}
	if cfg.TitleMaxChars <= 0 {
		cfg.TitleMaxChars = def.TitleMaxChars
	}
	if cfg.HeadingMaxWords <= 0 {
		cfg.HeadingMaxWords = def.HeadingMaxWords
	}
	if cfg.HeadingMaxChars <= 0 {
		cfg.HeadingMaxChars = def.HeadingMaxChars
	}
	if cfg.HeadingSoftChars <= 0 {
		cfg.HeadingSoftChars = def.HeadingSoftChars
	}
	if cfg.MaxHeadingsPerPage <= 0 {
		cfg.MaxHeadingsPerPage = def.MaxHeadingsPerPage
	}

	r := &Rules{
		cfg:         cfg,
		numbered:    regexp.MustCompile(`^\d+[.)]\s`),
		chapter:     regexp.MustCompile(`(?i)^(chapter|section|part)\s+\d+`),
		cjkChapter:  regexp.MustCompile(`[第章节]\s*[一二三四五六七八九十百千零〇\d]+`),
		rtlNumbered: regexp.MustCompile(`^[\x{0590}-\x{05FF}\x{0600}-\x{06FF}\s]*[\d\x{0660}-\x{0669}\x{06F0}-\x{06F9}]+[\x{0590}-\x{05FF}\x{0600}-\x{06FF}\s.:)-]*$`),
		separator:   regexp.MustCompile(`[-–—_=*~.·•]{3,}`),
	}
	for _, kw := range cfg.ExcludedKeywords {
		if k := normalize.Key(kw); k != "" {
			r.excluded = append(r.excluded, k)
		}
	}
	return r
}

// Config returns a copy of the effective configuration.
func (r *Rules) Config() RulesConfig {
	cfg := r.cfg
	cfg.ExcludedKeywords = append([]string(nil), r.cfg.ExcludedKeywords...)
	return cfg
}

// Excluded reports whether text contains an excluded keyword.
func (r *Rules) Excluded(text string) bool {
	if len(r.excluded) == 0 {
		return false
	}
	key := normalize.Key(text)
	for _, kw := range r.excluded {
		if strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

// Decorative reports whether text contains a separator run such as "-----".
func (r *Rules) Decorative(text string) bool {
	return r.separator.MatchString(text)
}

// LikelyHeading reports whether text has a structural heading shape for the
// given language. An unknown language tries every script-specific pattern.
func (r *Rules) LikelyHeading(text, lang string) bool {
	if text == "" {
		return false
	}
	switch {
	case isCJK(lang):
		if r.cjkChapter.MatchString(text) {
			return true
		}
	case normalize.IsRTL(lang):
		if r.rtlNumbered.MatchString(text) {
			return true
		}
	case lang == "" || lang == "unknown":
		if r.cjkChapter.MatchString(text) || r.rtlNumbered.MatchString(text) {
			return true
		}
	}

	if r.numbered.MatchString(text) {
		return true
	}
	if isUpperShort(text) {
		return true
	}
	return r.chapter.MatchString(text)
}

func isCJK(lang string) bool {
	switch lang {
	case "zh", "ja", "ko":
		return true
	}
	return false
}

// isUpperShort reports text under 50 characters with at least one cased
// letter and no lowercase letters.
func isUpperShort(text string) bool {
	if len([]rune(text)) >= 50 {
		return false
	}
	cased := false
	for _, c := range text {
		if unicode.IsLower(c) {
			return false
		}
		if unicode.IsUpper(c) || unicode.IsTitle(c) {
			cased = true
		}
	}
	return cased
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}

func charCount(text string) int {
	return len([]rune(text))
}
