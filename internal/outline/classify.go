package outline

import (
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
	"github.com/dgallion1/docoutline/internal/normalize"
)

// Classification is the classifier's verdict for one document.
type Classification struct {
	Title     string
	TitlePage int
	Headings  []doctree.Heading
	Rejected  map[string]int // Rejection reason -> count, diagnostic only
}

// Rejection reasons.
const (
	rejectTitleTaken   = "title_taken"
	rejectTitlePage    = "title_page"
	rejectTooLong      = "too_long"
	rejectExcluded     = "excluded"
	rejectDecorative   = "decorative"
	rejectSentence     = "sentence"
	rejectContact      = "contact"
	rejectLabel        = "label"
	rejectNoSignal     = "no_signal"
	rejectDuplicate    = "duplicate"
	rejectPageCapacity = "page_capacity"
)

// Classify walks blocks in reading order and decides for each one whether it
// is the title, a heading or body text. Dedup keys and per-page counters are
// local to the call.
func Classify(blocks []doctree.Block, lm LevelMap, lang string, rules *Rules) Classification {
	c := Classification{Rejected: make(map[string]int)}
	seen := make(map[string]bool)
	perPage := make(map[int]int)
	cfg := rules.cfg

	for _, b := range blocks {
		lvl, ok := lm.Level(b.Key)
		if !ok {
			continue
		}

		if lvl == doctree.LevelTitle {
			if reason := titleRejection(b, c.Title != "", rules); reason != "" {
				c.Rejected[reason]++
				continue
			}
			c.Title = b.Text
			c.TitlePage = b.Page
			continue
		}

		if reason := headingRejection(b.Text, lang, rules); reason != "" {
			c.Rejected[reason]++
			continue
		}

		key := normalize.Key(b.Text)
		if seen[key] {
			c.Rejected[rejectDuplicate]++
			continue
		}
		// The first occurrence claims the key even when its page is full.
		seen[key] = true
		if perPage[b.Page] >= cfg.MaxHeadingsPerPage {
			c.Rejected[rejectPageCapacity]++
			continue
		}

		perPage[b.Page]++
		c.Headings = append(c.Headings, doctree.Heading{
			Level: lvl,
			Text:  b.Text,
			Page:  b.Page,
		})
	}

	return c
}

func titleRejection(b doctree.Block, taken bool, rules *Rules) string {
	switch {
	case taken:
		return rejectTitleTaken
	case b.Page > rules.cfg.TitlePageWindow:
		return rejectTitlePage
	case !fitsTitle(b.Text, rules.cfg):
		return rejectTooLong
	case rules.Excluded(b.Text):
		return rejectExcluded
	case rules.Decorative(b.Text):
		return rejectDecorative
	}
	return ""
}

func headingRejection(text, lang string, rules *Rules) string {
	cfg := rules.cfg
	chars := charCount(text)

	switch {
	case wordCount(text) > cfg.HeadingMaxWords || chars > cfg.HeadingMaxChars:
		return rejectTooLong
	case strings.HasSuffix(text, "."):
		return rejectSentence
	case strings.Contains(text, "@"):
		return rejectContact
	case strings.Count(text, ":") > 2:
		return rejectLabel
	case rules.Excluded(text):
		return rejectExcluded
	}

	// Borderline lengths need a structural signal.
	if chars >= cfg.HeadingSoftChars && !rules.LikelyHeading(text, lang) {
		return rejectNoSignal
	}
	return ""
}

func fitsTitle(text string, cfg RulesConfig) bool {
	return wordCount(text) < cfg.TitleMaxWords && charCount(text) < cfg.TitleMaxChars
}
