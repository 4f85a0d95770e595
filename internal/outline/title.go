package outline

import (
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// SelectTitle resolves the document title. The classifier's title wins; then
// the largest-font block on page 1, if it fits the title caps; then the first
// block on page 1, shortened to the caps at a word boundary. Without text on
// page 1 the fallback yields the empty string.
func SelectTitle(c Classification, blocks []doctree.Block, rules *Rules) string {
	if c.Title != "" {
		return c.Title
	}
	if len(blocks) == 0 || blocks[0].Page != 1 {
		return ""
	}

	var best *doctree.Block
	for i := range blocks {
		b := &blocks[i]
		if b.Page != 1 {
			break
		}
		if best == nil || b.Key.Size > best.Key.Size {
			best = b
		}
	}
	if best != nil && fitsTitle(best.Text, rules.cfg) {
		return best.Text
	}

	return clip(blocks[0].Text, rules.cfg)
}

// clip shortens text so that it fits the title word and character caps.
func clip(text string, cfg RulesConfig) string {
	if fitsTitle(text, cfg) {
		return text
	}
	words := strings.Fields(text)
	if n := max(cfg.TitleMaxWords-1, 1); len(words) > n {
		words = words[:n]
	}
	for len(words) > 1 && charCount(strings.Join(words, " ")) >= cfg.TitleMaxChars {
		words = words[:len(words)-1]
	}
	out := strings.Join(words, " ")
	if r := []rune(out); len(r) >= cfg.TitleMaxChars {
		out = string(r[:cfg.TitleMaxChars-1])
	}
	return out
}
