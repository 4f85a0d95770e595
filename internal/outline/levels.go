package outline

import (
	"sort"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// FontCount is one row of the font histogram.
type FontCount struct {
	Key   doctree.FontKey `json:"font" yaml:"font"`
	Count int             `json:"count" yaml:"count"`
}

// Histogram tallies blocks per FontKey.
type Histogram map[doctree.FontKey]int

// BuildHistogram counts one occurrence per block.
func BuildHistogram(blocks []doctree.Block) Histogram {
	h := make(Histogram)
	for _, b := range blocks {
		h[b.Key]++
	}
	return h
}

// Ranked orders keys by descending size, then descending frequency, then
// bold before regular. The order is total, so ranking is deterministic.
func (h Histogram) Ranked() []FontCount {
	out := make([]FontCount, 0, len(h))
	for k, n := range h {
		out = append(out, FontCount{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Key.Size != b.Key.Size {
			return a.Key.Size > b.Key.Size
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Key.Bold && !b.Key.Bold
	})
	return out
}

// ByFrequency orders keys by descending count, then descending size, and
// returns at most n rows (all rows when n <= 0).
func (h Histogram) ByFrequency(n int) []FontCount {
	out := h.Ranked()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// LevelMap is a one-to-one mapping between FontKeys and levels.
type LevelMap struct {
	byKey   map[doctree.FontKey]doctree.Level
	byLevel map[doctree.Level]doctree.FontKey
}

// BuildLevelMap assigns title, H1..H4 to the top five ranked styles.
// Fewer distinct styles yield fewer levels.
func BuildLevelMap(h Histogram) LevelMap {
	lm := LevelMap{
		byKey:   make(map[doctree.FontKey]doctree.Level),
		byLevel: make(map[doctree.Level]doctree.FontKey),
	}
	for i, fc := range h.Ranked() {
		if i >= len(doctree.RankedLevels) {
			break
		}
		lvl := doctree.RankedLevels[i]
		lm.byKey[fc.Key] = lvl
		lm.byLevel[lvl] = fc.Key
	}
	return lm
}

// Level returns the level assigned to key.
func (m LevelMap) Level(key doctree.FontKey) (doctree.Level, bool) {
	lvl, ok := m.byKey[key]
	return lvl, ok
}

// Key returns the FontKey assigned to lvl.
func (m LevelMap) Key(lvl doctree.Level) (doctree.FontKey, bool) {
	k, ok := m.byLevel[lvl]
	return k, ok
}

// Len is the number of assigned levels.
func (m LevelMap) Len() int {
	return len(m.byLevel)
}

// HasHeadings reports whether at least one heading level is assigned.
func (m LevelMap) HasHeadings() bool {
	_, ok := m.byLevel[doctree.LevelH1]
	return ok
}

// Mapping returns a copy of the level to FontKey assignments.
func (m LevelMap) Mapping() map[doctree.Level]doctree.FontKey {
	out := make(map[doctree.Level]doctree.FontKey, len(m.byLevel))
	for k, v := range m.byLevel {
		out[k] = v
	}
	return out
}
