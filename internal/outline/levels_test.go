package outline

import (
	"testing"

	"github.com/dgallion1/docoutline/internal/doctree"
)

func blocksOf(keys ...doctree.FontKey) []doctree.Block {
	out := make([]doctree.Block, len(keys))
	for i, k := range keys {
		out[i] = doctree.Block{Text: "x", Key: k, Page: 1}
	}
	return out
}

func TestBuildHistogram_CountsBlocksNotLines(t *testing.T) {
	k := doctree.NewFontKey(12, false)
	blocks := []doctree.Block{
		{Text: "a b c", Key: k, Lines: 3},
		{Text: "d", Key: k, Lines: 1},
	}
	h := BuildHistogram(blocks)
	if h[k] != 2 {
		t.Errorf("expected 2 block occurrences, got %d", h[k])
	}
}

func TestRanked_SizePrimaryFrequencyTieBreak(t *testing.T) {
	big := doctree.NewFontKey(20, false)
	midBold := doctree.NewFontKey(14, true)
	midRegular := doctree.NewFontKey(14, false)
	small := doctree.NewFontKey(10, false)

	// midRegular is more frequent than midBold, small is the most frequent.
	h := BuildHistogram(blocksOf(big, midBold, midRegular, midRegular, small, small, small))
	got := h.Ranked()
	want := []doctree.FontKey{big, midRegular, midBold, small}
	if len(got) != len(want) {
		t.Fatalf("expected %d ranked keys, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Key != want[i] {
			t.Errorf("rank %d: expected %s, got %s", i, want[i], got[i].Key)
		}
	}
}

func TestRanked_BoldBreaksFullTies(t *testing.T) {
	bold := doctree.NewFontKey(12, true)
	regular := doctree.NewFontKey(12, false)
	for i := 0; i < 20; i++ {
		got := BuildHistogram(blocksOf(regular, bold)).Ranked()
		if got[0].Key != bold {
			t.Fatalf("expected bold first on full tie, got %s", got[0].Key)
		}
	}
}

func TestBuildLevelMap_AssignsInRankOrder(t *testing.T) {
	var keys []doctree.FontKey
	for _, s := range []float64{30, 24, 20, 16, 14, 12, 10} {
		keys = append(keys, doctree.NewFontKey(s, false))
	}
	lm := BuildLevelMap(BuildHistogram(blocksOf(keys...)))

	if lm.Len() != 5 {
		t.Fatalf("expected 5 levels, got %d", lm.Len())
	}
	for i, lvl := range doctree.RankedLevels {
		k, ok := lm.Key(lvl)
		if !ok || k != keys[i] {
			t.Errorf("level %s: expected %s, got %s (ok=%v)", lvl, keys[i], k, ok)
		}
	}
	if _, ok := lm.Level(doctree.NewFontKey(12, false)); ok {
		t.Error("expected sixth style to be unmapped")
	}
}

func TestBuildLevelMap_Injective(t *testing.T) {
	doc := randomDoc(7)
	lm := BuildLevelMap(BuildHistogram(GroupBlocks(GroupLines(doc.Spans, "en"))))

	seen := map[doctree.FontKey]doctree.Level{}
	for lvl, k := range lm.Mapping() {
		if prev, dup := seen[k]; dup {
			t.Fatalf("font %s mapped to both %s and %s", k, prev, lvl)
		}
		seen[k] = lvl
		back, ok := lm.Level(k)
		if !ok || back != lvl {
			t.Fatalf("reverse lookup of %s: expected %s, got %s", k, lvl, back)
		}
	}
}

func TestBuildLevelMap_FewStyles(t *testing.T) {
	lm := BuildLevelMap(BuildHistogram(blocksOf(doctree.NewFontKey(11, false))))
	if lm.Len() != 1 {
		t.Fatalf("expected a single level, got %d", lm.Len())
	}
	if lm.HasHeadings() {
		t.Error("expected no heading levels for a single-style document")
	}

	empty := BuildLevelMap(BuildHistogram(nil))
	if empty.Len() != 0 {
		t.Errorf("expected empty level map, got %d levels", empty.Len())
	}
}

func TestByFrequency_TopN(t *testing.T) {
	var keys []doctree.FontKey
	for i := 0; i < 12; i++ {
		k := doctree.NewFontKey(float64(8+i), false)
		for j := 0; j <= i; j++ {
			keys = append(keys, k)
		}
	}
	rows := BuildHistogram(blocksOf(keys...)).ByFrequency(10)
	if len(rows) != 10 {
		t.Fatalf("expected 10 rows, got %d", len(rows))
	}
	if rows[0].Key.Size != 19 || rows[0].Count != 12 {
		t.Errorf("expected most frequent style first, got %+v", rows[0])
	}
}
