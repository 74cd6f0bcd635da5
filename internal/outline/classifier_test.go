package outline

import (
	"strings"
	"testing"

	"github.com/dgallion1/docsect/internal/doctree"
	"github.com/dgallion1/docsect/internal/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockOpt func(*layout.TextBlock)

func bold(b *layout.TextBlock) { b.IsBold = true }

func block(page int, y, size float64, text string, opts ...blockOpt) layout.TextBlock {
	b := layout.TextBlock{
		Text:             text,
		Page:             page,
		FontSize:         size,
		VerticalPosition: y,
	}
	b.WordCount = len(strings.Fields(text))
	b.EndsWithColon = strings.HasSuffix(text, ":")
	for _, o := range opts {
		o(&b)
	}
	return b
}

const body = "This paragraph is ordinary body text with many words."

func TestClassify_NumberedHeadingsScenario(t *testing.T) {
	blocks := []layout.TextBlock{
		block(1, 60, 20, "Research Notes on Data", bold),
		block(1, 120, 14, "1. Introduction", bold),
		block(1, 150, 10, body),
		block(1, 170, 10, body),
		block(2, 80, 12, "1.1 Background", bold),
		block(2, 110, 10, body),
	}
	c := NewClassifier(DefaultConfig())
	out := c.Classify(blocks)

	assert.Equal(t, "Research Notes on Data", out.Title)
	require.Len(t, out.Entries, 2)
	assert.Equal(t, doctree.OutlineEntry{Level: doctree.H1, Text: "1. Introduction", Page: 1}, out.Entries[0])
	assert.Equal(t, doctree.OutlineEntry{Level: doctree.H2, Text: "1.1 Background", Page: 2}, out.Entries[1])
}

func TestClassify_FontRatioLevels(t *testing.T) {
	blocks := []layout.TextBlock{
		block(1, 40, 24, "Handbook Title", bold),
		block(1, 100, 13, "Large Section", bold), // ratio 1.3
		block(1, 120, 10, body),
		block(1, 140, 11.8, "Medium Section", bold), // ratio 1.18
		block(1, 160, 10, body),
		block(1, 180, 11.2, "Small Section", bold), // ratio 1.12
		block(1, 200, 10, body),
	}
	out := NewClassifier(DefaultConfig()).Classify(blocks)
	require.Len(t, out.Entries, 3)
	assert.Equal(t, doctree.H1, out.Entries[0].Level)
	assert.Equal(t, doctree.H2, out.Entries[1].Level)
	assert.Equal(t, doctree.H3, out.Entries[2].Level)
}

func TestClassify_RejectsBodyRatioWithoutNumbering(t *testing.T) {
	// Bold short lines at body size score 0.35 and never pass.
	blocks := []layout.TextBlock{
		block(1, 100, 10, "Bold Lead In", bold),
		block(1, 120, 10, body),
	}
	out := NewClassifier(DefaultConfig()).Classify(blocks)
	assert.Empty(t, out.Entries)
}

func TestClassify_RequiresBodyOnSamePage(t *testing.T) {
	blocks := []layout.TextBlock{
		block(1, 40, 24, "Cover Title", bold),
		block(1, 700, 16, "Dangling Heading", bold),
		block(2, 100, 10, body),
	}
	out := NewClassifier(DefaultConfig()).Classify(blocks)
	assert.Empty(t, out.Entries)
}

func TestClassify_LookaheadAcceptsSmallerFont(t *testing.T) {
	blocks := []layout.TextBlock{
		block(1, 40, 24, "Cover Title", bold),
		block(1, 100, 16, "Overview", bold),
		block(1, 120, 14, "Short line"),
		block(2, 100, 10, body),
		block(2, 120, 10, body),
	}
	out := NewClassifier(DefaultConfig()).Classify(blocks)
	require.Len(t, out.Entries, 1)
	assert.Equal(t, "Overview", out.Entries[0].Text)
}

func TestClassify_DropsDuplicatesAndTitle(t *testing.T) {
	blocks := []layout.TextBlock{
		block(1, 40, 24, "Annual Review", bold),
		block(1, 80, 10, body),
		block(2, 60, 16, "Results", bold),
		block(2, 80, 10, body),
		block(3, 60, 16, "RESULTS", bold),
		block(3, 80, 10, body),
		block(4, 60, 16, "Annual  Review", bold),
		block(4, 80, 10, body),
	}
	out := NewClassifier(DefaultConfig()).Classify(blocks)
	require.Len(t, out.Entries, 1)
	assert.Equal(t, "Results", out.Entries[0].Text)
	assert.Equal(t, 2, out.Entries[0].Page)
}

func TestClassify_EmptyInput(t *testing.T) {
	out := NewClassifier(DefaultConfig()).Classify(nil)
	assert.Empty(t, out.Title)
	assert.Empty(t, out.Entries)
}

func TestClassify_DepthNeverJumps(t *testing.T) {
	blocks := []layout.TextBlock{
		block(1, 40, 24, "Manual", bold),
		block(1, 80, 10, body),
		block(1, 100, 14, "1. Scope", bold),
		block(1, 120, 10, body),
		block(1, 140, 12, "1.1.1 Deep Detail", bold),
		block(1, 160, 10, body),
		block(1, 180, 12, "2.1.3 Another Detail", bold),
		block(1, 200, 10, body),
	}
	out := NewClassifier(DefaultConfig()).Classify(blocks)
	require.Len(t, out.Entries, 3)
	assert.Equal(t, doctree.H1, out.Entries[0].Level)
	assert.Equal(t, doctree.H2, out.Entries[1].Level)
	assert.Equal(t, doctree.H3, out.Entries[2].Level)
	for i := 1; i < len(out.Entries); i++ {
		assert.LessOrEqual(t, out.Entries[i].Level, out.Entries[i-1].Level+1)
	}
}

func TestScore(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	tests := []struct {
		name  string
		block layout.TextBlock
		ratio float64
		want  float64
	}{
		{"body line", block(1, 0, 10, body), 1.0, 0.15},
		{"large bold short", block(1, 0, 14, "Overview", bold), 1.4, 0.65},
		{"all caps colon", layout.TextBlock{Text: "NOTE:", WordCount: 1, IsAllCaps: true, EndsWithColon: true}, 1.0, 0.35},
		{"numbered h1", block(1, 0, 10, "2. Methods"), 1.0, 0.55},
		{"numbered h2", block(1, 0, 10, "2.3 Methods"), 1.0, 0.45},
		{"numbered h3", block(1, 0, 10, "2.3.1 Methods"), 1.0, 0.35},
		{"capped", layout.TextBlock{Text: "1. INTRO:", WordCount: 2, IsBold: true, IsAllCaps: true, EndsWithColon: true}, 2.0, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, c.Score(tt.block, tt.ratio), 1e-9)
		})
	}
}

func TestBaselineFontSize(t *testing.T) {
	blocks := []layout.TextBlock{
		block(1, 0, 10, body),
		block(1, 0, 11, body),
		block(1, 0, 12, body),
		block(1, 0, 30, "Huge"),
	}
	assert.Equal(t, 11.0, BaselineFontSize(blocks, 5))
	assert.Equal(t, 30.0, BaselineFontSize(blocks[3:], 5))
	assert.Equal(t, 0.0, BaselineFontSize(nil, 5))
}

func TestInferTitle_TopmostWinsTies(t *testing.T) {
	blocks := []layout.TextBlock{
		block(2, 10, 40, "Bigger On Page Two"),
		block(1, 300, 18, "Lower Title"),
		block(1, 50, 18, "Upper Title"),
		block(1, 80, 10, body),
	}
	assert.Equal(t, "Upper Title", InferTitle(blocks))
}

func TestRepairHierarchy(t *testing.T) {
	entries := []doctree.OutlineEntry{
		{Level: doctree.H2, Text: "a"},
		{Level: doctree.H1, Text: "b"},
		{Level: doctree.H3, Text: "c"},
		{Level: doctree.H3, Text: "d"},
	}
	got := RepairHierarchy(entries)
	assert.Equal(t, []doctree.Level{doctree.H2, doctree.H1, doctree.H2, doctree.H3},
		[]doctree.Level{got[0].Level, got[1].Level, got[2].Level, got[3].Level})
}

func TestRepairHierarchy_FirstEntryKeepsLevel(t *testing.T) {
	entries := []doctree.OutlineEntry{
		{Level: doctree.H3, Text: "a"},
		{Level: doctree.H3, Text: "b"},
		{Level: doctree.H1, Text: "c"},
		{Level: doctree.H3, Text: "d"},
	}
	got := RepairHierarchy(entries)
	assert.Equal(t, []doctree.Level{doctree.H3, doctree.H3, doctree.H1, doctree.H2},
		[]doctree.Level{got[0].Level, got[1].Level, got[2].Level, got[3].Level})
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "results and discussion", NormalizeText("  Results\tand   DISCUSSION "))
	// NFKC folds the "fi" ligature.
	assert.Equal(t, "financial", NormalizeText("ﬁnancial"))
}
