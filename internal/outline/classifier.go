// Package outline scores layout blocks for heading-likeness and builds a
// document outline with H1-H3 levels.
package outline

import (
	"regexp"
	"sort"
	"strings"

	"github.com/dgallion1/docsect/internal/doctree"
	"github.com/dgallion1/docsect/internal/layout"
	"golang.org/x/text/unicode/norm"
)

// Config holds the empirically tuned weights and thresholds.
type Config struct {
	BodyMinWords int // blocks with more words set the body font baseline

	LargerFontRatio  float64
	LargerFontWeight float64
	BoldWeight       float64
	AllCapsMaxWords  int
	AllCapsWeight    float64
	ColonWeight      float64
	ShortMaxWords    int
	ShortWeight      float64
	NumberedH1Weight float64
	NumberedH2Weight float64
	NumberedH3Weight float64

	MinScore float64 // a block must score strictly above this

	LookaheadBlocks   int // blocks on the same page checked for body content
	LookaheadMinWords int
	H1Ratio           float64
	H2Ratio           float64
	H3Ratio           float64
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		BodyMinWords:      5,
		LargerFontRatio:   1.1,
		LargerFontWeight:  0.3,
		BoldWeight:        0.2,
		AllCapsMaxWords:   6,
		AllCapsWeight:     0.1,
		ColonWeight:       0.1,
		ShortMaxWords:     10,
		ShortWeight:       0.15,
		NumberedH1Weight:  0.4,
		NumberedH2Weight:  0.3,
		NumberedH3Weight:  0.2,
		MinScore:          0.55,
		LookaheadBlocks:   20,
		LookaheadMinWords: 5,
		H1Ratio:           1.25,
		H2Ratio:           1.15,
		H3Ratio:           1.05,
	}
}

var (
	numberedH3 = regexp.MustCompile(`^\d+\.\d+\.\d+\s`)
	numberedH2 = regexp.MustCompile(`^\d+\.\d+\s`)
	numberedH1 = regexp.MustCompile(`^\d+\.\s`)
)

// numberingLevel returns the level implied by a leading section number.
func numberingLevel(text string) doctree.Level {
	switch {
	case numberedH3.MatchString(text):
		return doctree.H3
	case numberedH2.MatchString(text):
		return doctree.H2
	case numberedH1.MatchString(text):
		return doctree.H1
	}
	return doctree.LevelNone
}

// Classifier turns text blocks into an outline.
type Classifier struct {
	cfg Config
}

func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify scores every block, keeps heading candidates, assigns levels,
// repairs depth jumps and drops duplicates and the document title.
func (c *Classifier) Classify(blocks []layout.TextBlock) doctree.Outline {
	out := doctree.Outline{Title: InferTitle(blocks)}
	if len(blocks) == 0 {
		return out
	}

	baseline := BaselineFontSize(blocks, c.cfg.BodyMinWords)
	var raw []doctree.OutlineEntry
	for i, b := range blocks {
		ratio := fontRatio(b.FontSize, baseline)
		if c.Score(b, ratio) <= c.cfg.MinScore {
			continue
		}
		if !c.hasBodyAfter(blocks, i) {
			continue
		}
		level := c.level(b.Text, ratio)
		if level == doctree.LevelNone {
			continue
		}
		raw = append(raw, doctree.OutlineEntry{Level: level, Text: b.Text, Page: b.Page})
	}

	raw = RepairHierarchy(raw)

	titleKey := NormalizeText(out.Title)
	seen := make(map[string]bool, len(raw))
	for _, e := range raw {
		key := NormalizeText(e.Text)
		if key == "" || seen[key] || (titleKey != "" && key == titleKey) {
			continue
		}
		seen[key] = true
		out.Entries = append(out.Entries, e)
	}
	// Dropping entries can reopen a depth jump.
	out.Entries = RepairHierarchy(out.Entries)
	return out
}

// Score sums the weighted heading signals for a block, capped at 1.0.
func (c *Classifier) Score(b layout.TextBlock, ratio float64) float64 {
	var s float64
	if ratio > c.cfg.LargerFontRatio {
		s += c.cfg.LargerFontWeight
	}
	if b.IsBold {
		s += c.cfg.BoldWeight
	}
	if b.IsAllCaps && b.WordCount <= c.cfg.AllCapsMaxWords {
		s += c.cfg.AllCapsWeight
	}
	if b.EndsWithColon {
		s += c.cfg.ColonWeight
	}
	if b.WordCount <= c.cfg.ShortMaxWords {
		s += c.cfg.ShortWeight
	}
	switch numberingLevel(b.Text) {
	case doctree.H1:
		s += c.cfg.NumberedH1Weight
	case doctree.H2:
		s += c.cfg.NumberedH2Weight
	case doctree.H3:
		s += c.cfg.NumberedH3Weight
	}
	if s > 1.0 {
		s = 1.0
	}
	return s
}

// hasBodyAfter reports whether one of the next blocks on the same page looks
// like content: enough words or a font no larger than the candidate's.
func (c *Classifier) hasBodyAfter(blocks []layout.TextBlock, i int) bool {
	cand := blocks[i]
	end := i + 1 + c.cfg.LookaheadBlocks
	if end > len(blocks) {
		end = len(blocks)
	}
	for _, next := range blocks[i+1 : end] {
		if next.Page != cand.Page {
			break
		}
		if next.WordCount >= c.cfg.LookaheadMinWords || next.FontSize <= cand.FontSize {
			return true
		}
	}
	return false
}

func (c *Classifier) level(text string, ratio float64) doctree.Level {
	if l := numberingLevel(text); l != doctree.LevelNone {
		return l
	}
	switch {
	case ratio > c.cfg.H1Ratio:
		return doctree.H1
	case ratio > c.cfg.H2Ratio:
		return doctree.H2
	case ratio > c.cfg.H3Ratio:
		return doctree.H3
	}
	return doctree.LevelNone
}

func fontRatio(size, baseline float64) float64 {
	if baseline <= 0 {
		return 1
	}
	return size / baseline
}

// BaselineFontSize is the median font size of body blocks (more than
// minWords words), falling back to the median of all blocks.
func BaselineFontSize(blocks []layout.TextBlock, minWords int) float64 {
	var sizes []float64
	for _, b := range blocks {
		if b.WordCount > minWords {
			sizes = append(sizes, b.FontSize)
		}
	}
	if len(sizes) == 0 {
		for _, b := range blocks {
			sizes = append(sizes, b.FontSize)
		}
	}
	return median(sizes)
}

func median(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	s := make([]float64, len(v))
	copy(s, v)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

// RepairHierarchy clamps entries so depth never grows by more than one level
// from the previous entry. The first entry keeps its level.
func RepairHierarchy(entries []doctree.OutlineEntry) []doctree.OutlineEntry {
	for i := 1; i < len(entries); i++ {
		if entries[i].Level > entries[i-1].Level+1 {
			entries[i].Level = entries[i-1].Level + 1
		}
	}
	return entries
}

// InferTitle returns the text of the largest-font block on page 1, the
// topmost one on ties.
func InferTitle(blocks []layout.TextBlock) string {
	var best *layout.TextBlock
	for i := range blocks {
		b := &blocks[i]
		if b.Page != 1 {
			continue
		}
		if best == nil || b.FontSize > best.FontSize ||
			(b.FontSize == best.FontSize && b.VerticalPosition < best.VerticalPosition) {
			best = b
		}
	}
	if best == nil {
		return ""
	}
	return best.Text
}

// NormalizeText folds text for duplicate detection.
func NormalizeText(s string) string {
	s = norm.NFKC.String(s)
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
