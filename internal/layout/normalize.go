// Package layout turns parsed page spans into line-level text blocks with the
// features the heading classifier scores.
package layout

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/dgallion1/docsect/internal/doctree"
)

// Config controls span filtering and line grouping.
type Config struct {
	MinChars       int     // spans with fewer trimmed characters are dropped
	EdgeBand       float64 // fraction of page height treated as header/footer band
	MinEdgeRepeats int     // band text seen this often is a running header/footer
	LineTolerance  float64 // minimum vertical tolerance, in points, for joining spans
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		MinChars:       3,
		EdgeBand:       0.10,
		MinEdgeRepeats: 2,
		LineTolerance:  2.0,
	}
}

// TextBlock is one line of text with derived layout features.
type TextBlock struct {
	Text             string
	Page             int
	FontSize         float64
	IsBold           bool
	IsAllCaps        bool
	EndsWithColon    bool
	WordCount        int
	VerticalPosition float64 // top of the line, points from the top of the page
	Order            int     // reading order across the document
}

var pageNumber = regexp.MustCompile(`^(page\s*)?\d+(\s*(of|/)\s*\d+)?$`)

// edgeKey compares band text case- and whitespace-insensitively. Standalone
// page numbers ("7", "Page 3", "4 of 12") share one key.
func edgeKey(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	if pageNumber.MatchString(s) {
		return "#page"
	}
	return s
}

// Normalize filters spans and groups them into line blocks in reading order.
// A document without usable text yields nil.
func Normalize(doc *doctree.Document, cfg Config) []TextBlock {
	if doc == nil {
		return nil
	}
	def := DefaultConfig()
	if cfg.MinChars <= 0 {
		cfg.MinChars = def.MinChars
	}
	if cfg.EdgeBand <= 0 {
		cfg.EdgeBand = def.EdgeBand
	}
	if cfg.MinEdgeRepeats <= 0 {
		cfg.MinEdgeRepeats = def.MinEdgeRepeats
	}
	if cfg.LineTolerance <= 0 {
		cfg.LineTolerance = def.LineTolerance
	}

	repeats := edgeRepeats(doc, cfg.EdgeBand)

	var blocks []TextBlock
	for _, page := range doc.Pages {
		var kept []doctree.Span
		for _, s := range page.Spans {
			text := strings.TrimSpace(s.Text)
			if len([]rune(text)) < cfg.MinChars {
				continue
			}
			if repeats[edgeKey(text)] >= cfg.MinEdgeRepeats {
				continue
			}
			s.Text = text
			kept = append(kept, s)
		}
		for _, line := range groupLines(kept, cfg.LineTolerance) {
			b := lineBlock(line, page.Number)
			b.Order = len(blocks)
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// edgeRepeats counts how often each normalised text occurs inside the top or
// bottom band of its page across the whole document.
func edgeRepeats(doc *doctree.Document, band float64) map[string]int {
	counts := make(map[string]int)
	for _, page := range doc.Pages {
		if page.Height <= 0 {
			continue
		}
		top := page.Height * band
		bottom := page.Height * (1 - band)
		for _, s := range page.Spans {
			text := strings.TrimSpace(s.Text)
			if text == "" {
				continue
			}
			mid := (s.Y0 + s.Y1) / 2
			if mid <= top || mid >= bottom {
				counts[edgeKey(text)]++
			}
		}
	}
	return counts
}

// groupLines joins spans whose vertical extents overlap into lines, ordered
// top to bottom and left to right.
func groupLines(spans []doctree.Span, minTol float64) [][]doctree.Span {
	if len(spans) == 0 {
		return nil
	}
	sorted := make([]doctree.Span, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y0 != sorted[j].Y0 {
			return sorted[i].Y0 < sorted[j].Y0
		}
		return sorted[i].X0 < sorted[j].X0
	})

	var lines [][]doctree.Span
	var lineTop, lineSize float64
	for _, s := range sorted {
		if n := len(lines); n > 0 {
			tol := math.Max(minTol, math.Min(lineSize, s.FontSize)/2)
			if math.Abs(s.Y0-lineTop) <= tol || math.Abs(s.Y1-(lineTop+lineSize)) <= tol {
				lines[n-1] = append(lines[n-1], s)
				continue
			}
		}
		lines = append(lines, []doctree.Span{s})
		lineTop, lineSize = s.Y0, math.Max(s.Y1-s.Y0, s.FontSize)
	}
	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool { return line[i].X0 < line[j].X0 })
	}
	return lines
}

func lineBlock(line []doctree.Span, page int) TextBlock {
	parts := make([]string, 0, len(line))
	b := TextBlock{Page: page, IsBold: true, VerticalPosition: line[0].Y0}
	for _, s := range line {
		parts = append(parts, s.Text)
		b.FontSize = math.Max(b.FontSize, s.FontSize)
		b.VerticalPosition = math.Min(b.VerticalPosition, s.Y0)
		if !s.Bold && !IsBoldFont(s.FontName) {
			b.IsBold = false
		}
	}
	b.Text = strings.Join(parts, " ")
	b.WordCount = len(strings.Fields(b.Text))
	b.IsAllCaps = isAllCaps(b.Text)
	b.EndsWithColon = strings.HasSuffix(b.Text, ":")
	return b
}

var boldMarkers = []string{"bold", "black", "heavy", "semibold", "demi"}

// IsBoldFont reports whether a font name denotes a bold face.
func IsBoldFont(name string) bool {
	name = strings.ToLower(name)
	for _, m := range boldMarkers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

func isAllCaps(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return hasLetter
}
