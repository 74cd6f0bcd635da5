// Package snippet picks the passage near a heading that best matches the
// query.
package snippet

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/dgallion1/docsect/internal/chunker"
	"github.com/dgallion1/docsect/internal/doctree"
	"github.com/dgallion1/docsect/internal/embedding"
	"github.com/dgallion1/docsect/internal/query"
)

// Config controls the page window and output shape.
type Config struct {
	Units       chunker.Config
	PagesBefore int // pages before the heading page included in the window
	PagesAfter  int
	MaxWords    int
	Highlight   bool // wrap the first occurrence of each keyword in **
}

func DefaultConfig() Config {
	return Config{
		Units:       chunker.DefaultConfig(),
		PagesBefore: 2,
		PagesAfter:  1,
		MaxWords:    250,
	}
}

// Extractor selects snippets. It is safe for concurrent use when its
// Embedder is.
type Extractor struct {
	embedder embedding.Embedder
	cfg      Config
	log      *slog.Logger
}

func NewExtractor(e embedding.Embedder, cfg Config, log *slog.Logger) *Extractor {
	if cfg.MaxWords <= 0 {
		cfg.MaxWords = DefaultConfig().MaxWords
	}
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{embedder: e, cfg: cfg, log: log}
}

// Extract returns the unit from the pages around page (1-based) most similar
// to the query vector. A window with no usable text yields "". Embedding
// errors are returned.
func (x *Extractor) Extract(ctx context.Context, doc *doctree.Document, page int, q query.Query) (string, error) {
	if doc == nil {
		return "", nil
	}
	units := x.units(doc, page)
	if len(units) == 0 {
		return "", nil
	}
	units = FilterByKeywords(units, q.Keywords)

	vecs, err := x.embedder.EmbedBatch(ctx, units)
	if err != nil {
		return "", fmt.Errorf("embed snippet units for %s page %d: %w", doc.Filename, page, err)
	}
	best, bestSim := -1, 0.0
	for i, v := range vecs {
		if sim := embedding.Cosine(v, q.Vector); best < 0 || sim > bestSim {
			best, bestSim = i, sim
		}
	}
	if best < 0 {
		return "", nil
	}

	text := chunker.TruncateWords(units[best], x.cfg.MaxWords)
	if x.cfg.Highlight {
		text = Highlight(text, q.Keywords)
	}
	x.log.Debug("snippet chosen", "document", doc.Filename, "page", page, "units", len(units), "similarity", bestSim)
	return text, nil
}

// units gathers the units of pages page-PagesBefore through page+PagesAfter,
// clipped to the document.
func (x *Extractor) units(doc *doctree.Document, page int) []string {
	var out []string
	for p := page - x.cfg.PagesBefore; p <= page+x.cfg.PagesAfter; p++ {
		pg := doc.Page(p)
		if pg == nil {
			continue
		}
		out = append(out, chunker.Split(pg.Text, x.cfg.Units)...)
	}
	return out
}

func keywordPattern(keywords []string) *regexp.Regexp {
	var quoted []string
	for _, k := range keywords {
		if k != "" {
			quoted = append(quoted, regexp.QuoteMeta(k))
		}
	}
	if len(quoted) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)` + strings.Join(quoted, "|"))
}

// FilterByKeywords keeps the units mentioning any keyword. If none does, all
// units are returned.
func FilterByKeywords(units, keywords []string) []string {
	re := keywordPattern(keywords)
	if re == nil {
		return units
	}
	var kept []string
	for _, u := range units {
		if re.MatchString(u) {
			kept = append(kept, u)
		}
	}
	if len(kept) == 0 {
		return units
	}
	return kept
}

// Highlight wraps the first case-insensitive occurrence of each keyword in
// "**". An occurrence overlapping an earlier keyword's is skipped.
func Highlight(text string, keywords []string) string {
	var spans [][2]int
	for _, k := range keywords {
		if k == "" {
			continue
		}
		loc := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(k)).FindStringIndex(text)
		if loc == nil || overlaps(spans, loc[0], loc[1]) {
			continue
		}
		spans = append(spans, [2]int{loc[0], loc[1]})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i][0] < spans[j][0] })

	var b strings.Builder
	last := 0
	for _, sp := range spans {
		b.WriteString(text[last:sp[0]])
		b.WriteString("**" + text[sp[0]:sp[1]] + "**")
		last = sp[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

func overlaps(spans [][2]int, start, end int) bool {
	for _, sp := range spans {
		if start < sp[1] && sp[0] < end {
			return true
		}
	}
	return false
}
