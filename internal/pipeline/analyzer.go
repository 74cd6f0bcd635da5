package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/dgallion1/docsect/internal/cache"
	"github.com/dgallion1/docsect/internal/doctree"
	"github.com/dgallion1/docsect/internal/embedding"
	"github.com/dgallion1/docsect/internal/layout"
	"github.com/dgallion1/docsect/internal/outline"
	"github.com/dgallion1/docsect/internal/parser"
	"github.com/dgallion1/docsect/internal/query"
	"github.com/dgallion1/docsect/internal/rank"
	"github.com/dgallion1/docsect/internal/report"
	"github.com/dgallion1/docsect/internal/snippet"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoHeadings means no document yielded a heading, even after the
	// first-line fallback.
	ErrNoHeadings = errors.New("no headings found")
	// ErrNothingRelevant means every heading fell below the relevance floor.
	ErrNothingRelevant = errors.New("no headings survived filtering")
)

// Source is one input document.
type Source struct {
	Filename string
	Data     []byte
}

// Options tunes every stage of an analysis.
type Options struct {
	Parser  parser.Options
	Layout  layout.Config
	Outline outline.Config
	Score   rank.ScoreConfig
	Select  rank.SelectConfig
	Snippet snippet.Config

	MaxConcurrentDocs int
	MinTitleWords     int // non-H1 titles need at least this many words
	MaxTitleChars     int
	FallbackPages     int // pages scanned for first-line headings
}

func DefaultOptions() Options {
	return Options{
		Layout:            layout.DefaultConfig(),
		Outline:           outline.DefaultConfig(),
		Score:             rank.DefaultScoreConfig(),
		Select:            rank.DefaultSelectConfig(),
		Snippet:           snippet.DefaultConfig(),
		MaxConcurrentDocs: 4,
		MinTitleWords:     2,
		MaxTitleChars:     80,
		FallbackPages:     3,
	}
}

// Analyzer runs the section extraction pipeline.
type Analyzer struct {
	embedder embedding.Embedder
	store    cache.Store
	opts     Options
	log      *slog.Logger
	now      func() time.Time
}

func NewAnalyzer(e embedding.Embedder, store cache.Store, opts Options, log *slog.Logger) *Analyzer {
	if opts.MaxConcurrentDocs <= 0 {
		opts.MaxConcurrentDocs = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Analyzer{embedder: e, store: store, opts: opts, log: log, now: time.Now}
}

func (a *Analyzer) withLogger(log *slog.Logger) *Analyzer {
	c := *a
	c.log = log
	return &c
}

// parsedDoc is a readable input document and its outline.
type parsedDoc struct {
	filename string
	hash     string
	doc      *doctree.Document
	outline  doctree.Outline
}

// RunStats summarises one analysis.
type RunStats struct {
	Documents  int  `json:"documents"`
	Parsed     int  `json:"parsed"`
	Candidates int  `json:"candidates"`
	Fallback   bool `json:"fallback"`
	Relevant   int  `json:"relevant"`
	Selected   int  `json:"selected"`
}

// Analyze ranks the sections of docs against the request's persona and
// task. Unreadable documents are skipped. Embedding failures abort the run;
// cache failures never do.
func (a *Analyzer) Analyze(ctx context.Context, in report.Input, docs []Source) (*report.Output, error) {
	out, _, err := a.analyze(ctx, in, docs, nil)
	return out, err
}

func (a *Analyzer) analyze(ctx context.Context, in report.Input, docs []Source, phase func(JobStatus)) (*report.Output, RunStats, error) {
	start := time.Now()
	stats := RunStats{Documents: len(docs)}
	setPhase := func(s JobStatus) {
		if phase != nil {
			phase(s)
		}
	}

	out, err := func() (*report.Output, error) {
		setPhase(StatusParsing)
		parsed, err := a.parseAll(ctx, docs)
		if err != nil {
			return nil, err
		}
		stats.Parsed = len(parsed)

		setPhase(StatusRanking)
		cands, owners, fellBack := a.candidates(parsed)
		stats.Candidates = len(cands)
		stats.Fallback = fellBack > 0
		if len(cands) == 0 {
			return nil, ErrNoHeadings
		}

		q, err := query.NewEncoder(a.embedder).Encode(ctx, in.Persona.Role, in.JobToBeDone.Task)
		if err != nil {
			return nil, fmt.Errorf("encode query: %w", err)
		}

		items := make([]cache.Item, len(cands))
		for i, c := range cands {
			items[i] = cache.Item{DocHash: parsed[owners[i]].hash, Title: c.Title}
		}
		vecs, err := cache.New(a.store, a.embedder, a.log).Resolve(ctx, items, len(q.Vector))
		if err != nil {
			return nil, err
		}

		scored := rank.Score(cands, vecs, q, a.opts.Score)
		stats.Relevant = len(scored)
		if len(scored) == 0 {
			return nil, ErrNothingRelevant
		}
		selected := rank.Select(scored, vecs, a.opts.Select)
		stats.Selected = len(selected)

		setPhase(StatusExtracting)
		sections, err := a.snippets(ctx, selected, owners, parsed, q)
		if err != nil {
			return nil, err
		}
		return report.Build(in, sections, a.now()), nil
	}()

	runDuration.Observe(time.Since(start).Seconds())
	runsTotal.WithLabelValues(outcome(err)).Inc()
	a.log.Info("analysis finished",
		"documents", stats.Documents,
		"parsed", stats.Parsed,
		"candidates", stats.Candidates,
		"fallback", stats.Fallback,
		"selected", stats.Selected,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err,
	)
	return out, stats, err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "completed"
	case errors.Is(err, ErrNoHeadings), errors.Is(err, ErrNothingRelevant):
		return "no_results"
	}
	return "failed"
}

// parseAll parses and classifies documents in parallel. The result keeps
// input order and omits documents that could not be read.
func (a *Analyzer) parseAll(ctx context.Context, docs []Source) ([]parsedDoc, error) {
	results := make([]*parsedDoc, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.MaxConcurrentDocs)
	for i, src := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pd, err := a.parseOne(src)
			if err != nil {
				documentsTotal.WithLabelValues("failed").Inc()
				a.log.Warn("skipping unreadable document", "document", src.Filename, "error", err)
				return nil
			}
			documentsTotal.WithLabelValues("parsed").Inc()
			results[i] = pd
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []parsedDoc
	for _, pd := range results {
		if pd != nil {
			out = append(out, *pd)
		}
	}
	return out, nil
}

func (a *Analyzer) parseOne(src Source) (pd *parsedDoc, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parser panic: %v", r)
		}
	}()
	doc, ol, err := a.outlineOf(src.Data, src.Filename)
	if err != nil {
		return nil, err
	}
	a.log.Debug("outline built", "document", src.Filename, "pages", doc.PageCount(), "headings", len(ol.Entries))
	return &parsedDoc{
		filename: src.Filename,
		hash:     cache.ContentHashHex(src.Data),
		doc:      doc,
		outline:  ol,
	}, nil
}

func (a *Analyzer) outlineOf(data []byte, filename string) (*doctree.Document, doctree.Outline, error) {
	p, err := parser.ForFile(filename, a.opts.Parser)
	if err != nil {
		return nil, doctree.Outline{}, err
	}
	doc, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		return nil, doctree.Outline{}, fmt.Errorf("parse %s: %w", filename, err)
	}
	blocks := layout.Normalize(doc, a.opts.Layout)
	return doc, outline.NewClassifier(a.opts.Outline).Classify(blocks), nil
}

// Outline parses one document and returns its title and headings.
func (a *Analyzer) Outline(data []byte, filename string) (doctree.Outline, error) {
	_, ol, err := a.outlineOf(data, filename)
	return ol, err
}

// candidates flattens the outlines in document order. A document that
// contributes no heading falls back to first lines of its opening pages.
// owners[i] indexes the parsedDoc of candidate i; fellBack counts the
// documents that used the fallback.
func (a *Analyzer) candidates(parsed []parsedDoc) (cands []rank.Candidate, owners []int, fellBack int) {
	for di, pd := range parsed {
		own := a.headingCandidates(pd)
		if len(own) == 0 {
			own = a.fallbackCandidates(pd)
			if len(own) > 0 {
				fellBack++
				a.log.Debug("using first-line headings", "document", pd.filename, "candidates", len(own))
			}
		}
		for _, c := range own {
			cands = append(cands, c)
			owners = append(owners, di)
		}
	}
	return cands, owners, fellBack
}

func (a *Analyzer) headingCandidates(pd parsedDoc) []rank.Candidate {
	var cands []rank.Candidate
	for _, e := range pd.outline.Entries {
		if a.keepTitle(e) {
			cands = append(cands, rank.Candidate{Document: pd.filename, Title: e.Text, Page: e.Page, Level: e.Level})
		}
	}
	return cands
}

// keepTitle drops headings that read like sentences or fragments. H1
// headings are exempt from the word-count and lower-case checks.
func (a *Analyzer) keepTitle(e doctree.OutlineEntry) bool {
	title := strings.TrimSpace(e.Text)
	if title == "" || len([]rune(title)) > a.opts.MaxTitleChars || strings.HasSuffix(title, ".") {
		return false
	}
	if e.Level == doctree.H1 {
		return true
	}
	if len(strings.Fields(title)) < a.opts.MinTitleWords {
		return false
	}
	first := []rune(title)[0]
	return !unicode.IsLower(first)
}

// fallbackCandidates uses the first non-blank line of each of the
// document's first pages as an H1 heading.
func (a *Analyzer) fallbackCandidates(pd parsedDoc) []rank.Candidate {
	var cands []rank.Candidate
	for p := 1; p <= a.opts.FallbackPages; p++ {
		page := pd.doc.Page(p)
		if page == nil {
			break
		}
		line := firstLine(page.Text)
		if len(strings.Fields(line)) < 2 || len([]rune(line)) > a.opts.MaxTitleChars {
			continue
		}
		cands = append(cands, rank.Candidate{Document: pd.filename, Title: line, Page: p, Level: doctree.H1})
	}
	return cands
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// snippets extracts one snippet per selection in parallel. The first
// embedding error cancels the rest and is returned.
func (a *Analyzer) snippets(ctx context.Context, selected []rank.Selected, owners []int, parsed []parsedDoc, q query.Query) ([]report.Section, error) {
	x := snippet.NewExtractor(a.embedder, a.opts.Snippet, a.log)
	sections := make([]report.Section, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.MaxConcurrentDocs)
	for i, s := range selected {
		g.Go(func() error {
			text, err := x.Extract(gctx, parsed[owners[s.Index]].doc, s.Candidate.Page, q)
			if err != nil {
				return err
			}
			sections[i] = report.Section{
				Document: s.Candidate.Document,
				Title:    s.Candidate.Title,
				Page:     s.Candidate.Page,
				Snippet:  text,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sections, nil
}
