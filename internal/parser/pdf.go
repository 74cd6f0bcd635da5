package parser

import (
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/dgallion1/docsect/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
)

const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0

	rowTolerance        = 3.0 // points of baseline drift still on the same row
	wordSpaceMultiplier = 0.3 // gap wider than 30% of the font size is a space
	columnGapMultiplier = 3.0 // gap wider than 3x the font size splits the span
	paragraphGapFactor  = 1.5 // baseline gap above 1.5x the font size is a paragraph break
)

// PDFParser handles PDF files. Spans come from the glyph layout of the Go
// reader; if that fails, pdftotext can supply page text without spans.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "docsect-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	doc, err := extractPDFLayout(tmpPath, filename)
	if err != nil && p.FallbackPdftotext {
		text, ferr := extractPdftotext(tmpPath)
		if ferr == nil {
			return textOnlyDocument(filename, text), nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf layout: %w", err)
	}
	return doc, nil
}

func extractPDFLayout(path, filename string) (doc *doctree.Document, err error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// The reader panics on malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("read pdf content: %v", r)
		}
	}()

	doc = &doctree.Document{Filename: filename}
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		pg := doctree.Page{Number: i, Width: defaultPageWidth, Height: defaultPageHeight}
		page := reader.Page(i)
		if page.V.IsNull() {
			doc.Pages = append(doc.Pages, pg)
			continue
		}
		pg.Width, pg.Height = pageSize(page.V)

		rows := buildRows(page.Content().Text, pg.Height)
		for _, row := range rows {
			for _, s := range row.spans {
				s.Order = len(pg.Spans)
				pg.Spans = append(pg.Spans, s)
			}
		}
		pg.Text = rowsText(rows)
		if pg.Text == "" {
			if text, err := page.GetPlainText(nil); err == nil {
				pg.Text = strings.TrimSpace(text)
			}
		}
		doc.Pages = append(doc.Pages, pg)
	}
	return doc, nil
}

// pageSize reads the MediaBox, walking up the page tree for inherited boxes.
func pageSize(v pdflib.Value) (float64, float64) {
	for depth := 0; depth < 16 && !v.IsNull(); depth++ {
		box := v.Key("MediaBox")
		if box.Len() == 4 {
			w := box.Index(2).Float64() - box.Index(0).Float64()
			h := box.Index(3).Float64() - box.Index(1).Float64()
			if w > 0 && h > 0 {
				return w, h
			}
		}
		v = v.Key("Parent")
	}
	return defaultPageWidth, defaultPageHeight
}

type glyphRow struct {
	yMin, yMax float64
	glyphs     []pdflib.Text
	spans      []doctree.Span
	size       float64
}

// buildRows groups glyphs into rows by baseline, orders them top to bottom
// and left to right, and merges glyphs into font-homogeneous spans.
func buildRows(texts []pdflib.Text, pageHeight float64) []glyphRow {
	var rows []glyphRow
	for _, t := range texts {
		if t.S == "" {
			continue
		}
		found := false
		for i := range rows {
			if t.Y >= rows[i].yMin-rowTolerance && t.Y <= rows[i].yMax+rowTolerance {
				rows[i].glyphs = append(rows[i].glyphs, t)
				rows[i].yMin = math.Min(rows[i].yMin, t.Y)
				rows[i].yMax = math.Max(rows[i].yMax, t.Y)
				found = true
				break
			}
		}
		if !found {
			rows = append(rows, glyphRow{yMin: t.Y, yMax: t.Y, glyphs: []pdflib.Text{t}})
		}
	}

	// PDF y grows upwards: higher baseline first.
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].yMax > rows[j].yMax })

	for i := range rows {
		row := &rows[i]
		sort.SliceStable(row.glyphs, func(a, b int) bool { return row.glyphs[a].X < row.glyphs[b].X })
		row.spans = mergeGlyphs(row.glyphs, row.yMin, row.yMax, pageHeight)
		for _, s := range row.spans {
			row.size = math.Max(row.size, s.FontSize)
		}
	}

	out := rows[:0]
	for _, row := range rows {
		if len(row.spans) > 0 {
			out = append(out, row)
		}
	}
	return out
}

func mergeGlyphs(glyphs []pdflib.Text, yMin, yMax, pageHeight float64) []doctree.Span {
	var spans []doctree.Span
	var cur *doctree.Span
	var text strings.Builder
	var lastEnd float64

	flush := func() {
		if cur == nil {
			return
		}
		cur.Text = strings.Join(strings.Fields(text.String()), " ")
		if cur.Text != "" {
			spans = append(spans, *cur)
		}
		cur = nil
		text.Reset()
	}

	for _, g := range glyphs {
		if cur != nil {
			gap := g.X - lastEnd
			sameFont := g.Font == cur.FontName && math.Abs(g.FontSize-cur.FontSize) < 0.5
			if !sameFont || gap > columnGapMultiplier*math.Max(cur.FontSize, 1) {
				flush()
			} else if gap > wordSpaceMultiplier*math.Max(cur.FontSize, 1) {
				text.WriteByte(' ')
			}
		}
		if cur == nil {
			top := pageHeight - yMax - g.FontSize
			cur = &doctree.Span{
				X0:       g.X,
				Y0:       math.Max(top, 0),
				Y1:       math.Max(pageHeight-yMin, 0),
				FontSize: g.FontSize,
				FontName: g.Font,
			}
		}
		text.WriteString(g.S)
		lastEnd = g.X + g.W
		cur.X1 = lastEnd
	}
	flush()
	return spans
}

// rowsText renders rows as text, separating paragraphs with a blank line when
// the vertical gap or a font size change suggests a new block.
func rowsText(rows []glyphRow) string {
	var buf strings.Builder
	for i, row := range rows {
		parts := make([]string, 0, len(row.spans))
		for _, s := range row.spans {
			parts = append(parts, s.Text)
		}
		if i > 0 {
			prev := rows[i-1]
			gap := prev.yMin - row.yMax
			if gap > paragraphGapFactor*math.Max(prev.size, 1) || math.Abs(prev.size-row.size) > 1 {
				buf.WriteString("\n\n")
			} else {
				buf.WriteString("\n")
			}
		}
		buf.WriteString(strings.Join(parts, " "))
	}
	return strings.TrimSpace(buf.String())
}

func extractPdftotext(path string) (string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}

// textOnlyDocument builds pages without spans from form-feed separated text.
func textOnlyDocument(filename, text string) *doctree.Document {
	doc := &doctree.Document{Filename: filename}
	for i, page := range strings.Split(text, "\f") {
		doc.Pages = append(doc.Pages, doctree.Page{
			Number: i + 1,
			Width:  defaultPageWidth,
			Height: defaultPageHeight,
			Text:   strings.TrimSpace(page),
		})
	}
	// pdftotext terminates the last page with a form feed.
	if n := len(doc.Pages); n > 1 && doc.Pages[n-1].Text == "" {
		doc.Pages = doc.Pages[:n-1]
	}
	return doc
}
