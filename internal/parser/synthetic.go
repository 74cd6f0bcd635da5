package parser

import (
	"strings"

	"github.com/dgallion1/docsect/internal/doctree"
)

// Formats without geometry (Markdown, HTML, DOCX, plain text) are laid out on
// letter-sized pages so the layout normaliser and heading classifier can
// treat them like PDFs. Heading levels map to font sizes. Text stays clear of
// the header and footer bands.
const (
	synthMargin       = 72.0
	synthTopMargin    = 90.0
	synthBodySize     = 11.0
	synthLinesPerPage = 40
)

var synthHeadingSizes = map[int]float64{
	1: 20,
	2: 16,
	3: 14,
	4: 12.5,
	5: 12,
	6: 12,
}

type layoutBuilder struct {
	doc   *doctree.Document
	page  *doctree.Page
	text  strings.Builder
	y     float64
	lines int
}

func newLayoutBuilder(filename string) *layoutBuilder {
	return &layoutBuilder{doc: &doctree.Document{Filename: filename}}
}

// heading adds a bold line sized for the given level (1-6).
func (b *layoutBuilder) heading(level int, text string) {
	size, ok := synthHeadingSizes[level]
	if !ok {
		size = synthBodySize
	}
	b.add(text, size, true)
}

// paragraph adds a body-size block.
func (b *layoutBuilder) paragraph(text string) {
	b.add(text, synthBodySize, false)
}

func (b *layoutBuilder) add(text string, size float64, bold bool) {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return
	}
	if b.page == nil || b.lines >= synthLinesPerPage || b.y+size > defaultPageHeight-synthTopMargin {
		b.pageBreak()
	}
	b.page.Spans = append(b.page.Spans, doctree.Span{
		Text:     text,
		X0:       synthMargin,
		Y0:       b.y,
		X1:       defaultPageWidth - synthMargin,
		Y1:       b.y + size,
		FontSize: size,
		Bold:     bold,
		Order:    len(b.page.Spans),
	})
	if b.text.Len() > 0 {
		b.text.WriteString("\n\n")
	}
	b.text.WriteString(text)
	b.y += size * 1.4
	b.lines++
}

// pageBreak closes the current page and starts a new one.
func (b *layoutBuilder) pageBreak() {
	b.closePage()
	b.doc.Pages = append(b.doc.Pages, doctree.Page{
		Number: len(b.doc.Pages) + 1,
		Width:  defaultPageWidth,
		Height: defaultPageHeight,
	})
	b.page = &b.doc.Pages[len(b.doc.Pages)-1]
	b.y = synthTopMargin
	b.lines = 0
}

func (b *layoutBuilder) closePage() {
	if b.page != nil {
		b.page.Text = b.text.String()
	}
	b.text.Reset()
}

func (b *layoutBuilder) document() *doctree.Document {
	b.closePage()
	b.page = nil
	return b.doc
}
