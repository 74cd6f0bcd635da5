package parser

import (
	"io"
	"strings"

	"github.com/dgallion1/docsect/internal/doctree"
)

// TextParser handles plain text. Paragraphs are separated by blank lines
// and a form feed starts a new page.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	body := strings.ReplaceAll(string(data), "\r\n", "\n")

	b := newLayoutBuilder(filename)
	for i, page := range strings.Split(body, "\f") {
		if i > 0 {
			b.pageBreak()
		}
		for _, para := range paragraphs(page) {
			b.paragraph(para)
		}
	}
	return b.document(), nil
}

// paragraphs groups consecutive non-blank lines.
func paragraphs(s string) []string {
	var out, run []string
	for line := range strings.SplitSeq(s, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(run) > 0 {
				out = append(out, strings.Join(run, "\n"))
				run = run[:0]
			}
			continue
		}
		run = append(run, line)
	}
	if len(run) > 0 {
		out = append(out, strings.Join(run, "\n"))
	}
	return out
}
