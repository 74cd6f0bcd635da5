package parser

import (
	"io"
	"strings"

	"github.com/dgallion1/docsect/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark. Headings become
// sized bold lines; a thematic break starts a new page.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	b := newLayoutBuilder(filename)
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			b.heading(node.Level, extractText(node, src))
		case *ast.ThematicBreak:
			b.pageBreak()
		case *ast.List:
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				b.paragraph(extractText(item, src))
			}
		default:
			b.paragraph(extractText(n, src))
		}
	}
	return b.document(), nil
}

// extractText flattens a node to plain text. Leaf blocks such as code and
// raw HTML contribute their source lines; nested blocks end with a newline.
func extractText(n ast.Node, src []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if c != n && c.Type() == ast.TypeBlock {
				sb.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte('\n')
			}
		case *ast.String:
			sb.Write(t.Value)
		default:
			if c.Type() == ast.TypeBlock && !c.HasChildren() {
				lines := c.Lines()
				for i := range lines.Len() {
					seg := lines.At(i)
					sb.Write(seg.Value(src))
				}
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
