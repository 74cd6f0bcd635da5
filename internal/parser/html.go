package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docsect/internal/doctree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLParser handles HTML files. The <title> element, when present, opens
// the document as a level-1 heading and <hr> starts a new page.
type HTMLParser struct{}

var htmlHeadingLevels = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3,
	atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	b := newLayoutBuilder(filename)
	if t := findElement(root, atom.Title); t != nil {
		b.heading(1, textContent(t))
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level, ok := htmlHeadingLevels[n.DataAtom]; ok {
				b.heading(level, textContent(n))
				return
			}
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Nav, atom.Footer, atom.Header, atom.Title:
				return
			case atom.Hr:
				b.pageBreak()
				return
			case atom.P, atom.Li, atom.Td, atom.Blockquote, atom.Pre:
				b.paragraph(textContent(n))
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findElement(root, atom.Body); body != nil {
		walk(body)
	} else {
		walk(root)
	}
	return b.document(), nil
}

// textContent concatenates the text below n with whitespace collapsed.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// findElement returns the first element with the given tag, depth first.
func findElement(n *html.Node, tag atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}
