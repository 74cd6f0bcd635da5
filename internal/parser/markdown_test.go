package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownParser_HeadingSizes(t *testing.T) {
	input := `# Title

Intro text for the document.

## Section A

Section A content.

### Subsection A1

Subsection A1 content.
`
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "doc.md")
	require.NoError(t, err)
	require.Equal(t, "doc.md", doc.Filename)
	require.Len(t, doc.Pages, 1)

	spans := doc.Pages[0].Spans
	require.Len(t, spans, 6)

	assert.Equal(t, "Title", spans[0].Text)
	assert.Equal(t, 20.0, spans[0].FontSize)
	assert.True(t, spans[0].Bold)

	assert.Equal(t, "Intro text for the document.", spans[1].Text)
	assert.Equal(t, synthBodySize, spans[1].FontSize)
	assert.False(t, spans[1].Bold)

	assert.Equal(t, "Section A", spans[2].Text)
	assert.Equal(t, 16.0, spans[2].FontSize)
	assert.Equal(t, "Subsection A1", spans[4].Text)
	assert.Equal(t, 14.0, spans[4].FontSize)

	for i := 1; i < len(spans); i++ {
		assert.Greater(t, spans[i].Y0, spans[i-1].Y0, "spans must move down the page")
	}
}

func TestMarkdownParser_PageTextHasParagraphBreaks(t *testing.T) {
	input := "# Heading\n\nFirst paragraph\ncontinues here.\n\nSecond paragraph."
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "doc.md")
	require.NoError(t, err)
	require.Len(t, doc.Pages, 1)

	assert.Equal(t, "Heading\n\nFirst paragraph continues here.\n\nSecond paragraph.", doc.Pages[0].Text)
}

func TestMarkdownParser_NoDuplicatedParagraphText(t *testing.T) {
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader("Just some *plain* text."), "plain.md")
	require.NoError(t, err)
	require.Len(t, doc.Pages, 1)
	require.Len(t, doc.Pages[0].Spans, 1)
	assert.Equal(t, "Just some plain text.", doc.Pages[0].Spans[0].Text)
}

func TestMarkdownParser_ThematicBreakStartsPage(t *testing.T) {
	input := "# One\n\nBody one.\n\n---\n\n# Two\n\nBody two."
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "slides.md")
	require.NoError(t, err)
	require.Len(t, doc.Pages, 2)
	assert.Equal(t, 2, doc.Pages[1].Number)
	assert.Equal(t, "Two", doc.Pages[1].Spans[0].Text)
}

func TestMarkdownParser_ListItemsAreParagraphs(t *testing.T) {
	input := "- first item\n- second item\n"
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "list.md")
	require.NoError(t, err)
	require.Len(t, doc.Pages, 1)
	require.Len(t, doc.Pages[0].Spans, 2)
	assert.Equal(t, "first item", doc.Pages[0].Spans[0].Text)
	assert.Equal(t, "second item", doc.Pages[0].Spans[1].Text)
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.md")
	require.NoError(t, err)
	assert.Empty(t, doc.Pages)
}

func TestMarkdownParser_InlineAndCodeText(t *testing.T) {
	input := "Some *emphasis* and `code`.\n\n```\nfenced block\n```\n"
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "doc.md")
	require.NoError(t, err)
	require.Len(t, doc.Pages, 1)

	spans := doc.Pages[0].Spans
	require.Len(t, spans, 2)
	assert.Equal(t, "Some emphasis and code.", spans[0].Text)
	assert.Equal(t, "fenced block", spans[1].Text)
}
