package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextParser_BasicParagraphSplitting(t *testing.T) {
	input := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\nThird paragraph."
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(input), "notes.txt")
	require.NoError(t, err)
	require.Len(t, doc.Pages, 1)

	var got []string
	for _, s := range doc.Pages[0].Spans {
		got = append(got, s.Text)
	}
	assert.Equal(t, []string{
		"First paragraph line one. First paragraph line two.",
		"Second paragraph.",
		"Third paragraph.",
	}, got)
}

func TestTextParser_FormFeedSplitsPages(t *testing.T) {
	input := "Page one text.\n\fPage two text.\n"
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(input), "paged.txt")
	require.NoError(t, err)
	require.Len(t, doc.Pages, 2)
	assert.Equal(t, "Page one text.", doc.Pages[0].Text)
	assert.Equal(t, "Page two text.", doc.Pages[1].Text)
}

func TestTextParser_EmptyInput(t *testing.T) {
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.txt")
	require.NoError(t, err)
	assert.Equal(t, 0, doc.PageCount())
}

func TestTextParser_PaginatesLongInput(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < synthLinesPerPage+5; i++ {
		sb.WriteString("A paragraph of plain text.\n\n")
	}
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(sb.String()), "long.txt")
	require.NoError(t, err)
	require.Len(t, doc.Pages, 2)
	assert.Len(t, doc.Pages[1].Spans, 5)
}

func TestForFile(t *testing.T) {
	tests := []struct {
		name    string
		want    Parser
		wantErr bool
	}{
		{"report.pdf", &PDFParser{FallbackPdftotext: true}, false},
		{"REPORT.PDF", &PDFParser{FallbackPdftotext: true}, false},
		{"notes.md", &MarkdownParser{}, false},
		{"page.htm", &HTMLParser{}, false},
		{"memo.docx", &DOCXParser{}, false},
		{"plain.txt", &TextParser{}, false},
		{"sheet.csv", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ForFile(tt.name, Options{FallbackPdftotext: true})
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupported)
				assert.False(t, IsSupportedExtension(tt.name))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
			assert.True(t, IsSupportedExtension(tt.name))
		})
	}
}

func TestExtensionsSorted(t *testing.T) {
	exts := Extensions()
	assert.Equal(t, []string{".docx", ".htm", ".html", ".markdown", ".md", ".pdf", ".txt"}, exts)
}
