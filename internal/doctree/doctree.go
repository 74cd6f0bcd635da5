package doctree

// Document is the parsed layout of one input file.
type Document struct {
	Filename string
	Pages    []Page
}

// Page holds the positioned text runs of a single page and its raw text.
type Page struct {
	Number int     // 1-based
	Width  float64 // points
	Height float64 // points
	Spans  []Span
	Text   string // reading-order text, paragraphs separated by blank lines
}

// Span is a run of text sharing one font on one line.
// Coordinates are in points measured from the top-left corner of the page.
type Span struct {
	Text     string
	X0, Y0   float64
	X1, Y1   float64
	FontSize float64
	FontName string
	Bold     bool // set by parsers that know boldness without a font name
	Order    int  // reading order within the page
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	if d == nil {
		return 0
	}
	return len(d.Pages)
}

// Page returns the 1-based page n, or nil when out of range.
func (d *Document) Page(n int) *Page {
	if d == nil || n < 1 || n > len(d.Pages) {
		return nil
	}
	return &d.Pages[n-1]
}

// Level is a heading depth.
type Level int

const (
	LevelNone Level = iota
	H1
	H2
	H3
)

func (l Level) String() string {
	switch l {
	case H1:
		return "H1"
	case H2:
		return "H2"
	case H3:
		return "H3"
	}
	return ""
}

// MarshalText renders the level as "H1".."H3".
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// OutlineEntry is one heading in a document outline.
type OutlineEntry struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
	Page  int    `json:"page"`
}

// Outline is the ordered heading sequence of a document plus its inferred title.
type Outline struct {
	Title   string         `json:"title"`
	Entries []OutlineEntry `json:"outline"`
}
