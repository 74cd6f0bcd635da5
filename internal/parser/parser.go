package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dgallion1/docsect/internal/doctree"
)

// ErrUnsupported is returned for file types no parser handles.
var ErrUnsupported = errors.New("unsupported file extension")

// Parser turns raw document bytes into pages of positioned lines.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.Document, error)
}

type Options struct {
	// FallbackPdftotext shells out to pdftotext when the Go PDF reader fails.
	FallbackPdftotext bool
}

var registry = map[string]func(Options) Parser{
	".pdf":      func(o Options) Parser { return &PDFParser{FallbackPdftotext: o.FallbackPdftotext} },
	".txt":      func(Options) Parser { return &TextParser{} },
	".md":       func(Options) Parser { return &MarkdownParser{} },
	".markdown": func(Options) Parser { return &MarkdownParser{} },
	".html":     func(Options) Parser { return &HTMLParser{} },
	".htm":      func(Options) Parser { return &HTMLParser{} },
	".docx":     func(Options) Parser { return &DOCXParser{} },
}

func extension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// ForFile picks a parser by file extension.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := extension(filename)
	newParser, ok := registry[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	return newParser(opts), nil
}

func IsSupportedExtension(filename string) bool {
	_, ok := registry[extension(filename)]
	return ok
}

// Extensions lists the handled extensions in sorted order.
func Extensions() []string {
	exts := make([]string, 0, len(registry))
	for ext := range registry {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}
