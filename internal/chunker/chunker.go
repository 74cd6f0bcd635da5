// Package chunker splits page text into the paragraph or sentence units that
// snippets are chosen from.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
)

// Policy selects the unit granularity.
type Policy string

const (
	Paragraph Policy = "paragraph"
	Sentence  Policy = "sentence"
)

// ParsePolicy accepts "paragraph" or "sentence"; empty means paragraph.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", Paragraph:
		return Paragraph, nil
	case Sentence:
		return Sentence, nil
	}
	return "", fmt.Errorf("unknown snippet policy %q", s)
}

// Config controls unit filtering.
type Config struct {
	Policy   Policy
	MinChars int // paragraph units must be longer than this
	MaxChars int // and shorter than this
	MinWords int // sentence units need at least this many words
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Policy:   Paragraph,
		MinChars: 20,
		MaxChars: 2000,
		MinWords: 6,
	}
}

// Split returns the units of text under cfg.Policy, in order.
func Split(text string, cfg Config) []string {
	def := DefaultConfig()
	if cfg.MinChars <= 0 {
		cfg.MinChars = def.MinChars
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = def.MaxChars
	}
	if cfg.MinWords <= 0 {
		cfg.MinWords = def.MinWords
	}
	if cfg.Policy == Sentence {
		return Sentences(text, cfg.MinWords)
	}
	return Paragraphs(text, cfg.MinChars, cfg.MaxChars)
}

var blankLine = regexp.MustCompile(`\n\s*\n`)

// Paragraphs splits on blank lines and keeps blocks whose length is strictly
// between minChars and maxChars. Line breaks inside a block become spaces.
func Paragraphs(text string, minChars, maxChars int) []string {
	var out []string
	for _, block := range blankLine.Split(strings.TrimSpace(text), -1) {
		block = strings.TrimSpace(block)
		if n := len(block); n <= minChars || n >= maxChars {
			continue
		}
		out = append(out, strings.ReplaceAll(block, "\n", " "))
	}
	return out
}

var sentenceEnd = regexp.MustCompile(`[.!?]\s+`)

// Sentences splits after '.', '!' or '?' followed by whitespace and keeps
// sentences of at least minWords words, whitespace collapsed.
func Sentences(text string, minWords int) []string {
	var out []string
	start := 0
	emit := func(s string) {
		words := strings.Fields(s)
		if len(words) >= minWords {
			out = append(out, strings.Join(words, " "))
		}
	}
	for _, m := range sentenceEnd.FindAllStringIndex(text, -1) {
		emit(text[start : m[0]+1])
		start = m[1]
	}
	if start < len(text) {
		emit(text[start:])
	}
	return out
}

// TruncateWords keeps the first max words of text. When words are dropped
// the result ends with " [...]".
func TruncateWords(text string, max int) string {
	words := strings.Fields(text)
	if max <= 0 || len(words) <= max {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:max], " ") + " [...]"
}
