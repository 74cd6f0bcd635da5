// Package query turns a persona and task into keywords and a query vector.
package query

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/dgallion1/docsect/internal/embedding"
)

// DefaultKeywords is how many task keywords are kept.
const DefaultKeywords = 6

var wordRe = regexp.MustCompile(`[A-Za-z']{3,}`)

// IsStopWord reports whether w (lower case) is an English stop word.
func IsStopWord(w string) bool {
	_, ok := stopWords[w]
	return ok
}

// Keywords returns up to k non-stop-word tokens of task, most frequent
// first. Ties keep first-appearance order.
func Keywords(task string, k int) []string {
	counts := make(map[string]int)
	var order []string
	for _, w := range wordRe.FindAllString(strings.ToLower(task), -1) {
		if IsStopWord(w) {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if k >= 0 && len(order) > k {
		order = order[:k]
	}
	return order
}

// Tokens returns the set of lower-cased word tokens of text. Stop words are
// kept.
func Tokens(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		set[w] = struct{}{}
	}
	return set
}

// Text builds the string that is embedded for the query.
func Text(persona, task string, kw []string) string {
	return fmt.Sprintf("%s: %s. %s", persona, task, strings.Join(kw, " "))
}

// Query is the encoded persona and task.
type Query struct {
	Text     string
	Vector   embedding.Vector
	Keywords []string
}

// Encoder embeds queries.
type Encoder struct {
	embedder embedding.Embedder
	k        int
}

func NewEncoder(e embedding.Embedder) *Encoder {
	return &Encoder{embedder: e, k: DefaultKeywords}
}

// Encode extracts keywords from task and embeds the query text. Embedding
// errors are returned unchanged.
func (e *Encoder) Encode(ctx context.Context, persona, task string) (Query, error) {
	kw := Keywords(task, e.k)
	text := Text(persona, task, kw)
	vec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return Query{}, err
	}
	return Query{Text: text, Vector: vec, Keywords: kw}, nil
}
