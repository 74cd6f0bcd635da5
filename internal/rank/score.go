// Package rank scores section candidates against a query and selects a
// de-duplicated, per-document-capped subset.
package rank

import (
	"sort"

	"github.com/dgallion1/docsect/internal/doctree"
	"github.com/dgallion1/docsect/internal/embedding"
	"github.com/dgallion1/docsect/internal/query"
)

// Candidate is one heading from one document. Its index in the candidate
// slice is its identity for the run.
type Candidate struct {
	Document string
	Title    string
	Page     int
	Level    doctree.Level
}

// Scored is a candidate that passed the relevance floor.
type Scored struct {
	Index     int // position in the candidate slice
	Candidate Candidate
	Semantic  float64
	Lexical   float64
	Prior     float64
	Score     float64
}

// ScoreConfig holds the fusion weights.
type ScoreConfig struct {
	SemanticWeight float64
	LexicalWeight  float64
	PriorWeight    float64
	MinSemantic    float64 // candidates below this are dropped unranked
}

func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		SemanticWeight: 0.45,
		LexicalWeight:  0.45,
		PriorWeight:    0.10,
		MinSemantic:    0.05,
	}
}

// Score fuses semantic similarity, keyword overlap and a structural prior
// for every candidate and returns the survivors sorted by score, highest
// first. Ties keep candidate order. vecs[i] is the title vector of cands[i].
func Score(cands []Candidate, vecs []embedding.Vector, q query.Query, cfg ScoreConfig) []Scored {
	kw := make(map[string]struct{}, len(q.Keywords))
	for _, k := range q.Keywords {
		kw[k] = struct{}{}
	}

	var out []Scored
	for i, c := range cands {
		if i >= len(vecs) {
			break
		}
		sem := embedding.Cosine(vecs[i], q.Vector)
		if sem < cfg.MinSemantic {
			continue
		}
		s := Scored{
			Index:     i,
			Candidate: c,
			Semantic:  sem,
			Lexical:   Jaccard(kw, query.Tokens(c.Title)),
		}
		if c.Level == doctree.H1 && c.Page == 1 {
			s.Prior = 1
		}
		s.Score = cfg.SemanticWeight*s.Semantic + cfg.LexicalWeight*s.Lexical + cfg.PriorWeight*s.Prior
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Jaccard is |a∩b| / |a∪b|, or 0 when either set is empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}
