package rank

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/dgallion1/docsect/internal/doctree"
	"github.com/dgallion1/docsect/internal/embedding"
	"github.com/dgallion1/docsect/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// oneHot returns an n-dimensional unit vector along axis i.
func oneHot(n, i int) embedding.Vector {
	v := make(embedding.Vector, n)
	v[i] = 1
	return v
}

func TestScore_BackgroundOutranksIntroduction(t *testing.T) {
	cands := []Candidate{
		{Document: "a.pdf", Title: "1. Introduction", Page: 1, Level: doctree.H1},
		{Document: "a.pdf", Title: "1.1 Background", Page: 2, Level: doctree.H2},
	}
	vecs := []embedding.Vector{{0.8, 0.6}, {0.6, 0.8}}
	q := query.Query{Vector: embedding.Vector{1, 0}, Keywords: []string{"background", "information"}}

	got := Score(cands, vecs, q, DefaultScoreConfig())
	require.Len(t, got, 2)
	assert.Equal(t, "1.1 Background", got[0].Candidate.Title)
	assert.InDelta(t, 0.45*0.6+0.45*0.5, got[0].Score, 1e-6)
	assert.InDelta(t, 0.45*0.8+0.10, got[1].Score, 1e-6)
	assert.Equal(t, 1.0, got[1].Prior)
	assert.Equal(t, 0.0, got[1].Lexical)
}

func TestScore_DropsBelowSemanticFloor(t *testing.T) {
	cands := []Candidate{
		{Title: "Relevant Topic"},
		{Title: "Orthogonal Topic"},
		{Title: "Barely There"},
	}
	vecs := []embedding.Vector{{1, 0}, {0, 1}, {0.04, 0.9992}}
	q := query.Query{Vector: embedding.Vector{1, 0}, Keywords: []string{"topic"}}

	got := Score(cands, vecs, q, DefaultScoreConfig())
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Index)
}

func TestScore_StableOnTies(t *testing.T) {
	cands := []Candidate{{Title: "Alpha Section"}, {Title: "Beta Section"}, {Title: "Gamma Section"}}
	v := embedding.Vector{1, 0}
	got := Score(cands, []embedding.Vector{v, v, v}, query.Query{Vector: v}, DefaultScoreConfig())
	require.Len(t, got, 3)
	for i, s := range got {
		assert.Equal(t, i, s.Index)
	}
}

func TestJaccard(t *testing.T) {
	set := func(ws ...string) map[string]struct{} {
		m := map[string]struct{}{}
		for _, w := range ws {
			m[w] = struct{}{}
		}
		return m
	}
	assert.Equal(t, 0.0, Jaccard(set("a"), set()))
	assert.Equal(t, 1.0, Jaccard(set("a", "b"), set("b", "a")))
	assert.InDelta(t, 1.0/3, Jaccard(set("a", "b"), set("b", "c")), 1e-9)
}

func scoredList(cands []Candidate) []Scored {
	out := make([]Scored, len(cands))
	for i, c := range cands {
		out[i] = Scored{Index: i, Candidate: c, Score: 1 - float64(i)/100}
	}
	return out
}

func TestSelect_Limits(t *testing.T) {
	var cands []Candidate
	var vecs []embedding.Vector
	for i := 0; i < 9; i++ {
		cands = append(cands, Candidate{Document: fmt.Sprintf("doc%d.pdf", i%3), Title: fmt.Sprintf("Topic %c", 'A'+i), Page: i + 1})
		vecs = append(vecs, oneHot(9, i))
	}
	got := Select(scoredList(cands), vecs, DefaultSelectConfig())
	require.Len(t, got, 5)
	perDoc := map[string]int{}
	for i, s := range got {
		assert.Equal(t, i+1, s.Rank)
		perDoc[s.Candidate.Document]++
	}
	for doc, n := range perDoc {
		assert.LessOrEqual(t, n, 2, doc)
	}
	// doc0, doc1, doc2, doc0, doc1 then doc2 would be sixth.
	assert.Equal(t, []int{0, 1, 2, 3, 4}, indexes(got))
}

func TestSelect_PerDocQuotaSkipsAndContinues(t *testing.T) {
	cands := []Candidate{
		{Document: "a", Title: "One Heading", Page: 1},
		{Document: "a", Title: "Two Heading", Page: 2},
		{Document: "a", Title: "Three Heading", Page: 3},
		{Document: "b", Title: "Four Heading", Page: 1},
	}
	vecs := []embedding.Vector{oneHot(4, 0), oneHot(4, 1), oneHot(4, 2), oneHot(4, 3)}
	got := Select(scoredList(cands), vecs, DefaultSelectConfig())
	assert.Equal(t, []int{0, 1, 3}, indexes(got))
}

func TestSelect_RejectsSimilarVectors(t *testing.T) {
	cands := []Candidate{
		{Document: "a", Title: "Budget Planning", Page: 1},
		{Document: "b", Title: "Planning the Budget", Page: 9},
		{Document: "c", Title: "Packing List", Page: 2},
	}
	vecs := []embedding.Vector{{1, 0}, {0.95, 0.3122}, {0, 1}}
	got := Select(scoredList(cands), vecs, DefaultSelectConfig())
	assert.Equal(t, []int{0, 2}, indexes(got))
}

func TestSelect_EditDistanceSamePageOnly(t *testing.T) {
	cands := []Candidate{
		{Document: "a", Title: "Conclusion", Page: 4},
		{Document: "a", Title: "Conclusions", Page: 4},
		{Document: "a", Title: "CONCLUSION", Page: 7},
		{Document: "b", Title: "Conclusion", Page: 4},
	}
	vecs := []embedding.Vector{oneHot(4, 0), oneHot(4, 1), oneHot(4, 2), oneHot(4, 3)}
	cfg := DefaultSelectConfig()
	cfg.PerDocLimit = 5
	got := Select(scoredList(cands), vecs, cfg)
	// Same page of the same document is a duplicate; another page or
	// another document is not.
	assert.Equal(t, []int{0, 2, 3}, indexes(got))
}

func TestSelect_EmptyAndShort(t *testing.T) {
	assert.Empty(t, Select(nil, nil, DefaultSelectConfig()))
	got := Select(scoredList([]Candidate{{Document: "a", Title: "Only One"}}), []embedding.Vector{{1}}, DefaultSelectConfig())
	assert.Len(t, got, 1)
}

func TestSelect_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	cfg := DefaultSelectConfig()
	for round := 0; round < 50; round++ {
		n := 5 + rng.IntN(30)
		var cands []Candidate
		var vecs []embedding.Vector
		for i := 0; i < n; i++ {
			v := make(embedding.Vector, 4)
			for j := range v {
				v[j] = float32(rng.NormFloat64())
			}
			// Some exact repeats to exercise the cosine rule.
			if i > 0 && rng.IntN(4) == 0 {
				v = vecs[rng.IntN(i)]
			}
			vecs = append(vecs, embedding.Normalize(v))
			cands = append(cands, Candidate{
				Document: fmt.Sprintf("d%d", rng.IntN(4)),
				Title:    fmt.Sprintf("Section %d", rng.IntN(8)),
				Page:     1 + rng.IntN(3),
			})
		}
		first := Select(scoredList(cands), vecs, cfg)

		require.LessOrEqual(t, len(first), cfg.TopK)
		perDoc := map[string]int{}
		for i, a := range first {
			perDoc[a.Candidate.Document]++
			require.LessOrEqual(t, perDoc[a.Candidate.Document], cfg.PerDocLimit)
			for _, b := range first[i+1:] {
				require.Less(t, embedding.Cosine(vecs[a.Index], vecs[b.Index]), cfg.MaxCosine)
			}
		}

		again := make([]Scored, len(first))
		for i, s := range first {
			again[i] = s.Scored
		}
		require.Equal(t, first, Select(again, vecs, cfg), "round %d", round)
	}
}

func indexes(sel []Selected) []int {
	out := make([]int, len(sel))
	for i, s := range sel {
		out[i] = s.Index
	}
	return out
}
