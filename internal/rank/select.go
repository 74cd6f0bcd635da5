package rank

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/dgallion1/docsect/internal/embedding"
)

// SelectConfig bounds the selection.
type SelectConfig struct {
	TopK            int
	PerDocLimit     int
	MaxCosine       float64 // reject at or above this similarity to an accepted title
	MaxEditDistance int     // reject same-page titles within this distance
}

func DefaultSelectConfig() SelectConfig {
	return SelectConfig{
		TopK:            5,
		PerDocLimit:     2,
		MaxCosine:       0.90,
		MaxEditDistance: 5,
	}
}

// Selected is an accepted candidate with its 1-based importance rank.
type Selected struct {
	Scored
	Rank int
}

// Select walks scored in order and accepts candidates that are not near
// duplicates of an accepted one and whose document is under its quota,
// stopping at TopK. vecs is indexed by Scored.Index.
func Select(scored []Scored, vecs []embedding.Vector, cfg SelectConfig) []Selected {
	var out []Selected
	perDoc := make(map[string]int)
	for _, s := range scored {
		if cfg.TopK > 0 && len(out) >= cfg.TopK {
			break
		}
		if cfg.PerDocLimit > 0 && perDoc[s.Candidate.Document] >= cfg.PerDocLimit {
			continue
		}
		if isDuplicate(s, out, vecs, cfg) {
			continue
		}
		perDoc[s.Candidate.Document]++
		out = append(out, Selected{Scored: s, Rank: len(out) + 1})
	}
	return out
}

func isDuplicate(s Scored, accepted []Selected, vecs []embedding.Vector, cfg SelectConfig) bool {
	v := vectorAt(vecs, s.Index)
	title := strings.ToLower(s.Candidate.Title)
	for _, a := range accepted {
		if v != nil && embedding.Cosine(v, vectorAt(vecs, a.Index)) >= cfg.MaxCosine {
			return true
		}
		if a.Candidate.Document == s.Candidate.Document && a.Candidate.Page == s.Candidate.Page &&
			levenshtein.ComputeDistance(title, strings.ToLower(a.Candidate.Title)) <= cfg.MaxEditDistance {
			return true
		}
	}
	return false
}

func vectorAt(vecs []embedding.Vector, i int) embedding.Vector {
	if i < 0 || i >= len(vecs) {
		return nil
	}
	return vecs[i]
}
